package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// PrincipalRepository keeps principals in the users collection with their
// role names embedded.
type PrincipalRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewPrincipalRepository(db *mongo.Database) *PrincipalRepository {
	return &PrincipalRepository{coll: db.Collection(collectionUsers), now: time.Now}
}

type mongoPrincipal struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	PasswordHash   string             `bson:"password_hash"`
	Name           string             `bson:"name"`
	CPF            string             `bson:"cpf"`
	Phone          string             `bson:"phone"`
	Sex            string             `bson:"sex,omitempty"`
	SecondaryPhone string             `bson:"secondary_phone,omitempty"`
	SecondaryEmail string             `bson:"secondary_email,omitempty"`
	Address        string             `bson:"address,omitempty"`
	Roles          []string           `bson:"roles"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func (m *mongoPrincipal) toDomain() *domain.Principal {
	roles := m.Roles
	if roles == nil {
		roles = []string{}
	}
	return &domain.Principal{
		ID:             m.ID.Hex(),
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		Name:           m.Name,
		CPF:            m.CPF,
		Phone:          m.Phone,
		Sex:            m.Sex,
		SecondaryPhone: m.SecondaryPhone,
		SecondaryEmail: m.SecondaryEmail,
		Address:        m.Address,
		Roles:          roles,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := mongoPrincipal{
		Email:          p.Email,
		PasswordHash:   p.PasswordHash,
		Name:           p.Name,
		CPF:            p.CPF,
		Phone:          p.Phone,
		Sex:            p.Sex,
		SecondaryPhone: p.SecondaryPhone,
		SecondaryEmail: p.SecondaryEmail,
		Address:        p.Address,
		Roles:          append([]string(nil), p.Roles...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateUserError(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

// duplicateUserError maps a duplicate key error to the unique field it hit.
func duplicateUserError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCodeWithMessage(duplicateKeyCode, indexUsersCPF) {
		return domain.ErrDuplicateCPF
	}
	return domain.ErrDuplicateEmail
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPrincipalNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *PrincipalRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (r *PrincipalRepository) List(ctx context.Context) ([]*domain.Principal, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoPrincipal
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]*domain.Principal, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *PrincipalRepository) findOne(ctx context.Context, filter bson.M) (*domain.Principal, error) {
	var mp mongoPrincipal
	if err := r.coll.FindOne(ctx, filter).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mp.toDomain(), nil
}

// RoleRepository stores the fixed role set in the roles collection.
type RoleRepository struct {
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(collectionRoles)}
}

type mongoRole struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var mr mongoRole
	if err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUnknownRole
		}
		return nil, fmt.Errorf("find role %s: %w", name, err)
	}
	return &domain.Role{ID: mr.ID.Hex(), Name: mr.Name}, nil
}

func (r *RoleRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"name": name}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("ensure role %s: %w", name, err)
	}
	return nil
}
