package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// ResetTokenRepository stores reset tokens. Atomicity comes from single
// document operations and the partial unique index on principal_id.
type ResetTokenRepository struct {
	tokens *mongo.Collection
	users  *mongo.Collection
}

func NewResetTokenRepository(db *mongo.Database) *ResetTokenRepository {
	return &ResetTokenRepository{
		tokens: db.Collection(collectionResetTokens),
		users:  db.Collection(collectionUsers),
	}
}

type mongoResetToken struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	TokenHash   string             `bson:"token_hash"`
	PrincipalID string             `bson:"principal_id"`
	ExpiresAt   time.Time          `bson:"expires_at"`
	Used        bool               `bson:"used"`
	UsedAt      *time.Time         `bson:"used_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (m *mongoResetToken) toDomain() *domain.PasswordResetToken {
	t := &domain.PasswordResetToken{
		ID:          m.ID.Hex(),
		TokenHash:   m.TokenHash,
		PrincipalID: m.PrincipalID,
		ExpiresAt:   m.ExpiresAt.UTC(),
		Used:        m.Used,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if m.UsedAt != nil {
		at := m.UsedAt.UTC()
		t.UsedAt = &at
	}
	return t
}

// ReplacePending swaps the principal's unused token for token in one upsert.
// Two first-time requests can both take the insert path; the loser hits the
// partial unique index and is retried once, replacing the winner.
func (r *ResetTokenRepository) ReplacePending(ctx context.Context, token *domain.PasswordResetToken) error {
	doc := mongoResetToken{
		TokenHash:   token.TokenHash,
		PrincipalID: token.PrincipalID,
		ExpiresAt:   token.ExpiresAt,
		CreatedAt:   token.CreatedAt,
	}
	filter := bson.M{"principal_id": token.PrincipalID, "used": false}

	var res *mongo.UpdateResult
	backoff := retry.WithMaxRetries(1, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		res, err = r.tokens.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
		if mongo.IsDuplicateKeyError(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("replace reset token: %w", err)
	}

	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		token.ID = oid.Hex()
		return nil
	}
	stored, err := r.FindByHash(ctx, token.TokenHash)
	if err != nil {
		return err
	}
	token.ID = stored.ID
	return nil
}

func (r *ResetTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	var mt mongoResetToken
	if err := r.tokens.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return mt.toDomain(), nil
}

// Redeem claims the token with a guarded FindOneAndUpdate; exactly one
// concurrent caller gets the document back. The claim is undone when the
// password cannot be written.
func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (*domain.Principal, error) {
	var claimed mongoResetToken
	err := r.tokens.FindOneAndUpdate(ctx,
		bson.M{"token_hash": tokenHash, "used": false, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"used": true, "used_at": now}},
	).Decode(&claimed)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("claim reset token: %w", err)
	}

	p, err := r.setPassword(ctx, claimed.PrincipalID, passwordHash, now)
	if err != nil {
		r.release(ctx, claimed.ID)
		return nil, err
	}

	if _, err := r.tokens.DeleteMany(ctx, bson.M{"principal_id": claimed.PrincipalID, "used": false}); err != nil {
		return nil, fmt.Errorf("delete pending tokens: %w", err)
	}
	return p, nil
}

func (r *ResetTokenRepository) setPassword(ctx context.Context, principalID, passwordHash string, now time.Time) (*domain.Principal, error) {
	oid, err := primitive.ObjectIDFromHex(principalID)
	if err != nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	var mp mongoPrincipal
	err = r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"password_hash": passwordHash, "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	return mp.toDomain(), nil
}

// release makes a claimed token redeemable again. It runs on a fresh context
// so a cancelled request still undoes its claim.
func (r *ResetTokenRepository) release(ctx context.Context, id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
	defer cancel()
	_, _ = r.tokens.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"used": false}, "$unset": bson.M{"used_at": ""}},
	)
}

func (r *ResetTokenRepository) PurgeStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.tokens.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"used": true},
		bson.M{"expires_at": bson.M{"$lte": now}},
	}})
	if err != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", err)
	}
	return res.DeletedCount, nil
}
