package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

const selectPrincipal = `
	SELECT u.id::text, u.email, u.password_hash, u.name, u.cpf, u.phone, u.sex,
	       u.secondary_phone, u.secondary_email, u.address, u.created_at, u.updated_at,
	       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id`

// PrincipalRepository stores principals in the users and user_roles tables.
type PrincipalRepository struct {
	db  DB
	now func() time.Time
}

func NewPrincipalRepository(db DB) *PrincipalRepository {
	return &PrincipalRepository{db: db, now: time.Now}
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return findPrincipal(ctx, r.db, selectPrincipal+` WHERE u.email = $1 GROUP BY u.id`, email)
}

func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrPrincipalNotFound
	}
	return findPrincipal(ctx, r.db, selectPrincipal+` WHERE u.id = $1 GROUP BY u.id`, uid)
}

func (r *PrincipalRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

const constraintUsersCPF = "users_cpf_key"

// Create inserts the principal and its role links in one transaction.
func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	id := uuid.New()
	now := r.now().UTC()

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, name, cpf, phone, sex,
			                   secondary_phone, secondary_email, address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
			id, p.Email, p.PasswordHash, p.Name, p.CPF, p.Phone, p.Sex,
			p.SecondaryPhone, p.SecondaryEmail, p.Address, now)
		if err != nil {
			if constraint, ok := uniqueViolation(err); ok {
				if constraint == constraintUsersCPF {
					return domain.ErrDuplicateCPF
				}
				return domain.ErrDuplicateEmail
			}
			return fmt.Errorf("insert user: %w", err)
		}

		for _, role := range p.Roles {
			tag, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id)
				SELECT $1, id FROM roles WHERE name = $2`, id, role)
			if err != nil {
				return fmt.Errorf("link role %s: %w", role, err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrUnknownRole
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := *p
	created.ID = id.String()
	created.Roles = append([]string(nil), p.Roles...)
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

func (r *PrincipalRepository) List(ctx context.Context) ([]*domain.Principal, error) {
	rows, err := r.db.Query(ctx, selectPrincipal+` GROUP BY u.id ORDER BY u.created_at, u.email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func findPrincipal(ctx context.Context, q queryer, sql string, arg any) (*domain.Principal, error) {
	p, err := scanPrincipal(q.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return p, nil
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var p domain.Principal
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.CPF, &p.Phone, &p.Sex,
		&p.SecondaryPhone, &p.SecondaryEmail, &p.Address, &p.CreatedAt, &p.UpdatedAt,
		&p.Roles,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
