package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

type RoleRepository struct {
	db DB
}

func NewRoleRepository(db DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRow(ctx, `SELECT id::text, name FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUnknownRole
	}
	if err != nil {
		return nil, fmt.Errorf("find role %s: %w", name, err)
	}
	return &role, nil
}

func (r *RoleRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, uuid.New(), name)
	if err != nil {
		return fmt.Errorf("ensure role %s: %w", name, err)
	}
	return nil
}
