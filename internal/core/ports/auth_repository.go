package ports

import (
	"context"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// PrincipalRepository is the credential store.
type PrincipalRepository interface {
	// FindByEmail returns domain.ErrPrincipalNotFound when no principal has
	// exactly this email.
	FindByEmail(ctx context.Context, email string) (*domain.Principal, error)
	FindByID(ctx context.Context, id string) (*domain.Principal, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create persists a new principal. A concurrent insert of the same email
	// surfaces as domain.ErrDuplicateEmail, a reused CPF as
	// domain.ErrDuplicateCPF.
	Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error)
	List(ctx context.Context) ([]*domain.Principal, error)
}

// RoleRepository looks up and seeds the fixed role set.
type RoleRepository interface {
	// FindByName returns domain.ErrUnknownRole when the role does not exist.
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	// Ensure creates the role if absent. Calling it twice is a no-op.
	Ensure(ctx context.Context, name string) error
}
