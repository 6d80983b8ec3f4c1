package ports

import (
	"context"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// RegisterInput carries the data of a new account.
type RegisterInput struct {
	Email          string
	Password       string
	Role           string
	Name           string
	CPF            string
	Phone          string
	Sex            string
	SecondaryPhone string
	SecondaryEmail string
	Address        string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Principal, error)
	Authenticate(ctx context.Context, email, password string) (string, *domain.Principal, error)
	GetPrincipal(ctx context.Context, id string) (*domain.Principal, error)
	ListPrincipals(ctx context.Context) ([]*domain.Principal, error)
}

// PasswordResetService drives the reset token lifecycle.
type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ValidateToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	ConfirmReset(ctx context.Context, token, newPassword, confirmationPassword string) (*domain.Principal, error)
	PurgeStale(ctx context.Context) (int64, error)
}
