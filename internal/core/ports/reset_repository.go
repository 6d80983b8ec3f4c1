package ports

import (
	"context"
	"time"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// ResetTokenRepository persists password reset tokens. Implementations must
// make ReplacePending and Redeem atomic with respect to concurrent callers.
type ResetTokenRepository interface {
	// ReplacePending deletes every unused token of token.PrincipalID and
	// inserts token, as one unit.
	ReplacePending(ctx context.Context, token *domain.PasswordResetToken) error

	// FindByHash returns domain.ErrResetTokenNotFound when no token matches.
	FindByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error)

	// Redeem claims the token identified by tokenHash if it is unused and
	// not expired at now, sets the owner's password hash and deletes the
	// owner's remaining unused tokens. Exactly one concurrent caller wins;
	// the others get domain.ErrInvalidOrExpiredToken.
	Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (*domain.Principal, error)

	// PurgeStale removes tokens that are used or expired at now.
	PurgeStale(ctx context.Context, now time.Time) (int64, error)
}
