package domain

import "time"

// DefaultResetTokenTTL is how long a password reset token stays redeemable.
const DefaultResetTokenTTL = 10 * time.Minute

// ResetTokenState is the lifecycle position of a password reset token.
type ResetTokenState string

const (
	ResetTokenPending  ResetTokenState = "pending"
	ResetTokenConsumed ResetTokenState = "consumed"
	ResetTokenExpired  ResetTokenState = "expired"
)

// PasswordResetToken is a single-use secret proving ownership of an email.
// Only the SHA-256 hash of the token value is persisted.
type PasswordResetToken struct {
	ID          string
	TokenHash   string
	PrincipalID string
	ExpiresAt   time.Time
	Used        bool
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// State derives the lifecycle state at the given instant.
func (t *PasswordResetToken) State(now time.Time) ResetTokenState {
	switch {
	case t.Used:
		return ResetTokenConsumed
	case !now.Before(t.ExpiresAt):
		return ResetTokenExpired
	default:
		return ResetTokenPending
	}
}

// IsValid reports whether the token can still be redeemed at now.
func (t *PasswordResetToken) IsValid(now time.Time) bool {
	return t.State(now) == ResetTokenPending
}
