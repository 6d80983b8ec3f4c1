package ports

import "github.com/zoonosys/zoonosys-api/internal/core/domain"

// TokenCodec issues and verifies bearer tokens.
type TokenCodec interface {
	Issue(subject string, roles []string) (string, error)
	// Verify returns domain.ErrInvalidSignature, domain.ErrTokenExpired or
	// domain.ErrTokenMalformed on failure.
	Verify(token string) (domain.Identity, error)
}

// PasswordHasher hashes and checks credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(password, hash string) bool
}
