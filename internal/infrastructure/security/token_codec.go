package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// DefaultTokenTTL is used when the configured bearer token lifetime is not positive.
const DefaultTokenTTL = 2 * time.Hour

// TokenCodec signs and verifies HS256 bearer tokens. Secret, issuer and
// lifetime are fixed at construction.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func NewTokenCodec(secret, issuer string, ttl time.Duration, opts ...CodecOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec: secret is required")
	}
	if issuer == "" {
		return nil, errors.New("token codec: issuer is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	c := &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue returns a signed token for subject carrying roles.
func (c *TokenCodec) Issue(subject string, roles []string) (string, error) {
	now := c.now()
	claims := tokenClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(now.Add(c.ttl))),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ceilSecond rounds t up to a whole second. NumericDate drops sub-second
// precision, so truncating would end a token's life before issue+ttl.
func ceilSecond(t time.Time) time.Time {
	if r := t.Truncate(time.Second); r.Before(t) {
		return r.Add(time.Second)
	}
	return t
}

// Verify checks signature, issuer and expiry (no leeway) and returns the
// identity the token was issued for.
func (c *TokenCodec) Verify(token string) (domain.Identity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return domain.Identity{}, classifyTokenError(err)
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return domain.Identity{}, fmt.Errorf("verify token: missing subject: %w", domain.ErrTokenMalformed)
	}

	return domain.Identity{
		Email:     claims.Subject,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// classifyTokenError folds jwt errors into the three codec failure kinds.
// A foreign issuer is treated like a bad signature: the token was not minted here.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("verify token: %w", domain.ErrTokenMalformed)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("verify token: %w", domain.ErrInvalidSignature)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("verify token: %w", domain.ErrTokenExpired)
	default:
		return fmt.Errorf("verify token: %v: %w", err, domain.ErrTokenMalformed)
	}
}
