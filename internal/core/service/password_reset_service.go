package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

const resetTokenBytes = 32

// PasswordResetService issues, validates and redeems one-time reset tokens.
type PasswordResetService struct {
	principals ports.PrincipalRepository
	tokens     ports.ResetTokenRepository
	hasher     ports.PasswordHasher
	notifier   ports.Notifier
	logger     zerolog.Logger

	ttl         time.Duration
	frontendURL string
	now         func() time.Time
}

type ResetOption func(*PasswordResetService)

// WithResetClock replaces the wall clock, mainly for tests.
func WithResetClock(now func() time.Time) ResetOption {
	return func(s *PasswordResetService) { s.now = now }
}

func NewPasswordResetService(
	principals ports.PrincipalRepository,
	tokens ports.ResetTokenRepository,
	hasher ports.PasswordHasher,
	notifier ports.Notifier,
	logger zerolog.Logger,
	ttl time.Duration,
	frontendURL string,
	opts ...ResetOption,
) *PasswordResetService {
	if ttl <= 0 {
		ttl = domain.DefaultResetTokenTTL
	}
	s := &PasswordResetService{
		principals:  principals,
		tokens:      tokens,
		hasher:      hasher,
		notifier:    notifier,
		logger:      logger,
		ttl:         ttl,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset issues a fresh token for the principal owning email and hands
// it to the notifier. An unknown email returns nil without side effects so
// callers cannot probe which addresses are registered.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	p, err := s.principals.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			s.logger.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("find principal: %w", err)
	}

	value, err := newResetSecret()
	if err != nil {
		return err
	}

	now := s.now()
	token := &domain.PasswordResetToken{
		TokenHash:   HashResetToken(value),
		PrincipalID: p.ID,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	if err := s.tokens.ReplacePending(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	n := ports.ResetNotification{
		To:        p.Email,
		Username:  displayName(p),
		ResetLink: s.resetLink(value),
		Token:     value,
	}
	// the token stays valid even when the notification cannot be handed off
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("principal_id", p.ID).Msg("reset notification not sent")
	}

	s.logger.Info().Str("principal_id", p.ID).Time("expires_at", token.ExpiresAt).Msg("reset token issued")
	return nil
}

// ValidateToken returns the pending token matching value, or
// domain.ErrInvalidOrExpiredToken. It never mutates the store.
func (s *PasswordResetService) ValidateToken(ctx context.Context, value string) (*domain.PasswordResetToken, error) {
	if value == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	t, err := s.tokens.FindByHash(ctx, HashResetToken(value))
	if err != nil {
		if errors.Is(err, domain.ErrResetTokenNotFound) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	if !t.IsValid(s.now()) {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	return t, nil
}

// ConfirmReset sets a new password using a pending token. Checks run in a
// fixed order: confirmation match, token validity, reuse of the current
// password. The final write is a single atomic redeem in the store.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, value, newPassword, confirmationPassword string) (*domain.Principal, error) {
	if newPassword != confirmationPassword {
		return nil, domain.ErrPasswordMismatch
	}

	t, err := s.ValidateToken(ctx, value)
	if err != nil {
		return nil, err
	}

	owner, err := s.principals.FindByID(ctx, t.PrincipalID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	if s.hasher.Matches(newPassword, owner.PasswordHash) {
		return nil, domain.ErrSamePassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	updated, err := s.tokens.Redeem(ctx, t.TokenHash, s.now(), hash)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
			return nil, err
		}
		return nil, fmt.Errorf("redeem reset token: %w", err)
	}

	s.logger.Info().Str("principal_id", updated.ID).Msg("password reset")
	return updated, nil
}

// PurgeStale deletes used and expired tokens.
func (s *PasswordResetService) PurgeStale(ctx context.Context) (int64, error) {
	n, err := s.tokens.PurgeStale(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", err)
	}
	if n > 0 {
		s.logger.Info().Int64("purged", n).Msg("stale reset tokens purged")
	}
	return n, nil
}

func (s *PasswordResetService) resetLink(value string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(value)
}

// HashResetToken returns the lookup key stored for a token value.
func HashResetToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func newResetSecret() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func displayName(p *domain.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}
