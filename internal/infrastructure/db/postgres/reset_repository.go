package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// ResetTokenRepository stores password reset tokens. The partial unique index
// on (user_id) WHERE NOT used keeps a single redeemable token per user.
type ResetTokenRepository struct {
	db      DB
	backoff func() retry.Backoff
}

func NewResetTokenRepository(db DB) *ResetTokenRepository {
	return &ResetTokenRepository{
		db: db,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))
		},
	}
}

// ReplacePending deletes the principal's unused tokens and inserts token. Two
// concurrent requests for the same principal race on the partial unique
// index; the loser retries and replaces the winner's token.
func (r *ResetTokenRepository) ReplacePending(ctx context.Context, token *domain.PasswordResetToken) error {
	userID, err := uuid.Parse(token.PrincipalID)
	if err != nil {
		return domain.ErrPrincipalNotFound
	}
	id := uuid.New()

	err = retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		err := inTx(ctx, r.db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1 AND NOT used`, userID); err != nil {
				return fmt.Errorf("delete pending tokens: %w", err)
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO password_reset_tokens (id, token_hash, user_id, expires_at, used, created_at)
				VALUES ($1, $2, $3, $4, FALSE, $5)`,
				id, token.TokenHash, userID, token.ExpiresAt, token.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert token: %w", err)
			}
			return nil
		})
		if isUniqueViolation(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return err
	}
	token.ID = id.String()
	return nil
}

func (r *ResetTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id::text, token_hash, user_id::text, expires_at, used, used_at, created_at
		FROM password_reset_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&t.ID, &t.TokenHash, &t.PrincipalID, &t.ExpiresAt, &t.Used, &t.UsedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrResetTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return &t, nil
}

// Redeem claims the token with a conditional UPDATE, so only one of several
// concurrent callers sees a returned row.
func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (*domain.Principal, error) {
	var p *domain.Principal
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx, `
			UPDATE password_reset_tokens SET used = TRUE, used_at = $2
			WHERE token_hash = $1 AND NOT used AND expires_at > $2
			RETURNING user_id::text`, tokenHash, now).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInvalidOrExpiredToken
		}
		if err != nil {
			return fmt.Errorf("claim reset token: %w", err)
		}

		uid, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("claim reset token: user id %q: %w", userID, err)
		}
		tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, passwordHash, now, uid)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInvalidOrExpiredToken
		}
		if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1 AND NOT used`, uid); err != nil {
			return fmt.Errorf("delete pending tokens: %w", err)
		}

		p, err = findPrincipal(ctx, tx, selectPrincipal+` WHERE u.id = $1 GROUP BY u.id`, uid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ResetTokenRepository) PurgeStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE used OR expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
