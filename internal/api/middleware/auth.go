package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/api/metrics"
	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

// PrincipalFinder re-reads the principal behind a token.
type PrincipalFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.Principal, error)
}

// AuthConfig configures Authenticate.
type AuthConfig struct {
	Codec ports.TokenCodec
	// Principals, when set, is queried on every authenticated request so
	// role changes and deleted accounts take effect before the token expires.
	Principals PrincipalFinder
	Logger     zerolog.Logger
}

// Authenticate attaches the identity carried by a valid bearer token. It never
// rejects a request: a missing or bad token leaves the request anonymous and
// Authorize decides whether that is acceptable for the route.
func Authenticate(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			id, err := cfg.Codec.Verify(raw)
			if err != nil {
				metrics.TokenVerificationFailuresTotal.WithLabelValues(failureReason(err)).Inc()
				cfg.Logger.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("bearer token rejected")
				return next(c)
			}

			if cfg.Principals != nil {
				p, err := cfg.Principals.FindByEmail(c.Request().Context(), id.Email)
				if err != nil {
					if errors.Is(err, domain.ErrPrincipalNotFound) {
						metrics.TokenVerificationFailuresTotal.WithLabelValues("unknown_principal").Inc()
					} else {
						cfg.Logger.Error().Err(err).Msg("reload principal for bearer token")
					}
					return next(c)
				}
				id.Roles = p.Roles
			}

			setIdentity(c, &id)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
