package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/api/metrics"
	"github.com/zoonosys/zoonosys-api/internal/core/access"
	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// Authorize evaluates the request against the access matrix. It must run
// after Authenticate. Rejections are *echo.HTTPError values wrapping
// domain.ErrUnauthorized or domain.ErrForbidden. Rules see the same path the
// router matched on, escaped form included.
func Authorize(matrix *access.Matrix, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := echo.GetPath(req)
			id, _ := IdentityFrom(c)

			decision := matrix.Evaluate(req.Method, path, id)
			metrics.AuthorizationDecisionsTotal.WithLabelValues(decision.String()).Inc()

			switch decision {
			case access.Unauthorized:
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required").SetInternal(domain.ErrUnauthorized)
			case access.Forbidden:
				logger.Info().
					Str("email", id.Email).
					Str("method", req.Method).
					Str("path", path).
					Msg("access forbidden")
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden").SetInternal(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
