package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// identityKey is the echo context key holding the caller's *domain.Identity.
const identityKey = "identity"

type ctxKey struct{}

// IdentityFrom returns the identity attached by Authenticate, if any.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	id, ok := c.Get(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

// IdentityFromContext is IdentityFrom for code that only sees the request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*domain.Identity)
	return id, ok && id != nil
}

func setIdentity(c echo.Context, id *domain.Identity) {
	c.Set(identityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), ctxKey{}, id)))
}
