package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/zoonosys/zoonosys-api/internal/api/middleware"
	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// currentIdentity returns the caller's identity. Routes behind Authorize
// always have one; the check covers handlers mounted without it.
func currentIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, asHTTPError(domain.ErrUnauthorized)
	}
	return id, nil
}
