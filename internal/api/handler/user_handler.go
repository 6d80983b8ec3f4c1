package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

// UserHandler serves the caller's identity, the admin user listing and the
// authentication probe routes.
type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the identity attached to the request.
//
// @Summary      Current identity
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  errorResponse
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identityResponse{
		Email:     id.Email,
		Roles:     id.Roles,
		ExpiresAt: id.ExpiresAt,
	})
}

// List returns every registered user.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   principalResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	principals, err := h.authService.ListPrincipals(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]principalResponse, 0, len(principals))
	for _, p := range principals {
		out = append(out, toPrincipalResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one user by id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  principalResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	p, err := h.authService.GetPrincipal(c.Request().Context(), c.Param("id"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, toPrincipalResponse(p))
}

// TestAuthenticated answers any authenticated caller.
//
// @Summary      Authentication probe
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /users/test [get]
func (h *UserHandler) TestAuthenticated(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Authenticated successfully"})
}

// TestCustomer answers callers holding ROLE_CUSTOMER.
//
// @Summary      Customer authentication probe
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /users/test/customer [get]
func (h *UserHandler) TestCustomer(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Customer authenticated successfully"})
}

// TestAdministrator answers callers holding ROLE_ADMINISTRATOR.
//
// @Summary      Administrator authentication probe
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /users/test/administrator [get]
func (h *UserHandler) TestAdministrator(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Administrator authenticated successfully"})
}
