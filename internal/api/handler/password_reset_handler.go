package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zoonosys/zoonosys-api/internal/api/metrics"
	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

const resetAcceptedMessage = "If the email is registered, a reset link has been sent."

type PasswordResetHandler struct {
	service ports.PasswordResetService
}

func NewPasswordResetHandler(service ports.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{service: service}
}

// Request starts a password reset. The response is the same whether or not
// the email belongs to an account.
//
// @Summary      Request a password reset
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        body  body      resetRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/reset-password/request [post]
func (h *PasswordResetHandler) Request(c echo.Context) error {
	var req resetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.service.RequestReset(c.Request().Context(), req.Email); err != nil {
		metrics.ResetRequestsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.ResetRequestsTotal.WithLabelValues("accepted").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: resetAcceptedMessage})
}

// Validate checks a reset token without consuming it.
//
// @Summary      Validate a reset token
// @Tags         password-reset
// @Produce      json
// @Param        token  query     string  true  "Reset token"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  errorResponse
// @Router       /auth/reset-password/validate [get]
func (h *PasswordResetHandler) Validate(c echo.Context) error {
	if _, err := h.service.ValidateToken(c.Request().Context(), c.QueryParam("token")); err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Token is valid. Proceed to reset the password."})
}

// Confirm sets a new password using a reset token.
//
// @Summary      Confirm a password reset
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        token  query     string               true  "Reset token"
// @Param        body   body      resetConfirmRequest  true  "New password and confirmation"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  errorResponse
// @Router       /auth/reset-password/confirm [post]
func (h *PasswordResetHandler) Confirm(c echo.Context) error {
	var req resetConfirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	_, err := h.service.ConfirmReset(c.Request().Context(), c.QueryParam("token"), req.NewPassword, req.ConfirmationPassword)
	if err != nil {
		metrics.ResetConfirmationsTotal.WithLabelValues(confirmResult(err)).Inc()
		return asHTTPError(err)
	}

	metrics.ResetConfirmationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset successfully."})
}

func confirmResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrPasswordMismatch):
		return "password_mismatch"
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrSamePassword):
		return "same_password"
	default:
		return "error"
	}
}
