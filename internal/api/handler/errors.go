package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// errorMapping is checked in order; the first sentinel matched wins.
var errorMapping = []struct {
	err    error
	status int
	msg    string
}{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "authentication required"},
	{domain.ErrTokenExpired, http.StatusUnauthorized, "authentication required"},
	{domain.ErrInvalidSignature, http.StatusUnauthorized, "authentication required"},
	{domain.ErrTokenMalformed, http.StatusUnauthorized, "authentication required"},
	{domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
	{domain.ErrIncompleteSignup, http.StatusBadRequest, "email and password are required"},
	{domain.ErrDuplicateEmail, http.StatusConflict, "email already registered"},
	{domain.ErrDuplicateCPF, http.StatusConflict, "cpf already registered"},
	{domain.ErrUnknownRole, http.StatusBadRequest, "unknown role"},
	{domain.ErrPrincipalNotFound, http.StatusNotFound, "user not found"},
	{domain.ErrPasswordMismatch, http.StatusBadRequest, "passwords do not match"},
	{domain.ErrInvalidOrExpiredToken, http.StatusBadRequest, "reset token is invalid, expired or already used"},
	{domain.ErrSamePassword, http.StatusBadRequest, "new password must differ from the current one"},
}

// ToHTTPError maps a domain error to its HTTP form. It returns nil for errors
// that have no public representation.
func ToHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.status, m.msg).SetInternal(err)
		}
	}
	return nil
}

// asHTTPError returns the mapped error, or err unchanged so the global error
// handler logs it as an internal failure.
func asHTTPError(err error) error {
	if he := ToHTTPError(err); he != nil {
		return he
	}
	return err
}
