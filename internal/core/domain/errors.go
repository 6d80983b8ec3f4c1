package domain

import "errors"

// Credential and registration errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIncompleteSignup   = errors.New("email and password are required")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateCPF       = errors.New("cpf already registered")
	ErrUnknownRole        = errors.New("unknown role")
	ErrPrincipalNotFound  = errors.New("principal not found")
)

// Bearer token errors. The HTTP layer folds them into ErrUnauthorized but
// callers of the codec can tell them apart.
var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
)

// Authorization outcomes.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("access forbidden")
)

// Password reset errors.
var (
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrInvalidOrExpiredToken = errors.New("reset token invalid, expired or already used")
	ErrSamePassword          = errors.New("new password must differ from the current one")
	ErrResetTokenNotFound    = errors.New("reset token not found")

	// ErrNotificationSendFailure is logged and never returned to callers of
	// the reset flow.
	ErrNotificationSendFailure = errors.New("notification send failed")
)
