package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn     func(ctx context.Context, in ports.RegisterInput) (*domain.Principal, error)
	authenticateFn func(ctx context.Context, email, password string) (string, *domain.Principal, error)
	getFn          func(ctx context.Context, id string) (*domain.Principal, error)
	listFn         func(ctx context.Context) ([]*domain.Principal, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Principal, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Authenticate(ctx context.Context, email, password string) (string, *domain.Principal, error) {
	return s.authenticateFn(ctx, email, password)
}

func (s *stubAuthService) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	return s.getFn(ctx, id)
}

func (s *stubAuthService) ListPrincipals(ctx context.Context) ([]*domain.Principal, error) {
	return s.listFn(ctx)
}

type stubResetService struct {
	requestFn  func(ctx context.Context, email string) error
	validateFn func(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	confirmFn  func(ctx context.Context, token, newPassword, confirmation string) (*domain.Principal, error)
}

func (s *stubResetService) RequestReset(ctx context.Context, email string) error {
	return s.requestFn(ctx, email)
}

func (s *stubResetService) ValidateToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	return s.validateFn(ctx, token)
}

func (s *stubResetService) ConfirmReset(ctx context.Context, token, newPassword, confirmation string) (*domain.Principal, error) {
	return s.confirmFn(ctx, token, newPassword, confirmation)
}

func (s *stubResetService) PurgeStale(context.Context) (int64, error) {
	return 0, nil
}

// serve runs h against a request and renders any returned error with echo's
// default error handler, the way the router would.
func serve(t *testing.T, h echo.HandlerFunc, method, target string, body io.Reader, prepare ...func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for _, p := range prepare {
		p(c)
	}

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d (%s)", want, rec.Code, rec.Body.String())
	}
}

