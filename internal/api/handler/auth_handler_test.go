package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

const validRegistration = `{"email":"a@x.com","password":"Secret123!","role":"ROLE_CUSTOMER","name":"Ana","cpf":"123","phone":"555"}`

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.Principal, error) {
			if in.Email != "a@x.com" || in.Role != domain.RoleCustomer || in.Name != "Ana" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Principal{
				ID:           "p-1",
				Email:        in.Email,
				PasswordHash: "$2a$hash",
				Name:         in.Name,
				Roles:        []string{in.Role},
				CreatedAt:    time.Now(),
			}, nil
		},
	}

	rec := serve(t, NewAuthHandler(stub).Register, http.MethodPost, "/users/register", strings.NewReader(validRegistration))
	expectStatus(t, rec, http.StatusCreated)

	if strings.Contains(rec.Body.String(), "$2a$hash") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password data: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Fatalf("registration must not issue a token: %s", rec.Body.String())
	}

	var resp registerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.User.ID != "p-1" || len(resp.User.Roles) != 1 || resp.User.Roles[0] != domain.RoleCustomer {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
}

func TestAuthHandler_Register_ServiceErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrDuplicateEmail, http.StatusConflict},
		{domain.ErrDuplicateCPF, http.StatusConflict},
		{domain.ErrUnknownRole, http.StatusBadRequest},
		{domain.ErrIncompleteSignup, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		stub := &stubAuthService{
			registerFn: func(context.Context, ports.RegisterInput) (*domain.Principal, error) {
				return nil, tc.err
			},
		}
		rec := serve(t, NewAuthHandler(stub).Register, http.MethodPost, "/users/register", strings.NewReader(validRegistration))
		expectStatus(t, rec, tc.want)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.Principal, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub).Register

	expectStatus(t, serve(t, h, http.MethodPost, "/users/register", strings.NewReader("not-json")), http.StatusBadRequest)

	rec := serve(t, h, http.MethodPost, "/users/register", strings.NewReader(`{"email":"nope","password":"short"}`))
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "email must be a valid email") {
		t.Fatalf("expected field message, got %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		authenticateFn: func(_ context.Context, email, password string) (string, *domain.Principal, error) {
			if email != "a@x.com" || password != "Secret123!" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.Principal{Email: email}, nil
		},
	}

	rec := serve(t, NewAuthHandler(stub).Login, http.MethodPost, "/users/login",
		strings.NewReader(`{"email":"a@x.com","password":"Secret123!"}`))
	expectStatus(t, rec, http.StatusOK)

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "token123" || resp.TokenType != "Bearer" {
		t.Fatalf("unexpected token payload: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentialsAreGeneric(t *testing.T) {
	stub := &stubAuthService{
		authenticateFn: func(context.Context, string, string) (string, *domain.Principal, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}

	rec := serve(t, NewAuthHandler(stub).Login, http.MethodPost, "/users/login",
		strings.NewReader(`{"email":"ghost@x.com","password":"whatever"}`))
	expectStatus(t, rec, http.StatusUnauthorized)
	if !strings.Contains(rec.Body.String(), "invalid credentials") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	stub := &stubAuthService{
		authenticateFn: func(context.Context, string, string) (string, *domain.Principal, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}

	rec := serve(t, NewAuthHandler(stub).Login, http.MethodPost, "/users/login", strings.NewReader(`{"email":"a@x.com"}`))
	expectStatus(t, rec, http.StatusBadRequest)
}
