package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	principals ports.PrincipalRepository
	roles      ports.RoleRepository
	hasher     ports.PasswordHasher
	codec      ports.TokenCodec
	logger     zerolog.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	principals ports.PrincipalRepository,
	roles ports.RoleRepository,
	hasher ports.PasswordHasher,
	codec ports.TokenCodec,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		principals: principals,
		roles:      roles,
		hasher:     hasher,
		codec:      codec,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a principal holding exactly the requested role. No token
// is issued; the caller has to log in afterwards.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Principal, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrIncompleteSignup
	}

	exists, err := s.principals.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}

	role, err := s.roles.FindByName(ctx, in.Role)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRole) {
			return nil, domain.ErrUnknownRole
		}
		return nil, fmt.Errorf("find role: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.principals.Create(ctx, &domain.Principal{
		Email:          email,
		PasswordHash:   hash,
		Name:           in.Name,
		CPF:            in.CPF,
		Phone:          in.Phone,
		Sex:            in.Sex,
		SecondaryPhone: in.SecondaryPhone,
		SecondaryEmail: in.SecondaryEmail,
		Address:        in.Address,
		Roles:          []string{role.Name},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		// unique indexes catch racing registrations and reused CPFs
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateCPF) {
			return nil, err
		}
		return nil, fmt.Errorf("create principal: %w", err)
	}

	s.logger.Info().Str("principal_id", created.ID).Str("role", role.Name).Msg("principal registered")
	return created, nil
}

// Authenticate verifies the credentials and returns a signed bearer token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (string, *domain.Principal, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	p, err := s.principals.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			// keep timing in line with the wrong-password path
			s.hasher.Matches(password, s.fallbackHash())
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find principal: %w", err)
	}

	if !s.hasher.Matches(password, p.PasswordHash) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(p.Email, p.Roles)
	if err != nil {
		return "", nil, err
	}

	s.logger.Debug().Str("principal_id", p.ID).Msg("principal authenticated")
	return token, p, nil
}

func (s *AuthService) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	return s.principals.FindByID(ctx, id)
}

func (s *AuthService) ListPrincipals(ctx context.Context) ([]*domain.Principal, error) {
	return s.principals.List(ctx)
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("zoonosys-unknown-principal")
		if err != nil {
			s.logger.Warn().Err(err).Msg("could not prepare fallback hash")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
