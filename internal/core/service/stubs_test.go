package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/security"
)

// memStore is an in-memory credential and reset token store. It serialises
// every operation behind one mutex, which gives Redeem and ReplacePending the
// same atomicity the real stores provide.
type memStore struct {
	mu         sync.Mutex
	seq        int
	principals map[string]*domain.Principal
	roles      map[string]*domain.Role
	tokens     map[string]*domain.PasswordResetToken

	writes int
	err    error
}

func newMemStore() *memStore {
	s := &memStore{
		principals: make(map[string]*domain.Principal),
		roles:      make(map[string]*domain.Role),
		tokens:     make(map[string]*domain.PasswordResetToken),
	}
	for _, name := range domain.SeedRoles {
		s.roles[name] = &domain.Role{ID: name, Name: name}
	}
	return s
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	c := *p
	c.Roles = append([]string(nil), p.Roles...)
	return &c
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.principals {
		if p.Email == email {
			return clonePrincipal(p), nil
		}
	}
	return nil, domain.ErrPrincipalNotFound
}

func (s *memStore) FindByID(_ context.Context, id string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	return clonePrincipal(p), nil
}

func (s *memStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for _, p := range s.principals {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Create(_ context.Context, p *domain.Principal) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.principals {
		if existing.Email == p.Email {
			return nil, domain.ErrDuplicateEmail
		}
		if p.CPF != "" && existing.CPF == p.CPF {
			return nil, domain.ErrDuplicateCPF
		}
	}
	s.seq++
	c := clonePrincipal(p)
	c.ID = "p-" + strconv.Itoa(s.seq)
	s.principals[c.ID] = c
	s.writes++
	return clonePrincipal(c), nil
}

func (s *memStore) List(_ context.Context) ([]*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Principal, 0, len(s.principals))
	for _, p := range s.principals {
		out = append(out, clonePrincipal(p))
	}
	return out, nil
}

func (s *memStore) FindByName(_ context.Context, name string) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[name]
	if !ok {
		return nil, domain.ErrUnknownRole
	}
	c := *r
	return &c, nil
}

func (s *memStore) Ensure(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.roles[name]; !ok {
		s.roles[name] = &domain.Role{ID: name, Name: name}
	}
	return nil
}

func (s *memStore) ReplacePending(_ context.Context, t *domain.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, existing := range s.tokens {
		if existing.PrincipalID == t.PrincipalID && !existing.Used {
			delete(s.tokens, hash)
		}
	}
	s.seq++
	c := *t
	c.ID = "t-" + strconv.Itoa(s.seq)
	s.tokens[c.TokenHash] = &c
	s.writes++
	return nil
}

func (s *memStore) FindByHash(_ context.Context, hash string) (*domain.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok {
		return nil, domain.ErrResetTokenNotFound
	}
	c := *t
	return &c, nil
}

func (s *memStore) Redeem(_ context.Context, hash string, now time.Time, passwordHash string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || !t.IsValid(now) {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	p, ok := s.principals[t.PrincipalID]
	if !ok {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	t.Used = true
	t.UsedAt = &now
	p.PasswordHash = passwordHash
	p.UpdatedAt = now
	for h, other := range s.tokens {
		if other.PrincipalID == p.ID && !other.Used {
			delete(s.tokens, h)
		}
	}
	s.writes++
	return clonePrincipal(p), nil
}

func (s *memStore) PurgeStale(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, t := range s.tokens {
		if !t.IsValid(now) {
			delete(s.tokens, h)
			n++
		}
	}
	return n, nil
}

// pendingFor counts unused tokens owned by principalID.
func (s *memStore) pendingFor(principalID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.PrincipalID == principalID && !t.Used {
			n++
		}
	}
	return n
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []ports.ResetNotification
	err  error
}

func (n *stubNotifier) Send(_ context.Context, msg ports.ResetNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *stubNotifier) last(t *testing.T) ports.ResetNotification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatalf("expected a notification to be sent")
	}
	return n.sent[len(n.sent)-1]
}

var errStoreDown = errors.New("store unavailable")

func newTestHasher() *security.BcryptHasher {
	return security.NewBcryptHasher(bcrypt.MinCost)
}

func newTestCodec(t *testing.T) *security.TokenCodec {
	t.Helper()
	c, err := security.NewTokenCodec("test-secret", "zoonosys", time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return c
}
