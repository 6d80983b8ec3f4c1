package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

var resetNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type resetFixture struct {
	store    *memStore
	notifier *stubNotifier
	auth     *AuthService
	reset    *PasswordResetService
	clock    *time.Time
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	store := newMemStore()
	notifier := &stubNotifier{}
	clock := resetNow
	f := &resetFixture{store: store, notifier: notifier, clock: &clock}
	f.auth = newAuthService(t, store)
	f.reset = NewPasswordResetService(store, store, newTestHasher(), notifier, zerolog.Nop(),
		10*time.Minute, "https://app.zoonosys.test/", WithResetClock(func() time.Time { return *f.clock }))

	if _, err := f.auth.Register(context.Background(), customerInput("a@x.com", "Secret123!")); err != nil {
		t.Fatalf("register: %v", err)
	}
	return f
}

func (f *resetFixture) principal(t *testing.T) *domain.Principal {
	t.Helper()
	p, err := f.store.FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("find principal: %v", err)
	}
	return p
}

func (f *resetFixture) request(t *testing.T) string {
	t.Helper()
	if err := f.reset.RequestReset(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	return f.notifier.last(t).Token
}

func TestPasswordReset_RequestIssuesTokenAndNotifies(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)

	n := f.notifier.last(t)
	if n.To != "a@x.com" || n.Username != "Ana" {
		t.Fatalf("unexpected notification recipient: %+v", n)
	}
	if !strings.HasPrefix(n.ResetLink, "https://app.zoonosys.test/reset-password?token=") {
		t.Fatalf("unexpected reset link: %s", n.ResetLink)
	}
	if len(value) < 40 {
		t.Fatalf("token value too short to be unguessable: %q", value)
	}

	stored, err := f.store.FindByHash(context.Background(), HashResetToken(value))
	if err != nil {
		t.Fatalf("expected token stored under its hash: %v", err)
	}
	if !stored.ExpiresAt.Equal(resetNow.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", stored.ExpiresAt)
	}
	if _, err := f.store.FindByHash(context.Background(), value); err == nil {
		t.Fatalf("plaintext token value must not be a lookup key")
	}
}

func TestPasswordReset_UnknownEmailHasNoSideEffect(t *testing.T) {
	f := newResetFixture(t)
	writes := f.store.writeCount()

	if err := f.reset.RequestReset(context.Background(), "nobody@x.com"); err != nil {
		t.Fatalf("expected generic success, got %v", err)
	}
	if f.store.writeCount() != writes {
		t.Fatalf("expected no store writes for unknown email")
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("expected no notification for unknown email")
	}
}

func TestPasswordReset_RepeatedRequestsKeepOnePendingToken(t *testing.T) {
	f := newResetFixture(t)
	first := f.request(t)
	second := f.request(t)

	if got := f.store.pendingFor(f.principal(t).ID); got != 1 {
		t.Fatalf("expected exactly one pending token, got %d", got)
	}
	if _, err := f.reset.ValidateToken(context.Background(), first); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected superseded token to be invalid, got %v", err)
	}
	if _, err := f.reset.ValidateToken(context.Background(), second); err != nil {
		t.Fatalf("expected latest token valid, got %v", err)
	}
}

func TestPasswordReset_ConcurrentRequestsKeepOnePendingToken(t *testing.T) {
	f := newResetFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.reset.RequestReset(context.Background(), "a@x.com")
		}()
	}
	wg.Wait()

	if got := f.store.pendingFor(f.principal(t).ID); got != 1 {
		t.Fatalf("expected exactly one pending token, got %d", got)
	}
}

func TestPasswordReset_NotificationFailureKeepsToken(t *testing.T) {
	f := newResetFixture(t)
	f.notifier.err = domain.ErrNotificationSendFailure

	if err := f.reset.RequestReset(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("expected send failure to be swallowed, got %v", err)
	}
	if got := f.store.pendingFor(f.principal(t).ID); got != 1 {
		t.Fatalf("expected the token to survive a failed send, got %d pending", got)
	}
}

func TestPasswordReset_ValidateToken(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)

	if _, err := f.reset.ValidateToken(context.Background(), value); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if _, err := f.reset.ValidateToken(context.Background(), "unknown"); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken for unknown value, got %v", err)
	}
	if _, err := f.reset.ValidateToken(context.Background(), ""); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken for empty value, got %v", err)
	}

	*f.clock = resetNow.Add(10*time.Minute - time.Second)
	if _, err := f.reset.ValidateToken(context.Background(), value); err != nil {
		t.Fatalf("expected token valid just before expiry, got %v", err)
	}
	*f.clock = resetNow.Add(10 * time.Minute)
	if _, err := f.reset.ValidateToken(context.Background(), value); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken at expiry, got %v", err)
	}
}

func TestPasswordReset_ConfirmMismatchNeverTouchesStore(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)
	before := f.principal(t).PasswordHash
	writes := f.store.writeCount()

	_, err := f.reset.ConfirmReset(context.Background(), value, "NewPass1!", "NewPass2!")
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if f.store.writeCount() != writes {
		t.Fatalf("expected no store writes on mismatch")
	}
	if f.principal(t).PasswordHash != before {
		t.Fatalf("password changed on mismatch")
	}
	if _, err := f.reset.ValidateToken(context.Background(), value); err != nil {
		t.Fatalf("expected token to remain unused, got %v", err)
	}
}

func TestPasswordReset_ConfirmMismatchCheckedBeforeToken(t *testing.T) {
	f := newResetFixture(t)

	_, err := f.reset.ConfirmReset(context.Background(), "garbage", "NewPass1!", "NewPass2!")
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestPasswordReset_ConfirmRejectsSamePassword(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)

	_, err := f.reset.ConfirmReset(context.Background(), value, "Secret123!", "Secret123!")
	if !errors.Is(err, domain.ErrSamePassword) {
		t.Fatalf("expected ErrSamePassword, got %v", err)
	}
	if _, err := f.reset.ValidateToken(context.Background(), value); err != nil {
		t.Fatalf("expected token to remain usable, got %v", err)
	}
}

func TestPasswordReset_ConfirmExpiredToken(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)
	*f.clock = resetNow.Add(11 * time.Minute)

	_, err := f.reset.ConfirmReset(context.Background(), value, "NewPass1!", "NewPass1!")
	if !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestPasswordReset_ConfirmIsSingleUse(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)

	if _, err := f.reset.ConfirmReset(context.Background(), value, "NewPass1!", "NewPass1!"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	_, err := f.reset.ConfirmReset(context.Background(), value, "Another1!", "Another1!")
	if !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken on replay, got %v", err)
	}
}

func TestPasswordReset_ConcurrentConfirmExactlyOneWins(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pw := fmt.Sprintf("NewPass%d!", i)
			_, err := f.reset.ConfirmReset(context.Background(), value, pw, pw)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInvalidOrExpiredToken):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", succeeded.Load())
	}
	if rejected.Load() != attempts-1 {
		t.Fatalf("expected %d rejections, got %d", attempts-1, rejected.Load())
	}
}

func TestPasswordReset_PurgeStale(t *testing.T) {
	f := newResetFixture(t)
	value := f.request(t)
	if _, err := f.reset.ConfirmReset(context.Background(), value, "NewPass1!", "NewPass1!"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	n, err := f.reset.PurgeStale(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the used token to be purged, got %d", n)
	}
}

func TestScenario_RegisterLoginResetLogin(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	codec := newTestCodec(t)

	token, _, err := f.auth.Authenticate(ctx, "a@x.com", "Secret123!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(id.Roles) != 1 || id.Roles[0] != domain.RoleCustomer {
		t.Fatalf("expected roles [%s], got %v", domain.RoleCustomer, id.Roles)
	}

	value := f.request(t)
	if got := f.store.pendingFor(f.principal(t).ID); got != 1 {
		t.Fatalf("expected exactly one pending token, got %d", got)
	}

	if _, err := f.reset.ConfirmReset(ctx, value, "NewPass1!", "NewPass1!"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, _, err := f.auth.Authenticate(ctx, "a@x.com", "Secret123!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, _, err := f.auth.Authenticate(ctx, "a@x.com", "NewPass1!"); err != nil {
		t.Fatalf("expected new password accepted, got %v", err)
	}
	if got := f.store.pendingFor(f.principal(t).ID); got != 0 {
		t.Fatalf("expected no pending tokens after reset, got %d", got)
	}
}

func TestHashResetToken_IsStable(t *testing.T) {
	if HashResetToken("abc") != HashResetToken("abc") {
		t.Fatalf("expected deterministic hash")
	}
	if HashResetToken("abc") == HashResetToken("abd") {
		t.Fatalf("expected distinct hashes")
	}
	if len(HashResetToken("abc")) != 64 {
		t.Fatalf("expected hex sha-256")
	}
}
