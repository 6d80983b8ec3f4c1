package access

import (
	"net/http"
	"testing"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

var (
	customer = &domain.Identity{Email: "c@x.com", Roles: []string{domain.RoleCustomer}}
	admin    = &domain.Identity{Email: "a@x.com", Roles: []string{domain.RoleAdministrator}}
)

func TestDefaultMatrix_AdminRouteDistinguishesUnauthorizedAndForbidden(t *testing.T) {
	m := DefaultMatrix()

	if got := m.Evaluate(http.MethodGet, "/users", nil); got != Unauthorized {
		t.Fatalf("anonymous: expected Unauthorized, got %v", got)
	}
	if got := m.Evaluate(http.MethodGet, "/users", customer); got != Forbidden {
		t.Fatalf("customer: expected Forbidden, got %v", got)
	}
	if got := m.Evaluate(http.MethodGet, "/users", admin); got != Allow {
		t.Fatalf("admin: expected Allow, got %v", got)
	}
}

func TestDefaultMatrix_Table(t *testing.T) {
	m := DefaultMatrix()

	cases := []struct {
		method string
		path   string
		id     *domain.Identity
		want   Decision
	}{
		{http.MethodPost, "/users/login", nil, Allow},
		{http.MethodPost, "/users/register", nil, Allow},
		{http.MethodPost, "/auth/reset-password/request", nil, Allow},
		{http.MethodGet, "/auth/reset-password/validate?token=abc", nil, Allow},
		{http.MethodPost, "/auth/reset-password/confirm", nil, Allow},
		{http.MethodOptions, "/users", nil, Allow},
		{http.MethodOptions, "/", nil, Allow},
		{http.MethodGet, "/swagger/index.html", nil, Allow},
		{http.MethodGet, "/health", nil, Allow},
		{http.MethodGet, "/health/ready", nil, Allow},
		{http.MethodGet, "/metrics", nil, Allow},

		{http.MethodGet, "/users/test", nil, Unauthorized},
		{http.MethodGet, "/users/test", customer, Allow},
		{http.MethodGet, "/users/test", admin, Allow},
		{http.MethodGet, "/users/test/customer", admin, Forbidden},
		{http.MethodGet, "/users/test/customer", customer, Allow},
		{http.MethodGet, "/users/test/administrator", customer, Forbidden},
		{http.MethodGet, "/users/test/administrator", admin, Allow},
		{http.MethodGet, "/users/me", nil, Unauthorized},
		{http.MethodGet, "/users/me", customer, Allow},
		{http.MethodGet, "/users/42", customer, Forbidden},
		{http.MethodGet, "/users/42", admin, Allow},

		{http.MethodGet, "/animals/adocao", nil, Allow},
		{http.MethodGet, "/animals/7", nil, Allow},
		{http.MethodGet, "/animals/search", nil, Unauthorized},
		{http.MethodGet, "/animals/search", customer, Forbidden},
		{http.MethodGet, "/animals", customer, Forbidden},
		{http.MethodPost, "/animals/register", customer, Forbidden},
		{http.MethodPut, "/animals/7", nil, Unauthorized},
		{http.MethodDelete, "/animals/7", admin, Allow},

		{http.MethodGet, "/news", nil, Allow},
		{http.MethodGet, "/news/3", nil, Allow},
		{http.MethodPut, "/news/3", customer, Forbidden},
		{http.MethodDelete, "/campaigns/3", nil, Unauthorized},
		{http.MethodGet, "/campaigns", nil, Allow},
		{http.MethodPost, "/campaigns/register", admin, Allow},

		{http.MethodGet, "/something/else", nil, Unauthorized},
		{http.MethodGet, "/something/else", customer, Allow},
		{http.MethodGet, "/news/3/comments", nil, Unauthorized},
	}

	for _, tc := range cases {
		if got := m.Evaluate(tc.method, tc.path, tc.id); got != tc.want {
			t.Errorf("%s %s (%v): got %v, want %v", tc.method, tc.path, identityLabel(tc.id), got, tc.want)
		}
	}
}

func TestMatrix_FirstMatchWins(t *testing.T) {
	m := MustNewMatrix([]Rule{
		{Method: http.MethodGet, Pattern: "/items/special", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/items/{id}", Requirement: Role(domain.RoleAdministrator)},
	})

	if got := m.Evaluate(http.MethodGet, "/items/special", nil); got != Allow {
		t.Fatalf("expected literal rule to win, got %v", got)
	}
	if got := m.Evaluate(http.MethodGet, "/items/9", nil); got != Unauthorized {
		t.Fatalf("expected parameter rule, got %v", got)
	}

	r, ok := m.Match(http.MethodGet, "/items/9/")
	if !ok || r.Pattern != "/items/{id}" {
		t.Fatalf("expected trailing slash to be ignored, got %+v %v", r, ok)
	}
}

func TestMatrix_PublicIgnoresPresentedIdentity(t *testing.T) {
	m := MustNewMatrix([]Rule{{Pattern: "/open", Requirement: Public()}})

	if got := m.Evaluate(http.MethodPost, "/open", customer); got != Allow {
		t.Fatalf("expected Allow, got %v", got)
	}
}

func TestMatrix_TrailingWildcard(t *testing.T) {
	m := MustNewMatrix([]Rule{{Pattern: "/api/admin/**", Requirement: Role(domain.RoleAdministrator)}})

	for _, path := range []string{"/api/admin", "/api/admin/users", "/api/admin/users/1/roles"} {
		if _, ok := m.Match(http.MethodGet, path); !ok {
			t.Fatalf("expected %s to match", path)
		}
	}
	if _, ok := m.Match(http.MethodGet, "/api/administrator"); ok {
		t.Fatalf("wildcard must not match a longer sibling segment")
	}
}

func TestMatrix_ParameterMatchesOneSegment(t *testing.T) {
	m := MustNewMatrix([]Rule{{Method: http.MethodGet, Pattern: "/news/{id}", Requirement: Public()}})

	if _, ok := m.Match(http.MethodGet, "/news/1"); !ok {
		t.Fatalf("expected single segment match")
	}
	if _, ok := m.Match(http.MethodGet, "/news/1/2"); ok {
		t.Fatalf("parameter must not span segments")
	}
	if _, ok := m.Match(http.MethodPost, "/news/1"); ok {
		t.Fatalf("method must be respected")
	}
}

func TestMatrix_EmptyTableRequiresAuthentication(t *testing.T) {
	m := MustNewMatrix(nil)

	if got := m.Evaluate(http.MethodGet, "/", nil); got != Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", got)
	}
	if got := m.Evaluate(http.MethodGet, "/", customer); got != Allow {
		t.Fatalf("expected Allow, got %v", got)
	}
}

func TestNewMatrix_RejectsBadPatterns(t *testing.T) {
	for _, p := range []string{"users", "/users/*/x", "/a/**/b"} {
		if _, err := NewMatrix([]Rule{{Pattern: p, Requirement: Public()}}); err == nil {
			t.Fatalf("expected error for pattern %q", p)
		}
	}
}

func TestDecision_String(t *testing.T) {
	if Allow.String() != "allow" || Unauthorized.String() != "unauthorized" || Forbidden.String() != "forbidden" {
		t.Fatalf("unexpected decision labels")
	}
	if Role(domain.RoleCustomer).String() != "role:"+domain.RoleCustomer {
		t.Fatalf("unexpected requirement label")
	}
}

func identityLabel(id *domain.Identity) string {
	if id == nil {
		return "anonymous"
	}
	return id.Roles[0]
}
