package access

import (
	"net/http"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// DefaultRules is the route policy of the API. Literal paths are listed
// before parameterised siblings so that /users/test is never read as
// /users/{id}.
func DefaultRules() []Rule {
	admin := Role(domain.RoleAdministrator)

	return []Rule{
		{Method: http.MethodOptions, Pattern: "/**", Requirement: Public()},

		// account and reset flows
		{Method: http.MethodPost, Pattern: "/users/login", Requirement: Public()},
		{Method: http.MethodPost, Pattern: "/users/register", Requirement: Public()},
		{Method: http.MethodPost, Pattern: "/auth/reset-password/request", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/auth/reset-password/validate", Requirement: Public()},
		{Method: http.MethodPost, Pattern: "/auth/reset-password/confirm", Requirement: Public()},

		// docs and operations
		{Method: http.MethodGet, Pattern: "/swagger/**", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/docs/**", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/v3/api-docs/**", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/health/**", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/metrics", Requirement: Public()},

		// users
		{Pattern: "/users/test/customer", Requirement: Role(domain.RoleCustomer)},
		{Method: http.MethodGet, Pattern: "/users/test/administrator", Requirement: admin},
		{Pattern: "/users/test", Requirement: Authenticated()},
		{Method: http.MethodGet, Pattern: "/users/me", Requirement: Authenticated()},
		{Method: http.MethodGet, Pattern: "/users", Requirement: admin},
		{Method: http.MethodGet, Pattern: "/users/{id}", Requirement: admin},

		// animals
		{Method: http.MethodGet, Pattern: "/animals/adocao", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/animals/search", Requirement: admin},
		{Method: http.MethodGet, Pattern: "/animals", Requirement: admin},
		{Method: http.MethodGet, Pattern: "/animals/{id}", Requirement: Public()},
		{Method: http.MethodPost, Pattern: "/animals/register", Requirement: admin},
		{Method: http.MethodPut, Pattern: "/animals/{id}", Requirement: admin},
		{Method: http.MethodDelete, Pattern: "/animals/{id}", Requirement: admin},

		// news
		{Method: http.MethodGet, Pattern: "/news", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/news/{id}", Requirement: Public()},
		{Method: http.MethodPost, Pattern: "/news/register", Requirement: admin},
		{Method: http.MethodPut, Pattern: "/news/{id}", Requirement: admin},
		{Method: http.MethodDelete, Pattern: "/news/{id}", Requirement: admin},

		// campaigns
		{Method: http.MethodGet, Pattern: "/campaigns", Requirement: Public()},
		{Method: http.MethodGet, Pattern: "/campaigns/{id}", Requirement: Public()},
		{Method: http.MethodPost, Pattern: "/campaigns/register", Requirement: admin},
		{Method: http.MethodPut, Pattern: "/campaigns/{id}", Requirement: admin},
		{Method: http.MethodDelete, Pattern: "/campaigns/{id}", Requirement: admin},
	}
}

// DefaultMatrix compiles DefaultRules.
func DefaultMatrix() *Matrix {
	return MustNewMatrix(DefaultRules())
}
