package domain

import (
	"slices"
	"time"
)

// Role names. The set is fixed; roles are seeded at startup and never created
// on demand.
const (
	RoleCustomer      = "ROLE_CUSTOMER"
	RoleAdministrator = "ROLE_ADMINISTRATOR"
)

// SeedRoles lists every role that must exist in the credential store.
var SeedRoles = []string{RoleCustomer, RoleAdministrator}

// Role is a named authorization level.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Principal is a registered account able to authenticate.
type Principal struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	CPF            string    `json:"cpf"`
	Phone          string    `json:"phone"`
	Sex            string    `json:"sex,omitempty"`
	SecondaryPhone string    `json:"secondary_phone,omitempty"`
	SecondaryEmail string    `json:"secondary_email,omitempty"`
	Address        string    `json:"address,omitempty"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasRole reports whether the principal holds the named role.
func (p *Principal) HasRole(name string) bool {
	return slices.Contains(p.Roles, name)
}

// Identity is the authenticated view of a principal carried by a request.
// It is built from a verified bearer token and never outlives the request.
type Identity struct {
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// HasRole reports whether the identity holds the named role.
func (i Identity) HasRole(name string) bool {
	return slices.Contains(i.Roles, name)
}
