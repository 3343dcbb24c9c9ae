package models

import (
	"strings"

	dErrors "devconnect/pkg/domain-errors"
)

// Role is the closed set of developer specialisations.
type Role string

const (
	RoleFrontend  Role = "Frontend"
	RoleBackend   Role = "Backend"
	RoleFullStack Role = "Full-Stack"
)

// Roles lists every valid role in display order.
func Roles() []Role {
	return []Role{RoleFrontend, RoleBackend, RoleFullStack}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleFrontend, RoleBackend, RoleFullStack:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts the exact role names, ignoring case and surrounding
// whitespace, and returns the canonical spelling.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role is required")
	}
	for _, r := range Roles() {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "role must be one of Frontend, Backend, Full-Stack")
}
