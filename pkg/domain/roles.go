package domain

import "fmt"

// Role is the single closed role enumeration. The legacy backend carried two
// overlapping role sets; every call site here uses this one.
type Role string

const (
	RoleUser          Role = "user"
	RoleBusinessOwner Role = "business_owner"
	RoleAdmin         Role = "admin"
	RoleSuperAdmin    Role = "super_admin"
)

var validRoles = map[Role]struct{}{
	RoleUser:          {},
	RoleBusinessOwner: {},
	RoleAdmin:         {},
	RoleSuperAdmin:    {},
}

// ParseRole validates and returns a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := validRoles[r]; !ok {
		return "", fmt.Errorf("unknown role: %s", s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// IsAdmin reports whether the role carries admin privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
