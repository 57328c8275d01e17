// Package entity contains the core business objects of the project.
package entity

import "slices"

// Role represents the type of role a user can have in the system.
type Role string

const (
	// RoleUser indicates a regular user role.
	RoleUser Role = "User"
	// RoleAdmin indicates an administrator role.
	RoleAdmin Role = "Admin"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// Roles is a slice of Role in assignment order.
type Roles []Role

// Contains checks if the roles slice contains a specific role.
func (rs Roles) Contains(role Role) bool {
	return slices.Contains(rs, role)
}

// Primary returns the first assigned role. Access tokens carry exactly one
// role claim, and it is always the first one; additional roles are ignored.
// The second return value is false when the user has no roles at all.
func (rs Roles) Primary() (Role, bool) {
	if len(rs) == 0 {
		return "", false
	}

	return rs[0], true
}

// ToStrings converts Roles to []string.
func (rs Roles) ToStrings() []string {
	result := make([]string, len(rs))
	for i, r := range rs {
		result[i] = r.String()
	}

	return result
}

// RolesFromStrings converts []string to Roles.
func RolesFromStrings(ss []string) Roles {
	result := make(Roles, 0, len(ss))
	for _, s := range ss {
		result = append(result, Role(s))
	}

	return result
}
