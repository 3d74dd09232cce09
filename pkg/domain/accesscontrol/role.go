// Package accesscontrol provides identity resolution and account-scoped
// authorization for the findings console.
package accesscontrol

import "slices"

// Role represents a caller role group.
type Role string

const (
	// RoleAdmin has unrestricted access to every account.
	RoleAdmin Role = "Admin"

	// RoleSecurityOps has unrestricted read and action access.
	RoleSecurityOps Role = "SecurityOps"

	// RoleAccountOwner is restricted to an explicit account grant.
	RoleAccountOwner Role = "AccountOwner"
)

// AllRoles returns all known roles.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleSecurityOps, RoleAccountOwner}
}

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	return slices.Contains(AllRoles(), r)
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Unrestricted reports whether the role sees every account without a grant.
func (r Role) Unrestricted() bool {
	return r == RoleAdmin || r == RoleSecurityOps
}
