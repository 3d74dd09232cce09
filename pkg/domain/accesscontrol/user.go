package accesscontrol

import "slices"

// AuthenticatedUser is the strict identity value every request is resolved
// into before any store access.
type AuthenticatedUser struct {
	Username string
	Email    string
	Groups   []Role

	// AuthorizedAccounts is nil for unrestricted callers. When present it is
	// non-empty by construction; a caller whose grant resolves empty must see
	// zero records, which Scope encodes as restricted-with-no-accounts.
	AuthorizedAccounts []string
}

// HasGroup reports whether the user carries the given role.
func (u *AuthenticatedUser) HasGroup(role Role) bool {
	return slices.Contains(u.Groups, role)
}

// HasAnyGroup reports whether the user carries at least one of the roles.
func (u *AuthenticatedUser) HasAnyGroup(roles []Role) bool {
	for _, r := range roles {
		if u.HasGroup(r) {
			return true
		}
	}
	return false
}

// Unrestricted reports whether any of the user's roles grants unrestricted
// account access.
func (u *AuthenticatedUser) Unrestricted() bool {
	for _, r := range u.Groups {
		if r.Unrestricted() {
			return true
		}
	}
	return false
}
