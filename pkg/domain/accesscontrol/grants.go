package accesscontrol

import (
	"context"
	"errors"
	"fmt"

	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/search"
)

// ErrGrantNotFound indicates the principal has no account grant on record.
var ErrGrantNotFound = errors.New("account grant not found")

// GrantRepository looks up the account grant of a restricted principal.
type GrantRepository interface {
	// GetAuthorizedAccounts returns the accounts granted to the principal.
	// Returns ErrGrantNotFound when no grant exists.
	GetAuthorizedAccounts(ctx context.Context, principal string) ([]string, error)
}

// DeriveScope resolves the account scope for a request.
//
// Unrestricted callers get an open scope. Restricted callers get their grant
// as the scope; a missing grant resolves to an empty restricted scope (zero
// records, never the unrestricted set). Requesting accounts outside the
// grant is a forbidden condition, not a silent filter.
func DeriveScope(ctx context.Context, user *AuthenticatedUser, requestedAccounts []string, grants GrantRepository) (search.Scope, error) {
	if user.Unrestricted() {
		return search.Unrestricted(), nil
	}

	granted, err := grants.GetAuthorizedAccounts(ctx, user.Username)
	if err != nil {
		if !errors.Is(err, ErrGrantNotFound) {
			return search.Scope{}, fmt.Errorf("%w: account grant lookup: %v", shared.ErrDependency, err)
		}
		// A missing grant is an empty grant; requested accounts still
		// reconcile against it below, so any explicit account is forbidden.
		granted = nil
	}

	allowed := make(map[string]bool, len(granted))
	for _, a := range granted {
		allowed[a] = true
	}
	for _, requested := range requestedAccounts {
		if !allowed[requested] {
			return search.Scope{}, fmt.Errorf("%w: account %s is outside the caller's grant", shared.ErrForbidden, requested)
		}
	}

	user.AuthorizedAccounts = granted
	return search.Restricted(granted), nil
}
