// Package app contains the application services orchestrating domain logic.
package app

import (
	"context"

	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
)

// AuthService resolves identities and account scopes.
type AuthService struct {
	grants accesscontrol.GrantRepository
	claims accesscontrol.ClaimNames
	log    *logger.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(grants accesscontrol.GrantRepository, claims accesscontrol.ClaimNames, log *logger.Logger) *AuthService {
	return &AuthService{
		grants: grants,
		claims: claims,
		log:    log.With("service", "auth"),
	}
}

// Resolve turns raw token claims into a strict authenticated user.
func (s *AuthService) Resolve(claims map[string]any) (*accesscontrol.AuthenticatedUser, error) {
	user, err := accesscontrol.ResolveClaims(claims, s.claims)
	if err != nil {
		s.log.Warn("identity resolution rejected", "error", err)
		return nil, err
	}
	return user, nil
}

// Authorize evaluates a declarative access rule against the user.
func (s *AuthService) Authorize(user *accesscontrol.AuthenticatedUser, rule accesscontrol.AccessRule, rctx accesscontrol.RuleContext) error {
	if err := accesscontrol.Validate(user, rule, rctx); err != nil {
		s.log.Warn("access rule rejected",
			"user", safeUsername(user),
			"error", err,
		)
		return err
	}
	return nil
}

// DeriveScope resolves the account scope for the request, reconciling any
// explicitly requested accounts against the caller's grant.
func (s *AuthService) DeriveScope(ctx context.Context, user *accesscontrol.AuthenticatedUser, requestedAccounts []string) (search.Scope, error) {
	scope, err := accesscontrol.DeriveScope(ctx, user, requestedAccounts, s.grants)
	if err != nil {
		s.log.Warn("scope derivation rejected",
			"user", safeUsername(user),
			"requested_accounts", len(requestedAccounts),
			"error", err,
		)
		return search.Scope{}, err
	}
	return scope, nil
}

func safeUsername(user *accesscontrol.AuthenticatedUser) string {
	if user == nil {
		return ""
	}
	return user.Username
}
