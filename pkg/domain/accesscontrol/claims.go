package accesscontrol

import (
	"fmt"

	"github.com/remedyops/findings-api/pkg/domain/shared"
)

// ClaimNames configures which token claims carry identity.
type ClaimNames struct {
	Groups    string
	Principal string
	Email     string
}

// DefaultClaimNames returns the claim names used by the default identity
// provider integration.
func DefaultClaimNames() ClaimNames {
	return ClaimNames{
		Groups:    "custom:groups",
		Principal: "username",
		Email:     "email",
	}
}

// ResolveClaims turns a raw claims map into a strict AuthenticatedUser.
//
// The group claim may legally arrive as a single string or a list of
// strings; both normalize to a role list here rather than being branched on
// downstream. Missing or malformed mandatory claims fail with an
// unauthorized error before any store access.
func ResolveClaims(claims map[string]any, names ClaimNames) (*AuthenticatedUser, error) {
	if claims == nil {
		return nil, fmt.Errorf("%w: unreadable identity claims", shared.ErrUnauthorized)
	}

	principal, ok := claims[names.Principal].(string)
	if !ok || principal == "" {
		return nil, fmt.Errorf("%w: unreadable identity claims: missing principal claim %q", shared.ErrUnauthorized, names.Principal)
	}

	groups, err := normalizeGroups(claims[names.Groups])
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable identity claims: %v", shared.ErrUnauthorized, err)
	}

	email, _ := claims[names.Email].(string)

	return &AuthenticatedUser{
		Username: principal,
		Email:    email,
		Groups:   groups,
	}, nil
}

// normalizeGroups accepts the string-or-list shapes the group claim arrives
// in and produces a role list.
func normalizeGroups(raw any) ([]Role, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("empty group claim")
		}
		return []Role{Role(v)}, nil
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty group claim")
		}
		roles := make([]Role, 0, len(v))
		for _, g := range v {
			roles = append(roles, Role(g))
		}
		return roles, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty group claim")
		}
		roles := make([]Role, 0, len(v))
		for _, g := range v {
			s, ok := g.(string)
			if !ok {
				return nil, fmt.Errorf("group claim entry is not a string")
			}
			roles = append(roles, Role(s))
		}
		return roles, nil
	case nil:
		return nil, fmt.Errorf("missing group claim")
	default:
		return nil, fmt.Errorf("group claim has unsupported type %T", raw)
	}
}
