package accesscontrol

import (
	"fmt"

	"github.com/remedyops/findings-api/pkg/domain/shared"
)

// RuleContext carries request details a rule validator may inspect, e.g. a
// resource subtype discriminator query parameter.
type RuleContext map[string]string

// AccessRule is a declarative gate evaluated before any store access.
type AccessRule struct {
	// RequiredGroups lists the roles allowed through; the user must carry at
	// least one.
	RequiredGroups []Role

	// Validator, when set, runs after the group check and may reject with a
	// more specific forbidden condition.
	Validator func(user *AuthenticatedUser, rctx RuleContext) error
}

// Validate evaluates the rule against the user. It fails with a forbidden
// error when the user's roles intersect none of the required groups, or when
// the rule's validator rejects.
func Validate(user *AuthenticatedUser, rule AccessRule, rctx RuleContext) error {
	if user == nil {
		return fmt.Errorf("%w: no authenticated user", shared.ErrUnauthorized)
	}
	if len(rule.RequiredGroups) > 0 && !user.HasAnyGroup(rule.RequiredGroups) {
		return fmt.Errorf("%w: requires one of %v", shared.ErrForbidden, rule.RequiredGroups)
	}
	if rule.Validator != nil {
		if err := rule.Validator(user, rctx); err != nil {
			return err
		}
	}
	return nil
}
