package app

import (
	"fmt"

	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/shared"
)

// Rule context keys the handlers populate.
const (
	RuleContextFindingType = "findingType"
)

// ReadFindingsRule gates finding searches and exports. Every role may read;
// account owners are narrowed to their grant by scope derivation, not here.
func ReadFindingsRule() accesscontrol.AccessRule {
	return accesscontrol.AccessRule{
		RequiredGroups: []accesscontrol.Role{
			accesscontrol.RoleAdmin,
			accesscontrol.RoleSecurityOps,
			accesscontrol.RoleAccountOwner,
		},
	}
}

// WriteFindingsRule gates ingest and delete. Only operator roles may rewrite
// the record set.
func WriteFindingsRule() accesscontrol.AccessRule {
	return accesscontrol.AccessRule{
		RequiredGroups: []accesscontrol.Role{
			accesscontrol.RoleAdmin,
			accesscontrol.RoleSecurityOps,
		},
	}
}

// ActionRule gates bulk actions. Suppression is open to account owners on
// their own findings; triggering remediation executions is operator-only.
func ActionRule(action finding.ActionType) accesscontrol.AccessRule {
	if action.IsRemediation() {
		return accesscontrol.AccessRule{
			RequiredGroups: []accesscontrol.Role{
				accesscontrol.RoleAdmin,
				accesscontrol.RoleSecurityOps,
			},
		}
	}
	return accesscontrol.AccessRule{
		RequiredGroups: []accesscontrol.Role{
			accesscontrol.RoleAdmin,
			accesscontrol.RoleSecurityOps,
			accesscontrol.RoleAccountOwner,
		},
	}
}

// ReadRemediationsRule gates remediation history searches. Account owners
// must name the finding type they are interested in; only operator roles may
// page through the whole history unpartitioned.
func ReadRemediationsRule() accesscontrol.AccessRule {
	return accesscontrol.AccessRule{
		RequiredGroups: []accesscontrol.Role{
			accesscontrol.RoleAdmin,
			accesscontrol.RoleSecurityOps,
			accesscontrol.RoleAccountOwner,
		},
		Validator: func(user *accesscontrol.AuthenticatedUser, rctx accesscontrol.RuleContext) error {
			if user.Unrestricted() {
				return nil
			}
			if rctx[RuleContextFindingType] == "" {
				return fmt.Errorf("%w: remediation history requires an explicit findingType for this role", shared.ErrForbidden)
			}
			return nil
		},
	}
}
