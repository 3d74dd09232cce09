package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyops/findings-api/pkg/domain/shared"
)

func TestResolveClaims(t *testing.T) {
	names := DefaultClaimNames()

	t.Run("groups as list", func(t *testing.T) {
		user, err := ResolveClaims(map[string]any{
			"username":      "alice",
			"email":         "alice@example.com",
			"custom:groups": []any{"Admin", "AccountOwner"},
		}, names)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, []Role{RoleAdmin, RoleAccountOwner}, user.Groups)
	})

	t.Run("groups as single string", func(t *testing.T) {
		user, err := ResolveClaims(map[string]any{
			"username":      "bob",
			"custom:groups": "SecurityOps",
		}, names)
		require.NoError(t, err)
		assert.Equal(t, []Role{RoleSecurityOps}, user.Groups)
	})

	t.Run("missing principal is unauthorized", func(t *testing.T) {
		_, err := ResolveClaims(map[string]any{
			"custom:groups": "Admin",
		}, names)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("missing groups is unauthorized", func(t *testing.T) {
		_, err := ResolveClaims(map[string]any{
			"username": "carol",
		}, names)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("non-string group entry is unauthorized", func(t *testing.T) {
		_, err := ResolveClaims(map[string]any{
			"username":      "carol",
			"custom:groups": []any{"Admin", 42},
		}, names)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("nil claims are unauthorized", func(t *testing.T) {
		_, err := ResolveClaims(nil, names)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

func TestUnrestricted(t *testing.T) {
	admin := &AuthenticatedUser{Groups: []Role{RoleAdmin}}
	ops := &AuthenticatedUser{Groups: []Role{RoleSecurityOps}}
	owner := &AuthenticatedUser{Groups: []Role{RoleAccountOwner}}
	mixed := &AuthenticatedUser{Groups: []Role{RoleAccountOwner, RoleAdmin}}

	assert.True(t, admin.Unrestricted())
	assert.True(t, ops.Unrestricted())
	assert.False(t, owner.Unrestricted())
	assert.True(t, mixed.Unrestricted())
}
