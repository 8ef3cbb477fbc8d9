package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRoleFallsBackToPremium(t *testing.T) {
	holder := &RoleMapHolder{}
	holder.current.Store(normalizeRoleMap(RoleMap{
		Plans: []PlanRole{
			{PlanCode: "Premium-Annual", RoleID: "role-annual"},
			{PlanCode: "premium-monthly", RoleID: "role-monthly"},
			{PlanCode: "broken", RoleID: ""},
		},
	}))

	require.Equal(t, "role-annual", holder.ResolveRole("premium-annual", "role-default"))
	require.Equal(t, "role-monthly", holder.ResolveRole(" Premium-Monthly ", "role-default"))
	require.Equal(t, "role-default", holder.ResolveRole("", "role-default"))
	require.Equal(t, "role-default", holder.ResolveRole("unknown", "role-default"))
	require.Equal(t, "role-default", holder.ResolveRole("broken", "role-default"))
}
