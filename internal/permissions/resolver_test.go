package permissions_test

import (
	"testing"

	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/modmail-dev/modmail/internal/permissions"
	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	resolver, err := permissions.NewResolver(1000, config.Permissions{
		Owners: []uint64{1},
		Levels: map[string][]uint64{
			"administrator": {2},
			"moderator":     {30},
			"supporter":     {1000},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		member types.Member
		want   enum.PermissionLevel
	}{
		{"Owner", types.Member{ID: 1}, enum.PermissionLevelOwner},
		{"UserGrant", types.Member{ID: 2}, enum.PermissionLevelAdministrator},
		{"RoleGrant", types.Member{ID: 3, RoleIDs: []uint64{29, 30}}, enum.PermissionLevelModerator},
		{"EveryoneGrant", types.Member{ID: 4}, enum.PermissionLevelSupporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, resolver.Resolve(t.Context(), tt.member))
		})
	}

	assert.True(t, resolver.HasLevel(t.Context(), types.Member{ID: 2}, enum.PermissionLevelModerator))
	assert.False(t, resolver.HasLevel(t.Context(), types.Member{ID: 4}, enum.PermissionLevelModerator))
}

func TestResolveDefaultsToRegular(t *testing.T) {
	t.Parallel()

	resolver, err := permissions.NewResolver(0, config.Permissions{})
	require.NoError(t, err)

	assert.Equal(t, enum.PermissionLevelRegular, resolver.Resolve(t.Context(), types.Member{ID: 9}))
}

func TestResolverRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := permissions.NewResolver(0, config.Permissions{
		Levels: map[string][]uint64{"janitor": {1}},
	})
	require.ErrorIs(t, err, permissions.ErrUnknownLevel)

	_, err = permissions.NewResolver(0, config.Permissions{
		Levels: map[string][]uint64{"invalid": {1}},
	})
	require.ErrorIs(t, err, permissions.ErrUnknownLevel)
}
