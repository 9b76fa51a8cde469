package service

import (
	"testing"
	"time"

	"github.com/modmail-dev/modmail/internal/database/dbtest"
	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // -

func newTestBlocklist(t *testing.T, policy BlocklistPolicy) *BlocklistService {
	t.Helper()

	model := models.NewBlocklist(dbtest.NewDB(t), zap.NewNop())
	s := NewBlocklist(model, policy, zap.NewNop())
	require.NoError(t, s.Setup(t.Context()))

	return s
}

func joinedAgo(d time.Duration) *time.Time {
	joined := testNow.Add(-d)
	return &joined
}

func TestBlockIDStampsEntry(t *testing.T) {
	t.Parallel()

	s := newTestBlocklist(t, BlocklistPolicy{})
	ctx := t.Context()

	expires := time.Now().Add(time.Hour)

	entry, err := s.BlockID(ctx, 1001, &expires, "spam", 42, enum.BlockTypeUser)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
	assert.WithinDuration(t, time.Now(), entry.Timestamp, time.Minute)

	blocked, found, err := s.IsIDBlocked(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, "spam", found.ReasonOrDefault())
	assert.Equal(t, uint64(42), found.BlockingUserID)

	entry, err = s.BlockID(ctx, 2002, nil, "", 42, enum.BlockTypeRole)
	require.NoError(t, err)
	assert.True(t, entry.IsPermanent())
	assert.Nil(t, entry.Reason)

	removed, err := s.UnblockID(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := s.GetAllBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint64(2002), all[0].ID)
}

func TestIsUserBlocked(t *testing.T) {
	t.Parallel()

	policy := BlocklistPolicy{
		WhitelistedUsers: []uint64{900},
		AccountAge:       24 * time.Hour,
		GuildAge:         time.Hour,
	}

	s := newTestBlocklist(t, policy)
	s.now = func() time.Time { return testNow }
	ctx := t.Context()

	_, err := s.BlockID(ctx, 900, nil, "", 1, enum.BlockTypeUser)
	require.NoError(t, err)
	_, err = s.BlockID(ctx, 100, nil, "", 1, enum.BlockTypeUser)
	require.NoError(t, err)
	_, err = s.BlockID(ctx, 555, nil, "", 1, enum.BlockTypeRole)
	require.NoError(t, err)

	oldAccount := testNow.Add(-48 * time.Hour)

	tests := []struct {
		name    string
		member  types.Member
		blocked bool
		reason  enum.BlockReason
	}{
		{
			name:   "WhitelistBypassesEverything",
			member: types.Member{ID: 900, CreatedAt: testNow, RoleIDs: []uint64{555}},
		},
		{
			name:    "UserBlockWinsOverRoleBlock",
			member:  types.Member{ID: 100, CreatedAt: oldAccount, JoinedAt: joinedAgo(2 * time.Hour), RoleIDs: []uint64{555}},
			blocked: true,
			reason:  enum.BlockReasonBlockedUser,
		},
		{
			name:    "RoleBlock",
			member:  types.Member{ID: 101, CreatedAt: oldAccount, JoinedAt: joinedAgo(2 * time.Hour), RoleIDs: []uint64{1, 555}},
			blocked: true,
			reason:  enum.BlockReasonBlockedRole,
		},
		{
			name:    "YoungAccount",
			member:  types.Member{ID: 102, CreatedAt: testNow.Add(-time.Hour), JoinedAt: joinedAgo(2 * time.Hour)},
			blocked: true,
			reason:  enum.BlockReasonAccountAge,
		},
		{
			name:    "RecentJoin",
			member:  types.Member{ID: 103, CreatedAt: oldAccount, JoinedAt: joinedAgo(time.Minute)},
			blocked: true,
			reason:  enum.BlockReasonGuildAge,
		},
		{
			name:    "NotInGuild",
			member:  types.Member{ID: 104, CreatedAt: oldAccount},
			blocked: true,
			reason:  enum.BlockReasonGuildAge,
		},
		{
			name:   "Allowed",
			member: types.Member{ID: 105, CreatedAt: oldAccount, JoinedAt: joinedAgo(2 * time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, reason, err := s.IsUserBlocked(ctx, tt.member)
			require.NoError(t, err)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestAgeChecksDirection(t *testing.T) {
	t.Parallel()

	s := newTestBlocklist(t, BlocklistPolicy{AccountAge: 24 * time.Hour, GuildAge: 24 * time.Hour})
	s.now = func() time.Time { return testNow }

	assert.False(t, s.IsValidAccountAge(types.Member{CreatedAt: testNow.Add(-time.Hour)}))
	assert.True(t, s.IsValidAccountAge(types.Member{CreatedAt: testNow.Add(-24 * time.Hour)}))
	assert.True(t, s.IsValidAccountAge(types.Member{CreatedAt: testNow.Add(-30 * 24 * time.Hour)}))

	assert.False(t, s.IsValidGuildAge(types.Member{JoinedAt: joinedAgo(time.Hour)}))
	assert.True(t, s.IsValidGuildAge(types.Member{JoinedAt: joinedAgo(24 * time.Hour)}))
	assert.False(t, s.IsValidGuildAge(types.Member{}))
}

func TestZeroDurationDisablesAgeChecks(t *testing.T) {
	t.Parallel()

	s := newTestBlocklist(t, BlocklistPolicy{})
	s.now = func() time.Time { return testNow }

	brandNew := types.Member{ID: 1, CreatedAt: testNow}
	assert.True(t, s.IsValidAccountAge(brandNew))
	assert.True(t, s.IsValidGuildAge(brandNew))

	blocked, reason, err := s.IsUserBlocked(t.Context(), brandNew)
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.Equal(t, enum.BlockReasonNone, reason)
}

func TestSetPolicySwapsSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestBlocklist(t, BlocklistPolicy{})
	s.now = func() time.Time { return testNow }

	member := types.Member{ID: 7, CreatedAt: testNow.Add(-time.Hour)}
	assert.True(t, s.IsValidAccountAge(member))

	s.SetPolicy(BlocklistPolicy{AccountAge: 2 * time.Hour, WhitelistedUsers: []uint64{8}})
	assert.False(t, s.IsValidAccountAge(member))
	assert.Equal(t, []uint64{8}, s.Policy().WhitelistedUsers)
	assert.Equal(t, 2*time.Hour, s.Policy().AccountAge)
}
