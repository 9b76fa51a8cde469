package utils_test

import (
	"strings"
	"testing"
	"time"

	"github.com/modmail-dev/modmail/internal/bot/utils"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
)

func TestFormatBlock(t *testing.T) {
	t.Parallel()

	until := time.Unix(1700000000, 0)
	reason := "spam"

	assert.Equal(t,
		"<@1> (`1`, user) until <t:1700000000:f>: spam",
		utils.FormatBlock(&types.BlocklistEntry{ID: 1, ExpiresAt: &until, Reason: &reason, Type: enum.BlockTypeUser}))

	assert.Equal(t,
		"<@&2> (`2`, role) indefinitely: No reason provided",
		utils.FormatBlock(&types.BlocklistEntry{ID: 2, Type: enum.BlockTypeRole}))
}

func TestFormatBlockListTruncates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No one is blocked.", utils.FormatBlockList(nil, 100))

	entries := make([]*types.BlocklistEntry, 50)
	for i := range entries {
		entries[i] = &types.BlocklistEntry{ID: uint64(i + 1), Type: enum.BlockTypeUser}
	}

	out := utils.FormatBlockList(entries, 300)
	assert.LessOrEqual(t, len(out), 300)
	assert.True(t, strings.HasSuffix(out, "more"))
	assert.True(t, strings.HasPrefix(out, "<@1>"))
}

func TestFormatAuditEvent(t *testing.T) {
	t.Parallel()

	out := utils.FormatAuditEvent(&types.AuditEvent{
		ID:          7,
		Action:      "blocklist.block",
		Description: "Blocked user 5",
		Timestamp:   time.Unix(1700000000, 0),
		Actor: types.AuditEventSource{
			UserID:   9,
			Username: "mod",
			Role:     enum.PermissionLevelModerator,
			Source:   "modmail",
		},
	})

	assert.Contains(t, out, "**#7** `blocklist.block`")
	assert.Contains(t, out, "<@9> (mod, moderator via modmail)")
	assert.Contains(t, out, "Blocked user 5")
}
