package setup

import (
	"testing"
	"time"

	"github.com/modmail-dev/modmail/internal/database"
	"github.com/modmail-dev/modmail/internal/database/dbtest"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/modmail-dev/modmail/internal/permissions"
	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReloadApp(t *testing.T) *App {
	t.Helper()

	logger := zap.NewNop()
	cfg := &config.Config{}
	cfg.Bot.Permissions = config.Permissions{Levels: map[string][]uint64{"moderator": {2}}}

	resolver, err := permissions.NewResolver(1000, cfg.Bot.Permissions)
	require.NoError(t, err)

	services := database.NewService(database.NewRepository(dbtest.NewDB(t), logger), BlocklistPolicy(&cfg.Bot.Blocklist), logger)
	require.NoError(t, services.Blocklist().Setup(t.Context()))

	return &App{Config: cfg, Logger: logger, Services: services, Permissions: resolver}
}

func TestApplyConfig(t *testing.T) {
	t.Parallel()

	app := newReloadApp(t)
	ctx := t.Context()

	next := &config.Config{}
	next.Bot.Permissions = config.Permissions{Levels: map[string][]uint64{"administrator": {2}}}
	next.Bot.Blocklist = config.Blocklist{Whitelist: []uint64{7}, AccountAge: 72 * time.Hour, GuildAge: time.Hour}

	require.NoError(t, app.ApplyConfig(next))

	assert.Equal(t, enum.PermissionLevelAdministrator, app.Permissions.Resolve(ctx, types.Member{ID: 2}))

	policy := app.Services.Blocklist().Policy()
	assert.Equal(t, []uint64{7}, policy.WhitelistedUsers)
	assert.Equal(t, 72*time.Hour, policy.AccountAge)
	assert.Equal(t, time.Hour, policy.GuildAge)
	assert.Equal(t, 72*time.Hour, app.Config.Bot.Blocklist.AccountAge)
}

func TestApplyConfigKeepsPreviousOnError(t *testing.T) {
	t.Parallel()

	app := newReloadApp(t)

	next := &config.Config{}
	next.Bot.Permissions = config.Permissions{Levels: map[string][]uint64{"janitor": {2}}}
	next.Bot.Blocklist = config.Blocklist{AccountAge: time.Hour}

	require.ErrorIs(t, app.ApplyConfig(next), permissions.ErrUnknownLevel)

	assert.Equal(t, enum.PermissionLevelModerator, app.Permissions.Resolve(t.Context(), types.Member{ID: 2}))
	assert.Zero(t, app.Services.Blocklist().Policy().AccountAge)
}
