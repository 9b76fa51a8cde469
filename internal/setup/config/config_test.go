package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commonTOML = `
[common]
version = 1

[common.debug]
log_level = "debug"
max_logs_to_keep = 5
max_log_lines = 1000

[common.postgresql]
host = "localhost"
port = 5432
db_name = "modmail"

[common.discord]
token = "file-token"
guild_id = 123
`

const botTOML = `
[bot]
version = 1
request_timeout = 5000

[bot.blocklist]
whitelist = [11, 22]
account_age = "72h"
guild_age = "30m"
sweep_interval = 60

[bot.permissions]
owners = [1]

[bot.permissions.levels]
moderator = [2, 3]
`

const logViewerTOML = `
[logviewer]
version = 1
host = "0.0.0.0"
port = 8000
url_prefix = "/logs"
pagination = 25
whitelist = ["everyone"]
`

func writeConfigs(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0o600))
	}

	return dir
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := writeConfigs(t, map[string]string{
		"common":    commonTOML,
		"bot":       botTOML,
		"logviewer": logViewerTOML,
	})

	cfg, usedPath, err := config.LoadConfigFrom(filepath.Join(dir, "missing"), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, usedPath)

	assert.Equal(t, "debug", cfg.Common.Debug.LogLevel)
	assert.Equal(t, 5432, cfg.Common.PostgreSQL.Port)
	assert.Equal(t, uint64(123), cfg.Common.Discord.GuildID)

	assert.Equal(t, []uint64{11, 22}, cfg.Bot.Blocklist.Whitelist)
	assert.Equal(t, 72*time.Hour, cfg.Bot.Blocklist.AccountAge)
	assert.Equal(t, 30*time.Minute, cfg.Bot.Blocklist.GuildAge)
	assert.Equal(t, []uint64{1}, cfg.Bot.Permissions.Owners)
	assert.Equal(t, []uint64{2, 3}, cfg.Bot.Permissions.Levels["moderator"])

	assert.Equal(t, "/logs", cfg.LogViewer.URLPrefix)
	assert.Equal(t, []string{"everyone"}, cfg.LogViewer.Whitelist)
	assert.False(t, cfg.LogViewer.OAuth2.Enabled())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	dir := writeConfigs(t, map[string]string{
		"common": commonTOML,
		"bot":    botTOML,
	})

	_, _, err := config.LoadConfigFrom(dir)
	require.ErrorIs(t, err, config.ErrConfigFileNotFound)
}

func TestLoadConfigVersionChecks(t *testing.T) {
	t.Parallel()

	dir := writeConfigs(t, map[string]string{
		"common":    commonTOML,
		"bot":       "[bot]\nversion = 99\n",
		"logviewer": logViewerTOML,
	})

	_, _, err := config.LoadConfigFrom(dir)
	require.ErrorIs(t, err, config.ErrConfigVersionMismatch)

	dir = writeConfigs(t, map[string]string{
		"common":    commonTOML,
		"bot":       botTOML,
		"logviewer": "[logviewer]\nport = 8000\n",
	})

	_, _, err = config.LoadConfigFrom(dir)
	require.ErrorIs(t, err, config.ErrConfigVersionMissing)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := writeConfigs(t, map[string]string{
		"common":    commonTOML,
		"bot":       botTOML,
		"logviewer": logViewerTOML,
	})

	t.Setenv("MODMAIL_COMMON__POSTGRESQL__HOST", "db.internal")
	t.Setenv("MODMAIL_LOGVIEWER__URL_PREFIX", "/transcripts")
	t.Setenv("TOKEN", "env-token")
	t.Setenv("GUILD_ID", "456")
	t.Setenv("OAUTH2_CLIENT_ID", "client")
	t.Setenv("OAUTH2_CLIENT_SECRET", "secret")
	t.Setenv("OAUTH2_REDIRECT_URI", "https://logs.example.com/callback")

	cfg, _, err := config.LoadConfigFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Common.PostgreSQL.Host)
	assert.Equal(t, "/transcripts", cfg.LogViewer.URLPrefix)
	assert.Equal(t, "env-token", cfg.Common.Discord.Token)
	assert.Equal(t, uint64(456), cfg.Common.Discord.GuildID)
	assert.True(t, cfg.LogViewer.OAuth2.Enabled())
}

func TestLoadConfigDurations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		accountAge string
		guildAge   string
		wantAcct   time.Duration
		wantGuild  time.Duration
	}{
		{"Days", "7d", "1h30m", 7 * 24 * time.Hour, 90 * time.Minute},
		{"Weeks", "1w", "2d12h", 7 * 24 * time.Hour, 60 * time.Hour},
		{"Disabled", "0", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bot := strings.NewReplacer(`"72h"`, `"`+tt.accountAge+`"`, `"30m"`, `"`+tt.guildAge+`"`).Replace(botTOML)
			dir := writeConfigs(t, map[string]string{
				"common":    commonTOML,
				"bot":       bot,
				"logviewer": logViewerTOML,
			})

			cfg, _, err := config.LoadConfigFrom(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAcct, cfg.Bot.Blocklist.AccountAge)
			assert.Equal(t, tt.wantGuild, cfg.Bot.Blocklist.GuildAge)
		})
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	t.Parallel()

	dir := writeConfigs(t, map[string]string{
		"common":    commonTOML,
		"bot":       strings.Replace(botTOML, `"72h"`, `"soon"`, 1),
		"logviewer": logViewerTOML,
	})

	_, _, err := config.LoadConfigFrom(dir)
	require.Error(t, err)
}
