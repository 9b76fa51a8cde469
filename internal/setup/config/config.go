package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// EnvPrefix is the prefix of environment variables that override config values.
// Nested keys are separated by a double underscore, e.g. MODMAIL_COMMON__POSTGRESQL__HOST.
const EnvPrefix = "MODMAIL_"

// Current version of the config file.
const (
	CurrentCommonVersion    = 1
	CurrentBotVersion       = 1
	CurrentLogViewerVersion = 1
)

// legacyEnvKeys maps environment variables from older deployments to config keys.
var legacyEnvKeys = map[string]string{ //nolint:gochecknoglobals // -
	"TOKEN":                "common.discord.token",
	"GUILD_ID":             "common.discord.guild_id",
	"OAUTH2_CLIENT_ID":     "logviewer.oauth2.client_id",
	"OAUTH2_CLIENT_SECRET": "logviewer.oauth2.client_secret",
	"OAUTH2_REDIRECT_URI":  "logviewer.oauth2.redirect_uri",
}

// Config represents the entire application configuration.
type Config struct {
	Common    CommonConfig
	Bot       BotConfig
	LogViewer LogViewerConfig `koanf:"logviewer"`
}

// CommonConfig contains configuration shared between the bot and the log viewer.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Discord    Discord    `koanf:"discord"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Run the log viewer inside the bot process.
	EmbedLogViewer bool `koanf:"embed_log_viewer"`
	// Blocklist policy.
	Blocklist Blocklist `koanf:"blocklist"`
	// Permission levels.
	Permissions Permissions `koanf:"permissions"`
}

// LogViewerConfig contains log viewer specific configuration.
type LogViewerConfig struct {
	// Version of the log viewer config.
	Version int `koanf:"version"`
	// Address to listen on.
	Host string `koanf:"host"`
	// Port to listen on.
	Port int `koanf:"port"`
	// Path prefix of the log routes.
	URLPrefix string `koanf:"url_prefix"`
	// Logs shown per list page.
	Pagination int `koanf:"pagination"`
	// Session lifetime in minutes.
	SessionTTL int `koanf:"session_ttl"`
	// Users, roles or "everyone" allowed to view logs when OAuth2 is enabled.
	Whitelist []string `koanf:"whitelist"`
	// OAuth2 application credentials. Leave empty to disable login.
	OAuth2 OAuth2 `koanf:"oauth2"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Serve pprof on localhost.
	EnablePprof bool `koanf:"enable_pprof"`
	// Port of the pprof server.
	PprofPort int `koanf:"pprof_port"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Use TLS for the connection.
	TLS bool `koanf:"tls"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
	// Apply pending migrations on startup without asking.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Discord contains the bot credentials and home guild.
type Discord struct {
	// Bot token.
	Token string `koanf:"token"`
	// Guild the bot moderates.
	GuildID uint64 `koanf:"guild_id"`
}

// Blocklist contains the block check policy.
type Blocklist struct {
	// Users that are never blocked.
	Whitelist []uint64 `koanf:"whitelist"`
	// Minimum account age, e.g. "72h" or "7d". Zero disables the check.
	AccountAge time.Duration `koanf:"account_age"`
	// Minimum time since joining the guild. Zero disables the check.
	GuildAge time.Duration `koanf:"guild_age"`
	// Seconds between expired block sweeps.
	SweepInterval int `koanf:"sweep_interval"`
}

// Permissions assigns permission levels to users and roles.
type Permissions struct {
	// Users with the owner level.
	Owners []uint64 `koanf:"owners"`
	// Level name to user or role IDs, e.g. moderator = [123, 456].
	Levels map[string][]uint64 `koanf:"levels"`
}

// OAuth2 contains the Discord application credentials for log viewer login.
type OAuth2 struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURI  string `koanf:"redirect_uri"`
	// Discord API base URL. Defaults to the public API when empty.
	APIBase string `koanf:"api_base"`
}

// Enabled reports whether every credential needed for login is set.
func (o OAuth2) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.RedirectURI != ""
}

// LoadConfig loads the configuration from the default search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadConfigFrom(
		".modmail",
		homeDir+"/.modmail/config",
		"/etc/modmail/config",
		"/app/config",
		"config",
		".",
	)
}

// LoadConfigFrom loads the configuration from the first path holding each file,
// then applies environment overrides.
func LoadConfigFrom(configPaths ...string) (*Config, string, error) {
	k := koanf.New(".")

	// Load all config files
	var usedConfigPath string

	configFiles := []string{"common", "bot", "logviewer"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	// Overlay environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env overrides: %w", err)
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnvKeys[s]
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load legacy env overrides: %w", err)
	}

	var config Config

	conf := unmarshalConf()
	conf.DecoderConfig.Result = &config

	if err := k.UnmarshalWithConf("", &config, conf); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("logviewer", config.LogViewer.Version, CurrentLogViewerVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/modmail-dev/modmail/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
