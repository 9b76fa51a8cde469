package setup

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modmail-dev/modmail/internal/setup/config"
	"go.uber.org/zap"
)

// ApplyConfig swaps the permission grants and blocklist policy for the ones in cfg.
// Nothing is applied when the permissions section is invalid.
func (s *App) ApplyConfig(cfg *config.Config) error {
	if err := s.Permissions.Update(cfg.Bot.Permissions); err != nil {
		return fmt.Errorf("invalid permissions config: %w", err)
	}

	s.Services.Blocklist().SetPolicy(BlocklistPolicy(&cfg.Bot.Blocklist))
	s.Config.Bot.Permissions = cfg.Bot.Permissions
	s.Config.Bot.Blocklist = cfg.Bot.Blocklist

	policy := s.Services.Blocklist().Policy()
	s.Logger.Info("Applied bot config",
		zap.Int("whitelisted_users", len(policy.WhitelistedUsers)),
		zap.Duration("account_age", policy.AccountAge),
		zap.Duration("guild_age", policy.GuildAge),
		zap.Int("permission_levels", len(cfg.Bot.Permissions.Levels)))

	return nil
}

// WatchReload reloads the config files on SIGHUP until ctx is done.
// A config that fails to load or apply is logged and the previous one stays active.
func (s *App) WatchReload(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			cfg, _, err := config.LoadConfig()
			if err != nil {
				s.Logger.Error("Failed to reload config", zap.Error(err))
				continue
			}

			if err := s.ApplyConfig(cfg); err != nil {
				s.Logger.Error("Failed to apply reloaded config", zap.Error(err))
			}
		}
	}
}
