package setup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/modmail-dev/modmail/internal/database"
	"github.com/modmail-dev/modmail/internal/database/migrations"
	"github.com/modmail-dev/modmail/internal/database/service"
	"github.com/modmail-dev/modmail/internal/logviewer"
	"github.com/modmail-dev/modmail/internal/permissions"
	"github.com/modmail-dev/modmail/internal/redis"
	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/modmail-dev/modmail/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config        // Application configuration
	Logger       *zap.Logger           // Main application logger
	DBLogger     *zap.Logger           // Database-specific logger
	DB           database.Client       // Database connection pool
	Services     *database.Service     // Blocklist and audit services
	Permissions  *permissions.Resolver // Member permission levels
	RedisManager *redis.Manager        // Redis connection manager
	LogManager   *telemetry.Manager    // Log management system
	pprofServer  *pprofServer          // Debug HTTP server for pprof
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Logging session started",
		zap.String("instance_id", logManager.GetInstanceID()),
		zap.String("dir", logManager.GetCurrentSessionDir()))

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger)
	if err != nil {
		logManager.Close()
		return nil, err
	}

	resolver, err := permissions.NewResolver(cfg.Common.Discord.GuildID, cfg.Bot.Permissions)
	if err != nil {
		_ = db.Close()
		logManager.Close()

		return nil, fmt.Errorf("invalid permissions config: %w", err)
	}

	services := database.NewService(db.Model(), BlocklistPolicy(&cfg.Bot.Blocklist), logger)
	if err := services.Blocklist().Setup(ctx); err != nil {
		_ = db.Close()
		logManager.Close()

		return nil, err
	}

	// Start pprof server if enabled
	var pprofSrv *pprofServer

	if cfg.Common.Debug.EnablePprof {
		srv, err := startPprofServer(cfg.Common.Debug.PprofPort, logger)
		if err != nil {
			logger.Error("Failed to start pprof server", zap.Error(err))
		} else {
			pprofSrv = srv

			logger.Warn("pprof debugging endpoint enabled - this should not be used in production!")
		}
	}

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		Services:     services,
		Permissions:  resolver,
		RedisManager: redisManager,
		LogManager:   logManager,
		pprofServer:  pprofSrv,
	}, nil
}

// BlocklistPolicy converts the configured blocklist section into a service policy.
func BlocklistPolicy(cfg *config.Blocklist) service.BlocklistPolicy {
	return service.BlocklistPolicy{
		WhitelistedUsers: cfg.Whitelist,
		AccountAge:       cfg.AccountAge,
		GuildAge:         cfg.GuildAge,
	}
}

// NewLogViewer builds the log viewer for this bot. Roles may be nil when the
// whitelist allows everyone or login is disabled.
func (s *App) NewLogViewer(roles logviewer.RoleFetcher) (*logviewer.Server, error) {
	cfg := &s.Config.LogViewer

	botID, err := logviewer.BotIDFromToken(s.Config.Common.Discord.Token)
	if err != nil {
		return nil, err
	}

	var sessions *logviewer.SessionStore

	if cfg.OAuth2.Enabled() {
		client, err := s.RedisManager.GetClient(redis.SessionDBIndex)
		if err != nil {
			return nil, err
		}

		sessions = logviewer.NewSessionStore(client, time.Duration(cfg.SessionTTL)*time.Minute, s.Logger)
	}

	return logviewer.NewServer(cfg, botID, s.DB.Model().ThreadLog(), sessions, roles, s.Logger)
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Shutdown pprof server if running
	if s.pprofServer != nil {
		if err := s.pprofServer.srv.Shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown pprof server", zap.Error(err))
		}

		s.pprofServer.listener.Close()
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()

	s.LogManager.Close()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	if cfg.AutoMigrate {
		return database.NewConnection(ctx, cfg, dbLogger, true)
	}

	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if len(ms.Unapplied()) == 0 {
		return tempDB, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string

	_, _ = fmt.Scanln(&response)

	tempDB.Close()

	if response != "y" && response != "Y" {
		log.Fatalf("Closing program due to incomplete migrations")
	}

	return database.NewConnection(ctx, cfg, dbLogger, true)
}
