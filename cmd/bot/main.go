package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modmail-dev/modmail/internal/bot"
	"github.com/modmail-dev/modmail/internal/logviewer"
	"github.com/modmail-dev/modmail/internal/setup"
	"github.com/modmail-dev/modmail/internal/setup/telemetry"
	"github.com/modmail-dev/modmail/internal/worker/expiry"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

// BotLogDir specifies where bot log files are stored.
const BotLogDir = "logs"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Bot exited with error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, BotLogDir)
	if err != nil {
		return err
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.Cleanup(cleanupCtx)
	}()

	cfg := app.Config
	blocklist := app.Services.Blocklist()

	commands := bot.NewCommands(blocklist, app.Services.Audit(), app.Permissions, app.Logger)
	gate := bot.NewGate(blocklist, app.Logger)

	discordBot, err := bot.New(
		cfg.Common.Discord.Token,
		cfg.Common.Discord.GuildID,
		commands,
		gate,
		telemetry.ServiceBot.GetRequestTimeout(cfg),
		app.Logger,
	)
	if err != nil {
		return err
	}

	sweeper := expiry.New(
		app.DB.Model().Blocklist(),
		time.Duration(cfg.Bot.Blocklist.SweepInterval)*time.Second,
		app.LogManager.GetWorkerLogger("expiry_worker"),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return discordBot.Start(ctx) })
	g.Go(func() error { return sweeper.Start(ctx) })
	g.Go(func() error { return app.WatchReload(ctx) })

	if cfg.Bot.EmbedLogViewer {
		roles := logviewer.NewMemberRoleFetcher(discordBot.Members(), cfg.Common.Discord.GuildID)

		server, err := app.NewLogViewer(roles)
		if err != nil {
			stop()
			_ = g.Wait()

			return err
		}

		g.Go(func() error { return server.Start(ctx) })
	}

	app.Logger.Info("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	if err := g.Wait(); err != nil {
		app.Logger.Error("Bot stopped with error", zap.Error(err))
		return err
	}

	return nil
}
