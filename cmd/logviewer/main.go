package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/rest"
	"github.com/modmail-dev/modmail/internal/logviewer"
	"github.com/modmail-dev/modmail/internal/setup"
	"github.com/modmail-dev/modmail/internal/setup/telemetry"
)

// LogViewerLogDir specifies where log viewer log files are stored.
const LogViewerLogDir = "logs"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Log viewer exited with error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceLogViewer, LogViewerLogDir)
	if err != nil {
		return err
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.Cleanup(cleanupCtx)
	}()

	discord := app.Config.Common.Discord
	restClient := rest.New(rest.NewClient(discord.Token))

	defer restClient.Close(context.Background())

	server, err := app.NewLogViewer(logviewer.NewMemberRoleFetcher(restClient, discord.GuildID))
	if err != nil {
		return err
	}

	return server.Start(ctx)
}
