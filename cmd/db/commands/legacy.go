package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/modmail-dev/modmail/internal/legacy"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// BlocklistCommands returns the blocklist maintenance commands.
func BlocklistCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "blocklist",
			Usage: "Blocklist maintenance",
			Commands: []*cli.Command{
				{
					Name:  "migrate-legacy",
					Usage: "Move blocks from a legacy config export into the blocklist",
					Description: `Reads the "blocked" and "blocked_roles" lists from a legacy config export,
inserts every unexpired block and then empties both lists in the file.

Example:
  db blocklist migrate-legacy --file config.json`,
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:    "file",
							Usage:   "Path to the legacy config export",
							Aliases: []string{"f"},
						},
					},
					Action: handleMigrateLegacy(deps),
				},
			},
		},
		{
			Name:  "logs",
			Usage: "Thread log maintenance",
			Commands: []*cli.Command{
				{
					Name:  "import",
					Usage: "Import thread logs from a JSON export",
					Description: `Reads a JSON array of thread log documents and stores each one.
Stops at the first malformed document; earlier documents stay imported.

Example:
  db logs import --file logs.json`,
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:    "file",
							Usage:   "Path to the thread log export",
							Aliases: []string{"f"},
						},
					},
					Action: handleImportLogs(deps),
				},
			},
		},
	}
}

// handleMigrateLegacy handles the 'blocklist migrate-legacy' command.
func handleMigrateLegacy(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		path := c.String("file")
		if path == "" {
			return ErrFileRequired
		}

		migrator := legacy.NewMigrator(deps.DB.Model().Blocklist(), deps.Logger)

		result, err := migrator.Run(ctx, legacy.NewFileSource(path))
		if err != nil {
			return fmt.Errorf("legacy migration failed: %w", err)
		}

		deps.Logger.Info("Migrated legacy blocklist",
			zap.Int("migrated", result.Migrated),
			zap.Int("skipped", result.Skipped),
			zap.Int("batches", result.Batches),
			zap.Duration("duration", result.Duration))

		return nil
	}
}

// handleImportLogs handles the 'logs import' command.
func handleImportLogs(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		path := c.String("file")
		if path == "" {
			return ErrFileRequired
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open thread log export: %w", err)
		}
		defer f.Close()

		imported, err := legacy.ImportThreadLogs(ctx, f, deps.DB.Model().ThreadLog(), deps.Logger)

		deps.Logger.Info("Imported thread logs", zap.Int("imported", imported))

		if err != nil {
			return fmt.Errorf("thread log import stopped: %w", err)
		}

		return nil
	}
}
