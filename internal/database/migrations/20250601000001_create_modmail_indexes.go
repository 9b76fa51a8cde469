package migrations

import (
	"context"
	"fmt"

	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Audit log pagination walks newest first
		_, err := db.NewCreateIndex().
			Model((*types.AuditEvent)(nil)).
			Index("idx_audit_logs_timestamp").
			ColumnExpr("? DESC, ? DESC", bun.Ident("timestamp"), bun.Ident("id")).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create audit log index: %w", err)
		}

		_, err = db.NewCreateIndex().
			Model((*types.AuditEvent)(nil)).
			Index("idx_audit_logs_actor").
			Column("actor_user_id").
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create audit actor index: %w", err)
		}

		// Thread log listing is scoped to one bot
		_, err = db.NewCreateIndex().
			Model((*types.ThreadLog)(nil)).
			Index("idx_thread_logs_bot_created").
			ColumnExpr("?, ? DESC", bun.Ident("bot_id"), bun.Ident("created_at")).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create thread log index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"idx_thread_logs_bot_created",
			"idx_audit_logs_actor",
			"idx_audit_logs_timestamp",
		}

		for _, index := range indexes {
			_, err := db.NewDropIndex().
				Index(index).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop index %s: %w", index, err)
			}
		}

		return nil
	})
}
