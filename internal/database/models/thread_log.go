package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/modmail-dev/modmail/internal/database/dbretry"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrThreadLogNotFound is returned when no thread log has the requested key.
var ErrThreadLogNotFound = errors.New("thread log not found")

// ThreadLogPage is one page of a thread log listing.
type ThreadLogPage struct {
	Logs     []*types.ThreadLog
	Total    int // Logs matching the filter
	CountAll int // Logs belonging to the bot regardless of status or search
}

// ThreadLogModel handles database operations for thread transcripts.
type ThreadLogModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewThreadLog creates a new ThreadLogModel instance.
func NewThreadLog(db *bun.DB, logger *zap.Logger) *ThreadLogModel {
	return &ThreadLogModel{
		db:     db,
		logger: logger.Named("db_thread_log"),
	}
}

// Insert stores a thread transcript.
func (m *ThreadLogModel) Insert(ctx context.Context, log *types.ThreadLog) error {
	_, err := m.db.NewInsert().Model(log).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert thread log: %w", err)
	}

	m.logger.Debug("Inserted thread log",
		zap.String("key", log.Key),
		zap.Int("messages", len(log.Messages)))

	return nil
}

// GetByKey retrieves a thread transcript by its key.
func (m *ThreadLogModel) GetByKey(ctx context.Context, key string) (*types.ThreadLog, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ThreadLog, error) {
		var log types.ThreadLog

		err := m.db.NewSelect().
			Model(&log).
			Where("? = ?", bun.Ident("key"), key).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrThreadLogNotFound, key)
			}

			return nil, fmt.Errorf("failed to get thread log: %w", err)
		}

		return &log, nil
	})
}

// List retrieves a page of thread logs newest first.
// Page numbers start at 1; lower values are treated as the first page.
func (m *ThreadLogModel) List(
	ctx context.Context, filter types.ThreadLogFilter, page, perPage int,
) (*ThreadLogPage, error) {
	if page < 1 {
		page = 1
	}

	return dbretry.Operation(ctx, func(ctx context.Context) (*ThreadLogPage, error) {
		countAll, err := m.db.NewSelect().
			Model((*types.ThreadLog)(nil)).
			Where("bot_id = ?", filter.BotID).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count thread logs: %w", err)
		}

		var logs []*types.ThreadLog

		total, err := m.db.NewSelect().
			Model(&logs).
			Apply(applyThreadLogFilter(filter)).
			Order("created_at DESC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			ScanAndCount(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to list thread logs: %w", err)
		}

		return &ThreadLogPage{
			Logs:     logs,
			Total:    total,
			CountAll: countAll,
		}, nil
	})
}

// applyThreadLogFilter restricts a listing to one bot, an optional status and a search term.
func applyThreadLogFilter(filter types.ThreadLogFilter) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("bot_id = ?", filter.BotID)

		if filter.Open != nil {
			q = q.Where("open = ?", *filter.Open)
		}

		search := strings.TrimSpace(filter.Search)
		if search == "" {
			return q
		}

		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"

		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(title) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("LOWER(?) LIKE ? ESCAPE '\\'", bun.Ident("key"), pattern).
				WhereOr("LOWER(recipient_name) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("LOWER(creator_name) LIKE ? ESCAPE '\\'", pattern).
				WhereOr("recipient_id = ?", search).
				WhereOr("LOWER(CAST(messages AS TEXT)) LIKE ? ESCAPE '\\'", pattern)
		})
	}
}

// escapeLike escapes the LIKE wildcards in a user supplied term.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
