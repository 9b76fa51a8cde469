package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// BlocklistModel handles database operations for blocked users and roles.
type BlocklistModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBlocklist creates a new BlocklistModel instance.
func NewBlocklist(db *bun.DB, logger *zap.Logger) *BlocklistModel {
	return &BlocklistModel{
		db:     db,
		logger: logger.Named("db_blocklist"),
	}
}

// Setup ensures the lookup and expiry indexes exist. It is safe to call on every startup.
func (m *BlocklistModel) Setup(ctx context.Context) error {
	_, err := m.db.NewCreateIndex().
		Model((*types.BlocklistEntry)(nil)).
		Index("idx_blocklist_id").
		Column("id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create blocklist id index: %w", err)
	}

	_, err = m.db.NewCreateIndex().
		Model((*types.BlocklistEntry)(nil)).
		Index("idx_blocklist_expires_at").
		Column("expires_at").
		Where("expires_at IS NOT NULL").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create blocklist expiry index: %w", err)
	}

	m.logger.Debug("Blocklist indexes ready")

	return nil
}

// AddBlock inserts a single blocklist entry. Duplicate entries for the same ID are allowed.
func (m *BlocklistModel) AddBlock(ctx context.Context, entry *types.BlocklistEntry) error {
	_, err := m.db.NewInsert().
		Model(entry).
		Returning("row_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add block: %w", err)
	}

	m.logger.Debug("Added block",
		zap.Uint64("id", entry.ID),
		zap.String("type", entry.Type.String()),
		zap.Uint64("blocking_user_id", entry.BlockingUserID))

	return nil
}

// AddBlocks inserts multiple blocklist entries in a single statement.
func (m *BlocklistModel) AddBlocks(ctx context.Context, entries []*types.BlocklistEntry) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := m.db.NewInsert().
		Model(&entries).
		Returning("row_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add blocks: %w", err)
	}

	m.logger.Debug("Added blocks", zap.Int("count", len(entries)))

	return nil
}

// UnblockID removes every blocklist entry for the given ID regardless of type.
// Returns true if at least one entry was removed.
func (m *BlocklistModel) UnblockID(ctx context.Context, id uint64) (bool, error) {
	result, err := m.db.NewDelete().
		Model((*types.BlocklistEntry)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to unblock id: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read unblock result: %w", err)
	}

	if affected > 0 {
		m.logger.Debug("Removed blocks", zap.Uint64("id", id), zap.Int64("count", affected))
	}

	return affected > 0, nil
}

// IsIDBlocked checks if there is an active manual block for the given ID.
// Returns the matching entry when blocked.
func (m *BlocklistModel) IsIDBlocked(ctx context.Context, id uint64) (bool, *types.BlocklistEntry, error) {
	var entry types.BlocklistEntry

	err := m.db.NewSelect().
		Model(&entry).
		Where("id = ?", id).
		Apply(activeOnly(time.Now())).
		Order("timestamp DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}

		return false, nil, fmt.Errorf("failed to check blocked id: %w", err)
	}

	return true, &entry, nil
}

// AnyBlocked checks if any of the given IDs has an active manual block.
func (m *BlocklistModel) AnyBlocked(ctx context.Context, ids []uint64) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}

	exists, err := m.db.NewSelect().
		Model((*types.BlocklistEntry)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Apply(activeOnly(time.Now())).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check blocked ids: %w", err)
	}

	return exists, nil
}

// GetAllBlocks retrieves every active blocklist entry ordered by creation time.
func (m *BlocklistModel) GetAllBlocks(ctx context.Context) ([]*types.BlocklistEntry, error) {
	var entries []*types.BlocklistEntry

	err := m.db.NewSelect().
		Model(&entries).
		Apply(activeOnly(time.Now())).
		Order("timestamp ASC", "row_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blocklist: %w", err)
	}

	return entries, nil
}

// PurgeExpired deletes every entry whose expiry is at or before the given time.
// Returns the number of entries removed.
func (m *BlocklistModel) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := m.db.NewDelete().
		Model((*types.BlocklistEntry)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired blocks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}

	return affected, nil
}

// activeOnly limits a query to entries that have not expired at the given time.
func activeOnly(now time.Time) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("expires_at IS NULL").
				WhereOr("expires_at > ?", now.UTC())
		})
	}
}
