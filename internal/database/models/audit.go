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

// ErrAuditEventNotFound is returned when no audit event has the requested ID.
var ErrAuditEventNotFound = errors.New("audit event not found")

// AuditLogModel handles database operations for the audit log.
type AuditLogModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAuditLog creates a new AuditLogModel instance.
func NewAuditLog(db *bun.DB, logger *zap.Logger) *AuditLogModel {
	return &AuditLogModel{
		db:     db,
		logger: logger.Named("db_audit_log"),
	}
}

// Push appends an event to the audit log and returns its store-assigned ID.
// The caller's event is not modified; any ID it carries is ignored.
func (m *AuditLogModel) Push(ctx context.Context, event types.AuditEvent) (int64, error) {
	event.ID = 0
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	event.Timestamp = event.Timestamp.UTC()

	_, err := m.db.NewInsert().
		Model(&event).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to push audit event: %w", err)
	}

	m.logger.Debug("Pushed audit event",
		zap.Int64("id", event.ID),
		zap.String("action", event.Action),
		zap.Uint64("actor", event.Actor.UserID))

	return event.ID, nil
}

// GetAuditEvent retrieves a single audit event by its ID.
func (m *AuditLogModel) GetAuditEvent(ctx context.Context, id int64) (*types.AuditEvent, error) {
	var event types.AuditEvent

	err := m.db.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d: %w", ErrAuditEventNotFound, id, err)
		}

		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}

	event.Timestamp = event.Timestamp.UTC()

	return &event, nil
}

// GetAuditEvents retrieves audit events newest first with cursor pagination.
// The returned cursor is nil when there are no more events.
func (m *AuditLogModel) GetAuditEvents(
	ctx context.Context, cursor *types.AuditCursor, limit int,
) ([]*types.AuditEvent, *types.AuditCursor, error) {
	var events []*types.AuditEvent

	query := m.db.NewSelect().
		Model(&events).
		Limit(limit + 1) // Get one extra to determine if there's a next page

	if cursor != nil {
		query = query.Where("(timestamp, id) <= (?, ?)", cursor.Timestamp.UTC(), cursor.ID)
	}

	err := query.
		Order("timestamp DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get audit events: %w", err)
	}

	var nextCursor *types.AuditCursor

	if len(events) > limit {
		last := events[limit]
		nextCursor = &types.AuditCursor{
			Timestamp: last.Timestamp,
			ID:        last.ID,
		}
		events = events[:limit]
	}

	for _, event := range events {
		event.Timestamp = event.Timestamp.UTC()
	}

	return events, nextCursor, nil
}
