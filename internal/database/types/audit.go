package types

import (
	"time"

	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// AuditEventSource captures who performed an action and with which
// permission level at the time of the action.
type AuditEventSource struct {
	UserID    uint64               `bun:"user_id,notnull"`
	Username  string               `bun:"username,notnull"`
	IP        string               `bun:"ip,notnull"`
	Country   string               `bun:"country,notnull"`
	UserAgent string               `bun:"user_agent,notnull"`
	Role      enum.PermissionLevel `bun:"role,notnull"`
	Source    string               `bun:"source,notnull"`
}

// AuditEvent records one moderation or administrative action.
// ID is zero until the event has been persisted.
type AuditEvent struct {
	bun.BaseModel `bun:"table:audit_logs"`

	ID          int64            `bun:"id,pk,autoincrement"`
	Action      string           `bun:"action,notnull"`
	Description string           `bun:"description,type:text"`
	Actor       AuditEventSource `bun:"embed:actor_"`
	Timestamp   time.Time        `bun:"timestamp,notnull"`
}

// NewAuditEvent creates an unsaved event stamped with the current UTC time.
func NewAuditEvent(action, description string, actor AuditEventSource) AuditEvent {
	return AuditEvent{
		Action:      action,
		Description: description,
		Actor:       actor,
		Timestamp:   time.Now().UTC(),
	}
}

// AuditCursor marks a position in the newest-first audit log listing.
type AuditCursor struct {
	Timestamp time.Time
	ID        int64
}
