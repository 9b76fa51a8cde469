package types

import (
	"time"

	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// BlocklistEntry represents a single block on a Discord user or role.
// Entries are never updated in place; they are inserted, then removed by
// an unblock or once they expire.
type BlocklistEntry struct {
	bun.BaseModel `bun:"table:blocklist"`

	RowID          int64          `bun:"row_id,pk,autoincrement"`  // Store-assigned row identifier
	ID             uint64         `bun:"id,notnull"`               // Discord user or role ID
	ExpiresAt      *time.Time     `bun:"expires_at,nullzero"`      // When the block expires (null for indefinite)
	Reason         *string        `bun:"reason,type:text"`         // Optional reason for the block
	Timestamp      time.Time      `bun:"timestamp,notnull"`        // When the block was created
	BlockingUserID uint64         `bun:"blocking_user_id,notnull"` // Discord ID of the issuing actor (0 if unknown)
	Type           enum.BlockType `bun:"type,notnull"`             // Whether ID is a user or a role
}

// IsExpired checks if the block has expired at the given time.
func (e *BlocklistEntry) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// IsPermanent checks if the block has no expiry.
func (e *BlocklistEntry) IsPermanent() bool {
	return e.ExpiresAt == nil
}

// ReasonOrDefault returns the reason or a placeholder when none was given.
func (e *BlocklistEntry) ReasonOrDefault() string {
	if e.Reason == nil || *e.Reason == "" {
		return "No reason provided"
	}

	return *e.Reason
}
