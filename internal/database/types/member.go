package types

import "time"

// Member is the subset of a Discord guild member the moderation checks need.
type Member struct {
	ID        uint64
	Username  string
	RoleIDs   []uint64
	CreatedAt time.Time  // Account creation time, derived from the snowflake
	JoinedAt  *time.Time // Guild join time, nil when the user is not in the guild
}
