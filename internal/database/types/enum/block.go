package enum

// BlockType specifies whether a blocklist entry targets a user or a role.
//
//go:generate go tool enumer -type=BlockType -trimprefix=BlockType -transform=lower
type BlockType int

const (
	// BlockTypeUser indicates the blocked ID is a Discord user ID.
	BlockTypeUser BlockType = iota
	// BlockTypeRole indicates the blocked ID is a Discord role ID.
	BlockTypeRole
)

// BlockReason explains why a member was refused access to the ticketing system.
type BlockReason string

const (
	// BlockReasonNone is returned when the member is not blocked.
	BlockReasonNone BlockReason = ""
	// BlockReasonBlockedUser indicates a manual block on the member's own ID.
	BlockReasonBlockedUser BlockReason = "blocked_user"
	// BlockReasonBlockedRole indicates a manual block on one of the member's roles.
	BlockReasonBlockedRole BlockReason = "blocked_role"
	// BlockReasonAccountAge indicates the account is younger than the configured minimum.
	BlockReasonAccountAge BlockReason = "account_age"
	// BlockReasonGuildAge indicates the member joined the guild too recently.
	BlockReasonGuildAge BlockReason = "guild_age"
)

// Description returns a user-facing explanation for the reason.
func (r BlockReason) Description() string {
	switch r {
	case BlockReasonBlockedUser:
		return "You are currently blocked from contacting staff."
	case BlockReasonBlockedRole:
		return "One of your roles is blocked from contacting staff."
	case BlockReasonAccountAge:
		return "Your account is too new to contact staff."
	case BlockReasonGuildAge:
		return "You have not been a member of the server long enough to contact staff."
	case BlockReasonNone:
		return ""
	}

	return string(r)
}
