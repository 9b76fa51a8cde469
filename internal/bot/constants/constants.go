// Package constants holds the slash command and option names the bot registers.
package constants

const (
	// Commands.
	BlockCommandName   = "block"
	UnblockCommandName = "unblock"
	BlockedCommandName = "blocked"
	AuditCommandName   = "audit"

	// Options.
	TargetOptionName   = "target"
	DurationOptionName = "duration"
	ReasonOptionName   = "reason"
	IDOptionName       = "id"

	// Audit actions.
	AuditActionBlock   = "blocklist.block"
	AuditActionUnblock = "blocklist.unblock"

	// Limits.
	MaxReasonLength   = 512
	MaxMessageLength  = 2000
	RecentAuditEvents = 10
)
