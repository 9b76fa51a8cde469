package enum

// PermissionLevel is the modmail permission tier of a Discord member.
//
//go:generate go tool enumer -type=PermissionLevel -trimprefix=PermissionLevel -transform=lower
type PermissionLevel int

const (
	PermissionLevelInvalid       PermissionLevel = -1
	PermissionLevelRegular       PermissionLevel = 1
	PermissionLevelSupporter     PermissionLevel = 2
	PermissionLevelModerator     PermissionLevel = 3
	PermissionLevelAdministrator PermissionLevel = 4
	PermissionLevelOwner         PermissionLevel = 5
)

// PermissionLevels lists every assignable level from highest to lowest.
var PermissionLevels = []PermissionLevel{ //nolint:gochecknoglobals // -
	PermissionLevelOwner,
	PermissionLevelAdministrator,
	PermissionLevelModerator,
	PermissionLevelSupporter,
	PermissionLevelRegular,
}
