package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modmail-dev/modmail/internal/bot/constants"
	"github.com/modmail-dev/modmail/internal/bot/utils"
	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/modmail-dev/modmail/internal/database/service"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	pkgutils "github.com/modmail-dev/modmail/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrPermissionDenied is returned when the invoking member lacks the required level.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidInput is returned for option values that cannot be used.
	ErrInvalidInput = errors.New("invalid input")
)

// Blocklist is the blocklist surface used by the commands.
type Blocklist interface {
	BlockID(
		ctx context.Context, targetID uint64, expiresAt *time.Time, reason string, blockedBy uint64, blockType enum.BlockType,
	) (*types.BlocklistEntry, error)
	UnblockID(ctx context.Context, id uint64) (bool, error)
	IsIDBlocked(ctx context.Context, id uint64) (bool, *types.BlocklistEntry, error)
	GetAllBlocks(ctx context.Context) ([]*types.BlocklistEntry, error)
}

// AuditLog is the audit surface used by the commands.
type AuditLog interface {
	Record(ctx context.Context, action, description string, actor types.AuditEventSource) (int64, error)
	GetAuditEvent(ctx context.Context, id int64) (*types.AuditEvent, error)
	GetAuditEvents(ctx context.Context, cursor *types.AuditCursor, limit int) ([]*types.AuditEvent, *types.AuditCursor, error)
}

// PermissionChecker resolves member permission levels.
type PermissionChecker interface {
	service.PermissionResolver
	HasLevel(ctx context.Context, member types.Member, level enum.PermissionLevel) bool
}

// requiredLevels lists the minimum permission level of each command.
var requiredLevels = map[string]enum.PermissionLevel{ //nolint:gochecknoglobals // -
	constants.BlockCommandName:   enum.PermissionLevelModerator,
	constants.UnblockCommandName: enum.PermissionLevelModerator,
	constants.BlockedCommandName: enum.PermissionLevelSupporter,
	constants.AuditCommandName:   enum.PermissionLevelAdministrator,
}

// Commands implements the moderation slash commands independent of the gateway.
// Every method returns the reply to show the invoking member.
type Commands struct {
	blocklist   Blocklist
	audit       AuditLog
	permissions PermissionChecker
	now         func() time.Time
	logger      *zap.Logger
}

// NewCommands creates the command handlers.
func NewCommands(blocklist Blocklist, audit AuditLog, permissions PermissionChecker, logger *zap.Logger) *Commands {
	return &Commands{
		blocklist:   blocklist,
		audit:       audit,
		permissions: permissions,
		now:         time.Now,
		logger:      logger.Named("commands"),
	}
}

// authorize checks the member against the command's required level.
func (c *Commands) authorize(ctx context.Context, command string, actor types.Member) error {
	level, ok := requiredLevels[command]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrInvalidInput, command)
	}

	if !c.permissions.HasLevel(ctx, actor, level) {
		return fmt.Errorf("%w: %s requires %s", ErrPermissionDenied, command, level)
	}

	return nil
}

// Block blocks a user or role, optionally for a limited duration.
func (c *Commands) Block(
	ctx context.Context, actor types.Member, targetID uint64, blockType enum.BlockType, duration, reason string,
) (string, error) {
	if err := c.authorize(ctx, constants.BlockCommandName, actor); err != nil {
		return "", err
	}

	if targetID == actor.ID && blockType == enum.BlockTypeUser {
		return "", fmt.Errorf("%w: you cannot block yourself", ErrInvalidInput)
	}

	blocked, existing, err := c.blocklist.IsIDBlocked(ctx, targetID)
	if err != nil {
		return "", err
	}

	if blocked {
		return "Already blocked: " + utils.FormatBlock(existing), nil
	}

	var expiresAt *time.Time

	if strings.TrimSpace(duration) != "" {
		d, err := pkgutils.ParseDuration(duration)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}

		until := c.now().UTC().Add(d)
		expiresAt = &until
	}

	reason = pkgutils.Truncate(pkgutils.CompressAllWhitespace(reason), constants.MaxReasonLength)

	entry, err := c.blocklist.BlockID(ctx, targetID, expiresAt, reason, actor.ID, blockType)
	if err != nil {
		return "", err
	}

	c.record(ctx, actor, constants.AuditActionBlock, fmt.Sprintf("Blocked %s %d: %s", blockType, targetID, entry.ReasonOrDefault()))

	return "Blocked " + utils.FormatBlock(entry), nil
}

// Unblock removes every block on the given id.
func (c *Commands) Unblock(ctx context.Context, actor types.Member, targetID uint64) (string, error) {
	if err := c.authorize(ctx, constants.UnblockCommandName, actor); err != nil {
		return "", err
	}

	removed, err := c.blocklist.UnblockID(ctx, targetID)
	if err != nil {
		return "", err
	}

	if !removed {
		return fmt.Sprintf("`%d` is not blocked.", targetID), nil
	}

	c.record(ctx, actor, constants.AuditActionUnblock, fmt.Sprintf("Unblocked %d", targetID))

	return fmt.Sprintf("Unblocked `%d`.", targetID), nil
}

// Blocked lists the active blocks.
func (c *Commands) Blocked(ctx context.Context, actor types.Member) (string, error) {
	if err := c.authorize(ctx, constants.BlockedCommandName, actor); err != nil {
		return "", err
	}

	entries, err := c.blocklist.GetAllBlocks(ctx)
	if err != nil {
		return "", err
	}

	return utils.FormatBlockList(entries, constants.MaxMessageLength), nil
}

// Audit shows one audit event, or the most recent events when id is zero.
func (c *Commands) Audit(ctx context.Context, actor types.Member, id int64) (string, error) {
	if err := c.authorize(ctx, constants.AuditCommandName, actor); err != nil {
		return "", err
	}

	if id <= 0 {
		return c.recentAudit(ctx)
	}

	event, err := c.audit.GetAuditEvent(ctx, id)
	if errors.Is(err, models.ErrAuditEventNotFound) {
		return fmt.Sprintf("Audit event #%d does not exist.", id), nil
	}

	if err != nil {
		return "", err
	}

	return utils.FormatAuditEvent(event), nil
}

// recentAudit lists the newest audit events.
func (c *Commands) recentAudit(ctx context.Context) (string, error) {
	events, _, err := c.audit.GetAuditEvents(ctx, nil, constants.RecentAuditEvents)
	if err != nil {
		return "", err
	}

	if len(events) == 0 {
		return "The audit log is empty.", nil
	}

	parts := make([]string, 0, len(events))
	for _, event := range events {
		parts = append(parts, utils.FormatAuditEvent(event))
	}

	return pkgutils.Truncate(strings.Join(parts, "\n\n"), constants.MaxMessageLength), nil
}

// record appends an audit event. Failures are logged because the action itself already happened.
func (c *Commands) record(ctx context.Context, actor types.Member, action, description string) {
	source := service.NewAuditEventSource(ctx, c.permissions, actor)

	if _, err := c.audit.Record(ctx, action, description, source); err != nil {
		c.logger.Error("Failed to record audit event",
			zap.String("action", action),
			zap.Uint64("actor", actor.ID),
			zap.Error(err))
	}
}

// ReplyForError maps command errors to a reply. Unexpected errors get a generic message.
func ReplyForError(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to use this command."
	case errors.Is(err, ErrInvalidInput):
		_, detail, _ := strings.Cut(err.Error(), ": ")
		return "Invalid input: " + detail
	default:
		return "Something went wrong. Please try again later."
	}
}
