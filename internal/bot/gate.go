package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/modmail-dev/modmail/internal/bot/utils"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"go.uber.org/zap"
)

// BlockChecker decides whether a member may open a thread.
type BlockChecker interface {
	IsUserBlocked(ctx context.Context, member types.Member) (bool, enum.BlockReason, error)
	IsIDBlocked(ctx context.Context, id uint64) (bool, *types.BlocklistEntry, error)
}

// Gate screens incoming direct messages against the blocklist.
type Gate struct {
	checker BlockChecker
	logger  *zap.Logger
}

// NewGate creates a direct message gate.
func NewGate(checker BlockChecker, logger *zap.Logger) *Gate {
	return &Gate{
		checker: checker,
		logger:  logger.Named("dm_gate"),
	}
}

// Check returns whether the member may contact staff and, if not, the reply explaining why.
func (g *Gate) Check(ctx context.Context, member types.Member) (bool, string, error) {
	blocked, reason, err := g.checker.IsUserBlocked(ctx, member)
	if err != nil {
		return false, "", fmt.Errorf("failed to check blocklist: %w", err)
	}

	if !blocked {
		return true, "", nil
	}

	g.logger.Debug("Refused direct message",
		zap.Uint64("user_id", member.ID),
		zap.String("reason", string(reason)))

	var b strings.Builder
	b.WriteString(reason.Description())

	// Tell the user when their manual block ends
	if reason == enum.BlockReasonBlockedUser {
		if ok, entry, err := g.checker.IsIDBlocked(ctx, member.ID); err == nil && ok {
			if entry.ExpiresAt != nil {
				b.WriteString(" The block ends " + utils.FormatTimestamp(*entry.ExpiresAt, "R") + ".")
			}

			if entry.Reason != nil && *entry.Reason != "" {
				b.WriteString("\nReason: " + *entry.Reason)
			}
		}
	}

	return false, b.String(), nil
}
