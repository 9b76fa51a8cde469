package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"go.uber.org/zap"
)

// BlocklistPolicy holds the configurable parts of the block check.
// A zero duration disables the matching age restriction.
type BlocklistPolicy struct {
	WhitelistedUsers []uint64
	AccountAge       time.Duration
	GuildAge         time.Duration
}

// policySnapshot is an immutable view of a BlocklistPolicy used by a single check.
type policySnapshot struct {
	whitelist  map[uint64]struct{}
	accountAge time.Duration
	guildAge   time.Duration
}

// BlocklistService handles block checks and block management.
type BlocklistService struct {
	model  *models.BlocklistModel
	policy atomic.Pointer[policySnapshot]
	now    func() time.Time
	logger *zap.Logger
}

// NewBlocklist creates a new blocklist service.
func NewBlocklist(model *models.BlocklistModel, policy BlocklistPolicy, logger *zap.Logger) *BlocklistService {
	s := &BlocklistService{
		model:  model,
		now:    time.Now,
		logger: logger.Named("blocklist_service"),
	}
	s.SetPolicy(policy)

	return s
}

// SetPolicy replaces the active policy. Checks already in progress keep the policy they started with.
func (s *BlocklistService) SetPolicy(policy BlocklistPolicy) {
	whitelist := make(map[uint64]struct{}, len(policy.WhitelistedUsers))
	for _, id := range policy.WhitelistedUsers {
		whitelist[id] = struct{}{}
	}

	s.policy.Store(&policySnapshot{
		whitelist:  whitelist,
		accountAge: policy.AccountAge,
		guildAge:   policy.GuildAge,
	})
}

// Policy returns a copy of the active policy.
func (s *BlocklistService) Policy() BlocklistPolicy {
	snapshot := s.policy.Load()

	users := make([]uint64, 0, len(snapshot.whitelist))
	for id := range snapshot.whitelist {
		users = append(users, id)
	}

	return BlocklistPolicy{
		WhitelistedUsers: users,
		AccountAge:       snapshot.accountAge,
		GuildAge:         snapshot.guildAge,
	}
}

// Setup prepares the blocklist store.
func (s *BlocklistService) Setup(ctx context.Context) error {
	return s.model.Setup(ctx)
}

// BlockID blocks a user or role, stamping the entry with the current UTC time.
func (s *BlocklistService) BlockID(
	ctx context.Context,
	targetID uint64,
	expiresAt *time.Time,
	reason string,
	blockedBy uint64,
	blockType enum.BlockType,
) (*types.BlocklistEntry, error) {
	entry := &types.BlocklistEntry{
		ID:             targetID,
		Timestamp:      s.now().UTC(),
		BlockingUserID: blockedBy,
		Type:           blockType,
	}

	if expiresAt != nil {
		utc := expiresAt.UTC()
		entry.ExpiresAt = &utc
	}

	if reason != "" {
		entry.Reason = &reason
	}

	if err := s.model.AddBlock(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Blocked id",
		zap.Uint64("id", targetID),
		zap.String("type", blockType.String()),
		zap.Uint64("blocked_by", blockedBy),
		zap.Bool("permanent", entry.IsPermanent()))

	return entry, nil
}

// AddBlock inserts a prebuilt entry.
func (s *BlocklistService) AddBlock(ctx context.Context, entry *types.BlocklistEntry) error {
	return s.model.AddBlock(ctx, entry)
}

// UnblockID removes every block on the given ID. Returns true if anything was removed.
func (s *BlocklistService) UnblockID(ctx context.Context, id uint64) (bool, error) {
	removed, err := s.model.UnblockID(ctx, id)
	if err != nil {
		return false, err
	}

	if removed {
		s.logger.Info("Unblocked id", zap.Uint64("id", id))
	}

	return removed, nil
}

// IsIDBlocked checks for an active manual block on the ID. Age policies are not considered.
func (s *BlocklistService) IsIDBlocked(ctx context.Context, id uint64) (bool, *types.BlocklistEntry, error) {
	return s.model.IsIDBlocked(ctx, id)
}

// GetAllBlocks lists every active block.
func (s *BlocklistService) GetAllBlocks(ctx context.Context) ([]*types.BlocklistEntry, error) {
	return s.model.GetAllBlocks(ctx)
}

// IsUserBlocked decides whether a member may contact staff.
// Checks run in order and the first match wins: whitelist, user block,
// role block, account age, guild age.
func (s *BlocklistService) IsUserBlocked(ctx context.Context, member types.Member) (bool, enum.BlockReason, error) {
	policy := s.policy.Load()

	if _, ok := policy.whitelist[member.ID]; ok {
		return false, enum.BlockReasonNone, nil
	}

	blocked, _, err := s.model.IsIDBlocked(ctx, member.ID)
	if err != nil {
		return false, enum.BlockReasonNone, fmt.Errorf("failed to check user block: %w", err)
	}

	if blocked {
		return true, enum.BlockReasonBlockedUser, nil
	}

	blocked, err = s.model.AnyBlocked(ctx, member.RoleIDs)
	if err != nil {
		return false, enum.BlockReasonNone, fmt.Errorf("failed to check role blocks: %w", err)
	}

	if blocked {
		return true, enum.BlockReasonBlockedRole, nil
	}

	if !s.validAccountAge(policy, member) {
		return true, enum.BlockReasonAccountAge, nil
	}

	if !s.validGuildAge(policy, member) {
		return true, enum.BlockReasonGuildAge, nil
	}

	return false, enum.BlockReasonNone, nil
}

// IsValidAccountAge checks if the member's account is at least as old as the configured minimum.
func (s *BlocklistService) IsValidAccountAge(member types.Member) bool {
	return s.validAccountAge(s.policy.Load(), member)
}

// IsValidGuildAge checks if the member joined the guild at least the configured minimum ago.
func (s *BlocklistService) IsValidGuildAge(member types.Member) bool {
	return s.validGuildAge(s.policy.Load(), member)
}

func (s *BlocklistService) validAccountAge(policy *policySnapshot, member types.Member) bool {
	if policy.accountAge <= 0 {
		return true
	}

	return !s.now().Before(member.CreatedAt.Add(policy.accountAge))
}

func (s *BlocklistService) validGuildAge(policy *policySnapshot, member types.Member) bool {
	if policy.guildAge <= 0 {
		return true
	}

	if member.JoinedAt == nil {
		s.logger.Warn("Member is not in the guild, cannot verify guild age",
			zap.Uint64("user_id", member.ID),
			zap.String("username", member.Username))

		return false
	}

	return !s.now().Before(member.JoinedAt.Add(policy.guildAge))
}
