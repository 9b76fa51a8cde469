package service

import (
	"context"

	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"go.uber.org/zap"
)

const (
	// AuditUserAgent is recorded for actions performed through Discord.
	AuditUserAgent = "Discord"
	// AuditSource identifies this application in audit events.
	AuditSource = "modmail"
)

// PermissionResolver determines the permission level of a member.
type PermissionResolver interface {
	Resolve(ctx context.Context, member types.Member) enum.PermissionLevel
}

// AuditService handles recording of moderation actions.
type AuditService struct {
	model  *models.AuditLogModel
	logger *zap.Logger
}

// NewAudit creates a new audit service.
func NewAudit(model *models.AuditLogModel, logger *zap.Logger) *AuditService {
	return &AuditService{
		model:  model,
		logger: logger.Named("audit_service"),
	}
}

// NewAuditEventSource describes a Discord member as the actor of an audit event.
// The permission level is resolved now, so later role changes do not alter the record.
func NewAuditEventSource(
	ctx context.Context, resolver PermissionResolver, member types.Member,
) types.AuditEventSource {
	return types.AuditEventSource{
		UserID:    member.ID,
		Username:  member.Username,
		UserAgent: AuditUserAgent,
		Role:      resolver.Resolve(ctx, member),
		Source:    AuditSource,
	}
}

// Push appends a prebuilt event and returns its assigned ID.
func (s *AuditService) Push(ctx context.Context, event types.AuditEvent) (int64, error) {
	return s.model.Push(ctx, event)
}

// Record builds an event stamped with the current time and appends it.
func (s *AuditService) Record(
	ctx context.Context, action, description string, actor types.AuditEventSource,
) (int64, error) {
	id, err := s.model.Push(ctx, types.NewAuditEvent(action, description, actor))
	if err != nil {
		s.logger.Error("Failed to record audit event",
			zap.String("action", action),
			zap.Uint64("actor", actor.UserID),
			zap.Error(err))

		return 0, err
	}

	return id, nil
}

// GetAuditEvent retrieves a single event by ID.
func (s *AuditService) GetAuditEvent(ctx context.Context, id int64) (*types.AuditEvent, error) {
	return s.model.GetAuditEvent(ctx, id)
}

// GetAuditEvents lists events newest first.
func (s *AuditService) GetAuditEvents(
	ctx context.Context, cursor *types.AuditCursor, limit int,
) ([]*types.AuditEvent, *types.AuditCursor, error) {
	return s.model.GetAuditEvents(ctx, cursor, limit)
}
