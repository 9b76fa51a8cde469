package database

import (
	"github.com/modmail-dev/modmail/internal/database/service"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	blocklist *service.BlocklistService
	audit     *service.AuditService
}

// NewService creates a new service instance with all services.
func NewService(repository *Repository, policy service.BlocklistPolicy, logger *zap.Logger) *Service {
	return &Service{
		blocklist: service.NewBlocklist(repository.Blocklist(), policy, logger),
		audit:     service.NewAudit(repository.AuditLog(), logger),
	}
}

// Blocklist returns the blocklist service.
func (s *Service) Blocklist() *service.BlocklistService {
	return s.blocklist
}

// Audit returns the audit service.
func (s *Service) Audit() *service.AuditService {
	return s.audit
}
