package database

import (
	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	blocklist *models.BlocklistModel
	auditLog  *models.AuditLogModel
	threadLog *models.ThreadLogModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		blocklist: models.NewBlocklist(db, logger),
		auditLog:  models.NewAuditLog(db, logger),
		threadLog: models.NewThreadLog(db, logger),
	}
}

// Blocklist returns the blocklist model repository.
func (r *Repository) Blocklist() *models.BlocklistModel {
	return r.blocklist
}

// AuditLog returns the audit log model repository.
func (r *Repository) AuditLog() *models.AuditLogModel {
	return r.auditLog
}

// ThreadLog returns the thread log model repository.
func (r *Repository) ThreadLog() *models.ThreadLogModel {
	return r.threadLog
}
