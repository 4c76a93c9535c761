package db

import (
	"context"
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type auditRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepository(db *gorm.DB, log *logger.Logger) ports.AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Errorw("audit_repo_create_failed", "entity_type", entry.EntityType, "action", entry.Action, "error", err)
		return err
	}
	return nil
}

func (r *auditRepository) GetByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at desc").
		Limit(50).
		Find(&entries).Error
	if err != nil {
		r.log.Errorw("audit_repo_get_by_entity_failed", "entity_type", entityType, "entity_id", entityID, "error", err)
		return nil, err
	}
	return entries, nil
}

func (r *auditRepository) GetAll(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []domain.AuditLog
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		r.log.Errorw("audit_repo_list_failed", "error", err)
		return nil, err
	}
	return entries, nil
}

func (r *auditRepository) CleanupOld(ctx context.Context, olderThanDays int) error {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	if err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.AuditLog{}).Error; err != nil {
		r.log.Errorw("audit_repo_cleanup_failed", "error", err)
		return err
	}
	r.log.Infow("audit_repo_cleanup_ok", "older_than_days", olderThanDays)
	return nil
}
