package db

import (
	"context"
	"errors"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type panelCredentialRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPanelCredentialRepository(db *gorm.DB, log *logger.Logger) ports.PanelCredentialRepository {
	return &panelCredentialRepository{db: db, log: log}
}

func (r *panelCredentialRepository) Upsert(ctx context.Context, cred *domain.PanelCredential) error {
	var existing domain.PanelCredential
	err := r.db.WithContext(ctx).Where("panel_id = ?", cred.PanelID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := r.db.WithContext(ctx).Create(cred).Error; err != nil {
				r.log.Errorw("panel_cred_repo_create_failed", "panel_id", cred.PanelID, "error", err)
				return err
			}
			r.log.Infow("panel_cred_repo_create_ok", "panel_id", cred.PanelID)
			return nil
		}
		r.log.Errorw("panel_cred_repo_get_for_upsert_failed", "panel_id", cred.PanelID, "error", err)
		return err
	}

	existing.Username = cred.Username
	existing.Password = cred.Password
	existing.AccessToken = cred.AccessToken
	existing.TokenExpiresAt = cred.TokenExpiresAt
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		r.log.Errorw("panel_cred_repo_update_failed", "panel_id", cred.PanelID, "error", err)
		return err
	}
	cred.ID = existing.ID
	r.log.Infow("panel_cred_repo_update_ok", "panel_id", cred.PanelID)
	return nil
}

func (r *panelCredentialRepository) GetByPanelID(ctx context.Context, panelID uint) (*domain.PanelCredential, error) {
	var cred domain.PanelCredential
	if err := r.db.WithContext(ctx).Where("panel_id = ?", panelID).First(&cred).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("panel_cred_repo_get_failed", "panel_id", panelID, "error", err)
		}
		return nil, err
	}
	return &cred, nil
}

func (r *panelCredentialRepository) DeleteByPanelID(ctx context.Context, panelID uint) error {
	if err := r.db.WithContext(ctx).Where("panel_id = ?", panelID).Delete(&domain.PanelCredential{}).Error; err != nil {
		r.log.Errorw("panel_cred_repo_delete_failed", "panel_id", panelID, "error", err)
		return err
	}
	return nil
}
