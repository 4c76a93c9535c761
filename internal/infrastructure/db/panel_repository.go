package db

import (
	"context"
	"errors"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type panelRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPanelRepository(db *gorm.DB, log *logger.Logger) ports.PanelRepository {
	return &panelRepository{db: db, log: log}
}

func (r *panelRepository) Create(ctx context.Context, panel *domain.Panel) error {
	if err := r.db.WithContext(ctx).Create(panel).Error; err != nil {
		r.log.Errorw("panel_repo_create_failed", "url", panel.URL, "error", err)
		return err
	}
	r.log.Infow("panel_repo_create_ok", "id", panel.ID, "url", panel.URL)
	return nil
}

func (r *panelRepository) GetByID(ctx context.Context, id uint) (*domain.Panel, error) {
	var panel domain.Panel
	if err := r.db.WithContext(ctx).First(&panel, id).Error; err != nil {
		r.log.Errorw("panel_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &panel, nil
}

func (r *panelRepository) GetByURL(ctx context.Context, url string) (*domain.Panel, error) {
	var panel domain.Panel
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&panel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		r.log.Errorw("panel_repo_get_by_url_failed", "url", url, "error", err)
		return nil, err
	}
	return &panel, nil
}

func (r *panelRepository) GetAll(ctx context.Context) ([]domain.Panel, error) {
	var panels []domain.Panel
	if err := r.db.WithContext(ctx).Find(&panels).Error; err != nil {
		r.log.Errorw("panel_repo_list_failed", "error", err)
		return nil, err
	}
	return panels, nil
}

func (r *panelRepository) Update(ctx context.Context, panel *domain.Panel) error {
	if err := r.db.WithContext(ctx).Save(panel).Error; err != nil {
		r.log.Errorw("panel_repo_update_failed", "id", panel.ID, "error", err)
		return err
	}
	r.log.Infow("panel_repo_update_ok", "id", panel.ID)
	return nil
}

func (r *panelRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Panel{}, id).Error; err != nil {
		r.log.Errorw("panel_repo_delete_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("panel_repo_delete_ok", "id", id)
	return nil
}
