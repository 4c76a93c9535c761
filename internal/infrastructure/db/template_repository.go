package db

import (
	"context"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type templateRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateRepository(db *gorm.DB, log *logger.Logger) ports.TemplateRepository {
	return &templateRepository{db: db, log: log}
}

func (r *templateRepository) Create(ctx context.Context, template *domain.ConfigTemplate) error {
	if err := r.db.WithContext(ctx).Create(template).Error; err != nil {
		r.log.Errorw("template_repo_create_failed", "tag", template.Tag, "error", err)
		return err
	}
	r.log.Infow("template_repo_create_ok", "id", template.ID, "tag", template.Tag)
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id uint) (*domain.ConfigTemplate, error) {
	var template domain.ConfigTemplate
	if err := r.db.WithContext(ctx).First(&template, id).Error; err != nil {
		r.log.Errorw("template_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) GetByTag(ctx context.Context, tag string) (*domain.ConfigTemplate, error) {
	var template domain.ConfigTemplate
	if err := r.db.WithContext(ctx).Where("tag = ?", tag).First(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) GetAll(ctx context.Context, protocol, transport string) ([]domain.ConfigTemplate, error) {
	query := r.db.WithContext(ctx)
	if protocol != "" {
		query = query.Where("protocol = ?", protocol)
	}
	if transport != "" {
		query = query.Where("transport = ?", transport)
	}

	var templates []domain.ConfigTemplate
	if err := query.Order("tag asc").Find(&templates).Error; err != nil {
		r.log.Errorw("template_repo_list_failed", "error", err)
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) Update(ctx context.Context, template *domain.ConfigTemplate) error {
	if err := r.db.WithContext(ctx).Save(template).Error; err != nil {
		r.log.Errorw("template_repo_update_failed", "id", template.ID, "error", err)
		return err
	}
	r.log.Infow("template_repo_update_ok", "id", template.ID)
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.ConfigTemplate{}, id).Error; err != nil {
		r.log.Errorw("template_repo_delete_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("template_repo_delete_ok", "id", id)
	return nil
}
