package services

import (
	"context"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
)

type settingService struct {
	repo ports.SystemSettingRepository
	log  *logger.Logger
}

func NewSettingService(repo ports.SystemSettingRepository, log *logger.Logger) ports.SettingService {
	return &settingService{repo: repo, log: log}
}

func (s *settingService) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	return s.repo.Get(ctx, key)
}

func (s *settingService) Set(ctx context.Context, key, value, settingType, category string) (*domain.SystemSetting, error) {
	if settingType == "" {
		settingType = "string"
	}
	setting := &domain.SystemSetting{
		Key:      key,
		Value:    value,
		Type:     settingType,
		Category: category,
	}
	if err := s.repo.Set(ctx, setting); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, key)
}

func (s *settingService) GetByCategory(ctx context.Context, category string) ([]domain.SystemSetting, error) {
	return s.repo.GetByCategory(ctx, category)
}

func (s *settingService) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
