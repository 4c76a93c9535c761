package db

import (
	"context"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type sshProfileRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSSHProfileRepository(db *gorm.DB, log *logger.Logger) ports.SSHProfileRepository {
	return &sshProfileRepository{db: db, log: log}
}

func (r *sshProfileRepository) Create(ctx context.Context, profile *domain.SSHProfile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		r.log.Errorw("ssh_profile_repo_create_failed", "name", profile.Name, "error", err)
		return err
	}
	r.log.Infow("ssh_profile_repo_create_ok", "id", profile.ID, "name", profile.Name)
	return nil
}

func (r *sshProfileRepository) GetByID(ctx context.Context, id uint) (*domain.SSHProfile, error) {
	var profile domain.SSHProfile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		r.log.Errorw("ssh_profile_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &profile, nil
}

func (r *sshProfileRepository) GetByName(ctx context.Context, name string) (*domain.SSHProfile, error) {
	var profile domain.SSHProfile
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *sshProfileRepository) GetAll(ctx context.Context) ([]domain.SSHProfile, error) {
	var profiles []domain.SSHProfile
	if err := r.db.WithContext(ctx).Order("name asc").Find(&profiles).Error; err != nil {
		r.log.Errorw("ssh_profile_repo_list_failed", "error", err)
		return nil, err
	}
	return profiles, nil
}

func (r *sshProfileRepository) Update(ctx context.Context, profile *domain.SSHProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		r.log.Errorw("ssh_profile_repo_update_failed", "id", profile.ID, "error", err)
		return err
	}
	r.log.Infow("ssh_profile_repo_update_ok", "id", profile.ID)
	return nil
}

func (r *sshProfileRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.SSHProfile{}, id).Error; err != nil {
		r.log.Errorw("ssh_profile_repo_delete_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("ssh_profile_repo_delete_ok", "id", id)
	return nil
}
