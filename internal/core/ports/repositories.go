package ports

import (
	"context"

	"github.com/marzdeck/backend/internal/domain"
)

type PanelRepository interface {
	Create(ctx context.Context, panel *domain.Panel) error
	GetByID(ctx context.Context, id uint) (*domain.Panel, error)
	GetByURL(ctx context.Context, url string) (*domain.Panel, error)
	GetAll(ctx context.Context) ([]domain.Panel, error)
	Update(ctx context.Context, panel *domain.Panel) error
	Delete(ctx context.Context, id uint) error
}

type PanelCredentialRepository interface {
	Upsert(ctx context.Context, cred *domain.PanelCredential) error
	GetByPanelID(ctx context.Context, panelID uint) (*domain.PanelCredential, error)
	DeleteByPanelID(ctx context.Context, panelID uint) error
}

type SSHProfileRepository interface {
	Create(ctx context.Context, profile *domain.SSHProfile) error
	GetByID(ctx context.Context, id uint) (*domain.SSHProfile, error)
	GetByName(ctx context.Context, name string) (*domain.SSHProfile, error)
	GetAll(ctx context.Context) ([]domain.SSHProfile, error)
	Update(ctx context.Context, profile *domain.SSHProfile) error
	Delete(ctx context.Context, id uint) error
}

type NodeRepository interface {
	Create(ctx context.Context, node *domain.Node) error
	GetByID(ctx context.Context, id uint) (*domain.Node, error)
	GetByName(ctx context.Context, panelID uint, name string) (*domain.Node, error)
	GetByPanelID(ctx context.Context, panelID uint) ([]domain.Node, error)
	GetAll(ctx context.Context) ([]domain.Node, error)
	Update(ctx context.Context, node *domain.Node) error
	UpdateStatus(ctx context.Context, id uint, status domain.NodeStatus, note string) error
	Delete(ctx context.Context, id uint) error
}

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.AuditLog, error)
	GetAll(ctx context.Context, limit int) ([]domain.AuditLog, error)
	CleanupOld(ctx context.Context, olderThanDays int) error
}

type TemplateRepository interface {
	Create(ctx context.Context, template *domain.ConfigTemplate) error
	GetByID(ctx context.Context, id uint) (*domain.ConfigTemplate, error)
	GetByTag(ctx context.Context, tag string) (*domain.ConfigTemplate, error)
	GetAll(ctx context.Context, protocol, transport string) ([]domain.ConfigTemplate, error)
	Update(ctx context.Context, template *domain.ConfigTemplate) error
	Delete(ctx context.Context, id uint) error
}

type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*domain.SystemSetting, error)
	Set(ctx context.Context, setting *domain.SystemSetting) error
	GetByCategory(ctx context.Context, category string) ([]domain.SystemSetting, error)
	Delete(ctx context.Context, key string) error
}
