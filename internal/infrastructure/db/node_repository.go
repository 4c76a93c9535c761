package db

import (
	"context"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type nodeRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepository(db *gorm.DB, log *logger.Logger) ports.NodeRepository {
	return &nodeRepository{db: db, log: log}
}

func (r *nodeRepository) Create(ctx context.Context, node *domain.Node) error {
	if err := r.db.WithContext(ctx).Create(node).Error; err != nil {
		r.log.Errorw("node_repo_create_failed", "name", node.Name, "panel_id", node.PanelID, "error", err)
		return err
	}
	r.log.Infow("node_repo_create_ok", "id", node.ID, "name", node.Name)
	return nil
}

func (r *nodeRepository) GetByID(ctx context.Context, id uint) (*domain.Node, error) {
	var node domain.Node
	if err := r.db.WithContext(ctx).Preload("SSHProfile").First(&node, id).Error; err != nil {
		r.log.Errorw("node_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &node, nil
}

func (r *nodeRepository) GetByName(ctx context.Context, panelID uint, name string) (*domain.Node, error) {
	var node domain.Node
	err := r.db.WithContext(ctx).
		Where("panel_id = ? AND lower(name) = lower(?)", panelID, name).
		First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *nodeRepository) GetByPanelID(ctx context.Context, panelID uint) ([]domain.Node, error) {
	var nodes []domain.Node
	if err := r.db.WithContext(ctx).Where("panel_id = ?", panelID).Find(&nodes).Error; err != nil {
		r.log.Errorw("node_repo_list_by_panel_failed", "panel_id", panelID, "error", err)
		return nil, err
	}
	return nodes, nil
}

func (r *nodeRepository) GetAll(ctx context.Context) ([]domain.Node, error) {
	var nodes []domain.Node
	if err := r.db.WithContext(ctx).Find(&nodes).Error; err != nil {
		r.log.Errorw("node_repo_list_failed", "error", err)
		return nil, err
	}
	return nodes, nil
}

func (r *nodeRepository) Update(ctx context.Context, node *domain.Node) error {
	if err := r.db.WithContext(ctx).Save(node).Error; err != nil {
		r.log.Errorw("node_repo_update_failed", "id", node.ID, "error", err)
		return err
	}
	r.log.Infow("node_repo_update_ok", "id", node.ID)
	return nil
}

func (r *nodeRepository) UpdateStatus(ctx context.Context, id uint, status domain.NodeStatus, note string) error {
	updates := map[string]interface{}{"status": status, "status_note": note}
	if err := r.db.WithContext(ctx).Model(&domain.Node{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		r.log.Errorw("node_repo_update_status_failed", "id", id, "status", status, "error", err)
		return err
	}
	r.log.Infow("node_repo_update_status_ok", "id", id, "status", status)
	return nil
}

func (r *nodeRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Node{}, id).Error; err != nil {
		r.log.Errorw("node_repo_delete_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("node_repo_delete_ok", "id", id)
	return nil
}
