package db

import (
	"github.com/marzdeck/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Panel{},
		&domain.PanelCredential{},
		&domain.SSHProfile{},
		&domain.Node{},
		&domain.AuditLog{},
		&domain.SystemSetting{},
		&domain.ConfigTemplate{},
	)
	if err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Node names are unique within a panel; deleted rows do not block reuse.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_panel_name
		ON nodes (panel_id, lower(name))
		WHERE deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	// Audit lookups scan by entity.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_logs_entity
		ON audit_logs (entity_type, entity_id)
	`).Error; err != nil {
		return err
	}

	return nil
}
