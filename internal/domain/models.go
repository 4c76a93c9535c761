package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ==================== ENUMS ====================

type NodeStatus string

const (
	NodeStatusConnecting NodeStatus = "connecting"
	NodeStatusConnected  NodeStatus = "connected"
	NodeStatusError      NodeStatus = "error"
	NodeStatusDisabled   NodeStatus = "disabled"
)

type InstallMethod string

const (
	InstallMethodDocker InstallMethod = "docker"
	InstallMethodNormal InstallMethod = "normal"
)

// ==================== JSONB ====================

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSONB: invalid type")
	}
	return json.Unmarshal(bytes, j)
}

// ==================== ENTITIES ====================

// Panel is a Marzban panel this deployment manages nodes for. The panel is
// the system of record for node inventory; we keep credentials and a cached
// node certificate locally.
type Panel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name        string `gorm:"size:255;not null" json:"name"`
	URL         string `gorm:"size:512;uniqueIndex;not null" json:"url"`
	Certificate string `gorm:"type:text" json:"-"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Credential *PanelCredential `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Nodes      []Node           `gorm:"foreignKey:PanelID" json:"nodes,omitempty"`
}

// PanelCredential stores the admin login for a panel. Password is encrypted
// at rest; AccessToken is the last bearer token obtained from the panel.
type PanelCredential struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PanelID        uint       `gorm:"uniqueIndex;not null" json:"panel_id"`
	Username       string     `gorm:"size:255;not null" json:"username"`
	Password       string     `gorm:"type:text" json:"-"`
	AccessToken    string     `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

// SSHProfile is a durable, named bundle of SSH credentials reusable across
// node installations. Password and PrivateKey are encrypted at rest.
type SSHProfile struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name       string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Host       string `gorm:"size:255;not null" json:"host"`
	Port       int    `gorm:"default:22" json:"port"`
	Username   string `gorm:"size:255;not null" json:"username"`
	Password   string `gorm:"type:text" json:"-"`
	PrivateKey string `gorm:"type:text" json:"-"`
	UseKeyAuth bool   `gorm:"default:false" json:"use_key_auth"`

	DefaultServicePort int `gorm:"default:62050" json:"default_service_port"`
	DefaultAPIPort     int `gorm:"default:62051" json:"default_api_port"`
}

// Node is a locally tracked VPN relay node. Ports reflect what the CLI tool
// actually bound, which may differ from what was requested.
type Node struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PanelID     uint       `gorm:"not null;index" json:"panel_id"`
	Panel       *Panel     `gorm:"constraint:OnDelete:CASCADE" json:"panel,omitempty"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Address     string     `gorm:"size:255;not null" json:"address"`
	ServicePort int        `gorm:"default:62050" json:"service_port"`
	APIPort     int        `gorm:"default:62051" json:"api_port"`
	Status      NodeStatus `gorm:"size:20;not null;default:'connecting'" json:"status"`
	StatusNote  string     `gorm:"type:text" json:"status_note,omitempty"`
	InstallDir  string     `gorm:"size:512" json:"install_dir,omitempty"`
	DataDir     string     `gorm:"size:512" json:"data_dir,omitempty"`

	SSHProfileID *uint       `gorm:"index" json:"ssh_profile_id,omitempty"`
	SSHProfile   *SSHProfile `json:"ssh_profile,omitempty"`
}

// AuditLog records a structured before/after change entry.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	EntityType    string `gorm:"size:100;not null;index" json:"entity_type"`
	EntityID      uint   `gorm:"index" json:"entity_id"`
	Action        string `gorm:"size:100;not null" json:"action"`
	Description   string `gorm:"type:text" json:"description"`
	OldValue      JSONB  `gorm:"type:jsonb" json:"old_value,omitempty"`
	NewValue      JSONB  `gorm:"type:jsonb" json:"new_value,omitempty"`
	PerformedByIP string `gorm:"size:45" json:"performed_by_ip,omitempty"`
}

// ConfigTemplate is a reusable inbound configuration preset. Tag is the
// user-facing identifier and stays unique across live templates.
type ConfigTemplate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Tag       string `gorm:"size:255;uniqueIndex;not null" json:"tag"`
	Protocol  string `gorm:"size:50;not null;index" json:"protocol"`
	Transport string `gorm:"size:50;index" json:"transport"`
	Security  string `gorm:"size:50" json:"security"`
	Port      int    `json:"port"`
	Config    JSONB  `gorm:"type:jsonb" json:"config"`
}

type SystemSetting struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Key      string `gorm:"size:255;uniqueIndex;not null" json:"key"`
	Value    string `gorm:"type:text" json:"value"`
	Type     string `gorm:"size:50;default:'string'" json:"type"`
	Category string `gorm:"size:100;index" json:"category"`
}
