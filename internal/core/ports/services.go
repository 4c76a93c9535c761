package ports

import (
	"context"

	"github.com/marzdeck/backend/internal/domain"
)

type PanelService interface {
	CreatePanel(ctx context.Context, input CreatePanelInput) (*domain.Panel, error)
	GetPanels(ctx context.Context) ([]domain.Panel, error)
	GetPanelByID(ctx context.Context, id uint) (*domain.Panel, error)
	UpdatePanel(ctx context.Context, id uint, input UpdatePanelInput) (*domain.Panel, error)
	DeletePanel(ctx context.Context, id uint) error
	TestPanel(ctx context.Context, id uint) (*PanelStatus, error)
	GetCertificate(ctx context.Context, id uint, refresh bool) (string, error)
	GetPanelNodes(ctx context.Context, id uint) ([]PanelNodeInfo, error)
}

type CreatePanelInput struct {
	Name     string
	URL      string
	Username string
	Password string
}

type UpdatePanelInput struct {
	Name     *string
	URL      *string
	Username *string
	Password *string
	IsActive *bool
}

type PanelStatus struct {
	Connected     bool   `json:"connected"`
	AdminUsername string `json:"admin_username,omitempty"`
	IsSudo        bool   `json:"is_sudo,omitempty"`
	Error         string `json:"error,omitempty"`
}

type PanelNodeInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	APIPort int    `json:"api_port"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type SSHProfileService interface {
	CreateProfile(ctx context.Context, input SSHProfileInput) (*domain.SSHProfile, error)
	GetProfiles(ctx context.Context) ([]domain.SSHProfile, error)
	GetProfileByID(ctx context.Context, id uint) (*domain.SSHProfile, error)
	UpdateProfile(ctx context.Context, id uint, input SSHProfileInput) (*domain.SSHProfile, error)
	DeleteProfile(ctx context.Context, id uint) error
	TestProfile(ctx context.Context, id uint) (bool, string)
}

type SSHProfileInput struct {
	Name               string
	Host               string
	Port               int
	Username           string
	Password           string
	PrivateKey         string
	UseKeyAuth         bool
	DefaultServicePort int
	DefaultAPIPort     int
}

// CredentialSource names where SSH credentials for a provisioning run come
// from: a saved profile or inline values supplied with the request. Exactly
// one arm is set.
type CredentialSource struct {
	ProfileID *uint
	Inline    *InlineCredentials
}

type InlineCredentials struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey string
}

type InstallNodeInput struct {
	PanelID     uint
	NodeName    string
	Credentials CredentialSource
	ServicePort int
	APIPort     int
	AutoPorts   bool
	Method      domain.InstallMethod
	Inbounds    []string
}

type InstallService interface {
	StartInstall(ctx context.Context, input InstallNodeInput) (string, error)
}

// NodeDeleteOutcome reports what a cascading node delete actually removed.
// Success tracks the local record only; the remote legs are best effort and
// nil when never attempted.
type NodeDeleteOutcome struct {
	Success bool     `json:"success"`
	Local   bool     `json:"local"`
	Marzban *bool    `json:"marzban,omitempty"`
	Server  *bool    `json:"server,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type NodeService interface {
	GetNodes(ctx context.Context) ([]domain.Node, error)
	GetNodesByPanel(ctx context.Context, panelID uint) ([]domain.Node, error)
	GetNodeByID(ctx context.Context, id uint) (*domain.Node, error)
	UpdateNode(ctx context.Context, id uint, input UpdateNodeInput) (*domain.Node, error)
	DeleteNode(ctx context.Context, id uint, fromPanel, fromServer bool) (*NodeDeleteOutcome, error)
	SyncStatus(ctx context.Context, id uint) (*domain.Node, error)
	RemoteStatus(ctx context.Context, id uint) (*RemoteNodeStatus, error)
	RemoteAction(ctx context.Context, id uint, action string) error
	RemoteLogs(ctx context.Context, id uint, lines int) (string, error)
}

type UpdateNodeInput struct {
	Name       *string
	Address    *string
	Status     *domain.NodeStatus
	StatusNote *string
}

type RemoteNodeStatus struct {
	Found       bool   `json:"found"`
	Running     bool   `json:"running"`
	Method      string `json:"method,omitempty"`
	ServicePort int    `json:"service_port,omitempty"`
	APIPort     int    `json:"api_port,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
}

type TemplateService interface {
	CreateTemplate(ctx context.Context, input TemplateInput) (*domain.ConfigTemplate, error)
	GetTemplates(ctx context.Context, protocol, transport string) ([]domain.ConfigTemplate, error)
	GetTemplateByID(ctx context.Context, id uint) (*domain.ConfigTemplate, error)
	UpdateTemplate(ctx context.Context, id uint, input UpdateTemplateInput) (*domain.ConfigTemplate, error)
	DeleteTemplate(ctx context.Context, id uint) error
	DuplicateTemplate(ctx context.Context, id uint, newTag string) (*domain.ConfigTemplate, error)
}

type TemplateInput struct {
	Tag       string
	Protocol  string
	Transport string
	Security  string
	Port      int
	Config    domain.JSONB
}

type UpdateTemplateInput struct {
	Tag       *string
	Protocol  *string
	Transport *string
	Security  *string
	Port      *int
	Config    domain.JSONB
}

type SettingService interface {
	Get(ctx context.Context, key string) (*domain.SystemSetting, error)
	Set(ctx context.Context, key, value, settingType, category string) (*domain.SystemSetting, error)
	GetByCategory(ctx context.Context, category string) ([]domain.SystemSetting, error)
	Delete(ctx context.Context, key string) error
}

type DashboardService interface {
	Overview(ctx context.Context) (*DashboardOverview, error)
}

type DashboardOverview struct {
	Panels         int            `json:"panels"`
	ActivePanels   int            `json:"active_panels"`
	Nodes          int            `json:"nodes"`
	NodesByStatus  map[string]int `json:"nodes_by_status"`
	SSHProfiles    int            `json:"ssh_profiles"`
	JobsRunning    int            `json:"jobs_running"`
	JobsCompleted  int            `json:"jobs_completed"`
	JobsFailed     int            `json:"jobs_failed"`
	RecentActivity interface{}    `json:"recent_activity,omitempty"`
}
