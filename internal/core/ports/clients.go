package ports

import (
	"context"
	"os"
	"time"

	"github.com/marzdeck/backend/internal/infrastructure/panel"
	"github.com/marzdeck/backend/internal/infrastructure/remote"
)

// PanelAPI is the slice of the panel client the services consume.
type PanelAPI interface {
	Authenticate(ctx context.Context) (*panel.TokenInfo, error)
	TestConnection(ctx context.Context) panel.ConnectionStatus
	GetCurrentAdmin(ctx context.Context) (*panel.AdminInfo, error)
	GetNodeSettings(ctx context.Context) (*panel.NodeSettings, error)
	GetNodes(ctx context.Context) ([]panel.Node, error)
	GetNode(ctx context.Context, id int) (*panel.Node, error)
	CreateNode(ctx context.Context, create panel.NodeCreate) (*panel.Node, error)
	UpdateNode(ctx context.Context, id int, fields map[string]interface{}) (*panel.Node, error)
	DeleteNode(ctx context.Context, id int) error
	ReconnectNode(ctx context.Context, id int) error
	GetNodesUsage(ctx context.Context) ([]panel.NodeUsage, error)
	GetSystemStats(ctx context.Context) (*panel.SystemStats, error)
	Token() *panel.TokenInfo
}

// PanelClientFactory builds a fresh panel client per operation. Detached job
// goroutines must construct their own clients instead of sharing one tied to
// a request lifetime.
type PanelClientFactory func(cfg panel.ClientConfig) PanelAPI

// RemoteSession is an established SSH channel to one host.
type RemoteSession interface {
	Connect(ctx context.Context) error
	Close() error
	Execute(ctx context.Context, command string, timeout time.Duration) (remote.CommandResult, error)
	UploadContent(ctx context.Context, content, remotePath string, mode os.FileMode) error
	TestConnection(ctx context.Context) (bool, string)
}

// RemoteSessionFactory builds a session from credentials. Same rationale as
// PanelClientFactory: each job owns its session end to end.
type RemoteSessionFactory func(cfg remote.Config) RemoteSession
