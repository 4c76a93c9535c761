package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/infrastructure/panel"
	"github.com/marzdeck/backend/internal/infrastructure/remote"
	"github.com/marzdeck/backend/pkg/utils/crypto"
	"gorm.io/gorm"
)

type nodeService struct {
	nodeRepo    ports.NodeRepository
	panelRepo   ports.PanelRepository
	credRepo    ports.PanelCredentialRepository
	profileRepo ports.SSHProfileRepository
	auditRepo   ports.AuditRepository
	secrets     *secretBox
	sessions    ports.RemoteSessionFactory
	clients     ports.PanelClientFactory

	sshTimeout   time.Duration
	panelTimeout time.Duration
	panelRetries int
	log          *logger.Logger
}

func NewNodeService(
	nodeRepo ports.NodeRepository,
	panelRepo ports.PanelRepository,
	credRepo ports.PanelCredentialRepository,
	profileRepo ports.SSHProfileRepository,
	auditRepo ports.AuditRepository,
	cipher *crypto.Cipher,
	sessions ports.RemoteSessionFactory,
	clients ports.PanelClientFactory,
	sshTimeout, panelTimeout time.Duration,
	panelRetries int,
	log *logger.Logger,
) ports.NodeService {
	return &nodeService{
		nodeRepo:     nodeRepo,
		panelRepo:    panelRepo,
		credRepo:     credRepo,
		profileRepo:  profileRepo,
		auditRepo:    auditRepo,
		secrets:      newSecretBox(cipher),
		sessions:     sessions,
		clients:      clients,
		sshTimeout:   sshTimeout,
		panelTimeout: panelTimeout,
		panelRetries: panelRetries,
		log:          log,
	}
}

func (s *nodeService) GetNodes(ctx context.Context) ([]domain.Node, error) {
	return s.nodeRepo.GetAll(ctx)
}

func (s *nodeService) GetNodesByPanel(ctx context.Context, panelID uint) ([]domain.Node, error) {
	return s.nodeRepo.GetByPanelID(ctx, panelID)
}

func (s *nodeService) GetNodeByID(ctx context.Context, id uint) (*domain.Node, error) {
	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return node, nil
}

func (s *nodeService) UpdateNode(ctx context.Context, id uint, input ports.UpdateNodeInput) (*domain.Node, error) {
	node, err := s.GetNodeByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := domain.JSONB{"name": node.Name, "address": node.Address, "status": node.Status}

	if input.Name != nil && *input.Name != "" {
		node.Name = *input.Name
	}
	if input.Address != nil && *input.Address != "" {
		node.Address = *input.Address
	}
	if input.Status != nil {
		node.Status = *input.Status
	}
	if input.StatusNote != nil {
		node.StatusNote = *input.StatusNote
	}
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}

	s.audit(ctx, node.ID, "update", "Node updated: "+node.Name, old,
		domain.JSONB{"name": node.Name, "address": node.Address, "status": node.Status})
	return node, nil
}

// DeleteNode removes the node in up to three legs: panel registration,
// remote installation, local record. The panel and server legs run only
// when requested and are best effort; a requested leg always reports true
// or false, nil means the caller skipped it. Success reflects the local
// delete only, so a panel outage never strands a record the operator wants
// gone.
func (s *nodeService) DeleteNode(ctx context.Context, id uint, fromPanel, fromServer bool) (*ports.NodeDeleteOutcome, error) {
	node, err := s.GetNodeByID(ctx, id)
	if err != nil {
		return nil, err
	}

	outcome := &ports.NodeDeleteOutcome{}

	if fromPanel {
		removed, err := s.deletePanelNode(ctx, node)
		outcome.Marzban = &removed
		if err != nil {
			outcome.Errors = append(outcome.Errors, "marzban: "+err.Error())
		} else if !removed {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("marzban: node %q not found on panel", node.Name))
		}
	}

	if fromServer {
		removed, err := s.uninstallRemote(ctx, node)
		outcome.Server = &removed
		if err != nil {
			outcome.Errors = append(outcome.Errors, "server: "+err.Error())
		}
	}

	if err := s.nodeRepo.Delete(ctx, id); err != nil {
		outcome.Errors = append(outcome.Errors, "local: "+err.Error())
		return outcome, err
	}
	outcome.Local = true
	outcome.Success = true

	s.audit(ctx, id, "delete", "Node removed: "+node.Name,
		domain.JSONB{"name": node.Name, "address": node.Address,
			"from_panel": fromPanel, "from_server": fromServer}, nil)
	return outcome, nil
}

// deletePanelNode finds the panel-side node by case-insensitive name and
// deletes it. A node absent panel-side is reported as not removed with a
// nil error; the caller turns that into its own message.
func (s *nodeService) deletePanelNode(ctx context.Context, node *domain.Node) (bool, error) {
	client, err := s.panelClient(ctx, node.PanelID)
	if err != nil {
		return false, err
	}

	nodes, err := client.GetNodes(ctx)
	if err != nil {
		return false, err
	}

	for _, pn := range nodes {
		if strings.EqualFold(pn.Name, node.Name) {
			if err := client.DeleteNode(ctx, pn.ID); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *nodeService) uninstallRemote(ctx context.Context, node *domain.Node) (bool, error) {
	if node.SSHProfileID == nil {
		return false, ErrNodeNoSSHProfile
	}

	session, err := s.sessionFor(ctx, *node.SSHProfileID)
	if err != nil {
		return false, err
	}
	if err := session.Connect(ctx); err != nil {
		return false, err
	}
	defer session.Close()

	ok, err := remote.NewNodeManager(session).Uninstall(ctx, node.Name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("uninstall command failed on %s", node.Address)
	}
	return true, nil
}

// SyncStatus refreshes the local status from the panel's view of the node.
func (s *nodeService) SyncStatus(ctx context.Context, id uint) (*domain.Node, error) {
	node, err := s.GetNodeByID(ctx, id)
	if err != nil {
		return nil, err
	}

	client, err := s.panelClient(ctx, node.PanelID)
	if err != nil {
		return nil, err
	}
	nodes, err := client.GetNodes(ctx)
	if err != nil {
		return nil, err
	}

	status := domain.NodeStatusError
	note := "not registered on panel"
	for _, pn := range nodes {
		if strings.EqualFold(pn.Name, node.Name) {
			switch pn.Status {
			case "connected":
				status, note = domain.NodeStatusConnected, ""
			case "connecting":
				status, note = domain.NodeStatusConnecting, ""
			case "disabled":
				status, note = domain.NodeStatusDisabled, ""
			default:
				status, note = domain.NodeStatusError, pn.Message
			}
			break
		}
	}

	if err := s.nodeRepo.UpdateStatus(ctx, id, status, note); err != nil {
		return nil, err
	}
	node.Status = status
	node.StatusNote = note
	return node, nil
}

func (s *nodeService) RemoteStatus(ctx context.Context, id uint) (*ports.RemoteNodeStatus, error) {
	node, manager, closer, err := s.managerFor(ctx, id)
	if err != nil {
		return nil, err
	}
	defer closer()

	state, err := manager.Status(ctx, node.Name)
	if err != nil {
		return nil, err
	}
	return &ports.RemoteNodeStatus{
		Found:       state.Found,
		Running:     state.Running,
		Method:      state.Method,
		ServicePort: state.ServicePort,
		APIPort:     state.APIPort,
		ContainerID: state.ContainerID,
	}, nil
}

func (s *nodeService) RemoteAction(ctx context.Context, id uint, action string) error {
	node, manager, closer, err := s.managerFor(ctx, id)
	if err != nil {
		return err
	}
	defer closer()

	var ok bool
	switch action {
	case "start":
		ok, err = manager.Start(ctx, node.Name)
	case "stop":
		ok, err = manager.Stop(ctx, node.Name)
	case "restart":
		ok, err = manager.Restart(ctx, node.Name)
	default:
		return ErrNodeBadAction
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("node: %s failed on %s", action, node.Address)
	}

	s.audit(ctx, id, action, fmt.Sprintf("Node %s: %s", node.Name, action), nil, nil)
	return nil
}

func (s *nodeService) RemoteLogs(ctx context.Context, id uint, lines int) (string, error) {
	node, manager, closer, err := s.managerFor(ctx, id)
	if err != nil {
		return "", err
	}
	defer closer()

	return manager.Logs(ctx, node.Name, lines)
}

// managerFor loads the node, opens its SSH session and wraps it in a CLI
// controller. The returned closer must be called once the caller is done.
func (s *nodeService) managerFor(ctx context.Context, id uint) (*domain.Node, *remote.NodeManager, func(), error) {
	node, err := s.GetNodeByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if node.SSHProfileID == nil {
		return nil, nil, nil, ErrNodeNoSSHProfile
	}

	session, err := s.sessionFor(ctx, *node.SSHProfileID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := session.Connect(ctx); err != nil {
		return nil, nil, nil, err
	}
	return node, remote.NewNodeManager(session), func() { session.Close() }, nil
}

func (s *nodeService) sessionFor(ctx context.Context, profileID uint) (ports.RemoteSession, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("ssh profile lookup failed: %w", err)
	}
	cfg, err := s.secrets.sshConfig(profile, s.sshTimeout)
	if err != nil {
		return nil, err
	}
	return s.sessions(cfg), nil
}

func (s *nodeService) panelClient(ctx context.Context, panelID uint) (ports.PanelAPI, error) {
	p, err := s.panelRepo.GetByID(ctx, panelID)
	if err != nil {
		return nil, err
	}
	cred, err := s.credRepo.GetByPanelID(ctx, panelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPanelNoCredential
		}
		return nil, err
	}
	password, err := s.secrets.decrypt(cred.Password)
	if err != nil {
		return nil, err
	}

	cfg := panel.ClientConfig{
		BaseURL:  p.URL,
		Username: cred.Username,
		Password: password,
		Timeout:  s.panelTimeout,
		Retry:    panel.DefaultRetryPolicy(s.panelRetries),
	}
	if cred.AccessToken != "" {
		token := panel.TokenInfo{AccessToken: cred.AccessToken, ExpiresAt: cred.TokenExpiresAt}
		if !token.Expired(time.Now()) {
			cfg.AccessToken = cred.AccessToken
		}
	}
	return s.clients(cfg), nil
}

func (s *nodeService) audit(ctx context.Context, nodeID uint, action, description string, oldVal, newVal domain.JSONB) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.AuditLog{
		EntityType:  "node",
		EntityID:    nodeID,
		Action:      action,
		Description: description,
		OldValue:    oldVal,
		NewValue:    newVal,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Warnw("audit_write_failed", "entity", "node", "action", action, "error", err)
	}
}
