package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/infrastructure/panel"
	"github.com/marzdeck/backend/internal/infrastructure/remote"
	"github.com/marzdeck/backend/pkg/utils/crypto"
	"gorm.io/gorm"
)

const JobTypeNodeInstall = "node_install"

type installService struct {
	jobs        *JobManager
	panelRepo   ports.PanelRepository
	credRepo    ports.PanelCredentialRepository
	profileRepo ports.SSHProfileRepository
	nodeRepo    ports.NodeRepository
	auditRepo   ports.AuditRepository
	secrets     *secretBox
	sessions    ports.RemoteSessionFactory
	clients     ports.PanelClientFactory

	sshTimeout   time.Duration
	panelTimeout time.Duration
	panelRetries int
	log          *logger.Logger
}

func NewInstallService(
	jobs *JobManager,
	panelRepo ports.PanelRepository,
	credRepo ports.PanelCredentialRepository,
	profileRepo ports.SSHProfileRepository,
	nodeRepo ports.NodeRepository,
	auditRepo ports.AuditRepository,
	cipher *crypto.Cipher,
	sessions ports.RemoteSessionFactory,
	clients ports.PanelClientFactory,
	sshTimeout, panelTimeout time.Duration,
	panelRetries int,
	log *logger.Logger,
) ports.InstallService {
	return &installService{
		jobs:         jobs,
		panelRepo:    panelRepo,
		credRepo:     credRepo,
		profileRepo:  profileRepo,
		nodeRepo:     nodeRepo,
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

// StartInstall validates the request, registers a job and returns its ID.
// All slow work happens on the job goroutine; validation failures surface
// synchronously so the caller gets a 4xx instead of a doomed job.
func (s *installService) StartInstall(ctx context.Context, input ports.InstallNodeInput) (string, error) {
	input.NodeName = strings.TrimSpace(input.NodeName)
	if input.PanelID == 0 || input.NodeName == "" {
		return "", ErrInstallInvalidInput
	}
	if (input.Credentials.ProfileID == nil) == (input.Credentials.Inline == nil) {
		return "", ErrInstallNoCredentials
	}
	if input.Credentials.Inline != nil {
		inline := input.Credentials.Inline
		if inline.Host == "" || inline.Username == "" || (inline.Password == "" && inline.PrivateKey == "") {
			return "", ErrInstallInvalidInput
		}
	}
	if input.Method == "" {
		input.Method = domain.InstallMethodDocker
	}

	if _, err := s.panelRepo.GetByID(ctx, input.PanelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrPanelNotFound
		}
		return "", err
	}
	if input.Credentials.ProfileID != nil {
		if _, err := s.profileRepo.GetByID(ctx, *input.Credentials.ProfileID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrProfileNotFound
			}
			return "", err
		}
	}
	if existing, err := s.nodeRepo.GetByName(ctx, input.PanelID, input.NodeName); err == nil && existing != nil {
		return "", ErrNodeAlreadyExists
	}

	job := s.jobs.CreateJob(JobTypeNodeInstall, map[string]string{
		"panel_id":  fmt.Sprintf("%d", input.PanelID),
		"node_name": input.NodeName,
	})
	s.jobs.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		return s.runInstall(ctx, job, input)
	})
	return job.ID(), nil
}

func (s *installService) runInstall(ctx context.Context, job *domain.Job, input ports.InstallNodeInput) error {
	// Credentials resolve first so the eventual node record always points at
	// a durable SSH profile, and so a bad request fails before any remote or
	// panel traffic.
	job.UpdateProgress(5, "Resolving credentials")
	sshCfg, profileID, err := s.resolveCredentials(ctx, job, input)
	if err != nil {
		return err
	}

	job.UpdateProgress(10, "Fetching certificate")
	p, err := s.panelRepo.GetByID(ctx, input.PanelID)
	if err != nil {
		return fmt.Errorf("panel lookup failed: %w", err)
	}

	client, err := s.panelClient(ctx, p)
	if err != nil {
		return err
	}

	certificate := p.Certificate
	if certificate == "" {
		job.AddLog("Fetching node certificate from panel")
		settings, err := client.GetNodeSettings(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch node certificate: %w", err)
		}
		certificate = settings.Certificate
		p.Certificate = certificate
		if err := s.panelRepo.Update(ctx, p); err != nil {
			s.log.Warnw("panel_certificate_cache_failed", "panel_id", p.ID, "error", err)
		}
	}

	job.UpdateProgress(20, "Connecting to server")
	job.AddLog(fmt.Sprintf("Connecting to %s:%d as %s", sshCfg.Host, sshCfg.Port, sshCfg.User))

	session := s.sessions(sshCfg)
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("ssh connection failed: %w", err)
	}
	defer session.Close()

	manager := remote.NewNodeManager(session)

	job.UpdateProgress(25, "Checking node manager CLI")
	installed, err := manager.IsInstalled(ctx)
	if err != nil {
		return fmt.Errorf("cli probe failed: %w", err)
	}
	if !installed {
		job.AddLog("CLI not found, installing")
		if err := manager.InstallCLI(ctx); err != nil {
			return fmt.Errorf("cli installation failed: %w", err)
		}
	}

	job.UpdateProgress(30, "CLI ready")
	if version, err := manager.Version(ctx); err == nil {
		job.AddLog("CLI version: " + version)
	}

	job.UpdateProgress(40, "Installing node")
	servicePort := input.ServicePort
	apiPort := input.APIPort
	if servicePort == 0 {
		servicePort = 62050
	}
	if apiPort == 0 {
		apiPort = 62051
	}
	result, err := manager.InstallNode(ctx, remote.InstallParams{
		Name:        input.NodeName,
		Certificate: certificate,
		ServicePort: servicePort,
		APIPort:     apiPort,
		Method:      string(input.Method),
		Inbounds:    input.Inbounds,
		AutoPorts:   input.AutoPorts,
	})
	if err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("installation failed: %s", truncate(result.Error, 2000))
	}
	job.AddLog(fmt.Sprintf("Node installed with service port %d, api port %d", result.ServicePort, result.APIPort))

	job.UpdateProgress(60, "Recording node")
	address := result.PublicIP
	if address == "" {
		address = sshCfg.Host
	}

	node := &domain.Node{
		PanelID:      p.ID,
		Name:         input.NodeName,
		Address:      address,
		ServicePort:  result.ServicePort,
		APIPort:      result.APIPort,
		Status:       domain.NodeStatusConnecting,
		InstallDir:   result.InstallDir,
		DataDir:      result.DataDir,
		SSHProfileID: profileID,
	}
	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return fmt.Errorf("failed to record node: %w", err)
	}

	job.UpdateProgress(80, "Registering with panel")
	registered := true
	if _, err := client.CreateNode(ctx, panel.NodeCreate{
		Name:    node.Name,
		Address: node.Address,
		Port:    node.ServicePort,
		APIPort: node.APIPort,
	}); err != nil {
		// The node works without registration; the operator can register it
		// from the panel UI later.
		registered = false
		job.AddLog("Warning: panel registration failed: " + err.Error())
		if uerr := s.nodeRepo.UpdateStatus(ctx, node.ID, domain.NodeStatusError, "panel registration failed"); uerr != nil {
			s.log.Warnw("node_status_update_failed", "node_id", node.ID, "error", uerr)
		}
		s.log.Warnw("panel_registration_failed", "node_id", node.ID, "panel_id", p.ID, "error", err)
	}

	s.audit(ctx, node.ID, "install", fmt.Sprintf("Node %s installed on %s", node.Name, node.Address))

	job.UpdateProgress(100, "Done")
	job.Complete(map[string]interface{}{
		"node_id":        node.ID,
		"node_name":      node.Name,
		"address":        node.Address,
		"service_port":   node.ServicePort,
		"api_port":       node.APIPort,
		"ssh_profile_id": *profileID,
		"registered":     registered,
	})
	return nil
}

// resolveCredentials turns the credential source into a connection config
// and a durable profile ID. Inline credentials are persisted as a new
// profile up front so the node record never points at credentials that died
// with the request.
func (s *installService) resolveCredentials(ctx context.Context, job *domain.Job, input ports.InstallNodeInput) (remote.Config, *uint, error) {
	source := input.Credentials
	if source.ProfileID != nil {
		profile, err := s.profileRepo.GetByID(ctx, *source.ProfileID)
		if err != nil {
			return remote.Config{}, nil, fmt.Errorf("ssh profile lookup failed: %w", err)
		}
		job.AddLog(fmt.Sprintf("Using SSH profile %q", profile.Name))
		cfg, err := s.secrets.sshConfig(profile, s.sshTimeout)
		if err != nil {
			return remote.Config{}, nil, err
		}
		return cfg, source.ProfileID, nil
	}

	id, err := s.createInlineProfile(ctx, job, input)
	if err != nil {
		return remote.Config{}, nil, fmt.Errorf("failed to save ssh profile: %w", err)
	}

	inline := source.Inline
	port := inline.Port
	if port == 0 {
		port = 22
	}
	return remote.Config{
		Host:       inline.Host,
		Port:       port,
		User:       inline.Username,
		Password:   inline.Password,
		PrivateKey: inline.PrivateKey,
		Timeout:    s.sshTimeout,
	}, &id, nil
}

// createInlineProfile persists inline credentials as a reusable profile. The
// name is derived from the node; a suffix keeps it unique.
func (s *installService) createInlineProfile(ctx context.Context, job *domain.Job, input ports.InstallNodeInput) (uint, error) {
	inline := input.Credentials.Inline

	name := "SSH-" + input.NodeName
	if existing, err := s.profileRepo.GetByName(ctx, name); err == nil && existing != nil {
		name = fmt.Sprintf("%s-%s", name, uuid.New().String()[:8])
	}
	job.AddLog("Creating SSH profile: " + name)

	port := inline.Port
	if port == 0 {
		port = 22
	}
	profile := &domain.SSHProfile{
		Name:       name,
		Host:       inline.Host,
		Port:       port,
		Username:   inline.Username,
		UseKeyAuth: inline.PrivateKey != "",
	}
	if input.ServicePort != 0 {
		profile.DefaultServicePort = input.ServicePort
	}
	if input.APIPort != 0 {
		profile.DefaultAPIPort = input.APIPort
	}
	if inline.Password != "" {
		enc, err := s.secrets.encrypt(inline.Password)
		if err != nil {
			return 0, err
		}
		profile.Password = enc
	}
	if inline.PrivateKey != "" {
		enc, err := s.secrets.encrypt(inline.PrivateKey)
		if err != nil {
			return 0, err
		}
		profile.PrivateKey = enc
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return 0, err
	}
	return profile.ID, nil
}

// panelClient builds a client from the stored credential, seeding the cached
// token when it is still fresh.
func (s *installService) panelClient(ctx context.Context, p *domain.Panel) (ports.PanelAPI, error) {
	cred, err := s.credRepo.GetByPanelID(ctx, p.ID)
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

func (s *installService) audit(ctx context.Context, nodeID uint, action, description string) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.AuditLog{
		EntityType:  "node",
		EntityID:    nodeID,
		Action:      action,
		Description: description,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Warnw("audit_write_failed", "entity", "node", "action", action, "error", err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
