package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/infrastructure/panel"
	"github.com/marzdeck/backend/pkg/utils/crypto"
	"gorm.io/gorm"
)

type panelService struct {
	panelRepo ports.PanelRepository
	credRepo  ports.PanelCredentialRepository
	nodeRepo  ports.NodeRepository
	auditRepo ports.AuditRepository
	cipher    *crypto.Cipher
	clients   ports.PanelClientFactory
	timeout   time.Duration
	retries   int
	log       *logger.Logger
}

func NewPanelService(
	panelRepo ports.PanelRepository,
	credRepo ports.PanelCredentialRepository,
	nodeRepo ports.NodeRepository,
	auditRepo ports.AuditRepository,
	cipher *crypto.Cipher,
	clients ports.PanelClientFactory,
	timeout time.Duration,
	retries int,
	log *logger.Logger,
) ports.PanelService {
	return &panelService{
		panelRepo: panelRepo,
		credRepo:  credRepo,
		nodeRepo:  nodeRepo,
		auditRepo: auditRepo,
		cipher:    cipher,
		clients:   clients,
		timeout:   timeout,
		retries:   retries,
		log:       log,
	}
}

func (s *panelService) CreatePanel(ctx context.Context, input ports.CreatePanelInput) (*domain.Panel, error) {
	input.URL = strings.TrimRight(strings.TrimSpace(input.URL), "/")
	if input.Name == "" || input.URL == "" || input.Username == "" || input.Password == "" {
		return nil, ErrPanelInvalidInput
	}

	if existing, err := s.panelRepo.GetByURL(ctx, input.URL); err == nil && existing != nil {
		return nil, ErrPanelAlreadyExists
	}

	// Verify credentials before persisting anything.
	client := s.clients(panel.ClientConfig{
		BaseURL:  input.URL,
		Username: input.Username,
		Password: input.Password,
		Timeout:  s.timeout,
		Retry:    panel.DefaultRetryPolicy(s.retries),
	})
	token, err := client.Authenticate(ctx)
	if err != nil {
		if panel.IsAuth(err) {
			return nil, ErrPanelAuthFailed
		}
		return nil, err
	}

	p := &domain.Panel{
		Name:     input.Name,
		URL:      input.URL,
		IsActive: true,
	}
	if err := s.panelRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	encPassword, err := s.cipher.Encrypt(input.Password)
	if err != nil {
		return nil, err
	}
	cred := &domain.PanelCredential{
		PanelID:        p.ID,
		Username:       input.Username,
		Password:       encPassword,
		AccessToken:    token.AccessToken,
		TokenExpiresAt: token.ExpiresAt,
	}
	if err := s.credRepo.Upsert(ctx, cred); err != nil {
		return nil, err
	}

	// Cache the node certificate up front so installs do not depend on the
	// panel being reachable later.
	if settings, err := client.GetNodeSettings(ctx); err == nil && settings.Certificate != "" {
		p.Certificate = settings.Certificate
		if err := s.panelRepo.Update(ctx, p); err != nil {
			s.log.Warnw("panel_certificate_cache_failed", "panel_id", p.ID, "error", err)
		}
	} else if err != nil {
		s.log.Warnw("panel_certificate_fetch_failed", "panel_id", p.ID, "error", err)
	}

	s.audit(ctx, p.ID, "create", "Panel registered: "+p.Name, nil, domain.JSONB{"name": p.Name, "url": p.URL})
	return p, nil
}

func (s *panelService) GetPanels(ctx context.Context) ([]domain.Panel, error) {
	return s.panelRepo.GetAll(ctx)
}

func (s *panelService) GetPanelByID(ctx context.Context, id uint) (*domain.Panel, error) {
	p, err := s.panelRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPanelNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *panelService) UpdatePanel(ctx context.Context, id uint, input ports.UpdatePanelInput) (*domain.Panel, error) {
	p, err := s.GetPanelByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := domain.JSONB{"name": p.Name, "url": p.URL, "is_active": p.IsActive}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.URL != nil {
		p.URL = strings.TrimRight(strings.TrimSpace(*input.URL), "/")
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	if err := s.panelRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	if input.Username != nil || input.Password != nil {
		cred, err := s.credRepo.GetByPanelID(ctx, id)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			cred = &domain.PanelCredential{PanelID: id}
		}
		if input.Username != nil {
			cred.Username = *input.Username
		}
		if input.Password != nil {
			enc, err := s.cipher.Encrypt(*input.Password)
			if err != nil {
				return nil, err
			}
			cred.Password = enc
			// Stored token belongs to the old credentials.
			cred.AccessToken = ""
			cred.TokenExpiresAt = nil
		}
		if err := s.credRepo.Upsert(ctx, cred); err != nil {
			return nil, err
		}
	}

	s.audit(ctx, p.ID, "update", "Panel updated: "+p.Name, old,
		domain.JSONB{"name": p.Name, "url": p.URL, "is_active": p.IsActive})
	return p, nil
}

func (s *panelService) DeletePanel(ctx context.Context, id uint) error {
	p, err := s.GetPanelByID(ctx, id)
	if err != nil {
		return err
	}

	nodes, err := s.nodeRepo.GetByPanelID(ctx, id)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if err := s.nodeRepo.Delete(ctx, node.ID); err != nil {
			return err
		}
	}

	if err := s.credRepo.DeleteByPanelID(ctx, id); err != nil {
		return err
	}
	if err := s.panelRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, id, "delete", "Panel removed: "+p.Name,
		domain.JSONB{"name": p.Name, "url": p.URL}, nil)
	return nil
}

func (s *panelService) TestPanel(ctx context.Context, id uint) (*ports.PanelStatus, error) {
	client, _, err := s.clientFor(ctx, id)
	if err != nil {
		return nil, err
	}
	status := client.TestConnection(ctx)
	s.persistToken(ctx, id, client)
	return &ports.PanelStatus{
		Connected:     status.Connected,
		AdminUsername: status.AdminUsername,
		IsSudo:        status.IsSudo,
		Error:         status.Error,
	}, nil
}

// GetCertificate returns the cached node certificate, fetching from the
// panel when the cache is empty or refresh is requested.
func (s *panelService) GetCertificate(ctx context.Context, id uint, refresh bool) (string, error) {
	p, err := s.GetPanelByID(ctx, id)
	if err != nil {
		return "", err
	}
	if p.Certificate != "" && !refresh {
		return p.Certificate, nil
	}

	client, _, err := s.clientFor(ctx, id)
	if err != nil {
		return "", err
	}
	settings, err := client.GetNodeSettings(ctx)
	if err != nil {
		return "", err
	}
	s.persistToken(ctx, id, client)

	p.Certificate = settings.Certificate
	if err := s.panelRepo.Update(ctx, p); err != nil {
		s.log.Warnw("panel_certificate_cache_failed", "panel_id", id, "error", err)
	}
	return settings.Certificate, nil
}

func (s *panelService) GetPanelNodes(ctx context.Context, id uint) ([]ports.PanelNodeInfo, error) {
	client, _, err := s.clientFor(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes, err := client.GetNodes(ctx)
	if err != nil {
		return nil, err
	}
	s.persistToken(ctx, id, client)

	infos := make([]ports.PanelNodeInfo, 0, len(nodes))
	for _, n := range nodes {
		infos = append(infos, ports.PanelNodeInfo{
			ID:      n.ID,
			Name:    n.Name,
			Address: n.Address,
			Port:    n.Port,
			APIPort: n.APIPort,
			Status:  n.Status,
			Message: n.Message,
		})
	}
	return infos, nil
}

// clientFor builds an authenticated-capable client from the stored
// credential, seeding it with the cached token when still fresh.
func (s *panelService) clientFor(ctx context.Context, panelID uint) (ports.PanelAPI, *domain.Panel, error) {
	p, err := s.GetPanelByID(ctx, panelID)
	if err != nil {
		return nil, nil, err
	}
	cred, err := s.credRepo.GetByPanelID(ctx, panelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPanelNoCredential
		}
		return nil, nil, err
	}

	password, err := s.cipher.Decrypt(cred.Password)
	if err != nil {
		return nil, nil, err
	}

	cfg := panel.ClientConfig{
		BaseURL:  p.URL,
		Username: cred.Username,
		Password: password,
		Timeout:  s.timeout,
		Retry:    panel.DefaultRetryPolicy(s.retries),
	}
	if cred.AccessToken != "" {
		token := panel.TokenInfo{AccessToken: cred.AccessToken, ExpiresAt: cred.TokenExpiresAt}
		if !token.Expired(time.Now()) {
			cfg.AccessToken = cred.AccessToken
		}
	}
	return s.clients(cfg), p, nil
}

// persistToken writes back the token the client holds so later operations
// skip re-authentication. Best effort.
func (s *panelService) persistToken(ctx context.Context, panelID uint, client ports.PanelAPI) {
	token := client.Token()
	if token == nil || token.AccessToken == "" {
		return
	}
	cred, err := s.credRepo.GetByPanelID(ctx, panelID)
	if err != nil {
		return
	}
	if cred.AccessToken == token.AccessToken {
		return
	}
	cred.AccessToken = token.AccessToken
	cred.TokenExpiresAt = token.ExpiresAt
	if err := s.credRepo.Upsert(ctx, cred); err != nil {
		s.log.Warnw("panel_token_persist_failed", "panel_id", panelID, "error", err)
	}
}

func (s *panelService) audit(ctx context.Context, panelID uint, action, description string, oldVal, newVal domain.JSONB) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.AuditLog{
		EntityType:  "panel",
		EntityID:    panelID,
		Action:      action,
		Description: description,
		OldValue:    oldVal,
		NewValue:    newVal,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Warnw("audit_write_failed", "entity", "panel", "action", action, "error", err)
	}
}
