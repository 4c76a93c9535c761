package services

import (
	"context"
	"errors"
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/infrastructure/remote"
	"github.com/marzdeck/backend/pkg/utils/crypto"
	"gorm.io/gorm"
)

type sshProfileService struct {
	profileRepo ports.SSHProfileRepository
	nodeRepo    ports.NodeRepository
	auditRepo   ports.AuditRepository
	secrets     *secretBox
	sessions    ports.RemoteSessionFactory
	timeout     time.Duration
	log         *logger.Logger
}

func NewSSHProfileService(
	profileRepo ports.SSHProfileRepository,
	nodeRepo ports.NodeRepository,
	auditRepo ports.AuditRepository,
	cipher *crypto.Cipher,
	sessions ports.RemoteSessionFactory,
	timeout time.Duration,
	log *logger.Logger,
) ports.SSHProfileService {
	return &sshProfileService{
		profileRepo: profileRepo,
		nodeRepo:    nodeRepo,
		auditRepo:   auditRepo,
		secrets:     newSecretBox(cipher),
		sessions:    sessions,
		timeout:     timeout,
		log:         log,
	}
}

func (s *sshProfileService) CreateProfile(ctx context.Context, input ports.SSHProfileInput) (*domain.SSHProfile, error) {
	if input.Name == "" || input.Host == "" || input.Username == "" {
		return nil, ErrProfileInvalidInput
	}
	if input.Password == "" && input.PrivateKey == "" {
		return nil, ErrProfileInvalidInput
	}

	if existing, err := s.profileRepo.GetByName(ctx, input.Name); err == nil && existing != nil {
		return nil, ErrProfileAlreadyExists
	}

	profile, err := s.buildProfile(&domain.SSHProfile{}, input)
	if err != nil {
		return nil, err
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.audit(ctx, profile.ID, "create", "SSH profile created: "+profile.Name)
	return profile, nil
}

func (s *sshProfileService) GetProfiles(ctx context.Context) ([]domain.SSHProfile, error) {
	return s.profileRepo.GetAll(ctx)
}

func (s *sshProfileService) GetProfileByID(ctx context.Context, id uint) (*domain.SSHProfile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *sshProfileService) UpdateProfile(ctx context.Context, id uint, input ports.SSHProfileInput) (*domain.SSHProfile, error) {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" && input.Name != profile.Name {
		if existing, err := s.profileRepo.GetByName(ctx, input.Name); err == nil && existing != nil && existing.ID != id {
			return nil, ErrProfileAlreadyExists
		}
	}

	profile, err = s.buildProfile(profile, input)
	if err != nil {
		return nil, err
	}
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	s.audit(ctx, profile.ID, "update", "SSH profile updated: "+profile.Name)
	return profile, nil
}

func (s *sshProfileService) DeleteProfile(ctx context.Context, id uint) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}

	nodes, err := s.nodeRepo.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if node.SSHProfileID != nil && *node.SSHProfileID == id {
			return ErrProfileInUse
		}
	}

	if err := s.profileRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, id, "delete", "SSH profile removed: "+profile.Name)
	return nil
}

// TestProfile opens a connection with the stored credentials and reports the
// outcome without returning an error.
func (s *sshProfileService) TestProfile(ctx context.Context, id uint) (bool, string) {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return false, err.Error()
	}

	cfg, err := s.secrets.sshConfig(profile, s.timeout)
	if err != nil {
		return false, err.Error()
	}
	session := s.sessions(cfg)
	return session.TestConnection(ctx)
}

// buildProfile applies input onto profile, encrypting any new secrets.
// Empty secret fields keep the stored values.
func (s *sshProfileService) buildProfile(profile *domain.SSHProfile, input ports.SSHProfileInput) (*domain.SSHProfile, error) {
	if input.Name != "" {
		profile.Name = input.Name
	}
	if input.Host != "" {
		profile.Host = input.Host
	}
	if input.Username != "" {
		profile.Username = input.Username
	}
	if input.Port != 0 {
		profile.Port = input.Port
	}
	if profile.Port == 0 {
		profile.Port = 22
	}
	profile.UseKeyAuth = input.UseKeyAuth

	if input.Password != "" {
		enc, err := s.secrets.encrypt(input.Password)
		if err != nil {
			return nil, err
		}
		profile.Password = enc
	}
	if input.PrivateKey != "" {
		enc, err := s.secrets.encrypt(input.PrivateKey)
		if err != nil {
			return nil, err
		}
		profile.PrivateKey = enc
	}

	if input.DefaultServicePort != 0 {
		profile.DefaultServicePort = input.DefaultServicePort
	}
	if profile.DefaultServicePort == 0 {
		profile.DefaultServicePort = 62050
	}
	if input.DefaultAPIPort != 0 {
		profile.DefaultAPIPort = input.DefaultAPIPort
	}
	if profile.DefaultAPIPort == 0 {
		profile.DefaultAPIPort = 62051
	}
	return profile, nil
}

func (s *sshProfileService) audit(ctx context.Context, profileID uint, action, description string) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.AuditLog{
		EntityType:  "ssh_profile",
		EntityID:    profileID,
		Action:      action,
		Description: description,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Warnw("audit_write_failed", "entity", "ssh_profile", "action", action, "error", err)
	}
}

// secretBox wraps the cipher with profile-aware helpers shared by the
// profile, install and node services.
type secretBox struct {
	cipher *crypto.Cipher
}

func newSecretBox(cipher *crypto.Cipher) *secretBox {
	return &secretBox{cipher: cipher}
}

func (b *secretBox) encrypt(value string) (string, error) {
	return b.cipher.Encrypt(value)
}

func (b *secretBox) decrypt(value string) (string, error) {
	return b.cipher.Decrypt(value)
}

// sshConfig decrypts a profile's secrets into a ready connection config.
func (b *secretBox) sshConfig(profile *domain.SSHProfile, timeout time.Duration) (remote.Config, error) {
	cfg := remote.Config{
		Host:    profile.Host,
		Port:    profile.Port,
		User:    profile.Username,
		Timeout: timeout,
	}

	if profile.UseKeyAuth && profile.PrivateKey != "" {
		key, err := b.decrypt(profile.PrivateKey)
		if err != nil {
			return remote.Config{}, err
		}
		cfg.PrivateKey = key
	}
	if profile.Password != "" {
		password, err := b.decrypt(profile.Password)
		if err != nil {
			return remote.Config{}, err
		}
		cfg.Password = password
	}
	return cfg, nil
}
