package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/infrastructure/panel"
	"github.com/marzdeck/backend/internal/infrastructure/remote"
	"github.com/marzdeck/backend/pkg/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type installEnv struct {
	jobs     *JobManager
	panels   *fakePanelRepo
	creds    *fakeCredRepo
	profiles *fakeProfileRepo
	nodes    *fakeNodeRepo
	audit    *fakeAuditRepo
	session  *fakeSession
	client   *fakePanelClient
	cipher   *crypto.Cipher
	svc      ports.InstallService

	sshConfigs []remote.Config
}

// goodInstallScript answers like a healthy host with the CLI preinstalled.
func goodInstallScript(command string) remote.CommandResult {
	switch {
	case strings.HasPrefix(command, "command -v"):
		return remote.CommandResult{Stdout: "/usr/local/bin/marzban-node-manager", ExitCode: 0}
	case strings.Contains(command, "--version"):
		return remote.CommandResult{Stdout: "v1.2.0", ExitCode: 0}
	case strings.Contains(command, " install "):
		return remote.CommandResult{
			Stdout: "Node installed!\n" +
				"SERVICE_PORT: 62060\n" +
				"XRAY_API_PORT: 62061\n" +
				"Install Dir: /opt/marzban-node/edge-1\n" +
				"Data Dir: /var/lib/marzban-node/edge-1\n" +
				"Use this IP in the panel: 203.0.113.7\n",
			ExitCode: 0,
		}
	default:
		return remote.CommandResult{ExitCode: 0}
	}
}

func newInstallEnv(t *testing.T, script func(string) remote.CommandResult) *installEnv {
	t.Helper()

	cipher, err := crypto.NewCipher("test-key")
	require.NoError(t, err)

	env := &installEnv{
		jobs:     newTestJobManager(100, time.Hour),
		panels:   newFakePanelRepo(),
		creds:    newFakeCredRepo(),
		profiles: newFakeProfileRepo(),
		nodes:    newFakeNodeRepo(),
		audit:    &fakeAuditRepo{},
		session:  newFakeSession(script),
		client:   &fakePanelClient{certificate: "PANEL-CERT"},
		cipher:   cipher,
	}

	sessions := ports.RemoteSessionFactory(func(cfg remote.Config) ports.RemoteSession {
		env.sshConfigs = append(env.sshConfigs, cfg)
		return env.session
	})
	clients := ports.PanelClientFactory(func(cfg panel.ClientConfig) ports.PanelAPI {
		return env.client
	})

	env.svc = NewInstallService(
		env.jobs, env.panels, env.creds, env.profiles, env.nodes, env.audit,
		cipher, sessions, clients,
		time.Second, time.Second, 1, logger.Nop(),
	)
	return env
}

func (e *installEnv) seedPanel(t *testing.T, certificate string) *domain.Panel {
	t.Helper()
	p := &domain.Panel{Name: "main", URL: "https://panel.example.com", Certificate: certificate, IsActive: true}
	require.NoError(t, e.panels.Create(context.Background(), p))

	encrypted, err := e.cipher.Encrypt("panel-secret")
	require.NoError(t, err)
	require.NoError(t, e.creds.Upsert(context.Background(), &domain.PanelCredential{
		PanelID:  p.ID,
		Username: "admin",
		Password: encrypted,
	}))
	return p
}

func (e *installEnv) seedProfile(t *testing.T, name string) *domain.SSHProfile {
	t.Helper()
	encrypted, err := e.cipher.Encrypt("ssh-secret")
	require.NoError(t, err)
	profile := &domain.SSHProfile{
		Name:     name,
		Host:     "198.51.100.5",
		Port:     22,
		Username: "root",
		Password: encrypted,
	}
	require.NoError(t, e.profiles.Create(context.Background(), profile))
	return profile
}

func (e *installEnv) runToTerminal(t *testing.T, jobID string) domain.JobSnapshot {
	t.Helper()
	job, err := e.jobs.GetJob(jobID)
	require.NoError(t, err)
	return waitTerminal(t, job)
}

func TestStartInstallWithProfile(t *testing.T) {
	env := newInstallEnv(t, goodInstallScript)
	p := env.seedPanel(t, "CACHED-CERT")
	profile := env.seedProfile(t, "prod-box")

	jobID, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:     p.ID,
		NodeName:    "edge-1",
		Credentials: ports.CredentialSource{ProfileID: &profile.ID},
	})
	require.NoError(t, err)

	snap := env.runToTerminal(t, jobID)
	require.Equal(t, domain.JobStatusCompleted, snap.Status, "job error: %s", snap.Error)

	// Connection used the decrypted profile credentials.
	require.Len(t, env.sshConfigs, 1)
	assert.Equal(t, "198.51.100.5", env.sshConfigs[0].Host)
	assert.Equal(t, "root", env.sshConfigs[0].User)
	assert.Equal(t, "ssh-secret", env.sshConfigs[0].Password)

	// The node record carries the ports the CLI bound and the public IP it
	// reported.
	node, err := env.nodes.GetByName(context.Background(), p.ID, "edge-1")
	require.NoError(t, err)
	assert.Equal(t, 62060, node.ServicePort)
	assert.Equal(t, 62061, node.APIPort)
	assert.Equal(t, "203.0.113.7", node.Address)
	assert.Equal(t, domain.NodeStatusConnecting, node.Status)
	assert.Equal(t, "/opt/marzban-node/edge-1", node.InstallDir)
	require.NotNil(t, node.SSHProfileID)
	assert.Equal(t, profile.ID, *node.SSHProfileID)

	// Registered on the panel with the same coordinates.
	require.Len(t, env.client.created, 1)
	assert.Equal(t, "edge-1", env.client.created[0].Name)
	assert.Equal(t, "203.0.113.7", env.client.created[0].Address)
	assert.Equal(t, 62060, env.client.created[0].Port)

	assert.Equal(t, true, snap.Result["registered"])
	assert.Equal(t, node.ID, snap.Result["node_id"])
	assert.Equal(t, profile.ID, snap.Result["ssh_profile_id"])
	assert.True(t, env.session.closed)
	assert.Contains(t, env.audit.actions(), "install")
}

func TestStartInstallValidation(t *testing.T) {
	env := newInstallEnv(t, goodInstallScript)
	p := env.seedPanel(t, "CERT")
	profile := env.seedProfile(t, "prod-box")

	inline := &ports.InlineCredentials{Host: "198.51.100.9", Username: "root", Password: "pw"}

	cases := []struct {
		name  string
		input ports.InstallNodeInput
		want  error
	}{
		{
			"missing node name",
			ports.InstallNodeInput{PanelID: p.ID, NodeName: "  ", Credentials: ports.CredentialSource{ProfileID: &profile.ID}},
			ErrInstallInvalidInput,
		},
		{
			"no credential source",
			ports.InstallNodeInput{PanelID: p.ID, NodeName: "edge-1"},
			ErrInstallNoCredentials,
		},
		{
			"both credential sources",
			ports.InstallNodeInput{PanelID: p.ID, NodeName: "edge-1",
				Credentials: ports.CredentialSource{ProfileID: &profile.ID, Inline: inline}},
			ErrInstallNoCredentials,
		},
		{
			"incomplete inline credentials",
			ports.InstallNodeInput{PanelID: p.ID, NodeName: "edge-1",
				Credentials: ports.CredentialSource{Inline: &ports.InlineCredentials{Host: "198.51.100.9"}}},
			ErrInstallInvalidInput,
		},
		{
			"unknown panel",
			ports.InstallNodeInput{PanelID: 999, NodeName: "edge-1", Credentials: ports.CredentialSource{ProfileID: &profile.ID}},
			ErrPanelNotFound,
		},
		{
			"unknown profile",
			func() ports.InstallNodeInput {
				missing := uint(999)
				return ports.InstallNodeInput{PanelID: p.ID, NodeName: "edge-1", Credentials: ports.CredentialSource{ProfileID: &missing}}
			}(),
			ErrProfileNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.StartInstall(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStartInstallRejectsDuplicateNodeName(t *testing.T) {
	env := newInstallEnv(t, goodInstallScript)
	p := env.seedPanel(t, "CERT")
	profile := env.seedProfile(t, "prod-box")

	require.NoError(t, env.nodes.Create(context.Background(), &domain.Node{
		PanelID: p.ID, Name: "Edge-1", Address: "203.0.113.1",
	}))

	_, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:     p.ID,
		NodeName:    "edge-1",
		Credentials: ports.CredentialSource{ProfileID: &profile.ID},
	})
	assert.ErrorIs(t, err, ErrNodeAlreadyExists)
}

func TestInstallFetchesAndCachesCertificate(t *testing.T) {
	env := newInstallEnv(t, goodInstallScript)
	p := env.seedPanel(t, "")
	profile := env.seedProfile(t, "prod-box")

	jobID, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:     p.ID,
		NodeName:    "edge-1",
		Credentials: ports.CredentialSource{ProfileID: &profile.ID},
	})
	require.NoError(t, err)

	snap := env.runToTerminal(t, jobID)
	require.Equal(t, domain.JobStatusCompleted, snap.Status, "job error: %s", snap.Error)

	// The fetched certificate was uploaded to the host and cached locally.
	assert.Equal(t, "PANEL-CERT", env.session.uploads["/tmp/ssl_cert_edge-1.pem"])
	updated, err := env.panels.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "PANEL-CERT", updated.Certificate)
}

func TestInstallBootstrapsMissingCLI(t *testing.T) {
	probes := 0
	script := func(command string) remote.CommandResult {
		if strings.HasPrefix(command, "command -v") {
			probes++
			if probes == 1 {
				return remote.CommandResult{ExitCode: 1}
			}
			return remote.CommandResult{ExitCode: 0}
		}
		return goodInstallScript(command)
	}

	env := newInstallEnv(t, script)
	p := env.seedPanel(t, "CERT")
	profile := env.seedProfile(t, "prod-box")

	jobID, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:     p.ID,
		NodeName:    "edge-1",
		Credentials: ports.CredentialSource{ProfileID: &profile.ID},
	})
	require.NoError(t, err)

	snap := env.runToTerminal(t, jobID)
	require.Equal(t, domain.JobStatusCompleted, snap.Status, "job error: %s", snap.Error)
	assert.True(t, env.session.sawCommand("curl -sSL"))
}

func TestInstallFailureFailsJobWithoutNodeRecord(t *testing.T) {
	script := func(command string) remote.CommandResult {
		if strings.Contains(command, " install ") {
			return remote.CommandResult{Stderr: "port 62050 already in use", ExitCode: 1}
		}
		return goodInstallScript(command)
	}

	env := newInstallEnv(t, script)
	p := env.seedPanel(t, "CERT")
	profile := env.seedProfile(t, "prod-box")

	jobID, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:     p.ID,
		NodeName:    "edge-1",
		Credentials: ports.CredentialSource{ProfileID: &profile.ID},
	})
	require.NoError(t, err)

	snap := env.runToTerminal(t, jobID)
	assert.Equal(t, domain.JobStatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "port 62050 already in use")

	_, err = env.nodes.GetByName(context.Background(), p.ID, "edge-1")
	assert.Error(t, err)
}

func TestInstallRegistrationFailureIsBestEffort(t *testing.T) {
	env := newInstallEnv(t, goodInstallScript)
	env.client.createErr = errors.New("panel unreachable")
	p := env.seedPanel(t, "CERT")
	profile := env.seedProfile(t, "prod-box")

	jobID, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:     p.ID,
		NodeName:    "edge-1",
		Credentials: ports.CredentialSource{ProfileID: &profile.ID},
	})
	require.NoError(t, err)

	snap := env.runToTerminal(t, jobID)
	require.Equal(t, domain.JobStatusCompleted, snap.Status, "job error: %s", snap.Error)
	assert.Equal(t, false, snap.Result["registered"])

	// The local record survives with an error status the operator can see.
	node, err := env.nodes.GetByName(context.Background(), p.ID, "edge-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeStatusError, node.Status)
	assert.Equal(t, "panel registration failed", node.StatusNote)
}

func TestInstallInlineCredentialsAlwaysCreateProfile(t *testing.T) {
	env := newInstallEnv(t, goodInstallScript)
	p := env.seedPanel(t, "CERT")

	jobID, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:  p.ID,
		NodeName: "edge-1",
		Credentials: ports.CredentialSource{Inline: &ports.InlineCredentials{
			Host:     "198.51.100.9",
			Username: "root",
			Password: "inline-pw",
		}},
	})
	require.NoError(t, err)

	snap := env.runToTerminal(t, jobID)
	require.Equal(t, domain.JobStatusCompleted, snap.Status, "job error: %s", snap.Error)

	// Inline credentials are persisted as a profile without being asked, so
	// the node can be uninstalled over SSH long after the request is gone.
	profile, err := env.profiles.GetByName(context.Background(), "SSH-edge-1")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.9", profile.Host)
	assert.Equal(t, 22, profile.Port)

	// Stored secret is encrypted, not the raw password.
	assert.NotEqual(t, "inline-pw", profile.Password)
	decrypted, err := env.cipher.Decrypt(profile.Password)
	require.NoError(t, err)
	assert.Equal(t, "inline-pw", decrypted)

	node, err := env.nodes.GetByName(context.Background(), p.ID, "edge-1")
	require.NoError(t, err)
	require.NotNil(t, node.SSHProfileID)
	assert.Equal(t, profile.ID, *node.SSHProfileID)
	assert.Equal(t, profile.ID, snap.Result["ssh_profile_id"])
}

func TestInstallInlineProfileNameCollisionGetsSuffix(t *testing.T) {
	env := newInstallEnv(t, goodInstallScript)
	p := env.seedPanel(t, "CERT")
	env.seedProfile(t, "SSH-edge-1")

	jobID, err := env.svc.StartInstall(context.Background(), ports.InstallNodeInput{
		PanelID:  p.ID,
		NodeName: "edge-1",
		Credentials: ports.CredentialSource{Inline: &ports.InlineCredentials{
			Host:     "198.51.100.9",
			Username: "root",
			Password: "inline-pw",
		}},
	})
	require.NoError(t, err)

	snap := env.runToTerminal(t, jobID)
	require.Equal(t, domain.JobStatusCompleted, snap.Status, "job error: %s", snap.Error)

	profiles, err := env.profiles.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	var suffixed bool
	for _, profile := range profiles {
		if profile.Name != "SSH-edge-1" {
			assert.True(t, strings.HasPrefix(profile.Name, "SSH-edge-1-"))
			suffixed = true
		}
	}
	assert.True(t, suffixed)
}
