package dto

import (
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
)

type InlineSSHRequest struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`
}

type InstallNodeRequest struct {
	NodeName     string            `json:"node_name"`
	SSHProfileID *uint             `json:"ssh_profile_id,omitempty"`
	SSH          *InlineSSHRequest `json:"ssh,omitempty"`
	ServicePort  int               `json:"service_port"`
	APIPort      int               `json:"api_port"`
	AutoPorts    bool              `json:"auto_ports"`
	Method       string            `json:"method,omitempty"`
	Inbounds     []string          `json:"inbounds,omitempty"`
}

func (r *InstallNodeRequest) Validate() []string {
	var errors []string

	if r.NodeName == "" {
		errors = append(errors, "node_name is required")
	}
	if (r.SSHProfileID == nil) == (r.SSH == nil) {
		errors = append(errors, "exactly one of ssh_profile_id or ssh is required")
	}
	if r.SSH != nil {
		if r.SSH.Host == "" {
			errors = append(errors, "ssh.host is required")
		}
		if r.SSH.Username == "" {
			errors = append(errors, "ssh.username is required")
		}
		if r.SSH.Password == "" && r.SSH.PrivateKey == "" {
			errors = append(errors, "ssh requires either password or private_key")
		}
	}
	if r.Method != "" && r.Method != string(domain.InstallMethodDocker) && r.Method != string(domain.InstallMethodNormal) {
		errors = append(errors, "method must be docker or normal")
	}

	return errors
}

func (r *InstallNodeRequest) ToInput(panelID uint) ports.InstallNodeInput {
	input := ports.InstallNodeInput{
		PanelID:     panelID,
		NodeName:    r.NodeName,
		ServicePort: r.ServicePort,
		APIPort:     r.APIPort,
		AutoPorts:   r.AutoPorts,
		Method:      domain.InstallMethod(r.Method),
		Inbounds:    r.Inbounds,
	}
	if r.SSHProfileID != nil {
		input.Credentials.ProfileID = r.SSHProfileID
	}
	if r.SSH != nil {
		input.Credentials.Inline = &ports.InlineCredentials{
			Host:       r.SSH.Host,
			Port:       r.SSH.Port,
			Username:   r.SSH.Username,
			Password:   r.SSH.Password,
			PrivateKey: r.SSH.PrivateKey,
		}
	}
	return input
}
