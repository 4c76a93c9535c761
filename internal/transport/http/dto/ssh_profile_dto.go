package dto

import (
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
)

type SSHProfileRequest struct {
	Name               string `json:"name"`
	Host               string `json:"host"`
	Port               int    `json:"port"`
	Username           string `json:"username"`
	Password           string `json:"password,omitempty"`
	PrivateKey         string `json:"private_key,omitempty"`
	UseKeyAuth         bool   `json:"use_key_auth"`
	DefaultServicePort int    `json:"default_service_port"`
	DefaultAPIPort     int    `json:"default_api_port"`
}

func (r *SSHProfileRequest) Validate() []string {
	var errors []string

	if r.Name == "" {
		errors = append(errors, "name is required")
	}
	if r.Host == "" {
		errors = append(errors, "host is required")
	}
	if r.Username == "" {
		errors = append(errors, "username is required")
	}
	if r.Password == "" && r.PrivateKey == "" {
		errors = append(errors, "either password or private_key is required")
	}

	return errors
}

func (r *SSHProfileRequest) ToInput() ports.SSHProfileInput {
	return ports.SSHProfileInput{
		Name:               r.Name,
		Host:               r.Host,
		Port:               r.Port,
		Username:           r.Username,
		Password:           r.Password,
		PrivateKey:         r.PrivateKey,
		UseKeyAuth:         r.UseKeyAuth,
		DefaultServicePort: r.DefaultServicePort,
		DefaultAPIPort:     r.DefaultAPIPort,
	}
}

// SSHProfileResponse never carries secrets; booleans report what is stored.
type SSHProfileResponse struct {
	ID                 uint      `json:"id"`
	Name               string    `json:"name"`
	Host               string    `json:"host"`
	Port               int       `json:"port"`
	Username           string    `json:"username"`
	UseKeyAuth         bool      `json:"use_key_auth"`
	HasPassword        bool      `json:"has_password"`
	HasPrivateKey      bool      `json:"has_private_key"`
	DefaultServicePort int       `json:"default_service_port"`
	DefaultAPIPort     int       `json:"default_api_port"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func SSHProfileToResponse(profile *domain.SSHProfile) SSHProfileResponse {
	return SSHProfileResponse{
		ID:                 profile.ID,
		Name:               profile.Name,
		Host:               profile.Host,
		Port:               profile.Port,
		Username:           profile.Username,
		UseKeyAuth:         profile.UseKeyAuth,
		HasPassword:        profile.Password != "",
		HasPrivateKey:      profile.PrivateKey != "",
		DefaultServicePort: profile.DefaultServicePort,
		DefaultAPIPort:     profile.DefaultAPIPort,
		CreatedAt:          profile.CreatedAt,
		UpdatedAt:          profile.UpdatedAt,
	}
}

func SSHProfilesToResponse(profiles []domain.SSHProfile) []SSHProfileResponse {
	responses := make([]SSHProfileResponse, 0, len(profiles))
	for i := range profiles {
		responses = append(responses, SSHProfileToResponse(&profiles[i]))
	}
	return responses
}

type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
