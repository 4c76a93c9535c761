package dto

import (
	"net/url"
	"time"

	"github.com/marzdeck/backend/internal/domain"
)

type CreatePanelRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *CreatePanelRequest) Validate() []string {
	var errors []string

	if r.Name == "" {
		errors = append(errors, "name is required")
	}
	if r.URL == "" {
		errors = append(errors, "url is required")
	} else if u, err := url.Parse(r.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "url must be a valid absolute URL")
	}
	if r.Username == "" {
		errors = append(errors, "username is required")
	}
	if r.Password == "" {
		errors = append(errors, "password is required")
	}

	return errors
}

type UpdatePanelRequest struct {
	Name     *string `json:"name,omitempty"`
	URL      *string `json:"url,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type PanelResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	IsActive       bool      `json:"is_active"`
	HasCertificate bool      `json:"has_certificate"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func PanelToResponse(panel *domain.Panel) PanelResponse {
	return PanelResponse{
		ID:             panel.ID,
		Name:           panel.Name,
		URL:            panel.URL,
		IsActive:       panel.IsActive,
		HasCertificate: panel.Certificate != "",
		CreatedAt:      panel.CreatedAt,
		UpdatedAt:      panel.UpdatedAt,
	}
}

func PanelsToResponse(panels []domain.Panel) []PanelResponse {
	responses := make([]PanelResponse, 0, len(panels))
	for i := range panels {
		responses = append(responses, PanelToResponse(&panels[i]))
	}
	return responses
}

type CertificateResponse struct {
	Certificate string `json:"certificate"`
}
