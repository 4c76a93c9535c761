package dto

import (
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
)

type TemplateRequest struct {
	Tag       string       `json:"tag"`
	Protocol  string       `json:"protocol"`
	Transport string       `json:"transport"`
	Security  string       `json:"security"`
	Port      int          `json:"port"`
	Config    domain.JSONB `json:"config"`
}

func (r *TemplateRequest) Validate() []string {
	var errors []string

	if r.Tag == "" {
		errors = append(errors, "tag is required")
	}
	if r.Protocol == "" {
		errors = append(errors, "protocol is required")
	}
	if r.Port < 0 || r.Port > 65535 {
		errors = append(errors, "port must be between 0 and 65535")
	}

	return errors
}

func (r *TemplateRequest) ToInput() ports.TemplateInput {
	return ports.TemplateInput{
		Tag:       r.Tag,
		Protocol:  r.Protocol,
		Transport: r.Transport,
		Security:  r.Security,
		Port:      r.Port,
		Config:    r.Config,
	}
}

type UpdateTemplateRequest struct {
	Tag       *string      `json:"tag,omitempty"`
	Protocol  *string      `json:"protocol,omitempty"`
	Transport *string      `json:"transport,omitempty"`
	Security  *string      `json:"security,omitempty"`
	Port      *int         `json:"port,omitempty"`
	Config    domain.JSONB `json:"config,omitempty"`
}

func (r *UpdateTemplateRequest) ToInput() ports.UpdateTemplateInput {
	return ports.UpdateTemplateInput{
		Tag:       r.Tag,
		Protocol:  r.Protocol,
		Transport: r.Transport,
		Security:  r.Security,
		Port:      r.Port,
		Config:    r.Config,
	}
}

type DuplicateTemplateRequest struct {
	NewTag string `json:"new_tag,omitempty"`
}

type TemplateResponse struct {
	ID        uint         `json:"id"`
	Tag       string       `json:"tag"`
	Protocol  string       `json:"protocol"`
	Transport string       `json:"transport,omitempty"`
	Security  string       `json:"security,omitempty"`
	Port      int          `json:"port"`
	Config    domain.JSONB `json:"config"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func TemplateToResponse(template *domain.ConfigTemplate) TemplateResponse {
	return TemplateResponse{
		ID:        template.ID,
		Tag:       template.Tag,
		Protocol:  template.Protocol,
		Transport: template.Transport,
		Security:  template.Security,
		Port:      template.Port,
		Config:    template.Config,
		CreatedAt: template.CreatedAt,
		UpdatedAt: template.UpdatedAt,
	}
}

func TemplatesToResponse(templates []domain.ConfigTemplate) []TemplateResponse {
	responses := make([]TemplateResponse, 0, len(templates))
	for i := range templates {
		responses = append(responses, TemplateToResponse(&templates[i]))
	}
	return responses
}
