package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type templateService struct {
	templateRepo ports.TemplateRepository
	auditRepo    ports.AuditRepository
	log          *logger.Logger
}

func NewTemplateService(
	templateRepo ports.TemplateRepository,
	auditRepo ports.AuditRepository,
	log *logger.Logger,
) ports.TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		auditRepo:    auditRepo,
		log:          log,
	}
}

func (s *templateService) CreateTemplate(ctx context.Context, input ports.TemplateInput) (*domain.ConfigTemplate, error) {
	if input.Tag == "" || input.Protocol == "" {
		return nil, ErrTemplateInvalidInput
	}

	if existing, err := s.templateRepo.GetByTag(ctx, input.Tag); err == nil && existing != nil {
		return nil, ErrTemplateAlreadyExists
	}

	template := &domain.ConfigTemplate{
		Tag:       input.Tag,
		Protocol:  input.Protocol,
		Transport: input.Transport,
		Security:  input.Security,
		Port:      input.Port,
		Config:    input.Config,
	}
	if err := s.templateRepo.Create(ctx, template); err != nil {
		return nil, err
	}

	s.audit(ctx, template.ID, "create", "Template created: "+template.Tag, nil, domain.JSONB{
		"tag":      template.Tag,
		"protocol": template.Protocol,
	})
	s.log.Infow("template_created", "id", template.ID, "tag", template.Tag)
	return template, nil
}

func (s *templateService) GetTemplates(ctx context.Context, protocol, transport string) ([]domain.ConfigTemplate, error) {
	return s.templateRepo.GetAll(ctx, protocol, transport)
}

func (s *templateService) GetTemplateByID(ctx context.Context, id uint) (*domain.ConfigTemplate, error) {
	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, id uint, input ports.UpdateTemplateInput) (*domain.ConfigTemplate, error) {
	template, err := s.GetTemplateByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldTag := template.Tag

	if input.Tag != nil && *input.Tag != template.Tag {
		if existing, err := s.templateRepo.GetByTag(ctx, *input.Tag); err == nil && existing != nil && existing.ID != id {
			return nil, ErrTemplateAlreadyExists
		}
		template.Tag = *input.Tag
	}
	if input.Protocol != nil {
		template.Protocol = *input.Protocol
	}
	if input.Transport != nil {
		template.Transport = *input.Transport
	}
	if input.Security != nil {
		template.Security = *input.Security
	}
	if input.Port != nil {
		template.Port = *input.Port
	}
	if input.Config != nil {
		template.Config = input.Config
	}

	if err := s.templateRepo.Update(ctx, template); err != nil {
		return nil, err
	}

	s.audit(ctx, template.ID, "update", "Template updated: "+oldTag,
		domain.JSONB{"tag": oldTag},
		domain.JSONB{"tag": template.Tag, "protocol": template.Protocol},
	)
	return template, nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, id uint) error {
	template, err := s.GetTemplateByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.templateRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, id, "delete", "Template removed: "+template.Tag,
		domain.JSONB{"tag": template.Tag}, nil)
	s.log.Infow("template_deleted", "id", id, "tag", template.Tag)
	return nil
}

// DuplicateTemplate clones a template under a new tag. An empty newTag
// derives one from the source; a colliding tag gets a random suffix.
func (s *templateService) DuplicateTemplate(ctx context.Context, id uint, newTag string) (*domain.ConfigTemplate, error) {
	source, err := s.GetTemplateByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if newTag == "" {
		newTag = source.Tag + "-copy"
	}
	if existing, err := s.templateRepo.GetByTag(ctx, newTag); err == nil && existing != nil {
		newTag = fmt.Sprintf("%s-%s", newTag, uuid.New().String()[:8])
	}

	copied := &domain.ConfigTemplate{
		Tag:       newTag,
		Protocol:  source.Protocol,
		Transport: source.Transport,
		Security:  source.Security,
		Port:      source.Port,
		Config:    source.Config,
	}
	if err := s.templateRepo.Create(ctx, copied); err != nil {
		return nil, err
	}

	s.audit(ctx, copied.ID, "create", "Template duplicated from "+source.Tag, nil, domain.JSONB{
		"source_id": source.ID,
		"tag":       copied.Tag,
	})
	s.log.Infow("template_duplicated", "source_id", source.ID, "id", copied.ID, "tag", copied.Tag)
	return copied, nil
}

func (s *templateService) audit(ctx context.Context, templateID uint, action, description string, oldValue, newValue domain.JSONB) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.AuditLog{
		EntityType:  "template",
		EntityID:    templateID,
		Action:      action,
		Description: description,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Warnw("audit_write_failed", "entity", "template", "action", action, "error", err)
	}
}
