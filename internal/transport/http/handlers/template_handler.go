package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type TemplateHandler struct {
	service ports.TemplateService
	logger  *logger.Logger
}

func NewTemplateHandler(service ports.TemplateService, logger *logger.Logger) *TemplateHandler {
	return &TemplateHandler{service: service, logger: logger}
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("template_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	template, err := h.service.CreateTemplate(c.Context(), req.ToInput())
	if err != nil {
		switch err {
		case services.ErrTemplateAlreadyExists:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		case services.ErrTemplateInvalidInput:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("template_create_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.TemplateToResponse(template))
}

func (h *TemplateHandler) GetTemplates(c *fiber.Ctx) error {
	templates, err := h.service.GetTemplates(c.Context(), c.Query("protocol"), c.Query("transport"))
	if err != nil {
		h.logger.Errorw("templates_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.TemplatesToResponse(templates))
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid template id"})
	}

	template, err := h.service.GetTemplateByID(c.Context(), id)
	if err != nil {
		if err == services.ErrTemplateNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "template not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.TemplateToResponse(template))
}

func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid template id"})
	}

	var req dto.UpdateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	template, err := h.service.UpdateTemplate(c.Context(), id, req.ToInput())
	if err != nil {
		switch err {
		case services.ErrTemplateNotFound:
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "template not found"})
		case services.ErrTemplateAlreadyExists:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("template_update_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.TemplateToResponse(template))
}

func (h *TemplateHandler) DeleteTemplate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid template id"})
	}

	if err := h.service.DeleteTemplate(c.Context(), id); err != nil {
		if err == services.ErrTemplateNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "template not found"})
		}
		h.logger.Errorw("template_delete_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.MessageResponse{Message: "template deleted"})
}

func (h *TemplateHandler) DuplicateTemplate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid template id"})
	}

	// Body is optional; without one the new tag is derived from the source.
	var req dto.DuplicateTemplateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
		}
	}

	template, err := h.service.DuplicateTemplate(c.Context(), id, req.NewTag)
	if err != nil {
		if err == services.ErrTemplateNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "template not found"})
		}
		h.logger.Errorw("template_duplicate_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TemplateToResponse(template))
}
