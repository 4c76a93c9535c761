package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type PanelHandler struct {
	service ports.PanelService
	logger  *logger.Logger
}

func NewPanelHandler(service ports.PanelService, logger *logger.Logger) *PanelHandler {
	return &PanelHandler{service: service, logger: logger}
}

func (h *PanelHandler) CreatePanel(c *fiber.Ctx) error {
	var req dto.CreatePanelRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("panel_create_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("panel_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("panel_create_request", "name", req.Name, "url", req.URL)
	panel, err := h.service.CreatePanel(c.Context(), ports.CreatePanelInput{
		Name:     req.Name,
		URL:      req.URL,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch err {
		case services.ErrPanelAlreadyExists:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		case services.ErrPanelInvalidInput:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		case services.ErrPanelAuthFailed:
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("panel_create_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	h.logger.Infow("panel_create_success", "id", panel.ID, "url", panel.URL)
	return c.Status(fiber.StatusCreated).JSON(dto.PanelToResponse(panel))
}

func (h *PanelHandler) GetPanels(c *fiber.Ctx) error {
	panels, err := h.service.GetPanels(c.Context())
	if err != nil {
		h.logger.Errorw("panels_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.PanelsToResponse(panels))
}

func (h *PanelHandler) GetPanel(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid panel id"})
	}

	panel, err := h.service.GetPanelByID(c.Context(), id)
	if err != nil {
		if err == services.ErrPanelNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "panel not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.PanelToResponse(panel))
}

func (h *PanelHandler) UpdatePanel(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid panel id"})
	}

	var req dto.UpdatePanelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	panel, err := h.service.UpdatePanel(c.Context(), id, ports.UpdatePanelInput{
		Name:     req.Name,
		URL:      req.URL,
		Username: req.Username,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		if err == services.ErrPanelNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "panel not found"})
		}
		h.logger.Errorw("panel_update_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	h.logger.Infow("panel_update_success", "id", id)
	return c.JSON(dto.PanelToResponse(panel))
}

func (h *PanelHandler) DeletePanel(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid panel id"})
	}

	if err := h.service.DeletePanel(c.Context(), id); err != nil {
		if err == services.ErrPanelNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "panel not found"})
		}
		h.logger.Errorw("panel_delete_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	h.logger.Infow("panel_delete_success", "id", id)
	return c.JSON(dto.MessageResponse{Message: "panel deleted"})
}

func (h *PanelHandler) TestPanel(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid panel id"})
	}

	status, err := h.service.TestPanel(c.Context(), id)
	if err != nil {
		if err == services.ErrPanelNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "panel not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(status)
}

func (h *PanelHandler) GetCertificate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid panel id"})
	}

	refresh := c.QueryBool("refresh", false)
	cert, err := h.service.GetCertificate(c.Context(), id, refresh)
	if err != nil {
		if err == services.ErrPanelNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "panel not found"})
		}
		h.logger.Errorw("panel_certificate_failed", "id", id, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.CertificateResponse{Certificate: cert})
}

// GetPanelNodes proxies the panel's live node inventory.
func (h *PanelHandler) GetPanelNodes(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid panel id"})
	}

	nodes, err := h.service.GetPanelNodes(c.Context(), id)
	if err != nil {
		if err == services.ErrPanelNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "panel not found"})
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(nodes)
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
