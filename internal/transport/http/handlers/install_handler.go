package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type InstallHandler struct {
	service ports.InstallService
	logger  *logger.Logger
}

func NewInstallHandler(service ports.InstallService, logger *logger.Logger) *InstallHandler {
	return &InstallHandler{service: service, logger: logger}
}

// InstallNode accepts a provisioning request and returns the job ID. The
// install itself runs asynchronously; progress is polled via the jobs API.
func (h *InstallHandler) InstallNode(c *fiber.Ctx) error {
	panelID, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid panel id"})
	}

	var req dto.InstallNodeRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("install_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("install_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("install_request", "panel_id", panelID, "node_name", req.NodeName)
	jobID, err := h.service.StartInstall(c.Context(), req.ToInput(panelID))
	if err != nil {
		switch err {
		case services.ErrPanelNotFound:
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "panel not found"})
		case services.ErrProfileNotFound:
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "ssh profile not found"})
		case services.ErrNodeAlreadyExists:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		case services.ErrInstallInvalidInput, services.ErrInstallNoCredentials:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("install_start_failed", "panel_id", panelID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	h.logger.Infow("install_accepted", "panel_id", panelID, "job_id", jobID)
	return c.Status(fiber.StatusAccepted).JSON(dto.JobAcceptedResponse{JobID: jobID})
}
