package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type DashboardHandler struct {
	service ports.DashboardService
	logger  *logger.Logger
}

func NewDashboardHandler(service ports.DashboardService, logger *logger.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: logger}
}

func (h *DashboardHandler) GetOverview(c *fiber.Ctx) error {
	overview, err := h.service.Overview(c.Context())
	if err != nil {
		h.logger.Errorw("dashboard_overview_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(overview)
}
