package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type AuditHandler struct {
	repo ports.AuditRepository
}

func NewAuditHandler(repo ports.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) GetEntries(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)

	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType != "" && entityID != "" {
		id, err := strconv.ParseUint(entityID, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid entity_id"})
		}
		entries, err := h.repo.GetByEntity(c.Context(), entityType, uint(id))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(entries)
	}

	entries, err := h.repo.GetAll(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(entries)
}
