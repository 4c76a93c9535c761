package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type SettingHandler struct {
	service ports.SettingService
	logger  *logger.Logger
}

func NewSettingHandler(service ports.SettingService, logger *logger.Logger) *SettingHandler {
	return &SettingHandler{service: service, logger: logger}
}

func (h *SettingHandler) GetSettings(c *fiber.Ctx) error {
	category := c.Query("category", "general")
	settings, err := h.service.GetByCategory(c.Context(), category)
	if err != nil {
		h.logger.Errorw("settings_list_failed", "category", category, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(settings)
}

func (h *SettingHandler) GetSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	setting, err := h.service.Get(c.Context(), key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if setting == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "setting not found"})
	}
	return c.JSON(setting)
}

func (h *SettingHandler) SetSetting(c *fiber.Ctx) error {
	var req dto.SettingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	setting, err := h.service.Set(c.Context(), req.Key, req.Value, req.Type, req.Category)
	if err != nil {
		h.logger.Errorw("setting_set_failed", "key", req.Key, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(setting)
}

func (h *SettingHandler) DeleteSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := h.service.Delete(c.Context(), key); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.MessageResponse{Message: "setting deleted"})
}
