package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type SSHProfileHandler struct {
	service ports.SSHProfileService
	logger  *logger.Logger
}

func NewSSHProfileHandler(service ports.SSHProfileService, logger *logger.Logger) *SSHProfileHandler {
	return &SSHProfileHandler{service: service, logger: logger}
}

func (h *SSHProfileHandler) CreateProfile(c *fiber.Ctx) error {
	var req dto.SSHProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("ssh_profile_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	profile, err := h.service.CreateProfile(c.Context(), req.ToInput())
	if err != nil {
		switch err {
		case services.ErrProfileAlreadyExists:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		case services.ErrProfileInvalidInput:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("ssh_profile_create_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	h.logger.Infow("ssh_profile_create_success", "id", profile.ID, "name", profile.Name)
	return c.Status(fiber.StatusCreated).JSON(dto.SSHProfileToResponse(profile))
}

func (h *SSHProfileHandler) GetProfiles(c *fiber.Ctx) error {
	profiles, err := h.service.GetProfiles(c.Context())
	if err != nil {
		h.logger.Errorw("ssh_profiles_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SSHProfilesToResponse(profiles))
}

func (h *SSHProfileHandler) GetProfile(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid profile id"})
	}

	profile, err := h.service.GetProfileByID(c.Context(), id)
	if err != nil {
		if err == services.ErrProfileNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SSHProfileToResponse(profile))
}

func (h *SSHProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid profile id"})
	}

	var req dto.SSHProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	profile, err := h.service.UpdateProfile(c.Context(), id, req.ToInput())
	if err != nil {
		switch err {
		case services.ErrProfileNotFound:
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
		case services.ErrProfileAlreadyExists:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("ssh_profile_update_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SSHProfileToResponse(profile))
}

func (h *SSHProfileHandler) DeleteProfile(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid profile id"})
	}

	if err := h.service.DeleteProfile(c.Context(), id); err != nil {
		switch err {
		case services.ErrProfileNotFound:
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
		case services.ErrProfileInUse:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("ssh_profile_delete_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.MessageResponse{Message: "profile deleted"})
}

func (h *SSHProfileHandler) TestProfile(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid profile id"})
	}

	ok, msg := h.service.TestProfile(c.Context(), id)
	return c.JSON(dto.ConnectionTestResponse{Success: ok, Error: msg})
}
