package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type JobHandler struct {
	jobs   *services.JobManager
	logger *logger.Logger
}

func NewJobHandler(jobs *services.JobManager, logger *logger.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

func (h *JobHandler) GetJobs(c *fiber.Ctx) error {
	jobType := c.Query("job_type")
	status := domain.JobStatus(c.Query("status"))
	limit := c.QueryInt("limit", 0)

	return c.JSON(h.jobs.ListJobs(jobType, status, limit))
}

func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	snapshot, err := h.jobs.GetSnapshot(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "job not found"})
	}
	return c.JSON(snapshot)
}

func (h *JobHandler) CancelJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.jobs.CancelJob(id); err != nil {
		switch err {
		case services.ErrJobNotFound:
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "job not found"})
		case services.ErrJobTerminal:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	h.logger.Infow("job_cancel_requested", "job_id", id)
	return c.JSON(dto.MessageResponse{Message: "job cancelled"})
}

// DeleteJob removes a job record; a still-active job is cancelled first.
func (h *JobHandler) DeleteJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.jobs.DeleteJob(id); err != nil {
		if err == services.ErrJobNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.MessageResponse{Message: "job deleted"})
}
