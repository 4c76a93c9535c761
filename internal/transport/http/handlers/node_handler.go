package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/transport/http/dto"
)

type NodeHandler struct {
	service ports.NodeService
	logger  *logger.Logger
}

func NewNodeHandler(service ports.NodeService, logger *logger.Logger) *NodeHandler {
	return &NodeHandler{service: service, logger: logger}
}

func (h *NodeHandler) GetNodes(c *fiber.Ctx) error {
	panelID := c.QueryInt("panel_id", 0)

	if panelID > 0 {
		list, err := h.service.GetNodesByPanel(c.Context(), uint(panelID))
		if err != nil {
			h.logger.Errorw("nodes_list_failed", "panel_id", panelID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(dto.NodesToResponse(list))
	}

	list, err := h.service.GetNodes(c.Context())
	if err != nil {
		h.logger.Errorw("nodes_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.NodesToResponse(list))
}

func (h *NodeHandler) GetNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid node id"})
	}

	node, err := h.service.GetNodeByID(c.Context(), id)
	if err != nil {
		if err == services.ErrNodeNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "node not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.NodeToResponse(node))
}

func (h *NodeHandler) UpdateNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid node id"})
	}

	var req dto.UpdateNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	node, err := h.service.UpdateNode(c.Context(), id, req.ToInput())
	if err != nil {
		if err == services.ErrNodeNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "node not found"})
		}
		h.logger.Errorw("node_update_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.NodeToResponse(node))
}

// DeleteNode cascades through the panel and the remote server before
// removing the local record. Each cascade leg can be switched off via a
// query flag; the per-leg outcome is always returned, even when a leg
// failed.
func (h *NodeHandler) DeleteNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid node id"})
	}

	fromPanel := c.QueryBool("delete_from_marzban", true)
	fromServer := c.QueryBool("delete_from_server", true)

	h.logger.Infow("node_delete_request", "id", id,
		"delete_from_marzban", fromPanel, "delete_from_server", fromServer)
	outcome, err := h.service.DeleteNode(c.Context(), id, fromPanel, fromServer)
	if err != nil {
		if err == services.ErrNodeNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "node not found"})
		}
		if outcome != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(outcome)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	h.logger.Infow("node_delete_success", "id", id)
	return c.JSON(outcome)
}

func (h *NodeHandler) SyncStatus(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid node id"})
	}

	node, err := h.service.SyncStatus(c.Context(), id)
	if err != nil {
		if err == services.ErrNodeNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "node not found"})
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.NodeToResponse(node))
}

func (h *NodeHandler) RemoteStatus(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid node id"})
	}

	status, err := h.service.RemoteStatus(c.Context(), id)
	if err != nil {
		return h.remoteError(c, id, err)
	}
	return c.JSON(status)
}

func (h *NodeHandler) RemoteAction(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid node id"})
	}
	action := c.Params("action")

	if err := h.service.RemoteAction(c.Context(), id, action); err != nil {
		if err == services.ErrNodeBadAction {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return h.remoteError(c, id, err)
	}
	return c.JSON(dto.MessageResponse{Message: action + " succeeded"})
}

func (h *NodeHandler) RemoteLogs(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid node id"})
	}
	lines := c.QueryInt("lines", 100)

	logs, err := h.service.RemoteLogs(c.Context(), id, lines)
	if err != nil {
		return h.remoteError(c, id, err)
	}
	return c.JSON(dto.NodeLogsResponse{Logs: logs})
}

func (h *NodeHandler) remoteError(c *fiber.Ctx, id uint, err error) error {
	switch err {
	case services.ErrNodeNotFound:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "node not found"})
	case services.ErrNodeNoSSHProfile:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	h.logger.Errorw("node_remote_op_failed", "id", id, "error", err)
	return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error()})
}
