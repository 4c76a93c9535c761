package dto

import (
	"time"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
)

type UpdateNodeRequest struct {
	Name       *string `json:"name,omitempty"`
	Address    *string `json:"address,omitempty"`
	Status     *string `json:"status,omitempty"`
	StatusNote *string `json:"status_note,omitempty"`
}

func (r *UpdateNodeRequest) ToInput() ports.UpdateNodeInput {
	input := ports.UpdateNodeInput{
		Name:       r.Name,
		Address:    r.Address,
		StatusNote: r.StatusNote,
	}
	if r.Status != nil {
		status := domain.NodeStatus(*r.Status)
		input.Status = &status
	}
	return input
}

type NodeResponse struct {
	ID           uint              `json:"id"`
	PanelID      uint              `json:"panel_id"`
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	ServicePort  int               `json:"service_port"`
	APIPort      int               `json:"api_port"`
	Status       domain.NodeStatus `json:"status"`
	StatusNote   string            `json:"status_note,omitempty"`
	InstallDir   string            `json:"install_dir,omitempty"`
	DataDir      string            `json:"data_dir,omitempty"`
	SSHProfileID *uint             `json:"ssh_profile_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func NodeToResponse(node *domain.Node) NodeResponse {
	return NodeResponse{
		ID:           node.ID,
		PanelID:      node.PanelID,
		Name:         node.Name,
		Address:      node.Address,
		ServicePort:  node.ServicePort,
		APIPort:      node.APIPort,
		Status:       node.Status,
		StatusNote:   node.StatusNote,
		InstallDir:   node.InstallDir,
		DataDir:      node.DataDir,
		SSHProfileID: node.SSHProfileID,
		CreatedAt:    node.CreatedAt,
		UpdatedAt:    node.UpdatedAt,
	}
}

func NodesToResponse(nodes []domain.Node) []NodeResponse {
	responses := make([]NodeResponse, 0, len(nodes))
	for i := range nodes {
		responses = append(responses, NodeToResponse(&nodes[i]))
	}
	return responses
}

type NodeLogsResponse struct {
	Logs string `json:"logs"`
}
