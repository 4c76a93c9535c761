package services

import (
	"context"

	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
)

type dashboardService struct {
	panelRepo   ports.PanelRepository
	nodeRepo    ports.NodeRepository
	profileRepo ports.SSHProfileRepository
	auditRepo   ports.AuditRepository
	jobs        *JobManager
	log         *logger.Logger
}

func NewDashboardService(
	panelRepo ports.PanelRepository,
	nodeRepo ports.NodeRepository,
	profileRepo ports.SSHProfileRepository,
	auditRepo ports.AuditRepository,
	jobs *JobManager,
	log *logger.Logger,
) ports.DashboardService {
	return &dashboardService{
		panelRepo:   panelRepo,
		nodeRepo:    nodeRepo,
		profileRepo: profileRepo,
		auditRepo:   auditRepo,
		jobs:        jobs,
		log:         log,
	}
}

// Overview aggregates fleet counts for the dashboard landing page.
func (s *dashboardService) Overview(ctx context.Context) (*ports.DashboardOverview, error) {
	overview := &ports.DashboardOverview{
		NodesByStatus: make(map[string]int),
	}

	panels, err := s.panelRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	overview.Panels = len(panels)
	for _, p := range panels {
		if p.IsActive {
			overview.ActivePanels++
		}
	}

	nodes, err := s.nodeRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	overview.Nodes = len(nodes)
	for _, node := range nodes {
		overview.NodesByStatus[string(node.Status)]++
	}

	profiles, err := s.profileRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	overview.SSHProfiles = len(profiles)

	counts := s.jobs.CountByStatus()
	overview.JobsRunning = counts[domain.JobStatusRunning] + counts[domain.JobStatusPending]
	overview.JobsCompleted = counts[domain.JobStatusCompleted]
	overview.JobsFailed = counts[domain.JobStatusFailed]

	if s.auditRepo != nil {
		if recent, err := s.auditRepo.GetAll(ctx, 10); err == nil {
			overview.RecentActivity = recent
		}
	}

	return overview, nil
}
