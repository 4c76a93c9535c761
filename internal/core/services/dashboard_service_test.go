package services

import (
	"context"
	"testing"
	"time"

	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardOverview(t *testing.T) {
	panels := newFakePanelRepo()
	nodes := newFakeNodeRepo()
	profiles := newFakeProfileRepo()
	audit := &fakeAuditRepo{}
	jobs := newTestJobManager(10, time.Hour)

	ctx := context.Background()
	require.NoError(t, panels.Create(ctx, &domain.Panel{Name: "a", URL: "https://a", IsActive: true}))
	require.NoError(t, panels.Create(ctx, &domain.Panel{Name: "b", URL: "https://b", IsActive: false}))

	require.NoError(t, nodes.Create(ctx, &domain.Node{PanelID: 1, Name: "edge-1", Address: "x", Status: domain.NodeStatusConnected}))
	require.NoError(t, nodes.Create(ctx, &domain.Node{PanelID: 1, Name: "edge-2", Address: "y", Status: domain.NodeStatusError}))

	require.NoError(t, profiles.Create(ctx, &domain.SSHProfile{Name: "p", Host: "h", Username: "u"}))

	jobs.CreateJob("node_install", nil)
	done := jobs.CreateJob("node_install", nil)
	done.Start()
	done.Complete(nil)
	failed := jobs.CreateJob("node_install", nil)
	failed.Start()
	failed.Fail("boom")

	require.NoError(t, audit.Create(ctx, &domain.AuditLog{EntityType: "node", EntityID: 1, Action: "install"}))

	svc := NewDashboardService(panels, nodes, profiles, audit, jobs, logger.Nop())
	overview, err := svc.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, overview.Panels)
	assert.Equal(t, 1, overview.ActivePanels)
	assert.Equal(t, 2, overview.Nodes)
	assert.Equal(t, 1, overview.NodesByStatus["connected"])
	assert.Equal(t, 1, overview.NodesByStatus["error"])
	assert.Equal(t, 1, overview.SSHProfiles)

	// Pending counts as running work in flight.
	assert.Equal(t, 1, overview.JobsRunning)
	assert.Equal(t, 1, overview.JobsCompleted)
	assert.Equal(t, 1, overview.JobsFailed)
	assert.NotNil(t, overview.RecentActivity)
}
