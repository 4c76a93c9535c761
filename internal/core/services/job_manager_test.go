package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobManager(maxJobs int, ttl time.Duration) *JobManager {
	return NewJobManager(logger.Nop(), maxJobs, ttl)
}

func waitTerminal(t *testing.T, job *domain.Job) domain.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.Status().Terminal() {
			return job.Snapshot()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", job.ID())
	return domain.JobSnapshot{}
}

func TestJobManagerRunJobCompletes(t *testing.T) {
	m := newTestJobManager(10, time.Hour)
	job := m.CreateJob("node_install", map[string]string{"node_name": "edge-1"})

	m.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		job.UpdateProgress(40, "Installing node")
		return nil
	})

	snap := waitTerminal(t, job)
	assert.Equal(t, domain.JobStatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
}

func TestJobManagerRunJobKeepsExplicitResult(t *testing.T) {
	m := newTestJobManager(10, time.Hour)
	job := m.CreateJob("node_install", nil)

	m.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		job.Complete(map[string]interface{}{"node_id": uint(3)})
		return nil
	})

	snap := waitTerminal(t, job)
	assert.Equal(t, domain.JobStatusCompleted, snap.Status)
	assert.Equal(t, uint(3), snap.Result["node_id"])
}

func TestJobManagerRunJobFailure(t *testing.T) {
	m := newTestJobManager(10, time.Hour)
	job := m.CreateJob("node_install", nil)

	m.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		return errors.New("ssh connection refused")
	})

	snap := waitTerminal(t, job)
	assert.Equal(t, domain.JobStatusFailed, snap.Status)
	assert.Equal(t, "ssh connection refused", snap.Error)
}

func TestJobManagerRunJobRecoversPanic(t *testing.T) {
	m := newTestJobManager(10, time.Hour)
	job := m.CreateJob("node_install", nil)

	m.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		panic("nil map write")
	})

	snap := waitTerminal(t, job)
	assert.Equal(t, domain.JobStatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "nil map write")
}

func TestJobManagerCancelSignalsContext(t *testing.T) {
	m := newTestJobManager(10, time.Hour)
	job := m.CreateJob("node_install", nil)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	m.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	<-started
	require.NoError(t, m.CancelJob(job.ID()))

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("job context was never cancelled")
	}

	snap := waitTerminal(t, job)
	assert.Equal(t, domain.JobStatusCancelled, snap.Status)

	// Cancelled is terminal, a second cancel is rejected.
	assert.ErrorIs(t, m.CancelJob(job.ID()), ErrJobTerminal)
}

func TestJobManagerGetJobNotFound(t *testing.T) {
	m := newTestJobManager(10, time.Hour)

	_, err := m.GetJob("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = m.GetSnapshot("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobManagerJobIDsAreUnique(t *testing.T) {
	m := newTestJobManager(100, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		job := m.CreateJob("node_install", nil)
		assert.False(t, seen[job.ID()])
		seen[job.ID()] = true
	}
}

func TestJobManagerListJobsNewestFirst(t *testing.T) {
	m := newTestJobManager(10, time.Hour)

	first := m.CreateJob("node_install", nil)
	time.Sleep(2 * time.Millisecond)
	second := m.CreateJob("node_install", nil)

	snapshots := m.ListJobs("", "", 0)
	require.Len(t, snapshots, 2)
	assert.Equal(t, second.ID(), snapshots[0].JobID)
	assert.Equal(t, first.ID(), snapshots[1].JobID)
}

func TestJobManagerListJobsFilters(t *testing.T) {
	m := newTestJobManager(10, time.Hour)

	install := m.CreateJob("node_install", nil)
	install.Start()
	install.Complete(nil)

	uninstall := m.CreateJob("node_uninstall", nil)
	m.CreateJob("node_install", nil)

	byType := m.ListJobs("node_uninstall", "", 0)
	require.Len(t, byType, 1)
	assert.Equal(t, uninstall.ID(), byType[0].JobID)

	byStatus := m.ListJobs("", domain.JobStatusCompleted, 0)
	require.Len(t, byStatus, 1)
	assert.Equal(t, install.ID(), byStatus[0].JobID)

	both := m.ListJobs("node_install", domain.JobStatusPending, 0)
	require.Len(t, both, 1)
	assert.NotEqual(t, install.ID(), both[0].JobID)
}

func TestJobManagerListJobsLimit(t *testing.T) {
	m := newTestJobManager(10, time.Hour)

	for i := 0; i < 5; i++ {
		m.CreateJob("node_install", nil)
		time.Sleep(time.Millisecond)
	}
	newest := m.CreateJob("node_install", nil)

	snapshots := m.ListJobs("", "", 2)
	require.Len(t, snapshots, 2)
	assert.Equal(t, newest.ID(), snapshots[0].JobID)
}

func TestJobManagerDeleteJobCancelsActiveJob(t *testing.T) {
	m := newTestJobManager(10, time.Hour)

	assert.ErrorIs(t, m.DeleteJob("missing"), ErrJobNotFound)

	job := m.CreateJob("node_install", nil)
	started := make(chan struct{})
	m.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	require.NoError(t, m.DeleteJob(job.ID()))
	assert.Equal(t, domain.JobStatusCancelled, job.Snapshot().Status)

	_, err := m.GetJob(job.ID())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobManagerDeleteJobRemovesTerminalJob(t *testing.T) {
	m := newTestJobManager(10, time.Hour)
	job := m.CreateJob("node_install", nil)
	job.Start()
	job.Complete(nil)

	require.NoError(t, m.DeleteJob(job.ID()))

	_, err := m.GetJob(job.ID())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobManagerCancelWaitsForWorker(t *testing.T) {
	m := newTestJobManager(10, time.Hour)
	job := m.CreateJob("node_install", nil)

	started := make(chan struct{})
	released := make(chan struct{})
	m.RunJob(job, func(ctx context.Context, job *domain.Job) error {
		close(started)
		<-ctx.Done()
		close(released)
		return ctx.Err()
	})
	<-started

	require.NoError(t, m.CancelJob(job.ID()))

	// CancelJob only returns once the worker goroutine has exited.
	select {
	case <-released:
	default:
		t.Fatal("CancelJob returned while the worker was still running")
	}
	assert.Equal(t, domain.JobStatusCancelled, job.Snapshot().Status)
}

func TestJobManagerSweepEvictsOnlyExpiredTerminalJobs(t *testing.T) {
	m := newTestJobManager(2, time.Millisecond)

	expired := m.CreateJob("node_install", nil)
	expired.Start()
	expired.Complete(nil)

	running := m.CreateJob("node_install", nil)
	running.Start()

	time.Sleep(5 * time.Millisecond)

	// At capacity; creating a third job triggers the sweep.
	m.CreateJob("node_install", nil)

	_, err := m.GetJob(expired.ID())
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = m.GetJob(running.ID())
	assert.NoError(t, err)
	assert.Len(t, m.ListJobs("", "", 0), 2)
}

func TestJobManagerCountByStatus(t *testing.T) {
	m := newTestJobManager(10, time.Hour)

	m.CreateJob("node_install", nil)
	done := m.CreateJob("node_install", nil)
	done.Start()
	done.Complete(nil)

	counts := m.CountByStatus()
	assert.Equal(t, 1, counts[domain.JobStatusPending])
	assert.Equal(t, 1, counts[domain.JobStatusCompleted])
}
