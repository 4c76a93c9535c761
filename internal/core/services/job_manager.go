package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
)

// JobManager is the in-process registry of asynchronous jobs. Job records
// live in memory only and survive until swept: a restart forgets all jobs,
// which is acceptable because every durable effect (DB rows, panel nodes)
// is re-derivable from the stores of record.
type JobManager struct {
	log     *logger.Logger
	maxJobs int
	ttl     time.Duration

	mu      sync.RWMutex
	jobs    map[string]*domain.Job
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
}

// Jobs listings default to the most recent 50 when the caller gives no
// limit.
const defaultListLimit = 50

func NewJobManager(log *logger.Logger, maxJobs int, ttl time.Duration) *JobManager {
	if maxJobs <= 0 {
		maxJobs = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobManager{
		log:     log,
		maxJobs: maxJobs,
		ttl:     ttl,
		jobs:    make(map[string]*domain.Job),
		cancels: make(map[string]context.CancelFunc),
		done:    make(map[string]chan struct{}),
	}
}

// CreateJob registers a new pending job. When the registry is at capacity,
// terminal jobs older than the TTL are swept first; jobs still running are
// never evicted.
func (m *JobManager) CreateJob(jobType string, metadata map[string]string) *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) >= m.maxJobs {
		m.sweepLocked()
	}

	job := domain.NewJob(uuid.New().String(), jobType, metadata)
	m.jobs[job.ID()] = job
	m.log.Infow("job_created", "job_id", job.ID(), "type", jobType)
	return job
}

func (m *JobManager) sweepLocked() {
	cutoff := time.Now().Add(-m.ttl)
	for id, job := range m.jobs {
		completed := job.CompletedAt()
		if job.Status().Terminal() && completed != nil && completed.Before(cutoff) {
			delete(m.jobs, id)
			delete(m.cancels, id)
			delete(m.done, id)
		}
	}
}

// RunJob starts fn on a detached goroutine with its own cancellable context.
// The context deliberately does not inherit the caller's: the HTTP request
// that started the job returns immediately and must not cancel the work.
// A panic in fn fails the job instead of crashing the process; a nil error
// return completes the job if fn did not already set a terminal state.
func (m *JobManager) RunJob(job *domain.Job, fn func(ctx context.Context, job *domain.Job) error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.cancels[job.ID()] = cancel
	m.done[job.ID()] = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				m.log.Errorw("job_panicked", "job_id", job.ID(), "panic", r)
				job.Fail(fmt.Sprintf("internal error: %v", r))
			}
		}()

		job.Start()
		if err := fn(ctx, job); err != nil {
			job.Fail(err.Error())
			m.log.Warnw("job_failed", "job_id", job.ID(), "type", job.Type(), "error", err)
			return
		}
		job.Complete(nil)
		m.log.Infow("job_finished", "job_id", job.ID(), "type", job.Type(), "status", job.Status())
	}()
}

func (m *JobManager) GetJob(id string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (m *JobManager) GetSnapshot(id string) (domain.JobSnapshot, error) {
	job, err := m.GetJob(id)
	if err != nil {
		return domain.JobSnapshot{}, err
	}
	return job.Snapshot(), nil
}

// ListJobs returns snapshots of registered jobs, newest first, optionally
// filtered by type and status. An empty filter matches everything; a
// non-positive limit falls back to the default.
func (m *JobManager) ListJobs(jobType string, status domain.JobStatus, limit int) []domain.JobSnapshot {
	if limit <= 0 {
		limit = defaultListLimit
	}

	m.mu.RLock()
	snapshots := make([]domain.JobSnapshot, 0, len(m.jobs))
	for _, job := range m.jobs {
		snap := job.Snapshot()
		if jobType != "" && snap.JobType != jobType {
			continue
		}
		if status != "" && snap.Status != status {
			continue
		}
		snapshots = append(snapshots, snap)
	}
	m.mu.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	if len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots
}

// CancelJob marks the job cancelled, signals its context and waits for the
// work goroutine to finish, so callers observe a fully stopped job. Already
// terminal jobs are left untouched.
func (m *JobManager) CancelJob(id string) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	cancel := m.cancels[id]
	done := m.done[id]
	m.mu.Unlock()

	if !ok {
		return ErrJobNotFound
	}
	if job.Status().Terminal() {
		return ErrJobTerminal
	}

	// Cancelled is set before the context fires so the worker's own failure
	// path cannot overwrite the terminal state.
	job.Cancel()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	m.log.Infow("job_cancelled", "job_id", id)
	return nil
}

// DeleteJob removes a job from the registry, cancelling it first when it is
// still active.
func (m *JobManager) DeleteJob(id string) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	m.mu.Unlock()

	if !ok {
		return ErrJobNotFound
	}
	if !job.Status().Terminal() {
		if err := m.CancelJob(id); err != nil && err != ErrJobTerminal {
			return err
		}
	}

	m.mu.Lock()
	delete(m.jobs, id)
	delete(m.cancels, id)
	delete(m.done, id)
	m.mu.Unlock()
	return nil
}

// CountByStatus tallies registered jobs per status for the dashboard.
func (m *JobManager) CountByStatus() map[domain.JobStatus]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[domain.JobStatus]int)
	for _, job := range m.jobs {
		counts[job.Status()]++
	}
	return counts
}
