package domain

import (
	"fmt"
	"sync"
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is a tracked unit of asynchronous work. Exactly one goroutine mutates
// a job; any number of pollers read it. All access goes through the mutex so
// pollers see a consistent snapshot rather than torn state.
type Job struct {
	mu sync.Mutex

	id          string
	jobType     string
	status      JobStatus
	progress    int
	currentStep string
	logs        []string
	metadata    map[string]string
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	errMsg      string
	result      map[string]interface{}
}

// JobSnapshot is an immutable copy of a job's state at one instant.
type JobSnapshot struct {
	JobID       string                 `json:"job_id"`
	JobType     string                 `json:"job_type"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"`
	CurrentStep string                 `json:"current_step"`
	Logs        []string               `json:"logs"`
	Metadata    map[string]string      `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
}

func NewJob(id, jobType string, metadata map[string]string) *Job {
	return &Job{
		id:        id,
		jobType:   jobType,
		status:    JobStatusPending,
		metadata:  metadata,
		createdAt: time.Now().UTC(),
	}
}

func (j *Job) ID() string { return j.id }

func (j *Job) Type() string { return j.jobType }

func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) CreatedAt() time.Time { return j.createdAt }

func (j *Job) CompletedAt() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.completedAt
}

// AddLog appends a timestamped log line.
func (j *Job) AddLog(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendLog(message)
}

func (j *Job) appendLog(message string) {
	j.logs = append(j.logs, fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), message))
}

// UpdateProgress sets progress clamped into [0,100] and, when step is
// non-empty, the current step label.
func (j *Job) UpdateProgress(progress int, step string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.progress = progress
	if step != "" {
		j.currentStep = step
	}
}

// Start marks the job running. No-op if the job already left pending.
func (j *Job) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != JobStatusPending {
		return
	}
	now := time.Now().UTC()
	j.status = JobStatusRunning
	j.startedAt = &now
	j.appendLog("Job started")
}

// Complete marks the job completed with a result payload. Terminal states
// are never overwritten.
func (j *Job) Complete(result map[string]interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.status = JobStatusCompleted
	j.completedAt = &now
	j.progress = 100
	j.result = result
	j.appendLog("Job completed successfully")
}

func (j *Job) Fail(errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.status = JobStatusFailed
	j.completedAt = &now
	j.errMsg = errMsg
	j.appendLog("Job failed: " + errMsg)
}

func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.status = JobStatusCancelled
	j.completedAt = &now
	j.appendLog("Job cancelled")
}

// Snapshot returns a consistent copy of the job for pollers.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	logs := make([]string, len(j.logs))
	copy(logs, j.logs)

	var result map[string]interface{}
	if j.result != nil {
		result = make(map[string]interface{}, len(j.result))
		for k, v := range j.result {
			result[k] = v
		}
	}

	return JobSnapshot{
		JobID:       j.id,
		JobType:     j.jobType,
		Status:      j.status,
		Progress:    j.progress,
		CurrentStep: j.currentStep,
		Logs:        logs,
		Metadata:    j.metadata,
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
		Error:       j.errMsg,
		Result:      result,
	}
}
