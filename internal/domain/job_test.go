package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := NewJob("job-1", "node_install", map[string]string{"node_name": "edge-1"})

	assert.Equal(t, JobStatusPending, job.Status())
	assert.Nil(t, job.CompletedAt())

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status())

	job.Complete(map[string]interface{}{"node_id": uint(7)})
	assert.Equal(t, JobStatusCompleted, job.Status())
	require.NotNil(t, job.CompletedAt())

	snap := job.Snapshot()
	assert.Equal(t, "job-1", snap.JobID)
	assert.Equal(t, "node_install", snap.JobType)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, uint(7), snap.Result["node_id"])
	assert.Equal(t, "edge-1", snap.Metadata["node_name"])
}

func TestJobStartOnlyFromPending(t *testing.T) {
	job := NewJob("job-1", "node_install", nil)
	job.Cancel()

	job.Start()

	snap := job.Snapshot()
	assert.Equal(t, JobStatusCancelled, snap.Status)
	assert.Nil(t, snap.StartedAt)
}

func TestJobTerminalStatesAreImmutable(t *testing.T) {
	cases := []struct {
		name   string
		finish func(*Job)
		want   JobStatus
	}{
		{"completed", func(j *Job) { j.Complete(nil) }, JobStatusCompleted},
		{"failed", func(j *Job) { j.Fail("boom") }, JobStatusFailed},
		{"cancelled", func(j *Job) { j.Cancel() }, JobStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := NewJob("job-1", "node_install", nil)
			job.Start()
			tc.finish(job)
			completedAt := *job.CompletedAt()

			job.Complete(map[string]interface{}{"late": true})
			job.Fail("too late")
			job.Cancel()

			snap := job.Snapshot()
			assert.Equal(t, tc.want, snap.Status)
			assert.Equal(t, completedAt, *snap.CompletedAt)
			if tc.want != JobStatusCompleted {
				assert.Nil(t, snap.Result)
			}
		})
	}
}

func TestJobProgressClamped(t *testing.T) {
	job := NewJob("job-1", "node_install", nil)

	job.UpdateProgress(-10, "negative")
	assert.Equal(t, 0, job.Snapshot().Progress)

	job.UpdateProgress(150, "overshoot")
	assert.Equal(t, 100, job.Snapshot().Progress)
	assert.Equal(t, "overshoot", job.Snapshot().CurrentStep)

	// Empty step keeps the previous label.
	job.UpdateProgress(50, "")
	snap := job.Snapshot()
	assert.Equal(t, 50, snap.Progress)
	assert.Equal(t, "overshoot", snap.CurrentStep)
}

func TestJobSnapshotIsDeepCopy(t *testing.T) {
	job := NewJob("job-1", "node_install", nil)
	job.AddLog("first")

	snap := job.Snapshot()
	snap.Logs[0] = "mutated"

	assert.Contains(t, job.Snapshot().Logs[0], "first")
}

func TestJobLogsAreTimestamped(t *testing.T) {
	job := NewJob("job-1", "node_install", nil)
	job.AddLog("hello")

	logs := job.Snapshot().Logs
	require.Len(t, logs, 1)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z\] hello$`, logs[0])
}
