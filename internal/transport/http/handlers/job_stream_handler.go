package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
)

// JobStreamHandler pushes job snapshots over a websocket so clients can
// watch install progress live instead of polling.
type JobStreamHandler struct {
	jobs   *services.JobManager
	logger *logger.Logger
}

func NewJobStreamHandler(jobs *services.JobManager, logger *logger.Logger) *JobStreamHandler {
	return &JobStreamHandler{jobs: jobs, logger: logger}
}

// Handle streams the job until it reaches a terminal state or the client
// goes away. Snapshots are sent on change plus a keepalive tick.
func (h *JobStreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	id := c.Params("id")
	job, err := h.jobs.GetJob(id)
	if err != nil {
		c.WriteJSON(map[string]string{"error": "job not found"})
		return
	}

	h.logger.Infow("job_stream_opened", "job_id", id)

	// Drain client frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastLogs int
	lastProgress := -1
	for {
		snapshot := job.Snapshot()
		if snapshot.Progress != lastProgress || len(snapshot.Logs) != lastLogs || snapshot.Status.Terminal() {
			if err := c.WriteJSON(snapshot); err != nil {
				h.logger.Warnw("job_stream_write_failed", "job_id", id, "error", err)
				return
			}
			lastProgress = snapshot.Progress
			lastLogs = len(snapshot.Logs)
		}
		if snapshot.Status.Terminal() {
			h.logger.Infow("job_stream_finished", "job_id", id, "status", snapshot.Status)
			return
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
