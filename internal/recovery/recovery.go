// Package recovery runs once at process start after the persistence
// store opens (§4.6). It never resumes encoding: any job caught
// RUNNING or PAUSED by a prior process crash is failed outright. This
// is a deliberate inversion of auto-resume-on-restart behaviour seen
// in comparable systems, chosen so a crashed encode is never silently
// continued against state it can no longer verify.
package recovery

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/timeline"
)

const interruptedReason = "interrupted_by_restart"

// Store is the subset of store.Store recovery needs.
type Store interface {
	ListJobsByStatus(statuses ...jobmodel.JobStatus) ([]*jobmodel.Job, error)
	SaveJob(job *jobmodel.Job) error
	SaveClipTask(t *jobmodel.ClipTask) error
	AppendEvent(e *jobmodel.ExecutionEvent) error
	ListEvents(jobID string) ([]*jobmodel.ExecutionEvent, error)
}

// Manager runs the one-shot startup recovery pass.
type Manager struct {
	store Store
	log   hclog.Logger
}

// New constructs a Manager.
func New(store Store, log hclog.Logger) *Manager {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Manager{store: store, log: log.Named("recovery")}
}

// Result summarises what Run did, for startup logging.
type Result struct {
	JobsFailed  int
	TasksFailed int
}

// Run transitions every RUNNING or PAUSED job to FAILED with reason
// interrupted_by_restart, fails all of its non-terminal tasks with the
// same reason, and appends a terminal event to each. Completed,
// PARTIAL, CANCELLED, and PENDING jobs are left untouched.
func (m *Manager) Run() (Result, error) {
	jobs, err := m.store.ListJobsByStatus(jobmodel.JobRunning, jobmodel.JobPaused)
	if err != nil {
		return Result{}, fmt.Errorf("recovery: listing interrupted jobs: %w", err)
	}

	var res Result
	now := time.Now().UTC()
	for _, job := range jobs {
		for _, t := range job.Tasks {
			if t.Status.IsTerminal() {
				continue
			}
			t.Status = jobmodel.ClipFailed
			t.DeliveryStage = jobmodel.StageFailed
			t.FailureReason = interruptedReason
			if t.CompletedAt == nil {
				t.CompletedAt = &now
			}
			if err := m.store.SaveClipTask(t); err != nil {
				return res, fmt.Errorf("recovery: failing task %s: %w", t.ID, err)
			}
			res.TasksFailed++
		}

		job.Status = jobmodel.JobFailed
		job.CompletedAt = &now
		if err := m.store.SaveJob(job); err != nil {
			return res, fmt.Errorf("recovery: failing job %s: %w", job.ID, err)
		}
		res.JobsFailed++

		rec := timeline.New(job.ID, m.store, m.log)
		rec.Record(jobmodel.EventExecutionFailed, "", interruptedReason)

		m.log.Warn("job interrupted by restart", "job_id", job.ID,
			"error_tag", apperr.TagInterruptedByRestart, "reason", interruptedReason)
	}

	if res.JobsFailed > 0 {
		m.log.Info("startup recovery complete", "jobs_failed", res.JobsFailed, "tasks_failed", res.TasksFailed)
	}
	return res, nil
}
