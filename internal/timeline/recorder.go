// Package timeline owns the per-job, append-only ExecutionEvent
// recorder (§4.9). Recording never raises: a storage fault here must
// not destabilise execution, so every error is logged and swallowed.
package timeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// EventStore is the subset of store.Store the recorder needs.
type EventStore interface {
	AppendEvent(e *jobmodel.ExecutionEvent) error
	ListEvents(jobID string) ([]*jobmodel.ExecutionEvent, error)
}

// Recorder appends events for exactly one job.
type Recorder struct {
	jobID string
	store EventStore
	log   hclog.Logger
}

// New returns a Recorder scoped to jobID.
func New(jobID string, store EventStore, log hclog.Logger) *Recorder {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Recorder{jobID: jobID, store: store, log: log.Named("timeline")}
}

// Record appends one event. clipID and message are optional ("" when
// absent). Failures are logged, never returned: §4.9 requires
// recording to be best-effort.
func (r *Recorder) Record(eventType jobmodel.EventType, clipID, message string) {
	event := &jobmodel.ExecutionEvent{
		EventID:   uuid.NewString(),
		JobID:     r.jobID,
		EventType: eventType,
		Instant:   time.Now().UTC(),
		ClipID:    clipID,
		Message:   message,
	}
	if err := r.store.AppendEvent(event); err != nil {
		r.log.Warn("failed to record execution event", "job_id", r.jobID, "event_type", eventType, "error", err)
	}
}

// Snapshot returns the job's full ordered timeline. Unlike Record,
// read failures are returned: a query-layer caller needs to know.
func (r *Recorder) Snapshot() ([]*jobmodel.ExecutionEvent, error) {
	return r.store.ListEvents(r.jobID)
}
