// Package scheduler drives PENDING jobs through their clip tasks
// (§4.5): a single in-process FIFO queue, one job RUNNING at a time,
// one clip dispatched at a time within that job, gated by the license
// enforcer on every dispatch.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/engine"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/license"
	"github.com/Venkmine/proxyforge/internal/timeline"
)

// Store is the subset of store.Store the scheduler needs.
type Store interface {
	ListJobsByStatus(statuses ...jobmodel.JobStatus) ([]*jobmodel.Job, error)
	GetJob(id string) (*jobmodel.Job, error)
	SaveJob(job *jobmodel.Job) error
	SaveClipTask(t *jobmodel.ClipTask) error
	AppendEvent(e *jobmodel.ExecutionEvent) error
	ListEvents(jobID string) ([]*jobmodel.ExecutionEvent, error)
}

// jobRuntime tracks the cooperative flags and cancellation plumbing
// for one job's active dispatch loop (§5: "single cancellation token
// per job threaded into the adapter").
type jobRuntime struct {
	paused bool
	cancel context.CancelFunc
	reason string
}

// Scheduler is safe for concurrent use; StartExecution/PauseJob/
// ResumeJob/CancelJob may be called from HTTP handlers while a
// dispatch loop runs on its own goroutine.
type Scheduler struct {
	mu       sync.Mutex
	store    Store
	adapters map[jobmodel.Engine]engine.Adapter
	enforcer *license.Enforcer
	workerID string
	log      hclog.Logger
	runtimes map[string]*jobRuntime
}

// New constructs a Scheduler. workerID identifies this scheduler
// process to the license enforcer; it is admitted exactly like any
// other worker before a dispatch is allowed to proceed.
func New(store Store, adapters map[jobmodel.Engine]engine.Adapter, enforcer *license.Enforcer, workerID string, log hclog.Logger) *Scheduler {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Scheduler{
		store:    store,
		adapters: adapters,
		enforcer: enforcer,
		workerID: workerID,
		log:      log.Named("scheduler"),
		runtimes: make(map[string]*jobRuntime),
	}
}

// StartExecution picks the FIFO head of the PENDING queue, transitions
// it to RUNNING, and launches its dispatch loop on a new goroutine.
// It fails if no job is PENDING or if any job is already RUNNING
// (§4.5: "no partial acceptance").
func (s *Scheduler) StartExecution() (*jobmodel.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	running, err := s.store.ListJobsByStatus(jobmodel.JobRunning)
	if err != nil {
		return nil, fmt.Errorf("scheduler: checking running jobs: %w", err)
	}
	if len(running) > 0 {
		return nil, apperr.New(apperr.TagEngineFailure, "a job is already running").
			WithContext("running_job_id", running[0].ID)
	}

	pending, err := s.store.ListJobsByStatus(jobmodel.JobPending)
	if err != nil {
		return nil, fmt.Errorf("scheduler: listing pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil, apperr.New(apperr.TagEngineFailure, "no job is pending")
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	job := pending[0]

	admitted, lerr := s.enforcer.Heartbeat(s.workerID)
	if !admitted {
		return nil, lerr
	}

	now := time.Now().UTC()
	job.Status = jobmodel.JobRunning
	job.StartedAt = &now
	if err := s.store.SaveJob(job); err != nil {
		return nil, fmt.Errorf("scheduler: marking job %s running: %w", job.ID, err)
	}
	s.recorder(job.ID).Record(jobmodel.EventExecutionStarted, "", "")

	s.runtimes[job.ID] = &jobRuntime{}
	go s.Dispatch(job.ID)

	return job, nil
}

func (s *Scheduler) recorder(jobID string) *timeline.Recorder {
	return timeline.New(jobID, s.store, s.log)
}

// Dispatch runs a RUNNING job's task-list in order, one clip at a
// time, until the job finishes, is paused, or is cancelled. It is
// exported so tests and the CLI `run` path can invoke it
// synchronously instead of through the async StartExecution goroutine.
func (s *Scheduler) Dispatch(jobID string) {
	for {
		job, err := s.store.GetJob(jobID)
		if err != nil {
			s.log.Error("dispatch: failed to load job", "job_id", jobID, "error", err)
			return
		}
		if job.Status != jobmodel.JobRunning {
			return
		}

		next := s.nextQueuedTask(job)
		if s.consumeCancel(jobID) != "" {
			s.cancelJob(job, next)
			return
		}
		if next == nil {
			s.finishJob(job)
			return
		}
		if s.isPaused(jobID) {
			s.pauseJob(job)
			return
		}

		if !s.admitWorker(job) {
			return
		}

		s.runTask(job, next)
	}
}

func (s *Scheduler) nextQueuedTask(job *jobmodel.Job) *jobmodel.ClipTask {
	for _, t := range job.Tasks {
		if t.Status == jobmodel.ClipQueued {
			return t
		}
	}
	return nil
}

func (s *Scheduler) admitWorker(job *jobmodel.Job) bool {
	admitted, err := s.enforcer.Heartbeat(s.workerID)
	if admitted {
		return true
	}
	s.log.Warn("dispatch: license enforcer refused worker, halting job", "job_id", job.ID, "error", err)
	return false
}

func (s *Scheduler) runTask(job *jobmodel.Job, task *jobmodel.ClipTask) {
	adapter, ok := s.adapters[job.EffectiveSettings().Engine]
	if !ok {
		task.Status = jobmodel.ClipFailed
		task.DeliveryStage = jobmodel.StageFailed
		task.FailureReason = fmt.Sprintf("no adapter registered for engine %q", job.EffectiveSettings().Engine)
		_ = s.store.SaveClipTask(task)
		s.recorder(job.ID).Record(jobmodel.EventClipFailed, task.ID, task.FailureReason)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if rt, ok := s.runtimes[job.ID]; ok {
		rt.cancel = cancel
	}
	s.mu.Unlock()
	defer cancel()

	started := time.Now().UTC()
	task.Status = jobmodel.ClipRunning
	task.DeliveryStage = jobmodel.StageStarting
	task.StartedAt = &started
	_ = s.store.SaveClipTask(task)
	s.recorder(job.ID).Record(jobmodel.EventClipStarted, task.ID, "")

	result, err := adapter.Run(ctx, engine.ResolvedParams{Task: task, Settings: job.EffectiveSettings()}, func(p engine.ProgressUpdate) {
		task.DeliveryStage = p.Stage
		task.ProgressPct = p.ProgressPct
		task.ETASeconds = p.ETASeconds
		_ = s.store.SaveClipTask(task)
		s.recorder(job.ID).Record(jobmodel.EventProgressUpdate, task.ID, "")
	})

	completed := time.Now().UTC()
	task.CompletedAt = &completed

	switch {
	case err != nil && result == nil:
		task.Status = jobmodel.ClipFailed
		task.DeliveryStage = jobmodel.StageFailed
		task.FailureReason = err.Error()
		_ = s.store.SaveClipTask(task)
		s.recorder(job.ID).Record(jobmodel.EventClipFailed, task.ID, task.FailureReason)
		return
	case result.Outcome == engine.OutcomeSuccess:
		task.Status = jobmodel.ClipCompleted
		task.DeliveryStage = jobmodel.StageCompleted
		task.OutputPath = result.OutputPath
		_ = s.store.SaveClipTask(task)
		s.recorder(job.ID).Record(jobmodel.EventClipCompleted, task.ID, "")
	case result.Outcome == engine.OutcomeCancelled:
		task.Status = jobmodel.ClipFailed
		task.DeliveryStage = jobmodel.StageFailed
		task.FailureReason = "cancelled"
		_ = s.store.SaveClipTask(task)
		s.recorder(job.ID).Record(jobmodel.EventClipFailed, task.ID, "cancelled")
	case result.Outcome == engine.OutcomeSkipped:
		task.Status = jobmodel.ClipSkipped
		task.SkipReason = result.FailureReason
		task.SkipMetadata = result.SkipMetadata
		_ = s.store.SaveClipTask(task)
	default:
		task.Status = jobmodel.ClipFailed
		task.DeliveryStage = jobmodel.StageFailed
		task.FailureReason = result.FailureReason
		_ = s.store.SaveClipTask(task)
		s.recorder(job.ID).Record(jobmodel.EventClipFailed, task.ID, result.FailureReason)
	}
}

func (s *Scheduler) finishJob(job *jobmodel.Job) {
	fresh, err := s.store.GetJob(job.ID)
	if err != nil {
		s.log.Error("finishJob: failed to reload job", "job_id", job.ID, "error", err)
		return
	}
	status := jobmodel.DeriveAggregateStatus(fresh)
	now := time.Now().UTC()
	fresh.Status = status
	fresh.CompletedAt = &now
	if err := s.store.SaveJob(fresh); err != nil {
		s.log.Error("finishJob: failed to save job", "job_id", job.ID, "error", err)
		return
	}

	rec := s.recorder(job.ID)
	if status == jobmodel.JobFailed {
		rec.Record(jobmodel.EventExecutionFailed, "", "")
	} else {
		rec.Record(jobmodel.EventExecutionCompleted, "", fmt.Sprintf("aggregate_status=%s", status))
	}

	s.mu.Lock()
	delete(s.runtimes, job.ID)
	s.mu.Unlock()
}

// PauseJob sets the cooperative pause flag observed by the dispatch
// loop at the next safe point (§4.5). Idempotent.
func (s *Scheduler) PauseJob(jobID string) error {
	s.mu.Lock()
	rt, ok := s.runtimes[jobID]
	if !ok {
		rt = &jobRuntime{}
		s.runtimes[jobID] = rt
	}
	rt.paused = true
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) isPaused(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[jobID]
	return ok && rt.paused
}

func (s *Scheduler) pauseJob(job *jobmodel.Job) {
	job.Status = jobmodel.JobPaused
	if err := s.store.SaveJob(job); err != nil {
		s.log.Error("pauseJob: failed to save job", "job_id", job.ID, "error", err)
		return
	}
	s.recorder(job.ID).Record(jobmodel.EventExecutionPaused, "", "")
}

// ResumeJob clears the pause flag and restarts the dispatch loop for
// jobID. The job must currently be PAUSED. Idempotent if already
// RUNNING.
func (s *Scheduler) ResumeJob(jobID string) error {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job.Status == jobmodel.JobRunning {
		return nil
	}
	if job.Status != jobmodel.JobPaused {
		return apperr.New(apperr.TagEngineFailure, fmt.Sprintf("job %s is not paused", jobID))
	}

	s.mu.Lock()
	rt, ok := s.runtimes[jobID]
	if !ok {
		rt = &jobRuntime{}
		s.runtimes[jobID] = rt
	}
	rt.paused = false
	s.mu.Unlock()

	job.Status = jobmodel.JobRunning
	if err := s.store.SaveJob(job); err != nil {
		return err
	}
	s.recorder(jobID).Record(jobmodel.EventExecutionResumed, "", "")

	go s.Dispatch(jobID)
	return nil
}

// CancelJob signals termination of the currently executing clip (if
// any), marks remaining QUEUED tasks SKIPPED with reason, and records
// EXECUTION_CANCELLED. Idempotent on an already-terminal job (§4.5,
// §5).
func (s *Scheduler) CancelJob(jobID, reason string) error {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	s.mu.Lock()
	rt, ok := s.runtimes[jobID]
	if !ok {
		rt = &jobRuntime{}
		s.runtimes[jobID] = rt
	}
	rt.reason = reason
	cancelFn := rt.cancel
	wasRunning := job.Status == jobmodel.JobRunning
	s.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}

	if wasRunning {
		// The dispatch loop observes the cancel reason at its next safe
		// point and performs the terminal transition itself.
		return nil
	}

	return s.terminalCancel(job, reason)
}

func (s *Scheduler) consumeCancel(jobID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[jobID]
	if !ok {
		return ""
	}
	return rt.reason
}

func (s *Scheduler) cancelJob(job *jobmodel.Job, runningTask *jobmodel.ClipTask) {
	reason := s.consumeCancel(job.ID)
	_ = s.terminalCancel(job, reason)
}

func (s *Scheduler) terminalCancel(job *jobmodel.Job, reason string) error {
	for _, t := range job.Tasks {
		if t.Status == jobmodel.ClipQueued {
			t.Status = jobmodel.ClipSkipped
			t.SkipReason = reason
			if err := s.store.SaveClipTask(t); err != nil {
				return err
			}
		}
	}
	job.Status = jobmodel.JobCancelled
	now := time.Now().UTC()
	job.CompletedAt = &now
	if err := s.store.SaveJob(job); err != nil {
		return err
	}
	s.recorder(job.ID).Record(jobmodel.EventExecutionCancelled, "", reason)

	s.mu.Lock()
	delete(s.runtimes, job.ID)
	s.mu.Unlock()
	return nil
}
