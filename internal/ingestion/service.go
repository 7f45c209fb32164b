// Package ingestion is the single authoritative entry point for job
// creation (§4.1): it is the only place a Job is allowed to come into
// existence, whether the caller is the HTTP control surface or the
// watch-folder engine.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/Venkmine/proxyforge/internal/capability"
	"github.com/Venkmine/proxyforge/internal/engine/resolve"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/naming"
	"github.com/Venkmine/proxyforge/internal/store"
	"github.com/Venkmine/proxyforge/internal/timeline"
)

// ResolveGate is the boundary to the Resolve adapter's availability
// probe. CreateJob consults it before persisting any job that routes
// to the resolve engine, so an unreachable installation or an edition
// mismatch is decided before a single task is created (§4.4). A nil
// gate leaves resolve-routed jobs ungated, which is only correct when
// no resolve adapter is wired into the deployment at all.
type ResolveGate interface {
	CheckAvailabilityOnce(ctx context.Context) (bool, *resolve.Installation, string)
}

// Request is the engine-agnostic job-creation request, shared by the
// HTTP create handler and the watch-folder engine.
type Request struct {
	SourcePaths     []string
	OutputDirectory string
	Settings        jobmodel.DeliverSettings
	EngineOverride  jobmodel.Engine
	SourceRoot      string // base dir for preserve_source_dirs; "" disables it
}

// Service owns job creation: validate, resolve output paths, persist,
// record the engine-selection event. It never starts execution.
type Service struct {
	store       *store.Store
	log         hclog.Logger
	resolveGate ResolveGate
}

// New constructs a Service. gate may be nil when the deployment has no
// resolve adapter wired, in which case resolve-routed jobs skip
// availability/edition gating entirely.
func New(st *store.Store, log hclog.Logger, gate ResolveGate) *Service {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Service{store: st, log: log.Named("ingestion"), resolveGate: gate}
}

// CreateJob validates req, resolves every clip's output path, and
// persists the Job in PENDING with all clips QUEUED. Nothing is
// executed; the scheduler picks PENDING jobs up independently (§4.5).
func (s *Service) CreateJob(req Request) (*jobmodel.Job, error) {
	result, err := capability.Validate(capability.ValidationInput{
		SourcePaths:     req.SourcePaths,
		OutputDirectory: req.OutputDirectory,
		EngineOverride:  req.EngineOverride,
		ProxyProfile:    req.Settings.ProxyProfile,
		Codec:           req.Settings.VideoCodec,
		Container:       req.Settings.Container,
		NamingTemplate:  req.Settings.NamingTemplate,
		ResolvePreset:   req.Settings.ResolvePreset,
		RequiresEdition: req.Settings.RequiresResolveEdition,
	})
	if err != nil {
		return nil, err
	}

	settings := req.Settings
	settings.Engine = result.Engine
	settings.OutputDirectory = req.OutputDirectory

	if result.Engine == jobmodel.EngineResolve && s.resolveGate != nil {
		if job, gated, err := s.applyResolveGate(settings); gated {
			return job, err
		}
	}

	guard := naming.NewCollisionGuard()
	tasks := make([]*jobmodel.ClipTask, 0, len(req.SourcePaths))
	for i, src := range req.SourcePaths {
		outPath, err := naming.Resolve(naming.Params{
			SourcePath:         src,
			OutputDirectory:    req.OutputDirectory,
			NamingTemplate:     settings.NamingTemplate,
			Prefix:             settings.Prefix,
			Suffix:             settings.Suffix,
			Container:          settings.Container,
			Index:              i + 1,
			PreserveSourceDirs: settings.PreserveSourceDirs,
			PreserveDirLevels:  settings.PreserveDirLevels,
			SourceRoot:         req.SourceRoot,
		})
		if err != nil {
			return nil, err
		}
		if guard.Seen(outPath) {
			return nil, fmt.Errorf("ingestion: output path collision for %q, resolved to %q more than once", src, outPath)
		}
		tasks = append(tasks, &jobmodel.ClipTask{
			ID:            uuid.NewString(),
			SourcePath:    src,
			OutputPath:    outPath,
			Status:        jobmodel.ClipQueued,
			DeliveryStage: jobmodel.StageQueued,
		})
	}

	job := &jobmodel.Job{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    jobmodel.JobPending,
		Snapshot:  settings,
		Tasks:     tasks,
	}
	job.RecomputeCounters()

	if err := s.store.SaveJob(job); err != nil {
		return nil, fmt.Errorf("ingestion: persisting job %s: %w", job.ID, err)
	}

	rec := timeline.New(job.ID, s.store, s.log)
	rec.Record(jobmodel.EventEngineSelected, "", fmt.Sprintf("routed to engine %q", result.Engine))
	rec.Record(jobmodel.EventJobCreated, "", "")

	s.log.Info("job created", "job_id", job.ID, "engine", result.Engine, "clips", len(tasks))
	return job, nil
}

// applyResolveGate runs the §4.4 pre-routing Resolve checks for a job
// that has already been routed to the resolve engine. gated is true
// when the job was decided here (FAILED on unavailability, SKIPPED on
// edition mismatch) and persisted directly with zero tasks; CreateJob
// must not build tasks for it. gated is false when neither check
// fires and CreateJob should proceed normally.
func (s *Service) applyResolveGate(settings jobmodel.DeliverSettings) (job *jobmodel.Job, gated bool, err error) {
	available, install, reason := s.resolveGate.CheckAvailabilityOnce(context.Background())
	if !available {
		job = s.newGatedJob(settings, jobmodel.JobFailed, nil)
		if err := s.store.SaveJob(job); err != nil {
			return nil, true, fmt.Errorf("ingestion: persisting job %s: %w", job.ID, err)
		}
		rec := timeline.New(job.ID, s.store, s.log)
		rec.Record(jobmodel.EventExecutionFailed, "", reason)
		s.log.Warn("job failed: resolve unavailable", "job_id", job.ID, "reason", reason)
		return job, true, nil
	}

	skip, metadata := resolve.EvaluateEdition(settings.RequiresResolveEdition, install)
	if !skip {
		return nil, false, nil
	}

	job = s.newGatedJob(settings, jobmodel.JobSkipped, metadata)
	if err := s.store.SaveJob(job); err != nil {
		return nil, true, fmt.Errorf("ingestion: persisting job %s: %w", job.ID, err)
	}
	rec := timeline.New(job.ID, s.store, s.log)
	rec.Record(jobmodel.EventJobCreated, "", fmt.Sprintf("skipped: %s", metadata["reason"]))
	s.log.Info("job skipped: resolve edition mismatch", "job_id", job.ID,
		"detected", metadata["detected"], "required", metadata["required"])
	return job, true, nil
}

// newGatedJob builds a terminal, taskless Job for applyResolveGate;
// the caller is responsible for persisting it.
func (s *Service) newGatedJob(settings jobmodel.DeliverSettings, status jobmodel.JobStatus, skipMetadata map[string]string) *jobmodel.Job {
	now := time.Now().UTC()
	return &jobmodel.Job{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		CompletedAt:  &now,
		Status:       status,
		Snapshot:     settings,
		SkipMetadata: skipMetadata,
	}
}
