// Package jobmodel holds the domain types shared by every component of
// the job lifecycle core: Job, ClipTask, WatchFolder, ProcessedFile,
// ExecutionEvent and WorkerStatus, decoupled from their GORM row
// representation (internal/database) so the scheduler, engine adapters
// and query layer never depend on the storage package directly.
package jobmodel

import "time"

// JobStatus is one of the eight terminal/non-terminal Job states (§3).
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobPaused    JobStatus = "PAUSED"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobPartial   JobStatus = "PARTIAL"
	JobCancelled JobStatus = "CANCELLED"
	JobSkipped   JobStatus = "SKIPPED"
)

// IsTerminal reports whether status is an absorbing state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobPartial, JobCancelled, JobSkipped:
		return true
	default:
		return false
	}
}

// ClipStatus is one of the five ClipTask states (§3).
type ClipStatus string

const (
	ClipQueued    ClipStatus = "QUEUED"
	ClipRunning   ClipStatus = "RUNNING"
	ClipCompleted ClipStatus = "COMPLETED"
	ClipFailed    ClipStatus = "FAILED"
	ClipSkipped   ClipStatus = "SKIPPED"
)

// IsTerminal reports whether status is an absorbing clip state.
func (s ClipStatus) IsTerminal() bool {
	switch s {
	case ClipCompleted, ClipFailed, ClipSkipped:
		return true
	default:
		return false
	}
}

// DeliveryStage is the coarse, monotone phase indicator on a running task.
type DeliveryStage string

const (
	StageQueued     DeliveryStage = "QUEUED"
	StageStarting   DeliveryStage = "STARTING"
	StageEncoding   DeliveryStage = "ENCODING"
	StageFinalizing DeliveryStage = "FINALIZING"
	StageCompleted  DeliveryStage = "COMPLETED"
	StageFailed     DeliveryStage = "FAILED"
)

// stageOrder gives the monotone ordering used to enforce that
// delivery_stage only ever advances within a RUNNING task.
var stageOrder = map[DeliveryStage]int{
	StageQueued:     0,
	StageStarting:   1,
	StageEncoding:   2,
	StageFinalizing: 3,
	StageCompleted:  4,
	StageFailed:     4,
}

// Advances reports whether moving from s to next is a legal monotone
// transition (next must not be an earlier stage than s).
func (s DeliveryStage) Advances(next DeliveryStage) bool {
	return stageOrder[next] >= stageOrder[s]
}

// Engine identifies which external encoder a clip is routed to.
type Engine string

const (
	EngineFFmpeg  Engine = "ffmpeg"
	EngineResolve Engine = "resolve"
)

// ResolveEdition is the Resolve installation tier a job may require.
type ResolveEdition string

const (
	EditionFree    ResolveEdition = "free"
	EditionStudio  ResolveEdition = "studio"
	EditionEither  ResolveEdition = "either"
)

// DeliverSettings is the frozen, job-scoped encode configuration (§3).
type DeliverSettings struct {
	Engine                 Engine
	VideoCodec             string
	AudioCodec             string
	Container              string
	Resolution             string
	NamingTemplate         string
	Prefix                 string
	Suffix                 string
	PreserveSourceDirs     bool
	PreserveDirLevels      int
	OutputDirectory        string
	ProxyProfile           string
	ResolvePreset          string
	RequiresResolveEdition ResolveEdition
	FPSMode                string
	FPSExplicit            float64
}

// MediaMetadata is optional media metadata captured at ingest time.
type MediaMetadata struct {
	Resolution   string
	Codec        string
	FPS          float64
	DurationSecs float64
	AudioSummary string
	ColorSpace   string
}

// ClipTask is one source-clip encode within a Job.
type ClipTask struct {
	ID             string
	JobID          string
	SourcePath     string
	OutputPath     string
	Status         ClipStatus
	DeliveryStage  DeliveryStage
	StartedAt      *time.Time
	CompletedAt    *time.Time
	FailureReason  string
	Warnings       []string
	RetryCount     int
	ProgressPct    float64
	ETASeconds     *float64
	Metadata       *MediaMetadata
	SkipReason     string
	SkipMetadata   map[string]string
}

// JobCounters are the aggregate task-state counts derived from Tasks.
type JobCounters struct {
	Queued   int
	Running  int
	Completed int
	Failed   int
	Skipped  int
	Warnings int
}

// Job is the top-level unit of work: one or more ClipTasks sharing a
// frozen settings snapshot.
type Job struct {
	ID              string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Status          JobStatus
	Snapshot        DeliverSettings
	Override        *DeliverSettings
	Tasks           []*ClipTask
	Counters        JobCounters
	SkipMetadata    map[string]string
}

// EffectiveSettings returns Override if present, else Snapshot, per the
// `effective_settings = override ?? snapshot` invariant (§3).
func (j *Job) EffectiveSettings() DeliverSettings {
	if j.Override != nil {
		return *j.Override
	}
	return j.Snapshot
}

// RecomputeCounters derives Job.Counters and whether every task has
// reached a terminal state, from the current Tasks slice.
func (j *Job) RecomputeCounters() (allTerminal bool) {
	var c JobCounters
	allTerminal = true
	for _, t := range j.Tasks {
		switch t.Status {
		case ClipQueued:
			c.Queued++
			allTerminal = false
		case ClipRunning:
			c.Running++
			allTerminal = false
		case ClipCompleted:
			c.Completed++
		case ClipFailed:
			c.Failed++
		case ClipSkipped:
			c.Skipped++
		}
		c.Warnings += len(t.Warnings)
	}
	j.Counters = c
	return allTerminal
}

// DeriveAggregateStatus implements the §3 aggregate-state invariant
// once every task is terminal: COMPLETED iff all tasks COMPLETED;
// FAILED iff >=1 FAILED and none COMPLETED; PARTIAL otherwise. While
// any task is QUEUED or RUNNING the job's current status is returned.
func DeriveAggregateStatus(j *Job) JobStatus {
	allTerminal := j.RecomputeCounters()
	if !allTerminal {
		return j.Status
	}
	c := j.Counters
	switch {
	case c.Failed == 0 && c.Skipped == 0 && c.Completed == len(j.Tasks):
		return JobCompleted
	case c.Failed > 0 && c.Completed == 0:
		return JobFailed
	default:
		return JobPartial
	}
}

// JobPresetBinding is an immutable Job.ID -> preset-id mapping (§3).
type JobPresetBinding struct {
	JobID    string
	PresetID string
	BoundAt  time.Time
}

// WatchFolder is a monitored source-ingestion directory (§3).
type WatchFolder struct {
	ID            string
	Path          string
	Enabled       bool
	Recursive     bool
	PresetID      string
	AutoExecute   bool
	CreatedAt     time.Time
}

// ProcessedFile records that a watch folder already ingested a path (§3).
type ProcessedFile struct {
	WatchFolderID string
	FilePath      string
	ProcessedAt   time.Time
}

// EventType enumerates ExecutionEvent.event_type values (§3).
type EventType string

const (
	EventJobCreated        EventType = "JOB_CREATED"
	EventExecutionStarted   EventType = "EXECUTION_STARTED"
	EventExecutionPaused    EventType = "EXECUTION_PAUSED"
	EventExecutionResumed   EventType = "EXECUTION_RESUMED"
	EventExecutionCancelled EventType = "EXECUTION_CANCELLED"
	EventExecutionCompleted EventType = "EXECUTION_COMPLETED"
	EventExecutionFailed    EventType = "EXECUTION_FAILED"
	EventClipQueued         EventType = "CLIP_QUEUED"
	EventClipStarted        EventType = "CLIP_STARTED"
	EventClipCompleted      EventType = "CLIP_COMPLETED"
	EventClipFailed         EventType = "CLIP_FAILED"
	EventEngineSelected     EventType = "ENGINE_SELECTED"
	EventProgressUpdate     EventType = "PROGRESS_UPDATE"
)

// ExecutionEvent is one append-only timeline entry for a Job (§3).
type ExecutionEvent struct {
	EventID   string
	JobID     string
	EventType EventType
	Instant   time.Time
	ClipID    string
	Message   string
	seq       uint64 // insertion order, for tie-breaking same-instant events
}

// Seq returns the event's seq field. Nothing outside this package sets
// it, so events built by the recorder or loaded from the store report
// 0; the store orders same-instant events by its own row sequence.
func (e ExecutionEvent) Seq() uint64 { return e.seq }

// WorkerStatusState is one of the WorkerStatus lifecycle states (§3).
type WorkerStatusState string

const (
	WorkerIdle     WorkerStatusState = "idle"
	WorkerBusy     WorkerStatusState = "busy"
	WorkerOffline  WorkerStatusState = "offline"
	WorkerRejected WorkerStatusState = "rejected"
)

// WorkerStatus tracks one worker's heartbeat-derived lifecycle (§3).
type WorkerStatus struct {
	WorkerID     string
	Hostname     string
	Status       WorkerStatusState
	LastSeen     time.Time
	CurrentJobID string
}

// LicenseTier is one of the three hard-coded license tiers (§3, §4.8).
type LicenseTier string

const (
	TierFree      LicenseTier = "free"
	TierFreelance LicenseTier = "freelance"
	TierFacility  LicenseTier = "facility"
)

// License is the immutable, process-cached license value (§3).
type License struct {
	Tier       LicenseTier
	MaxWorkers *int // nil == unlimited
	IssuedAt   time.Time
	Note       string
}
