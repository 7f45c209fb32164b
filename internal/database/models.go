// Package database owns the GORM row representation of the domain
// types in internal/jobmodel and the embedded SQLite connection,
// following the teacher's database package layout.
package database

import "time"

// JobRow is the GORM row for jobmodel.Job. Snapshot/Override/SkipMetadata
// are stored as JSON blobs; Counters are derived and not stored.
// ClipTaskRow rows reference JobRow by foreign key rather than being
// embedded.
type JobRow struct {
	ID            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Status        string `gorm:"index"`
	SnapshotJSON  string
	OverrideJSON  string
	SkipMetaJSON  string
}

func (JobRow) TableName() string { return "jobs" }

// ClipTaskRow is the GORM row for jobmodel.ClipTask.
type ClipTaskRow struct {
	ID            string `gorm:"primaryKey"`
	JobID         string `gorm:"index"`
	SourcePath    string
	OutputPath    string
	Status        string `gorm:"index"`
	DeliveryStage string
	StartedAt     *time.Time
	CompletedAt   *time.Time
	FailureReason string
	WarningsJSON  string
	RetryCount    int
	ProgressPct   float64
	ETASeconds    *float64
	MetadataJSON  string
	SkipReason    string
	SkipMetaJSON  string
}

func (ClipTaskRow) TableName() string { return "clip_tasks" }

// JobPresetBindingRow is the GORM row for jobmodel.JobPresetBinding.
type JobPresetBindingRow struct {
	JobID    string `gorm:"primaryKey"`
	PresetID string
	BoundAt  time.Time
}

func (JobPresetBindingRow) TableName() string { return "job_preset_bindings" }

// WatchFolderRow is the GORM row for jobmodel.WatchFolder.
type WatchFolderRow struct {
	ID          string `gorm:"primaryKey"`
	Path        string `gorm:"uniqueIndex"`
	Enabled     bool
	Recursive   bool
	PresetID    string
	AutoExecute bool
	CreatedAt   time.Time
}

func (WatchFolderRow) TableName() string { return "watch_folders" }

// ProcessedFileRow is the GORM row for jobmodel.ProcessedFile, with a
// composite unique index giving O(1) membership lookups (§4.7).
type ProcessedFileRow struct {
	WatchFolderID string `gorm:"primaryKey;index:idx_wf_path,unique"`
	FilePath      string `gorm:"primaryKey;index:idx_wf_path,unique"`
	ProcessedAt   time.Time
}

func (ProcessedFileRow) TableName() string { return "processed_files" }

// ExecutionEventRow is the GORM row for jobmodel.ExecutionEvent. Seq is
// an autoincrementing tiebreaker for events sharing an Instant.
type ExecutionEventRow struct {
	EventID   string `gorm:"primaryKey"`
	JobID     string `gorm:"index"`
	EventType string
	Instant   time.Time `gorm:"index"`
	ClipID    string
	Message   string
	Seq       uint64 `gorm:"autoIncrement"`
}

func (ExecutionEventRow) TableName() string { return "execution_events" }

// WorkerStatusRow is the GORM row for jobmodel.WorkerStatus.
type WorkerStatusRow struct {
	WorkerID     string `gorm:"primaryKey"`
	Hostname     string
	Status       string
	LastSeen     time.Time
	CurrentJobID string
}

func (WorkerStatusRow) TableName() string { return "worker_status" }

// SchemaVersionRow tracks the single current schema version (§ambient).
type SchemaVersionRow struct {
	ID      uint `gorm:"primaryKey"`
	Version int
	AppliedAt time.Time
}

func (SchemaVersionRow) TableName() string { return "schema_version" }
