package database

import (
	"encoding/json"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

func marshalJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalJSON(s string, v interface{}) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), v)
}

// JobToRow converts a domain Job into its GORM row, dropping Tasks and
// Counters (Tasks are persisted as separate ClipTaskRow rows; Counters
// are derived, never stored).
func JobToRow(j *jobmodel.Job) *JobRow {
	return &JobRow{
		ID:           j.ID,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		Status:       string(j.Status),
		SnapshotJSON: marshalJSON(j.Snapshot),
		OverrideJSON: marshalJSON(j.Override),
		SkipMetaJSON: marshalJSON(j.SkipMetadata),
	}
}

// RowToJob converts a JobRow back into a domain Job. Tasks must be
// attached separately by the caller.
func RowToJob(r *JobRow) *jobmodel.Job {
	j := &jobmodel.Job{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Status:      jobmodel.JobStatus(r.Status),
	}
	unmarshalJSON(r.SnapshotJSON, &j.Snapshot)
	if r.OverrideJSON != "" {
		var o jobmodel.DeliverSettings
		unmarshalJSON(r.OverrideJSON, &o)
		j.Override = &o
	}
	unmarshalJSON(r.SkipMetaJSON, &j.SkipMetadata)
	return j
}

// ClipTaskToRow converts a domain ClipTask into its GORM row.
func ClipTaskToRow(t *jobmodel.ClipTask) *ClipTaskRow {
	return &ClipTaskRow{
		ID:            t.ID,
		JobID:         t.JobID,
		SourcePath:    t.SourcePath,
		OutputPath:    t.OutputPath,
		Status:        string(t.Status),
		DeliveryStage: string(t.DeliveryStage),
		StartedAt:     t.StartedAt,
		CompletedAt:   t.CompletedAt,
		FailureReason: t.FailureReason,
		WarningsJSON:  marshalJSON(t.Warnings),
		RetryCount:    t.RetryCount,
		ProgressPct:   t.ProgressPct,
		ETASeconds:    t.ETASeconds,
		MetadataJSON:  marshalJSON(t.Metadata),
		SkipReason:    t.SkipReason,
		SkipMetaJSON:  marshalJSON(t.SkipMetadata),
	}
}

// RowToClipTask converts a ClipTaskRow back into a domain ClipTask.
func RowToClipTask(r *ClipTaskRow) *jobmodel.ClipTask {
	t := &jobmodel.ClipTask{
		ID:            r.ID,
		JobID:         r.JobID,
		SourcePath:    r.SourcePath,
		OutputPath:    r.OutputPath,
		Status:        jobmodel.ClipStatus(r.Status),
		DeliveryStage: jobmodel.DeliveryStage(r.DeliveryStage),
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		FailureReason: r.FailureReason,
		RetryCount:    r.RetryCount,
		ProgressPct:   r.ProgressPct,
		ETASeconds:    r.ETASeconds,
		SkipReason:    r.SkipReason,
	}
	unmarshalJSON(r.WarningsJSON, &t.Warnings)
	if r.MetadataJSON != "" {
		var m jobmodel.MediaMetadata
		unmarshalJSON(r.MetadataJSON, &m)
		t.Metadata = &m
	}
	unmarshalJSON(r.SkipMetaJSON, &t.SkipMetadata)
	return t
}

// WatchFolderToRow converts a domain WatchFolder into its GORM row.
func WatchFolderToRow(w *jobmodel.WatchFolder) *WatchFolderRow {
	return &WatchFolderRow{
		ID:          w.ID,
		Path:        w.Path,
		Enabled:     w.Enabled,
		Recursive:   w.Recursive,
		PresetID:    w.PresetID,
		AutoExecute: w.AutoExecute,
		CreatedAt:   w.CreatedAt,
	}
}

// RowToWatchFolder converts a WatchFolderRow back into a domain WatchFolder.
func RowToWatchFolder(r *WatchFolderRow) *jobmodel.WatchFolder {
	return &jobmodel.WatchFolder{
		ID:          r.ID,
		Path:        r.Path,
		Enabled:     r.Enabled,
		Recursive:   r.Recursive,
		PresetID:    r.PresetID,
		AutoExecute: r.AutoExecute,
		CreatedAt:   r.CreatedAt,
	}
}

// ExecutionEventToRow converts a domain ExecutionEvent into its GORM row.
func ExecutionEventToRow(e *jobmodel.ExecutionEvent) *ExecutionEventRow {
	return &ExecutionEventRow{
		EventID:   e.EventID,
		JobID:     e.JobID,
		EventType: string(e.EventType),
		Instant:   e.Instant,
		ClipID:    e.ClipID,
		Message:   e.Message,
	}
}

// RowToExecutionEvent converts an ExecutionEventRow back into a domain
// ExecutionEvent. Seq is only accessible via row ordering; callers sort
// by (Instant, Seq) using the rows directly rather than domain values.
func RowToExecutionEvent(r *ExecutionEventRow) *jobmodel.ExecutionEvent {
	return &jobmodel.ExecutionEvent{
		EventID:   r.EventID,
		JobID:     r.JobID,
		EventType: jobmodel.EventType(r.EventType),
		Instant:   r.Instant,
		ClipID:    r.ClipID,
		Message:   r.Message,
	}
}

// WorkerStatusToRow converts a domain WorkerStatus into its GORM row.
func WorkerStatusToRow(w *jobmodel.WorkerStatus) *WorkerStatusRow {
	return &WorkerStatusRow{
		WorkerID:     w.WorkerID,
		Hostname:     w.Hostname,
		Status:       string(w.Status),
		LastSeen:     w.LastSeen,
		CurrentJobID: w.CurrentJobID,
	}
}

// RowToWorkerStatus converts a WorkerStatusRow back into a domain WorkerStatus.
func RowToWorkerStatus(r *WorkerStatusRow) *jobmodel.WorkerStatus {
	return &jobmodel.WorkerStatus{
		WorkerID:     r.WorkerID,
		Hostname:     r.Hostname,
		Status:       jobmodel.WorkerStatusState(r.Status),
		LastSeen:     r.LastSeen,
		CurrentJobID: r.CurrentJobID,
	}
}
