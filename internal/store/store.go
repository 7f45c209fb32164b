// Package store is the persistence layer: every write crosses it
// transactionally, and every read the scheduler/query layer needs goes
// through it rather than touching GORM directly. Grounded on the
// teacher's database package plus the original Python
// backend/app/persistence/manager.py's transactional-save shape.
package store

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps a *database.DB with domain-typed operations.
type Store struct {
	db *database.DB
}

// New wraps an open database handle.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// SaveJob inserts or fully replaces a Job and all of its ClipTasks in
// a single transaction, the sole write path for job persistence (§3).
func (s *Store) SaveJob(job *jobmodel.Job) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		row := database.JobToRow(job)
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("saving job %s: %w", job.ID, err)
		}
		for _, t := range job.Tasks {
			t.JobID = job.ID
			if err := tx.Save(database.ClipTaskToRow(t)).Error; err != nil {
				return fmt.Errorf("saving clip task %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// SaveClipTask updates a single ClipTask without touching the parent
// Job row, used for per-clip progress and status updates during
// execution so a failing clip never rolls back siblings.
func (s *Store) SaveClipTask(t *jobmodel.ClipTask) error {
	if err := s.db.Save(database.ClipTaskToRow(t)).Error; err != nil {
		return fmt.Errorf("saving clip task %s: %w", t.ID, err)
	}
	return nil
}

// GetJob loads a Job and its ClipTasks by id.
func (s *Store) GetJob(id string) (*jobmodel.Job, error) {
	var row database.JobRow
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	job := database.RowToJob(&row)

	var taskRows []database.ClipTaskRow
	if err := s.db.Where("job_id = ?", id).Find(&taskRows).Error; err != nil {
		return nil, fmt.Errorf("loading clip tasks for job %s: %w", id, err)
	}
	for i := range taskRows {
		job.Tasks = append(job.Tasks, database.RowToClipTask(&taskRows[i]))
	}
	job.RecomputeCounters()
	return job, nil
}

// ListJobs returns every Job (without Tasks populated), newest first.
func (s *Store) ListJobs() ([]*jobmodel.Job, error) {
	var rows []database.JobRow
	if err := s.db.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	jobs := make([]*jobmodel.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, database.RowToJob(&rows[i]))
	}
	return jobs, nil
}

// ListJobsByStatus returns every Job currently in one of the given
// statuses with its ClipTasks loaded, used by the recovery manager at
// startup (§4.6).
func (s *Store) ListJobsByStatus(statuses ...jobmodel.JobStatus) ([]*jobmodel.Job, error) {
	strs := make([]string, len(statuses))
	for i, st := range statuses {
		strs[i] = string(st)
	}
	var rows []database.JobRow
	if err := s.db.Where("status IN ?", strs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing jobs by status: %w", err)
	}
	jobs := make([]*jobmodel.Job, 0, len(rows))
	for i := range rows {
		job := database.RowToJob(&rows[i])
		var taskRows []database.ClipTaskRow
		if err := s.db.Where("job_id = ?", job.ID).Find(&taskRows).Error; err != nil {
			return nil, fmt.Errorf("loading clip tasks for job %s: %w", job.ID, err)
		}
		for k := range taskRows {
			job.Tasks = append(job.Tasks, database.RowToClipTask(&taskRows[k]))
		}
		job.RecomputeCounters()
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// terminalStatuses lists every JobStatus ClearAllJobs is allowed to
// delete; RUNNING and PENDING jobs are never removed (§6).
var terminalStatuses = []string{
	string(jobmodel.JobCompleted), string(jobmodel.JobFailed),
	string(jobmodel.JobPartial), string(jobmodel.JobCancelled), string(jobmodel.JobSkipped),
}

// ClearAllJobs deletes every terminal Job and its ClipTasks, execution
// timeline, and preset binding, the backing operation for
// /control/jobs/clear-all. RUNNING and PENDING jobs are never removed.
func (s *Store) ClearAllJobs() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&database.JobRow{}).Where("status IN ?", terminalStatuses).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("job_id IN ?", ids).Delete(&database.ClipTaskRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id IN ?", ids).Delete(&database.ExecutionEventRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id IN ?", ids).Delete(&database.JobPresetBindingRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&database.JobRow{}).Error
	})
}

// SaveWatchFolder inserts or updates a WatchFolder.
func (s *Store) SaveWatchFolder(w *jobmodel.WatchFolder) error {
	return s.db.Save(database.WatchFolderToRow(w)).Error
}

// ListWatchFolders returns every configured watch folder.
func (s *Store) ListWatchFolders() ([]*jobmodel.WatchFolder, error) {
	var rows []database.WatchFolderRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing watch folders: %w", err)
	}
	out := make([]*jobmodel.WatchFolder, 0, len(rows))
	for i := range rows {
		out = append(out, database.RowToWatchFolder(&rows[i]))
	}
	return out, nil
}

// IsProcessed reports whether filePath has already been ingested from
// watchFolderID, an O(1) lookup backed by the composite unique index
// on processed_files (§4.7).
func (s *Store) IsProcessed(watchFolderID, filePath string) (bool, error) {
	var count int64
	err := s.db.Model(&database.ProcessedFileRow{}).
		Where("watch_folder_id = ? AND file_path = ?", watchFolderID, filePath).
		Count(&count).Error
	return count > 0, err
}

// MarkProcessed records that filePath was ingested from watchFolderID.
func (s *Store) MarkProcessed(pf *jobmodel.ProcessedFile) error {
	row := database.ProcessedFileRow{
		WatchFolderID: pf.WatchFolderID,
		FilePath:      pf.FilePath,
		ProcessedAt:   pf.ProcessedAt,
	}
	return s.db.Clauses().Save(&row).Error
}

// AppendEvent inserts one ExecutionEvent. Callers that need ordering
// guarantees across the full timeline should use ListEvents, which
// sorts by (instant, seq).
func (s *Store) AppendEvent(e *jobmodel.ExecutionEvent) error {
	return s.db.Create(database.ExecutionEventToRow(e)).Error
}

// ListEvents returns a Job's full timeline ordered by (instant, seq),
// the tie-break required by §3/§5 when two events share an instant.
func (s *Store) ListEvents(jobID string) ([]*jobmodel.ExecutionEvent, error) {
	var rows []database.ExecutionEventRow
	if err := s.db.Where("job_id = ?", jobID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing events for job %s: %w", jobID, err)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Instant.Equal(rows[j].Instant) {
			return rows[i].Instant.Before(rows[j].Instant)
		}
		return rows[i].Seq < rows[j].Seq
	})
	out := make([]*jobmodel.ExecutionEvent, 0, len(rows))
	for i := range rows {
		out = append(out, database.RowToExecutionEvent(&rows[i]))
	}
	return out, nil
}

// SaveWorkerStatus inserts or updates a worker's heartbeat row.
func (s *Store) SaveWorkerStatus(w *jobmodel.WorkerStatus) error {
	return s.db.Save(database.WorkerStatusToRow(w)).Error
}

// ListWorkerStatus returns every known worker's current status.
func (s *Store) ListWorkerStatus() ([]*jobmodel.WorkerStatus, error) {
	var rows []database.WorkerStatusRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing worker status: %w", err)
	}
	out := make([]*jobmodel.WorkerStatus, 0, len(rows))
	for i := range rows {
		out = append(out, database.RowToWorkerStatus(&rows[i]))
	}
	return out, nil
}

// SaveJobPresetBinding inserts the immutable Job->preset binding (§3).
func (s *Store) SaveJobPresetBinding(b *jobmodel.JobPresetBinding) error {
	row := database.JobPresetBindingRow{JobID: b.JobID, PresetID: b.PresetID, BoundAt: b.BoundAt}
	return s.db.Create(&row).Error
}
