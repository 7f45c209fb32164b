// Package query is the read-only snapshot view over persisted job
// state (§4.10). It never mutates and never blocks on writers.
package query

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// Store is the subset of store.Store the query layer needs.
type Store interface {
	ListJobs() ([]*jobmodel.Job, error)
	GetJob(id string) (*jobmodel.Job, error)
	ListEvents(jobID string) ([]*jobmodel.ExecutionEvent, error)
}

// maxTimelineEvents bounds the execution-timeline slice returned by
// GetJob so a long-running job's detail view stays cheap (§4.10:
// "bounded slice of the execution timeline").
const maxTimelineEvents = 200

// JobSummary is one list_jobs() row.
type JobSummary struct {
	ID          string
	Status      jobmodel.JobStatus
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Counters    jobmodel.JobCounters
}

// JobDetail is the get_job(id) response: the full job plus a bounded
// timeline tail.
type JobDetail struct {
	Job      *jobmodel.Job
	Timeline []*jobmodel.ExecutionEvent
}

// Report is one get_reports(id) artifact reference.
type Report struct {
	Path     string
	Format   string
	Modified time.Time
}

// Layer implements list_jobs/get_job/get_reports.
type Layer struct {
	store      Store
	reportsDir string
}

// New constructs a query Layer. reportsDir is where get_reports looks
// for artifacts matching the fixed naming pattern.
func New(store Store, reportsDir string) *Layer {
	return &Layer{store: store, reportsDir: reportsDir}
}

// ListJobs returns a summary of every job.
func (l *Layer) ListJobs() ([]JobSummary, error) {
	jobs, err := l.store.ListJobs()
	if err != nil {
		return nil, err
	}
	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobSummary{
			ID:          j.ID,
			Status:      j.Status,
			CreatedAt:   j.CreatedAt,
			StartedAt:   j.StartedAt,
			CompletedAt: j.CompletedAt,
			Counters:    j.Counters,
		})
	}
	return out, nil
}

// GetJob returns the full job detail, including a bounded timeline tail.
func (l *Layer) GetJob(id string) (*JobDetail, error) {
	job, err := l.store.GetJob(id)
	if err != nil {
		return nil, err
	}
	events, err := l.store.ListEvents(id)
	if err != nil {
		return nil, err
	}
	if len(events) > maxTimelineEvents {
		events = events[len(events)-maxTimelineEvents:]
	}
	return &JobDetail{Job: job, Timeline: events}, nil
}

// reportPattern matches proxy_job_{first8}_{UTC-stamp}.{csv|json|txt}
// (§4.10), anchored to the 8 leading hex characters of a job id.
var reportPattern = regexp.MustCompile(`^proxy_job_([0-9a-fA-F]{8})_\d{8}T\d{6}Z\.(csv|json|txt)$`)

// GetReports lists report artifacts on disk for jobID, newest first.
func (l *Layer) GetReports(jobID string) ([]Report, error) {
	if l.reportsDir == "" {
		return nil, nil
	}
	prefix := jobID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	entries, err := os.ReadDir(l.reportsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Report
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		m := reportPattern.FindStringSubmatch(ent.Name())
		if m == nil || m[1] != prefix {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		out = append(out, Report{
			Path:     filepath.Join(l.reportsDir, ent.Name()),
			Format:   m[2],
			Modified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}
