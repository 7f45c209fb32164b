package server

import (
	"time"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/query"
	"github.com/Venkmine/proxyforge/internal/readiness"
)

// createJobRequest mirrors the §6 /control/jobs/create closed schema.
type createJobRequest struct {
	SourcePaths     []string        `json:"source_paths" binding:"required"`
	Engine          *string         `json:"engine"`
	DeliverSettings deliverSettings `json:"deliver_settings" binding:"required"`
}

type deliverSettings struct {
	OutputDir string     `json:"output_dir" binding:"required"`
	Video     codecField `json:"video" binding:"required"`
	Audio     codecField `json:"audio"`
	File      fileField  `json:"file" binding:"required"`
}

type codecField struct {
	Codec string `json:"codec"`
}

type fileField struct {
	Container          string `json:"container" binding:"required"`
	NamingTemplate     string `json:"naming_template" binding:"required"`
	Prefix             string `json:"prefix"`
	Suffix             string `json:"suffix"`
	PreserveSourceDirs bool   `json:"preserve_source_dirs"`
	PreserveDirLevels  int    `json:"preserve_dir_levels"`
}

type createJobResponse struct {
	JobID string `json:"job_id"`
}

type errorResponse struct {
	Tag               string                 `json:"tag"`
	Message           string                 `json:"message"`
	RecommendedAction string                 `json:"recommended_action,omitempty"`
	Context           map[string]interface{} `json:"context,omitempty"`
}

type jobSummaryDTO struct {
	ID          string              `json:"id"`
	Status      jobmodel.JobStatus  `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Counters    jobmodel.JobCounters `json:"counters"`
}

func toSummaryDTO(s query.JobSummary) jobSummaryDTO {
	return jobSummaryDTO{
		ID:          s.ID,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		Counters:    s.Counters,
	}
}

type jobDetailDTO struct {
	Job      *jobmodel.Job             `json:"job"`
	Timeline []*jobmodel.ExecutionEvent `json:"timeline"`
}

type reportDTO struct {
	Filename string    `json:"filename"`
	AbsPath  string    `json:"abs_path"`
	SizeBytes int64     `json:"size_bytes"`
	MTime    time.Time `json:"mtime"`
}

type healthResponse struct {
	Status    string               `json:"status"`
	Readiness *readiness.Report    `json:"readiness,omitempty"`
}
