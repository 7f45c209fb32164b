// Package server is the gin-based HTTP control and monitoring surface
// (§6): a minimal control API to create and drive jobs, and a
// read-only monitoring API backed by internal/query.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/metrics"
	"github.com/Venkmine/proxyforge/internal/query"
	"github.com/Venkmine/proxyforge/internal/readiness"
	"github.com/Venkmine/proxyforge/internal/scheduler"
	"github.com/Venkmine/proxyforge/internal/store"
)

// Server wires the HTTP surface to the job-lifecycle core.
type Server struct {
	ingestion      *ingestion.Service
	scheduler      *scheduler.Scheduler
	store          *store.Store
	query          *query.Layer
	metrics        *metrics.Registry
	resolveEnabled bool
	readiness      readiness.Config
	log            hclog.Logger
}

// Config configures a Server.
type Config struct {
	Ingestion      *ingestion.Service
	Scheduler      *scheduler.Scheduler
	Store          *store.Store
	Query          *query.Layer
	Metrics        *metrics.Registry
	ResolveEnabled bool
	Readiness      readiness.Config
	Logger         hclog.Logger
}

// New constructs a Server.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Server{
		ingestion:      cfg.Ingestion,
		scheduler:      cfg.Scheduler,
		store:          cfg.Store,
		query:          cfg.Query,
		metrics:        cfg.Metrics,
		resolveEnabled: cfg.ResolveEnabled,
		readiness:      cfg.Readiness,
		log:            log.Named("server"),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	s.registerRoutes(r)
	return r
}

func (s *Server) registerRoutes(r *gin.Engine) {
	control := r.Group("/control")
	{
		control.POST("/jobs/create", s.handleCreateJob)
		control.POST("/jobs/start-execution", s.handleStartExecution)
		control.POST("/jobs/:id/start", s.handleStartJob)
		control.POST("/jobs/:id/pause", s.handlePauseJob)
		control.POST("/jobs/:id/resume", s.handleResumeJob)
		control.POST("/jobs/:id/cancel", s.handleCancelJob)
		control.POST("/jobs/clear-all", s.handleClearAllJobs)
	}

	monitor := r.Group("/monitor")
	{
		monitor.GET("/health", s.handleHealth)
		monitor.GET("/jobs", s.handleListJobs)
		monitor.GET("/jobs/:id", s.handleGetJob)
		monitor.GET("/jobs/:id/reports", s.handleGetReports)
		if s.metrics != nil {
			monitor.GET("/metrics", gin.WrapH(promhttp.Handler()))
		}
	}
}

func writeAppError(c *gin.Context, err error) {
	if ae, ok := apperr.As(err); ok {
		status := ae.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		c.JSON(status, errorResponse{
			Tag:               string(ae.Tag),
			Message:           ae.Message,
			RecommendedAction: ae.RecommendedAction,
			Context:           ae.Context,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, errorResponse{Tag: "internal", Message: err.Error()})
}
