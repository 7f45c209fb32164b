package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&req)
	if err == nil {
		err = binding.Validator.ValidateStruct(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Tag: "validation.malformed_request", Message: err.Error()})
		return
	}

	var engineOverride jobmodel.Engine
	if req.Engine != nil {
		engineOverride = jobmodel.Engine(*req.Engine)
		if engineOverride == jobmodel.EngineResolve && !s.resolveEnabled {
			c.JSON(http.StatusNotImplemented, errorResponse{
				Tag:     "validation.resolve_availability",
				Message: "the resolve engine is not supported in this deployment profile",
			})
			return
		}
	}

	job, err := s.ingestion.CreateJob(ingestion.Request{
		SourcePaths:     req.SourcePaths,
		OutputDirectory: req.DeliverSettings.OutputDir,
		EngineOverride:  engineOverride,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:         req.DeliverSettings.Video.Codec,
			AudioCodec:         req.DeliverSettings.Audio.Codec,
			Container:          req.DeliverSettings.File.Container,
			NamingTemplate:     req.DeliverSettings.File.NamingTemplate,
			Prefix:             req.DeliverSettings.File.Prefix,
			Suffix:             req.DeliverSettings.File.Suffix,
			PreserveSourceDirs: req.DeliverSettings.File.PreserveSourceDirs,
			PreserveDirLevels:  req.DeliverSettings.File.PreserveDirLevels,
		},
	})
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, createJobResponse{JobID: job.ID})
}

func (s *Server) handleStartExecution(c *gin.Context) {
	job, err := s.scheduler.StartExecution()
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, createJobResponse{JobID: job.ID})
}

// handleStartJob transitions the specific PENDING job named by :id.
// Proxy v1 only ever runs the FIFO head, so this delegates to the same
// start-execution path after confirming :id is in fact that head.
func (s *Server) handleStartJob(c *gin.Context) {
	id := c.Param("id")
	pending, err := s.store.ListJobsByStatus(jobmodel.JobPending)
	if err != nil {
		writeAppError(c, err)
		return
	}
	var head *jobmodel.Job
	for _, j := range pending {
		if head == nil || j.CreatedAt.Before(head.CreatedAt) ||
			(j.CreatedAt.Equal(head.CreatedAt) && j.ID < head.ID) {
			head = j
		}
	}
	if head == nil || head.ID != id {
		c.JSON(http.StatusBadRequest, errorResponse{Tag: "validation.source_missing_or_not_file", Message: "job is not the head of the PENDING queue"})
		return
	}

	job, err := s.scheduler.StartExecution()
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, createJobResponse{JobID: job.ID})
}

func (s *Server) handlePauseJob(c *gin.Context) {
	if err := s.scheduler.PauseJob(c.Param("id")); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResumeJob(c *gin.Context) {
	if err := s.scheduler.ResumeJob(c.Param("id")); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCancelJob(c *gin.Context) {
	reason := c.Query("reason")
	if reason == "" {
		reason = string(apperr.TagCancelled)
	}
	if err := s.scheduler.CancelJob(c.Param("id"), reason); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearAllJobs(c *gin.Context) {
	if err := s.store.ClearAllJobs(); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
