package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Venkmine/proxyforge/internal/readiness"
)

func (s *Server) handleHealth(c *gin.Context) {
	report := readiness.Run(s.readiness)
	status := "ok"
	if !report.Ready {
		status = "degraded"
	}
	c.JSON(http.StatusOK, healthResponse{Status: status, Readiness: &report})
}

func (s *Server) handleListJobs(c *gin.Context) {
	summaries, err := s.query.ListJobs()
	if err != nil {
		writeAppError(c, err)
		return
	}
	out := make([]jobSummaryDTO, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, toSummaryDTO(sum))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetJob(c *gin.Context) {
	detail, err := s.query.GetJob(c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobDetailDTO{Job: detail.Job, Timeline: detail.Timeline})
}

func (s *Server) handleGetReports(c *gin.Context) {
	reports, err := s.query.GetReports(c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	out := make([]reportDTO, 0, len(reports))
	for _, r := range reports {
		var size int64
		if info, err := os.Stat(r.Path); err == nil {
			size = info.Size()
		}
		out = append(out, reportDTO{
			Filename:  filepath.Base(r.Path),
			AbsPath:   r.Path,
			SizeBytes: size,
			MTime:     r.Modified,
		})
	}
	c.JSON(http.StatusOK, out)
}
