package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/export"
	"github.com/clavrr/clavr/internal/logging"
)

func (s *Server) requestExport(c *gin.Context) {
	user := currentUser(c)
	job, err := s.exports.Request(c.Request.Context(), user.ID)
	if err != nil {
		s.logger.Error("failed to start export", logging.Err(err))
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "failed to start export"})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) getExport(c *gin.Context) {
	job, ok := s.exportForCaller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) downloadExport(c *gin.Context) {
	job, ok := s.exportForCaller(c)
	if !ok {
		return
	}
	if job.Status != export.StatusReady || job.Archive == nil {
		c.JSON(http.StatusConflict, errorResponse{Error: "export is not ready"})
		return
	}

	c.Header("Content-Type", "application/zip")
	c.FileAttachment(job.Archive.Path, "clavr-export-"+job.ID+".zip")
}

// exportForCaller loads an export job and enforces that the caller owns it.
// An export belonging to someone else reads as missing.
func (s *Server) exportForCaller(c *gin.Context) (*export.Job, bool) {
	user := currentUser(c)
	job, err := s.exports.Get(c.Param("id"))
	if err != nil || job.UserID != user.ID {
		c.JSON(http.StatusNotFound, errorResponse{Error: "export not found"})
		return nil, false
	}
	return job, true
}
