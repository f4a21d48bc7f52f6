package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/instrumentation"
)

// defaultHistoryLimit caps GET /v1/queries when no limit is given.
const defaultHistoryLimit = 50

// runQuery feeds a natural-language query to the assistant.
func (s *Server) runQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	user := currentUser(c)
	ctx := c.Request.Context()
	qi := instrumentation.NewQueryInvocation().
		WithUser(user.Email).
		WithSpanContext(ctx)

	result, err := s.assistant.Execute(ctx, user.ID, req.Query)
	if err != nil {
		s.audit.LogQuery(qi.CompleteWithError(err))
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	qi.WithClassification(string(result.Intent), result.Stage, result.Confidence)
	s.audit.LogQuery(qi.CompleteSuccess())
	c.JSON(http.StatusOK, result)
}

// listQueries returns the caller's query history, newest first.
func (s *Server) listQueries(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	user := currentUser(c)
	records, err := s.store.Queries.ListByUser(c.Request.Context(), user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list query history"})
		return
	}
	c.JSON(http.StatusOK, records)
}
