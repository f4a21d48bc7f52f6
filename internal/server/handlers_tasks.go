package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/webhook"
)

func (s *Server) listTasks(c *gin.Context) {
	filter := store.TaskFilter{}
	switch c.Query("done") {
	case "":
	case "true":
		done := true
		filter.Done = &done
	case "false":
		done := false
		filter.Done = &done
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "done must be true or false"})
		return
	}

	user := currentUser(c)
	tasks, err := s.store.Tasks.List(c.Request.Context(), user.ID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	user := currentUser(c)
	task := &store.Task{
		UserID: user.ID,
		Title:  req.Title,
		Notes:  req.Notes,
		Due:    req.Due,
	}
	if err := s.store.Tasks.Create(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.events.Publish(c.Request.Context(), webhook.Event{
		Type:   webhook.EventTaskCreated,
		UserID: user.ID,
		Payload: map[string]any{
			"task_id": task.ID,
			"title":   task.Title,
		},
	})
	c.JSON(http.StatusCreated, task)
}

func (s *Server) getTask(c *gin.Context) {
	user := currentUser(c)
	task, err := s.store.Tasks.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		s.notFoundOrInternal(c, err, "task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) updateTask(c *gin.Context) {
	var req taskRequest
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
	task := &store.Task{
		ID:     c.Param("id"),
		UserID: user.ID,
		Title:  req.Title,
		Notes:  req.Notes,
		Due:    req.Due,
	}
	if err := s.store.Tasks.Update(ctx, task); err != nil {
		s.notFoundOrInternal(c, err, "task")
		return
	}

	updated, err := s.store.Tasks.Get(ctx, user.ID, task.ID)
	if err != nil {
		s.notFoundOrInternal(c, err, "task")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteTask(c *gin.Context) {
	user := currentUser(c)
	if err := s.store.Tasks.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		s.notFoundOrInternal(c, err, "task")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) completeTask(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := s.store.Tasks.Complete(ctx, user.ID, id, time.Now()); err != nil {
		s.notFoundOrInternal(c, err, "task")
		return
	}

	task, err := s.store.Tasks.Get(ctx, user.ID, id)
	if err != nil {
		s.notFoundOrInternal(c, err, "task")
		return
	}

	s.events.Publish(ctx, webhook.Event{
		Type:   webhook.EventTaskCompleted,
		UserID: user.ID,
		Payload: map[string]any{
			"task_id": task.ID,
			"title":   task.Title,
		},
	})
	c.JSON(http.StatusOK, task)
}

// notFoundOrInternal maps store errors to 404 or 500.
func (s *Server) notFoundOrInternal(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: what + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
