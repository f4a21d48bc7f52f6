package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/webhook"
)

func (s *Server) listWebhooks(c *gin.Context) {
	user := currentUser(c)
	subs, err := s.store.Webhooks.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list webhooks"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (s *Server) createWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	for _, evt := range req.Events {
		if !webhook.KnownEventType(evt) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown event type %q", evt)})
			return
		}
	}

	user := currentUser(c)
	sub := &store.WebhookSubscription{
		UserID: user.ID,
		URL:    req.URL,
		Events: req.Events,
		Secret: webhook.NewSecret(),
		Status: store.WebhookStatusActive,
	}
	if err := s.store.Webhooks.Create(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	// The secret is shown once; afterwards it only signs deliveries.
	c.JSON(http.StatusCreated, webhookCreatedResponse{
		ID:     sub.ID,
		URL:    sub.URL,
		Events: sub.Events,
		Secret: sub.Secret,
	})
}

func (s *Server) getWebhook(c *gin.Context) {
	user := currentUser(c)
	sub, err := s.store.Webhooks.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		s.notFoundOrInternal(c, err, "webhook")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) deleteWebhook(c *gin.Context) {
	user := currentUser(c)
	if err := s.store.Webhooks.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		s.notFoundOrInternal(c, err, "webhook")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listWebhookDeliveries(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	// Ownership check before reading the delivery log.
	sub, err := s.store.Webhooks.Get(ctx, user.ID, c.Param("id"))
	if err != nil {
		s.notFoundOrInternal(c, err, "webhook")
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	deliveries, err := s.store.Webhooks.ListDeliveries(ctx, sub.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list deliveries"})
		return
	}
	c.JSON(http.StatusOK, deliveries)
}
