package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/logging"
	"github.com/clavrr/clavr/internal/store"
)

// login issues a session token for the account with the given email address,
// provisioning the account on first sight.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.Users.GetByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = &store.User{Email: req.Email, Name: req.Name}
		if err := s.store.Users.Create(ctx, user); err != nil {
			s.logger.Error("failed to provision user", logging.Err(err))
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to create account"})
			return
		}
		s.logger.Info("account provisioned", logging.UserHash(user.Email))
	case err != nil:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "account lookup failed"})
		return
	}

	token, err := store.NewSessionToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to create session"})
		return
	}

	session := &store.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.cfg.SessionTTL),
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to create session"})
		return
	}

	if s.metrics != nil {
		s.metrics.SessionStarted(ctx)
	}
	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		UserID:    user.ID,
	})
}

// logout deletes the session behind the presented token.
func (s *Server) logout(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if err := s.store.Sessions.Delete(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to end session"})
		return
	}
	if s.metrics != nil {
		s.metrics.SessionEnded(c.Request.Context())
	}
	c.Status(http.StatusNoContent)
}
