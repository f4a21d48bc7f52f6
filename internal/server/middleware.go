package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/logging"
	"github.com/clavrr/clavr/internal/store"
)

// ctxUserKey is the gin context key holding the authenticated user.
const ctxUserKey = "clavr.user"

// requireSession authenticates the request from its bearer token and stores
// the owning user in the request context.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		session, err := s.store.Sessions.GetByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid or expired session"})
				return
			}
			s.logger.Error("session lookup failed", logging.Err(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "session lookup failed"})
			return
		}

		user, err := s.store.Users.GetByID(c.Request.Context(), session.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid or expired session"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// currentUser returns the user set by requireSession.
func currentUser(c *gin.Context) *store.User {
	return c.MustGet(ctxUserKey).(*store.User)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// requestMetrics records one HTTP metric sample per request, labeled with
// the route template rather than the raw path to keep cardinality bounded.
func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RecordHTTPRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
