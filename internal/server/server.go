package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/assistant"
	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/export"
	"github.com/clavrr/clavr/internal/instrumentation"
	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/webhook"
)

// Default timeouts for the API listener.
const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// Options carries the optional collaborators of a Server.
type Options struct {
	Events  webhook.Publisher
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Server is the REST API over the assistant and its stores.
type Server struct {
	cfg       config.ServerConfig
	store     *store.Store
	assistant *assistant.Assistant
	exports   *export.Manager
	events    webhook.Publisher
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	logger    *slog.Logger
	health    *HealthChecker

	engine     *gin.Engine
	httpServer *http.Server
}

// New assembles the router and handlers.
func New(cfg config.ServerConfig, st *store.Store, a *assistant.Assistant, exports *export.Manager, opts Options) *Server {
	if opts.Events == nil {
		opts.Events = webhook.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Audit == nil {
		opts.Audit = instrumentation.NewAuditLogger(opts.Logger)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		assistant: a,
		exports:   exports,
		events:    opts.Events,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		logger:    opts.Logger,
		health:    NewHealthChecker(st),
	}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestMetrics())

	s.health.Register(engine)

	v1 := engine.Group("/v1")
	v1.POST("/auth/login", s.login)

	authed := v1.Group("", s.requireSession())
	authed.POST("/auth/logout", s.logout)

	authed.POST("/query", s.runQuery)
	authed.GET("/queries", s.listQueries)

	authed.GET("/tasks", s.listTasks)
	authed.POST("/tasks", s.createTask)
	authed.GET("/tasks/:id", s.getTask)
	authed.PUT("/tasks/:id", s.updateTask)
	authed.DELETE("/tasks/:id", s.deleteTask)
	authed.POST("/tasks/:id/complete", s.completeTask)

	authed.GET("/webhooks", s.listWebhooks)
	authed.POST("/webhooks", s.createWebhook)
	authed.GET("/webhooks/:id", s.getWebhook)
	authed.DELETE("/webhooks/:id", s.deleteWebhook)
	authed.GET("/webhooks/:id/deliveries", s.listWebhookDeliveries)

	authed.POST("/exports", s.requestExport)
	authed.GET("/exports/:id", s.getExport)
	authed.GET("/exports/:id/archive", s.downloadExport)

	return engine
}

// Handler exposes the router, used by tests and by the serve command.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the API listener until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	s.health.SetReady(true)
	s.logger.Info("api server started", slog.String("addr", s.cfg.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
