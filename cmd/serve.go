package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/clavrr/clavr/internal/assistant"
	"github.com/clavrr/clavr/internal/calendar"
	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/export"
	"github.com/clavrr/clavr/internal/gmail"
	"github.com/clavrr/clavr/internal/google"
	"github.com/clavrr/clavr/internal/instrumentation"
	"github.com/clavrr/clavr/internal/logging"
	"github.com/clavrr/clavr/internal/parser"
	"github.com/clavrr/clavr/internal/server"
	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/tools/assistant_tools"
	"github.com/clavrr/clavr/internal/tools/task_tools"
	"github.com/clavrr/clavr/internal/webhook"
	"github.com/clavrr/clavr/internal/worker"
)

// Transport types.
const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

// defaultAccount is the Google token slot the server operates with.
const defaultAccount = "default"

// localUserEmail identifies the single account the stdio transport serves.
const localUserEmail = "local@clavr.dev"

// sessionPurgeInterval is how often expired sessions are swept.
const sessionPurgeInterval = time.Hour

// shutdownTimeout bounds graceful drain of the HTTP listeners.
const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		debugMode   bool
		transport   string
		addr        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant backend",
		Long: `Start the assistant backend.

Transports:
  - http:  REST API plus a dedicated Prometheus metrics port (default)
  - stdio: MCP server over standard input/output for AI assistants

Google access is optional: without a stored OAuth token (see 'clavr auth'),
email and calendar queries are disabled and task queries still work. Without
a GEMINI_API_KEY, classification runs in pattern-only mode.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Server.MetricsAddr = metricsAddr
			}
			return runServe(cfg, transport, debugMode)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "REST API listen address (http transport)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus metrics listen address (http transport)")

	return cmd
}

func runServe(cfg config.Config, transport string, debug bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := setupLogging(debug)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	db, err := store.NewDBConnection(cfg.Database)
	if err != nil {
		return err
	}
	if err := store.Migrate(db); err != nil {
		return err
	}
	st := store.New(db, logging.NewSlogAdapter(logger))
	defer func() { _ = st.Close() }()
	st.Webhooks.SetFailureThreshold(cfg.Webhooks.FailureThreshold)

	pool := worker.NewPool(cfg.Workers, provider.Metrics(), logger)
	pool.Start(ctx)
	defer pool.Stop()

	dispatcher := webhook.NewDispatcher(st.Webhooks, cfg.Webhooks, pool, provider.Metrics(), logger)

	router, err := buildClassifier(ctx, cfg.Classifier, logger)
	if err != nil {
		return err
	}
	router.SetMetrics(provider.Metrics())

	opts := assistant.Options{
		Events:  dispatcher,
		Metrics: provider.Metrics(),
		Logger:  logger,
	}
	opts.Gmail, opts.Calendar = googleClients(ctx, cfg.Google, logger)

	a := assistant.New(router, st, opts)
	exports := export.NewManager(st, cfg.Export.Dir, pool, dispatcher, logger)

	startSessionPurge(ctx, pool, st, logger)

	switch transport {
	case transportStdio:
		return runStdio(ctx, st, a, exports, dispatcher)
	case transportHTTP:
		return runHTTP(ctx, cfg, st, a, exports, dispatcher, provider, logger)
	}
	return fmt.Errorf("unsupported transport %q (use http or stdio)", transport)
}

// setupLogging configures the process-wide slog logger. Logs go to stderr so
// the stdio transport keeps stdout clean for MCP traffic.
func setupLogging(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// buildClassifier assembles the classification pipeline. Without an API key
// the semantic and LLM stages are skipped and pattern matching runs alone.
func buildClassifier(ctx context.Context, cfg config.ClassifierConfig, logger *slog.Logger) (*parser.Router, error) {
	var semantic *parser.SemanticClassifier
	var llm *parser.LLMClassifier

	if cfg.GenAIAPIKey == "" {
		logger.Warn("no GenAI API key configured; classification runs in pattern-only mode")
		return parser.NewRouter(cfg, nil, nil, logger), nil
	}

	embedder, err := parser.NewGenAIEmbedder(ctx, cfg.GenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	semantic = parser.NewSemanticClassifier(embedder)
	if err := semantic.Prime(ctx); err != nil {
		// The classifier primes lazily on first use when this fails.
		logger.Warn("failed to prime semantic classifier", logging.Err(err))
	}

	generator, err := parser.NewGenAIGenerator(ctx, cfg.GenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	llm = parser.NewLLMClassifier(generator)

	return parser.NewRouter(cfg, semantic, llm, logger), nil
}

// googleClients builds the Gmail and Calendar clients when an OAuth token is
// stored for the default account. Missing tokens disable those domains.
func googleClients(ctx context.Context, cfg config.GoogleConfig, logger *slog.Logger) (assistant.GmailService, assistant.CalendarService) {
	auth := google.NewAuth(cfg)
	if !auth.HasTokenForAccount(defaultAccount) {
		logger.Warn("no Google OAuth token found; email and calendar queries are disabled",
			slog.String("hint", "run 'clavr auth' to authorize"))
		return nil, nil
	}

	var gm assistant.GmailService
	if client, err := gmail.NewClientForAccount(ctx, auth, defaultAccount); err != nil {
		logger.Warn("failed to create Gmail client", logging.Err(err))
	} else {
		gm = client
	}

	var cal assistant.CalendarService
	if client, err := calendar.NewClientForAccount(ctx, auth, defaultAccount); err != nil {
		logger.Warn("failed to create Calendar client", logging.Err(err))
	} else {
		cal = client
	}
	return gm, cal
}

// startSessionPurge sweeps expired sessions on a fixed interval.
func startSessionPurge(ctx context.Context, pool *worker.Pool, st *store.Store, logger *slog.Logger) {
	submit := func() {
		err := pool.Submit(worker.Job{
			Name:    "session_purge",
			Retries: 2,
			Fn: func(jctx context.Context) error {
				_, err := st.Sessions.DeleteExpired(jctx, time.Now())
				return err
			},
		})
		if err != nil {
			logger.Warn("failed to queue session purge", logging.Err(err))
		}
	}

	go func() {
		ticker := time.NewTicker(sessionPurgeInterval)
		defer ticker.Stop()
		submit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				submit()
			}
		}
	}()
}

func runHTTP(ctx context.Context, cfg config.Config, st *store.Store, a *assistant.Assistant, exports *export.Manager, dispatcher *webhook.Dispatcher, provider *instrumentation.Provider, logger *slog.Logger) error {
	var metricsServer *server.MetricsServer
	if cfg.Server.MetricsEnabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(cfg.Server.MetricsAddr, provider)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	api := server.New(cfg.Server, st, a, exports, server.Options{
		Events:  dispatcher,
		Metrics: provider.Metrics(),
		Audit:   provider.AuditLogger(logger),
		Logger:  logger,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", logging.Err(err))
		}
	}
	return nil
}

func runStdio(ctx context.Context, st *store.Store, a *assistant.Assistant, exports *export.Manager, events webhook.Publisher) error {
	user, err := localUser(ctx, st)
	if err != nil {
		return err
	}

	mcpSrv := mcpserver.NewMCPServer("clavr", version)
	if err := assistant_tools.RegisterAssistantTools(mcpSrv, a, exports, user.ID); err != nil {
		return fmt.Errorf("failed to register assistant tools: %w", err)
	}
	if err := task_tools.RegisterTaskTools(mcpSrv, st, events, user.ID); err != nil {
		return fmt.Errorf("failed to register task tools: %w", err)
	}

	return mcpserver.ServeStdio(mcpSrv)
}

// localUser finds or provisions the account the stdio transport serves.
func localUser(ctx context.Context, st *store.Store) (*store.User, error) {
	user, err := st.Users.GetByEmail(ctx, localUserEmail)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user = &store.User{Email: localUserEmail, Name: "Local"}
	if err := st.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to provision local user: %w", err)
	}
	return user, nil
}
