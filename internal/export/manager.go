package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clavrr/clavr/internal/logging"
	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/webhook"
	"github.com/clavrr/clavr/internal/worker"
)

// Export states.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Submitter enqueues background jobs. *worker.Pool satisfies it.
type Submitter interface {
	Submit(job worker.Job) error
}

// Job tracks one export request from submission to completion.
type Job struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Archive is set once the job reaches StatusReady.
	Archive *Archive `json:"archive,omitempty"`
}

// Manager runs export jobs and tracks their state. Job state is held in
// memory; a finished archive survives restarts on disk, its bookkeeping does
// not.
type Manager struct {
	store  *store.Store
	dir    string
	pool   Submitter
	events webhook.Publisher
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates a Manager writing archives to dir. With a nil pool,
// exports run inline on the requesting goroutine; the CLI uses that mode.
func NewManager(st *store.Store, dir string, pool Submitter, events webhook.Publisher, logger *slog.Logger) *Manager {
	if events == nil {
		events = webhook.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  st,
		dir:    dir,
		pool:   pool,
		events: events,
		logger: logger,
		jobs:   make(map[string]*Job),
	}
}

// Request starts an export for a user and returns the tracking job.
func (m *Manager) Request(ctx context.Context, userID string) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	if m.pool == nil {
		m.run(ctx, job.ID)
		return m.Get(job.ID)
	}

	err := m.pool.Submit(worker.Job{
		Name: "export",
		Fn: func(jctx context.Context) error {
			m.run(jctx, job.ID)
			return nil
		},
	})
	if err != nil {
		m.setFailed(job.ID, err)
		return nil, fmt.Errorf("failed to queue export: %w", err)
	}
	return m.Get(job.ID)
}

// Get returns a snapshot of a job's state.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

func (m *Manager) run(ctx context.Context, id string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	userID := job.UserID
	m.mu.Unlock()

	archive, err := Assemble(ctx, m.store, m.dir, id, userID)
	if err != nil {
		m.logger.Error("export failed", logging.Job("export"), logging.Err(err))
		m.setFailed(id, err)
		return
	}

	m.mu.Lock()
	job.Status = StatusReady
	job.Archive = archive
	m.mu.Unlock()

	m.logger.Info("export ready",
		logging.Job("export"),
		slog.String("export_id", id),
		slog.Int64("size", archive.Size))

	m.events.Publish(ctx, webhook.Event{
		Type:   webhook.EventExportReady,
		UserID: userID,
		Payload: map[string]any{
			"export_id": id,
			"size":      archive.Size,
		},
	})
}

func (m *Manager) setFailed(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Status = StatusFailed
		job.Error = err.Error()
	}
}
