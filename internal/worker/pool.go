package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/instrumentation"
	"github.com/clavrr/clavr/internal/logging"
)

// Job is a unit of background work. Name is a low-cardinality label used for
// logging and metrics ("webhook_delivery", "export", "session_purge").
// Retries is the number of extra attempts after a failure, with exponential
// backoff between attempts; leave it zero for jobs that retry internally.
type Job struct {
	Name    string
	Retries int
	Fn      func(ctx context.Context) error
}

// Pool runs background jobs on a fixed set of worker goroutines fed from a
// bounded queue. Submissions never block: a full queue rejects the job.
type Pool struct {
	jobs    chan Job
	workers int

	metrics *instrumentation.Metrics
	logger  *slog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	draining bool
}

// NewPool creates a Pool sized from the worker configuration. Zero values fall
// back to the config defaults.
func NewPool(cfg config.WorkerConfig, metrics *instrumentation.Metrics, logger *slog.Logger) *Pool {
	if cfg.Count <= 0 {
		cfg.Count = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		jobs:    make(chan Job, cfg.QueueSize),
		workers: cfg.Count,
		metrics: metrics,
		logger:  logger,
	}
}

// Start launches the worker goroutines. Workers exit when the context is
// canceled or when Stop closes the queue, whichever comes first.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("worker pool started", slog.Int("workers", p.workers))
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.execute(ctx, id, job)
		}
	}
}

func (p *Pool) execute(ctx context.Context, id int, job Job) {
	ctx, span := instrumentation.StartSpan(ctx, "job."+job.Name,
		attribute.String(instrumentation.SpanAttrJob, job.Name))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				logging.Job(job.Name),
				slog.Int("worker", id),
				slog.Any("panic", r))
			p.recordJob(ctx, job.Name, instrumentation.StatusError, time.Since(start))
		}
	}()

	err := p.runJob(ctx, job)
	duration := time.Since(start)
	if err != nil {
		p.logger.Warn("job failed",
			logging.Job(job.Name),
			slog.Int("worker", id),
			slog.Duration("duration", duration),
			logging.Err(err))
		instrumentation.SetSpanError(span, err)
		p.recordJob(ctx, job.Name, instrumentation.StatusError, duration)
		return
	}
	instrumentation.SetSpanSuccess(span)

	p.logger.Debug("job done",
		logging.Job(job.Name),
		slog.Int("worker", id),
		slog.Duration("duration", duration))
	p.recordJob(ctx, job.Name, instrumentation.StatusSuccess, duration)
}

func (p *Pool) runJob(ctx context.Context, job Job) error {
	if job.Retries <= 0 {
		return job.Fn(ctx)
	}
	op := func() (struct{}, error) {
		return struct{}{}, job.Fn(ctx)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(job.Retries)+1))
	return err
}

func (p *Pool) recordJob(ctx context.Context, name, status string, duration time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordJob(ctx, name, status, duration)
}

// Submit enqueues a job. It returns an error when the queue is full or the
// pool is shutting down, and never blocks the caller.
func (p *Pool) Submit(job Job) error {
	if job.Fn == nil {
		return fmt.Errorf("job %q has no function", job.Name)
	}

	// The send happens under the same lock that Stop takes before closing the
	// queue, so Submit can never race a close of p.jobs.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draining {
		return fmt.Errorf("worker pool is shutting down")
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return fmt.Errorf("job queue full, dropping %q", job.Name)
	}
}

// Stop closes the queue and waits for workers to drain the jobs already
// accepted. Cancel the Start context instead to abandon queued jobs.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.draining = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// QueueDepth reports the number of jobs waiting to run.
func (p *Pool) QueueDepth() int {
	return len(p.jobs)
}
