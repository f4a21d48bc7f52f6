package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/instrumentation"
	"github.com/clavrr/clavr/internal/logging"
	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/worker"
)

// Submitter enqueues background jobs. *worker.Pool satisfies it.
type Submitter interface {
	Submit(job worker.Job) error
}

// Dispatcher delivers events to matching webhook subscriptions with
// exponential-backoff retries. Deliveries run on the worker pool; with a nil
// pool they run inline, which the export CLI path uses.
type Dispatcher struct {
	repo    *store.WebhookRepository
	client  *http.Client
	pool    Submitter
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	maxElapsed time.Duration
}

// NewDispatcher creates a Dispatcher from the webhook configuration.
func NewDispatcher(repo *store.WebhookRepository, cfg config.WebhookConfig, pool Submitter, metrics *instrumentation.Metrics, logger *slog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:       repo,
		client:     &http.Client{Timeout: cfg.Timeout},
		pool:       pool,
		metrics:    metrics,
		logger:     logger,
		maxElapsed: cfg.MaxElapsedTime,
	}
}

// Publish implements Publisher. It looks up the active subscriptions matching
// the event and schedules one delivery per subscription.
func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	subs, err := d.repo.ListActiveForEvent(ctx, event.UserID, event.Type)
	if err != nil {
		d.logger.Error("webhook subscription lookup failed",
			logging.Event(event.Type), logging.Err(err))
		return
	}

	for i := range subs {
		sub := subs[i]
		job := worker.Job{
			Name: "webhook_delivery",
			Fn: func(jctx context.Context) error {
				return d.Deliver(jctx, &sub, event)
			},
		}
		if d.pool == nil {
			if err := d.Deliver(ctx, &sub, event); err != nil {
				d.logger.Warn("webhook delivery failed",
					logging.Event(event.Type), logging.Err(err))
			}
			continue
		}
		if err := d.pool.Submit(job); err != nil {
			d.logger.Warn("webhook delivery dropped",
				logging.Event(event.Type), logging.Err(err))
		}
	}
}

// deliveryBody is the JSON document posted to the subscription endpoint.
type deliveryBody struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Deliver posts one event to one subscription, retrying transient failures
// until the configured retry window elapses. The outcome is written to the
// delivery log and to the subscription's failure counter either way.
func (d *Dispatcher) Deliver(ctx context.Context, sub *store.WebhookSubscription, event Event) error {
	ctx, span := instrumentation.StartWebhookSpan(ctx, event.Type)
	defer span.End()

	deliveryID := uuid.NewString()
	body, err := json.Marshal(deliveryBody{
		ID:         deliveryID,
		Type:       event.Type,
		OccurredAt: event.OccurredAt,
		Payload:    event.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	signature := Sign(sub.Secret, body)

	attempts := 0
	lastStatus := 0
	start := time.Now()

	post := func() (int, error) {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderEvent, event.Type)
		req.Header.Set(HeaderDelivery, deliveryID)
		req.Header.Set(HeaderSignature, signature)

		resp, err := d.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.StatusCode, nil
		}

		err = fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return resp.StatusCode, err
		}
		return resp.StatusCode, backoff.Permanent(err)
	}

	_, deliveryErr := backoff.Retry(ctx, post,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(d.maxElapsed))
	duration := time.Since(start)

	// Bookkeeping must land even when the delivery context was canceled.
	bctx := context.WithoutCancel(ctx)
	d.record(bctx, sub, event, deliveryID, lastStatus, attempts, deliveryErr, duration)
	instrumentation.AddSpanEvent(span, "delivery.finished",
		attribute.Int("http.status_code", lastStatus),
		attribute.Int("attempts", attempts))

	if deliveryErr != nil {
		instrumentation.SetSpanError(span, deliveryErr)
		return fmt.Errorf("delivery to %s failed after %d attempts: %w", sub.URL, attempts, deliveryErr)
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

func (d *Dispatcher) record(ctx context.Context, sub *store.WebhookSubscription, event Event, deliveryID string, status, attempts int, deliveryErr error, duration time.Duration) {
	delivery := &store.WebhookDelivery{
		ID:             deliveryID,
		SubscriptionID: sub.ID,
		Event:          event.Type,
		StatusCode:     status,
		Attempts:       attempts,
		Success:        deliveryErr == nil,
	}
	if deliveryErr != nil {
		delivery.Error = deliveryErr.Error()
	}
	if err := d.repo.RecordDelivery(ctx, delivery); err != nil {
		d.logger.Error("failed to log webhook delivery", logging.Err(err))
	}

	now := time.Now().UTC()
	var bookErr error
	if deliveryErr == nil {
		bookErr = d.repo.RecordSuccess(ctx, sub.ID, now)
	} else {
		bookErr = d.repo.RecordFailure(ctx, sub.ID, deliveryErr, now)
	}
	if bookErr != nil {
		d.logger.Error("failed to update webhook subscription state", logging.Err(bookErr))
	}

	if d.metrics != nil {
		status := instrumentation.StatusSuccess
		if deliveryErr != nil {
			status = instrumentation.StatusError
		}
		d.metrics.RecordWebhookDelivery(ctx, event.Type, status, duration)
	}
}

// retryableStatus reports whether a non-2xx response is worth retrying.
// Client errors are final except for timeouts and rate limits.
func retryableStatus(code int) bool {
	if code >= 500 {
		return true
	}
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}
