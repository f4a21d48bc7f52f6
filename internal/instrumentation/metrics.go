package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrStage     = "stage"
	attrIntent    = "intent"
	attrDomain    = "domain"
	attrEvent     = "event"
	attrJob       = "job"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Classifier metrics
	classifierQueriesTotal  metric.Int64Counter
	classifierStageDuration metric.Float64Histogram

	// Webhook metrics
	webhookDeliveriesTotal  metric.Int64Counter
	webhookDeliveryDuration metric.Float64Histogram

	// Background job metrics
	jobsTotal   metric.Int64Counter
	jobDuration metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics registers all instruments on the given meter. The detailedLabels
// flag admits high-cardinality labels such as per-intent counts.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	b := builder{meter: meter}
	m := &Metrics{
		detailedLabels: detailedLabels,

		httpRequestsTotal: b.counter("http_requests_total",
			"Total number of HTTP requests", "{request}"),
		httpRequestDuration: b.histogram("http_request_duration_seconds",
			"HTTP request duration in seconds",
			0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
		activeSessions: b.upDown("active_sessions",
			"Number of active user sessions", "{session}"),

		googleAPIOperationsTotal: b.counter("google_api_operations_total",
			"Total number of Google API operations", "{operation}"),
		googleAPIOperationDuration: b.histogram("google_api_operation_duration_seconds",
			"Google API operation duration in seconds",
			0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),

		classifierQueriesTotal: b.counter("classifier_queries_total",
			"Total number of classified queries by resolving stage", "{query}"),
		classifierStageDuration: b.histogram("classifier_stage_duration_seconds",
			"Duration of individual classifier stages in seconds",
			0.0001, 0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),

		webhookDeliveriesTotal: b.counter("webhook_deliveries_total",
			"Total number of webhook delivery attempts", "{delivery}"),
		webhookDeliveryDuration: b.histogram("webhook_delivery_duration_seconds",
			"Webhook delivery duration in seconds, including retries",
			0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 60.0, 300.0),

		jobsTotal: b.counter("background_jobs_total",
			"Total number of background jobs processed", "{job}"),
		jobDuration: b.histogram("background_job_duration_seconds",
			"Background job duration in seconds",
			0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0, 60.0),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// builder creates instruments and keeps the first error, so NewMetrics reads
// as a single literal instead of a ladder of error checks.
type builder struct {
	meter metric.Meter
	err   error
}

func (b *builder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name,
		metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s counter: %w", name, err)
	}
	return c
}

func (b *builder) upDown(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name,
		metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s gauge: %w", name, err)
	}
	return c
}

func (b *builder) histogram(name, desc string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(bounds...))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s histogram: %w", name, err)
	}
	return h
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}

// RecordGoogleAPIOperation records a Google API operation with service, operation, status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordClassifiedQuery records a query that completed the classification pipeline.
// The stage is the pipeline stage that produced the accepted result ("pattern",
// "semantic", "llm") or "none" when the query fell through to unknown.
// The full intent label is only recorded when detailed labels are enabled;
// otherwise the intent is collapsed to its domain ("email.archive" -> "email")
// to keep the label set small.
func (m *Metrics) RecordClassifiedQuery(ctx context.Context, stage, intent, status string, duration time.Duration) {
	if m.classifierQueriesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
		attribute.String(attrDomain, IntentDomain(intent)),
	}
	if m.detailedLabels && intent != "" {
		attrs = append(attrs, attribute.String(attrIntent, intent))
	}

	m.classifierQueriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordClassifierStage records the duration of a single classifier stage.
func (m *Metrics) RecordClassifierStage(ctx context.Context, stage, result string, duration time.Duration) {
	if m.classifierStageDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStage, stage),
		attribute.String(attrResult, result),
	}

	m.classifierStageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordWebhookDelivery records a webhook delivery attempt outcome.
func (m *Metrics) RecordWebhookDelivery(ctx context.Context, event, status string, duration time.Duration) {
	if m.webhookDeliveriesTotal == nil || m.webhookDeliveryDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrEvent, event),
		attribute.String(attrStatus, status),
	}

	m.webhookDeliveriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.webhookDeliveryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordJob records a background job execution.
func (m *Metrics) RecordJob(ctx context.Context, job, status string, duration time.Duration) {
	if m.jobsTotal == nil || m.jobDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrJob, job),
		attribute.String(attrStatus, status),
	}

	m.jobsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.jobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
