package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, ctx context.Context) *Provider {
	t.Helper()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/v1/tasks", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/v1/query", 500, 50*time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationCreate, StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordClassifiedQuery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Without detailed labels the intent is collapsed to its domain label,
	// including the "unknown" bucket for queries that never classified.
	metrics.RecordClassifiedQuery(ctx, StagePattern, "email.archive", StatusSuccess, 2*time.Millisecond)
	metrics.RecordClassifiedQuery(ctx, StageSemantic, "calendar.list", StatusSuccess, 120*time.Millisecond)
	metrics.RecordClassifiedQuery(ctx, StageLLM, "task.create", StatusSuccess, 900*time.Millisecond)
	metrics.RecordClassifiedQuery(ctx, StageNone, "", StatusError, time.Second)
}

func TestMetrics_RecordClassifierStage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	metrics.RecordClassifierStage(ctx, StagePattern, "hit", time.Millisecond)
	metrics.RecordClassifierStage(ctx, StageSemantic, "miss", 80*time.Millisecond)
	metrics.RecordClassifierStage(ctx, StageLLM, "hit", 600*time.Millisecond)
}

func TestMetrics_RecordWebhookDelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	metrics.RecordWebhookDelivery(ctx, "task.created", StatusSuccess, 30*time.Millisecond)
	metrics.RecordWebhookDelivery(ctx, "query.executed", StatusError, 2*time.Minute)
}

func TestMetrics_RecordJob(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	metrics.RecordJob(ctx, "export", StatusSuccess, time.Second)
	metrics.RecordJob(ctx, "session_purge", StatusSuccess, 10*time.Millisecond)
}

func TestMetrics_Sessions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	metrics.SessionStarted(ctx)
	metrics.SessionStarted(ctx)
	metrics.SessionEnded(ctx)
}

func TestMetrics_NoopWhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create disabled provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("disabled provider should still return a metrics recorder")
	}

	// All recorders must be safe no-ops
	metrics.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	metrics.RecordClassifiedQuery(ctx, StagePattern, "email.archive", StatusSuccess, time.Millisecond)
	metrics.RecordWebhookDelivery(ctx, "task.created", StatusSuccess, time.Millisecond)
	metrics.RecordJob(ctx, "export", StatusSuccess, time.Millisecond)
	metrics.SessionStarted(ctx)
	metrics.SessionEnded(ctx)
}
