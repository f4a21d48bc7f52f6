package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name for all spans emitted by this module.
const TracerName = "github.com/clavrr/clavr"

// Span attribute keys.
const (
	SpanAttrIntent    = "clavr.intent"
	SpanAttrStage     = "clavr.stage"
	SpanAttrEvent     = "clavr.event"
	SpanAttrJob       = "clavr.job"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan opens a span with the given name. Callers end it with
// defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartQuerySpan opens the root span for one classification pipeline run.
func StartQuerySpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "classifier.query",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer))
}

// StartGoogleAPISpan opens a client span around a Gmail or Calendar call.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient))
}

// StartWebhookSpan opens a client span around one webhook delivery.
func StartWebhookSpan(ctx context.Context, event string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{attribute.String(SpanAttrEvent, event)}, attrs...)
	return tracer().Start(ctx, "webhook.deliver",
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient))
}

// SetSpanError records err on the span and marks it failed. Nil err is a no-op.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent attaches an event to the span.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID of the span in ctx, or "" without one.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or "" without one.
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
