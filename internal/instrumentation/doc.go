// Package instrumentation provides OpenTelemetry-based observability for the
// clavr backend.
//
// It covers three concerns:
//
//   - Metrics: counters and histograms for HTTP traffic, Google API calls,
//     the query classification pipeline, webhook deliveries, and background
//     jobs. Exported via Prometheus (default), OTLP, or stdout.
//
//   - Tracing: span helpers for the classifier pipeline, Google API calls,
//     and webhook deliveries. Disabled by default; enable with
//     TRACING_EXPORTER=otlp or =stdout.
//
//   - Audit logging: a structured record of every executed query, with
//     configurable PII handling (anonymized user hashes by default).
//
// # Configuration
//
// Configuration comes from environment variables; see DefaultConfig. The
// instrumentation can be disabled entirely with INSTRUMENTATION_ENABLED=false,
// in which case all recorders degrade to no-ops.
//
// # Cardinality
//
// Label values are cardinality-controlled: user identities are reduced to
// email domains, and intent labels are only recorded when
// METRICS_DETAILED_LABELS=true.
package instrumentation
