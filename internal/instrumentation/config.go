package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Config controls the OpenTelemetry setup. All fields can be seeded from
// environment variables via DefaultConfig.
type Config struct {
	// ServiceName identifies the service in exported telemetry (default: clavr).
	ServiceName string

	// ServiceVersion is stamped into the resource attributes.
	ServiceVersion string

	// ServiceInstanceID uniquely identifies this instance; in Kubernetes this
	// is usually the pod name.
	ServiceInstanceID string

	// K8sNamespace and K8sPodName are attached as resource attributes when set.
	K8sNamespace string
	K8sPodName   string

	// Enabled turns the whole subsystem on or off. When false, metrics and
	// tracing calls become no-ops.
	Enabled bool

	// MetricsExporter selects "prometheus", "otlp" or "stdout".
	MetricsExporter string

	// TracingExporter selects "otlp", "stdout" or "none".
	TracingExporter string

	// OTLPEndpoint is the collector address without protocol prefix,
	// e.g. "localhost:4318". Required for the otlp exporters.
	OTLPEndpoint string

	// OTLPInsecure switches OTLP export to plain HTTP.
	OTLPInsecure bool

	// TraceSamplingRate is the trace sampling ratio in [0.0, 1.0].
	TraceSamplingRate float64

	// DetailedLabels admits high-cardinality metric labels. Keep off in
	// production.
	DetailedLabels bool

	// AuditLogging configures the query audit trail.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the audit log stream.
type AuditLoggingConfig struct {
	// Enabled turns audit logging on. Audit entries can carry user emails and
	// should be routed to access-controlled storage.
	Enabled bool

	// IncludePII logs full email addresses instead of anonymized hashes.
	IncludePII bool
}

// DefaultConfig builds a Config from environment variables, falling back to
// defaults suitable for local development.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "clavr"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:      envString("K8S_NAMESPACE", envString("POD_NAMESPACE", "")),
		K8sPodName:        envString("K8S_POD_NAME", envString("HOSTNAME", "")),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envBool("AUDIT_LOGGING_ENABLED", true),
			IncludePII: envBool("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate rejects configurations the provider cannot act on.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Metric label values shared by recorders and their callers.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"

	StagePattern  = "pattern"
	StageSemantic = "semantic"
	StageLLM      = "llm"
	StageNone     = "none"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
