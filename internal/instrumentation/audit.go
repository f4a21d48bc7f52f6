package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// QueryInvocation captures all information about an executed assistant query
// for audit logging. This provides a trail for every action the assistant took
// on behalf of a user.
//
// # Privacy Considerations
//
// The UserEmail field contains PII. When logging, consider:
//   - Using UserDomain() to get only the domain for metrics/general logs
//   - Only logging full email in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type QueryInvocation struct {
	// User identity
	UserEmail string

	// Classification outcome
	Intent     string  // e.g. "email.archive", "calendar.create", "task.complete"
	Stage      string  // classifier stage that produced the result
	Confidence float64 // confidence reported by the resolving stage

	// Target service for executed actions (gmail, calendar, tasks)
	ServiceName string
	Operation   string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// UserDomain returns the domain portion of the user's email for lower-cardinality logging.
func (qi *QueryInvocation) UserDomain() string {
	return ExtractUserDomain(qi.UserEmail)
}

// Status returns "success" or "error" based on the Success field.
func (qi *QueryInvocation) Status() string {
	if qi.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
// It uses cardinality-controlled values (user_domain) suitable for general
// operational logs. For full audit logging, use LogAuditAttrs.
func (qi *QueryInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("intent", qi.Intent),
		slog.String("stage", qi.Stage),
		slog.Float64("confidence", qi.Confidence),
		slog.String("user_domain", qi.UserDomain()),
		slog.Duration("duration", qi.Duration),
		slog.Bool("success", qi.Success),
	}

	if qi.ServiceName != "" {
		attrs = append(attrs, slog.String("service", qi.ServiceName))
	}
	if qi.Operation != "" {
		attrs = append(attrs, slog.String("operation", qi.Operation))
	}
	if qi.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", qi.TraceID))
	}
	if qi.Error != "" {
		attrs = append(attrs, slog.String("error", qi.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
// This includes the full user email for compliance/audit purposes.
//
// # Security Warning
//
// This method includes PII (full email). Ensure audit logs are:
//   - Stored securely with appropriate access controls
//   - Not exposed to general monitoring dashboards
//   - Retained according to compliance requirements
func (qi *QueryInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("intent", qi.Intent),
		slog.String("stage", qi.Stage),
		slog.Float64("confidence", qi.Confidence),
		slog.String("user", qi.UserEmail),
		slog.Duration("duration", qi.Duration),
		slog.Bool("success", qi.Success),
	}

	if qi.ServiceName != "" {
		attrs = append(attrs, slog.String("service", qi.ServiceName))
	}
	if qi.Operation != "" {
		attrs = append(attrs, slog.String("operation", qi.Operation))
	}
	if qi.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", qi.TraceID))
	}
	if qi.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", qi.SpanID))
	}
	if qi.Error != "" {
		attrs = append(attrs, slog.String("error", qi.Error))
	}

	return attrs
}

// NewQueryInvocation creates a new QueryInvocation with timing started.
// Call Complete() when query execution finishes.
func NewQueryInvocation() *QueryInvocation {
	return &QueryInvocation{
		StartTime: time.Now(),
	}
}

// WithUser sets the user identity information.
func (qi *QueryInvocation) WithUser(email string) *QueryInvocation {
	qi.UserEmail = email
	return qi
}

// WithClassification sets the classification outcome.
func (qi *QueryInvocation) WithClassification(intent, stage string, confidence float64) *QueryInvocation {
	qi.Intent = intent
	qi.Stage = stage
	qi.Confidence = confidence
	return qi
}

// WithService sets the Google service and operation.
func (qi *QueryInvocation) WithService(serviceName, operation string) *QueryInvocation {
	qi.ServiceName = serviceName
	qi.Operation = operation
	return qi
}

// WithSpanContext extracts trace context from the current span.
func (qi *QueryInvocation) WithSpanContext(ctx context.Context) *QueryInvocation {
	qi.TraceID = GetTraceID(ctx)
	qi.SpanID = GetSpanID(ctx)
	return qi
}

// Complete marks the invocation as completed and calculates duration.
// Returns the same QueryInvocation for method chaining.
func (qi *QueryInvocation) Complete(success bool, err error) *QueryInvocation {
	qi.Duration = time.Since(qi.StartTime)
	qi.Success = success
	if err != nil {
		qi.Error = err.Error()
	}
	return qi
}

// CompleteWithError marks the invocation as failed with the given error.
func (qi *QueryInvocation) CompleteWithError(err error) *QueryInvocation {
	return qi.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (qi *QueryInvocation) CompleteSuccess() *QueryInvocation {
	return qi.Complete(true, nil)
}

// AuditLogger provides structured audit logging for executed queries.
// It wraps slog.Logger with convenience methods for logging assistant operations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs (anonymized identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full email addresses in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogQuery logs an executed query using the standard log attributes.
// If the logger is configured with IncludePII, full user emails are logged;
// otherwise, only domain-based anonymized identifiers are used.
func (al *AuditLogger) LogQuery(qi *QueryInvocation) {
	if !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = qi.LogAuditAttrs()
	} else {
		attrs = qi.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if qi.Success {
		al.logger.Info("query_executed", args...)
	} else {
		al.logger.Warn("query_failed", args...)
	}
}
