package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// Attribute keys shared across the codebase so log lines stay greppable.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyIntent    = "intent"
	KeyStage     = "stage"
	KeyEvent     = "event"
	KeyJob       = "job"
)

// Status values. Duplicated from instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger carrying the operation attribute.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithService returns a logger carrying the service attribute.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithJob returns a logger carrying the job attribute.
func WithJob(logger *slog.Logger, job string) *slog.Logger {
	return logger.With(slog.String(KeyJob, job))
}

// Operation builds the operation attribute.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Service builds the service attribute.
func Service(svc string) slog.Attr { return slog.String(KeyService, svc) }

// Intent builds an attribute for a classified intent name.
func Intent(intent string) slog.Attr { return slog.String(KeyIntent, intent) }

// Stage builds an attribute for the classifier stage that produced a result.
func Stage(stage string) slog.Attr { return slog.String(KeyStage, stage) }

// Event builds an attribute for a webhook event type.
func Event(event string) slog.Attr { return slog.String(KeyEvent, event) }

// Job builds an attribute for a background job name.
func Job(job string) slog.Attr { return slog.String(KeyJob, job) }

// Status builds the status attribute.
func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }

// Err builds the error attribute. A nil err yields an empty group, which slog
// drops from the output, so Err(maybeNil) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an email address into a stable opaque token so log
// entries can be correlated without recording PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash builds the user_hash attribute from an anonymized email.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken masks a token for logging. Only the length survives; even a
// prefix of a real token is too much to write to a log.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// SanitizeQuery truncates a user query for logging. Full query text is
// PII-adjacent and belongs in the query log table, not in operational logs.
func SanitizeQuery(query string) string {
	const max = 48
	query = strings.TrimSpace(query)
	if len(query) <= max {
		return query
	}
	return query[:max] + "..."
}

// ExtractDomain returns the domain part of an email address, or "" when the
// address does not have exactly one @.
func ExtractDomain(email string) string {
	at := strings.Split(email, "@")
	if email == "" || len(at) != 2 {
		return ""
	}
	return at[1]
}

// Domain builds a low-cardinality attribute from the email's domain.
func Domain(email string) slog.Attr {
	return slog.String("user_domain", ExtractDomain(email))
}
