package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/clavrr/clavr/internal/calendar"
	"github.com/clavrr/clavr/internal/gmail"
	"github.com/clavrr/clavr/internal/instrumentation"
	"github.com/clavrr/clavr/internal/logging"
	"github.com/clavrr/clavr/internal/parser"
	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/webhook"
)

// GmailService is the subset of the Gmail client the assistant needs.
// *gmail.Client satisfies it.
type GmailService interface {
	ListThreads(q string, maxResults int64) ([]*gmailapi.Thread, error)
	GetThread(threadID string) (*gmailapi.Thread, error)
	ForeachThread(q string, fn func(*gmailapi.Thread) error) error
	ArchiveThread(tid string) error
	MarkThreadRead(tid string) error
	MarkThreadUnread(tid string) error
	ModifyThreadLabels(tid string, add, remove []string) error
	EnsureLabel(name string) (string, error)
	SendEmail(msg *gmail.EmailMessage) (string, error)
	ReplyToEmail(messageID, threadID, body string, cc, bcc []string, isHTML bool) (string, error)
}

// CalendarService is the subset of the Calendar client the assistant needs.
// *calendar.Client satisfies it.
type CalendarService interface {
	ListEvents(calendarID string, timeMin, timeMax time.Time, query string) ([]calendar.EventSummary, error)
	CreateEvent(calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
	UpdateEvent(calendarID, eventID string, input calendar.EventInput) (*calendar.EventSummary, error)
	DeleteEvent(calendarID, eventID string) error
	FindAvailableSlots(calendarIDs []string, duration time.Duration, timeMin, timeMax time.Time) ([]calendar.AvailableSlot, error)
}

// Options carries the optional collaborators of an Assistant. Nil Gmail or
// Calendar services leave the corresponding domain unconfigured; queries
// that require them fail with a clear error instead of a panic.
type Options struct {
	Gmail    GmailService
	Calendar CalendarService
	Events   webhook.Publisher
	Metrics  *instrumentation.Metrics
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Assistant classifies natural-language queries and executes the resulting
// actions.
type Assistant struct {
	router   *parser.Router
	store    *store.Store
	gmail    GmailService
	calendar CalendarService
	events   webhook.Publisher
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	clock    func() time.Time
}

// New creates an Assistant.
func New(router *parser.Router, st *store.Store, opts Options) *Assistant {
	if opts.Events == nil {
		opts.Events = webhook.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Assistant{
		router:   router,
		store:    st,
		gmail:    opts.Gmail,
		calendar: opts.Calendar,
		events:   opts.Events,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		clock:    opts.Clock,
	}
}

// Result is the outcome of one executed query.
type Result struct {
	Intent     parser.Intent `json:"intent"`
	Stage      string        `json:"stage"`
	Confidence float64       `json:"confidence"`
	Message    string        `json:"message"`
	Data       any           `json:"data,omitempty"`
}

// Execute classifies a query, runs the resulting action, and records the
// outcome in the query log. The returned error covers execution failures;
// a query nobody could classify is a normal outcome, not an error.
func (a *Assistant) Execute(ctx context.Context, userID, query string) (*Result, error) {
	ctx, span := instrumentation.StartQuerySpan(ctx)
	defer span.End()

	start := a.clock()
	log := a.logger.With(logging.KeyOperation, "execute")

	c, err := a.router.Classify(ctx, query, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		a.finish(ctx, userID, query, c, start, fmt.Errorf("classification failed: %w", err))
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	span.SetAttributes(
		attribute.String(instrumentation.SpanAttrIntent, string(c.Intent)),
		attribute.String(instrumentation.SpanAttrStage, c.Stage),
	)

	if c.Intent == parser.IntentUnknown {
		instrumentation.SetSpanSuccess(span)
		a.finish(ctx, userID, query, c, start, nil)
		return &Result{
			Intent:  parser.IntentUnknown,
			Stage:   c.Stage,
			Message: "Sorry, I could not understand that request.",
		}, nil
	}

	action, err := parser.BuildAction(c, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		a.finish(ctx, userID, query, c, start, err)
		return nil, err
	}

	result, err := a.run(ctx, userID, action, start)
	if err != nil {
		log.Warn("action failed",
			logging.Intent(string(c.Intent)),
			logging.Err(err))
		instrumentation.SetSpanError(span, err)
		a.finish(ctx, userID, query, c, start, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)

	result.Intent = c.Intent
	result.Stage = c.Stage
	result.Confidence = c.Confidence
	a.finish(ctx, userID, query, c, start, nil)

	log.Info("query executed",
		logging.Intent(string(c.Intent)),
		logging.Stage(c.Stage),
		slog.Float64("confidence", c.Confidence))
	return result, nil
}

// run dispatches an action to its domain executor.
func (a *Assistant) run(ctx context.Context, userID string, action parser.Action, ref time.Time) (*Result, error) {
	switch act := action.(type) {
	case parser.EmailAction:
		return a.runEmail(ctx, act)
	case parser.CalendarAction:
		return a.runCalendar(ctx, act, ref)
	case parser.TaskAction:
		return a.runTask(ctx, userID, act, ref)
	}
	return nil, fmt.Errorf("no executor for %s actions", action.Domain())
}

// recordGoogleOp samples the duration and outcome of one Google API backed
// operation.
func (a *Assistant) recordGoogleOp(ctx context.Context, service, op string, start time.Time, err error) {
	if a.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	a.metrics.RecordGoogleAPIOperation(ctx, service, op, status, time.Since(start))
}

// finish writes the query record, updates metrics, and announces the
// execution to webhook subscribers.
func (a *Assistant) finish(ctx context.Context, userID, query string, c parser.Classification, start time.Time, execErr error) {
	intent := c.Intent
	if intent == "" {
		intent = parser.IntentUnknown
	}
	stage := c.Stage
	if stage == "" {
		stage = parser.StageNone
	}

	rec := &store.QueryRecord{
		UserID:     userID,
		Query:      query,
		Intent:     string(intent),
		Stage:      stage,
		Confidence: c.Confidence,
		Success:    execErr == nil,
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}
	if err := a.store.Queries.Record(ctx, rec); err != nil {
		a.logger.Error("failed to record query", logging.Err(err))
	}

	if a.metrics != nil {
		status := instrumentation.StatusSuccess
		if execErr != nil {
			status = instrumentation.StatusError
		}
		a.metrics.RecordClassifiedQuery(ctx, stage, string(intent), status, a.clock().Sub(start))
	}

	a.events.Publish(ctx, webhook.Event{
		Type:   webhook.EventQueryExecuted,
		UserID: userID,
		Payload: map[string]any{
			"query":      logging.SanitizeQuery(query),
			"intent":     string(intent),
			"stage":      stage,
			"confidence": c.Confidence,
			"success":    execErr == nil,
		},
	})
}
