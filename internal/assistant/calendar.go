package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/clavrr/clavr/internal/calendar"
	"github.com/clavrr/clavr/internal/instrumentation"
	"github.com/clavrr/clavr/internal/parser"
)

// primaryCalendar is the calendar every action operates on.
const primaryCalendar = "primary"

// eventLookupWindow bounds the search for a named event when rescheduling
// or canceling.
const eventLookupWindow = 30 * 24 * time.Hour

var errCalendarUnconfigured = fmt.Errorf("calendar is not configured for this server")

// runCalendar executes a Calendar action.
func (a *Assistant) runCalendar(ctx context.Context, act parser.CalendarAction, ref time.Time) (*Result, error) {
	if a.calendar == nil {
		return nil, errCalendarUnconfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, string(act.Op))
	defer span.End()

	start := time.Now()
	var result *Result
	var err error

	switch act.Op {
	case parser.CalendarOpList:
		result, err = a.listEvents(act)
	case parser.CalendarOpCreate:
		result, err = a.createEvent(act)
	case parser.CalendarOpReschedule:
		result, err = a.rescheduleEvent(act, ref)
	case parser.CalendarOpCancel:
		result, err = a.cancelEvent(act, ref)
	case parser.CalendarOpAvailability:
		result, err = a.findAvailability(act)
	default:
		return nil, fmt.Errorf("unsupported calendar operation %q", act.Op)
	}

	a.recordGoogleOp(ctx, instrumentation.ServiceCalendar, string(act.Op), start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return result, err
}

func (a *Assistant) listEvents(act parser.CalendarAction) (*Result, error) {
	events, err := a.calendar.ListEvents(primaryCalendar, act.Start, act.End, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return &Result{
		Message: fmt.Sprintf("Found %d events between %s and %s.",
			len(events), act.Start.Format("Mon Jan 2"), act.End.Format("Mon Jan 2")),
		Data: events,
	}, nil
}

func (a *Assistant) createEvent(act parser.CalendarAction) (*Result, error) {
	event, err := a.calendar.CreateEvent(primaryCalendar, calendar.EventInput{
		Summary:   act.Title,
		Start:     act.Start,
		End:       act.End,
		Attendees: act.Attendees,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &Result{
		Message: fmt.Sprintf("Created %q on %s.", event.Summary, event.Start.Format("Mon Jan 2 15:04")),
		Data:    event,
	}, nil
}

func (a *Assistant) rescheduleEvent(act parser.CalendarAction, ref time.Time) (*Result, error) {
	event, err := a.findEvent(act.EventQuery, ref)
	if err != nil {
		return nil, err
	}

	// Keep the original duration at the new start time.
	duration := event.End.Sub(event.Start)
	if duration <= 0 {
		duration = time.Hour
	}
	updated, err := a.calendar.UpdateEvent(primaryCalendar, event.ID, calendar.EventInput{
		Summary: event.Summary,
		Start:   act.Start,
		End:     act.Start.Add(duration),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule %q: %w", event.Summary, err)
	}
	return &Result{
		Message: fmt.Sprintf("Moved %q to %s.", updated.Summary, updated.Start.Format("Mon Jan 2 15:04")),
		Data:    updated,
	}, nil
}

func (a *Assistant) cancelEvent(act parser.CalendarAction, ref time.Time) (*Result, error) {
	event, err := a.findEvent(act.EventQuery, ref)
	if err != nil {
		return nil, err
	}
	if err := a.calendar.DeleteEvent(primaryCalendar, event.ID); err != nil {
		return nil, fmt.Errorf("failed to cancel %q: %w", event.Summary, err)
	}
	return &Result{
		Message: fmt.Sprintf("Canceled %q.", event.Summary),
		Data:    map[string]string{"event_id": event.ID, "summary": event.Summary},
	}, nil
}

func (a *Assistant) findAvailability(act parser.CalendarAction) (*Result, error) {
	// The user's own calendar is always consulted; named attendees are added
	// on top. Without this the free/busy query would cover no calendars and
	// report the whole window free.
	calendars := append([]string{primaryCalendar}, act.Attendees...)
	slots, err := a.calendar.FindAvailableSlots(calendars, act.Duration, act.Start, act.End)
	if err != nil {
		return nil, fmt.Errorf("availability lookup failed: %w", err)
	}
	return &Result{
		Message: fmt.Sprintf("Found %d open slots of %s.", len(slots), act.Duration),
		Data:    slots,
	}, nil
}

// findEvent resolves a spoken event name to the next matching upcoming event.
func (a *Assistant) findEvent(query string, ref time.Time) (*calendar.EventSummary, error) {
	events, err := a.calendar.ListEvents(primaryCalendar, ref, ref.Add(eventLookupWindow), query)
	if err != nil {
		return nil, fmt.Errorf("failed to look up event %q: %w", query, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no upcoming event matches %q", query)
	}
	return &events[0], nil
}
