package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// CalendarOp enumerates the Calendar operations the assistant performs.
type CalendarOp string

const (
	CalendarOpList         CalendarOp = "list"
	CalendarOpCreate       CalendarOp = "create"
	CalendarOpReschedule   CalendarOp = "reschedule"
	CalendarOpCancel       CalendarOp = "cancel"
	CalendarOpAvailability CalendarOp = "availability"
)

// defaultEventDuration applies when a create or availability request names
// no duration.
const defaultEventDuration = time.Hour

var durationRe = regexp.MustCompile(`(\d+)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)

// CalendarAction is an executable Calendar request.
type CalendarAction struct {
	Op CalendarOp

	// Title names the event to create; EventQuery names an existing event
	// for reschedule and cancel.
	Title      string
	EventQuery string

	Start    time.Time
	End      time.Time
	Duration time.Duration

	Attendees []string
}

// Domain implements Action.
func (CalendarAction) Domain() string { return "calendar" }

// buildCalendarAction maps a calendar intent and its slots to a
// CalendarAction, resolving date phrases against the reference clock.
func buildCalendarAction(c Classification, ref time.Time) (Action, error) {
	date, err := resolveDateSlot(c, SlotDate, ref)
	if err != nil {
		return nil, err
	}

	duration := parseDurationSlot(c.Slot(SlotDuration))

	switch c.Intent {
	case IntentCalendarList:
		start, end := listWindow(date, ref)
		return CalendarAction{Op: CalendarOpList, Start: start, End: end}, nil

	case IntentCalendarCreate:
		if c.Slot(SlotTitle) == "" {
			return nil, fmt.Errorf("event creation requires a title")
		}
		if date.IsZero() {
			return nil, fmt.Errorf("event creation requires a date")
		}
		if duration == 0 {
			duration = defaultEventDuration
		}
		return CalendarAction{
			Op:        CalendarOpCreate,
			Title:     c.Slot(SlotTitle),
			Start:     date,
			End:       date.Add(duration),
			Duration:  duration,
			Attendees: splitRecipients(c.Slot(SlotAttendees)),
		}, nil

	case IntentCalendarReschedule:
		if c.Slot(SlotEvent) == "" {
			return nil, fmt.Errorf("reschedule requires an event")
		}
		if date.IsZero() {
			return nil, fmt.Errorf("reschedule requires a date")
		}
		return CalendarAction{
			Op:         CalendarOpReschedule,
			EventQuery: c.Slot(SlotEvent),
			Start:      date,
		}, nil

	case IntentCalendarCancel:
		if c.Slot(SlotEvent) == "" {
			return nil, fmt.Errorf("cancel requires an event")
		}
		return CalendarAction{Op: CalendarOpCancel, EventQuery: c.Slot(SlotEvent)}, nil

	case IntentCalendarAvailability:
		start, end := listWindow(date, ref)
		if duration == 0 {
			duration = defaultEventDuration
		}
		return CalendarAction{
			Op:       CalendarOpAvailability,
			Start:    start,
			End:      end,
			Duration: duration,
		}, nil
	}

	return nil, fmt.Errorf("no calendar action for intent %q", c.Intent)
}

// listWindow picks the time window for list and availability requests: the
// named day when a date was given, otherwise the next 7 days.
func listWindow(date, ref time.Time) (time.Time, time.Time) {
	if !date.IsZero() {
		return DayRange(date)
	}
	return ref, ref.AddDate(0, 0, 7)
}

// parseDurationSlot reads phrases like "1 hour", "30 minutes", "90m".
// Unparseable input yields zero.
func parseDurationSlot(value string) time.Duration {
	m := durationRe.FindStringSubmatch(value)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0
	}

	switch m[2][0] {
	case 'h':
		return time.Duration(n) * time.Hour
	default:
		return time.Duration(n) * time.Minute
	}
}
