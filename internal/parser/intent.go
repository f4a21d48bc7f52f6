package parser

import (
	"fmt"
	"time"
)

// Intent identifies what the user wants the assistant to do.
type Intent string

const (
	IntentEmailSearch   Intent = "email.search"
	IntentEmailArchive  Intent = "email.archive"
	IntentEmailSend     Intent = "email.send"
	IntentEmailReply    Intent = "email.reply"
	IntentEmailLabel    Intent = "email.label"
	IntentEmailMarkRead Intent = "email.markread"

	IntentCalendarList         Intent = "calendar.list"
	IntentCalendarCreate       Intent = "calendar.create"
	IntentCalendarReschedule   Intent = "calendar.reschedule"
	IntentCalendarCancel       Intent = "calendar.cancel"
	IntentCalendarAvailability Intent = "calendar.availability"

	IntentTaskCreate   Intent = "task.create"
	IntentTaskList     Intent = "task.list"
	IntentTaskComplete Intent = "task.complete"
	IntentTaskDue      Intent = "task.due"

	IntentUnknown Intent = "unknown"
)

// Classification stages, in fall-through order.
const (
	StagePattern  = "pattern"
	StageSemantic = "semantic"
	StageLLM      = "llm"
	StageNone     = "none"
)

// Slot keys shared across intents.
const (
	SlotQuery     = "query"
	SlotTo        = "to"
	SlotSubject   = "subject"
	SlotBody      = "body"
	SlotDate      = "date"
	SlotTitle     = "title"
	SlotDuration  = "duration"
	SlotAttendees = "attendees"
	SlotEvent     = "event"
	SlotTask      = "task"
	SlotLabel     = "label"
	SlotState     = "state"
)

// Classification is the outcome of one classifier stage.
type Classification struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots,omitempty"`
	Stage      string            `json:"stage"`
}

// Slot returns the value of a slot, empty when absent.
func (c Classification) Slot(key string) string {
	if c.Slots == nil {
		return ""
	}
	return c.Slots[key]
}

// Domain returns the intent's domain prefix ("email", "calendar", "task"),
// or "unknown".
func (i Intent) Domain() string {
	switch i {
	case IntentEmailSearch, IntentEmailArchive, IntentEmailSend, IntentEmailReply,
		IntentEmailLabel, IntentEmailMarkRead:
		return "email"
	case IntentCalendarList, IntentCalendarCreate, IntentCalendarReschedule,
		IntentCalendarCancel, IntentCalendarAvailability:
		return "calendar"
	case IntentTaskCreate, IntentTaskList, IntentTaskComplete, IntentTaskDue:
		return "task"
	}
	return "unknown"
}

// Known reports whether the intent is part of the taxonomy.
func (i Intent) Known() bool {
	return i.Domain() != "unknown"
}

// AllIntents lists the taxonomy, used by the LLM prompt and tests.
func AllIntents() []Intent {
	return []Intent{
		IntentEmailSearch, IntentEmailArchive, IntentEmailSend, IntentEmailReply,
		IntentEmailLabel, IntentEmailMarkRead,
		IntentCalendarList, IntentCalendarCreate, IntentCalendarReschedule,
		IntentCalendarCancel, IntentCalendarAvailability,
		IntentTaskCreate, IntentTaskList, IntentTaskComplete, IntentTaskDue,
	}
}

// requiredSlots maps each intent to the slots a classification must carry
// before it can be executed.
var requiredSlots = map[Intent][]string{
	IntentEmailSearch:   nil,
	IntentEmailArchive:  {SlotQuery},
	IntentEmailSend:     {SlotTo, SlotSubject},
	IntentEmailReply:    {SlotBody},
	IntentEmailLabel:    {SlotQuery, SlotLabel},
	IntentEmailMarkRead: {SlotQuery},

	IntentCalendarList:         nil,
	IntentCalendarCreate:       {SlotTitle, SlotDate},
	IntentCalendarReschedule:   {SlotEvent, SlotDate},
	IntentCalendarCancel:       {SlotEvent},
	IntentCalendarAvailability: nil,

	IntentTaskCreate:   {SlotTitle},
	IntentTaskList:     nil,
	IntentTaskComplete: {SlotTask},
	IntentTaskDue:      {SlotTask, SlotDate},
}

// dateSlots are slots whose values must resolve to a point in time.
var dateSlots = map[string]bool{
	SlotDate: true,
}

// Validate checks a classification against the intent's slot schema.
// Date-valued slots must resolve against the reference clock.
func Validate(c Classification, ref time.Time) error {
	if !c.Intent.Known() {
		return fmt.Errorf("unknown intent %q", c.Intent)
	}

	for _, key := range requiredSlots[c.Intent] {
		if c.Slot(key) == "" {
			return fmt.Errorf("intent %s requires slot %q", c.Intent, key)
		}
	}

	for key, value := range c.Slots {
		if !dateSlots[key] || value == "" {
			continue
		}
		if _, err := ResolveDate(value, ref); err != nil {
			return fmt.Errorf("slot %q: %w", key, err)
		}
	}

	return nil
}
