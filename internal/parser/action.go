package parser

import (
	"fmt"
	"time"
)

// Action is a typed, executable request produced from a classification.
type Action interface {
	// Domain returns the executing domain ("email", "calendar", "task").
	Domain() string
}

// BuildAction turns an accepted classification into a typed action. Relative
// date slots are resolved against the reference clock here, so executors only
// ever see absolute times.
func BuildAction(c Classification, ref time.Time) (Action, error) {
	switch c.Intent.Domain() {
	case "email":
		return buildEmailAction(c)
	case "calendar":
		return buildCalendarAction(c, ref)
	case "task":
		return buildTaskAction(c, ref)
	}
	return nil, fmt.Errorf("no action for intent %q", c.Intent)
}

// resolveDateSlot resolves an optional date slot. A missing slot returns the
// zero time without error.
func resolveDateSlot(c Classification, key string, ref time.Time) (time.Time, error) {
	phrase := c.Slot(key)
	if phrase == "" {
		return time.Time{}, nil
	}
	t, err := ResolveDate(phrase, ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("intent %s: %w", c.Intent, err)
	}
	return t, nil
}
