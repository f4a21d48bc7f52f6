package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var (
	inDaysRe  = regexp.MustCompile(`^in (\d+) days?$`)
	inWeeksRe = regexp.MustCompile(`^in (\d+) weeks?$`)
	atTimeRe  = regexp.MustCompile(`^(.*?)\s*\bat (\d{1,2})(?::(\d{2}))? ?(am|pm)?$`)
)

// ResolveDate resolves a date phrase against a reference clock. Accepted forms
// are relative phrases ("today", "tomorrow", "friday", "next friday",
// "next week", "in 3 days"), ISO dates (2006-01-02), and RFC 3339 timestamps.
// A trailing "at 3pm" / "at 15:04" clause sets the time of day.
func ResolveDate(phrase string, ref time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(phrase))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date phrase")
	}

	// Exact timestamps pass through untouched.
	if t, err := time.Parse(time.RFC3339, phrase); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}

	// Split off a time-of-day clause.
	hour, minute := -1, 0
	if m := atTimeRe.FindStringSubmatch(s); m != nil && m[2] != "" {
		h, err := strconv.Atoi(m[2])
		if err == nil {
			if m[3] != "" {
				minute, _ = strconv.Atoi(m[3])
			}
			switch m[4] {
			case "pm":
				if h < 12 {
					h += 12
				}
			case "am":
				if h == 12 {
					h = 0
				}
			}
			if h >= 0 && h < 24 && minute >= 0 && minute < 60 {
				hour = h
				s = strings.TrimSpace(m[1])
				if s == "" {
					s = "today"
				}
			}
		}
	}

	day, err := resolveDay(s, ref)
	if err != nil {
		return time.Time{}, err
	}

	if hour >= 0 {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, ref.Location()), nil
	}
	return day, nil
}

// resolveDay resolves the date part of a phrase to midnight in ref's location.
func resolveDay(s string, ref time.Time) (time.Time, error) {
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	switch s {
	case "today", "now":
		return midnight, nil
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), nil
	case "yesterday":
		return midnight.AddDate(0, 0, -1), nil
	case "next week":
		// Monday of the following week
		days := int(time.Monday - ref.Weekday())
		if days <= 0 {
			days += 7
		}
		return midnight.AddDate(0, 0, days), nil
	case "next month":
		return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, 1, 0), nil
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}

	if m := inDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return midnight.AddDate(0, 0, n), nil
	}
	if m := inWeeksRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return midnight.AddDate(0, 0, 7*n), nil
	}

	// Weekday names resolve to the next occurrence. "next friday" skips the
	// current week's friday when it is still ahead.
	name := s
	skipWeek := false
	if rest, ok := strings.CutPrefix(s, "next "); ok {
		name = rest
		skipWeek = true
	} else if rest, ok := strings.CutPrefix(s, "on "); ok {
		name = rest
	}
	if wd, ok := weekdays[name]; ok {
		days := int(wd - ref.Weekday())
		if days <= 0 {
			days += 7
		}
		if skipWeek && days < 7 {
			days += 7
		}
		return midnight.AddDate(0, 0, days), nil
	}

	return time.Time{}, fmt.Errorf("cannot resolve date phrase %q", s)
}

// DayRange returns the [start, end) window covering the whole day of t.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
