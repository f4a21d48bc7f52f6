package calendar

import (
	"testing"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

func TestToEventSummary(t *testing.T) {
	event := &calendar.Event{
		Id:          "evt1",
		Summary:     "Team sync",
		Description: "Weekly sync",
		Location:    "Room 4",
		Status:      "confirmed",
		Start:       &calendar.EventDateTime{DateTime: "2025-06-02T10:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2025-06-02T10:30:00Z"},
		Creator:     &calendar.EventCreator{Email: "alice@example.com"},
		Organizer:   &calendar.EventOrganizer{Email: "alice@example.com"},
		Attendees: []*calendar.EventAttendee{
			{Email: "bob@example.com", ResponseStatus: "accepted"},
			{Email: "carol@example.com", ResponseStatus: "needsAction", Optional: true},
		},
	}

	summary := toEventSummary(event)

	if summary.ID != "evt1" {
		t.Errorf("ID = %q", summary.ID)
	}
	if summary.Summary != "Team sync" {
		t.Errorf("Summary = %q", summary.Summary)
	}
	want := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !summary.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", summary.Start, want)
	}
	if len(summary.Attendees) != 2 {
		t.Fatalf("Attendees = %d, want 2", len(summary.Attendees))
	}
	if summary.Attendees[1].Email != "carol@example.com" || !summary.Attendees[1].Optional {
		t.Errorf("second attendee = %+v", summary.Attendees[1])
	}
}

func TestToEventSummaryAllDay(t *testing.T) {
	event := &calendar.Event{
		Id:      "evt2",
		Summary: "Company holiday",
		Start:   &calendar.EventDateTime{Date: "2025-12-24"},
		End:     &calendar.EventDateTime{Date: "2025-12-25"},
	}

	summary := toEventSummary(event)

	want := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	if !summary.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", summary.Start, want)
	}
}

func TestToCalendarInfo(t *testing.T) {
	entry := &calendar.CalendarListEntry{
		Id:         "primary",
		Summary:    "Alice",
		TimeZone:   "Europe/Berlin",
		Primary:    true,
		AccessRole: "owner",
	}

	info := toCalendarInfo(entry)
	if info.ID != "primary" || !info.Primary || info.AccessRole != "owner" {
		t.Errorf("toCalendarInfo = %+v", info)
	}
}

func TestEventTimes(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("timed event defaults to UTC", func(t *testing.T) {
		s, e := eventTimes(EventInput{Start: start, End: end})
		if s.DateTime != "2025-06-02T09:00:00Z" || s.TimeZone != "UTC" {
			t.Errorf("start = %+v", s)
		}
		if e.DateTime != "2025-06-02T10:00:00Z" {
			t.Errorf("end = %+v", e)
		}
		if s.Date != "" {
			t.Errorf("timed event should not set Date, got %q", s.Date)
		}
	})

	t.Run("timed event keeps zone", func(t *testing.T) {
		s, _ := eventTimes(EventInput{Start: start, End: end, TimeZone: "Europe/Berlin"})
		if s.TimeZone != "Europe/Berlin" {
			t.Errorf("TimeZone = %q", s.TimeZone)
		}
	})

	t.Run("all-day event uses Date", func(t *testing.T) {
		s, e := eventTimes(EventInput{Start: start, End: end, AllDay: true})
		if s.Date != "2025-06-02" || e.Date != "2025-06-02" {
			t.Errorf("start = %+v end = %+v", s, e)
		}
		if s.DateTime != "" {
			t.Errorf("all-day event should not set DateTime, got %q", s.DateTime)
		}
	})
}

func TestFindSlots(t *testing.T) {
	dayStart := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	t.Run("empty calendar is fully available", func(t *testing.T) {
		slots := findSlots(nil, 30*time.Minute, dayStart, dayEnd)
		if len(slots) == 0 {
			t.Fatal("expected slots in an empty window")
		}
		if !slots[0].Start.Equal(dayStart) {
			t.Errorf("first slot = %v, want %v", slots[0].Start, dayStart)
		}
	})

	t.Run("busy block is skipped", func(t *testing.T) {
		busy := []TimeRange{
			{Start: dayStart, End: dayStart.Add(90 * time.Minute)}, // 9:00-10:30
		}
		slots := findSlots(busy, time.Hour, dayStart, dayEnd)
		if len(slots) == 0 {
			t.Fatal("expected slots after the busy block")
		}
		if !slots[0].Start.Equal(dayStart.Add(90 * time.Minute)) {
			t.Errorf("first slot = %v, want 10:30", slots[0].Start)
		}
	})

	t.Run("no room for the duration", func(t *testing.T) {
		busy := []TimeRange{
			{Start: dayStart, End: dayEnd.Add(-30 * time.Minute)},
		}
		slots := findSlots(busy, time.Hour, dayStart, dayEnd)
		if len(slots) != 0 {
			t.Errorf("expected no slots, got %d", len(slots))
		}
	})

	t.Run("slot smaller than window fits exactly", func(t *testing.T) {
		slots := findSlots(nil, 3*time.Hour, dayStart, dayEnd)
		if len(slots) != 1 {
			t.Fatalf("expected exactly one slot, got %d", len(slots))
		}
		if !slots[0].End.Equal(dayEnd) {
			t.Errorf("slot end = %v, want %v", slots[0].End, dayEnd)
		}
	})
}
