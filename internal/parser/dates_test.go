package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ref is a Wednesday.
var ref = time.Date(2025, 6, 4, 14, 30, 0, 0, time.UTC)

func TestResolveDate(t *testing.T) {
	tests := []struct {
		phrase string
		want   time.Time
	}{
		{"today", time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)},
		{"Tomorrow", time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)},
		{"friday", time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)},
		{"on friday", time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)},
		// Wednesday resolves to next week's Wednesday, never today.
		{"wednesday", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)},
		// "next friday" skips this week's Friday.
		{"next friday", time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)},
		// Monday of the following week.
		{"next week", time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},
		{"next month", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"in 3 days", time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)},
		{"in 1 day", time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
		{"in 2 weeks", time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)},
		{"2025-12-24", time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)},
		{"tomorrow at 3pm", time.Date(2025, 6, 5, 15, 0, 0, 0, time.UTC)},
		{"friday at 9:30am", time.Date(2025, 6, 6, 9, 30, 0, 0, time.UTC)},
		{"today at 12am", time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)},
		{"monday at 16:15", time.Date(2025, 6, 9, 16, 15, 0, 0, time.UTC)},
		{"at 5pm", time.Date(2025, 6, 4, 17, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, err := ResolveDate(tt.phrase, ref)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestResolveDateRFC3339(t *testing.T) {
	got, err := ResolveDate("2025-06-10T09:00:00Z", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), got.UTC())
}

func TestResolveDateErrors(t *testing.T) {
	for _, phrase := range []string{"", "someday", "the 3rd of never", "at 99pm"} {
		t.Run(phrase, func(t *testing.T) {
			_, err := ResolveDate(phrase, ref)
			assert.Error(t, err)
		})
	}
}

func TestDayRange(t *testing.T) {
	start, end := DayRange(ref)
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), end)
}
