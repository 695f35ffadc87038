package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeIsTotal(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rec := func(start, end time.Time) Record {
		return Record{StartTime: start, EndTime: end}
	}

	tests := []struct {
		name string
		e    Record
		want Category
	}{
		{"before start", rec(now.Add(time.Hour), now.Add(2*time.Hour)), Upcoming},
		{"at start", rec(now, now.Add(time.Hour)), Ongoing},
		{"mid event", rec(now.Add(-time.Hour), now.Add(time.Hour)), Ongoing},
		{"at end", rec(now.Add(-time.Hour), now), Ongoing},
		{"after end", rec(now.Add(-2*time.Hour), now.Add(-time.Hour)), Past},
		{"start equals end, now there", rec(now, now), Ongoing},
		{"start equals end, now past", rec(now.Add(-time.Minute), now.Add(-time.Minute)), Past},
		{"end before start, now between", rec(now.Add(-time.Hour), now.Add(-2*time.Hour)), Past},
		{"end before start, now before both", rec(now.Add(2*time.Hour), now.Add(time.Hour)), Upcoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.e, now))
		})
	}
}

func TestCanClockIn(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ongoing := Record{
		StartTime:        now.Add(-time.Hour),
		EndTime:          now.Add(time.Hour),
		AttendanceStatus: StatusPending,
	}

	assert.True(t, CanClockIn(ongoing, now))

	marked := ongoing
	marked.AttendanceStatus = StatusPresent
	assert.False(t, CanClockIn(marked, now))

	upcoming := ongoing
	upcoming.StartTime = now.Add(time.Minute)
	assert.False(t, CanClockIn(upcoming, now))

	past := ongoing
	past.StartTime = now.Add(-2 * time.Hour)
	past.EndTime = now.Add(-time.Hour)
	assert.False(t, CanClockIn(past, now))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusPresent, ParseStatus("present"))
	assert.Equal(t, StatusLate, ParseStatus("late"))
	assert.Equal(t, StatusAbsent, ParseStatus("absent"))
	assert.Equal(t, StatusPending, ParseStatus("pending"))
	assert.Equal(t, StatusPending, ParseStatus(""))
	assert.Equal(t, StatusPending, ParseStatus("excused"))
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "Upcoming", Upcoming.String())
	assert.Equal(t, "Ongoing", Ongoing.String())
	assert.Equal(t, "Past", Past.String())
}
