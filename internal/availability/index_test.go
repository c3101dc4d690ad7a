package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resource-booker/internal/calendar"
)

func span(start, end string) calendar.Range {
	return calendar.NewRange(calendar.MustParseDate(start), calendar.MustParseDate(end))
}

func dates(values ...string) []calendar.Date {
	out := make([]calendar.Date, 0, len(values))
	for _, v := range values {
		out = append(out, calendar.MustParseDate(v))
	}
	return out
}

func TestDetectConflicts(t *testing.T) {
	existing := []Booking{
		{Name: "B1", Resource: "Room1", Range: span("2025-01-01", "2025-01-03")},
		{Name: "B2", Resource: "Room2", Range: span("2025-01-01", "2025-01-10")},
		{Name: "B3", Resource: "Room1", Range: span("2025-01-08", "2025-01-09")},
	}

	t.Run("shared endpoint produces conflict", func(t *testing.T) {
		candidate := Booking{Name: "B4", Resource: "Room1", Range: span("2025-01-03", "2025-01-05")}

		conflicts := DetectConflicts(existing, candidate, nil)

		require.Len(t, conflicts, 1)
		assert.Equal(t, "B1", conflicts[0].WithBooking)
		assert.Equal(t, dates("2025-01-03"), conflicts[0].Dates)
	})

	t.Run("other resources are ignored", func(t *testing.T) {
		candidate := Booking{Name: "B4", Resource: "Room1", Range: span("2025-01-04", "2025-01-07")}
		assert.Empty(t, DetectConflicts(existing, candidate, nil))
	})

	t.Run("candidate spanning two bookings reports both", func(t *testing.T) {
		candidate := Booking{Name: "B4", Resource: "Room1", Range: span("2025-01-02", "2025-01-08")}

		conflicts := NewIndex(existing).Conflicts(candidate, nil)

		require.Len(t, conflicts, 2)
		assert.Equal(t, "B1", conflicts[0].WithBooking)
		assert.Equal(t, "B3", conflicts[1].WithBooking)
	})

	t.Run("booking never conflicts with itself", func(t *testing.T) {
		candidate := Booking{Name: "B1", Resource: "Room1", Range: span("2025-01-02", "2025-01-04")}
		assert.Empty(t, DetectConflicts(existing, candidate, nil))
	})

	t.Run("exempt dates are skipped", func(t *testing.T) {
		exempt := span("2025-01-03", "2025-01-03")
		candidate := Booking{Name: "B4", Resource: "Room1", Range: span("2025-01-03", "2025-01-05")}
		assert.Empty(t, DetectConflicts(existing, candidate, &exempt))
	})
}

func TestIndexOccupied(t *testing.T) {
	idx := NewIndex([]Booking{
		{Name: "B1", Resource: "Room1", Range: span("2025-01-01", "2025-01-03")},
		{Name: "B2", Resource: "Room1", Range: span("2025-01-05", "2025-01-06")},
		{Name: "B3", Resource: "Room2", Range: span("2025-01-01", "2025-01-02")},
	})

	assert.Equal(t, dates("2025-01-01", "2025-01-02", "2025-01-03", "2025-01-05", "2025-01-06"), idx.Occupied("Room1").Sorted())
	assert.Equal(t, dates("2025-01-01", "2025-01-02"), idx.Occupied("Room2").Sorted())
	assert.Equal(t, 0, idx.Occupied("Room3").Len())
}

func TestIndexRelease(t *testing.T) {
	bookings := []Booking{
		{Name: "B1", Resource: "Room1", Range: span("2025-01-01", "2025-01-03")},
		{Name: "B2", Resource: "Room1", Range: span("2025-01-05", "2025-01-06")},
	}
	idx := NewIndex(bookings)
	stored := idx.Occupied("Room1")

	// A date claimed twice through external edits stays covered by B2.
	released := idx.Release(stored, "Room1", "B1", span("2025-01-01", "2025-01-05"))

	assert.Equal(t, dates("2025-01-05", "2025-01-06"), released.Sorted())
	assert.Equal(t, 5, stored.Len(), "input set must not be modified")
}

func TestDateInRange(t *testing.T) {
	start := calendar.MustParseDate("2025-01-01")
	end := calendar.MustParseDate("2025-01-03")

	assert.True(t, DateInRange(start, start, end))
	assert.True(t, DateInRange(end, start, end))
	assert.False(t, DateInRange(end.AddDays(1), start, end))
	assert.False(t, DateInRange(start.AddDays(-1), start, end))
}

func TestVerifyAndRebuild(t *testing.T) {
	bookings := []Booking{
		{Name: "B1", Resource: "Room1", Range: span("2025-01-01", "2025-01-02")},
	}
	stored := map[string]calendar.Set{
		"Room1": calendar.NewSet(dates("2025-01-02", "2025-01-09")...),
		"Room2": calendar.NewSet(),
	}

	drift := Verify(stored, bookings)

	require.Len(t, drift, 1)
	assert.Equal(t, "Room1", drift[0].Resource)
	assert.Equal(t, dates("2025-01-01"), drift[0].Missing)
	assert.Equal(t, dates("2025-01-09"), drift[0].Extra)

	rebuilt := Rebuild([]string{"Room1", "Room2"}, bookings)
	assert.Equal(t, dates("2025-01-01", "2025-01-02"), rebuilt["Room1"].Sorted())
	assert.Equal(t, 0, rebuilt["Room2"].Len())

	stored["Room1"] = rebuilt["Room1"]
	assert.Empty(t, Verify(stored, bookings))
}
