package availability

import (
	"sort"

	"github.com/example/resource-booker/internal/calendar"
)

// Drift describes a resource whose stored dates disagree with its bookings.
type Drift struct {
	Resource string `json:"resource"`
	// Missing dates are covered by a booking but absent from the stored set.
	Missing []calendar.Date `json:"missing"`
	// Extra dates are stored but covered by no booking.
	Extra []calendar.Date `json:"extra"`
}

// Verify compares the stored date set of every resource with the set derived
// from bookings. Resources are reported in name order.
func Verify(stored map[string]calendar.Set, bookings []Booking) []Drift {
	idx := NewIndex(bookings)

	names := make([]string, 0, len(stored))
	for name := range stored {
		names = append(names, name)
	}
	sort.Strings(names)

	var drift []Drift
	for _, name := range names {
		have := stored[name]
		want := idx.Occupied(name)
		if have.Equal(want) {
			continue
		}
		drift = append(drift, Drift{
			Resource: name,
			Missing:  want.Difference(have).Sorted(),
			Extra:    have.Difference(want).Sorted(),
		})
	}
	return drift
}

// Rebuild derives the date set of each named resource from bookings.
func Rebuild(resources []string, bookings []Booking) map[string]calendar.Set {
	idx := NewIndex(bookings)
	out := make(map[string]calendar.Set, len(resources))
	for _, name := range resources {
		out[name] = idx.Occupied(name)
	}
	return out
}
