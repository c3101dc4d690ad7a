// Package availability derives each resource's committed dates from the
// bookings that reference it and detects date conflicts between bookings.
package availability

import (
	"sort"

	"github.com/example/resource-booker/internal/calendar"
)

// Booking is the view of a reservation the index needs.
type Booking struct {
	Name     string
	Resource string
	Range    calendar.Range
}

// Conflict details the overlap between a candidate and an existing booking.
type Conflict struct {
	WithBooking string
	Dates       []calendar.Date
}

// Index groups bookings by resource.
type Index struct {
	byResource map[string][]Booking
}

// NewIndex builds an index over the given bookings.
func NewIndex(bookings []Booking) *Index {
	idx := &Index{byResource: make(map[string][]Booking)}
	for _, b := range bookings {
		idx.byResource[b.Resource] = append(idx.byResource[b.Resource], b)
	}
	for resource := range idx.byResource {
		list := idx.byResource[resource]
		sort.Slice(list, func(i, j int) bool {
			if list[i].Range.Start.Equal(list[j].Range.Start) {
				return list[i].Name < list[j].Name
			}
			return list[i].Range.Start.Before(list[j].Range.Start)
		})
	}
	return idx
}

// Occupied returns the union of every booking range on resource.
func (i *Index) Occupied(resource string) calendar.Set {
	set := calendar.NewSet()
	for _, b := range i.byResource[resource] {
		set.AddRange(b.Range)
	}
	return set
}

// Conflicts reports every other booking on the candidate's resource whose
// range shares a date with the candidate. Dates inside exempt are ignored.
func (i *Index) Conflicts(candidate Booking, exempt *calendar.Range) []Conflict {
	return DetectConflicts(i.byResource[candidate.Resource], candidate, exempt)
}

// DetectConflicts identifies conflicts for the candidate booking against existing ones.
// A booking never conflicts with itself, and bookings on other resources are skipped.
func DetectConflicts(existing []Booking, candidate Booking, exempt *calendar.Range) []Conflict {
	var conflicts []Conflict
	for _, b := range existing {
		if b.Name == candidate.Name || b.Resource != candidate.Resource {
			continue
		}
		if !b.Range.Overlaps(candidate.Range) {
			continue
		}
		var dates []calendar.Date
		for _, d := range candidate.Range.Days() {
			if exempt != nil && exempt.Contains(d) {
				continue
			}
			if b.Range.Contains(d) {
				dates = append(dates, d)
			}
		}
		if len(dates) > 0 {
			conflicts = append(conflicts, Conflict{WithBooking: b.Name, Dates: dates})
		}
	}
	return conflicts
}

// DateInRange reports whether d lies in [start, end].
func DateInRange(d, start, end calendar.Date) bool {
	return calendar.NewRange(start, end).Contains(d)
}

// Release removes the released range from days, keeping any date that a
// booking other than the released one still covers on that resource.
func (i *Index) Release(days calendar.Set, resource, released string, r calendar.Range) calendar.Set {
	out := days.Clone()
	out.RemoveRange(r)
	for _, b := range i.byResource[resource] {
		if b.Name == released || !b.Range.Overlaps(r) {
			continue
		}
		for _, d := range b.Range.Days() {
			if r.Contains(d) {
				out.Add(d)
			}
		}
	}
	return out
}
