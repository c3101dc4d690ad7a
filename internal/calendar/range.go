package calendar

import "fmt"

// Range is an inclusive span of calendar dates.
type Range struct {
	Start Date
	End   Date
}

// NewRange builds a Range from its bounds without validating them.
func NewRange(start, end Date) Range {
	return Range{Start: start, End: end}
}

// Valid reports whether the range ends strictly after it starts.
func (r Range) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.End.After(r.Start)
}

// Contains reports whether d lies within the range, both ends included.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether the two ranges share at least one date.
func (r Range) Overlaps(other Range) bool {
	return !r.End.Before(other.Start) && !other.End.Before(r.Start)
}

// Len returns the number of days in the range, or zero when End precedes Start.
func (r Range) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Time().Sub(r.Start.Time()).Hours()/24) + 1
}

// Days returns every date in the range in ascending order.
func (r Range) Days() []Date {
	n := r.Len()
	days := make([]Date, 0, n)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}
