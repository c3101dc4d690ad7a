package calendar

import "sort"

// Set is an unordered collection of dates. The zero value is ready to use
// for reads; use NewSet or Add to populate it.
type Set struct {
	days map[Date]struct{}
}

// NewSet returns a set containing the given dates.
func NewSet(days ...Date) Set {
	s := Set{days: make(map[Date]struct{}, len(days))}
	for _, d := range days {
		s.days[d] = struct{}{}
	}
	return s
}

// Add inserts d.
func (s *Set) Add(d Date) {
	if s.days == nil {
		s.days = make(map[Date]struct{})
	}
	s.days[d] = struct{}{}
}

// AddRange inserts every date of r.
func (s *Set) AddRange(r Range) {
	for _, d := range r.Days() {
		s.Add(d)
	}
}

// Remove deletes d when present.
func (s *Set) Remove(d Date) {
	delete(s.days, d)
}

// RemoveRange deletes every date of r.
func (s *Set) RemoveRange(r Range) {
	for _, d := range r.Days() {
		delete(s.days, d)
	}
}

// Has reports whether d is in the set.
func (s Set) Has(d Date) bool {
	_, ok := s.days[d]
	return ok
}

// Len returns the number of dates.
func (s Set) Len() int {
	return len(s.days)
}

// Sorted returns the dates in ascending order.
func (s Set) Sorted() []Date {
	out := make([]Date, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := Set{days: make(map[Date]struct{}, len(s.days))}
	for d := range s.days {
		out.days[d] = struct{}{}
	}
	return out
}

// Difference returns the dates of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := Set{days: make(map[Date]struct{})}
	for d := range s.days {
		if !other.Has(d) {
			out.days[d] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold exactly the same dates.
func (s Set) Equal(other Set) bool {
	if len(s.days) != len(other.days) {
		return false
	}
	for d := range s.days {
		if !other.Has(d) {
			return false
		}
	}
	return true
}
