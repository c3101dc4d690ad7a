package persistence

import (
	"github.com/example/resource-booker/internal/calendar"
)

// User is a registered person. The map key of the users collection is the user name.
type User struct {
	FullName *string `json:"full_name"`
	Password string  `json:"password"`
}

// Resource is a bookable thing. The map key of the resources collection is the resource name.
type Resource struct {
	Description *string         `json:"description"`
	Available   bool            `json:"available"`
	Owner       *string         `json:"owner"`
	DaysBooked  []calendar.Date `json:"days_booked"`
}

// Booking reserves a resource for an inclusive date range. The map key of the
// bookings collection is the booking name.
type Booking struct {
	Owner     string        `json:"owner"`
	Resource  string        `json:"resource"`
	StartDate calendar.Date `json:"start_date"`
	EndDate   calendar.Date `json:"end_date"`
}

// Range returns the booking's inclusive date range.
func (b Booking) Range() calendar.Range {
	return calendar.NewRange(b.StartDate, b.EndDate)
}

// Days returns the resource's booked dates as a set.
func (r Resource) Days() calendar.Set {
	return calendar.NewSet(r.DaysBooked...)
}

// WithDays returns a copy of r whose booked dates are the sorted contents of days.
func (r Resource) WithDays(days calendar.Set) Resource {
	r.DaysBooked = days.Sorted()
	return r
}

// State is one consistent observation of all three collections.
type State struct {
	Users     map[string]User
	Resources map[string]Resource
	Bookings  map[string]Booking
}

// NewState returns a State with empty, non-nil collections.
func NewState() State {
	return State{
		Users:     make(map[string]User),
		Resources: make(map[string]Resource),
		Bookings:  make(map[string]Booking),
	}
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (s State) Clone() State {
	out := State{
		Users:     make(map[string]User, len(s.Users)),
		Resources: make(map[string]Resource, len(s.Resources)),
		Bookings:  make(map[string]Booking, len(s.Bookings)),
	}
	for name, u := range s.Users {
		out.Users[name] = cloneUser(u)
	}
	for name, r := range s.Resources {
		out.Resources[name] = cloneResource(r)
	}
	for name, b := range s.Bookings {
		out.Bookings[name] = b
	}
	return out
}

func cloneUser(u User) User {
	u.FullName = cloneString(u.FullName)
	return u
}

func cloneResource(r Resource) Resource {
	r.Description = cloneString(r.Description)
	r.Owner = cloneString(r.Owner)
	if r.DaysBooked != nil {
		days := make([]calendar.Date, len(r.DaysBooked))
		copy(days, r.DaysBooked)
		r.DaysBooked = days
	}
	return r
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
