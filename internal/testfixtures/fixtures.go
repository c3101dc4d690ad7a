package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/resource-booker/internal/calendar"
	"github.com/example/resource-booker/internal/persistence"
)

var (
	userCounter     uint64
	resourceCounter uint64
	bookingCounter  uint64
)

var referenceTime = time.Date(2024, time.December, 31, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record.
type UserFixture struct {
	Name     string
	FullName *string
	Password string
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fullName := fmt.Sprintf("User %03d", idx)
	fixture := UserFixture{
		Name:     fmt.Sprintf("user-%03d", idx),
		FullName: &fullName,
		Password: fmt.Sprintf("secret-%03d", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserName overrides the generated user name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserFullName overrides the generated full name. Nil clears it.
func WithUserFullName(fullName *string) UserOption {
	return func(f *UserFixture) {
		f.FullName = fullName
	}
}

// WithUserPassword overrides the generated secret.
func WithUserPassword(password string) UserOption {
	return func(f *UserFixture) {
		f.Password = password
	}
}

// Record converts the fixture into its stored form.
func (f UserFixture) Record() persistence.User {
	return persistence.User{FullName: f.FullName, Password: f.Password}
}

// --------------------------- Resource fixtures ---------------------------

// ResourceFixture represents a deterministic resource record.
type ResourceFixture struct {
	Name        string
	Description *string
	Available   bool
	Owner       *string
	DaysBooked  []calendar.Date
}

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns an available, unowned resource with no booked dates.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	description := fmt.Sprintf("Resource %03d", idx)
	fixture := ResourceFixture{
		Name:        fmt.Sprintf("resource-%03d", idx),
		Description: &description,
		Available:   true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResourceName overrides the generated resource name.
func WithResourceName(name string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Name = name
	}
}

// WithResourceAvailable sets the availability flag.
func WithResourceAvailable(available bool) ResourceOption {
	return func(f *ResourceFixture) {
		f.Available = available
	}
}

// WithResourceOwner sets the owning user.
func WithResourceOwner(owner string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Owner = &owner
	}
}

// WithResourceDaysBooked sets the stored booked dates without adding bookings.
func WithResourceDaysBooked(days ...calendar.Date) ResourceOption {
	return func(f *ResourceFixture) {
		f.DaysBooked = append(make([]calendar.Date, 0, len(days)), days...)
	}
}

// Record converts the fixture into its stored form.
func (f ResourceFixture) Record() persistence.Resource {
	days := f.DaysBooked
	if days == nil {
		days = []calendar.Date{}
	}
	return persistence.Resource{
		Description: f.Description,
		Available:   f.Available,
		Owner:       f.Owner,
		DaysBooked:  days,
	}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking record.
type BookingFixture struct {
	Name     string
	Owner    string
	Resource string
	Start    calendar.Date
	End      calendar.Date
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a two-day booking starting the day after ReferenceTime.
func NewBookingFixture(owner, resource string, opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	start := calendar.DateOf(referenceTime).AddDays(1)
	fixture := BookingFixture{
		Name:     fmt.Sprintf("booking-%03d", idx),
		Owner:    owner,
		Resource: resource,
		Start:    start,
		End:      start.AddDays(1),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingName overrides the generated booking name.
func WithBookingName(name string) BookingOption {
	return func(f *BookingFixture) {
		f.Name = name
	}
}

// WithBookingDates sets the inclusive range from ISO dates.
func WithBookingDates(start, end string) BookingOption {
	return func(f *BookingFixture) {
		f.Start = calendar.MustParseDate(start)
		f.End = calendar.MustParseDate(end)
	}
}

// Record converts the fixture into its stored form.
func (f BookingFixture) Record() persistence.Booking {
	return persistence.Booking{Owner: f.Owner, Resource: f.Resource, StartDate: f.Start, EndDate: f.End}
}

// ------------------------------- Seeding -------------------------------

// Dataset groups fixtures to be committed together.
type Dataset struct {
	Users     []UserFixture
	Resources []ResourceFixture
	Bookings  []BookingFixture
}

// State converts the dataset into a persistence.State. Each booking's range is
// merged into its resource's booked dates unless the resource fixture set them
// explicitly.
func (d Dataset) State() persistence.State {
	state := persistence.NewState()
	explicit := make(map[string]bool)
	for _, u := range d.Users {
		state.Users[u.Name] = u.Record()
	}
	for _, r := range d.Resources {
		state.Resources[r.Name] = r.Record()
		explicit[r.Name] = r.DaysBooked != nil
	}
	for _, b := range d.Bookings {
		state.Bookings[b.Name] = b.Record()
		res, ok := state.Resources[b.Resource]
		if !ok || explicit[b.Resource] {
			continue
		}
		days := res.Days()
		days.AddRange(calendar.NewRange(b.Start, b.End))
		state.Resources[b.Resource] = res.WithDays(days)
	}
	return state
}

// Seed commits the dataset through store, failing the test on error.
func Seed(tb testing.TB, store *persistence.Store, d Dataset) {
	tb.Helper()
	if err := store.Commit(context.Background(), d.State(), persistence.Collections()...); err != nil {
		tb.Fatalf("failed to seed store: %v", err)
	}
}
