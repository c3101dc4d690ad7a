package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/resource-booker/internal/availability"
	"github.com/example/resource-booker/internal/calendar"
	"github.com/example/resource-booker/internal/persistence"
)

// ReservationService creates, edits, and deletes bookings while keeping each
// resource's booked dates equal to the union of its booking ranges.
type ReservationService struct {
	store EntityStore
	auth  *Authenticator
	now   func() time.Time
	instrument
}

// NewReservationService wires dependencies for the reservation service.
func NewReservationService(store EntityStore, auth *Authenticator, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(store, auth, idGenerator, now, nil)
}

// NewReservationServiceWithLogger wires dependencies for the reservation service with a specific logger.
// now decides "today"; its location is the calendar the service works in.
func NewReservationServiceWithLogger(store EntityStore, auth *Authenticator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if auth == nil {
		auth = NewAuthenticator(DefaultMaxAuthAttempts)
	}
	return &ReservationService{
		store: store,
		auth:  auth,
		now:   now,
		instrument: instrument{
			service:     "ReservationService",
			logger:      defaultLogger(logger),
			idGenerator: idGenerator,
		},
	}
}

// WithMetrics attaches a metrics recorder.
func (s *ReservationService) WithMetrics(metrics MetricsRecorder) *ReservationService {
	s.metrics = metrics
	return s
}

func (s *ReservationService) today() calendar.Date {
	return calendar.DateOf(s.now())
}

// CreateBooking reserves a resource for an inclusive date range. Checks run in
// a fixed order and the first failure is returned: duplicate name, owner,
// secret, resource, availability, range, past start, overlapping dates.
func (s *ReservationService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		return Booking{}, fmt.Errorf("ReservationService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "CreateBooking",
		"booking", params.Name,
		"owner", params.Owner,
		"resource", params.Resource,
	)
	defer func() {
		s.observe("CreateBooking", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking created",
			"start_date", booking.StartDate.String(),
			"end_date", booking.EndDate.String(),
		)
	}()

	vErr := &ValidationError{}
	requireName(vErr, "name", params.Name)
	requireName(vErr, "owner", params.Owner)
	requireName(vErr, "resource", params.Resource)
	if params.StartDate.IsZero() {
		vErr.add("start_date", "must be set")
	}
	if params.EndDate.IsZero() {
		vErr.add("end_date", "must be set")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}

	if _, exists := state.Bookings[params.Name]; exists {
		err = ErrDuplicateName
		return
	}
	owner, ok := state.Users[params.Owner]
	if !ok {
		err = ErrUnknownUser
		return
	}
	if err = s.auth.Verify(ctx, params.Owner, owner.Password, params.Secret); err != nil {
		return
	}
	resource, ok := state.Resources[params.Resource]
	if !ok {
		err = ErrUnknownResource
		return
	}
	if !resource.Available {
		err = ErrResourceUnavailable
		return
	}

	span := calendar.NewRange(params.StartDate, params.EndDate)
	if !span.Valid() {
		err = ErrInvalidRange
		return
	}
	if span.Start.Before(s.today()) {
		err = ErrPastDate
		return
	}

	candidate := availability.Booking{Name: params.Name, Resource: params.Resource, Range: span}
	if conflicts := bookingIndex(state.Bookings).Conflicts(candidate, nil); len(conflicts) > 0 {
		err = &DateConflictError{Resource: params.Resource, Conflicts: conflicts}
		return
	}

	record := persistence.Booking{
		Owner:     params.Owner,
		Resource:  params.Resource,
		StartDate: span.Start,
		EndDate:   span.End,
	}
	state.Bookings[params.Name] = record
	claimRange(state, params.Resource, span)

	if err = commitState(ctx, s.store, state, persistence.CollectionResources, persistence.CollectionBookings); err != nil {
		return
	}
	booking = toBooking(params.Name, record)
	return
}

// EditBooking renames, moves, shrinks, or extends a booking. Dates inside the
// booking's own prior range on the same resource are always allowed, even once
// they are in the past; any other date must be free of every other booking and
// a start outside the prior range must not be before today.
func (s *ReservationService) EditBooking(ctx context.Context, params EditBookingParams) (booking Booking, err error) {
	if s == nil {
		return Booking{}, fmt.Errorf("ReservationService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "EditBooking", "booking", params.Name)
	defer func() {
		s.observe("EditBooking", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking edited",
			"new_name", booking.Name,
			"resource", booking.Resource,
			"start_date", booking.StartDate.String(),
			"end_date", booking.EndDate.String(),
		)
	}()

	if params.NewName != nil && *params.NewName == "" {
		err = &ValidationError{FieldErrors: map[string]string{"new_name": "must not be empty"}}
		return
	}

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}

	current, ok := state.Bookings[params.Name]
	if !ok {
		err = ErrNotFound
		return
	}
	owner, ok := state.Users[current.Owner]
	if !ok {
		err = ErrUnknownUser
		return
	}
	if err = s.auth.Verify(ctx, current.Owner, owner.Password, params.Secret); err != nil {
		return
	}

	name := params.Name
	if params.NewName != nil && *params.NewName != params.Name {
		if _, exists := state.Bookings[*params.NewName]; exists {
			err = ErrDuplicateName
			return
		}
		name = *params.NewName
	}

	target := current.Resource
	if params.NewResource != nil {
		target = *params.NewResource
	}
	resource, ok := state.Resources[target]
	if !ok {
		err = ErrUnknownResource
		return
	}
	moving := target != current.Resource
	if moving && !resource.Available {
		err = ErrResourceUnavailable
		return
	}

	span := current.Range()
	if params.NewStart != nil {
		span.Start = *params.NewStart
	}
	if params.NewEnd != nil {
		span.End = *params.NewEnd
	}
	if !span.Valid() {
		err = ErrInvalidRange
		return
	}
	ownStart := !moving && current.Range().Contains(span.Start)
	if !ownStart && span.Start.Before(s.today()) {
		err = ErrPastDate
		return
	}

	var exempt *calendar.Range
	if !moving {
		prior := current.Range()
		exempt = &prior
	}
	candidate := availability.Booking{Name: params.Name, Resource: target, Range: span}
	if conflicts := bookingIndex(state.Bookings).Conflicts(candidate, exempt); len(conflicts) > 0 {
		err = &DateConflictError{Resource: target, Conflicts: conflicts}
		return
	}

	removeBookings(state, params.Name)
	record := persistence.Booking{
		Owner:     current.Owner,
		Resource:  target,
		StartDate: span.Start,
		EndDate:   span.End,
	}
	state.Bookings[name] = record
	claimRange(state, target, span)

	if err = commitState(ctx, s.store, state, persistence.CollectionResources, persistence.CollectionBookings); err != nil {
		return
	}
	booking = toBooking(name, record)
	return
}

// DeleteBooking removes a booking and releases its dates.
func (s *ReservationService) DeleteBooking(ctx context.Context, params DeleteBookingParams) (err error) {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "DeleteBooking", "booking", params.Name)
	defer func() {
		s.observe("DeleteBooking", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}
	current, ok := state.Bookings[params.Name]
	if !ok {
		err = ErrNotFound
		return
	}
	owner, ok := state.Users[current.Owner]
	if !ok {
		err = ErrUnknownUser
		return
	}
	if err = s.auth.Verify(ctx, current.Owner, owner.Password, params.Secret); err != nil {
		return
	}

	removeBookings(state, params.Name)
	err = commitState(ctx, s.store, state, persistence.CollectionResources, persistence.CollectionBookings)
	return
}

// GetBooking returns a booking by name.
func (s *ReservationService) GetBooking(ctx context.Context, name string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("ReservationService is nil")
	}
	state, err := loadState(ctx, s.store)
	if err != nil {
		return Booking{}, err
	}
	record, ok := state.Bookings[name]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return toBooking(name, record), nil
}

// ListBookings returns bookings matching filter ordered by start date, then name.
func (s *ReservationService) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	state, err := loadState(ctx, s.store)
	if err != nil {
		s.loggerWith(ctx, "ListBookings").ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := make([]Booking, 0, len(state.Bookings))
	for name, record := range state.Bookings {
		if filter.Owner != "" && record.Owner != filter.Owner {
			continue
		}
		if filter.Resource != "" && record.Resource != filter.Resource {
			continue
		}
		out = append(out, toBooking(name, record))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].Name < out[j].Name
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

// VerifyAvailability compares every resource's stored booked dates with the
// dates its bookings cover and lists bookings whose owner or resource is missing.
func (s *ReservationService) VerifyAvailability(ctx context.Context) (AvailabilityReport, error) {
	return s.checkAvailability(ctx, false)
}

// RepairAvailability is VerifyAvailability followed by rewriting every
// resource's booked dates from its bookings when drift was found.
func (s *ReservationService) RepairAvailability(ctx context.Context) (AvailabilityReport, error) {
	return s.checkAvailability(ctx, true)
}

func (s *ReservationService) checkAvailability(ctx context.Context, repair bool) (report AvailabilityReport, err error) {
	if s == nil {
		return AvailabilityReport{}, fmt.Errorf("ReservationService is nil")
	}

	operation := "VerifyAvailability"
	if repair {
		operation = "RepairAvailability"
	}
	started := time.Now()
	logger := s.loggerWith(ctx, operation)
	defer func() {
		s.observe(operation, started, err)
		if err != nil {
			logger.ErrorContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability checked",
			"drifted_resources", len(report.Drift),
			"dangling_bookings", len(report.Dangling),
			"repaired", report.Repaired,
		)
	}()

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}

	stored := make(map[string]calendar.Set, len(state.Resources))
	names := make([]string, 0, len(state.Resources))
	for name, r := range state.Resources {
		stored[name] = r.Days()
		names = append(names, name)
	}
	views := make([]availability.Booking, 0, len(state.Bookings))
	for name, b := range state.Bookings {
		views = append(views, availability.Booking{Name: name, Resource: b.Resource, Range: b.Range()})
	}
	report.Drift = availability.Verify(stored, views)

	for _, name := range bookingsWhere(state.Bookings, func(persistence.Booking) bool { return true }) {
		b := state.Bookings[name]
		_, ownerKnown := state.Users[b.Owner]
		_, resourceKnown := state.Resources[b.Resource]
		if !ownerKnown || !resourceKnown {
			report.Dangling = append(report.Dangling, DanglingBooking{
				Booking:         name,
				MissingOwner:    !ownerKnown,
				MissingResource: !resourceKnown,
			})
		}
	}

	if !repair || len(report.Drift) == 0 {
		return
	}
	for name, days := range availability.Rebuild(names, views) {
		state.Resources[name] = state.Resources[name].WithDays(days)
	}
	if err = commitState(ctx, s.store, state, persistence.CollectionResources); err != nil {
		return
	}
	report.Repaired = true
	return
}
