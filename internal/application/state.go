package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/example/resource-booker/internal/availability"
	"github.com/example/resource-booker/internal/calendar"
	"github.com/example/resource-booker/internal/persistence"
)

// loadState reloads every collection and returns a private copy to mutate.
func loadState(ctx context.Context, store EntityStore) (persistence.State, error) {
	if store == nil {
		return persistence.State{}, fmt.Errorf("entity store not configured")
	}
	state, err := store.Load(ctx)
	if err != nil {
		return persistence.State{}, mapContextError(err)
	}
	return state.Clone(), nil
}

// commitState checks for cancellation and flushes the named collections.
func commitState(ctx context.Context, store EntityStore, state persistence.State, collections ...persistence.Collection) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAbandoned, err)
	}
	if err := store.Commit(ctx, state, collections...); err != nil {
		return mapContextError(err)
	}
	return nil
}

func mapContextError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrAbandoned, err)
	}
	return err
}

func bookingIndex(bookings map[string]persistence.Booking) *availability.Index {
	views := make([]availability.Booking, 0, len(bookings))
	for name, b := range bookings {
		views = append(views, availability.Booking{Name: name, Resource: b.Resource, Range: b.Range()})
	}
	return availability.NewIndex(views)
}

// claimRange adds r to the resource's booked dates.
func claimRange(state persistence.State, resource string, r calendar.Range) {
	res, ok := state.Resources[resource]
	if !ok {
		return
	}
	days := res.Days()
	days.AddRange(r)
	state.Resources[resource] = res.WithDays(days)
}

// removeBookings deletes the named bookings and releases their ranges, keeping
// dates that a remaining booking on the same resource still covers.
func removeBookings(state persistence.State, names ...string) {
	released := make(map[string][]calendar.Range)
	for _, name := range names {
		b, ok := state.Bookings[name]
		if !ok {
			continue
		}
		released[b.Resource] = append(released[b.Resource], b.Range())
		delete(state.Bookings, name)
	}

	idx := bookingIndex(state.Bookings)
	for resource, ranges := range released {
		res, ok := state.Resources[resource]
		if !ok {
			continue
		}
		days := res.Days()
		for _, r := range ranges {
			days = idx.Release(days, resource, "", r)
		}
		state.Resources[resource] = res.WithDays(days)
	}
}

// bookingsWhere returns the sorted names of bookings matching keep.
func bookingsWhere(bookings map[string]persistence.Booking, keep func(persistence.Booking) bool) []string {
	var names []string
	for name, b := range bookings {
		if keep(b) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func requireName(vErr *ValidationError, field, value string) {
	if value == "" {
		vErr.add(field, "must not be empty")
	}
}

func strPtr(s string) *string {
	return &s
}

func sameOwner(owner *string, name string) bool {
	return owner != nil && *owner == name
}
