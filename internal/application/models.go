package application

import (
	"context"

	"github.com/example/resource-booker/internal/availability"
	"github.com/example/resource-booker/internal/calendar"
	"github.com/example/resource-booker/internal/persistence"
)

// EntityStore is the persistence surface every service works through.
type EntityStore interface {
	Load(ctx context.Context) (persistence.State, error)
	Commit(ctx context.Context, state persistence.State, collections ...persistence.Collection) error
}

// User is the public view of a registered user. Secrets are never exposed.
type User struct {
	Name     string
	FullName *string
}

// CreateUserParams registers a new user.
type CreateUserParams struct {
	Name     string
	FullName *string
	Password string
}

// UpdateUserParams changes a user's descriptive fields or secret.
type UpdateUserParams struct {
	Name          string
	FullName      *string
	ClearFullName bool
	NewPassword   *string
	Secret        SecretPrompt
}

// RenameUserParams moves a user to a new name.
type RenameUserParams struct {
	Name    string
	NewName string
	Secret  SecretPrompt
}

// DeleteUserParams removes a user. Owned resources pass to Replacement when set.
type DeleteUserParams struct {
	Name        string
	Replacement *string
	Secret      SecretPrompt
}

// DeleteUserResult reports what the cascade touched.
type DeleteUserResult struct {
	ReassignedResources []string
	RemovedBookings     []string
}

// Resource is the public view of a bookable resource.
type Resource struct {
	Name        string
	Description *string
	Available   bool
	Owner       *string
	DaysBooked  []calendar.Date
}

// CreateResourceParams registers a new resource. When Owner is set the
// owner's secret is required.
type CreateResourceParams struct {
	Name        string
	Description *string
	Available   bool
	Owner       *string
	Secret      SecretPrompt
}

// UpdateResourceParams changes a resource's descriptive fields, availability, or owner.
// Nil pointers leave the field unchanged.
type UpdateResourceParams struct {
	Name             string
	Description      *string
	ClearDescription bool
	Available        *bool
	Owner            *string
	ClearOwner       bool
	Secret           SecretPrompt
}

// RenameResourceParams moves a resource to a new name.
type RenameResourceParams struct {
	Name    string
	NewName string
	Secret  SecretPrompt
}

// DeleteResourceParams removes a resource and its bookings.
type DeleteResourceParams struct {
	Name   string
	Secret SecretPrompt
}

// DeleteResourceResult reports the bookings removed with the resource.
type DeleteResourceResult struct {
	RemovedBookings []string
}

// RenameResult reports how many references a rename rewrote.
type RenameResult struct {
	ResourcesUpdated int
	BookingsUpdated  int
}

// Booking is the public view of a reservation.
type Booking struct {
	Name      string
	Owner     string
	Resource  string
	StartDate calendar.Date
	EndDate   calendar.Date
}

// CreateBookingParams reserves Resource for [StartDate, EndDate] on behalf of Owner.
type CreateBookingParams struct {
	Name      string
	Owner     string
	Resource  string
	StartDate calendar.Date
	EndDate   calendar.Date
	Secret    SecretPrompt
}

// EditBookingParams changes a booking. Nil fields keep their current value.
type EditBookingParams struct {
	Name        string
	NewName     *string
	NewResource *string
	NewStart    *calendar.Date
	NewEnd      *calendar.Date
	Secret      SecretPrompt
}

// DeleteBookingParams removes a booking.
type DeleteBookingParams struct {
	Name   string
	Secret SecretPrompt
}

// BookingFilter narrows ListBookings. Empty fields match everything.
type BookingFilter struct {
	Owner    string
	Resource string
}

// DanglingBooking is a booking whose owner or resource is not registered.
type DanglingBooking struct {
	Booking         string `json:"booking"`
	MissingOwner    bool   `json:"missing_owner"`
	MissingResource bool   `json:"missing_resource"`
}

// AvailabilityReport is the result of checking stored booked dates against bookings.
type AvailabilityReport struct {
	Drift    []availability.Drift `json:"drift"`
	Dangling []DanglingBooking    `json:"dangling"`
	Repaired bool                 `json:"repaired"`
}

// Consistent reports whether nothing was found.
func (r AvailabilityReport) Consistent() bool {
	return len(r.Drift) == 0 && len(r.Dangling) == 0
}

func toUser(name string, u persistence.User) User {
	return User{Name: name, FullName: u.FullName}
}

func toResource(name string, r persistence.Resource) Resource {
	return Resource{
		Name:        name,
		Description: r.Description,
		Available:   r.Available,
		Owner:       r.Owner,
		DaysBooked:  r.Days().Sorted(),
	}
}

func toBooking(name string, b persistence.Booking) Booking {
	return Booking{Name: name, Owner: b.Owner, Resource: b.Resource, StartDate: b.StartDate, EndDate: b.EndDate}
}
