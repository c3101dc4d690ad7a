package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/resource-booker/internal/availability"
)

var (
	// ErrNotFound is returned when the named user, resource, or booking does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrDuplicateName is returned when a create or rename target name is already taken.
	ErrDuplicateName = errors.New("application: name already exists")
	// ErrUnknownUser is returned when a referenced user is not registered.
	ErrUnknownUser = errors.New("application: unknown user")
	// ErrUnknownResource is returned when a referenced resource is not registered.
	ErrUnknownResource = errors.New("application: unknown resource")
	// ErrAuthFailed is returned when the supplied secret never matched the stored one.
	ErrAuthFailed = errors.New("application: authentication failed")
	// ErrResourceUnavailable is returned when booking a resource whose availability flag is off.
	ErrResourceUnavailable = errors.New("application: resource unavailable")
	// ErrInvalidRange is returned when a booking does not end strictly after it starts.
	ErrInvalidRange = errors.New("application: end date must be after start date")
	// ErrPastDate is returned when a booking starts before today.
	ErrPastDate = errors.New("application: start date is in the past")
	// ErrDateConflict is returned when a booking range overlaps another booking on the same resource.
	ErrDateConflict = errors.New("application: dates already booked")
	// ErrAbandoned is returned when the operator cancels an operation before it commits.
	ErrAbandoned = errors.New("application: operation abandoned")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// DateConflictError lists the bookings a candidate range collides with.
type DateConflictError struct {
	Resource  string
	Conflicts []availability.Conflict
}

func (e *DateConflictError) Error() string {
	names := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		names = append(names, c.WithBooking)
	}
	if len(names) == 0 {
		return fmt.Sprintf("%s: %s", ErrDateConflict, e.Resource)
	}
	return fmt.Sprintf("%s: %s overlaps %s", ErrDateConflict, e.Resource, strings.Join(names, ", "))
}

// Is makes errors.Is(err, ErrDateConflict) hold.
func (e *DateConflictError) Is(target error) bool {
	return target == ErrDateConflict
}
