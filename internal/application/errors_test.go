package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/resource-booker/internal/availability"
	"github.com/example/resource-booker/internal/calendar"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if got := err.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for nil error, got %q", got)
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"owner": "must not be empty", "name": "must not be empty"}}
	want := "validation failed: name: must not be empty; owner: must not be empty"
	if got := withFields.Error(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_Add(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}
}

func TestDateConflictError(t *testing.T) {
	t.Parallel()

	err := &DateConflictError{
		Resource: "Room1",
		Conflicts: []availability.Conflict{
			{WithBooking: "B1", Dates: []calendar.Date{calendar.MustParseDate("2025-01-03")}},
		},
	}
	wrapped := fmt.Errorf("create: %w", err)

	if !errors.Is(wrapped, ErrDateConflict) {
		t.Fatalf("expected wrapped conflict to match ErrDateConflict")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("conflict must not match unrelated sentinels")
	}
	if got := err.Error(); got != "application: dates already booked: Room1 overlaps B1" {
		t.Fatalf("unexpected message %q", got)
	}
}
