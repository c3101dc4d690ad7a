package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrSnapshotMissing is returned by a Backend when no snapshot has been written for a collection.
	ErrSnapshotMissing = errors.New("persistence: snapshot missing")
	// ErrUnknownCollection is returned for a collection name outside users, resources, and bookings.
	ErrUnknownCollection = errors.New("persistence: unknown collection")
	// ErrDuplicate is returned when a backend rejects a write for a uniqueness violation.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a backend rejects a write for any other constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrLocked is returned when the backing database stayed locked through every retry.
	ErrLocked = errors.New("persistence: database locked")
)
