package persistence

import "context"

// Collection names one of the three persisted snapshots.
type Collection string

const (
	CollectionUsers     Collection = "users"
	CollectionResources Collection = "resources"
	CollectionBookings  Collection = "bookings"
)

// Collections lists every collection in a stable order.
func Collections() []Collection {
	return []Collection{CollectionUsers, CollectionResources, CollectionBookings}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionUsers, CollectionResources, CollectionBookings:
		return true
	}
	return false
}

// Backend stores whole-collection snapshots.
type Backend interface {
	// ReadSnapshot returns the last written payload or ErrSnapshotMissing.
	ReadSnapshot(ctx context.Context, c Collection) ([]byte, error)
	// WriteSnapshots replaces every given collection. Transactional backends
	// apply all of them or none.
	WriteSnapshots(ctx context.Context, snapshots map[Collection][]byte) error
	Close() error
}
