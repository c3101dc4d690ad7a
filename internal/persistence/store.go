package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/example/resource-booker/internal/calendar"
)

// Store is the entity store: three name-keyed collections loaded from and
// flushed to a Backend as whole snapshots.
type Store struct {
	backend Backend
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return NewStoreWithLogger(backend, nil)
}

// NewStoreWithLogger wraps backend and logs snapshot recovery through logger.
func NewStoreWithLogger(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger.With("component", "store")}
}

// Close closes the backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// LoadUsers returns the users collection.
func (s *Store) LoadUsers(ctx context.Context) (map[string]User, error) {
	return loadCollection[User](ctx, s, CollectionUsers)
}

// LoadResources returns the resources collection.
func (s *Store) LoadResources(ctx context.Context) (map[string]Resource, error) {
	return loadCollection[Resource](ctx, s, CollectionResources)
}

// LoadBookings returns the bookings collection.
func (s *Store) LoadBookings(ctx context.Context) (map[string]Booking, error) {
	return loadCollection[Booking](ctx, s, CollectionBookings)
}

// SaveUsers overwrites the users collection.
func (s *Store) SaveUsers(ctx context.Context, users map[string]User) error {
	return s.Commit(ctx, State{Users: users}, CollectionUsers)
}

// SaveResources overwrites the resources collection.
func (s *Store) SaveResources(ctx context.Context, resources map[string]Resource) error {
	return s.Commit(ctx, State{Resources: resources}, CollectionResources)
}

// SaveBookings overwrites the bookings collection.
func (s *Store) SaveBookings(ctx context.Context, bookings map[string]Booking) error {
	return s.Commit(ctx, State{Bookings: bookings}, CollectionBookings)
}

// Load reads all three collections.
func (s *Store) Load(ctx context.Context) (State, error) {
	users, err := s.LoadUsers(ctx)
	if err != nil {
		return State{}, err
	}
	resources, err := s.LoadResources(ctx)
	if err != nil {
		return State{}, err
	}
	bookings, err := s.LoadBookings(ctx)
	if err != nil {
		return State{}, err
	}
	return State{Users: users, Resources: resources, Bookings: bookings}, nil
}

// Commit writes the named collections of state in a single backend call.
// A cancelled context writes nothing.
func (s *Store) Commit(ctx context.Context, state State, collections ...Collection) error {
	if s == nil || s.backend == nil {
		return fmt.Errorf("persistence: store not configured")
	}
	if len(collections) == 0 {
		return nil
	}

	snapshots := make(map[Collection][]byte, len(collections))
	for _, c := range collections {
		payload, err := encodeCollection(state, c)
		if err != nil {
			return err
		}
		snapshots[c] = payload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.backend.WriteSnapshots(ctx, snapshots); err != nil {
		return fmt.Errorf("persistence: write %d snapshot(s): %w", len(snapshots), err)
	}
	return nil
}

func loadCollection[T any](ctx context.Context, s *Store, c Collection) (map[string]T, error) {
	if s == nil || s.backend == nil {
		return nil, fmt.Errorf("persistence: store not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := s.backend.ReadSnapshot(ctx, c)
	if err != nil {
		if errors.Is(err, ErrSnapshotMissing) {
			s.logger.DebugContext(ctx, "snapshot missing, starting empty", "collection", string(c))
			return make(map[string]T), nil
		}
		return nil, fmt.Errorf("persistence: read %s: %w", c, err)
	}

	out := make(map[string]T)
	if err := json.Unmarshal(payload, &out); err != nil {
		s.logger.WarnContext(ctx, "snapshot unreadable, starting empty", "collection", string(c), "error", err)
		return make(map[string]T), nil
	}
	if out == nil {
		// A literal null payload.
		out = make(map[string]T)
	}
	return out, nil
}

func encodeCollection(state State, c Collection) ([]byte, error) {
	var v any
	switch c {
	case CollectionUsers:
		v = nonNil(state.Users)
	case CollectionResources:
		resources := make(map[string]Resource, len(state.Resources))
		for name, r := range state.Resources {
			if r.DaysBooked == nil {
				r.DaysBooked = []calendar.Date{}
			}
			resources[name] = r
		}
		v = resources
	case CollectionBookings:
		v = nonNil(state.Bookings)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("persistence: encode %s: %w", c, err)
	}
	return payload, nil
}

func nonNil[T any](m map[string]T) map[string]T {
	if m == nil {
		return map[string]T{}
	}
	return m
}
