package persistence

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend keeps snapshots in process memory.
type MemoryBackend struct {
	mu        sync.RWMutex
	snapshots map[Collection][]byte
	writes    int
	writeErr  error
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snapshots: make(map[Collection][]byte)}
}

// ReadSnapshot returns a copy of the stored payload.
func (m *MemoryBackend) ReadSnapshot(ctx context.Context, c Collection) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.snapshots[c]
	if !ok {
		return nil, ErrSnapshotMissing
	}
	return append([]byte(nil), payload...), nil
}

// WriteSnapshots replaces every given collection atomically.
func (m *MemoryBackend) WriteSnapshots(ctx context.Context, snapshots map[Collection][]byte) error {
	for c := range snapshots {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	for c, payload := range snapshots {
		m.snapshots[c] = append([]byte(nil), payload...)
	}
	m.writes++
	return nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}

// Snapshot returns the raw payload of c and whether one exists.
func (m *MemoryBackend) Snapshot(c Collection) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.snapshots[c]
	return append([]byte(nil), payload...), ok
}

// SetSnapshot stores a raw payload, bypassing encoding.
func (m *MemoryBackend) SetSnapshot(c Collection, payload []byte) {
	m.mu.Lock()
	m.snapshots[c] = append([]byte(nil), payload...)
	m.mu.Unlock()
}

// Writes returns how many successful WriteSnapshots calls were made.
func (m *MemoryBackend) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// FailWrites makes subsequent writes return err. A nil err restores normal writes.
func (m *MemoryBackend) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}
