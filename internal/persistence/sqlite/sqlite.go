// Package sqlite stores collection snapshots in a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/resource-booker/internal/persistence"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	collection TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

const upsertSnapshot = `INSERT INTO snapshots (collection, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(collection) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

// Storage is a persistence.Backend over a SQLite database.
type Storage struct {
	pool  *ConnectionPool
	retry RetryConfig
	now   func() time.Time
}

// Open connects using DefaultConfig(dsn) and creates the snapshots table.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	return OpenWithConfig(ctx, DefaultConfig(dsn))
}

// OpenWithConfig connects using config and creates the snapshots table.
func OpenWithConfig(ctx context.Context, config Config) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	s := &Storage{pool: pool, retry: config.Retry, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the snapshots table when absent.
func (s *Storage) Migrate(ctx context.Context) error {
	return WithRetry(ctx, s.retry, func() error {
		_, err := s.pool.DB().ExecContext(ctx, schema)
		return err
	})
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// ReadSnapshot returns the stored payload or persistence.ErrSnapshotMissing.
func (s *Storage) ReadSnapshot(ctx context.Context, c persistence.Collection) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, c)
	}
	var payload []byte
	err := WithRetry(ctx, s.retry, func() error {
		return s.pool.DB().QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE collection = ?`, string(c)).Scan(&payload)
	})
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, persistence.ErrSnapshotMissing
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteSnapshots upserts every payload in one transaction.
func (s *Storage) WriteSnapshots(ctx context.Context, snapshots map[persistence.Collection][]byte) error {
	for c := range snapshots {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, c)
		}
	}
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	return WithRetry(ctx, s.retry, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, c := range persistence.Collections() {
				payload, ok := snapshots[c]
				if !ok {
					continue
				}
				if _, err := tx.ExecContext(ctx, upsertSnapshot, string(c), payload, stamp); err != nil {
					return fmt.Errorf("upsert %s: %w", c, err)
				}
			}
			return nil
		})
	})
}
