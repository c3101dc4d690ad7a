// Package postgres stores collection snapshots in a Postgres table through the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/example/resource-booker/internal/persistence"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/booker?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	collection TEXT PRIMARY KEY,
	payload BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const upsertSnapshot = `INSERT INTO snapshots (collection, payload, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (collection) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

// Storage is a persistence.Backend over Postgres.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to dsn (defaultDSN when empty) and creates the snapshots table.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure snapshots table: %w", err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

// ReadSnapshot returns the stored payload or persistence.ErrSnapshotMissing.
func (s *Storage) ReadSnapshot(ctx context.Context, c persistence.Collection) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, c)
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE collection = $1`, string(c)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", c, err)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stamp := s.now().UTC()
	for _, c := range persistence.Collections() {
		payload, ok := snapshots[c]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertSnapshot, string(c), payload, stamp); err != nil {
			return fmt.Errorf("upsert %s: %w", c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Close closes the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Storage) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
