package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds SQLite connection settings.
type Config struct {
	// DSN is a file path or a modernc.org/sqlite connection string.
	DSN string

	// BusyTimeout sets how long SQLite waits on a locked database before failing.
	BusyTimeout time.Duration

	// JournalMode is applied with PRAGMA journal_mode (WAL, DELETE, ...).
	JournalMode string

	// Synchronous is applied with PRAGMA synchronous (FULL, NORMAL, OFF).
	Synchronous string

	// MaxOpenConns caps the pool. PRAGMAs are per connection, so the default is 1.
	MaxOpenConns int

	Retry RetryConfig
}

// DefaultConfig returns settings for the given DSN.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:          dsn,
		BusyTimeout:  5 * time.Second,
		JournalMode:  "WAL",
		Synchronous:  "FULL",
		MaxOpenConns: 1,
		Retry:        DefaultRetryConfig(),
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("BusyTimeout cannot be negative")
	}
	validJournalModes := map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	if c.JournalMode != "" && !validJournalModes[strings.ToUpper(c.JournalMode)] {
		return fmt.Errorf("invalid journal mode: %s", c.JournalMode)
	}
	validSyncModes := map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
	if c.Synchronous != "" && !validSyncModes[strings.ToUpper(c.Synchronous)] {
		return fmt.Errorf("invalid synchronous mode: %s", c.Synchronous)
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("MaxOpenConns cannot be negative")
	}
	return nil
}

// databasePath extracts the file path from the DSN, or "" for in-memory databases.
func (c Config) databasePath() string {
	dsn := strings.TrimPrefix(c.DSN, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		if strings.Contains(dsn[i:], "mode=memory") {
			return ""
		}
		dsn = dsn[:i]
	}
	if dsn == "" || dsn == ":memory:" {
		return ""
	}
	return dsn
}

func (c Config) configure(db *sql.DB) error {
	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", c.BusyTimeout.Milliseconds())}
	if c.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+strings.ToUpper(c.JournalMode))
	}
	if c.Synchronous != "" {
		pragmas = append(pragmas, "PRAGMA synchronous = "+strings.ToUpper(c.Synchronous))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

func (c Config) ensureDirectory() error {
	path := c.databasePath()
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}
