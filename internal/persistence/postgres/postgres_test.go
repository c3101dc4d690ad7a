package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/resource-booker/internal/calendar"
	"github.com/example/resource-booker/internal/persistence"
)

// stubConn is a minimal snapshots table behind database/sql.
type stubConn struct {
	mu         sync.Mutex
	execs      []string
	rows       map[string][]byte
	pending    map[string][]byte
	inTx       bool
	failUpsert string
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

var driverSeq int

func newStubDB(t *testing.T) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{rows: make(map[string][]byte)}
	driverSeq++
	name := fmt.Sprintf("stubpg-%d-%d", driverSeq, time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		t.Fatalf("open stub: %v", err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}
func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = true
	c.pending = make(map[string][]byte)
	return c, nil
}

func (c *stubConn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.pending {
		c.rows[k] = v
	}
	c.inTx, c.pending = false, nil
	return nil
}

func (c *stubConn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx, c.pending = false, nil
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	if strings.HasPrefix(query, "INSERT INTO snapshots") {
		collection := args[0].Value.(string)
		if collection == c.failUpsert {
			return nil, errors.New("stub: upsert rejected")
		}
		payload := append([]byte(nil), args[1].Value.([]byte)...)
		if c.inTx {
			c.pending[collection] = payload
		} else {
			c.rows[collection] = payload
		}
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := &stubRows{}
	if payload, ok := c.rows[args[0].Value.(string)]; ok {
		rows.values = [][]driver.Value{{payload}}
	}
	return rows, nil
}

type stubRows struct {
	values [][]driver.Value
	pos    int
}

func (r *stubRows) Columns() []string { return []string{"payload"} }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.pos])
	r.pos++
	return nil
}

func openStub(t *testing.T) (*Storage, *stubConn) {
	t.Helper()
	db, conn := newStubDB(t)
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("expected pgx driver, got %q", driverName)
		}
		return db, nil
	})
	defer restore()

	storage, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })
	return storage, conn
}

func TestOpenCreatesSnapshotsTable(t *testing.T) {
	_, conn := openStub(t)

	if len(conn.execs) == 0 || !strings.Contains(conn.execs[0], "CREATE TABLE IF NOT EXISTS snapshots") {
		t.Fatalf("expected snapshots DDL, got %v", conn.execs)
	}
}

func TestOpenPropagatesOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("no route") })
	defer restore()

	if _, err := Open(context.Background(), "postgres://nowhere"); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestSnapshotsThroughStore(t *testing.T) {
	ctx := context.Background()
	storage, _ := openStub(t)

	if _, err := storage.ReadSnapshot(ctx, persistence.CollectionBookings); !errors.Is(err, persistence.ErrSnapshotMissing) {
		t.Fatalf("expected ErrSnapshotMissing, got %v", err)
	}

	store := persistence.NewStore(storage)
	state := persistence.NewState()
	state.Users["alice"] = persistence.User{Password: "pw1"}
	state.Resources["Room1"] = persistence.Resource{
		Available:  true,
		DaysBooked: []calendar.Date{calendar.MustParseDate("2025-01-01")},
	}
	if err := store.Commit(ctx, state, persistence.Collections()...); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Users) != 1 || len(loaded.Resources["Room1"].DaysBooked) != 1 {
		t.Fatalf("unexpected state after reload: %+v", loaded)
	}
}

func TestWriteSnapshotsRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	storage, conn := openStub(t)
	conn.failUpsert = string(persistence.CollectionBookings)

	err := storage.WriteSnapshots(ctx, map[persistence.Collection][]byte{
		persistence.CollectionUsers:    []byte(`{}`),
		persistence.CollectionBookings: []byte(`{}`),
	})
	if err == nil {
		t.Fatalf("expected upsert failure")
	}
	if _, ok := conn.rows[string(persistence.CollectionUsers)]; ok {
		t.Fatalf("users snapshot must not be committed when bookings fails")
	}
}
