// Package jsonfile stores each collection snapshot as <collection>.json in a directory.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/resource-booker/internal/persistence"
)

// Backend reads and writes snapshot files under Dir.
type Backend struct {
	dir string
}

// Open prepares dir, creating it when needed.
func Open(dir string) (*Backend, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create data dir: %w", err)
	}
	return &Backend{dir: dir}, nil
}

// Path returns the file that holds collection c.
func (b *Backend) Path(c persistence.Collection) string {
	return filepath.Join(b.dir, string(c)+".json")
}

// ReadSnapshot returns the file contents or persistence.ErrSnapshotMissing.
func (b *Backend) ReadSnapshot(ctx context.Context, c persistence.Collection) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, c)
	}
	payload, err := os.ReadFile(b.Path(c))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrSnapshotMissing
		}
		return nil, err
	}
	return payload, nil
}

// WriteSnapshots stages every payload in a temporary file and then renames
// the staged files over the live ones. Nothing is renamed if staging fails.
func (b *Backend) WriteSnapshots(ctx context.Context, snapshots map[persistence.Collection][]byte) (err error) {
	staged := make(map[persistence.Collection]string, len(snapshots))
	defer func() {
		if err == nil {
			return
		}
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()

	for c, payload := range snapshots {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, c)
		}
		tmp, werr := b.stage(c, payload)
		if werr != nil {
			return werr
		}
		staged[c] = tmp
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	for _, c := range persistence.Collections() {
		tmp, ok := staged[c]
		if !ok {
			continue
		}
		if err = os.Rename(tmp, b.Path(c)); err != nil {
			return fmt.Errorf("jsonfile: replace %s: %w", c, err)
		}
		delete(staged, c)
	}
	return nil
}

func (b *Backend) stage(c persistence.Collection, payload []byte) (string, error) {
	f, err := os.CreateTemp(b.dir, "."+string(c)+"-*.json")
	if err != nil {
		return "", fmt.Errorf("jsonfile: stage %s: %w", c, err)
	}
	name := f.Name()
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("jsonfile: stage %s: %w", c, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("jsonfile: sync %s: %w", c, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("jsonfile: close %s: %w", c, err)
	}
	return name, nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}
