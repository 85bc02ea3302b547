/*
Package jsonfile persists collections as JSON documents on disk.

PURPOSE:
  The production Backend. Each collection lives in one human-readable file,
  <dir>/<collection>.json, holding a JSON array of records. Every mutation
  rewrites the whole file; there are no partial updates and no migrations -
  fields added since a file was written default on read (see engine.Schema).

DURABILITY:
  Save writes to a temp file in the same directory and renames it over the
  target, so a crash mid-write leaves either the old document or the new
  one, never a torn file.

CONCURRENCY:
  Single process only. The engine serializes writers per collection; this
  package adds a lock around the filesystem pair (temp write + rename) so
  two collections sharing a directory cannot collide on temp names.

SEE ALSO:
  - engine/store.go: The Backend contract and the write model
  - engine/store/memory.go: In-memory counterpart for tests
*/
package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// =============================================================================
// BACKEND
// =============================================================================

type Backend struct {
	dir string
	mu  sync.Mutex
}

// New creates the data directory if needed and returns a Backend over it.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Backend{dir: dir}, nil
}

// Load reads the collection's document. A missing file means the collection
// does not exist yet and returns (nil, nil).
func (b *Backend) Load(_ context.Context, collection string) ([]byte, error) {
	doc, err := os.ReadFile(b.path(collection))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	return doc, nil
}

// Save rewrites the collection's document wholesale via temp-file + rename.
func (b *Backend) Save(_ context.Context, collection string, doc []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := b.path(collection)
	tmp, err := os.CreateTemp(b.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", collection, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", collection, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

func (b *Backend) path(collection string) string {
	// Collection names are internal constants, but keep the filename tame.
	name := strings.ReplaceAll(collection, string(filepath.Separator), "_")
	return filepath.Join(b.dir, name+".json")
}
