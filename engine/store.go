/*
store.go - Generic record store with per-collection validation policies

PURPOSE:
  Durable storage of a homogeneous collection of JSON records. One
  Collection[T] instance owns one named collection; entity-specific rules
  (required fields, unique fields, defaults) are injected as a Schema[T]
  value, not expressed through inheritance or per-entity subclasses.

WRITE MODEL:
  Every mutating call is a read-modify-rewrite of the WHOLE collection:
  load all records, apply the change, save all records. A per-collection
  mutex serializes these cycles so concurrent writers cannot clobber each
  other. Reads are unsynchronized and serve the latest written snapshot.

ID ASSIGNMENT:
  Create assigns id = max(existing ids) + 1, or 1 for an empty collection.
  IDs are NOT globally unique across collections.

VALIDATION:
  Create rejects drafts with missing required fields (listing the field
  names) or a unique-field collision. Update re-checks uniqueness against
  every other record and stamps the updated-at time. A rejected call
  performs no mutation.

IMPLEMENTATIONS OF Backend:
  - engine/store: in-memory (testing/dev)
  - store/jsonfile: one human-readable JSON document per collection

SEE ALSO:
  - errors.go: ValidationError, NotFoundError
  - types.go: The record types stored here
*/
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// BACKEND - Raw document persistence
// =============================================================================

// Backend persists one opaque document per named collection.
// Load returns (nil, nil) for a collection that does not exist yet.
type Backend interface {
	Load(ctx context.Context, collection string) ([]byte, error)
	Save(ctx context.Context, collection string, doc []byte) error
}

// =============================================================================
// SCHEMA - Per-entity policy injected into the generic store
// =============================================================================

// Schema supplies the entity-specific behavior a Collection needs. Each
// entity declares one Schema value; the store itself stays generic.
type Schema[T any] struct {
	// ID reads the record's integer id.
	ID func(*T) int

	// SetID writes an assigned id into the record.
	SetID func(*T, int)

	// Missing returns the names of required fields absent from the draft.
	Missing func(*T) []string

	// Keys returns unique-field name -> value for collision checks.
	// Nil means the entity has no unique fields.
	Keys func(*T) map[string]string

	// Defaults fills zero-valued optional fields. Applied to drafts on
	// Create and to records loaded from older documents that predate a
	// field's introduction.
	Defaults func(*T)

	// Stamp records creation/update times.
	Stamp func(*T, time.Time, bool)
}

// =============================================================================
// COLLECTION - Generic store over one named collection
// =============================================================================

type Collection[T any] struct {
	Name string

	backend Backend
	schema  Schema[T]
	now     func() time.Time

	mu sync.Mutex // serializes read-modify-rewrite cycles
}

func NewCollection[T any](name string, backend Backend, schema Schema[T]) *Collection[T] {
	return &Collection[T]{
		Name:    name,
		backend: backend,
		schema:  schema,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests use this for stable stamps.
func (c *Collection[T]) SetClock(now func() time.Time) { c.now = now }

// =============================================================================
// READS
// =============================================================================

// All returns every record in the collection, empty if none exist yet.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	return c.load(ctx)
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(ctx context.Context, id int) (T, error) {
	var zero T
	records, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for i := range records {
		if c.schema.ID(&records[i]) == id {
			return records[i], nil
		}
	}
	return zero, &NotFoundError{Collection: c.Name, ID: id}
}

// Find returns every record matching the predicate.
func (c *Collection[T]) Find(ctx context.Context, match func(*T) bool) ([]T, error) {
	records, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for i := range records {
		if match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out, nil
}

// =============================================================================
// MUTATIONS - Whole-collection rewrite, serialized per collection
// =============================================================================

// Create validates the draft, assigns the next id, stamps it, and rewrites
// the collection. Returns the stored record.
func (c *Collection[T]) Create(ctx context.Context, draft T) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, err
	}

	if c.schema.Defaults != nil {
		c.schema.Defaults(&draft)
	}
	if c.schema.Missing != nil {
		if missing := c.schema.Missing(&draft); len(missing) > 0 {
			return zero, &ValidationError{Collection: c.Name, Missing: missing}
		}
	}
	if err := c.checkUnique(records, &draft, -1); err != nil {
		return zero, err
	}

	next := 1
	for i := range records {
		if id := c.schema.ID(&records[i]); id >= next {
			next = id + 1
		}
	}
	c.schema.SetID(&draft, next)
	if c.schema.Stamp != nil {
		c.schema.Stamp(&draft, c.now(), true)
	}

	records = append(records, draft)
	if err := c.save(ctx, records); err != nil {
		return zero, err
	}
	return draft, nil
}

// Update applies mutate to the stored record, re-checks unique fields
// against every other record, stamps the update time, and rewrites the
// collection. Returns the updated record.
func (c *Collection[T]) Update(ctx context.Context, id int, mutate func(*T) error) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, err
	}

	idx := -1
	for i := range records {
		if c.schema.ID(&records[i]) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return zero, &NotFoundError{Collection: c.Name, ID: id}
	}

	updated := records[idx]
	if err := mutate(&updated); err != nil {
		return zero, err
	}
	if got := c.schema.ID(&updated); got != id {
		return zero, fmt.Errorf("%s: update must not change id (%d -> %d)", c.Name, id, got)
	}
	if c.schema.Missing != nil {
		if missing := c.schema.Missing(&updated); len(missing) > 0 {
			return zero, &ValidationError{Collection: c.Name, Missing: missing}
		}
	}
	if err := c.checkUnique(records, &updated, idx); err != nil {
		return zero, err
	}
	if c.schema.Stamp != nil {
		c.schema.Stamp(&updated, c.now(), false)
	}

	records[idx] = updated
	if err := c.save(ctx, records); err != nil {
		return zero, err
	}
	return updated, nil
}

// Delete removes and returns the record with the given id.
func (c *Collection[T]) Delete(ctx context.Context, id int) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, err
	}

	for i := range records {
		if c.schema.ID(&records[i]) != id {
			continue
		}
		removed := records[i]
		records = append(records[:i], records[i+1:]...)
		if err := c.save(ctx, records); err != nil {
			return zero, err
		}
		return removed, nil
	}
	return zero, &NotFoundError{Collection: c.Name, ID: id}
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Collection[T]) checkUnique(records []T, candidate *T, self int) error {
	if c.schema.Keys == nil {
		return nil
	}
	keys := c.schema.Keys(candidate)
	for i := range records {
		if i == self {
			continue
		}
		existing := c.schema.Keys(&records[i])
		for field, value := range keys {
			if value == "" {
				continue
			}
			if existing[field] == value {
				return &ValidationError{Collection: c.Name, Duplicate: field, Value: value}
			}
		}
	}
	return nil
}

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	doc, err := c.backend.Load(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.Name, err)
	}
	if len(doc) == 0 {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(doc, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Name, err)
	}
	// Older documents may predate fields added since; default them on read.
	if c.schema.Defaults != nil {
		for i := range records {
			c.schema.Defaults(&records[i])
		}
	}
	return records, nil
}

func (c *Collection[T]) save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	doc, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Name, err)
	}
	if err := c.backend.Save(ctx, c.Name, doc); err != nil {
		return fmt.Errorf("save %s: %w", c.Name, err)
	}
	return nil
}
