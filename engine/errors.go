/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The mlm and api packages wrap these with additional context.

ERROR CATEGORIES:
  1. Validation errors - missing required fields, duplicate unique fields
  2. Not-found errors - id absent from a collection
  3. Graph errors - sponsor-chain cycles (defensive)
  4. Posting errors - duplicate commission postings (treated as no-op)

USAGE:
  if errors.Is(err, engine.ErrNotFound) { ... }

SEE ALSO:
  - store.go: Returns ValidationError / ErrNotFound
  - network.go: Returns CycleError
*/
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an id is not present in a collection.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is the base for all record validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrCycleDetected is returned when the upline walk revisits an id.
	// The data model declares cycles invalid; this guard is defensive.
	ErrCycleDetected = errors.New("sponsor chain cycle detected")

	// ErrDuplicatePosting is returned when a commission for the same
	// (sale, user, level) already exists. Callers treat it as a no-op
	// success, not a failure.
	ErrDuplicatePosting = errors.New("commission already posted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports missing required fields and/or a unique-field
// collision. No mutation occurs when it is returned.
type ValidationError struct {
	Collection string
	Missing    []string // required fields absent from the draft
	Duplicate  string   // unique field that collided, empty if none
	Value      string   // the colliding value
}

func (e *ValidationError) Error() string {
	if e.Duplicate != "" {
		return fmt.Sprintf("%s: duplicate %s %q", e.Collection, e.Duplicate, e.Value)
	}
	return fmt.Sprintf("%s: missing required fields: %s", e.Collection, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies which record was missing.
type NotFoundError struct {
	Collection string
	ID         int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no record with id %d", e.Collection, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CycleError carries the partial chain walked before the revisit.
type CycleError struct {
	UserID  int
	Revisit int
	Chain   []int // ancestors collected before the cycle tripped, nearest first
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("sponsor chain for user %d revisits %d", e.UserID, e.Revisit)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether the error is due to invalid input rather
// than an internal failure. The HTTP layer maps these to 4xx responses.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCycleDetected)
}
