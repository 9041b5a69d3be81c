/*
errors.go - Centralized error types for the engine

ERROR CATEGORIES:
  1. Validation errors - Rejected input (end before start, bad day-of-month)
  2. Conflict errors   - Overlapping time entries
  3. Not-found errors  - Referenced entity does not exist

"ABSENT" IS NOT ALWAYS AN ERROR:
  A missing carryover, rate, or limit record is handled by fallback or lazy
  calculation, never surfaced. ErrNotFound is for entities the caller named
  explicitly (a time entry id, a user's settings row) and is also the
  sentinel the stores return so services can tell "absent" from "broken".

USAGE:
  if errors.Is(err, engine.ErrNotFound) { ... }

  var overlap *engine.OverlapError
  if errors.As(err, &overlap) { ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrEndBeforeStart is returned when a time entry ends at or before
	// its start. Same-day sessions only; overnight entries are rejected.
	ErrEndBeforeStart = errors.New("end time must be after start time")

	// ErrOverlap is returned when a time entry overlaps an existing one
	// for the same user and date.
	ErrOverlap = errors.New("time entry overlaps an existing entry")

	// ErrInvalidSettings is returned for malformed settings input.
	ErrInvalidSettings = errors.New("invalid settings")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports rejected input with a field-level message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// OverlapError reports a time entry conflict.
type OverlapError struct {
	UserID     UserID
	WorkDate   Date
	Start, End ClockTime
	ExistingID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("entry %s-%s on %s overlaps existing entry %s",
		e.Start, e.End, e.WorkDate, e.ExistingID)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) ||
		errors.Is(err, ErrEndBeforeStart) ||
		errors.Is(err, ErrInvalidSettings)
}

// IsConflict returns true if the error indicates an overlap conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOverlap)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
