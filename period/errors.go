/*
errors.go - Centralized error taxonomy for the workflow engine

ERROR CATEGORIES:
  1. ValidationError  - structural/granularity failures, list of field errors
  2. ConflictError    - overlap with a sibling period, hard block
  3. GapWarning       - uncovered interval > 15 min, soft; caller must attach
                        a note and retry
  4. PermissionError  - actor does not satisfy the transition's precondition
  5. ConcurrencyError - supplied base revision is stale
  6. Sentinels        - not found, terminal status, immutable revisions

All of these are returned as typed results; none are swallowed. The API layer
maps them to HTTP statuses with the Is* helpers.
*/
package period

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPeriodNotFound is returned when a referenced period doesn't exist.
	ErrPeriodNotFound = errors.New("period not found")

	// ErrPeriodExists is returned when a submit reuses the ID of a period
	// that is already on record.
	ErrPeriodExists = errors.New("period already exists")

	// ErrStatusTerminal is returned when a transition is attempted on an
	// admin-approved period.
	ErrStatusTerminal = errors.New("period is in a terminal status")

	// ErrInvalidTransition is returned when the linear state machine forbids
	// the requested move.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRevisionsImmutable is returned by stores when an update or delete
	// is attempted against the revision collection.
	ErrRevisionsImmutable = errors.New("revision entries are append-only")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError is one validation failure, keyed by field name.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) String() string { return e.Field + ": " + e.Reason }

// ValidationError aggregates every failed check. The validator never stops
// at the first failure.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError is a hard block: the candidate's span intersects an existing
// sibling period for the same worker and calendar date.
type ConflictError struct {
	PeriodID            string // the candidate
	ConflictingPeriodID string // the sibling it overlaps
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("period overlaps existing period %s", e.ConflictingPeriodID)
}

// GapWarning is a soft signal, not a failure: the candidate leaves an
// uncovered interval of more than 15 minutes next to a sibling. The caller
// may proceed only after attaching a note to the candidate or an adjacent
// period.
type GapWarning struct {
	GapMinutes int
	BeforeID   string // period whose finish opens the gap ("" when candidate)
	AfterID    string // period whose start closes the gap ("" when candidate)
}

func (e *GapWarning) Error() string {
	return fmt.Sprintf("uncovered gap of %d minutes between adjacent periods", e.GapMinutes)
}

// PermissionError reports which predicate the actor failed.
type PermissionError struct {
	ActorID   string
	Operation string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %s is not permitted to %s", e.ActorID, e.Operation)
}

// ConcurrencyError reports a stale base revision. The caller must reload the
// period and retry with the current revision number.
type ConcurrencyError struct {
	PeriodID         string
	SuppliedRevision int
	StoredRevision   int
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("period %s changed concurrently: supplied revision %d, stored %d",
		e.PeriodID, e.SuppliedRevision, e.StoredRevision)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the caller can recover by correcting input.
func IsClientError(err error) bool {
	var ve *ValidationError
	var pe *PermissionError
	return errors.As(err, &ve) || errors.As(err, &pe)
}

// IsConflict returns true for overlap, gap and stale-revision results; the
// caller must change the request or reload before retrying.
func IsConflict(err error) bool {
	var ce *ConflictError
	var gw *GapWarning
	var cc *ConcurrencyError
	return errors.As(err, &ce) || errors.As(err, &gw) || errors.As(err, &cc)
}

// IsNotFound returns true if the error indicates a missing period.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPeriodNotFound)
}
