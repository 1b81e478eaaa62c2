/*
store.go - Persistence interface for periods, children and revisions

PURPOSE:
  Defines the interface between the workflow engine and the database.
  Different implementations can use SQLite or in-memory storage.

CHILD COLLECTIONS:
  CreatePeriod and UpdatePeriod persist the parent row and FULLY REPLACE its
  child collections (breaks, equipment references, pay-rate allocations) in
  the same unit - replace-whole-collection semantics, not incremental
  patching. Children cascade-delete with their period.

REVISIONS ARE APPEND-ONLY:
  AppendRevisions is the only write against the revision collection; no
  update or delete operation exists, and implementations must reject them at
  the storage level too. Revisions deliberately do NOT cascade when their
  period is deleted - they are the audit trail.

CONCURRENCY:
  WithTx executes a function atomically. The workflow runs every transition
  inside WithTx so the conflict detector's read of sibling periods is atomic
  with respect to the candidate's own write. Implementations must serialize
  writers (row-range lock, single-writer mutex, or retried serializable
  transaction).

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - period/store: in-memory store for tests
*/
package period

import (
	"context"
	"time"
)

// ListFilter narrows ListPeriods. Nil fields are ignored.
type ListFilter struct {
	WorkerID string
	Date     *time.Time // calendar date
	Status   *Status
}

// Store handles persistence of periods and their revision trail.
type Store interface {
	// GetPeriod returns a period with all child collections loaded, or
	// ErrPeriodNotFound.
	GetPeriod(ctx context.Context, id string) (*TimePeriod, error)

	// ListPeriods returns periods matching the filter, ordered by work date
	// then start instant.
	ListPeriods(ctx context.Context, filter ListFilter) ([]*TimePeriod, error)

	// ListForWorkerDate returns every period for one worker on one calendar
	// date - the conflict detector's sibling set.
	ListForWorkerDate(ctx context.Context, workerID string, date time.Time) ([]*TimePeriod, error)

	// CreatePeriod inserts the parent row and all children. A period with
	// the same ID already on record returns ErrPeriodExists.
	CreatePeriod(ctx context.Context, p *TimePeriod) error

	// UpdatePeriod rewrites the parent row and replaces all children.
	// expectedRevision is the revision number the caller read before
	// mutating; a mismatch with the stored value returns a
	// ConcurrencyError and writes nothing.
	UpdatePeriod(ctx context.Context, p *TimePeriod, expectedRevision int) error

	// DeletePeriod removes the period and cascades to its children.
	// Revision entries survive.
	DeletePeriod(ctx context.Context, id string) error

	// AppendRevisions persists revision entries. This is the ONLY write
	// operation against the revision collection.
	AppendRevisions(ctx context.Context, entries []RevisionEntry) error

	// ListRevisions returns all entries for a period, oldest first.
	ListRevisions(ctx context.Context, periodID string) ([]RevisionEntry, error)

	// GetLimits returns the configured child-collection ceilings, falling
	// back to defaults when no configuration row exists.
	GetLimits(ctx context.Context) (SystemLimits, error)

	// SaveLimits upserts the shared configuration record.
	SaveLimits(ctx context.Context, limits SystemLimits) error
}

// TxStore wraps Store with transaction support. Every workflow transition
// executes inside WithTx; if fn returns an error nothing is committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
