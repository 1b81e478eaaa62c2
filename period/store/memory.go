// Package store provides an in-memory period.TxStore implementation for
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sitework/period-engine/period"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	periods   map[string]*period.TimePeriod
	revisions []period.RevisionEntry
	limits    *period.SystemLimits
}

func NewMemory() *Memory {
	return &Memory{periods: make(map[string]*period.TimePeriod)}
}

func (m *Memory) GetPeriod(_ context.Context, id string) (*period.TimePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id string) (*period.TimePeriod, error) {
	p, ok := m.periods[id]
	if !ok {
		return nil, period.ErrPeriodNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) ListPeriods(_ context.Context, filter period.ListFilter) ([]*period.TimePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*period.TimePeriod
	for _, p := range m.periods {
		if filter.WorkerID != "" && p.WorkerID != filter.WorkerID {
			continue
		}
		if filter.Date != nil && !sameDate(p.WorkDate, *filter.Date) {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		result = append(result, p.Clone())
	}
	sortPeriods(result)
	return result, nil
}

func (m *Memory) ListForWorkerDate(_ context.Context, workerID string, date time.Time) ([]*period.TimePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listForWorkerDateLocked(workerID, date), nil
}

func (m *Memory) listForWorkerDateLocked(workerID string, date time.Time) []*period.TimePeriod {
	var result []*period.TimePeriod
	for _, p := range m.periods {
		if p.WorkerID == workerID && sameDate(p.WorkDate, date) {
			result = append(result, p.Clone())
		}
	}
	sortPeriods(result)
	return result
}

func (m *Memory) CreatePeriod(_ context.Context, p *period.TimePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.periods[p.ID]; ok {
		return period.ErrPeriodExists
	}
	m.periods[p.ID] = p.Clone()
	return nil
}

func (m *Memory) UpdatePeriod(_ context.Context, p *period.TimePeriod, expectedRevision int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return updateLocked(m.periods, p, expectedRevision)
}

func updateLocked(periods map[string]*period.TimePeriod, p *period.TimePeriod, expectedRevision int) error {
	stored, ok := periods[p.ID]
	if !ok {
		return period.ErrPeriodNotFound
	}
	if stored.RevisionNumber != expectedRevision {
		return &period.ConcurrencyError{
			PeriodID:         p.ID,
			SuppliedRevision: expectedRevision,
			StoredRevision:   stored.RevisionNumber,
		}
	}
	periods[p.ID] = p.Clone()
	return nil
}

func (m *Memory) DeletePeriod(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.periods[id]; !ok {
		return period.ErrPeriodNotFound
	}
	delete(m.periods, id)
	// Revisions deliberately survive; they are the audit trail.
	return nil
}

// AppendRevisions is the only write against the revision collection.
func (m *Memory) AppendRevisions(_ context.Context, entries []period.RevisionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions = append(m.revisions, entries...)
	return nil
}

func (m *Memory) ListRevisions(_ context.Context, periodID string) ([]period.RevisionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []period.RevisionEntry
	for _, e := range m.revisions {
		if e.PeriodID == periodID {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (m *Memory) GetLimits(_ context.Context) (period.SystemLimits, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.limits == nil {
		return period.DefaultLimits(), nil
	}
	return m.limits.Normalized(), nil
}

func (m *Memory) SaveLimits(_ context.Context, limits period.SystemLimits) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := limits.Normalized()
	m.limits = &l
	return nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func sortPeriods(ps []*period.TimePeriod) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].WorkDate.Equal(ps[j].WorkDate) {
			return ps[i].WorkDate.Before(ps[j].WorkDate)
		}
		return ps[i].Start.Before(ps[j].Start)
	})
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support. The coarse lock held for
// the duration of WithTx also serializes concurrent workflow transitions,
// which keeps the conflict detector's read-then-write atomic - the same
// guarantee the SQLite store provides with its writer mutex.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction, simulated with a snapshot and a
// rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(period.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	periods   map[string]*period.TimePeriod
	revisions []period.RevisionEntry
	limits    *period.SystemLimits
}

func (tm *TxMemory) snapshot() memorySnapshot {
	periodsCopy := make(map[string]*period.TimePeriod, len(tm.periods))
	for k, v := range tm.periods {
		periodsCopy[k] = v.Clone()
	}
	return memorySnapshot{
		periods:   periodsCopy,
		revisions: append([]period.RevisionEntry(nil), tm.revisions...),
		limits:    tm.limits,
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.periods = s.periods
	tm.revisions = s.revisions
	tm.limits = s.limits
}

// txMemoryView accesses the parent without re-locking; the transaction lock
// is already held.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetPeriod(_ context.Context, id string) (*period.TimePeriod, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) ListPeriods(_ context.Context, filter period.ListFilter) ([]*period.TimePeriod, error) {
	var result []*period.TimePeriod
	for _, p := range tv.parent.periods {
		if filter.WorkerID != "" && p.WorkerID != filter.WorkerID {
			continue
		}
		if filter.Date != nil && !sameDate(p.WorkDate, *filter.Date) {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		result = append(result, p.Clone())
	}
	sortPeriods(result)
	return result, nil
}

func (tv *txMemoryView) ListForWorkerDate(_ context.Context, workerID string, date time.Time) ([]*period.TimePeriod, error) {
	return tv.parent.listForWorkerDateLocked(workerID, date), nil
}

func (tv *txMemoryView) CreatePeriod(_ context.Context, p *period.TimePeriod) error {
	if _, ok := tv.parent.periods[p.ID]; ok {
		return period.ErrPeriodExists
	}
	tv.parent.periods[p.ID] = p.Clone()
	return nil
}

func (tv *txMemoryView) UpdatePeriod(_ context.Context, p *period.TimePeriod, expectedRevision int) error {
	return updateLocked(tv.parent.periods, p, expectedRevision)
}

func (tv *txMemoryView) DeletePeriod(_ context.Context, id string) error {
	if _, ok := tv.parent.periods[id]; !ok {
		return period.ErrPeriodNotFound
	}
	delete(tv.parent.periods, id)
	return nil
}

func (tv *txMemoryView) AppendRevisions(_ context.Context, entries []period.RevisionEntry) error {
	tv.parent.revisions = append(tv.parent.revisions, entries...)
	return nil
}

func (tv *txMemoryView) ListRevisions(_ context.Context, periodID string) ([]period.RevisionEntry, error) {
	var result []period.RevisionEntry
	for _, e := range tv.parent.revisions {
		if e.PeriodID == periodID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (tv *txMemoryView) GetLimits(_ context.Context) (period.SystemLimits, error) {
	if tv.parent.limits == nil {
		return period.DefaultLimits(), nil
	}
	return tv.parent.limits.Normalized(), nil
}

func (tv *txMemoryView) SaveLimits(_ context.Context, limits period.SystemLimits) error {
	l := limits.Normalized()
	tv.parent.limits = &l
	return nil
}

// Compile-time interface checks.
var (
	_ period.Store   = (*Memory)(nil)
	_ period.TxStore = (*TxMemory)(nil)
)
