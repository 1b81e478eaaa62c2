package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitework/period-engine/period"
	"github.com/sitework/period-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func storedPeriod(id string) *period.TimePeriod {
	projectID := "proj-1"
	qty := decimal.RequireFromString("12.5")
	breakFinish := time.Date(2025, time.June, 10, 12, 30, 0, 0, time.UTC)
	return &period.TimePeriod{
		ID:              id,
		WorkerID:        "worker-1",
		ProjectID:       &projectID,
		WorkDate:        time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Start:           time.Date(2025, time.June, 10, 7, 0, 0, 0, time.UTC),
		Finish:          time.Date(2025, time.June, 10, 15, 30, 0, 0, time.UTC),
		Status:          period.StatusSubmitted,
		Note:            "poured slab all day",
		TravelToSiteMin: 30,
		OnCall:          true,
		ConcreteMixType: "40MPa",
		ConcreteQty:     &qty,
		SubmittedBy:     "worker-1",
		SubmittedAt:     time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC),
		CreatedAt:       time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC),
		Breaks: []period.Break{{
			ID:       id + "-brk-1",
			PeriodID: id,
			Start:    time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
			Finish:   &breakFinish,
			Reason:   "lunch",
		}},
		UsedEquipment: []period.EquipmentRef{
			{ID: id + "-use-1", PeriodID: id, PlantID: "excavator-1", Kind: period.EquipmentUsed},
			{ID: id + "-use-2", PeriodID: id, PlantID: "pump-3", Kind: period.EquipmentUsed, DisplayOrder: 1},
		},
		MobilisedEquipment: []period.EquipmentRef{
			{ID: id + "-mob-1", PeriodID: id, PlantID: "crane-2", Kind: period.EquipmentMobilised},
		},
		PayRates: []period.PayRateAllocation{
			{ID: id + "-rate-1", PeriodID: id, Category: period.RateStandard, Hours: decimal.RequireFromString("8.25")},
			{ID: id + "-rate-2", PeriodID: id, Category: period.RatePremium1, Hours: decimal.RequireFromString("0.5"), MinutesRemainder: 30},
		},
	}
}

func revisionEntry(id, periodID string) period.RevisionEntry {
	return period.RevisionEntry{
		ID:         id,
		PeriodID:   periodID,
		Timestamp:  time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC),
		ActorID:    "worker-1",
		ActorRole:  period.RoleWorker,
		ChangeType: period.ChangeSubmission,
		Stage:      period.StatusSubmitted,
		FieldName:  "status",
		NewValue:   string(period.StatusSubmitted),
	}
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestSQLiteStore_CreateGet_RoundTrip(t *testing.T) {
	// GIVEN: A period with every child collection populated
	// WHEN: Creating then reading it back
	// THEN: All fields and children survive intact and in order

	s := newTestStore(t)
	ctx := context.Background()

	original := storedPeriod("p-1")
	require.NoError(t, s.CreatePeriod(ctx, original))

	loaded, err := s.GetPeriod(ctx, "p-1")
	require.NoError(t, err)

	assert.Equal(t, original.WorkerID, loaded.WorkerID)
	require.NotNil(t, loaded.ProjectID)
	assert.Equal(t, "proj-1", *loaded.ProjectID)
	assert.Nil(t, loaded.PlantID)
	assert.True(t, original.Start.Equal(loaded.Start))
	assert.True(t, original.Finish.Equal(loaded.Finish))
	assert.Equal(t, period.StatusSubmitted, loaded.Status)
	assert.Equal(t, 30, loaded.TravelToSiteMin)
	assert.True(t, loaded.OnCall)
	require.NotNil(t, loaded.ConcreteQty)
	assert.True(t, loaded.ConcreteQty.Equal(decimal.RequireFromString("12.5")))

	require.Len(t, loaded.Breaks, 1)
	assert.Equal(t, "lunch", loaded.Breaks[0].Reason)
	require.NotNil(t, loaded.Breaks[0].Finish)

	require.Len(t, loaded.UsedEquipment, 2)
	assert.Equal(t, "excavator-1", loaded.UsedEquipment[0].PlantID)
	assert.Equal(t, "pump-3", loaded.UsedEquipment[1].PlantID)
	assert.Equal(t, period.EquipmentUsed, loaded.UsedEquipment[0].Kind)

	require.Len(t, loaded.MobilisedEquipment, 1)
	assert.Equal(t, period.EquipmentMobilised, loaded.MobilisedEquipment[0].Kind)

	require.Len(t, loaded.PayRates, 2)
	assert.True(t, loaded.PayRates[1].Hours.Equal(decimal.RequireFromString("8.25")) ||
		loaded.PayRates[0].Hours.Equal(decimal.RequireFromString("8.25")))
}

func TestSQLiteStore_GetPeriod_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPeriod(context.Background(), "missing")
	assert.ErrorIs(t, err, period.ErrPeriodNotFound)
}

func TestSQLiteStore_UpdatePeriod_ReplacesChildren(t *testing.T) {
	// GIVEN: A stored period with one break and two used-equipment refs
	// WHEN: Updating with a different child set
	// THEN: The old children are fully replaced, not merged

	s := newTestStore(t)
	ctx := context.Background()

	p := storedPeriod("p-1")
	require.NoError(t, s.CreatePeriod(ctx, p))

	updated := p.Clone()
	updated.Breaks = nil
	updated.UsedEquipment = []period.EquipmentRef{
		{ID: "use-9", PeriodID: "p-1", PlantID: "roller-7", Kind: period.EquipmentUsed},
	}
	require.NoError(t, s.UpdatePeriod(ctx, updated, p.RevisionNumber))

	loaded, err := s.GetPeriod(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Breaks)
	require.Len(t, loaded.UsedEquipment, 1)
	assert.Equal(t, "roller-7", loaded.UsedEquipment[0].PlantID)
}

func TestSQLiteStore_CreatePeriod_DuplicateID(t *testing.T) {
	// GIVEN: A stored period
	// WHEN: Inserting a second period with the same ID
	// THEN: The insert is rejected and the original row is untouched

	s := newTestStore(t)
	ctx := context.Background()

	p := storedPeriod("p-1")
	require.NoError(t, s.CreatePeriod(ctx, p))

	again := storedPeriod("p-1")
	again.Finish = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	err := s.CreatePeriod(ctx, again)
	assert.ErrorIs(t, err, period.ErrPeriodExists)

	loaded, err := s.GetPeriod(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, p.Finish.Equal(loaded.Finish))
}

func TestSQLiteStore_UpdatePeriod_StaleRevision(t *testing.T) {
	// GIVEN: A stored period at revision 0
	// WHEN: Updating with an expected revision behind or ahead of the stored one
	// THEN: The guarded UPDATE matches no row and reports both numbers

	s := newTestStore(t)
	ctx := context.Background()

	p := storedPeriod("p-1")
	require.NoError(t, s.CreatePeriod(ctx, p))

	for _, expected := range []int{7, p.RevisionNumber + 1} {
		err := s.UpdatePeriod(ctx, p.Clone(), expected)
		var ce *period.ConcurrencyError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, expected, ce.SuppliedRevision)
		assert.Equal(t, p.RevisionNumber, ce.StoredRevision)
	}
}

func TestSQLiteStore_UpdatePeriod_Missing_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdatePeriod(context.Background(), storedPeriod("ghost"), 0)
	assert.ErrorIs(t, err, period.ErrPeriodNotFound)
}

// =============================================================================
// LISTING
// =============================================================================

func TestSQLiteStore_ListForWorkerDate_ScopedAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	early := storedPeriod("p-early")
	late := storedPeriod("p-late")
	late.Start = time.Date(2025, time.June, 10, 16, 0, 0, 0, time.UTC)
	late.Finish = time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)

	otherWorker := storedPeriod("p-other")
	otherWorker.WorkerID = "worker-2"

	otherDay := storedPeriod("p-tomorrow")
	otherDay.WorkDate = time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)

	for _, p := range []*period.TimePeriod{late, early, otherWorker, otherDay} {
		require.NoError(t, s.CreatePeriod(ctx, p))
	}

	got, err := s.ListForWorkerDate(ctx, "worker-1", time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-early", got[0].ID)
	assert.Equal(t, "p-late", got[1].ID)
}

func TestSQLiteStore_ListPeriods_StatusFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	submitted := storedPeriod("p-1")
	approved := storedPeriod("p-2")
	approved.Start = time.Date(2025, time.June, 10, 16, 0, 0, 0, time.UTC)
	approved.Finish = time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)
	approved.Status = period.StatusSupervisorApproved

	require.NoError(t, s.CreatePeriod(ctx, submitted))
	require.NoError(t, s.CreatePeriod(ctx, approved))

	status := period.StatusSupervisorApproved
	got, err := s.ListPeriods(ctx, period.ListFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-2", got[0].ID)
}

// =============================================================================
// DELETION AND THE AUDIT TRAIL
// =============================================================================

func TestSQLiteStore_DeletePeriod_CascadesChildren_KeepsRevisions(t *testing.T) {
	// GIVEN: A period with children and revision entries
	// WHEN: Deleting the period
	// THEN: Children are gone with it; the revision trail survives

	s := newTestStore(t)
	ctx := context.Background()

	p := storedPeriod("p-1")
	require.NoError(t, s.CreatePeriod(ctx, p))
	require.NoError(t, s.AppendRevisions(ctx, []period.RevisionEntry{revisionEntry("rev-1", "p-1")}))

	require.NoError(t, s.DeletePeriod(ctx, "p-1"))

	_, err := s.GetPeriod(ctx, "p-1")
	assert.ErrorIs(t, err, period.ErrPeriodNotFound)

	var breakCount int
	err = s.DB().QueryRow(`SELECT COUNT(*) FROM period_breaks WHERE period_id = 'p-1'`).Scan(&breakCount)
	require.NoError(t, err)
	assert.Zero(t, breakCount, "children cascade with the parent")

	entries, err := s.ListRevisions(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "revision entries outlive the period")
}

func TestSQLiteStore_Revisions_AppendOnly_EnforcedByTriggers(t *testing.T) {
	// GIVEN: A stored revision entry
	// WHEN: Raw SQL tries to UPDATE or DELETE it
	// THEN: The database itself aborts the statement

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendRevisions(ctx, []period.RevisionEntry{revisionEntry("rev-1", "p-1")}))

	_, err := s.DB().Exec(`UPDATE period_revisions SET new_value = 'forged' WHERE id = 'rev-1'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = s.DB().Exec(`DELETE FROM period_revisions WHERE id = 'rev-1'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	entries, err := s.ListRevisions(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(period.StatusSubmitted), entries[0].NewValue)
}

func TestSQLiteStore_ListRevisions_OldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := revisionEntry("rev-1", "p-1")
	second := revisionEntry("rev-2", "p-1")
	second.Timestamp = first.Timestamp.Add(time.Minute)
	second.ChangeType = period.ChangeOwnerEdit

	// Append out of order; the read must still come back chronological.
	require.NoError(t, s.AppendRevisions(ctx, []period.RevisionEntry{second}))
	require.NoError(t, s.AppendRevisions(ctx, []period.RevisionEntry{first}))

	entries, err := s.ListRevisions(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "rev-1", entries[0].ID)
	assert.Equal(t, "rev-2", entries[1].ID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLiteStore_WithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that creates a period then fails
	// WHEN: The callback returns an error
	// THEN: Nothing is committed

	s := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := s.WithTx(ctx, func(tx period.Store) error {
		if err := tx.CreatePeriod(ctx, storedPeriod("p-1")); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.GetPeriod(ctx, "p-1")
	assert.ErrorIs(t, err, period.ErrPeriodNotFound)
}

func TestSQLiteStore_WithTx_CommitOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx period.Store) error {
		if err := tx.CreatePeriod(ctx, storedPeriod("p-1")); err != nil {
			return err
		}
		return tx.AppendRevisions(ctx, []period.RevisionEntry{revisionEntry("rev-1", "p-1")})
	})
	require.NoError(t, err)

	loaded, err := s.GetPeriod(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", loaded.ID)

	entries, err := s.ListRevisions(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// =============================================================================
// SYSTEM LIMITS
// =============================================================================

func TestSQLiteStore_Limits_DefaultsWhenUnset(t *testing.T) {
	s := newTestStore(t)

	limits, err := s.GetLimits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, period.DefaultLimits(), limits)
}

func TestSQLiteStore_Limits_SaveAndReload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := period.SystemLimits{MaxBreaks: 5, MaxUsedEquipment: 2, MaxMobilisedEquipment: 8}
	require.NoError(t, s.SaveLimits(ctx, want))

	got, err := s.GetLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saving again overwrites the single row.
	want.MaxBreaks = 1
	require.NoError(t, s.SaveLimits(ctx, want))
	got, err = s.GetLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MaxBreaks)
}
