package period_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitework/period-engine/period"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// span builds a minimal period on June 10 with the given clock times.
func span(id, startClock, finishClock string) *period.TimePeriod {
	start, _ := time.Parse("2006-01-02 15:04", "2025-06-10 "+startClock)
	finish, _ := time.Parse("2006-01-02 15:04", "2025-06-10 "+finishClock)
	return &period.TimePeriod{
		ID:       id,
		WorkerID: "worker-1",
		WorkDate: time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Start:    start.UTC(),
		Finish:   finish.UTC(),
	}
}

// =============================================================================
// OVERLAP DETECTION
// =============================================================================

func TestCheckConflicts_Overlap_Detected(t *testing.T) {
	// GIVEN: An existing period 07:00-15:30
	// WHEN: Submitting 15:00-18:00 for the same worker and date
	// THEN: The overlap is reported as a hard conflict

	existing := span("p-1", "07:00", "15:30")
	candidate := span("p-2", "15:00", "18:00")

	report := period.CheckConflicts(candidate, []*period.TimePeriod{existing})
	require.NotNil(t, report.Overlap)
	assert.Equal(t, "p-1", *report.Overlap)
	assert.Nil(t, report.Gap)
}

func TestCheckConflicts_ExactAdjacency_NoOverlap(t *testing.T) {
	// GIVEN: An existing period finishing at 15:30
	// WHEN: Submitting a period starting exactly at 15:30
	// THEN: Half-open semantics: no overlap, no gap

	existing := span("p-1", "07:00", "15:30")
	candidate := span("p-2", "15:30", "18:00")

	report := period.CheckConflicts(candidate, []*period.TimePeriod{existing})
	assert.Nil(t, report.Overlap)
	assert.Nil(t, report.Gap)
}

func TestCheckConflicts_ContainedSpan_Detected(t *testing.T) {
	existing := span("p-1", "07:00", "15:30")
	candidate := span("p-2", "09:00", "10:00")

	report := period.CheckConflicts(candidate, []*period.TimePeriod{existing})
	require.NotNil(t, report.Overlap)
	assert.Equal(t, "p-1", *report.Overlap)
}

func TestCheckConflicts_EditExcludesSelf(t *testing.T) {
	// GIVEN: A stored copy of the period being edited
	// WHEN: Checking the edited version against siblings including itself
	// THEN: The period does not conflict with its own stored copy

	stored := span("p-1", "07:00", "15:30")
	edited := span("p-1", "07:00", "16:00")

	report := period.CheckConflicts(edited, []*period.TimePeriod{stored})
	assert.Nil(t, report.Overlap)
	assert.Nil(t, report.Gap)
}

// =============================================================================
// GAP DETECTION
// =============================================================================

func TestCheckConflicts_GapOver15Minutes_Warned(t *testing.T) {
	// GIVEN: An existing period finishing at 12:00
	// WHEN: Submitting a period starting at 13:00
	// THEN: The 60-minute gap is reported as a soft warning

	existing := span("p-1", "07:00", "12:00")
	candidate := span("p-2", "13:00", "17:00")

	report := period.CheckConflicts(candidate, []*period.TimePeriod{existing})
	assert.Nil(t, report.Overlap)
	require.NotNil(t, report.Gap)
	assert.Equal(t, 60, report.Gap.GapMinutes)
	assert.Equal(t, "p-1", report.Gap.BeforeID)
	assert.Equal(t, "p-2", report.Gap.AfterID)
}

func TestCheckConflicts_Gap15MinutesOrLess_Ignored(t *testing.T) {
	// GIVEN: An existing period finishing at 12:00
	// WHEN: Submitting a period starting at 12:15
	// THEN: A 15-minute gap is within tolerance

	existing := span("p-1", "07:00", "12:00")
	candidate := span("p-2", "12:15", "17:00")

	report := period.CheckConflicts(candidate, []*period.TimePeriod{existing})
	assert.Nil(t, report.Gap)
}

func TestCheckConflicts_PreexistingSiblingGap_NotCandidatesProblem(t *testing.T) {
	// GIVEN: Two existing periods with a one-hour gap between them
	// WHEN: Submitting a candidate adjacent to the later one
	// THEN: Only gaps the candidate participates in are reported

	first := span("p-1", "07:00", "09:00")
	second := span("p-2", "10:00", "12:00")
	candidate := span("p-3", "12:00", "15:00")

	report := period.CheckConflicts(candidate, []*period.TimePeriod{first, second})
	assert.Nil(t, report.Overlap)
	assert.Nil(t, report.Gap)
}

func TestCheckConflicts_FirstPeriodOfDay_NoGap(t *testing.T) {
	candidate := span("p-1", "07:00", "15:00")

	report := period.CheckConflicts(candidate, nil)
	assert.Nil(t, report.Overlap)
	assert.Nil(t, report.Gap)
}
