package period_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitework/period-engine/period"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)

// validPeriod returns a period that passes every check: June 10, 07:00-15:30,
// assigned to one project.
func validPeriod() *period.TimePeriod {
	projectID := "proj-1"
	return &period.TimePeriod{
		WorkerID:  "worker-1",
		ProjectID: &projectID,
		WorkDate:  time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Start:     time.Date(2025, time.June, 10, 7, 0, 0, 0, time.UTC),
		Finish:    time.Date(2025, time.June, 10, 15, 30, 0, 0, time.UTC),
	}
}

func fieldNames(errs []period.FieldError) []string {
	names := make([]string, len(errs))
	for i, e := range errs {
		names[i] = e.Field
	}
	return names
}

// =============================================================================
// STRUCTURAL CHECKS
// =============================================================================

func TestValidate_ValidPeriod_NoErrors(t *testing.T) {
	// GIVEN: A well-formed period aligned to 15-minute boundaries
	// WHEN: Validating
	// THEN: No field errors

	errs := period.Validate(validPeriod(), period.DefaultLimits(), testNow)
	assert.Empty(t, errs)
}

func TestValidate_MissingAssignment_Rejected(t *testing.T) {
	// GIVEN: A period with no project, plant or workshop task reference
	// WHEN: Validating
	// THEN: The assignment field is flagged

	p := validPeriod()
	p.ProjectID = nil

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Contains(t, fieldNames(errs), "assignment")
}

func TestValidate_MultipleAssignments_Rejected(t *testing.T) {
	// GIVEN: A period referencing both a project and a plant item
	// WHEN: Validating
	// THEN: The assignment field is flagged as mutually exclusive

	p := validPeriod()
	plantID := "plant-9"
	p.PlantID = &plantID

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "assignment", errs[0].Field)
	assert.Contains(t, errs[0].Reason, "mutually exclusive")
}

func TestValidate_FutureWorkDate_Rejected(t *testing.T) {
	// GIVEN: A period dated tomorrow
	// WHEN: Validating against today's clock
	// THEN: work_date is flagged

	p := validPeriod()
	p.WorkDate = time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)
	p.Start = time.Date(2025, time.June, 11, 7, 0, 0, 0, time.UTC)
	p.Finish = time.Date(2025, time.June, 11, 15, 0, 0, 0, time.UTC)

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Contains(t, fieldNames(errs), "work_date")
}

func TestValidate_FinishBeforeStart_Rejected(t *testing.T) {
	p := validPeriod()
	p.Start, p.Finish = p.Finish, p.Start

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Contains(t, fieldNames(errs), "finish_time")
}

func TestValidate_SpanCrossesMidnight_Rejected(t *testing.T) {
	// GIVEN: A finish time on the next calendar date
	// WHEN: Validating
	// THEN: finish_time is flagged; a period never spans midnight

	p := validPeriod()
	p.Finish = time.Date(2025, time.June, 11, 1, 0, 0, 0, time.UTC)

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Contains(t, fieldNames(errs), "finish_time")
}

// =============================================================================
// GRANULARITY CHECKS
// =============================================================================

func TestValidate_UnalignedStart_Rejected(t *testing.T) {
	// GIVEN: A start time of 07:10
	// WHEN: Validating
	// THEN: start_time fails the 15-minute boundary check

	p := validPeriod()
	p.Start = time.Date(2025, time.June, 10, 7, 10, 0, 0, time.UTC)

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "start_time", errs[0].Field)
}

func TestValidate_TravelMinutesNotMultipleOf15_Rejected(t *testing.T) {
	p := validPeriod()
	p.TravelToSiteMin = 20

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "travel_to_site_min", errs[0].Field)
}

func TestValidate_NegativeAllowanceMinutes_Rejected(t *testing.T) {
	p := validPeriod()
	p.MiscAllowanceMin = -15

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "misc_allowance_min", errs[0].Field)
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	// GIVEN: A period with several independent problems
	// WHEN: Validating
	// THEN: Every failure is reported, not just the first

	p := validPeriod()
	p.ProjectID = nil
	p.Start = time.Date(2025, time.June, 10, 7, 10, 0, 0, time.UTC)
	p.TravelToSiteMin = 7

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	names := fieldNames(errs)
	assert.Contains(t, names, "assignment")
	assert.Contains(t, names, "start_time")
	assert.Contains(t, names, "travel_to_site_min")
}

// =============================================================================
// BREAKS
// =============================================================================

func TestValidate_TooManyBreaks_Rejected(t *testing.T) {
	// GIVEN: Four breaks against a ceiling of three
	// WHEN: Validating with default limits
	// THEN: The breaks collection is flagged

	p := validPeriod()
	for i := 0; i < 4; i++ {
		start := time.Date(2025, time.June, 10, 8+i, 0, 0, 0, time.UTC)
		finish := start.Add(15 * time.Minute)
		p.Breaks = append(p.Breaks, period.Break{Start: start, Finish: &finish})
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Contains(t, fieldNames(errs), "breaks")
}

func TestValidate_BreakOutsidePeriodSpan_Rejected(t *testing.T) {
	p := validPeriod()
	start := time.Date(2025, time.June, 10, 6, 0, 0, 0, time.UTC) // before 07:00
	finish := start.Add(30 * time.Minute)
	p.Breaks = []period.Break{{Start: start, Finish: &finish}}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "breaks[0]", errs[0].Field)
}

func TestValidate_OverlappingBreaks_Rejected(t *testing.T) {
	// GIVEN: Two breaks 09:00-09:30 and 09:15-09:45
	// WHEN: Validating
	// THEN: The overlap is flagged once

	p := validPeriod()
	f1 := time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)
	f2 := time.Date(2025, time.June, 10, 9, 45, 0, 0, time.UTC)
	p.Breaks = []period.Break{
		{Start: time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC), Finish: &f1},
		{Start: time.Date(2025, time.June, 10, 9, 15, 0, 0, time.UTC), Finish: &f2},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "breaks", errs[0].Field)
}

func TestValidate_OpenBreak_Allowed(t *testing.T) {
	// GIVEN: One break with no finish (still in progress)
	// WHEN: Validating
	// THEN: No errors; an open break is legal

	p := validPeriod()
	p.Breaks = []period.Break{
		{Start: time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Empty(t, errs)
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func TestValidate_TooManyUsedEquipment_Rejected(t *testing.T) {
	p := validPeriod()
	for i := 0; i < 7; i++ {
		p.UsedEquipment = append(p.UsedEquipment, period.EquipmentRef{
			PlantID: "plant-" + string(rune('a'+i)),
			Kind:    period.EquipmentUsed,
		})
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Contains(t, fieldNames(errs), "used_equipment")
}

func TestValidate_DuplicatePlantWithinKind_Rejected(t *testing.T) {
	// GIVEN: The same plant item referenced twice as used equipment
	// WHEN: Validating
	// THEN: The duplicate is flagged

	p := validPeriod()
	p.UsedEquipment = []period.EquipmentRef{
		{PlantID: "excavator-1", Kind: period.EquipmentUsed},
		{PlantID: "excavator-1", Kind: period.EquipmentUsed},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "used_equipment", errs[0].Field)
}

func TestValidate_SamePlantAcrossKinds_Allowed(t *testing.T) {
	// GIVEN: One plant item both used and mobilised
	// WHEN: Validating
	// THEN: No errors; uniqueness is per kind

	p := validPeriod()
	p.UsedEquipment = []period.EquipmentRef{{PlantID: "crane-2", Kind: period.EquipmentUsed}}
	p.MobilisedEquipment = []period.EquipmentRef{{PlantID: "crane-2", Kind: period.EquipmentMobilised}}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Empty(t, errs)
}

func TestValidate_CustomLimits_Respected(t *testing.T) {
	// GIVEN: An admin lowered the used-equipment ceiling to 1
	// WHEN: Validating a period with 2 references
	// THEN: The new ceiling applies

	p := validPeriod()
	p.UsedEquipment = []period.EquipmentRef{
		{PlantID: "a", Kind: period.EquipmentUsed},
		{PlantID: "b", Kind: period.EquipmentUsed},
	}
	limits := period.SystemLimits{MaxUsedEquipment: 1}

	errs := period.Validate(p, limits, testNow)
	assert.Contains(t, fieldNames(errs), "used_equipment")
}

// =============================================================================
// PAY RATES
// =============================================================================

func TestValidate_PayRateHours_NotQuarterMultiple_Rejected(t *testing.T) {
	// GIVEN: 8.10 hours of standard time
	// WHEN: Validating
	// THEN: Rejected; hours must be multiples of 0.25

	p := validPeriod()
	p.PayRates = []period.PayRateAllocation{
		{Category: period.RateStandard, Hours: decimal.RequireFromString("8.10")},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "pay_rates", errs[0].Field)
	assert.Contains(t, errs[0].Reason, "0.25")
}

func TestValidate_PayRateHours_QuarterMultiple_Allowed(t *testing.T) {
	p := validPeriod()
	p.PayRates = []period.PayRateAllocation{
		{Category: period.RateStandard, Hours: decimal.RequireFromString("8.25")},
		{Category: period.RatePremium1, Hours: decimal.RequireFromString("1.5"), MinutesRemainder: 30},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	assert.Empty(t, errs)
}

func TestValidate_DuplicateRateCategory_Rejected(t *testing.T) {
	p := validPeriod()
	p.PayRates = []period.PayRateAllocation{
		{Category: period.RateStandard, Hours: decimal.NewFromInt(4)},
		{Category: period.RateStandard, Hours: decimal.NewFromInt(2)},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "duplicate")
}

func TestValidate_InvalidMinutesRemainder_Rejected(t *testing.T) {
	p := validPeriod()
	p.PayRates = []period.PayRateAllocation{
		{Category: period.RateHoliday, Hours: decimal.NewFromInt(8), MinutesRemainder: 20},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "minutes remainder")
}

func TestValidate_UnknownRateCategory_Rejected(t *testing.T) {
	p := validPeriod()
	p.PayRates = []period.PayRateAllocation{
		{Category: "double_overtime", Hours: decimal.NewFromInt(1)},
	}

	errs := period.Validate(p, period.DefaultLimits(), testNow)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "unknown rate category")
}
