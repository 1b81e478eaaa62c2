/*
validate.go - Structural and granularity checks for a candidate period

CONTRACT:
  Validate(candidate, limits, now) -> []FieldError

  All failures are collected and reported together; the validator never stops
  at the first one and has no side effects. Cross-period conflicts are NOT
  checked here - that is conflict.go's job.
*/
package period

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Hours are valid when (hours * 4) is an integer, i.e. a 0.25 multiple.
var four = decimal.NewFromInt(4)

// Validate checks a candidate period and its child collections for
// structural correctness and 15-minute-granularity compliance. now is
// supplied by the caller's clock and bounds WorkDate.
func Validate(p *TimePeriod, limits SystemLimits, now time.Time) []FieldError {
	limits = limits.Normalized()
	var errs []FieldError
	add := func(field, reason string) {
		errs = append(errs, FieldError{Field: field, Reason: reason})
	}

	if p.WorkerID == "" {
		add("worker_id", "required")
	}
	switch p.AssignmentCount() {
	case 0:
		add("assignment", "one of project_id, plant_id or workshop_task_id is required")
	case 1:
		// ok
	default:
		add("assignment", "project_id, plant_id and workshop_task_id are mutually exclusive")
	}

	if p.WorkDate.IsZero() {
		add("work_date", "required")
	} else if dateOf(p.WorkDate).After(dateOf(now)) {
		add("work_date", "must not be in the future")
	}

	if p.Start.IsZero() {
		add("start_time", "required")
	}
	if p.Finish.IsZero() {
		add("finish_time", "required")
	}

	if !p.Start.IsZero() && !p.Finish.IsZero() {
		if p.Finish.Before(p.Start) {
			add("finish_time", "must not be before start_time")
		}
		if !sameDate(p.Start, p.Finish) {
			add("finish_time", "must fall on the same calendar date as start_time")
		}
		if !p.WorkDate.IsZero() && !sameDate(p.Start, p.WorkDate) {
			add("start_time", "must fall on work_date")
		}
	}
	if !p.Start.IsZero() && !onQuarterHour(p.Start) {
		add("start_time", "must align to a 15-minute boundary")
	}
	if !p.Finish.IsZero() && !onQuarterHour(p.Finish) {
		add("finish_time", "must align to a 15-minute boundary")
	}

	validateMinutes(&errs, "travel_to_site_min", p.TravelToSiteMin)
	validateMinutes(&errs, "travel_from_site_min", p.TravelFromSiteMin)
	validateMinutes(&errs, "misc_allowance_min", p.MiscAllowanceMin)

	if p.ConcreteQty != nil && p.ConcreteQty.IsNegative() {
		add("concrete_qty", "must not be negative")
	}

	validateBreaks(&errs, p, limits)
	validateEquipment(&errs, "used_equipment", p.UsedEquipment, EquipmentUsed, limits.MaxUsedEquipment)
	validateEquipment(&errs, "mobilised_equipment", p.MobilisedEquipment, EquipmentMobilised, limits.MaxMobilisedEquipment)
	validatePayRates(&errs, p.PayRates)

	return errs
}

func validateMinutes(errs *[]FieldError, field string, v int) {
	if v < 0 {
		*errs = append(*errs, FieldError{Field: field, Reason: "must not be negative"})
	} else if v%15 != 0 {
		*errs = append(*errs, FieldError{Field: field, Reason: "must be a multiple of 15 minutes"})
	}
}

func validateBreaks(errs *[]FieldError, p *TimePeriod, limits SystemLimits) {
	add := func(field, reason string) {
		*errs = append(*errs, FieldError{Field: field, Reason: reason})
	}

	if len(p.Breaks) > limits.MaxBreaks {
		add("breaks", fmt.Sprintf("at most %d breaks allowed", limits.MaxBreaks))
	}

	for i, b := range p.Breaks {
		field := fmt.Sprintf("breaks[%d]", i)
		if b.Start.IsZero() {
			add(field, "break_start is required")
			continue
		}
		if !onQuarterHour(b.Start) {
			add(field, "break_start must align to a 15-minute boundary")
		}
		if !p.Start.IsZero() && b.Start.Before(p.Start) {
			add(field, "break_start must not precede the period start")
		}
		if !p.Finish.IsZero() && b.Start.After(p.Finish) {
			add(field, "break_start must not exceed the period finish")
		}
		if b.Finish != nil {
			if !onQuarterHour(*b.Finish) {
				add(field, "break_finish must align to a 15-minute boundary")
			}
			if b.Finish.Before(b.Start) {
				add(field, "break_finish must not be before break_start")
			}
			if !p.Finish.IsZero() && b.Finish.After(p.Finish) {
				add(field, "break_finish must not exceed the period finish")
			}
		}
	}

	// Sorted pairwise overlap check. An open break extends to the period
	// finish for overlap purposes.
	sorted := append([]Break(nil), p.Breaks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		prevEnd := p.Finish
		if prev.Finish != nil {
			prevEnd = *prev.Finish
		}
		if sorted[i].Start.Before(prevEnd) {
			add("breaks", "breaks must not overlap each other")
			break
		}
	}
}

func validateEquipment(errs *[]FieldError, field string, refs []EquipmentRef, kind EquipmentKind, max int) {
	add := func(reason string) {
		*errs = append(*errs, FieldError{Field: field, Reason: reason})
	}

	if len(refs) > max {
		add(fmt.Sprintf("at most %d %s equipment references allowed", max, kind))
	}
	seen := make(map[string]bool, len(refs))
	for i, r := range refs {
		if r.PlantID == "" {
			add(fmt.Sprintf("reference %d is missing plant_id", i))
			continue
		}
		if seen[r.PlantID] {
			add(fmt.Sprintf("plant %s referenced more than once", r.PlantID))
		}
		seen[r.PlantID] = true
	}
}

func validatePayRates(errs *[]FieldError, rates []PayRateAllocation) {
	add := func(reason string) {
		*errs = append(*errs, FieldError{Field: "pay_rates", Reason: reason})
	}

	seen := make(map[RateCategory]bool, len(rates))
	for _, r := range rates {
		if !r.Category.Valid() {
			add(fmt.Sprintf("unknown rate category %q", r.Category))
			continue
		}
		if seen[r.Category] {
			add(fmt.Sprintf("duplicate allocation for category %s", r.Category))
		}
		seen[r.Category] = true

		if r.Hours.IsNegative() {
			add(fmt.Sprintf("%s: hours must not be negative", r.Category))
		}
		if !r.Hours.Mul(four).IsInteger() {
			add(fmt.Sprintf("%s: hours must be a multiple of 0.25", r.Category))
		}
		switch r.MinutesRemainder {
		case 0, 15, 30, 45:
		default:
			add(fmt.Sprintf("%s: minutes remainder must be one of 0, 15, 30, 45", r.Category))
		}
	}
}

// onQuarterHour reports whether t sits exactly on a 15-minute boundary.
func onQuarterHour(t time.Time) bool {
	return t.Minute()%15 == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
