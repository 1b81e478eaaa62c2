/*
conflict.go - Temporal-conflict detection across sibling periods

CONTRACT:
  CheckConflicts(candidate, siblings) -> ConflictReport

  Spans are half-open intervals [start, finish). An overlap with any sibling
  is a hard failure; persistence must not proceed. A gap of more than 15
  minutes between adjacent periods is a soft warning which the workflow lets
  through only when a note is attached to the candidate or an adjacent
  period.

  Both checks scope strictly to one (worker, calendar date); the caller is
  responsible for passing only same-day siblings. The workflow runs this
  inside the store transaction so the read-then-write is atomic with respect
  to racing submissions for the same worker and date.
*/
package period

import "sort"

// ConflictReport is the detector's result. Overlap, when set, names the
// first conflicting sibling. Gap, when set, describes the first uncovered
// interval adjacent to the candidate.
type ConflictReport struct {
	Overlap *string
	Gap     *GapWarning
}

// CheckConflicts inspects the candidate against the full set of existing
// periods for the same worker and calendar day. The candidate itself is
// excluded from siblings by ID, so the check works for edits too.
func CheckConflicts(candidate *TimePeriod, siblings []*TimePeriod) ConflictReport {
	var report ConflictReport

	others := make([]*TimePeriod, 0, len(siblings))
	for _, s := range siblings {
		if s.ID != candidate.ID {
			others = append(others, s)
		}
	}

	// Overlap: candidate.start < sibling.finish AND candidate.finish > sibling.start.
	for _, s := range others {
		if candidate.Start.Before(s.Finish) && candidate.Finish.After(s.Start) {
			id := s.ID
			report.Overlap = &id
			return report
		}
	}

	// Gap scan: merge, sort by start, inspect the pairs the candidate is
	// part of. Pre-existing gaps between untouched siblings are not the
	// candidate's problem.
	merged := append(append([]*TimePeriod(nil), others...), candidate)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })

	for i := 1; i < len(merged); i++ {
		prev, next := merged[i-1], merged[i]
		if prev.ID != candidate.ID && next.ID != candidate.ID {
			continue
		}
		gap := int(next.Start.Sub(prev.Finish).Minutes())
		if gap > 15 {
			report.Gap = &GapWarning{
				GapMinutes: gap,
				BeforeID:   prev.ID,
				AfterID:    next.ID,
			}
			return report
		}
	}

	return report
}
