/*
revision.go - Field-level revision recorder

CONTRACT:
  Record(prior, next, actor, changeType, at) -> []RevisionEntry

  Diffs every mutable scalar field between two snapshots of a period and
  emits one entry per differing field with old/new textual values. Child
  collections are not individually revisioned: a change anywhere inside one
  is recorded as a single parent-level entry naming the collection
  (breaks, used_equipment, mobilised_equipment, pay_rates).

  For pure status transitions with no field differences, exactly one
  synthetic entry describes the status change itself. Submission (prior nil)
  and deletion (next nil) are also synthetic single entries.

  Actors are identified strictly by their stable identifier, never by
  display name.
*/
package period

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldChange is one differing field between two snapshots.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// snapshotFields fixes the diff order so revision entries come out stable.
var snapshotFields = []string{
	"work_date",
	"start_time",
	"finish_time",
	"project_id",
	"plant_id",
	"workshop_task_id",
	"note",
	"travel_to_site_min",
	"travel_from_site_min",
	"misc_allowance_min",
	"on_call",
	"concrete_mix_type",
	"concrete_qty",
	"breaks",
	"used_equipment",
	"mobilised_equipment",
	"pay_rates",
}

// Record computes the revision entries for one workflow transition.
// prior is nil on submission, next is nil on deletion.
func Record(prior, next *TimePeriod, actor Actor, changeType ChangeType, at time.Time) []RevisionEntry {
	base := RevisionEntry{
		Timestamp:  at,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		ChangeType: changeType,
		IsRevision: changeType == ChangeSupervisorEdit || changeType == ChangeAdminEdit,
		IsApproval: changeType == ChangeSupervisorApproval || changeType == ChangeAdminApproval,
		IsEdit:     changeType == ChangeOwnerEdit || changeType == ChangeSupervisorEdit || changeType == ChangeAdminEdit,
	}

	switch {
	case prior == nil:
		base.ID = uuid.NewString()
		base.PeriodID = next.ID
		base.RevisionNumber = next.RevisionNumber
		base.Stage = next.Status
		base.FieldName = "status"
		base.NewValue = string(next.Status)
		return []RevisionEntry{base}

	case next == nil:
		base.ID = uuid.NewString()
		base.PeriodID = prior.ID
		base.RevisionNumber = prior.RevisionNumber
		base.Stage = prior.Status
		base.FieldName = "status"
		base.OldValue = string(prior.Status)
		base.NewValue = "deleted"
		return []RevisionEntry{base}
	}

	base.PeriodID = next.ID
	base.RevisionNumber = next.RevisionNumber
	base.Stage = prior.Status

	changes := Diff(prior, next)
	if len(changes) == 0 {
		// Pure status transition: one synthetic entry.
		base.ID = uuid.NewString()
		base.FieldName = "status"
		base.OldValue = string(prior.Status)
		base.NewValue = string(next.Status)
		return []RevisionEntry{base}
	}

	entries := make([]RevisionEntry, len(changes))
	for i, c := range changes {
		e := base
		e.ID = uuid.NewString()
		e.FieldName = c.Field
		e.OldValue = c.Old
		e.NewValue = c.New
		entries[i] = e
	}
	return entries
}

// Diff returns the mutable fields whose textual representations differ
// between the two snapshots, in snapshotFields order.
func Diff(prior, next *TimePeriod) []FieldChange {
	a := snapshot(prior)
	b := snapshot(next)

	var changes []FieldChange
	for _, f := range snapshotFields {
		if a[f] != b[f] {
			changes = append(changes, FieldChange{Field: f, Old: a[f], New: b[f]})
		}
	}
	return changes
}

// snapshot renders every mutable field to its canonical textual form.
// System and audit fields (status, revision counter, edited flags,
// submission capture, geolocation, timestamps) are excluded.
func snapshot(p *TimePeriod) map[string]string {
	m := map[string]string{
		"work_date":            formatDate(p.WorkDate),
		"start_time":           formatClock(p.Start),
		"finish_time":          formatClock(p.Finish),
		"project_id":           strOrEmpty(p.ProjectID),
		"plant_id":             strOrEmpty(p.PlantID),
		"workshop_task_id":     strOrEmpty(p.WorkshopTaskID),
		"note":                 p.Note,
		"travel_to_site_min":   strconv.Itoa(p.TravelToSiteMin),
		"travel_from_site_min": strconv.Itoa(p.TravelFromSiteMin),
		"misc_allowance_min":   strconv.Itoa(p.MiscAllowanceMin),
		"on_call":              strconv.FormatBool(p.OnCall),
		"concrete_mix_type":    p.ConcreteMixType,
		"breaks":               breaksFingerprint(p.Breaks),
		"used_equipment":       equipmentFingerprint(p.UsedEquipment),
		"mobilised_equipment":  equipmentFingerprint(p.MobilisedEquipment),
		"pay_rates":            payRatesFingerprint(p.PayRates),
	}
	if p.ConcreteQty != nil {
		m["concrete_qty"] = p.ConcreteQty.String()
	} else {
		m["concrete_qty"] = ""
	}
	return m
}

func breaksFingerprint(breaks []Break) string {
	sorted := append([]Break(nil), breaks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DisplayOrder < sorted[j].DisplayOrder })

	parts := make([]string, len(sorted))
	for i, b := range sorted {
		finish := "open"
		if b.Finish != nil {
			finish = formatClock(*b.Finish)
		}
		parts[i] = fmt.Sprintf("%s-%s", formatClock(b.Start), finish)
		if b.Reason != "" {
			parts[i] += " (" + b.Reason + ")"
		}
	}
	return strings.Join(parts, ", ")
}

func equipmentFingerprint(refs []EquipmentRef) string {
	sorted := append([]EquipmentRef(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DisplayOrder < sorted[j].DisplayOrder })

	parts := make([]string, len(sorted))
	for i, r := range sorted {
		parts[i] = r.PlantID
	}
	return strings.Join(parts, ", ")
}

func payRatesFingerprint(rates []PayRateAllocation) string {
	sorted := append([]PayRateAllocation(nil), rates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Category < sorted[j].Category })

	parts := make([]string, len(sorted))
	for i, r := range sorted {
		parts[i] = fmt.Sprintf("%s=%sh", r.Category, r.Hours.String())
		if r.MinutesRemainder != 0 {
			parts[i] += fmt.Sprintf("+%dm", r.MinutesRemainder)
		}
	}
	return strings.Join(parts, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04")
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
