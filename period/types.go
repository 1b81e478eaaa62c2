/*
Package period implements the time-period workflow and integrity engine.

PURPOSE:
  Field workers submit discrete work-time entries ("periods") for a single
  calendar date. Supervisors review and approve them, administrators give
  final approval. This package owns everything that must hold once a period
  reaches the engine, regardless of how it got here:

  - the status state machine (Submitted -> SupervisorApproved -> AdminApproved)
  - the field-level revision ledger recording every privileged change
  - the temporal-conflict detector (overlaps are hard failures, gaps are
    soft warnings)
  - validation and normalization (15-minute granularity, bounded child
    collections)

KEY CONCEPTS IN THIS FILE (types.go):
  - TimePeriod: one worker's claimed work interval on one calendar date
  - Break / EquipmentRef / PayRateAllocation: bounded, ordered child
    collections owned by a period
  - RevisionEntry: an immutable audit record, one per changed field
  - Actor: the caller's identity snapshot (role label + privilege level)
  - Status: the approval stage, moved only by workflow transitions

DESIGN PRINCIPLES:
  1. Immutability: revision entries are never updated or deleted
  2. Precision: pay-rate hours use decimal.Decimal, never float64
  3. Single source of truth: access thresholds live in access.go only
  4. Atomicity: each workflow transition is one all-or-nothing unit

SEE ALSO:
  - workflow.go: the orchestrator sequencing all components
  - validate.go: structural and granularity checks
  - conflict.go: overlap/gap detection across sibling periods
  - revision.go: field-level diffing into revision entries
*/
package period

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Approval stage, advanced only by workflow transitions
// =============================================================================

// Status is the approval stage of a period. The progression is strictly
// linear; there is no regression or rejection transition. Workflow functions
// are the only code allowed to move a period between stages.
type Status string

const (
	StatusSubmitted          Status = "submitted"
	StatusSupervisorApproved Status = "supervisor_approved"
	StatusAdminApproved      Status = "admin_approved" // terminal
)

// Valid reports whether s is one of the known stages.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusSupervisorApproved, StatusAdminApproved:
		return true
	}
	return false
}

// Terminal reports whether no further transition exists from s.
func (s Status) Terminal() bool { return s == StatusAdminApproved }

// CanAdvanceTo reports whether the linear state machine permits moving
// from s to next.
func (s Status) CanAdvanceTo(next Status) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusSupervisorApproved
	case StatusSupervisorApproved:
		return next == StatusAdminApproved
	}
	return false
}

// =============================================================================
// ACTOR - Identity snapshot supplied by the external identity provider
// =============================================================================

type Role string

const (
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

// Actor is the caller's identity at the time of a workflow call.
// Level is a numeric privilege indicator where LOWER means MORE privileged.
type Actor struct {
	ID    string
	Role  Role
	Level int
}

// =============================================================================
// TIME PERIOD - One worker's claimed work interval on one calendar date
// =============================================================================

// TimePeriod is the aggregate root. Start and Finish fall on WorkDate and
// are aligned to 15-minute boundaries; Finish >= Start. Exactly one of
// ProjectID, PlantID, WorkshopTaskID is set (the assignment reference).
type TimePeriod struct {
	ID       string
	WorkerID string

	// Assignment reference - mutually exclusive, exactly one required.
	ProjectID      *string
	PlantID        *string
	WorkshopTaskID *string

	WorkDate time.Time // calendar date, UTC midnight
	Start    time.Time
	Finish   time.Time

	Status         Status
	RevisionNumber int

	// Set when a reviewing role edited the record before approving.
	SupervisorEdited bool
	AdminEdited      bool

	Note string

	// Geolocation captured at submission time, if the device provided one.
	Lat       *float64
	Lon       *float64
	AccuracyM *float64

	// Allowance and travel minutes, all multiples of 15.
	TravelToSiteMin   int
	TravelFromSiteMin int
	MiscAllowanceMin  int
	OnCall            bool

	// Material delivery, when the period covers a concrete run.
	ConcreteMixType string
	ConcreteQty     *decimal.Decimal

	SubmittedBy string
	SubmittedAt time.Time

	Breaks             []Break
	UsedEquipment      []EquipmentRef
	MobilisedEquipment []EquipmentRef
	PayRates           []PayRateAllocation

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssignmentCount returns how many of the mutually exclusive assignment
// references are set. The validator requires exactly one.
func (p *TimePeriod) AssignmentCount() int {
	n := 0
	if p.ProjectID != nil && *p.ProjectID != "" {
		n++
	}
	if p.PlantID != nil && *p.PlantID != "" {
		n++
	}
	if p.WorkshopTaskID != nil && *p.WorkshopTaskID != "" {
		n++
	}
	return n
}

// Clone returns a deep copy. The workflow diffs prior/next snapshots, so
// loaded periods must never be mutated in place.
func (p *TimePeriod) Clone() *TimePeriod {
	if p == nil {
		return nil
	}
	cp := *p
	cp.ProjectID = cloneStr(p.ProjectID)
	cp.PlantID = cloneStr(p.PlantID)
	cp.WorkshopTaskID = cloneStr(p.WorkshopTaskID)
	cp.Lat = cloneFloat(p.Lat)
	cp.Lon = cloneFloat(p.Lon)
	cp.AccuracyM = cloneFloat(p.AccuracyM)
	if p.ConcreteQty != nil {
		q := *p.ConcreteQty
		cp.ConcreteQty = &q
	}
	cp.Breaks = append([]Break(nil), p.Breaks...)
	for i := range cp.Breaks {
		if cp.Breaks[i].Finish != nil {
			f := *cp.Breaks[i].Finish
			cp.Breaks[i].Finish = &f
		}
	}
	cp.UsedEquipment = append([]EquipmentRef(nil), p.UsedEquipment...)
	cp.MobilisedEquipment = append([]EquipmentRef(nil), p.MobilisedEquipment...)
	cp.PayRates = append([]PayRateAllocation(nil), p.PayRates...)
	return &cp
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// =============================================================================
// CHILD COLLECTIONS - Bounded, ordered, owned by the parent period
// =============================================================================

// Break is a rest interval inside the parent period's span. Finish may be
// open while a break is in progress. Breaks must not overlap siblings.
type Break struct {
	ID           string
	PeriodID     string
	Start        time.Time
	Finish       *time.Time
	Reason       string
	DisplayOrder int
}

// EquipmentKind distinguishes the two equipment reference collections.
type EquipmentKind string

const (
	EquipmentUsed      EquipmentKind = "used"
	EquipmentMobilised EquipmentKind = "mobilised"
)

// EquipmentRef links a period to a catalog plant item. PlantID is unique
// within its kind for one period; counts are bounded by SystemLimits.
type EquipmentRef struct {
	ID           string
	PeriodID     string
	PlantID      string
	Kind         EquipmentKind
	DisplayOrder int
}

// RateCategory is the closed set of pay-rate buckets.
type RateCategory string

const (
	RateStandard          RateCategory = "standard"
	RatePremium1          RateCategory = "premium1"
	RatePremium2          RateCategory = "premium2"
	RateStandardNonWorked RateCategory = "standard_nonworked"
	RatePremium1NonWorked RateCategory = "premium1_nonworked"
	RatePremium2NonWorked RateCategory = "premium2_nonworked"
	RateHoliday           RateCategory = "holiday"
)

// Valid reports whether c is one of the known categories.
func (c RateCategory) Valid() bool {
	switch c {
	case RateStandard, RatePremium1, RatePremium2,
		RateStandardNonWorked, RatePremium1NonWorked, RatePremium2NonWorked,
		RateHoliday:
		return true
	}
	return false
}

// PayRateAllocation assigns hours to one rate category. Hours is a multiple
// of 0.25; MinutesRemainder, when non-zero, is one of 15/30/45. One
// allocation per category per period.
type PayRateAllocation struct {
	ID               string
	PeriodID         string
	Category         RateCategory
	Hours            decimal.Decimal
	MinutesRemainder int
}

// =============================================================================
// REVISION ENTRY - Immutable audit record
// =============================================================================

type ChangeType string

const (
	ChangeSubmission         ChangeType = "submission"
	ChangeOwnerEdit          ChangeType = "owner_edit"
	ChangeSupervisorApproval ChangeType = "supervisor_approval"
	ChangeSupervisorEdit     ChangeType = "supervisor_edit"
	ChangeAdminApproval      ChangeType = "admin_approval"
	ChangeAdminEdit          ChangeType = "admin_edit"
	ChangeDeletion           ChangeType = "deletion"
)

// RevisionEntry records one field change (or one synthetic status change for
// pure approvals). Once written it is never updated or deleted; the sqlite
// store enforces this with triggers, and entries outlive their period.
type RevisionEntry struct {
	ID             string
	PeriodID       string
	RevisionNumber int
	Timestamp      time.Time
	ActorID        string
	ActorRole      Role
	ChangeType     ChangeType
	Stage          Status // workflow stage at which the change occurred
	FieldName      string
	OldValue       string
	NewValue       string
	IsRevision     bool // privileged edit made before approving
	IsApproval     bool
	IsEdit         bool
}

// =============================================================================
// SYSTEM LIMITS - Child-collection ceilings, policy values not schema ones
// =============================================================================

const (
	DefaultMaxBreaks             = 3
	DefaultMaxUsedEquipment      = 6
	DefaultMaxMobilisedEquipment = 4
)

// SystemLimits holds the externally supplied count ceilings for the child
// collections. Zero values fall back to the defaults.
type SystemLimits struct {
	MaxBreaks             int
	MaxUsedEquipment      int
	MaxMobilisedEquipment int
}

// DefaultLimits returns the ceilings used when no configuration row exists.
func DefaultLimits() SystemLimits {
	return SystemLimits{
		MaxBreaks:             DefaultMaxBreaks,
		MaxUsedEquipment:      DefaultMaxUsedEquipment,
		MaxMobilisedEquipment: DefaultMaxMobilisedEquipment,
	}
}

// Normalized returns l with zero ceilings replaced by defaults.
func (l SystemLimits) Normalized() SystemLimits {
	d := DefaultLimits()
	if l.MaxBreaks <= 0 {
		l.MaxBreaks = d.MaxBreaks
	}
	if l.MaxUsedEquipment <= 0 {
		l.MaxUsedEquipment = d.MaxUsedEquipment
	}
	if l.MaxMobilisedEquipment <= 0 {
		l.MaxMobilisedEquipment = d.MaxMobilisedEquipment
	}
	return l
}
