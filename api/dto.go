/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Period:
    PeriodDTO, PeriodPayload, SubmitPeriodRequest, EditPeriodRequest,
    ApprovalRequest, DeletePeriodRequest

  Children:
    BreakDTO, EquipmentRefDTO, PayRateDTO

  Revisions:
    RevisionEntryDTO

  Limits:
    LimitsDTO

TIME FORMATS:
  work_date uses 2006-01-02; instants use RFC3339. Decimal fields
  (concrete_qty, pay-rate hours) are JSON numbers backed by
  decimal.Decimal, never float64.

SEE ALSO:
  - handlers.go: Uses these types
  - period/types.go: Domain model these map to/from
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitework/period-engine/period"
)

const (
	dateLayout = "2006-01-02"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PeriodDTO represents a period in API responses.
type PeriodDTO struct {
	ID       string `json:"id"`
	WorkerID string `json:"worker_id"`

	ProjectID      *string `json:"project_id,omitempty"`
	PlantID        *string `json:"plant_id,omitempty"`
	WorkshopTaskID *string `json:"workshop_task_id,omitempty"`

	WorkDate string `json:"work_date"`
	Start    string `json:"start_time"`
	Finish   string `json:"finish_time"`

	Status           string `json:"status"`
	RevisionNumber   int    `json:"revision_number"`
	SupervisorEdited bool   `json:"supervisor_edited"`
	AdminEdited      bool   `json:"admin_edited"`

	Note string `json:"note,omitempty"`

	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	AccuracyM *float64 `json:"accuracy_m,omitempty"`

	TravelToSiteMin   int  `json:"travel_to_site_min"`
	TravelFromSiteMin int  `json:"travel_from_site_min"`
	MiscAllowanceMin  int  `json:"misc_allowance_min"`
	OnCall            bool `json:"on_call"`

	ConcreteMixType string           `json:"concrete_mix_type,omitempty"`
	ConcreteQty     *decimal.Decimal `json:"concrete_qty,omitempty"`

	SubmittedBy string `json:"submitted_by"`
	SubmittedAt string `json:"submitted_at"`

	Breaks             []BreakDTO        `json:"breaks"`
	UsedEquipment      []EquipmentRefDTO `json:"used_equipment"`
	MobilisedEquipment []EquipmentRefDTO `json:"mobilised_equipment"`
	PayRates           []PayRateDTO      `json:"pay_rates"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// BreakDTO represents one break inside a period.
type BreakDTO struct {
	ID     string  `json:"id,omitempty"`
	Start  string  `json:"break_start"`
	Finish *string `json:"break_finish,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// EquipmentRefDTO links a period to a plant catalog item.
type EquipmentRefDTO struct {
	ID      string `json:"id,omitempty"`
	PlantID string `json:"plant_id"`
}

// PayRateDTO assigns hours to one rate category.
type PayRateDTO struct {
	ID               string          `json:"id,omitempty"`
	Category         string          `json:"category"`
	Hours            decimal.Decimal `json:"hours"`
	MinutesRemainder int             `json:"minutes_remainder"`
}

// RevisionEntryDTO represents one audit trail entry.
type RevisionEntryDTO struct {
	ID             string `json:"id"`
	PeriodID       string `json:"period_id"`
	RevisionNumber int    `json:"revision_number"`
	Timestamp      string `json:"timestamp"`
	ActorID        string `json:"actor_id"`
	ActorRole      string `json:"actor_role"`
	ChangeType     string `json:"change_type"`
	Stage          string `json:"stage"`
	FieldName      string `json:"field_name"`
	OldValue       string `json:"old_value"`
	NewValue       string `json:"new_value"`
	IsRevision     bool   `json:"is_revision"`
	IsApproval     bool   `json:"is_approval"`
	IsEdit         bool   `json:"is_edit"`
}

// LimitsDTO represents the shared child-collection ceilings.
type LimitsDTO struct {
	MaxBreaks             int `json:"max_breaks"`
	MaxUsedEquipment      int `json:"max_used_equipment"`
	MaxMobilisedEquipment int `json:"max_mobilised_equipment"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  []FieldErrorDTO   `json:"fields,omitempty"`
	Gap     *GapWarningDTO    `json:"gap,omitempty"`
	Stale   *StaleRevisionDTO `json:"stale,omitempty"`
}

// FieldErrorDTO names one validation failure.
type FieldErrorDTO struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// GapWarningDTO carries the soft-warning payload for uncovered time.
type GapWarningDTO struct {
	GapMinutes int    `json:"gap_minutes"`
	BeforeID   string `json:"before_id,omitempty"`
	AfterID    string `json:"after_id,omitempty"`
}

// StaleRevisionDTO tells the client which revision the server holds.
type StaleRevisionDTO struct {
	SuppliedRevision int `json:"supplied_revision"`
	StoredRevision   int `json:"stored_revision"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// PeriodPayload is the writable surface of a period, shared by submit,
// owner edit and edit-then-approve requests.
type PeriodPayload struct {
	WorkerID string `json:"worker_id"`

	ProjectID      *string `json:"project_id,omitempty"`
	PlantID        *string `json:"plant_id,omitempty"`
	WorkshopTaskID *string `json:"workshop_task_id,omitempty"`

	WorkDate string `json:"work_date"`
	Start    string `json:"start_time"`
	Finish   string `json:"finish_time"`

	Note string `json:"note,omitempty"`

	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	AccuracyM *float64 `json:"accuracy_m,omitempty"`

	TravelToSiteMin   int  `json:"travel_to_site_min"`
	TravelFromSiteMin int  `json:"travel_from_site_min"`
	MiscAllowanceMin  int  `json:"misc_allowance_min"`
	OnCall            bool `json:"on_call"`

	ConcreteMixType string           `json:"concrete_mix_type,omitempty"`
	ConcreteQty     *decimal.Decimal `json:"concrete_qty,omitempty"`

	Breaks             []BreakDTO        `json:"breaks,omitempty"`
	UsedEquipment      []EquipmentRefDTO `json:"used_equipment,omitempty"`
	MobilisedEquipment []EquipmentRefDTO `json:"mobilised_equipment,omitempty"`
	PayRates           []PayRateDTO      `json:"pay_rates,omitempty"`
}

// SubmitPeriodRequest creates a new period.
type SubmitPeriodRequest struct {
	PeriodPayload
}

// EditPeriodRequest applies owner changes to a Submitted period.
// BaseRevision is the revision number the client last read.
type EditPeriodRequest struct {
	PeriodPayload
	BaseRevision int `json:"base_revision"`
}

// ApprovalRequest advances a period one stage. Edits, when present, are
// applied before the stage change and bump the revision number.
type ApprovalRequest struct {
	BaseRevision int            `json:"base_revision"`
	Edits        *PeriodPayload `json:"edits,omitempty"`
}

// DeletePeriodRequest removes a Submitted period.
type DeletePeriodRequest struct {
	BaseRevision int `json:"base_revision"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ToDomain converts the payload into a domain period. ID is left empty for
// submissions; edits set it from the URL before calling the workflow.
func (p *PeriodPayload) ToDomain() (*period.TimePeriod, error) {
	workDate, err := time.ParseInLocation(dateLayout, p.WorkDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid work_date %q: %w", p.WorkDate, err)
	}
	start, err := time.Parse(time.RFC3339, p.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time %q: %w", p.Start, err)
	}
	finish, err := time.Parse(time.RFC3339, p.Finish)
	if err != nil {
		return nil, fmt.Errorf("invalid finish_time %q: %w", p.Finish, err)
	}

	tp := &period.TimePeriod{
		WorkerID:          p.WorkerID,
		ProjectID:         p.ProjectID,
		PlantID:           p.PlantID,
		WorkshopTaskID:    p.WorkshopTaskID,
		WorkDate:          workDate,
		Start:             start.UTC(),
		Finish:            finish.UTC(),
		Note:              p.Note,
		Lat:               p.Lat,
		Lon:               p.Lon,
		AccuracyM:         p.AccuracyM,
		TravelToSiteMin:   p.TravelToSiteMin,
		TravelFromSiteMin: p.TravelFromSiteMin,
		MiscAllowanceMin:  p.MiscAllowanceMin,
		OnCall:            p.OnCall,
		ConcreteMixType:   p.ConcreteMixType,
		ConcreteQty:       p.ConcreteQty,
	}

	for _, b := range p.Breaks {
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid break_start %q: %w", b.Start, err)
		}
		brk := period.Break{
			ID:     b.ID,
			Start:  start.UTC(),
			Reason: b.Reason,
		}
		if b.Finish != nil && *b.Finish != "" {
			finish, err := time.Parse(time.RFC3339, *b.Finish)
			if err != nil {
				return nil, fmt.Errorf("invalid break_finish %q: %w", *b.Finish, err)
			}
			f := finish.UTC()
			brk.Finish = &f
		}
		tp.Breaks = append(tp.Breaks, brk)
	}

	for _, e := range p.UsedEquipment {
		tp.UsedEquipment = append(tp.UsedEquipment, period.EquipmentRef{
			ID:      e.ID,
			PlantID: e.PlantID,
			Kind:    period.EquipmentUsed,
		})
	}
	for _, e := range p.MobilisedEquipment {
		tp.MobilisedEquipment = append(tp.MobilisedEquipment, period.EquipmentRef{
			ID:      e.ID,
			PlantID: e.PlantID,
			Kind:    period.EquipmentMobilised,
		})
	}

	for _, r := range p.PayRates {
		tp.PayRates = append(tp.PayRates, period.PayRateAllocation{
			ID:               r.ID,
			Category:         period.RateCategory(r.Category),
			Hours:            r.Hours,
			MinutesRemainder: r.MinutesRemainder,
		})
	}

	return tp, nil
}

func toPeriodDTO(p *period.TimePeriod) PeriodDTO {
	dto := PeriodDTO{
		ID:                p.ID,
		WorkerID:          p.WorkerID,
		ProjectID:         p.ProjectID,
		PlantID:           p.PlantID,
		WorkshopTaskID:    p.WorkshopTaskID,
		WorkDate:          p.WorkDate.Format(dateLayout),
		Start:             p.Start.Format(time.RFC3339),
		Finish:            p.Finish.Format(time.RFC3339),
		Status:            string(p.Status),
		RevisionNumber:    p.RevisionNumber,
		SupervisorEdited:  p.SupervisorEdited,
		AdminEdited:       p.AdminEdited,
		Note:              p.Note,
		Lat:               p.Lat,
		Lon:               p.Lon,
		AccuracyM:         p.AccuracyM,
		TravelToSiteMin:   p.TravelToSiteMin,
		TravelFromSiteMin: p.TravelFromSiteMin,
		MiscAllowanceMin:  p.MiscAllowanceMin,
		OnCall:            p.OnCall,
		ConcreteMixType:   p.ConcreteMixType,
		ConcreteQty:       p.ConcreteQty,
		SubmittedBy:       p.SubmittedBy,
		SubmittedAt:       p.SubmittedAt.Format(time.RFC3339),
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),

		Breaks:             []BreakDTO{},
		UsedEquipment:      []EquipmentRefDTO{},
		MobilisedEquipment: []EquipmentRefDTO{},
		PayRates:           []PayRateDTO{},
	}

	for _, b := range p.Breaks {
		bd := BreakDTO{
			ID:     b.ID,
			Start:  b.Start.Format(time.RFC3339),
			Reason: b.Reason,
		}
		if b.Finish != nil {
			f := b.Finish.Format(time.RFC3339)
			bd.Finish = &f
		}
		dto.Breaks = append(dto.Breaks, bd)
	}
	for _, e := range p.UsedEquipment {
		dto.UsedEquipment = append(dto.UsedEquipment, EquipmentRefDTO{ID: e.ID, PlantID: e.PlantID})
	}
	for _, e := range p.MobilisedEquipment {
		dto.MobilisedEquipment = append(dto.MobilisedEquipment, EquipmentRefDTO{ID: e.ID, PlantID: e.PlantID})
	}
	for _, r := range p.PayRates {
		dto.PayRates = append(dto.PayRates, PayRateDTO{
			ID:               r.ID,
			Category:         string(r.Category),
			Hours:            r.Hours,
			MinutesRemainder: r.MinutesRemainder,
		})
	}

	return dto
}

func toRevisionDTO(e period.RevisionEntry) RevisionEntryDTO {
	return RevisionEntryDTO{
		ID:             e.ID,
		PeriodID:       e.PeriodID,
		RevisionNumber: e.RevisionNumber,
		Timestamp:      e.Timestamp.Format(time.RFC3339Nano),
		ActorID:        e.ActorID,
		ActorRole:      string(e.ActorRole),
		ChangeType:     string(e.ChangeType),
		Stage:          string(e.Stage),
		FieldName:      e.FieldName,
		OldValue:       e.OldValue,
		NewValue:       e.NewValue,
		IsRevision:     e.IsRevision,
		IsApproval:     e.IsApproval,
		IsEdit:         e.IsEdit,
	}
}
