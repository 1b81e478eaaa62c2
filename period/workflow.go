package period

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// WORKFLOW - Orchestrates every transition as one atomic unit
// =============================================================================

// Workflow sequences Access Policy -> Validator -> Conflict Detector ->
// persistence -> Revision Recorder for each transition. Any failure at any
// step aborts the whole unit; nothing is partially committed.
//
// Transitions (linear, no regression):
//
//	submit                    owner,       no prior record    -> Submitted
//	ownerEdit                 owner,       Submitted          status unchanged
//	supervisorApprove         supervisor+, Submitted          -> SupervisorApproved
//	supervisorEditThenApprove supervisor+, Submitted, edits   -> SupervisorApproved, revision+1
//	adminApprove              admin,       SupervisorApproved -> AdminApproved
//	adminEditThenApprove      admin,       SupervisorApproved -> AdminApproved, revision+1
//	delete                    owner,       Submitted          period removed, revisions kept
type Workflow struct {
	Store TxStore

	// Clock supplies "now" for not-in-the-future checks and revision
	// timestamps. Defaults to time.Now; tests inject a fixed clock.
	Clock func() time.Time
}

// NewWorkflow creates a workflow engine on top of a transactional store.
func NewWorkflow(store TxStore) *Workflow {
	return &Workflow{Store: store, Clock: time.Now}
}

func (w *Workflow) now() time.Time {
	if w.Clock != nil {
		return w.Clock().UTC()
	}
	return time.Now().UTC()
}

// =============================================================================
// SUBMIT - Owner creates a new period
// =============================================================================

// Submit creates a period on behalf of its owning worker. The period enters
// the workflow as Submitted with revision number 0 and one submission
// revision entry.
func (w *Workflow) Submit(ctx context.Context, actor Actor, p *TimePeriod) (*TimePeriod, error) {
	if !IsOwner(actor, p) {
		return nil, &PermissionError{ActorID: actor.ID, Operation: "submit a period for another worker"}
	}

	now := w.now()
	candidate := p.Clone()
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	candidate.Status = StatusSubmitted
	candidate.RevisionNumber = 0
	candidate.SupervisorEdited = false
	candidate.AdminEdited = false
	candidate.SubmittedBy = actor.ID
	candidate.SubmittedAt = now
	candidate.CreatedAt = now
	candidate.UpdatedAt = now
	normalizeChildren(candidate)

	err := w.Store.WithTx(ctx, func(s Store) error {
		// A submit must create, never replace. Overwriting an existing
		// record would skip the overlap check against its own prior span.
		if _, err := s.GetPeriod(ctx, candidate.ID); err == nil {
			return fmt.Errorf("%w: %s", ErrPeriodExists, candidate.ID)
		} else if !errors.Is(err, ErrPeriodNotFound) {
			return err
		}
		if err := w.runChecks(ctx, s, candidate, now); err != nil {
			return err
		}
		if err := s.CreatePeriod(ctx, candidate); err != nil {
			return fmt.Errorf("persisting period: %w", err)
		}
		entries := Record(nil, candidate, actor, ChangeSubmission, now)
		if err := s.AppendRevisions(ctx, entries); err != nil {
			return fmt.Errorf("recording submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

// =============================================================================
// OWNER EDIT - In-place mutation while still Submitted
// =============================================================================

// Edit applies the owner's changes to a Submitted period. The status and
// revision number are unchanged; one owner_edit entry is written per changed
// field. baseRevision is the revision number the caller last read.
func (w *Workflow) Edit(ctx context.Context, actor Actor, updated *TimePeriod, baseRevision int) (*TimePeriod, error) {
	now := w.now()
	var result *TimePeriod

	err := w.Store.WithTx(ctx, func(s Store) error {
		current, err := s.GetPeriod(ctx, updated.ID)
		if err != nil {
			return err
		}
		if !IsOwner(actor, current) {
			return &PermissionError{ActorID: actor.ID, Operation: "edit this period"}
		}
		if err := requireStatus(current, StatusSubmitted, "edit"); err != nil {
			return err
		}
		if err := requireRevision(current, baseRevision); err != nil {
			return err
		}

		next := applyEdits(current, updated)
		next.UpdatedAt = now

		if len(Diff(current, next)) == 0 {
			result = current
			return nil // nothing changed, nothing to record
		}

		if err := w.runChecks(ctx, s, next, now); err != nil {
			return err
		}
		if err := s.UpdatePeriod(ctx, next, current.RevisionNumber); err != nil {
			return fmt.Errorf("persisting period: %w", err)
		}
		entries := Record(current, next, actor, ChangeOwnerEdit, now)
		if err := s.AppendRevisions(ctx, entries); err != nil {
			return fmt.Errorf("recording edit: %w", err)
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// APPROVALS - Supervisor and admin stages, with and without edits
// =============================================================================

// ApproveAsSupervisor moves a Submitted period to SupervisorApproved.
// When edits is non-nil and actually changes fields, the revision number is
// incremented, the edited-before-approval flag is set, and one
// supervisor_edit entry is written per changed field; otherwise a single
// supervisor_approval entry records the status change.
func (w *Workflow) ApproveAsSupervisor(ctx context.Context, actor Actor, periodID string, baseRevision int, edits *TimePeriod) (*TimePeriod, error) {
	if !IsSupervisorOrManager(actor) {
		return nil, &PermissionError{ActorID: actor.ID, Operation: "approve as supervisor"}
	}
	return w.approve(ctx, actor, periodID, baseRevision, edits, approvalSpec{
		from:     StatusSubmitted,
		to:       StatusSupervisorApproved,
		editType: ChangeSupervisorEdit,
		pureType: ChangeSupervisorApproval,
		markEdited: func(p *TimePeriod) {
			p.SupervisorEdited = true
		},
	})
}

// ApproveAsAdmin moves a SupervisorApproved period to AdminApproved, the
// terminal stage. Edit semantics mirror ApproveAsSupervisor.
func (w *Workflow) ApproveAsAdmin(ctx context.Context, actor Actor, periodID string, baseRevision int, edits *TimePeriod) (*TimePeriod, error) {
	if !IsAdmin(actor) {
		return nil, &PermissionError{ActorID: actor.ID, Operation: "approve as admin"}
	}
	return w.approve(ctx, actor, periodID, baseRevision, edits, approvalSpec{
		from:     StatusSupervisorApproved,
		to:       StatusAdminApproved,
		editType: ChangeAdminEdit,
		pureType: ChangeAdminApproval,
		markEdited: func(p *TimePeriod) {
			p.AdminEdited = true
		},
	})
}

type approvalSpec struct {
	from       Status
	to         Status
	editType   ChangeType
	pureType   ChangeType
	markEdited func(*TimePeriod)
}

func (w *Workflow) approve(ctx context.Context, actor Actor, periodID string, baseRevision int, edits *TimePeriod, spec approvalSpec) (*TimePeriod, error) {
	now := w.now()
	var result *TimePeriod

	err := w.Store.WithTx(ctx, func(s Store) error {
		current, err := s.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if err := requireStatus(current, spec.from, "approve"); err != nil {
			return err
		}
		if err := requireRevision(current, baseRevision); err != nil {
			return err
		}
		if !current.Status.CanAdvanceTo(spec.to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, spec.to)
		}

		next := current.Clone()
		if edits != nil {
			next = applyEdits(current, edits)
		}
		next.UpdatedAt = now

		changeType := spec.pureType
		if len(Diff(current, next)) > 0 {
			if err := w.runChecks(ctx, s, next, now); err != nil {
				return err
			}
			next.RevisionNumber++
			spec.markEdited(next)
			changeType = spec.editType
		}
		next.Status = spec.to

		if err := s.UpdatePeriod(ctx, next, current.RevisionNumber); err != nil {
			return fmt.Errorf("persisting period: %w", err)
		}
		entries := Record(current, next, actor, changeType, now)
		if err := s.AppendRevisions(ctx, entries); err != nil {
			return fmt.Errorf("recording approval: %w", err)
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// DELETE - Owner removes a period that is still Submitted
// =============================================================================

// Delete removes a Submitted period on behalf of its owner. Children cascade
// with it; revision entries survive and a final deletion entry is appended.
func (w *Workflow) Delete(ctx context.Context, actor Actor, periodID string, baseRevision int) error {
	now := w.now()

	return w.Store.WithTx(ctx, func(s Store) error {
		current, err := s.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if !IsOwner(actor, current) {
			return &PermissionError{ActorID: actor.ID, Operation: "delete this period"}
		}
		if err := requireStatus(current, StatusSubmitted, "delete"); err != nil {
			return err
		}
		if err := requireRevision(current, baseRevision); err != nil {
			return err
		}

		if err := s.DeletePeriod(ctx, periodID); err != nil {
			return fmt.Errorf("deleting period: %w", err)
		}
		entries := Record(current, nil, actor, ChangeDeletion, now)
		if err := s.AppendRevisions(ctx, entries); err != nil {
			return fmt.Errorf("recording deletion: %w", err)
		}
		return nil
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns one period with its children.
func (w *Workflow) Get(ctx context.Context, id string) (*TimePeriod, error) {
	return w.Store.GetPeriod(ctx, id)
}

// List returns periods matching the filter.
func (w *Workflow) List(ctx context.Context, filter ListFilter) ([]*TimePeriod, error) {
	return w.Store.ListPeriods(ctx, filter)
}

// ListRevisions returns the full revision trail for a period, oldest first.
// The trail outlives the period itself.
func (w *Workflow) ListRevisions(ctx context.Context, periodID string) ([]RevisionEntry, error) {
	return w.Store.ListRevisions(ctx, periodID)
}

// =============================================================================
// SHARED TRANSITION STEPS
// =============================================================================

// runChecks runs the validator and the conflict detector for a
// create/edit. It must be called inside the store transaction so the sibling
// read is atomic with the candidate's write.
func (w *Workflow) runChecks(ctx context.Context, s Store, candidate *TimePeriod, now time.Time) error {
	limits, err := s.GetLimits(ctx)
	if err != nil {
		return fmt.Errorf("loading limits: %w", err)
	}
	if fieldErrs := Validate(candidate, limits, now); len(fieldErrs) > 0 {
		return &ValidationError{Fields: fieldErrs}
	}

	siblings, err := s.ListForWorkerDate(ctx, candidate.WorkerID, candidate.WorkDate)
	if err != nil {
		return fmt.Errorf("loading sibling periods: %w", err)
	}
	report := CheckConflicts(candidate, siblings)
	if report.Overlap != nil {
		return &ConflictError{PeriodID: candidate.ID, ConflictingPeriodID: *report.Overlap}
	}
	if report.Gap != nil && !gapAcknowledged(candidate, report.Gap, siblings) {
		return report.Gap
	}
	return nil
}

// gapAcknowledged reports whether the caller may proceed past a gap warning:
// a note must be attached to the candidate or to one of the periods adjacent
// to the gap.
func gapAcknowledged(candidate *TimePeriod, gap *GapWarning, siblings []*TimePeriod) bool {
	if strings.TrimSpace(candidate.Note) != "" {
		return true
	}
	for _, s := range siblings {
		if s.ID != gap.BeforeID && s.ID != gap.AfterID {
			continue
		}
		if strings.TrimSpace(s.Note) != "" {
			return true
		}
	}
	return false
}

func requireStatus(p *TimePeriod, want Status, op string) error {
	if p.Status == want {
		return nil
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: cannot %s", ErrStatusTerminal, op)
	}
	return fmt.Errorf("%w: cannot %s a period in status %s", ErrInvalidTransition, op, p.Status)
}

func requireRevision(p *TimePeriod, baseRevision int) error {
	if p.RevisionNumber != baseRevision {
		return &ConcurrencyError{
			PeriodID:         p.ID,
			SuppliedRevision: baseRevision,
			StoredRevision:   p.RevisionNumber,
		}
	}
	return nil
}

// applyEdits produces the next snapshot: current's identity, status and
// audit fields with updated's mutable fields and children layered on top.
func applyEdits(current, updated *TimePeriod) *TimePeriod {
	next := current.Clone()

	next.WorkDate = updated.WorkDate
	next.Start = updated.Start
	next.Finish = updated.Finish
	next.ProjectID = cloneStr(updated.ProjectID)
	next.PlantID = cloneStr(updated.PlantID)
	next.WorkshopTaskID = cloneStr(updated.WorkshopTaskID)
	next.Note = updated.Note
	next.TravelToSiteMin = updated.TravelToSiteMin
	next.TravelFromSiteMin = updated.TravelFromSiteMin
	next.MiscAllowanceMin = updated.MiscAllowanceMin
	next.OnCall = updated.OnCall
	next.ConcreteMixType = updated.ConcreteMixType
	if updated.ConcreteQty != nil {
		q := *updated.ConcreteQty
		next.ConcreteQty = &q
	} else {
		next.ConcreteQty = nil
	}

	next.Breaks = append([]Break(nil), updated.Breaks...)
	next.UsedEquipment = append([]EquipmentRef(nil), updated.UsedEquipment...)
	next.MobilisedEquipment = append([]EquipmentRef(nil), updated.MobilisedEquipment...)
	next.PayRates = append([]PayRateAllocation(nil), updated.PayRates...)
	normalizeChildren(next)

	return next
}

// normalizeChildren stamps the parent id, fresh identifiers and stable
// display order onto a replacement child set.
func normalizeChildren(p *TimePeriod) {
	for i := range p.Breaks {
		if p.Breaks[i].ID == "" {
			p.Breaks[i].ID = uuid.NewString()
		}
		p.Breaks[i].PeriodID = p.ID
		p.Breaks[i].DisplayOrder = i
	}
	for i := range p.UsedEquipment {
		if p.UsedEquipment[i].ID == "" {
			p.UsedEquipment[i].ID = uuid.NewString()
		}
		p.UsedEquipment[i].PeriodID = p.ID
		p.UsedEquipment[i].Kind = EquipmentUsed
		p.UsedEquipment[i].DisplayOrder = i
	}
	for i := range p.MobilisedEquipment {
		if p.MobilisedEquipment[i].ID == "" {
			p.MobilisedEquipment[i].ID = uuid.NewString()
		}
		p.MobilisedEquipment[i].PeriodID = p.ID
		p.MobilisedEquipment[i].Kind = EquipmentMobilised
		p.MobilisedEquipment[i].DisplayOrder = i
	}
	for i := range p.PayRates {
		if p.PayRates[i].ID == "" {
			p.PayRates[i].ID = uuid.NewString()
		}
		p.PayRates[i].PeriodID = p.ID
	}
}
