/*
handlers.go - HTTP API handlers for the period workflow engine

PURPOSE:
  Exposes the workflow engine via REST API. Handles HTTP request/response,
  JSON serialization, actor extraction, and delegates to domain logic.

ENDPOINTS:
  Periods:
    GET    /api/periods                List periods (filter by worker/date/status)
    POST   /api/periods                Submit a new period
    GET    /api/periods/{id}           Get one period with children
    PUT    /api/periods/{id}           Owner edit (Submitted only)
    DELETE /api/periods/{id}           Owner delete (Submitted only)

  Approvals:
    POST   /api/periods/{id}/supervisor-approval  Advance to supervisor_approved
    POST   /api/periods/{id}/admin-approval       Advance to admin_approved

  Audit:
    GET    /api/periods/{id}/revisions  Full revision trail, oldest first

  Limits:
    GET    /api/limits                 Current child-collection ceilings
    PUT    /api/limits                 Replace ceilings (admin only)

ACTOR EXTRACTION:
  The upstream identity provider forwards the caller as headers:
    X-Actor-ID     caller's worker id
    X-Actor-Level  numeric privilege, lower is more privileged
    X-Actor-Role   worker | supervisor | manager | admin
  A missing or malformed level defaults to an unprivileged value so a
  stripped header can never grant access.

ERROR HANDLING:
  Domain errors map to HTTP statuses:
  - 400: Malformed JSON or unparseable fields
  - 403: Access policy rejection
  - 404: Period not found
  - 409: Overlap conflict, unacknowledged gap, stale revision, bad stage
  - 422: Validation failures (all collected, returned together)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - period/workflow.go: The transitions these handlers call
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitework/period-engine/period"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Workflow *period.Workflow
}

// NewHandler creates a new handler on top of a workflow engine.
func NewHandler(wf *period.Workflow) *Handler {
	return &Handler{Workflow: wf}
}

// unprivilegedLevel is assumed when the level header is absent or malformed.
// Lower means more privileged, so a stripped header grants nothing.
const unprivilegedLevel = 99

func actorFromRequest(r *http.Request) period.Actor {
	level := unprivilegedLevel
	if raw := r.Header.Get("X-Actor-Level"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			level = n
		}
	}
	return period.Actor{
		ID:    r.Header.Get("X-Actor-ID"),
		Role:  period.Role(r.Header.Get("X-Actor-Role")),
		Level: level,
	}
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns periods matching the query filters.
// GET /api/periods?worker_id=&date=&status=
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	var filter period.ListFilter
	filter.WorkerID = r.URL.Query().Get("worker_id")

	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date filter", err)
			return
		}
		filter.Date = &date
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := period.Status(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid status filter", nil)
			return
		}
		filter.Status = &status
	}

	periods, err := h.Workflow.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriod returns one period with its children.
// GET /api/periods/{id}
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.Workflow.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p))
}

// SubmitPeriod creates a new period owned by the calling worker.
// POST /api/periods
func (h *Handler) SubmitPeriod(w http.ResponseWriter, r *http.Request) {
	var req SubmitPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := req.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period payload", err)
		return
	}

	created, err := h.Workflow.Submit(r.Context(), actorFromRequest(r), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(created))
}

// EditPeriod applies owner changes to a Submitted period.
// PUT /api/periods/{id}
func (h *Handler) EditPeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EditPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := req.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period payload", err)
		return
	}
	p.ID = id

	updated, err := h.Workflow.Edit(r.Context(), actorFromRequest(r), p, req.BaseRevision)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(updated))
}

// DeletePeriod removes a Submitted period. The revision trail survives.
// DELETE /api/periods/{id}
func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DeletePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Workflow.Delete(r.Context(), actorFromRequest(r), id, req.BaseRevision); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// APPROVAL HANDLERS
// =============================================================================

// SupervisorApprove advances a Submitted period to supervisor_approved,
// optionally applying edits first. Edits bump the revision number.
// POST /api/periods/{id}/supervisor-approval
func (h *Handler) SupervisorApprove(w http.ResponseWriter, r *http.Request) {
	h.approve(w, r, h.Workflow.ApproveAsSupervisor)
}

// AdminApprove advances a supervisor_approved period to the terminal
// admin_approved stage. Edit semantics mirror SupervisorApprove.
// POST /api/periods/{id}/admin-approval
func (h *Handler) AdminApprove(w http.ResponseWriter, r *http.Request) {
	h.approve(w, r, h.Workflow.ApproveAsAdmin)
}

type approveFunc func(ctx context.Context, actor period.Actor, periodID string, baseRevision int, edits *period.TimePeriod) (*period.TimePeriod, error)

func (h *Handler) approve(w http.ResponseWriter, r *http.Request, fn approveFunc) {
	id := chi.URLParam(r, "id")

	var req ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var edits *period.TimePeriod
	if req.Edits != nil {
		p, err := req.Edits.ToDomain()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid edits payload", err)
			return
		}
		p.ID = id
		edits = p
	}

	approved, err := fn(r.Context(), actorFromRequest(r), id, req.BaseRevision, edits)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(approved))
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListRevisions returns the full revision trail, oldest first. The trail
// outlives the period, so this works for deleted periods too.
// GET /api/periods/{id}/revisions
func (h *Handler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.Workflow.ListRevisions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list revisions", err)
		return
	}

	dtos := make([]RevisionEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toRevisionDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LIMITS HANDLERS
// =============================================================================

// GetLimits returns the current child-collection ceilings.
// GET /api/limits
func (h *Handler) GetLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := h.Workflow.Store.GetLimits(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read limits", err)
		return
	}
	writeJSON(w, http.StatusOK, LimitsDTO{
		MaxBreaks:             limits.MaxBreaks,
		MaxUsedEquipment:      limits.MaxUsedEquipment,
		MaxMobilisedEquipment: limits.MaxMobilisedEquipment,
	})
}

// UpdateLimits replaces the ceilings. Admin only; the new values apply to
// future submissions and edits, never retroactively.
// PUT /api/limits
func (h *Handler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if !period.IsAdmin(actor) {
		writeDomainError(w, &period.PermissionError{ActorID: actor.ID, Operation: "update system limits"})
		return
	}

	var req LimitsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	limits := period.SystemLimits{
		MaxBreaks:             req.MaxBreaks,
		MaxUsedEquipment:      req.MaxUsedEquipment,
		MaxMobilisedEquipment: req.MaxMobilisedEquipment,
	}.Normalized()

	if err := h.Workflow.Store.SaveLimits(r.Context(), limits); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save limits", err)
		return
	}
	writeJSON(w, http.StatusOK, LimitsDTO{
		MaxBreaks:             limits.MaxBreaks,
		MaxUsedEquipment:      limits.MaxUsedEquipment,
		MaxMobilisedEquipment: limits.MaxMobilisedEquipment,
	})
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeDomainError translates domain errors into HTTP responses. Validation
// failures carry every field error; gap warnings and stale revisions carry
// structured payloads so clients can resolve them.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr *period.ValidationError
		conflictErr   *period.ConflictError
		gapWarn       *period.GapWarning
		permissionErr *period.PermissionError
		staleErr      *period.ConcurrencyError
	)

	switch {
	case errors.As(err, &validationErr):
		resp := ErrorResponse{Error: "Validation failed"}
		for _, f := range validationErr.Fields {
			resp.Fields = append(resp.Fields, FieldErrorDTO{Field: f.Field, Reason: f.Reason})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)

	case errors.As(err, &gapWarn):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Uncovered time requires a note",
			Details: err.Error(),
			Gap: &GapWarningDTO{
				GapMinutes: gapWarn.GapMinutes,
				BeforeID:   gapWarn.BeforeID,
				AfterID:    gapWarn.AfterID,
			},
		})

	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, "Period overlaps an existing period", err)

	case errors.As(err, &staleErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Period was modified by someone else",
			Details: err.Error(),
			Stale: &StaleRevisionDTO{
				SuppliedRevision: staleErr.SuppliedRevision,
				StoredRevision:   staleErr.StoredRevision,
			},
		})

	case errors.As(err, &permissionErr):
		writeError(w, http.StatusForbidden, "Not permitted", err)

	case errors.Is(err, period.ErrPeriodNotFound):
		writeError(w, http.StatusNotFound, "Period not found", nil)

	case errors.Is(err, period.ErrPeriodExists):
		writeError(w, http.StatusConflict, "Period already exists", err)

	case errors.Is(err, period.ErrStatusTerminal),
		errors.Is(err, period.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Invalid workflow transition", err)

	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
