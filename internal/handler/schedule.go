package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// ScheduleHandler serves scheduled transaction management
type ScheduleHandler struct {
	engine *ledger.Engine
	store  ledger.Store
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(engine *ledger.Engine, store ledger.Store) *ScheduleHandler {
	return &ScheduleHandler{engine: engine, store: store}
}

// Create handles POST /schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapSchedule)
	if !ok {
		return
	}

	var req model.CreateScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.store.GetAccount(r.Context(), req.AccountID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if !canAccess(actor, account) {
		writeError(w, http.StatusNotFound, model.ErrAccountNotFound.Error())
		return
	}

	sched, err := h.engine.CreateSchedule(r.Context(), actor.TenantID, actor.UserID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

// Get handles GET /schedules/{id}
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := actorOr401(w, r)
	if actor == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	sched, err := h.store.GetSchedule(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if sched.TenantID != actor.TenantID || (actor.Role == auth.RoleCustomer && sched.UserID != actor.UserID) {
		writeError(w, http.StatusNotFound, model.ErrScheduleNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// Pause handles POST /schedules/{id}/pause
func (h *ScheduleHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.PauseSchedule)
}

// Resume handles POST /schedules/{id}/resume
func (h *ScheduleHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.ResumeSchedule)
}

// Cancel handles POST /schedules/{id}/cancel
func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.CancelSchedule)
}

func (h *ScheduleHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, tenantID string, id uuid.UUID) (*model.ScheduledTransaction, error)) {
	actor, ok := requireCapability(w, r, auth.CapSchedule)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	if actor.Role == auth.RoleCustomer {
		sched, err := h.store.GetSchedule(r.Context(), id)
		if err != nil {
			respondLedgerError(w, err)
			return
		}
		if sched.TenantID != actor.TenantID || sched.UserID != actor.UserID {
			writeError(w, http.StatusNotFound, model.ErrScheduleNotFound.Error())
			return
		}
	}

	sched, err := fn(r.Context(), actor.TenantID, id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}
