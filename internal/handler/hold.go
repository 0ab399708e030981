package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// HoldHandler serves fund reservation endpoints
type HoldHandler struct {
	engine *ledger.Engine
	store  ledger.Store
}

// NewHoldHandler creates a new HoldHandler
func NewHoldHandler(engine *ledger.Engine, store ledger.Store) *HoldHandler {
	return &HoldHandler{engine: engine, store: store}
}

// Create handles POST /holds
func (h *HoldHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapHoldPlace)
	if !ok {
		return
	}

	var req model.CreateHoldRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hold, err := h.engine.PlaceHold(r.Context(), actor.TenantID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hold)
}

// Release handles POST /holds/{id}/release
func (h *HoldHandler) Release(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapHoldRelease)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hold ID")
		return
	}

	hold, err := h.engine.ReleaseHold(r.Context(), actor.TenantID, id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hold)
}

// Get handles GET /holds/{id}
func (h *HoldHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := actorOr401(w, r)
	if actor == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hold ID")
		return
	}

	hold, err := h.store.GetHold(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if hold.TenantID != actor.TenantID {
		writeError(w, http.StatusNotFound, model.ErrHoldNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, hold)
}
