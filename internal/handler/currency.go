package handler

import (
	"net/http"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// CurrencyHandler serves currency reference data and conversion quotes
type CurrencyHandler struct {
	engine *ledger.Engine
	store  ledger.Store
}

// NewCurrencyHandler creates a new CurrencyHandler
func NewCurrencyHandler(engine *ledger.Engine, store ledger.Store) *CurrencyHandler {
	return &CurrencyHandler{engine: engine, store: store}
}

// List handles GET /currency/currencies
func (h *CurrencyHandler) List(w http.ResponseWriter, r *http.Request) {
	if actorOr401(w, r) == nil {
		return
	}
	currencies, err := h.store.ListCurrencies(r.Context())
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"currencies": currencies})
}

// ListRates handles GET /currency/rates
func (h *CurrencyHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	if actorOr401(w, r) == nil {
		return
	}
	rates, err := h.store.ListRates(r.Context())
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rates": rates})
}

// Convert handles POST /currency/convert
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapConvert)
	if !ok {
		return
	}

	var req model.ConvertRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	conv, err := h.engine.Convert(r.Context(), actor.TenantID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}
