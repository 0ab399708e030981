package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
	"github.com/fjordbank/core/internal/queue"
)

// TransferHandler serves internal, external and cross-currency transfers
type TransferHandler struct {
	engine    *ledger.Engine
	store     ledger.Store
	publisher *queue.Publisher
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(engine *ledger.Engine, store ledger.Store, publisher *queue.Publisher) *TransferHandler {
	return &TransferHandler{engine: engine, store: store, publisher: publisher}
}

func transferResponse(t *model.Transfer) model.TransferResponse {
	return model.TransferResponse{
		TransferID:      t.ID,
		ReferenceNumber: t.ReferenceNumber,
		Status:          t.Status,
		Fee:             t.Fee,
		ExchangeRate:    t.ExchangeRate,
		ConvertedAmount: t.ConvertedAmount,
		CreatedAt:       t.CreatedAt,
	}
}

// CreateInternal handles POST /transfers/internal
func (h *TransferHandler) CreateInternal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapTransfer)
	if !ok {
		return
	}

	var req model.InternalTransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.ownsSource(w, r, actor, req.FromAccountID) {
		return
	}

	transfer, err := h.engine.InternalTransfer(r.Context(), actor.TenantID, actor.UserID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse(transfer))
}

// CreateExternal handles POST /transfers/external. The transfer is accepted
// as pending and completed asynchronously by the worker.
func (h *TransferHandler) CreateExternal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapTransfer)
	if !ok {
		return
	}

	var req model.ExternalTransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.ownsSource(w, r, actor, req.FromAccountID) {
		return
	}

	transfer, err := h.engine.ExternalTransfer(r.Context(), actor.TenantID, actor.UserID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	if err := h.publisher.PublishTransfer(r.Context(), transfer.ID); err != nil {
		// The transfer stays pending; the scheduler's requeue sweep or a
		// manual retry will pick it up.
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, transferResponse(transfer))
}

// CreateCurrency handles POST /transfers/currency
func (h *TransferHandler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapTransfer)
	if !ok {
		return
	}

	var req model.CurrencyTransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.ownsSource(w, r, actor, req.FromAccountID) {
		return
	}

	transfer, err := h.engine.CurrencyTransfer(r.Context(), actor.TenantID, actor.UserID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse(transfer))
}

// Get handles GET /transfers/{id}
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := actorOr401(w, r)
	if actor == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transfer ID")
		return
	}

	transfer, err := h.store.GetTransfer(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if transfer.TenantID != actor.TenantID {
		writeError(w, http.StatusNotFound, model.ErrTransferNotFound.Error())
		return
	}
	if actor.Role == auth.RoleCustomer && !h.ownsSource(w, r, *actor, transfer.FromAccountID) {
		return
	}
	writeJSON(w, http.StatusOK, transfer)
}

// Cancel handles POST /transfers/{id}/cancel
func (h *TransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapTransferCancel)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transfer ID")
		return
	}

	transfer, err := h.engine.CancelExternalTransfer(r.Context(), actor.TenantID, id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transferResponse(transfer))
}

func (h *TransferHandler) ownsSource(w http.ResponseWriter, r *http.Request, actor auth.Actor, accountID uuid.UUID) bool {
	account, err := h.store.GetAccount(r.Context(), accountID)
	if err != nil {
		respondLedgerError(w, err)
		return false
	}
	if !canAccess(actor, account) {
		writeError(w, http.StatusNotFound, model.ErrAccountNotFound.Error())
		return false
	}
	return true
}
