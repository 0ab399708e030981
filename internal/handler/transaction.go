package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// TransactionHandler serves deposits, withdrawals, lookups and reversals
type TransactionHandler struct {
	engine *ledger.Engine
	store  ledger.Store
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(engine *ledger.Engine, store ledger.Store) *TransactionHandler {
	return &TransactionHandler{engine: engine, store: store}
}

// Deposit handles POST /transactions/deposit
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapDeposit)
	if !ok {
		return
	}

	var req model.DepositRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.ownsAccount(w, r, actor, req.AccountID) {
		return
	}

	txn, err := h.engine.Deposit(r.Context(), actor.TenantID, actor.UserID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// Withdraw handles POST /transactions/withdraw
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapWithdraw)
	if !ok {
		return
	}

	var req model.WithdrawRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.ownsAccount(w, r, actor, req.AccountID) {
		return
	}

	txn, err := h.engine.Withdraw(r.Context(), actor.TenantID, actor.UserID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// Get handles GET /transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := actorOr401(w, r)
	if actor == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	txn, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if txn.TenantID != actor.TenantID || (actor.Role == auth.RoleCustomer && txn.UserID != actor.UserID) {
		writeError(w, http.StatusNotFound, model.ErrTransactionNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

type reverseRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// Reverse handles POST /transactions/{id}/reverse
func (h *TransactionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapReverse)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	var req reverseRequest
	if r.Body != nil {
		// Reason is optional; an empty body is fine
		json.NewDecoder(r.Body).Decode(&req)
	}

	reversal, err := h.engine.ReverseTransaction(r.Context(), actor.TenantID, actor.UserID, id, req.Reason)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reversal)
}

// ownsAccount blocks customers from operating on accounts they do not own
func (h *TransactionHandler) ownsAccount(w http.ResponseWriter, r *http.Request, actor auth.Actor, accountID uuid.UUID) bool {
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
