package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// AccountHandler serves account lifecycle and read endpoints
type AccountHandler struct {
	engine *ledger.Engine
	store  ledger.Store
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(engine *ledger.Engine, store ledger.Store) *AccountHandler {
	return &AccountHandler{engine: engine, store: store}
}

// canAccess reports whether the actor may read or operate on the account.
// Customers see only their own accounts; tellers and admins see the tenant.
func canAccess(actor auth.Actor, account *model.Account) bool {
	if account.TenantID != actor.TenantID {
		return false
	}
	return account.UserID == actor.UserID || actor.Role != auth.RoleCustomer
}

// Create handles POST /accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireCapability(w, r, auth.CapAccountOpen)
	if !ok {
		return
	}

	var req model.CreateAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.engine.OpenAccount(r.Context(), actor.TenantID, actor.UserID, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// List handles GET /accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorOr401(w, r)
	if actor == nil {
		return
	}

	accounts, err := h.store.ListAccounts(r.Context(), actor.TenantID, actor.UserID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

// Get handles GET /accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, _ := h.loadAccount(w, r)
	if account == nil {
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GetBalance handles GET /accounts/{id}/balance
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, _ := h.loadAccount(w, r)
	if account == nil {
		return
	}
	writeJSON(w, http.StatusOK, model.AccountBalance{
		AccountID:        account.ID,
		Balance:          account.Balance,
		AvailableBalance: account.AvailableBalance,
		Currency:         account.Currency,
		AsOf:             account.UpdatedAt,
	})
}

// Close handles POST /accounts/{id}/close
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	account, actor := h.loadAccountWithCap(w, r, auth.CapAccountClose)
	if account == nil {
		return
	}

	closed, err := h.engine.CloseAccount(r.Context(), actor.TenantID, account.ID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closed)
}

// Suspend handles POST /accounts/{id}/suspend
func (h *AccountHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	account, actor := h.loadAccountWithCap(w, r, auth.CapAccountManage)
	if account == nil {
		return
	}

	suspended, err := h.engine.SuspendAccount(r.Context(), actor.TenantID, account.ID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suspended)
}

// Reactivate handles POST /accounts/{id}/reactivate
func (h *AccountHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	account, actor := h.loadAccountWithCap(w, r, auth.CapAccountManage)
	if account == nil {
		return
	}

	reactivated, err := h.engine.ReactivateAccount(r.Context(), actor.TenantID, account.ID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reactivated)
}

// ApplyInterest handles POST /accounts/{id}/interest
func (h *AccountHandler) ApplyInterest(w http.ResponseWriter, r *http.Request) {
	account, _ := h.loadAccountWithCap(w, r, auth.CapInterest)
	if account == nil {
		return
	}

	txn, err := h.engine.ApplyInterest(r.Context(), account.ID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if txn == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no interest accrued"})
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// ListTransactions handles GET /accounts/{id}/transactions
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	account, _ := h.loadAccount(w, r)
	if account == nil {
		return
	}

	limit, offset := pagination(r)
	transactions, err := h.store.ListTransactions(r.Context(), account.ID, limit, offset)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": transactions})
}

// ListTransfers handles GET /accounts/{id}/transfers
func (h *AccountHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	account, _ := h.loadAccount(w, r)
	if account == nil {
		return
	}

	limit, offset := pagination(r)
	transfers, err := h.store.ListTransfers(r.Context(), account.ID, limit, offset)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transfers": transfers})
}

// ListHolds handles GET /accounts/{id}/holds
func (h *AccountHandler) ListHolds(w http.ResponseWriter, r *http.Request) {
	account, _ := h.loadAccount(w, r)
	if account == nil {
		return
	}

	holds, err := h.store.ListHolds(r.Context(), account.ID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"holds": holds})
}

// ListSchedules handles GET /accounts/{id}/schedules
func (h *AccountHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	account, _ := h.loadAccount(w, r)
	if account == nil {
		return
	}

	schedules, err := h.store.ListSchedules(r.Context(), account.ID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schedules": schedules})
}

// loadAccount parses the path ID, loads the account and checks access
func (h *AccountHandler) loadAccount(w http.ResponseWriter, r *http.Request) (*model.Account, *auth.Actor) {
	actor := actorOr401(w, r)
	if actor == nil {
		return nil, nil
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return nil, nil
	}

	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return nil, nil
	}
	if !canAccess(*actor, account) {
		writeError(w, http.StatusNotFound, model.ErrAccountNotFound.Error())
		return nil, nil
	}
	return account, actor
}

func (h *AccountHandler) loadAccountWithCap(w http.ResponseWriter, r *http.Request, cap auth.Capability) (*model.Account, *auth.Actor) {
	if _, ok := requireCapability(w, r, cap); !ok {
		return nil, nil
	}
	return h.loadAccount(w, r)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
