package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/middleware"
	"github.com/fjordbank/core/internal/model"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// decodeAndValidate decodes the JSON body and runs struct tag validation
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// requireCapability extracts the actor and checks the capability
func requireCapability(w http.ResponseWriter, r *http.Request, cap auth.Capability) (auth.Actor, bool) {
	actor := middleware.GetActor(r.Context())
	if !actor.Can(cap) {
		writeError(w, http.StatusForbidden, "Access denied")
		return actor, false
	}
	return actor, true
}

// actorOr401 returns the authenticated actor or writes a 401
func actorOr401(w http.ResponseWriter, r *http.Request) *auth.Actor {
	actor := middleware.GetActor(r.Context())
	if actor.UserID == uuid.Nil || actor.TenantID == "" {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil
	}
	return &actor
}

// respondLedgerError maps ledger errors onto HTTP statuses
func respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrAccountNotFound),
		errors.Is(err, model.ErrTransactionNotFound),
		errors.Is(err, model.ErrTransferNotFound),
		errors.Is(err, model.ErrScheduleNotFound),
		errors.Is(err, model.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrAmountExceedsCeiling),
		errors.Is(err, model.ErrSameAccountTransfer),
		errors.Is(err, model.ErrCurrencyMismatch),
		errors.Is(err, model.ErrSameCurrency),
		errors.Is(err, model.ErrUseInternalTransfer),
		errors.Is(err, model.ErrInvalidSchedule),
		errors.Is(err, model.ErrInvalidCurrency),
		errors.Is(err, model.ErrInvalidAccountType),
		errors.Is(err, model.ErrCurrencyNotFound),
		errors.Is(err, model.ErrRateUnavailable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrDailyLimitExceeded),
		errors.Is(err, model.ErrAccountInactive),
		errors.Is(err, model.ErrAccountNotEmpty),
		errors.Is(err, model.ErrInvalidStateChange),
		errors.Is(err, model.ErrTransferNotCancelable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[API] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
