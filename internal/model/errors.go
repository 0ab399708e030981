package model

import "errors"

var (
	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account is not active")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidCurrency    = errors.New("invalid currency: must be 3-letter ISO code")
	ErrAccountNotEmpty    = errors.New("account balance must be zero before closing")

	// Ledger errors
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrAmountExceedsCeiling  = errors.New("amount exceeds maximum limit")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrSameAccountTransfer   = errors.New("source and destination accounts must be different")
	ErrDailyLimitExceeded    = errors.New("daily limit exceeded")
	ErrCurrencyMismatch      = errors.New("currency mismatch between accounts")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrTransferNotFound      = errors.New("transfer not found")
	ErrInvalidStateChange    = errors.New("invalid status transition")
	ErrTransferNotCancelable = errors.New("transfer can no longer be cancelled")

	// Currency errors
	ErrSameCurrency        = errors.New("source and target currencies must be different")
	ErrCurrencyNotFound    = errors.New("currency not found or inactive")
	ErrRateUnavailable     = errors.New("exchange rate not available for currency pair")
	ErrUseInternalTransfer = errors.New("use internal transfer for same-currency accounts")

	// Schedule errors
	ErrScheduleNotFound = errors.New("scheduled transaction not found")
	ErrInvalidSchedule  = errors.New("invalid schedule parameters")

	// Hold errors
	ErrHoldNotFound = errors.New("account hold not found")

	// Settlement errors
	ErrSettlementDeclined = errors.New("external settlement declined")
)
