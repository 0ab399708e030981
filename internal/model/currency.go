package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency supported by the system
type Currency struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ExchangeRate is the quoted rate for a currency pair. Spread is a fee built
// into the rate, applied only above the large-transaction threshold.
type ExchangeRate struct {
	ID           uuid.UUID       `json:"id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	Spread       decimal.Decimal `json:"spread"`
	Active       bool            `json:"active"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CurrencyConversion is the immutable record of one conversion calculation.
// Invariant: ConvertedAmount = Amount * TotalRate, and
// TotalRate = ExchangeRate * (1 - SpreadApplied).
type CurrencyConversion struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        string          `json:"tenant_id"`
	FromCurrency    string          `json:"from_currency"`
	ToCurrency      string          `json:"to_currency"`
	Amount          decimal.Decimal `json:"amount"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	SpreadApplied   decimal.Decimal `json:"spread_applied"`
	TotalRate       decimal.Decimal `json:"total_rate"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ConvertRequest is the payload for a standalone currency conversion quote
type ConvertRequest struct {
	FromCurrency string          `json:"from_currency" validate:"required,len=3"`
	ToCurrency   string          `json:"to_currency" validate:"required,len=3"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
}

// Validate checks the conversion request beyond struct tags
func (r ConvertRequest) Validate() error {
	if r.FromCurrency == r.ToCurrency {
		return ErrSameCurrency
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// CurrencyTransferRequest is the payload for a cross-currency transfer
type CurrencyTransferRequest struct {
	FromAccountID uuid.UUID       `json:"from_account_id" validate:"required"`
	ToAccountID   uuid.UUID       `json:"to_account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Description   string          `json:"description" validate:"max=255"`
}
