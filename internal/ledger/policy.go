package ledger

import "github.com/shopspring/decimal"

// Policy holds the tunable business parameters of the ledger. Values are
// loaded from configuration at startup; DefaultPolicy matches production
// defaults.
type Policy struct {
	// MaxDepositAmount is the ceiling for a single deposit.
	MaxDepositAmount decimal.Decimal

	// ExternalFeePercent is the fee charged on external transfers, as a
	// fraction of the amount (0.01 = 1%).
	ExternalFeePercent decimal.Decimal

	// DailyWithdrawalLimit caps total withdrawals per account per day when
	// the account carries no limit of its own.
	DailyWithdrawalLimit decimal.Decimal

	// DailyTransferLimit caps total internal transfers per account per day.
	DailyTransferLimit decimal.Decimal

	// DailyExternalTransferLimit caps total external transfers per account
	// per day, counted at initiation.
	DailyExternalTransferLimit decimal.Decimal

	// SpreadThreshold is the amount above which the conversion spread is
	// applied. Conversions at or below the threshold get the raw rate.
	SpreadThreshold decimal.Decimal

	// MaxCompletionAttempts bounds settlement retries for one external
	// transfer before it is failed and dead-lettered.
	MaxCompletionAttempts int
}

// DefaultPolicy returns the production default parameters
func DefaultPolicy() Policy {
	return Policy{
		MaxDepositAmount:           decimal.NewFromInt(1000000),
		ExternalFeePercent:         decimal.NewFromFloat(0.01),
		DailyWithdrawalLimit:       decimal.NewFromInt(10000),
		DailyTransferLimit:         decimal.NewFromInt(50000),
		DailyExternalTransferLimit: decimal.NewFromInt(25000),
		SpreadThreshold:            decimal.NewFromInt(10000),
		MaxCompletionAttempts:      5,
	}
}

// ExternalFee computes the fee for an external transfer of amount,
// rounded to cents.
func (p Policy) ExternalFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.ExternalFeePercent).Round(2)
}
