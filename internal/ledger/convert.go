package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjordbank/core/internal/model"
)

// quote is a priced conversion for one amount
type quote struct {
	baseRate      decimal.Decimal
	spreadApplied decimal.Decimal
	totalRate     decimal.Decimal
	converted     decimal.Decimal
}

// lookupRate resolves the base rate and spread for a pair. When only the
// reverse pair is quoted the rate is inverted; the reverse pair's spread
// still applies.
func (e *Engine) lookupRate(ctx context.Context, tx Tx, from, to string) (decimal.Decimal, decimal.Decimal, error) {
	for _, code := range []string{from, to} {
		currency, err := tx.GetCurrency(ctx, code)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if currency == nil || !currency.Active {
			return decimal.Zero, decimal.Zero, model.ErrCurrencyNotFound
		}
	}

	rate, err := tx.ActiveRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if rate != nil {
		return rate.Rate, rate.Spread, nil
	}

	reverse, err := tx.ActiveRate(ctx, to, from)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if reverse != nil && reverse.Rate.IsPositive() {
		inverted := decimal.NewFromInt(1).DivRound(reverse.Rate, 10)
		return inverted, reverse.Spread, nil
	}

	return decimal.Zero, decimal.Zero, model.ErrRateUnavailable
}

// priceConversion applies the spread only above the large-transaction
// threshold: total_rate = base_rate * (1 - spread). Converted amounts are
// rounded to cents.
func (e *Engine) priceConversion(baseRate, spread, amount decimal.Decimal) quote {
	spreadApplied := decimal.Zero
	if amount.GreaterThan(e.policy.SpreadThreshold) {
		spreadApplied = spread
	}
	totalRate := baseRate.Mul(decimal.NewFromInt(1).Sub(spreadApplied))
	return quote{
		baseRate:      baseRate,
		spreadApplied: spreadApplied,
		totalRate:     totalRate,
		converted:     amount.Mul(totalRate).Round(2),
	}
}

// Convert prices a conversion and writes the immutable conversion record.
// No account balances are involved.
func (e *Engine) Convert(ctx context.Context, tenantID string, req model.ConvertRequest) (*model.CurrencyConversion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var conv *model.CurrencyConversion
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		baseRate, spread, err := e.lookupRate(ctx, tx, req.FromCurrency, req.ToCurrency)
		if err != nil {
			return err
		}
		q := e.priceConversion(baseRate, spread, req.Amount)

		conv = &model.CurrencyConversion{
			ID:              uuid.New(),
			TenantID:        tenantID,
			FromCurrency:    req.FromCurrency,
			ToCurrency:      req.ToCurrency,
			Amount:          req.Amount,
			ConvertedAmount: q.converted,
			ExchangeRate:    q.baseRate,
			SpreadApplied:   q.spreadApplied,
			TotalRate:       q.totalRate,
			CreatedAt:       e.now(),
		}
		return tx.CreateConversion(ctx, conv)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// CurrencyTransfer moves money between two accounts held in different
// currencies: the source is debited in its currency, the destination is
// credited the converted amount in its own, and the conversion record is
// written alongside the transfer.
func (e *Engine) CurrencyTransfer(ctx context.Context, tenantID string, userID uuid.UUID, req model.CurrencyTransferRequest) (*model.Transfer, error) {
	if req.FromAccountID == req.ToAccountID {
		return nil, model.ErrSameAccountTransfer
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.ErrInvalidAmount
	}

	var transfer *model.Transfer
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		from, to, err := e.lockAccountPair(ctx, tx, req.FromAccountID, req.ToAccountID)
		if err != nil {
			return err
		}
		if from.TenantID != tenantID || to.TenantID != tenantID {
			return model.ErrAccountNotFound
		}
		if !from.IsActive() || !to.IsActive() {
			return model.ErrAccountInactive
		}
		if from.Currency == to.Currency {
			return model.ErrUseInternalTransfer
		}

		baseRate, spread, err := e.lookupRate(ctx, tx, from.Currency, to.Currency)
		if err != nil {
			return err
		}
		q := e.priceConversion(baseRate, spread, req.Amount)

		dailyLimit := from.DailyTransferLimit
		if dailyLimit.IsZero() {
			dailyLimit = e.policy.DailyTransferLimit
		}
		if err := e.consumeLimit(ctx, tx, from, model.LimitOpTransfer, dailyLimit, req.Amount); err != nil {
			return err
		}
		if !from.CanCover(req.Amount) {
			return model.ErrInsufficientFunds
		}

		now := e.now()
		transfer = &model.Transfer{
			ID:              uuid.New(),
			ReferenceNumber: model.GenerateTransferRef(),
			TenantID:        tenantID,
			FromAccountID:   from.ID,
			ToAccountID:     &to.ID,
			Type:            model.TransferTypeCurrency,
			Amount:          req.Amount,
			Currency:        from.Currency,
			ExchangeRate:    &q.totalRate,
			ConvertedAmount: &q.converted,
			Fee:             decimal.Zero,
			Status:          model.TransferStatusCompleted,
			Description:     req.Description,
			ProcessedAt:     &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			return fmt.Errorf("failed to create transfer: %w", err)
		}

		fromBefore := from.Balance
		from.Debit(req.Amount)
		if err := tx.SaveAccount(ctx, from); err != nil {
			return fmt.Errorf("failed to update source balance: %w", err)
		}
		debit := e.newCompletedTransaction(from, userID, model.TransactionTypeTransferDebit, req.Amount, fromBefore, req.Description)
		debit.ReferenceNumber = transfer.ReferenceNumber
		debit.ExchangeRate = &q.totalRate
		if err := tx.CreateTransaction(ctx, debit); err != nil {
			return fmt.Errorf("failed to create debit leg: %w", err)
		}

		toBefore := to.Balance
		to.Credit(q.converted)
		if err := tx.SaveAccount(ctx, to); err != nil {
			return fmt.Errorf("failed to update destination balance: %w", err)
		}
		credit := e.newCompletedTransaction(to, to.UserID, model.TransactionTypeTransferCredit, q.converted, toBefore, req.Description)
		credit.ReferenceNumber = transfer.ReferenceNumber
		credit.ExchangeRate = &q.totalRate
		if err := tx.CreateTransaction(ctx, credit); err != nil {
			return fmt.Errorf("failed to create credit leg: %w", err)
		}

		conv := &model.CurrencyConversion{
			ID:              uuid.New(),
			TenantID:        tenantID,
			FromCurrency:    from.Currency,
			ToCurrency:      to.Currency,
			Amount:          req.Amount,
			ConvertedAmount: q.converted,
			ExchangeRate:    q.baseRate,
			SpreadApplied:   q.spreadApplied,
			TotalRate:       q.totalRate,
			CreatedAt:       now,
		}
		if err := tx.CreateConversion(ctx, conv); err != nil {
			return fmt.Errorf("failed to create conversion record: %w", err)
		}

		transfer.DebitTransaction = &debit.ID
		transfer.CreditTransaction = &credit.ID
		return tx.SaveTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}
