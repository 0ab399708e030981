package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjordbank/core/internal/model"
)

// Per-account defaults applied at opening. The system-wide caps in Policy
// still apply on top of these.
var (
	defaultDailyWithdrawalLimit = decimal.NewFromInt(1000)
	defaultDailyTransferLimit   = decimal.NewFromInt(5000)
	defaultOverdraftFee         = decimal.NewFromInt(35)
	defaultInterestRate         = decimal.NewFromFloat(0.01)
)

// OpenAccount creates a new account with a zero balance
func (e *Engine) OpenAccount(ctx context.Context, tenantID string, userID uuid.UUID, req model.CreateAccountRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var account *model.Account
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		currency, err := tx.GetCurrency(ctx, req.Currency)
		if err != nil {
			return err
		}
		if currency == nil || !currency.Active {
			return model.ErrCurrencyNotFound
		}

		now := e.now()
		account = &model.Account{
			ID:                   uuid.New(),
			AccountNumber:        model.GenerateAccountNumber(),
			UserID:               userID,
			TenantID:             tenantID,
			AccountType:          req.AccountType,
			Currency:             req.Currency,
			Status:               model.AccountStatusActive,
			Balance:              decimal.Zero,
			AvailableBalance:     decimal.Zero,
			DailyWithdrawalLimit: defaultDailyWithdrawalLimit,
			DailyTransferLimit:   defaultDailyTransferLimit,
			OverdraftLimit:       decimal.Zero,
			OverdraftFee:         defaultOverdraftFee,
			InterestRate:         defaultInterestRate,
			OpenedAt:             now,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CloseAccount closes an account. The balance must be zero and all holds
// released; closure is a status transition, never a delete.
func (e *Engine) CloseAccount(ctx context.Context, tenantID string, accountID uuid.UUID) (*model.Account, error) {
	var account *model.Account
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if a.TenantID != tenantID {
			return model.ErrAccountNotFound
		}
		if a.Status == model.AccountStatusClosed {
			return model.ErrInvalidStateChange
		}
		if !a.Balance.IsZero() || !a.AvailableBalance.Equal(a.Balance) {
			return model.ErrAccountNotEmpty
		}

		now := e.now()
		a.Status = model.AccountStatusClosed
		a.ClosedAt = &now
		a.UpdatedAt = now
		account = a
		return tx.SaveAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SuspendAccount freezes an active account
func (e *Engine) SuspendAccount(ctx context.Context, tenantID string, accountID uuid.UUID) (*model.Account, error) {
	return e.updateAccountStatus(ctx, tenantID, accountID, model.AccountStatusActive, model.AccountStatusSuspended)
}

// ReactivateAccount lifts a suspension
func (e *Engine) ReactivateAccount(ctx context.Context, tenantID string, accountID uuid.UUID) (*model.Account, error) {
	return e.updateAccountStatus(ctx, tenantID, accountID, model.AccountStatusSuspended, model.AccountStatusActive)
}

func (e *Engine) updateAccountStatus(ctx context.Context, tenantID string, accountID uuid.UUID, from, to model.AccountStatus) (*model.Account, error) {
	var account *model.Account
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if a.TenantID != tenantID {
			return model.ErrAccountNotFound
		}
		if a.Status != from {
			return model.ErrInvalidStateChange
		}
		a.Status = to
		a.UpdatedAt = e.now()
		account = a
		return tx.SaveAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ApplyInterest credits one month of interest on a savings account:
// balance * annual rate / 12, rounded to cents. Zero or negative balances
// accrue nothing.
func (e *Engine) ApplyInterest(ctx context.Context, accountID uuid.UUID) (*model.Transaction, error) {
	var txn *model.Transaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account.AccountType != model.AccountTypeSavings || !account.IsActive() {
			return model.ErrInvalidAccountType
		}
		if !account.Balance.IsPositive() || !account.InterestRate.IsPositive() {
			return nil
		}

		interest := account.Balance.Mul(account.InterestRate).Div(decimal.NewFromInt(12)).Round(2)
		if !interest.IsPositive() {
			return nil
		}

		before := account.Balance
		account.Credit(interest)
		if err := tx.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}

		txn = e.newCompletedTransaction(account, account.UserID, model.TransactionTypeInterest, interest, before, "monthly interest")
		return tx.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}
