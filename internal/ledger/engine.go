package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjordbank/core/internal/gateway"
	"github.com/fjordbank/core/internal/model"
	"github.com/fjordbank/core/internal/notify"
)

// Engine implements every balance-mutating operation. It is the only
// component allowed to touch account balances; all writes go through a
// single store transaction per operation.
type Engine struct {
	store      Store
	settlement gateway.Settlement
	notifier   notify.Notifier
	policy     Policy
	now        func() time.Time
}

// NewEngine wires the ledger engine
func NewEngine(store Store, settlement gateway.Settlement, notifier notify.Notifier, policy Policy) *Engine {
	return &Engine{
		store:      store,
		settlement: settlement,
		notifier:   notifier,
		policy:     policy,
		now:        time.Now,
	}
}

// Policy exposes the active business parameters
func (e *Engine) Policy() Policy {
	return e.policy
}

// Deposit credits an account and writes the completed transaction record
func (e *Engine) Deposit(ctx context.Context, tenantID string, userID uuid.UUID, req model.DepositRequest) (*model.Transaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.ErrInvalidAmount
	}
	if req.Amount.GreaterThan(e.policy.MaxDepositAmount) {
		return nil, model.ErrAmountExceedsCeiling
	}

	var txn *model.Transaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		account, err := e.lockActiveAccount(ctx, tx, req.AccountID, tenantID)
		if err != nil {
			return err
		}

		before := account.Balance
		account.Credit(req.Amount)
		if err := tx.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}

		txn = e.newCompletedTransaction(account, userID, model.TransactionTypeDeposit, req.Amount, before, req.Description)
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Withdraw debits an account after checking the daily limit and available
// funds. A withdrawal that pushes the balance below zero incurs the
// account's overdraft fee as a separate transaction.
func (e *Engine) Withdraw(ctx context.Context, tenantID string, userID uuid.UUID, req model.WithdrawRequest) (*model.Transaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.ErrInvalidAmount
	}

	var txn *model.Transaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		account, err := e.lockActiveAccount(ctx, tx, req.AccountID, tenantID)
		if err != nil {
			return err
		}

		dailyLimit := account.DailyWithdrawalLimit
		if dailyLimit.IsZero() {
			dailyLimit = e.policy.DailyWithdrawalLimit
		}
		if err := e.consumeLimit(ctx, tx, account, model.LimitOpWithdrawal, dailyLimit, req.Amount); err != nil {
			return err
		}

		if !account.CanCover(req.Amount) {
			return model.ErrInsufficientFunds
		}

		before := account.Balance
		account.Debit(req.Amount)

		txn = e.newCompletedTransaction(account, userID, model.TransactionTypeWithdrawal, req.Amount, before, req.Description)
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		if account.Balance.IsNegative() && account.OverdraftFee.IsPositive() {
			feeBefore := account.Balance
			account.Debit(account.OverdraftFee)
			fee := e.newCompletedTransaction(account, userID, model.TransactionTypeFee, account.OverdraftFee, feeBefore, "overdraft fee")
			if err := tx.CreateTransaction(ctx, fee); err != nil {
				return fmt.Errorf("failed to create overdraft fee transaction: %w", err)
			}
		}

		if err := tx.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// errCrossCurrency aborts the same-currency path so the transfer can be
// re-run through the conversion path.
var errCrossCurrency = errors.New("accounts hold different currencies")

// InternalTransfer moves money between two accounts. The debit and credit
// legs share the transfer reference and are written in the same transaction
// as both balance updates. When the accounts hold different currencies the
// transfer is routed through the conversion path instead.
func (e *Engine) InternalTransfer(ctx context.Context, tenantID string, userID uuid.UUID, req model.InternalTransferRequest) (*model.Transfer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
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
		if from.Currency != to.Currency {
			return errCrossCurrency
		}

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
			Type:            model.TransferTypeInternal,
			Amount:          req.Amount,
			Currency:        from.Currency,
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

		debit, credit, err := e.writeTransferLegs(ctx, tx, transfer, from, to, userID, req.Amount, req.Description)
		if err != nil {
			return err
		}
		transfer.DebitTransaction = &debit.ID
		transfer.CreditTransaction = &credit.ID
		return tx.SaveTransfer(ctx, transfer)
	})
	if errors.Is(err, errCrossCurrency) {
		return e.CurrencyTransfer(ctx, tenantID, userID, model.CurrencyTransferRequest{
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
			Amount:        req.Amount,
			Description:   req.Description,
		})
	}
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// writeTransferLegs debits from, credits to, and writes both leg records
// tagged with the transfer reference. Accounts must already be locked.
func (e *Engine) writeTransferLegs(ctx context.Context, tx Tx, transfer *model.Transfer, from, to *model.Account, userID uuid.UUID, amount decimal.Decimal, description string) (*model.Transaction, *model.Transaction, error) {
	fromBefore := from.Balance
	from.Debit(amount)
	if err := tx.SaveAccount(ctx, from); err != nil {
		return nil, nil, fmt.Errorf("failed to update source balance: %w", err)
	}

	toBefore := to.Balance
	to.Credit(amount)
	if err := tx.SaveAccount(ctx, to); err != nil {
		return nil, nil, fmt.Errorf("failed to update destination balance: %w", err)
	}

	debit := e.newCompletedTransaction(from, userID, model.TransactionTypeTransferDebit, amount, fromBefore, description)
	debit.ReferenceNumber = transfer.ReferenceNumber
	if err := tx.CreateTransaction(ctx, debit); err != nil {
		return nil, nil, fmt.Errorf("failed to create debit leg: %w", err)
	}

	credit := e.newCompletedTransaction(to, to.UserID, model.TransactionTypeTransferCredit, amount, toBefore, description)
	credit.ReferenceNumber = transfer.ReferenceNumber
	if err := tx.CreateTransaction(ctx, credit); err != nil {
		return nil, nil, fmt.Errorf("failed to create credit leg: %w", err)
	}
	return debit, credit, nil
}

// newCompletedTransaction builds a completed transaction record reflecting a
// balance change already applied to account.
func (e *Engine) newCompletedTransaction(account *model.Account, userID uuid.UUID, txType model.TransactionType, amount, before decimal.Decimal, description string) *model.Transaction {
	now := e.now()
	return &model.Transaction{
		ID:              uuid.New(),
		ReferenceNumber: model.GenerateTransactionRef(),
		AccountID:       account.ID,
		UserID:          userID,
		TenantID:        account.TenantID,
		Type:            txType,
		Amount:          amount,
		Currency:        account.Currency,
		BalanceBefore:   before,
		BalanceAfter:    account.Balance,
		Status:          model.TransactionStatusCompleted,
		Description:     description,
		ProcessedAt:     &now,
		CreatedAt:       now,
	}
}

// transitionTransfer moves a transfer to a new status, enforcing the
// transfer state machine.
func transitionTransfer(t *model.Transfer, to model.TransferStatus, at time.Time) error {
	if !t.Status.CanTransition(to) {
		return model.ErrInvalidStateChange
	}
	t.Status = to
	t.UpdatedAt = at
	return nil
}

// lockActiveAccount locks one account and verifies tenant and status
func (e *Engine) lockActiveAccount(ctx context.Context, tx Tx, id uuid.UUID, tenantID string) (*model.Account, error) {
	account, err := tx.AccountForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.TenantID != tenantID {
		return nil, model.ErrAccountNotFound
	}
	if !account.IsActive() {
		return nil, model.ErrAccountInactive
	}
	return account, nil
}

// lockAccountPair locks two accounts in ascending ID order regardless of
// transfer direction, so concurrent opposite transfers cannot deadlock.
func (e *Engine) lockAccountPair(ctx context.Context, tx Tx, aID, bID uuid.UUID) (*model.Account, *model.Account, error) {
	firstID, secondID := aID, bID
	swapped := false
	if bytes.Compare(bID[:], aID[:]) < 0 {
		firstID, secondID = bID, aID
		swapped = true
	}

	first, err := tx.AccountForUpdate(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := tx.AccountForUpdate(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if swapped {
		return second, first, nil
	}
	return first, second, nil
}
