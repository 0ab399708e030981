package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjordbank/core/internal/model"
)

// ExternalTransfer records a pending transfer out of the system. No balance
// moves here; the caller enqueues the transfer for asynchronous completion,
// where funds are re-checked before settlement. The daily external limit is
// consumed at initiation and is not refunded if completion later fails.
func (e *Engine) ExternalTransfer(ctx context.Context, tenantID string, userID uuid.UUID, req model.ExternalTransferRequest) (*model.Transfer, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.ErrInvalidAmount
	}

	var transfer *model.Transfer
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		account, err := e.lockActiveAccount(ctx, tx, req.FromAccountID, tenantID)
		if err != nil {
			return err
		}

		fee := e.policy.ExternalFee(req.Amount)
		total := req.Amount.Add(fee)

		if err := e.consumeLimit(ctx, tx, account, model.LimitOpExternalTransfer, e.policy.DailyExternalTransferLimit, req.Amount); err != nil {
			return err
		}
		if !account.CanCover(total) {
			return model.ErrInsufficientFunds
		}

		now := e.now()
		transfer = &model.Transfer{
			ID:              uuid.New(),
			ReferenceNumber: model.GenerateTransferRef(),
			TenantID:        tenantID,
			FromAccountID:   account.ID,
			Beneficiary: &model.ExternalBeneficiary{
				AccountNumber:   req.ToAccountNumber,
				BankCode:        req.ToBankCode,
				BeneficiaryName: req.BeneficiaryName,
			},
			Type:        model.TransferTypeExternal,
			Amount:      req.Amount,
			Currency:    account.Currency,
			Fee:         fee,
			Status:      model.TransferStatusPending,
			Description: req.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.CreateTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// CompleteExternalTransfer finishes a pending external transfer: it
// re-checks funds, submits the transfer to the settlement network, and on
// acceptance debits amount plus fee and routes the fee to the collection
// account. The operation is idempotent: a transfer already in a terminal
// state is left untouched. A returned error means nothing was committed and
// the attempt may be retried.
func (e *Engine) CompleteExternalTransfer(ctx context.Context, transferID uuid.UUID) error {
	var (
		completed *model.Transfer
		failed    *model.Transfer
		reason    string
	)

	err := e.store.WithinTx(ctx, func(tx Tx) error {
		transfer, err := tx.TransferForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status.IsTerminal() {
			// Duplicate delivery. Nothing to do.
			return nil
		}

		account, err := tx.AccountForUpdate(ctx, transfer.FromAccountID)
		if err != nil {
			return err
		}

		now := e.now()
		total := transfer.TotalDeduction()

		terminalFail := func(why string) error {
			if err := transitionTransfer(transfer, model.TransferStatusFailed, now); err != nil {
				return err
			}
			transfer.FailureReason = why
			failed, reason = transfer, why
			return tx.SaveTransfer(ctx, transfer)
		}

		if !account.IsActive() {
			return terminalFail("source account is not active")
		}
		if !account.CanCover(total) {
			return terminalFail("insufficient funds at settlement time")
		}

		result, err := e.settlement.Settle(ctx, transfer)
		if err != nil {
			return fmt.Errorf("settlement attempt for %s: %w", transfer.ReferenceNumber, err)
		}
		if !result.Accepted {
			why := result.Reason
			if why == "" {
				why = model.ErrSettlementDeclined.Error()
			}
			return terminalFail(why)
		}

		before := account.Balance
		account.Debit(transfer.Amount)
		debit := e.newCompletedTransaction(account, account.UserID, model.TransactionTypeTransferDebit, transfer.Amount, before, transfer.Description)
		debit.ReferenceNumber = transfer.ReferenceNumber
		if err := tx.CreateTransaction(ctx, debit); err != nil {
			return fmt.Errorf("failed to create debit leg: %w", err)
		}

		if transfer.Fee.IsPositive() {
			if err := e.collectFee(ctx, tx, account, transfer); err != nil {
				return err
			}
		}

		if err := tx.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update source balance: %w", err)
		}

		if err := transitionTransfer(transfer, model.TransferStatusCompleted, now); err != nil {
			return err
		}
		transfer.DebitTransaction = &debit.ID
		transfer.ProcessedAt = &now
		completed = transfer
		return tx.SaveTransfer(ctx, transfer)
	})
	if err != nil {
		return err
	}

	if completed != nil {
		e.notifier.TransferCompleted(ctx, completed)
	}
	if failed != nil {
		e.notifier.TransferFailed(ctx, failed, reason)
	}
	return nil
}

// collectFee debits the fee from the source account and credits it to the
// fee collection account, writing a leg on each side. A fee charged in a
// different currency than the collection account is converted at the
// current rate before crediting.
func (e *Engine) collectFee(ctx context.Context, tx Tx, account *model.Account, transfer *model.Transfer) error {
	feeBefore := account.Balance
	account.Debit(transfer.Fee)
	feeTxn := e.newCompletedTransaction(account, account.UserID, model.TransactionTypeFee, transfer.Fee, feeBefore, "external transfer fee")
	feeTxn.ReferenceNumber = transfer.ReferenceNumber
	if err := tx.CreateTransaction(ctx, feeTxn); err != nil {
		return fmt.Errorf("failed to create fee leg: %w", err)
	}

	feeAccount, err := tx.GetAccountByNumber(ctx, model.SystemFeeAccountNumber)
	if err != nil {
		return fmt.Errorf("failed to load fee collection account: %w", err)
	}
	feeAccount, err = tx.AccountForUpdate(ctx, feeAccount.ID)
	if err != nil {
		return err
	}

	credited := transfer.Fee
	var rate *decimal.Decimal
	if feeAccount.Currency != account.Currency {
		baseRate, spread, err := e.lookupRate(ctx, tx, account.Currency, feeAccount.Currency)
		if err != nil {
			return fmt.Errorf("failed to price fee conversion: %w", err)
		}
		q := e.priceConversion(baseRate, spread, transfer.Fee)
		credited = q.converted
		rate = &q.totalRate
	}

	before := feeAccount.Balance
	feeAccount.Credit(credited)
	if err := tx.SaveAccount(ctx, feeAccount); err != nil {
		return fmt.Errorf("failed to credit fee collection account: %w", err)
	}

	income := e.newCompletedTransaction(feeAccount, feeAccount.UserID, model.TransactionTypeTransferCredit, credited, before, "external transfer fee income")
	income.ReferenceNumber = transfer.ReferenceNumber
	income.ExchangeRate = rate
	if err := tx.CreateTransaction(ctx, income); err != nil {
		return fmt.Errorf("failed to create fee income record: %w", err)
	}
	return nil
}

// FailExternalTransfer marks a non-terminal external transfer as failed.
// Used by the worker once settlement retries are exhausted. Idempotent.
func (e *Engine) FailExternalTransfer(ctx context.Context, transferID uuid.UUID, why string) error {
	var failed *model.Transfer
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		transfer, err := tx.TransferForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status.IsTerminal() {
			return nil
		}
		if err := transitionTransfer(transfer, model.TransferStatusFailed, e.now()); err != nil {
			return err
		}
		transfer.FailureReason = why
		failed = transfer
		return tx.SaveTransfer(ctx, transfer)
	})
	if err != nil {
		return err
	}
	if failed != nil {
		e.notifier.TransferFailed(ctx, failed, why)
	}
	return nil
}

// CancelExternalTransfer cancels a transfer that has not started processing
func (e *Engine) CancelExternalTransfer(ctx context.Context, tenantID string, transferID uuid.UUID) (*model.Transfer, error) {
	var transfer *model.Transfer
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		t, err := tx.TransferForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t.TenantID != tenantID {
			return model.ErrTransferNotFound
		}
		if t.Status != model.TransferStatusPending {
			return model.ErrTransferNotCancelable
		}
		if err := transitionTransfer(t, model.TransferStatusCancelled, e.now()); err != nil {
			return err
		}
		transfer = t
		return tx.SaveTransfer(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}
