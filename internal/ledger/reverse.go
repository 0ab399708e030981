package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/model"
)

// ReverseTransaction compensates a completed transaction with an opposite
// balance movement. The original record keeps its balance snapshot and moves
// completed -> reversed; the compensation is a new record. Only completed
// transactions can be reversed, and only once: the status claim guards
// against concurrent double-reversal.
func (e *Engine) ReverseTransaction(ctx context.Context, tenantID string, userID uuid.UUID, transactionID uuid.UUID, why string) (*model.Transaction, error) {
	var reversal *model.Transaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		original, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if original.TenantID != tenantID {
			return model.ErrTransactionNotFound
		}

		claimed, err := tx.UpdateTransactionStatus(ctx, original.ID, model.TransactionStatusCompleted, model.TransactionStatusReversed, why)
		if err != nil {
			return fmt.Errorf("failed to reverse transaction: %w", err)
		}
		if !claimed {
			return model.ErrInvalidStateChange
		}

		account, err := tx.AccountForUpdate(ctx, original.AccountID)
		if err != nil {
			return err
		}

		before := account.Balance
		reversalType := model.TransactionTypeRefund
		if original.Type.IsDebit() {
			// Original took money out; put it back.
			account.Credit(original.Amount)
		} else {
			// Original put money in; take it back. The balance may go
			// negative if the funds were already spent.
			account.Debit(original.Amount)
			reversalType = model.TransactionTypeAdjustment
		}
		if err := tx.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}

		description := fmt.Sprintf("reversal of %s", original.ReferenceNumber)
		if why != "" {
			description = fmt.Sprintf("%s: %s", description, why)
		}
		reversal = e.newCompletedTransaction(account, userID, reversalType, original.Amount, before, description)
		return tx.CreateTransaction(ctx, reversal)
	})
	if err != nil {
		return nil, err
	}
	return reversal, nil
}
