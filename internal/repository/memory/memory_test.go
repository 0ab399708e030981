package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
	"github.com/fjordbank/core/internal/repository/memory"
)

func TestUpdateTransactionStatusEnforcesStateMachine(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	txn := &model.Transaction{
		ID:              uuid.New(),
		ReferenceNumber: model.GenerateTransactionRef(),
		AccountID:       uuid.New(),
		Type:            model.TransactionTypeDeposit,
		Amount:          decimal.NewFromInt(10),
		Currency:        "USD",
		Status:          model.TransactionStatusPending,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, store.WithinTx(ctx, func(tx ledger.Tx) error {
		return tx.CreateTransaction(ctx, txn)
	}))

	// pending -> reversed is not a legal move even when the CAS matches
	err := store.WithinTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.UpdateTransactionStatus(ctx, txn.ID, model.TransactionStatusPending, model.TransactionStatusReversed, "")
		return err
	})
	assert.ErrorIs(t, err, model.ErrInvalidStateChange)

	require.NoError(t, store.WithinTx(ctx, func(tx ledger.Tx) error {
		claimed, err := tx.UpdateTransactionStatus(ctx, txn.ID, model.TransactionStatusPending, model.TransactionStatusProcessing, "")
		require.NoError(t, err)
		assert.True(t, claimed)
		return err
	}))

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusProcessing, got.Status)
}
