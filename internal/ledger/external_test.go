package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjordbank/core/internal/model"
)

func externalRequest(fromID uuid.UUID, amount int64) model.ExternalTransferRequest {
	return model.ExternalTransferRequest{
		FromAccountID:   fromID,
		ToAccountNumber: "NO9386011117947",
		ToBankCode:      "DNBANOKK",
		BeneficiaryName: "Kari Nordmann",
		Amount:          decimal.NewFromInt(amount),
	}
}

func TestExternalTransferInitiation(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	transfer, err := engine.ExternalTransfer(context.Background(), testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	assert.Equal(t, model.TransferStatusPending, transfer.Status)
	assert.True(t, transfer.Fee.Equal(decimal.NewFromInt(10)), "1%% fee, got %s", transfer.Fee)
	require.NotNil(t, transfer.Beneficiary)
	assert.Equal(t, "DNBANOKK", transfer.Beneficiary.BankCode)

	// No balance moves at initiation
	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(5000)))
}

func TestExternalTransferInsufficientForAmountPlusFee(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 1005)

	// 1000 + 10 fee > 1005
	_, err := engine.ExternalTransfer(context.Background(), testTenant, user, externalRequest(acct.ID, 1000))
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
}

func TestExternalTransferDailyLimit(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 100000)

	ctx := context.Background()
	_, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 25000))
	require.NoError(t, err)

	// Limit consumed at initiation even though nothing settled yet
	_, err = engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1))
	assert.ErrorIs(t, err, model.ErrDailyLimitExceeded)
}

func TestCompleteExternalTransfer(t *testing.T) {
	engine, store, settlement := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))
	assert.Equal(t, 1, settlement.calls)

	done, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCompleted, done.Status)
	assert.NotNil(t, done.ProcessedAt)
	require.NotNil(t, done.DebitTransaction)

	// Amount plus fee debited
	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(3990)), "balance %s", got.Balance)

	// Fee routed to the collection account
	feeAcct, err := store.GetAccountByNumber(ctx, model.SystemFeeAccountNumber)
	require.NoError(t, err)
	assert.True(t, feeAcct.Balance.Equal(decimal.NewFromInt(10)))
}

func TestCompleteExternalTransferConvertsFee(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "EUR", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)
	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))

	// The source pays the fee in its own currency
	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(3990)), "balance %s", got.Balance)

	// The collection account books the fee in USD: 10 EUR at the inverted
	// USD->EUR rate of 0.85
	feeAcct, err := store.GetAccountByNumber(ctx, model.SystemFeeAccountNumber)
	require.NoError(t, err)
	assert.True(t, feeAcct.Balance.Equal(decimal.NewFromFloat(11.76)), "fee income %s", feeAcct.Balance)
}

func TestCompleteExternalTransferIdempotent(t *testing.T) {
	engine, store, settlement := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))
	// Duplicate delivery is a no-op: no second settlement, no second debit
	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))
	assert.Equal(t, 1, settlement.calls)

	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(3990)))
}

func TestCompleteExternalTransferDeclined(t *testing.T) {
	engine, store, settlement := newTestEngine(t)
	settlement.accept = false
	settlement.reason = "beneficiary account closed"

	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	// A decline is terminal, not retryable
	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))

	failed, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusFailed, failed.Status)
	assert.Equal(t, "beneficiary account closed", failed.FailureReason)

	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(5000)))
}

func TestCompleteExternalTransferTransientError(t *testing.T) {
	engine, store, settlement := newTestEngine(t)
	settlement.err = errors.New("connection reset")

	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	// Transport failure surfaces as an error and leaves the transfer pending
	err = engine.CompleteExternalTransfer(ctx, transfer.ID)
	require.Error(t, err)

	pending, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusPending, pending.Status)

	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(5000)))

	// The retry succeeds once the network recovers
	settlement.err = nil
	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))
	done, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCompleted, done.Status)
}

func TestCompleteExternalTransferFundsGone(t *testing.T) {
	engine, store, settlement := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	// Drain the account before completion runs
	_, err = engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(4500),
	})
	require.NoError(t, err)

	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))
	assert.Equal(t, 0, settlement.calls, "settlement must not be called without funds")

	failed, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusFailed, failed.Status)
}

func TestCancelExternalTransfer(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	cancelled, err := engine.CancelExternalTransfer(ctx, testTenant, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCancelled, cancelled.Status)

	// Completion after cancellation is a no-op
	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))
	got, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCancelled, got.Status)
}

func TestCancelCompletedTransfer(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)
	require.NoError(t, engine.CompleteExternalTransfer(ctx, transfer.ID))

	_, err = engine.CancelExternalTransfer(ctx, testTenant, transfer.ID)
	assert.ErrorIs(t, err, model.ErrTransferNotCancelable)

	got, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCompleted, got.Status)
}

func TestFailExternalTransferIdempotent(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 5000)

	ctx := context.Background()
	transfer, err := engine.ExternalTransfer(ctx, testTenant, user, externalRequest(acct.ID, 1000))
	require.NoError(t, err)

	require.NoError(t, engine.FailExternalTransfer(ctx, transfer.ID, "retries exhausted"))
	failed, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusFailed, failed.Status)
	assert.Equal(t, "retries exhausted", failed.FailureReason)

	// Second failure attempt leaves the record untouched
	require.NoError(t, engine.FailExternalTransfer(ctx, transfer.ID, "other reason"))
	again, err := store.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, "retries exhausted", again.FailureReason)
}
