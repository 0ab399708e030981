package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjordbank/core/internal/model"
)

func TestOpenAccount(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	user := uuid.New()

	account, err := engine.OpenAccount(context.Background(), testTenant, user, model.CreateAccountRequest{
		AccountType: model.AccountTypeChecking,
		Currency:    "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, model.AccountStatusActive, account.Status)
	assert.True(t, account.Balance.IsZero())
	assert.True(t, account.DailyWithdrawalLimit.Equal(decimal.NewFromInt(1000)))
	assert.True(t, account.OverdraftLimit.IsZero())
	assert.NotEmpty(t, account.AccountNumber)
}

func TestOpenAccountUnknownCurrency(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.OpenAccount(context.Background(), testTenant, uuid.New(), model.CreateAccountRequest{
		AccountType: model.AccountTypeChecking,
		Currency:    "JPY",
	})
	assert.ErrorIs(t, err, model.ErrCurrencyNotFound)
}

func TestCloseAccount(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 0)

	ctx := context.Background()
	closed, err := engine.CloseAccount(ctx, testTenant, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	// Closing twice is rejected
	_, err = engine.CloseAccount(ctx, testTenant, acct.ID)
	assert.ErrorIs(t, err, model.ErrInvalidStateChange)
}

func TestCloseAccountWithFunds(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 100)

	_, err := engine.CloseAccount(context.Background(), testTenant, acct.ID)
	assert.ErrorIs(t, err, model.ErrAccountNotEmpty)
}

func TestCloseAccountWithActiveHold(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 100)

	ctx := context.Background()
	hold, err := engine.PlaceHold(ctx, testTenant, holdRequest(acct.ID, 100))
	require.NoError(t, err)
	_, err = engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, model.ErrInsufficientFunds)

	// Balance zero is not enough; held funds must be released first
	_, err = engine.ReleaseHold(ctx, testTenant, hold.ID)
	require.NoError(t, err)
	_, err = engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = engine.CloseAccount(ctx, testTenant, acct.ID)
	assert.NoError(t, err)
}

func TestSuspendReactivate(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 100)

	ctx := context.Background()
	suspended, err := engine.SuspendAccount(ctx, testTenant, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusSuspended, suspended.Status)

	// Suspended accounts reject ledger operations
	_, err = engine.Deposit(ctx, testTenant, user, model.DepositRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, model.ErrAccountInactive)

	reactivated, err := engine.ReactivateAccount(ctx, testTenant, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusActive, reactivated.Status)

	_, err = engine.ReactivateAccount(ctx, testTenant, acct.ID)
	assert.ErrorIs(t, err, model.ErrInvalidStateChange)
}

func TestApplyInterest(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 12000)
	acct.AccountType = model.AccountTypeSavings
	acct.InterestRate = decimal.NewFromFloat(0.01)
	store.PutAccount(acct)

	txn, err := engine.ApplyInterest(context.Background(), acct.ID)
	require.NoError(t, err)
	require.NotNil(t, txn)

	// 12000 * 0.01 / 12 = 10.00
	assert.Equal(t, model.TransactionTypeInterest, txn.Type)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(10)), "interest %s", txn.Amount)

	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(12010)))
}

func TestApplyInterestCheckingRejected(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	acct := seedAccount(store, uuid.New(), "USD", 1000)

	_, err := engine.ApplyInterest(context.Background(), acct.ID)
	assert.ErrorIs(t, err, model.ErrInvalidAccountType)
}

func TestApplyInterestZeroBalance(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	acct := seedAccount(store, uuid.New(), "USD", 0)
	acct.AccountType = model.AccountTypeSavings
	acct.InterestRate = decimal.NewFromFloat(0.01)
	store.PutAccount(acct)

	txn, err := engine.ApplyInterest(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Nil(t, txn, "nothing accrues on a zero balance")
}
