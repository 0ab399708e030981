package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjordbank/core/internal/gateway"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
	"github.com/fjordbank/core/internal/notify"
	"github.com/fjordbank/core/internal/repository/memory"
)

const testTenant = "tenant-1"

type fakeSettlement struct {
	accept bool
	reason string
	err    error
	calls  int
}

func (f *fakeSettlement) Settle(_ context.Context, _ *model.Transfer) (*gateway.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.Result{Accepted: f.accept, Reason: f.reason}, nil
}

func newTestEngine(t *testing.T) (*ledger.Engine, *memory.Store, *fakeSettlement) {
	t.Helper()
	store := memory.NewStore()
	settlement := &fakeSettlement{accept: true}
	engine := ledger.NewEngine(store, settlement, notify.NewLogNotifier(), ledger.DefaultPolicy())

	for _, c := range []model.Currency{
		{Code: "USD", Name: "US Dollar", Active: true},
		{Code: "EUR", Name: "Euro", Active: true},
		{Code: "NOK", Name: "Norwegian Krone", Active: true},
	} {
		store.PutCurrency(c)
	}
	store.PutRate(model.ExchangeRate{
		FromCurrency: "USD", ToCurrency: "EUR",
		Rate: decimal.NewFromFloat(0.85), Spread: decimal.NewFromFloat(0.005), Active: true,
	})

	// Fee collection account
	store.PutAccount(model.Account{
		ID:            uuid.New(),
		AccountNumber: model.SystemFeeAccountNumber,
		TenantID:      "system",
		AccountType:   model.AccountTypeBusiness,
		Currency:      "USD",
		Status:        model.AccountStatusActive,
	})
	return engine, store, settlement
}

func seedAccount(store *memory.Store, userID uuid.UUID, currency string, balance float64) model.Account {
	b := decimal.NewFromFloat(balance)
	a := model.Account{
		ID:               uuid.New(),
		AccountNumber:    model.GenerateAccountNumber(),
		UserID:           userID,
		TenantID:         testTenant,
		AccountType:      model.AccountTypeChecking,
		Currency:         currency,
		Status:           model.AccountStatusActive,
		Balance:          b,
		AvailableBalance: b,
	}
	store.PutAccount(a)
	return a
}

func mustGetAccount(t *testing.T, store *memory.Store, id uuid.UUID) *model.Account {
	t.Helper()
	a, err := store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a
}

func TestDeposit(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 100)

	txn, err := engine.Deposit(context.Background(), testTenant, user, model.DepositRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(250),
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, model.TransactionTypeDeposit, txn.Type)
	assert.True(t, txn.BalanceBefore.Equal(decimal.NewFromInt(100)))
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(350)))
	assert.NotNil(t, txn.ProcessedAt)

	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(350)))
	assert.True(t, got.AvailableBalance.Equal(decimal.NewFromInt(350)))
}

func TestDepositValidation(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 0)

	tests := []struct {
		name    string
		amount  decimal.Decimal
		wantErr error
	}{
		{"zero amount", decimal.Zero, model.ErrInvalidAmount},
		{"negative amount", decimal.NewFromInt(-10), model.ErrInvalidAmount},
		{"above ceiling", decimal.NewFromInt(1000001), model.ErrAmountExceedsCeiling},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Deposit(context.Background(), testTenant, user, model.DepositRequest{
				AccountID: acct.ID,
				Amount:    tt.amount,
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Ceiling is inclusive
	_, err := engine.Deposit(context.Background(), testTenant, user, model.DepositRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(1000000),
	})
	assert.NoError(t, err)
}

func TestDepositInactiveAccount(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 0)
	acct.Status = model.AccountStatusFrozen
	store.PutAccount(acct)

	_, err := engine.Deposit(context.Background(), testTenant, user, model.DepositRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, model.ErrAccountInactive)
}

func TestDepositWrongTenant(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 0)

	_, err := engine.Deposit(context.Background(), "other-tenant", user, model.DepositRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestWithdraw(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 500)

	txn, err := engine.Withdraw(context.Background(), testTenant, user, model.WithdrawRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionTypeWithdrawal, txn.Type)
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(300)))

	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(300)))
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 50)

	_, err := engine.Withdraw(context.Background(), testTenant, user, model.WithdrawRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	// Failed attempt must not move the balance
	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(50)))
}

func TestWithdrawOverdraft(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 100)
	acct.OverdraftLimit = decimal.NewFromInt(500)
	acct.OverdraftFee = decimal.NewFromInt(35)
	store.PutAccount(acct)

	txn, err := engine.Withdraw(context.Background(), testTenant, user, model.WithdrawRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(-50)))

	// Overdraft fee charged as its own transaction
	got := mustGetAccount(t, store, acct.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(-85)), "balance %s", got.Balance)

	txns, err := store.ListTransactions(context.Background(), acct.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, model.TransactionTypeFee, txns[0].Type)
}

func TestWithdrawDailyLimit(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 50000)
	acct.DailyWithdrawalLimit = decimal.NewFromInt(1000)
	store.PutAccount(acct)

	ctx := context.Background()
	_, err := engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{AccountID: acct.ID, Amount: decimal.NewFromInt(600)})
	require.NoError(t, err)
	_, err = engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{AccountID: acct.ID, Amount: decimal.NewFromInt(400)})
	require.NoError(t, err)

	// Counter is exhausted for the day
	_, err = engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{AccountID: acct.ID, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, model.ErrDailyLimitExceeded)
}

func TestWithdrawLimitRollsOverNextDay(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	acct := seedAccount(store, user, "USD", 50000)
	acct.DailyWithdrawalLimit = decimal.NewFromInt(1000)
	store.PutAccount(acct)

	day1 := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	engine.SetNow(func() time.Time { return day1 })

	ctx := context.Background()
	_, err := engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{AccountID: acct.ID, Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	_, err = engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{AccountID: acct.ID, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, model.ErrDailyLimitExceeded)

	// Next day the counter resets lazily
	engine.SetNow(func() time.Time { return day1.AddDate(0, 0, 1) })
	_, err = engine.Withdraw(ctx, testTenant, user, model.WithdrawRequest{AccountID: acct.ID, Amount: decimal.NewFromInt(1000)})
	assert.NoError(t, err)
}

func TestInternalTransfer(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	from := seedAccount(store, user, "USD", 1000)
	to := seedAccount(store, uuid.New(), "USD", 200)

	transfer, err := engine.InternalTransfer(context.Background(), testTenant, user, model.InternalTransferRequest{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransferStatusCompleted, transfer.Status)
	assert.Equal(t, model.TransferTypeInternal, transfer.Type)
	require.NotNil(t, transfer.DebitTransaction)
	require.NotNil(t, transfer.CreditTransaction)

	ctx := context.Background()
	debit, err := store.GetTransaction(ctx, *transfer.DebitTransaction)
	require.NoError(t, err)
	credit, err := store.GetTransaction(ctx, *transfer.CreditTransaction)
	require.NoError(t, err)

	// Both legs share the transfer reference
	assert.Equal(t, transfer.ReferenceNumber, debit.ReferenceNumber)
	assert.Equal(t, transfer.ReferenceNumber, credit.ReferenceNumber)
	assert.Equal(t, model.TransactionTypeTransferDebit, debit.Type)
	assert.Equal(t, model.TransactionTypeTransferCredit, credit.Type)

	// Money is conserved
	fromAfter := mustGetAccount(t, store, from.ID)
	toAfter := mustGetAccount(t, store, to.ID)
	assert.True(t, fromAfter.Balance.Equal(decimal.NewFromInt(700)))
	assert.True(t, toAfter.Balance.Equal(decimal.NewFromInt(500)))
	total := fromAfter.Balance.Add(toAfter.Balance)
	assert.True(t, total.Equal(decimal.NewFromInt(1200)))
}

func TestInternalTransferRejections(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	usd := seedAccount(store, user, "USD", 1000)
	eur := seedAccount(store, user, "EUR", 1000)
	poor := seedAccount(store, user, "USD", 10)

	ctx := context.Background()
	tests := []struct {
		name    string
		req     model.InternalTransferRequest
		wantErr error
	}{
		{
			"same account",
			model.InternalTransferRequest{FromAccountID: usd.ID, ToAccountID: usd.ID, Amount: decimal.NewFromInt(10)},
			model.ErrSameAccountTransfer,
		},
		{
			"insufficient funds",
			model.InternalTransferRequest{FromAccountID: poor.ID, ToAccountID: usd.ID, Amount: decimal.NewFromInt(100)},
			model.ErrInsufficientFunds,
		},
		{
			"zero amount",
			model.InternalTransferRequest{FromAccountID: usd.ID, ToAccountID: eur.ID, Amount: decimal.Zero},
			model.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.InternalTransfer(ctx, testTenant, user, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInternalTransferAcrossCurrencies(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	usd := seedAccount(store, user, "USD", 1000)
	eur := seedAccount(store, user, "EUR", 0)

	// Mismatched currencies route through the conversion path instead of
	// being rejected
	transfer, err := engine.InternalTransfer(context.Background(), testTenant, user, model.InternalTransferRequest{
		FromAccountID: usd.ID,
		ToAccountID:   eur.ID,
		Amount:        decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransferTypeCurrency, transfer.Type)
	require.NotNil(t, transfer.ExchangeRate)
	require.NotNil(t, transfer.ConvertedAmount)
	assert.True(t, transfer.ConvertedAmount.Equal(decimal.NewFromInt(85)), "converted %s", transfer.ConvertedAmount)

	fromAfter := mustGetAccount(t, store, usd.ID)
	toAfter := mustGetAccount(t, store, eur.ID)
	assert.True(t, fromAfter.Balance.Equal(decimal.NewFromInt(900)))
	assert.True(t, toAfter.Balance.Equal(decimal.NewFromInt(85)), "credited %s", toAfter.Balance)
}

func TestInternalTransferToInactiveDestination(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	from := seedAccount(store, user, "USD", 1000)
	to := seedAccount(store, user, "USD", 0)
	to.Status = model.AccountStatusClosed
	store.PutAccount(to)

	_, err := engine.InternalTransfer(context.Background(), testTenant, user, model.InternalTransferRequest{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, model.ErrAccountInactive)
}
