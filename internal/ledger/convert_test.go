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

func TestConvertDirectRate(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	conv, err := engine.Convert(context.Background(), testTenant, model.ConvertRequest{
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Amount:       decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	assert.True(t, conv.ExchangeRate.Equal(decimal.NewFromFloat(0.85)))
	assert.True(t, conv.SpreadApplied.IsZero(), "no spread at or below threshold")
	assert.True(t, conv.TotalRate.Equal(decimal.NewFromFloat(0.85)))
	assert.True(t, conv.ConvertedAmount.Equal(decimal.NewFromInt(425)), "got %s", conv.ConvertedAmount)
}

func TestConvertReversePairInversion(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	// Only USD->EUR is quoted; EUR->USD uses 1/rate
	conv, err := engine.Convert(context.Background(), testTenant, model.ConvertRequest{
		FromCurrency: "EUR",
		ToCurrency:   "USD",
		Amount:       decimal.NewFromInt(85),
	})
	require.NoError(t, err)

	expected := decimal.NewFromInt(1).DivRound(decimal.NewFromFloat(0.85), 10)
	assert.True(t, conv.ExchangeRate.Equal(expected), "got %s want %s", conv.ExchangeRate, expected)
	assert.True(t, conv.ConvertedAmount.Equal(decimal.NewFromInt(100)), "got %s", conv.ConvertedAmount)
}

func TestConvertSpreadThreshold(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	// At the threshold: raw rate
	atThreshold, err := engine.Convert(ctx, testTenant, model.ConvertRequest{
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Amount:       decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	assert.True(t, atThreshold.SpreadApplied.IsZero())
	assert.True(t, atThreshold.TotalRate.Equal(decimal.NewFromFloat(0.85)))

	// Just above: spread kicks in, total_rate = rate * (1 - spread)
	above, err := engine.Convert(ctx, testTenant, model.ConvertRequest{
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Amount:       decimal.NewFromFloat(10000.01),
	})
	require.NoError(t, err)
	assert.True(t, above.SpreadApplied.Equal(decimal.NewFromFloat(0.005)))
	wantRate := decimal.NewFromFloat(0.85).Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(0.005)))
	assert.True(t, above.TotalRate.Equal(wantRate), "got %s want %s", above.TotalRate, wantRate)
	assert.True(t, above.ConvertedAmount.Equal(above.Amount.Mul(above.TotalRate).Round(2)))
}

func TestConvertRejections(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     model.ConvertRequest
		wantErr error
	}{
		{
			"same currency",
			model.ConvertRequest{FromCurrency: "USD", ToCurrency: "USD", Amount: decimal.NewFromInt(10)},
			model.ErrSameCurrency,
		},
		{
			"zero amount",
			model.ConvertRequest{FromCurrency: "USD", ToCurrency: "EUR", Amount: decimal.Zero},
			model.ErrInvalidAmount,
		},
		{
			"unknown currency",
			model.ConvertRequest{FromCurrency: "USD", ToCurrency: "JPY", Amount: decimal.NewFromInt(10)},
			model.ErrCurrencyNotFound,
		},
		{
			"no rate for pair",
			model.ConvertRequest{FromCurrency: "EUR", ToCurrency: "NOK", Amount: decimal.NewFromInt(10)},
			model.ErrRateUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Convert(ctx, testTenant, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCurrencyTransfer(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	usd := seedAccount(store, user, "USD", 1000)
	eur := seedAccount(store, user, "EUR", 100)

	transfer, err := engine.CurrencyTransfer(context.Background(), testTenant, user, model.CurrencyTransferRequest{
		FromAccountID: usd.ID,
		ToAccountID:   eur.ID,
		Amount:        decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransferTypeCurrency, transfer.Type)
	assert.Equal(t, model.TransferStatusCompleted, transfer.Status)
	require.NotNil(t, transfer.ConvertedAmount)
	assert.True(t, transfer.ConvertedAmount.Equal(decimal.NewFromInt(425)))

	// Source debited in USD, destination credited the converted EUR
	usdAfter := mustGetAccount(t, store, usd.ID)
	eurAfter := mustGetAccount(t, store, eur.ID)
	assert.True(t, usdAfter.Balance.Equal(decimal.NewFromInt(500)))
	assert.True(t, eurAfter.Balance.Equal(decimal.NewFromInt(525)))

	// Legs carry the applied rate
	require.NotNil(t, transfer.DebitTransaction)
	debit, err := store.GetTransaction(context.Background(), *transfer.DebitTransaction)
	require.NoError(t, err)
	require.NotNil(t, debit.ExchangeRate)
	assert.True(t, debit.ExchangeRate.Equal(decimal.NewFromFloat(0.85)))
}

func TestCurrencyTransferSameCurrency(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	user := uuid.New()
	a := seedAccount(store, user, "USD", 1000)
	b := seedAccount(store, user, "USD", 100)

	_, err := engine.CurrencyTransfer(context.Background(), testTenant, user, model.CurrencyTransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, model.ErrUseInternalTransfer)
}
