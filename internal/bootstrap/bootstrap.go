package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fjordbank/core/internal/model"
)

// SystemTenant owns system accounts like the fee collector
const SystemTenant = "system"

type seedCurrency struct {
	code, name, symbol string
}

type seedRate struct {
	from, to string
	rate     decimal.Decimal
	spread   decimal.Decimal
}

var currencies = []seedCurrency{
	{"USD", "US Dollar", "$"},
	{"EUR", "Euro", "€"},
	{"GBP", "British Pound", "£"},
	{"NOK", "Norwegian Krone", "kr"},
}

var rates = []seedRate{
	{"USD", "EUR", decimal.NewFromFloat(0.85), decimal.NewFromFloat(0.005)},
	{"USD", "GBP", decimal.NewFromFloat(0.73), decimal.NewFromFloat(0.005)},
	{"USD", "NOK", decimal.NewFromFloat(10.50), decimal.NewFromFloat(0.008)},
	{"EUR", "GBP", decimal.NewFromFloat(0.86), decimal.NewFromFloat(0.005)},
	{"EUR", "NOK", decimal.NewFromFloat(11.40), decimal.NewFromFloat(0.008)},
}

// Initialize seeds reference data and system accounts. Called on startup
// after the database connection is established; every step is idempotent.
func Initialize(ctx context.Context, db *pgxpool.Pool) error {
	if err := ensureCurrencies(ctx, db); err != nil {
		return fmt.Errorf("failed to seed currencies: %w", err)
	}
	if err := ensureRates(ctx, db); err != nil {
		return fmt.Errorf("failed to seed exchange rates: %w", err)
	}
	if err := ensureFeeAccount(ctx, db); err != nil {
		return fmt.Errorf("failed to ensure fee collection account: %w", err)
	}
	return nil
}

func ensureCurrencies(ctx context.Context, db *pgxpool.Pool) error {
	for _, c := range currencies {
		_, err := db.Exec(ctx, `
			INSERT INTO currencies (code, name, symbol, active, created_at)
			VALUES ($1, $2, $3, TRUE, NOW())
			ON CONFLICT (code) DO NOTHING
		`, c.code, c.name, c.symbol)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureRates(ctx context.Context, db *pgxpool.Pool) error {
	// Only the forward pair is stored; the reverse direction is derived by
	// inverting the rate at quote time.
	for _, r := range rates {
		_, err := db.Exec(ctx, `
			INSERT INTO exchange_rates (id, from_currency, to_currency, rate, spread, active, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
			ON CONFLICT (from_currency, to_currency) DO NOTHING
		`, uuid.New(), r.from, r.to, r.rate, r.spread)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureFeeAccount(ctx context.Context, db *pgxpool.Pool) error {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)
	`, model.SystemFeeAccountNumber).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	now := time.Now()
	_, err = db.Exec(ctx, `
		INSERT INTO accounts (id, account_number, user_id, tenant_id, account_type, currency, status,
			balance, available_balance, daily_withdrawal_limit, daily_transfer_limit,
			overdraft_limit, overdraft_fee, interest_rate, opened_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, 0, 0, 0, 0, $8, $8, $8)
	`,
		uuid.New(), model.SystemFeeAccountNumber, uuid.Nil, SystemTenant,
		model.AccountTypeBusiness, "USD", model.AccountStatusActive, now,
	)
	if err != nil {
		return err
	}

	log.Printf("Created fee collection account %s", model.SystemFeeAccountNumber)
	return nil
}
