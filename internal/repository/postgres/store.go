package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// Store implements ledger.Store on PostgreSQL via pgx
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for health checks
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

var _ ledger.Store = (*Store)(nil)

// WithinTx runs fn inside a database transaction
func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const accountColumns = `id, account_number, user_id, tenant_id, account_type, currency, status,
	balance, available_balance, daily_withdrawal_limit, daily_transfer_limit,
	overdraft_limit, overdraft_fee, interest_rate, opened_at, closed_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.AccountNumber, &a.UserID, &a.TenantID, &a.AccountType, &a.Currency, &a.Status,
		&a.Balance, &a.AvailableBalance, &a.DailyWithdrawalLimit, &a.DailyTransferLimit,
		&a.OverdraftLimit, &a.OverdraftFee, &a.InterestRate, &a.OpenedAt, &a.ClosedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(s.pool.QueryRow(ctx, query, number))
}

const transactionColumns = `id, reference_number, account_id, user_id, tenant_id, type, amount, currency,
	exchange_rate, balance_before, balance_after, status, description, failure_reason, processed_at, created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(
		&t.ID, &t.ReferenceNumber, &t.AccountID, &t.UserID, &t.TenantID, &t.Type, &t.Amount, &t.Currency,
		&t.ExchangeRate, &t.BalanceBefore, &t.BalanceAfter, &t.Status, &t.Description, &t.FailureReason,
		&t.ProcessedAt, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) GetTransactionByRef(ctx context.Context, ref string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_number = $1`
	return scanTransaction(s.pool.QueryRow(ctx, query, ref))
}

func (s *Store) GetTransfer(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	return scanTransfer(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) GetSchedule(ctx context.Context, id uuid.UUID) (*model.ScheduledTransaction, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_transactions WHERE id = $1`
	return scanSchedule(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) GetHold(ctx context.Context, id uuid.UUID) (*model.AccountHold, error) {
	query := `SELECT ` + holdColumns + ` FROM account_holds WHERE id = $1`
	return scanHold(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) GetCurrency(ctx context.Context, code string) (*model.Currency, error) {
	query := `SELECT code, name, symbol, active, created_at FROM currencies WHERE code = UPPER($1)`
	var c model.Currency
	err := s.pool.QueryRow(ctx, query, code).Scan(&c.Code, &c.Name, &c.Symbol, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan currency: %w", err)
	}
	return &c, nil
}

func (s *Store) ListAccounts(ctx context.Context, tenantID string, userID uuid.UUID) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE tenant_id = $1 AND user_id = $2 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledTransaction, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_transactions
		WHERE status = 'active' AND next_execution <= $1
		ORDER BY next_execution ASC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}
	defer rows.Close()

	var out []*model.ScheduledTransaction
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.AccountHold, error) {
	query := `SELECT ` + holdColumns + ` FROM account_holds
		WHERE active = TRUE AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY created_at ASC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	defer rows.Close()

	var out []*model.AccountHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) ListCurrencies(ctx context.Context) ([]*model.Currency, error) {
	query := `SELECT code, name, symbol, active, created_at FROM currencies
		WHERE active = TRUE ORDER BY code ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	defer rows.Close()

	var out []*model.Currency
	for rows.Next() {
		var c model.Currency
		if err := rows.Scan(&c.Code, &c.Name, &c.Symbol, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) ListRates(ctx context.Context) ([]*model.ExchangeRate, error) {
	query := `SELECT id, from_currency, to_currency, rate, spread, active, updated_at
		FROM exchange_rates WHERE active = TRUE ORDER BY from_currency ASC, to_currency ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}
	defer rows.Close()

	var out []*model.ExchangeRate
	for rows.Next() {
		var r model.ExchangeRate
		if err := rows.Scan(&r.ID, &r.FromCurrency, &r.ToCurrency, &r.Rate, &r.Spread, &r.Active, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListTransfers(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE from_account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var out []*model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListSchedules(ctx context.Context, accountID uuid.UUID) ([]*model.ScheduledTransaction, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_transactions
		WHERE account_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var out []*model.ScheduledTransaction
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) ListHolds(ctx context.Context, accountID uuid.UUID) ([]*model.AccountHold, error) {
	query := `SELECT ` + holdColumns + ` FROM account_holds
		WHERE account_id = $1 ORDER BY active DESC, created_at ASC`
	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holds: %w", err)
	}
	defer rows.Close()

	var out []*model.AccountHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
