package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// pgTx implements ledger.Tx on a pgx transaction. ForUpdate reads take row
// locks that live until commit or rollback.
type pgTx struct {
	tx pgx.Tx
}

var _ ledger.Tx = (*pgTx)(nil)

func (t *pgTx) CreateAccount(ctx context.Context, a *model.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := t.tx.Exec(ctx, query,
		a.ID, a.AccountNumber, a.UserID, a.TenantID, a.AccountType, a.Currency, a.Status,
		a.Balance, a.AvailableBalance, a.DailyWithdrawalLimit, a.DailyTransferLimit,
		a.OverdraftLimit, a.OverdraftFee, a.InterestRate, a.OpenedAt, a.ClosedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (t *pgTx) AccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(t.tx.QueryRow(ctx, query, id))
}

func (t *pgTx) SaveAccount(ctx context.Context, a *model.Account) error {
	query := `UPDATE accounts SET
		status = $2, balance = $3, available_balance = $4,
		daily_withdrawal_limit = $5, daily_transfer_limit = $6,
		overdraft_limit = $7, overdraft_fee = $8, interest_rate = $9,
		closed_at = $10, updated_at = NOW()
		WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query,
		a.ID, a.Status, a.Balance, a.AvailableBalance,
		a.DailyWithdrawalLimit, a.DailyTransferLimit,
		a.OverdraftLimit, a.OverdraftFee, a.InterestRate, a.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (t *pgTx) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := t.tx.Exec(ctx, query,
		txn.ID, txn.ReferenceNumber, txn.AccountID, txn.UserID, txn.TenantID, txn.Type, txn.Amount, txn.Currency,
		txn.ExchangeRate, txn.BalanceBefore, txn.BalanceAfter, txn.Status, txn.Description, txn.FailureReason,
		txn.ProcessedAt, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (t *pgTx) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(t.tx.QueryRow(ctx, query, id))
}

// UpdateTransactionStatus is a compare-and-set on the status column. Zero
// rows affected means the claim was lost, not an error.
func (t *pgTx) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to model.TransactionStatus, reason string) (bool, error) {
	if !from.CanTransition(to) {
		return false, model.ErrInvalidStateChange
	}
	query := `UPDATE transactions SET status = $3, failure_reason = COALESCE(NULLIF($4, ''), failure_reason)
		WHERE id = $1 AND status = $2`
	tag, err := t.tx.Exec(ctx, query, id, from, to, reason)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const transferColumns = `id, reference_number, tenant_id, from_account_id, to_account_id, beneficiary,
	type, amount, currency, exchange_rate, converted_amount, fee, status, description, failure_reason,
	debit_transaction_id, credit_transaction_id, processed_at, created_at, updated_at`

func scanTransfer(row pgx.Row) (*model.Transfer, error) {
	var (
		tr          model.Transfer
		beneficiary []byte
	)
	err := row.Scan(
		&tr.ID, &tr.ReferenceNumber, &tr.TenantID, &tr.FromAccountID, &tr.ToAccountID, &beneficiary,
		&tr.Type, &tr.Amount, &tr.Currency, &tr.ExchangeRate, &tr.ConvertedAmount, &tr.Fee, &tr.Status,
		&tr.Description, &tr.FailureReason, &tr.DebitTransaction, &tr.CreditTransaction,
		&tr.ProcessedAt, &tr.CreatedAt, &tr.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}
	if len(beneficiary) > 0 {
		var b model.ExternalBeneficiary
		if err := json.Unmarshal(beneficiary, &b); err != nil {
			return nil, fmt.Errorf("failed to decode beneficiary: %w", err)
		}
		tr.Beneficiary = &b
	}
	return &tr, nil
}

func encodeBeneficiary(b *model.ExternalBeneficiary) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func (t *pgTx) CreateTransfer(ctx context.Context, tr *model.Transfer) error {
	beneficiary, err := encodeBeneficiary(tr.Beneficiary)
	if err != nil {
		return fmt.Errorf("failed to encode beneficiary: %w", err)
	}
	query := `INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`
	_, err = t.tx.Exec(ctx, query,
		tr.ID, tr.ReferenceNumber, tr.TenantID, tr.FromAccountID, tr.ToAccountID, beneficiary,
		tr.Type, tr.Amount, tr.Currency, tr.ExchangeRate, tr.ConvertedAmount, tr.Fee, tr.Status,
		tr.Description, tr.FailureReason, tr.DebitTransaction, tr.CreditTransaction,
		tr.ProcessedAt, tr.CreatedAt, tr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

func (t *pgTx) TransferForUpdate(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	return scanTransfer(t.tx.QueryRow(ctx, query, id))
}

func (t *pgTx) SaveTransfer(ctx context.Context, tr *model.Transfer) error {
	query := `UPDATE transfers SET
		status = $2, failure_reason = $3, debit_transaction_id = $4, credit_transaction_id = $5,
		exchange_rate = $6, converted_amount = $7, processed_at = $8, updated_at = $9
		WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query,
		tr.ID, tr.Status, tr.FailureReason, tr.DebitTransaction, tr.CreditTransaction,
		tr.ExchangeRate, tr.ConvertedAmount, tr.ProcessedAt, tr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTransferNotFound
	}
	return nil
}

const scheduleColumns = `id, account_id, destination_account_id, user_id, tenant_id, amount, currency,
	description, frequency, start_date, end_date, next_execution, last_execution, status,
	execution_count, max_executions, created_at, updated_at`

func scanSchedule(row pgx.Row) (*model.ScheduledTransaction, error) {
	var sc model.ScheduledTransaction
	err := row.Scan(
		&sc.ID, &sc.AccountID, &sc.DestinationID, &sc.UserID, &sc.TenantID, &sc.Amount, &sc.Currency,
		&sc.Description, &sc.Frequency, &sc.StartDate, &sc.EndDate, &sc.NextExecution, &sc.LastExecution,
		&sc.Status, &sc.ExecutionCount, &sc.MaxExecutions, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}
	return &sc, nil
}

func (t *pgTx) ScheduleForUpdate(ctx context.Context, id uuid.UUID) (*model.ScheduledTransaction, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_transactions WHERE id = $1 FOR UPDATE`
	return scanSchedule(t.tx.QueryRow(ctx, query, id))
}

func (t *pgTx) CreateSchedule(ctx context.Context, sc *model.ScheduledTransaction) error {
	query := `INSERT INTO scheduled_transactions (` + scheduleColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := t.tx.Exec(ctx, query,
		sc.ID, sc.AccountID, sc.DestinationID, sc.UserID, sc.TenantID, sc.Amount, sc.Currency,
		sc.Description, sc.Frequency, sc.StartDate, sc.EndDate, sc.NextExecution, sc.LastExecution,
		sc.Status, sc.ExecutionCount, sc.MaxExecutions, sc.CreatedAt, sc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

func (t *pgTx) SaveSchedule(ctx context.Context, sc *model.ScheduledTransaction) error {
	query := `UPDATE scheduled_transactions SET
		next_execution = $2, last_execution = $3, status = $4, execution_count = $5, updated_at = $6
		WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query,
		sc.ID, sc.NextExecution, sc.LastExecution, sc.Status, sc.ExecutionCount, sc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrScheduleNotFound
	}
	return nil
}

const holdColumns = `id, account_id, tenant_id, amount, hold_type, reason, reference,
	expires_at, released_at, active, created_at`

func scanHold(row pgx.Row) (*model.AccountHold, error) {
	var h model.AccountHold
	err := row.Scan(
		&h.ID, &h.AccountID, &h.TenantID, &h.Amount, &h.HoldType, &h.Reason, &h.Reference,
		&h.ExpiresAt, &h.ReleasedAt, &h.Active, &h.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan hold: %w", err)
	}
	return &h, nil
}

func (t *pgTx) CreateHold(ctx context.Context, h *model.AccountHold) error {
	query := `INSERT INTO account_holds (` + holdColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := t.tx.Exec(ctx, query,
		h.ID, h.AccountID, h.TenantID, h.Amount, h.HoldType, h.Reason, h.Reference,
		h.ExpiresAt, h.ReleasedAt, h.Active, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	return nil
}

func (t *pgTx) HoldForUpdate(ctx context.Context, id uuid.UUID) (*model.AccountHold, error) {
	query := `SELECT ` + holdColumns + ` FROM account_holds WHERE id = $1 FOR UPDATE`
	return scanHold(t.tx.QueryRow(ctx, query, id))
}

func (t *pgTx) SaveHold(ctx context.Context, h *model.AccountHold) error {
	query := `UPDATE account_holds SET released_at = $2, active = $3 WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query, h.ID, h.ReleasedAt, h.Active)
	if err != nil {
		return fmt.Errorf("failed to update hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrHoldNotFound
	}
	return nil
}

const limitColumns = `id, scope, account_id, user_id, tenant_id, operation, period,
	limit_amount, currency, current_period_usage, period_start, active, created_at, updated_at`

func (t *pgTx) LimitForUpdate(ctx context.Context, accountID uuid.UUID, op model.LimitOperation, period model.LimitPeriod) (*model.TransactionLimit, error) {
	query := `SELECT ` + limitColumns + ` FROM transaction_limits
		WHERE account_id = $1 AND operation = $2 AND period = $3 FOR UPDATE`
	var l model.TransactionLimit
	err := t.tx.QueryRow(ctx, query, accountID, op, period).Scan(
		&l.ID, &l.Scope, &l.AccountID, &l.UserID, &l.TenantID, &l.Operation, &l.Period,
		&l.LimitAmount, &l.Currency, &l.CurrentPeriodUsage, &l.PeriodStart, &l.Active, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan limit: %w", err)
	}
	return &l, nil
}

func (t *pgTx) CreateLimit(ctx context.Context, l *model.TransactionLimit) error {
	query := `INSERT INTO transaction_limits (` + limitColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := t.tx.Exec(ctx, query,
		l.ID, l.Scope, l.AccountID, l.UserID, l.TenantID, l.Operation, l.Period,
		l.LimitAmount, l.Currency, l.CurrentPeriodUsage, l.PeriodStart, l.Active, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert limit: %w", err)
	}
	return nil
}

func (t *pgTx) SaveLimit(ctx context.Context, l *model.TransactionLimit) error {
	query := `UPDATE transaction_limits SET
		limit_amount = $2, current_period_usage = $3, period_start = $4, active = $5, updated_at = $6
		WHERE id = $1`
	_, err := t.tx.Exec(ctx, query, l.ID, l.LimitAmount, l.CurrentPeriodUsage, l.PeriodStart, l.Active, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update limit: %w", err)
	}
	return nil
}

func (t *pgTx) ActiveRate(ctx context.Context, from, to string) (*model.ExchangeRate, error) {
	query := `SELECT id, from_currency, to_currency, rate, spread, active, updated_at
		FROM exchange_rates WHERE from_currency = UPPER($1) AND to_currency = UPPER($2) AND active = TRUE`
	var r model.ExchangeRate
	err := t.tx.QueryRow(ctx, query, from, to).Scan(
		&r.ID, &r.FromCurrency, &r.ToCurrency, &r.Rate, &r.Spread, &r.Active, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
	}
	return &r, nil
}

func (t *pgTx) CreateConversion(ctx context.Context, conv *model.CurrencyConversion) error {
	query := `INSERT INTO currency_conversions
		(id, tenant_id, from_currency, to_currency, amount, converted_amount, exchange_rate, spread_applied, total_rate, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := t.tx.Exec(ctx, query,
		conv.ID, conv.TenantID, conv.FromCurrency, conv.ToCurrency, conv.Amount, conv.ConvertedAmount,
		conv.ExchangeRate, conv.SpreadApplied, conv.TotalRate, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion: %w", err)
	}
	return nil
}

func (t *pgTx) GetAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(t.tx.QueryRow(ctx, query, number))
}

func (t *pgTx) GetCurrency(ctx context.Context, code string) (*model.Currency, error) {
	query := `SELECT code, name, symbol, active, created_at FROM currencies WHERE code = UPPER($1)`
	var c model.Currency
	err := t.tx.QueryRow(ctx, query, code).Scan(&c.Code, &c.Name, &c.Symbol, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan currency: %w", err)
	}
	return &c, nil
}
