package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/model"
)

// Store is the persistence boundary of the ledger engine. Every balance
// mutation happens inside WithinTx so the record write, the balance update
// and the limit counter move atomically.
type Store interface {
	// WithinTx runs fn inside a database transaction. If fn returns an
	// error the transaction rolls back and the error is returned.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*model.Account, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	GetTransactionByRef(ctx context.Context, ref string) (*model.Transaction, error)
	GetTransfer(ctx context.Context, id uuid.UUID) (*model.Transfer, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*model.ScheduledTransaction, error)
	GetHold(ctx context.Context, id uuid.UUID) (*model.AccountHold, error)
	GetCurrency(ctx context.Context, code string) (*model.Currency, error)

	// ListAccounts returns a user's accounts within a tenant
	ListAccounts(ctx context.Context, tenantID string, userID uuid.UUID) ([]*model.Account, error)
	// ListDueSchedules returns active schedules with next_execution <= now
	ListDueSchedules(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledTransaction, error)
	// ListExpiredHolds returns active holds whose expiry has passed
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.AccountHold, error)
	// ListTransactions returns an account's transactions, newest first
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error)
	// ListTransfers returns transfers where the account is the source
	ListTransfers(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transfer, error)
	// ListSchedules returns an account's scheduled transactions
	ListSchedules(ctx context.Context, accountID uuid.UUID) ([]*model.ScheduledTransaction, error)
	// ListHolds returns an account's holds, active first
	ListHolds(ctx context.Context, accountID uuid.UUID) ([]*model.AccountHold, error)
	// ListCurrencies returns all active currencies
	ListCurrencies(ctx context.Context) ([]*model.Currency, error)
	// ListRates returns all active exchange rates
	ListRates(ctx context.Context) ([]*model.ExchangeRate, error)
}

// Tx is the set of operations available inside a ledger transaction.
// ForUpdate reads take row locks; callers must lock accounts in ascending
// ID order to avoid deadlocks.
type Tx interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	AccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error)
	SaveAccount(ctx context.Context, account *model.Account) error

	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// UpdateTransactionStatus moves a transaction from one status to another
	// and reports whether the claim succeeded. A false return with nil error
	// means another worker got there first.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to model.TransactionStatus, reason string) (bool, error)

	CreateTransfer(ctx context.Context, transfer *model.Transfer) error
	TransferForUpdate(ctx context.Context, id uuid.UUID) (*model.Transfer, error)
	SaveTransfer(ctx context.Context, transfer *model.Transfer) error

	ScheduleForUpdate(ctx context.Context, id uuid.UUID) (*model.ScheduledTransaction, error)
	CreateSchedule(ctx context.Context, schedule *model.ScheduledTransaction) error
	SaveSchedule(ctx context.Context, schedule *model.ScheduledTransaction) error

	CreateHold(ctx context.Context, hold *model.AccountHold) error
	HoldForUpdate(ctx context.Context, id uuid.UUID) (*model.AccountHold, error)
	SaveHold(ctx context.Context, hold *model.AccountHold) error

	// LimitForUpdate returns the usage counter for the key, or nil if none
	// exists yet.
	LimitForUpdate(ctx context.Context, accountID uuid.UUID, op model.LimitOperation, period model.LimitPeriod) (*model.TransactionLimit, error)
	CreateLimit(ctx context.Context, limit *model.TransactionLimit) error
	SaveLimit(ctx context.Context, limit *model.TransactionLimit) error

	// ActiveRate returns the active rate for the exact pair, or nil if the
	// pair is not quoted.
	ActiveRate(ctx context.Context, from, to string) (*model.ExchangeRate, error)
	CreateConversion(ctx context.Context, conv *model.CurrencyConversion) error

	GetAccountByNumber(ctx context.Context, number string) (*model.Account, error)
	GetCurrency(ctx context.Context, code string) (*model.Currency, error)
}
