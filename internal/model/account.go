package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the type of bank account
type AccountType string

const (
	AccountTypeSavings    AccountType = "savings"
	AccountTypeChecking   AccountType = "checking"
	AccountTypeBusiness   AccountType = "business"
	AccountTypeInvestment AccountType = "investment"
)

// SystemFeeAccountNumber is the well-known account number that collects fees
const SystemFeeAccountNumber = "FEE-COLLECTION-001"

// AccountStatus represents the current lifecycle state of an account.
// Accounts are never physically deleted; closure is a status transition.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
	AccountStatusFrozen    AccountStatus = "frozen"
)

// Account represents a bank account. Balance fields are owned exclusively by
// the ledger engine; nothing else may mutate them.
type Account struct {
	ID            uuid.UUID     `json:"id"`
	AccountNumber string        `json:"account_number"`
	UserID        uuid.UUID     `json:"user_id"`
	TenantID      string        `json:"tenant_id"`
	AccountType   AccountType   `json:"account_type"`
	Currency      string        `json:"currency"`
	Status        AccountStatus `json:"status"`

	// Balance is the ledger total; AvailableBalance excludes active holds.
	// Invariant: AvailableBalance <= Balance.
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`

	DailyWithdrawalLimit decimal.Decimal `json:"daily_withdrawal_limit"`
	DailyTransferLimit   decimal.Decimal `json:"daily_transfer_limit"`
	OverdraftLimit       decimal.Decimal `json:"overdraft_limit"`
	OverdraftFee         decimal.Decimal `json:"overdraft_fee"`
	InterestRate         decimal.Decimal `json:"interest_rate"`

	OpenedAt  time.Time  `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsActive returns true if the account can participate in ledger operations
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// IsSystemAccount returns true for internal accounts like the fee collector
func (a *Account) IsSystemAccount() bool {
	return a.AccountNumber == SystemFeeAccountNumber
}

// CanCover checks available funds plus overdraft against the given amount
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.AvailableBalance.Add(a.OverdraftLimit).GreaterThanOrEqual(amount)
}

// Credit increases both balance fields by amount. Amount must be positive.
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
	a.AvailableBalance = a.AvailableBalance.Add(amount)
}

// Debit decreases both balance fields by amount. Amount must be positive.
func (a *Account) Debit(amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(amount)
	a.AvailableBalance = a.AvailableBalance.Sub(amount)
}

// GenerateAccountNumber builds a human-readable unique account number
func GenerateAccountNumber() string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strings.ToUpper("AC" + ts + frag)
}

// HoldType classifies why funds are reserved
type HoldType string

const (
	HoldTypeTransaction    HoldType = "transaction"
	HoldTypeLegal          HoldType = "legal"
	HoldTypeSecurity       HoldType = "security"
	HoldTypeAdministrative HoldType = "administrative"
)

// AccountHold reserves part of an account's available balance without
// touching the ledger balance. Release is idempotent: active -> released
// happens at most once.
type AccountHold struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	TenantID   string          `json:"tenant_id"`
	Amount     decimal.Decimal `json:"amount"`
	HoldType   HoldType        `json:"hold_type"`
	Reason     string          `json:"reason"`
	Reference  string          `json:"reference,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	ReleasedAt *time.Time      `json:"released_at,omitempty"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
}

// IsExpired reports whether the hold has passed its expiry
func (h *AccountHold) IsExpired(now time.Time) bool {
	return h.ExpiresAt != nil && now.After(*h.ExpiresAt)
}

// CreateAccountRequest is the payload for opening a new account
type CreateAccountRequest struct {
	AccountType AccountType `json:"account_type" validate:"required,oneof=savings checking business investment"`
	Currency    string      `json:"currency" validate:"required,len=3,uppercase"`
}

// Validate checks the open-account request
func (r CreateAccountRequest) Validate() error {
	switch r.AccountType {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeBusiness, AccountTypeInvestment:
	default:
		return ErrInvalidAccountType
	}
	if len(r.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// CreateHoldRequest is the payload for placing a hold on account funds
type CreateHoldRequest struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	HoldType  HoldType        `json:"hold_type" validate:"required,oneof=transaction legal security administrative"`
	Reason    string          `json:"reason" validate:"required,max=255"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// AccountBalance is the balance view returned by the API
type AccountBalance struct {
	AccountID        uuid.UUID       `json:"account_id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Currency         string          `json:"currency"`
	AsOf             time.Time       `json:"as_of"`
}
