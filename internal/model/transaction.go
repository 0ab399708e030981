package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of a single balance change
type TransactionType string

const (
	TransactionTypeDeposit        TransactionType = "deposit"
	TransactionTypeWithdrawal     TransactionType = "withdrawal"
	TransactionTypeTransferDebit  TransactionType = "transfer_debit"
	TransactionTypeTransferCredit TransactionType = "transfer_credit"
	TransactionTypeFee            TransactionType = "fee"
	TransactionTypeInterest       TransactionType = "interest"
	TransactionTypeRefund         TransactionType = "refund"
	TransactionTypeAdjustment     TransactionType = "adjustment"
)

// IsDebit reports whether the type decreases the account balance. An
// adjustment is the compensation of a credit, so it counts as a debit.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypeTransferDebit, TransactionTypeFee, TransactionTypeAdjustment:
		return true
	}
	return false
}

// TransactionStatus represents the processing state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusReversed   TransactionStatus = "reversed"
)

// IsTerminal reports whether no further transition is allowed, except the
// explicit completed -> reversed compensation flag.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusReversed:
		return true
	}
	return false
}

// CanTransition validates the transaction status state machine:
//
//	pending -> processing -> completed
//	pending/processing -> failed
//	pending -> cancelled
//	completed -> reversed
//
// Everything else is an invariant violation.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return to == TransactionStatusProcessing || to == TransactionStatusCompleted ||
			to == TransactionStatusFailed || to == TransactionStatusCancelled
	case TransactionStatusProcessing:
		return to == TransactionStatusCompleted || to == TransactionStatusFailed
	case TransactionStatusCompleted:
		return to == TransactionStatusReversed
	}
	return false
}

// Transaction is the immutable audit record of one balance change on one
// account. Once completed, BalanceBefore/BalanceAfter are never edited;
// only the status may move forward.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	ReferenceNumber string            `json:"reference_number"`
	AccountID       uuid.UUID         `json:"account_id"`
	UserID          uuid.UUID         `json:"user_id"`
	TenantID        string            `json:"tenant_id"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	ExchangeRate    *decimal.Decimal  `json:"exchange_rate,omitempty"`
	BalanceBefore   decimal.Decimal   `json:"balance_before"`
	BalanceAfter    decimal.Decimal   `json:"balance_after"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// SignedAmount returns the amount with the sign implied by the type
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// GenerateTransactionRef builds a unique human-readable transaction reference
func GenerateTransactionRef() string {
	return generateRef("TXN")
}

// GenerateTransferRef builds a unique human-readable transfer reference
func GenerateTransferRef() string {
	return generateRef("TRF")
}

func generateRef(prefix string) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strings.ToUpper(prefix + ts + frag)
}

// TransferType distinguishes how money leaves the system
type TransferType string

const (
	TransferTypeInternal TransferType = "internal"
	TransferTypeExternal TransferType = "external"
	TransferTypeCurrency TransferType = "currency"
)

// TransferStatus represents the processing state of a transfer
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusCompleted  TransferStatus = "completed"
	TransferStatusFailed     TransferStatus = "failed"
	TransferStatusCancelled  TransferStatus = "cancelled"
)

// IsTerminal reports whether the transfer can no longer change state
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case TransferStatusCompleted, TransferStatusFailed, TransferStatusCancelled:
		return true
	}
	return false
}

// CanTransition validates the transfer status state machine
func (s TransferStatus) CanTransition(to TransferStatus) bool {
	switch s {
	case TransferStatusPending:
		return to == TransferStatusProcessing || to == TransferStatusCompleted ||
			to == TransferStatusFailed || to == TransferStatusCancelled
	case TransferStatusProcessing:
		return to == TransferStatusCompleted || to == TransferStatusFailed
	}
	return false
}

// ExternalBeneficiary holds the destination details of an external transfer
type ExternalBeneficiary struct {
	AccountNumber   string `json:"account_number"`
	BankCode        string `json:"bank_code"`
	BeneficiaryName string `json:"beneficiary_name"`
}

// Transfer records money movement from a source account to either another
// account in the system or an external beneficiary. Internal transfers
// produce exactly two transaction legs sharing the transfer reference;
// external transfers produce a single debit leg on successful completion.
type Transfer struct {
	ID                uuid.UUID            `json:"id"`
	ReferenceNumber   string               `json:"reference_number"`
	TenantID          string               `json:"tenant_id"`
	FromAccountID     uuid.UUID            `json:"from_account_id"`
	ToAccountID       *uuid.UUID           `json:"to_account_id,omitempty"`
	Beneficiary       *ExternalBeneficiary `json:"beneficiary,omitempty"`
	Type              TransferType         `json:"type"`
	Amount            decimal.Decimal      `json:"amount"`
	Currency          string               `json:"currency"`
	ExchangeRate      *decimal.Decimal     `json:"exchange_rate,omitempty"`
	ConvertedAmount   *decimal.Decimal     `json:"converted_amount,omitempty"`
	Fee               decimal.Decimal      `json:"fee"`
	Status            TransferStatus       `json:"status"`
	Description       string               `json:"description"`
	FailureReason     string               `json:"failure_reason,omitempty"`
	DebitTransaction  *uuid.UUID           `json:"debit_transaction_id,omitempty"`
	CreditTransaction *uuid.UUID           `json:"credit_transaction_id,omitempty"`
	ProcessedAt       *time.Time           `json:"processed_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// IsExternal reports whether the transfer leaves the system
func (t *Transfer) IsExternal() bool {
	return t.Type == TransferTypeExternal || t.ToAccountID == nil
}

// TotalDeduction is the amount the source account is debited on completion
func (t *Transfer) TotalDeduction() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// DepositRequest is the payload for a deposit
type DepositRequest struct {
	AccountID   uuid.UUID       `json:"account_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"max=255"`
}

// WithdrawRequest is the payload for a withdrawal
type WithdrawRequest struct {
	AccountID   uuid.UUID       `json:"account_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"max=255"`
}

// InternalTransferRequest is the payload for an account-to-account transfer
type InternalTransferRequest struct {
	FromAccountID uuid.UUID       `json:"from_account_id" validate:"required"`
	ToAccountID   uuid.UUID       `json:"to_account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Description   string          `json:"description" validate:"max=255"`
}

// Validate checks the transfer request beyond struct tags
func (r InternalTransferRequest) Validate() error {
	if r.FromAccountID == uuid.Nil || r.ToAccountID == uuid.Nil {
		return ErrAccountNotFound
	}
	if r.FromAccountID == r.ToAccountID {
		return ErrSameAccountTransfer
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// ExternalTransferRequest is the payload for a transfer out of the system
type ExternalTransferRequest struct {
	FromAccountID   uuid.UUID       `json:"from_account_id" validate:"required"`
	ToAccountNumber string          `json:"to_account_number" validate:"required,max=34"`
	ToBankCode      string          `json:"to_bank_code" validate:"required,max=20"`
	BeneficiaryName string          `json:"beneficiary_name" validate:"required,max=100"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Description     string          `json:"description" validate:"max=255"`
}

// TransferResponse is the acknowledgment returned after initiating a transfer
type TransferResponse struct {
	TransferID      uuid.UUID        `json:"transfer_id"`
	ReferenceNumber string           `json:"reference_number"`
	Status          TransferStatus   `json:"status"`
	Fee             decimal.Decimal  `json:"fee"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate,omitempty"`
	ConvertedAmount *decimal.Decimal `json:"converted_amount,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
