package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleFrequency determines how often a scheduled transaction recurs
type ScheduleFrequency string

const (
	FrequencyOnce      ScheduleFrequency = "once"
	FrequencyDaily     ScheduleFrequency = "daily"
	FrequencyWeekly    ScheduleFrequency = "weekly"
	FrequencyBiweekly  ScheduleFrequency = "biweekly"
	FrequencyMonthly   ScheduleFrequency = "monthly"
	FrequencyQuarterly ScheduleFrequency = "quarterly"
	FrequencyAnnually  ScheduleFrequency = "annually"
)

// ScheduleStatus represents the lifecycle of a scheduled transaction
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusPaused    ScheduleStatus = "paused"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// ScheduledTransaction is a template for recurring transfers between two
// accounts. NextExecution is monotonically non-decreasing across executions.
type ScheduledTransaction struct {
	ID            uuid.UUID         `json:"id"`
	AccountID     uuid.UUID         `json:"account_id"`
	DestinationID uuid.UUID         `json:"destination_account_id"`
	UserID        uuid.UUID         `json:"user_id"`
	TenantID      string            `json:"tenant_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description"`
	Frequency     ScheduleFrequency `json:"frequency"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       *time.Time        `json:"end_date,omitempty"`
	NextExecution time.Time         `json:"next_execution"`
	LastExecution *time.Time        `json:"last_execution,omitempty"`
	Status        ScheduleStatus    `json:"status"`
	ExecutionCount int              `json:"execution_count"`
	MaxExecutions  *int             `json:"max_executions,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ShouldExecute reports whether the schedule is due at the given time
func (s *ScheduledTransaction) ShouldExecute(now time.Time) bool {
	if s.Status != ScheduleStatusActive {
		return false
	}
	if now.Before(s.NextExecution) {
		return false
	}
	if s.MaxExecutions != nil && s.ExecutionCount >= *s.MaxExecutions {
		return false
	}
	if s.EndDate != nil && dateOnly(now).After(dateOnly(*s.EndDate)) {
		return false
	}
	return true
}

// Exhausted reports whether the schedule has no executions left: the end
// date has passed or the execution cap is reached.
func (s *ScheduledTransaction) Exhausted(now time.Time) bool {
	if s.MaxExecutions != nil && s.ExecutionCount >= *s.MaxExecutions {
		return true
	}
	return s.EndDate != nil && dateOnly(now).After(dateOnly(*s.EndDate))
}

// NextAfter computes the execution time following the current NextExecution.
// Month-based frequencies clamp to the last day of the shorter month so a
// schedule anchored on the 31st fires on Feb 28/29 rather than drifting.
func (s *ScheduledTransaction) NextAfter() (time.Time, bool) {
	cur := s.NextExecution
	switch s.Frequency {
	case FrequencyOnce:
		return time.Time{}, false
	case FrequencyDaily:
		return cur.AddDate(0, 0, 1), true
	case FrequencyWeekly:
		return cur.AddDate(0, 0, 7), true
	case FrequencyBiweekly:
		return cur.AddDate(0, 0, 14), true
	case FrequencyMonthly:
		return addMonthsClamped(cur, 1), true
	case FrequencyQuarterly:
		return addMonthsClamped(cur, 3), true
	case FrequencyAnnually:
		return addMonthsClamped(cur, 12), true
	}
	return time.Time{}, false
}

// addMonthsClamped adds months without the normalization overflow of
// time.AddDate (Jan 31 + 1 month is Feb 28/29, not Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CreateScheduleRequest is the payload for creating a recurring transfer
type CreateScheduleRequest struct {
	AccountID     uuid.UUID         `json:"account_id" validate:"required"`
	DestinationID uuid.UUID         `json:"destination_account_id" validate:"required"`
	Amount        decimal.Decimal   `json:"amount" validate:"required"`
	Description   string            `json:"description" validate:"max=255"`
	Frequency     ScheduleFrequency `json:"frequency" validate:"required,oneof=once daily weekly biweekly monthly quarterly annually"`
	StartDate     time.Time         `json:"start_date" validate:"required"`
	EndDate       *time.Time        `json:"end_date,omitempty"`
	MaxExecutions *int              `json:"max_executions,omitempty"`
}

// Validate checks the schedule request beyond struct tags
func (r CreateScheduleRequest) Validate() error {
	if r.AccountID == r.DestinationID {
		return ErrSameAccountTransfer
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return ErrInvalidSchedule
	}
	if r.MaxExecutions != nil && *r.MaxExecutions <= 0 {
		return ErrInvalidSchedule
	}
	return nil
}

// LimitPeriod is the window a transaction limit applies to
type LimitPeriod string

const (
	LimitPeriodDaily          LimitPeriod = "daily"
	LimitPeriodWeekly         LimitPeriod = "weekly"
	LimitPeriodMonthly        LimitPeriod = "monthly"
	LimitPeriodPerTransaction LimitPeriod = "per_transaction"
)

// LimitScope is what a transaction limit is attached to
type LimitScope string

const (
	LimitScopeAccount LimitScope = "account"
	LimitScopeUser    LimitScope = "user"
	LimitScopeGlobal  LimitScope = "global"
)

// LimitOperation identifies which ledger operation a limit constrains
type LimitOperation string

const (
	LimitOpWithdrawal       LimitOperation = "withdrawal"
	LimitOpTransfer         LimitOperation = "transfer"
	LimitOpExternalTransfer LimitOperation = "external_transfer"
	LimitOpDeposit          LimitOperation = "deposit"
)

// TransactionLimit is the authoritative usage counter for a
// (scope, operation, period) tuple. The counter is consumed in the
// same transaction as the balance mutation it limits; aggregation queries
// are never used for enforcement.
type TransactionLimit struct {
	ID                 uuid.UUID       `json:"id"`
	Scope              LimitScope      `json:"scope"`
	AccountID          *uuid.UUID      `json:"account_id,omitempty"`
	UserID             *uuid.UUID      `json:"user_id,omitempty"`
	TenantID           string          `json:"tenant_id"`
	Operation          LimitOperation  `json:"operation"`
	Period             LimitPeriod     `json:"period"`
	LimitAmount        decimal.Decimal `json:"limit_amount"`
	Currency           string          `json:"currency"`
	CurrentPeriodUsage decimal.Decimal `json:"current_period_usage"`
	PeriodStart        time.Time       `json:"period_start"`
	Active             bool            `json:"active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// PeriodExpired reports whether now has crossed the period boundary and the
// usage counter must be reset before evaluation.
func (l *TransactionLimit) PeriodExpired(now time.Time) bool {
	switch l.Period {
	case LimitPeriodDaily:
		return !sameDay(l.PeriodStart, now)
	case LimitPeriodWeekly:
		return now.Sub(startOfDay(l.PeriodStart)) >= 7*24*time.Hour
	case LimitPeriodMonthly:
		return l.PeriodStart.Year() != now.Year() || l.PeriodStart.Month() != now.Month()
	case LimitPeriodPerTransaction:
		return true
	}
	return false
}

// WouldExceed reports whether consuming amount would break the limit
func (l *TransactionLimit) WouldExceed(amount decimal.Decimal) bool {
	return l.CurrentPeriodUsage.Add(amount).GreaterThan(l.LimitAmount)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
