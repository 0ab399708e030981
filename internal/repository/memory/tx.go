package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

// memTx operates directly on the store maps. The store mutex is held for the
// whole transaction, so no further locking happens here and ForUpdate reads
// are plain reads.
type memTx struct {
	s *Store
}

var _ ledger.Tx = (*memTx)(nil)

func (t *memTx) CreateAccount(_ context.Context, a *model.Account) error {
	c := *a
	t.s.accounts[c.ID] = &c
	t.s.byNumber[strings.ToUpper(c.AccountNumber)] = c.ID
	return nil
}

func (t *memTx) AccountForUpdate(_ context.Context, id uuid.UUID) (*model.Account, error) {
	return t.s.getAccount(id)
}

func (t *memTx) SaveAccount(_ context.Context, a *model.Account) error {
	if _, ok := t.s.accounts[a.ID]; !ok {
		return model.ErrAccountNotFound
	}
	c := *a
	t.s.accounts[c.ID] = &c
	return nil
}

func (t *memTx) CreateTransaction(_ context.Context, txn *model.Transaction) error {
	c := *txn
	t.s.transactions[c.ID] = &c
	t.s.byRef[c.ReferenceNumber] = c.ID
	t.s.txnSeq = append(t.s.txnSeq, c.ID)
	return nil
}

func (t *memTx) GetTransaction(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	return t.s.getTransaction(id)
}

func (t *memTx) UpdateTransactionStatus(_ context.Context, id uuid.UUID, from, to model.TransactionStatus, reason string) (bool, error) {
	txn, ok := t.s.transactions[id]
	if !ok {
		return false, model.ErrTransactionNotFound
	}
	if txn.Status != from {
		return false, nil
	}
	if !from.CanTransition(to) {
		return false, model.ErrInvalidStateChange
	}
	c := *txn
	c.Status = to
	if reason != "" {
		c.FailureReason = reason
	}
	t.s.transactions[id] = &c
	return true, nil
}

func (t *memTx) CreateTransfer(_ context.Context, tr *model.Transfer) error {
	c := *tr
	t.s.transfers[c.ID] = &c
	t.s.transferSeq = append(t.s.transferSeq, c.ID)
	return nil
}

func (t *memTx) TransferForUpdate(_ context.Context, id uuid.UUID) (*model.Transfer, error) {
	tr, ok := t.s.transfers[id]
	if !ok {
		return nil, model.ErrTransferNotFound
	}
	c := *tr
	return &c, nil
}

func (t *memTx) SaveTransfer(_ context.Context, tr *model.Transfer) error {
	if _, ok := t.s.transfers[tr.ID]; !ok {
		return model.ErrTransferNotFound
	}
	c := *tr
	t.s.transfers[c.ID] = &c
	return nil
}

func (t *memTx) ScheduleForUpdate(_ context.Context, id uuid.UUID) (*model.ScheduledTransaction, error) {
	sc, ok := t.s.schedules[id]
	if !ok {
		return nil, model.ErrScheduleNotFound
	}
	c := *sc
	return &c, nil
}

func (t *memTx) CreateSchedule(_ context.Context, sc *model.ScheduledTransaction) error {
	c := *sc
	t.s.schedules[c.ID] = &c
	return nil
}

func (t *memTx) SaveSchedule(_ context.Context, sc *model.ScheduledTransaction) error {
	if _, ok := t.s.schedules[sc.ID]; !ok {
		return model.ErrScheduleNotFound
	}
	c := *sc
	t.s.schedules[c.ID] = &c
	return nil
}

func (t *memTx) CreateHold(_ context.Context, h *model.AccountHold) error {
	c := *h
	t.s.holds[c.ID] = &c
	return nil
}

func (t *memTx) HoldForUpdate(_ context.Context, id uuid.UUID) (*model.AccountHold, error) {
	h, ok := t.s.holds[id]
	if !ok {
		return nil, model.ErrHoldNotFound
	}
	c := *h
	return &c, nil
}

func (t *memTx) SaveHold(_ context.Context, h *model.AccountHold) error {
	if _, ok := t.s.holds[h.ID]; !ok {
		return model.ErrHoldNotFound
	}
	c := *h
	t.s.holds[c.ID] = &c
	return nil
}

func (t *memTx) LimitForUpdate(_ context.Context, accountID uuid.UUID, op model.LimitOperation, period model.LimitPeriod) (*model.TransactionLimit, error) {
	l, ok := t.s.limits[limitKey{accountID, op, period}]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (t *memTx) CreateLimit(_ context.Context, l *model.TransactionLimit) error {
	c := *l
	t.s.limits[limitKey{*c.AccountID, c.Operation, c.Period}] = &c
	return nil
}

func (t *memTx) SaveLimit(_ context.Context, l *model.TransactionLimit) error {
	c := *l
	t.s.limits[limitKey{*c.AccountID, c.Operation, c.Period}] = &c
	return nil
}

func (t *memTx) ActiveRate(_ context.Context, from, to string) (*model.ExchangeRate, error) {
	r, ok := t.s.rates[rateKey{strings.ToUpper(from), strings.ToUpper(to)}]
	if !ok || !r.Active {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (t *memTx) CreateConversion(_ context.Context, conv *model.CurrencyConversion) error {
	c := *conv
	t.s.conversions[c.ID] = &c
	return nil
}

func (t *memTx) GetAccountByNumber(_ context.Context, number string) (*model.Account, error) {
	return t.s.getAccountByNumber(number)
}

func (t *memTx) GetCurrency(_ context.Context, code string) (*model.Currency, error) {
	return t.s.getCurrency(code)
}
