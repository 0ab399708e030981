package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/model"
)

type limitKey struct {
	accountID uuid.UUID
	op        model.LimitOperation
	period    model.LimitPeriod
}

type rateKey struct {
	from, to string
}

// Store is a map-backed implementation of ledger.Store. Values are stored as
// immutable snapshots: every read returns a copy and every write stores a
// copy, so a transaction rollback only has to restore the maps.
type Store struct {
	mu sync.Mutex

	accounts     map[uuid.UUID]*model.Account
	byNumber     map[string]uuid.UUID
	transactions map[uuid.UUID]*model.Transaction
	byRef        map[string]uuid.UUID
	transfers    map[uuid.UUID]*model.Transfer
	schedules    map[uuid.UUID]*model.ScheduledTransaction
	holds        map[uuid.UUID]*model.AccountHold
	limits       map[limitKey]*model.TransactionLimit
	rates        map[rateKey]*model.ExchangeRate
	currencies   map[string]*model.Currency
	conversions  map[uuid.UUID]*model.CurrencyConversion

	txnSeq      []uuid.UUID
	transferSeq []uuid.UUID
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]*model.Account),
		byNumber:     make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]*model.Transaction),
		byRef:        make(map[string]uuid.UUID),
		transfers:    make(map[uuid.UUID]*model.Transfer),
		schedules:    make(map[uuid.UUID]*model.ScheduledTransaction),
		holds:        make(map[uuid.UUID]*model.AccountHold),
		limits:       make(map[limitKey]*model.TransactionLimit),
		rates:        make(map[rateKey]*model.ExchangeRate),
		currencies:   make(map[string]*model.Currency),
		conversions:  make(map[uuid.UUID]*model.CurrencyConversion),
	}
}

type snapshot struct {
	accounts     map[uuid.UUID]*model.Account
	byNumber     map[string]uuid.UUID
	transactions map[uuid.UUID]*model.Transaction
	byRef        map[string]uuid.UUID
	transfers    map[uuid.UUID]*model.Transfer
	schedules    map[uuid.UUID]*model.ScheduledTransaction
	holds        map[uuid.UUID]*model.AccountHold
	limits       map[limitKey]*model.TransactionLimit
	rates        map[rateKey]*model.ExchangeRate
	currencies   map[string]*model.Currency
	conversions  map[uuid.UUID]*model.CurrencyConversion
	txnSeq       []uuid.UUID
	transferSeq  []uuid.UUID
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		accounts:     cloneMap(s.accounts),
		byNumber:     cloneMap(s.byNumber),
		transactions: cloneMap(s.transactions),
		byRef:        cloneMap(s.byRef),
		transfers:    cloneMap(s.transfers),
		schedules:    cloneMap(s.schedules),
		holds:        cloneMap(s.holds),
		limits:       cloneMap(s.limits),
		rates:        cloneMap(s.rates),
		currencies:   cloneMap(s.currencies),
		conversions:  cloneMap(s.conversions),
		txnSeq:       append([]uuid.UUID(nil), s.txnSeq...),
		transferSeq:  append([]uuid.UUID(nil), s.transferSeq...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.byNumber = snap.byNumber
	s.transactions = snap.transactions
	s.byRef = snap.byRef
	s.transfers = snap.transfers
	s.schedules = snap.schedules
	s.holds = snap.holds
	s.limits = snap.limits
	s.rates = snap.rates
	s.currencies = snap.currencies
	s.conversions = snap.conversions
	s.txnSeq = snap.txnSeq
	s.transferSeq = snap.transferSeq
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// WithinTx serializes all transactions behind one mutex and rolls the maps
// back when fn fails.
func (s *Store) WithinTx(_ context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccount(id)
}

func (s *Store) getAccount(id uuid.UUID) (*model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

func (s *Store) GetAccountByNumber(_ context.Context, number string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccountByNumber(number)
}

func (s *Store) getAccountByNumber(number string) (*model.Account, error) {
	id, ok := s.byNumber[strings.ToUpper(number)]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.getAccount(id)
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTransaction(id)
}

func (s *Store) getTransaction(id uuid.UUID) (*model.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}
	c := *t
	return &c, nil
}

func (s *Store) GetTransactionByRef(_ context.Context, ref string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRef[ref]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}
	t := *s.transactions[id]
	return &t, nil
}

func (s *Store) GetTransfer(_ context.Context, id uuid.UUID) (*model.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, model.ErrTransferNotFound
	}
	c := *t
	return &c, nil
}

func (s *Store) GetSchedule(_ context.Context, id uuid.UUID) (*model.ScheduledTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[id]
	if !ok {
		return nil, model.ErrScheduleNotFound
	}
	c := *sc
	return &c, nil
}

func (s *Store) GetHold(_ context.Context, id uuid.UUID) (*model.AccountHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[id]
	if !ok {
		return nil, model.ErrHoldNotFound
	}
	c := *h
	return &c, nil
}

func (s *Store) GetCurrency(_ context.Context, code string) (*model.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCurrency(code)
}

func (s *Store) getCurrency(code string) (*model.Currency, error) {
	c, ok := s.currencies[strings.ToUpper(code)]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

func (s *Store) ListAccounts(_ context.Context, tenantID string, userID uuid.UUID) ([]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Account
	for _, a := range s.accounts {
		if a.TenantID == tenantID && a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListDueSchedules(_ context.Context, now time.Time, limit int) ([]*model.ScheduledTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*model.ScheduledTransaction
	for _, sc := range s.schedules {
		if sc.Status == model.ScheduleStatusActive && !sc.NextExecution.After(now) {
			c := *sc
			due = append(due, &c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextExecution.Before(due[j].NextExecution) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *Store) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]*model.AccountHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*model.AccountHold
	for _, h := range s.holds {
		if h.Active && h.IsExpired(now) {
			c := *h
			expired = append(expired, &c)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Transaction
	for i := len(s.txnSeq) - 1; i >= 0; i-- {
		t := s.transactions[s.txnSeq[i]]
		if t.AccountID != accountID {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	return page(out, limit, offset), nil
}

func (s *Store) ListTransfers(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Transfer
	for i := len(s.transferSeq) - 1; i >= 0; i-- {
		t := s.transfers[s.transferSeq[i]]
		if t.FromAccountID != accountID {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	return page(out, limit, offset), nil
}

func (s *Store) ListSchedules(_ context.Context, accountID uuid.UUID) ([]*model.ScheduledTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ScheduledTransaction
	for _, sc := range s.schedules {
		if sc.AccountID == accountID {
			c := *sc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListHolds(_ context.Context, accountID uuid.UUID) ([]*model.AccountHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.AccountHold
	for _, h := range s.holds {
		if h.AccountID == accountID {
			c := *h
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListCurrencies(_ context.Context) ([]*model.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Currency
	for _, c := range s.currencies {
		if c.Active {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) ListRates(_ context.Context) ([]*model.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ExchangeRate
	for _, r := range s.rates {
		if r.Active {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromCurrency != out[j].FromCurrency {
			return out[i].FromCurrency < out[j].FromCurrency
		}
		return out[i].ToCurrency < out[j].ToCurrency
	})
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Seeding helpers for tests and bootstrap.

// PutCurrency inserts or replaces a currency
func (s *Store) PutCurrency(c model.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Code = strings.ToUpper(c.Code)
	s.currencies[c.Code] = &c
}

// PutRate inserts or replaces an exchange rate for a pair
func (s *Store) PutRate(r model.ExchangeRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.rates[rateKey{strings.ToUpper(r.FromCurrency), strings.ToUpper(r.ToCurrency)}] = &r
}

// PutAccount inserts or replaces an account
func (s *Store) PutAccount(a model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = &a
	s.byNumber[strings.ToUpper(a.AccountNumber)] = a.ID
}

// PutSchedule inserts or replaces a scheduled transaction
func (s *Store) PutSchedule(sc model.ScheduledTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sc.ID] = &sc
}

// PutHold inserts or replaces a hold
func (s *Store) PutHold(h model.AccountHold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[h.ID] = &h
}
