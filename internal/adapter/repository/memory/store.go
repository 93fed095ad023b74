// Package memory holds in-memory implementations of the domain repositories.
// They back the server when no database is configured, and the tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// Store is the shared state of the in-memory repositories
type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]domain.Account
	instruments  map[uuid.UUID]domain.Instrument
	transactions map[uuid.UUID][]domain.Transaction // accountID -> transactions
	prices       map[uuid.UUID][]domain.PriceObservation // instrumentID -> observations
	seq          int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]domain.Account),
		instruments:  make(map[uuid.UUID]domain.Instrument),
		transactions: make(map[uuid.UUID][]domain.Transaction),
		prices:       make(map[uuid.UUID][]domain.PriceObservation),
	}
}

/* ---- Account repo ---- */

// AccountRepository implements domain.AccountRepository
type AccountRepository struct{ s *Store }

// NewAccountRepository creates a new in-memory account repository
func NewAccountRepository(s *Store) *AccountRepository { return &AccountRepository{s: s} }

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[account.ID] = *account
	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

// List retrieves the enabled accounts sorted by name
func (r *AccountRepository) List(ctx context.Context, includeHidden bool) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		if !a.Enabled || (a.Hidden && !includeHidden) {
			continue
		}
		out = append(out, &a)
	}
	slices.SortFunc(out, func(a, b *domain.Account) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

/* ---- Instrument repo ---- */

// InstrumentRepository implements domain.InstrumentRepository
type InstrumentRepository struct{ s *Store }

// NewInstrumentRepository creates a new in-memory instrument repository
func NewInstrumentRepository(s *Store) *InstrumentRepository { return &InstrumentRepository{s: s} }

// Create stores a new instrument
func (r *InstrumentRepository) Create(ctx context.Context, instrument *domain.Instrument) error {
	if instrument.ID == uuid.Nil {
		instrument.ID = uuid.New()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.instruments[instrument.ID] = *instrument
	return nil
}

// GetByID retrieves an instrument by its ID
func (r *InstrumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instrument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.instruments[id]
	if !ok {
		return nil, fmt.Errorf("instrument %s: %w", id, domain.ErrNotFound)
	}
	return &i, nil
}

// GetByCode retrieves an instrument by its main code
func (r *InstrumentRepository) GetByCode(ctx context.Context, code string) (*domain.Instrument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, i := range r.s.instruments {
		if i.MainCode == code {
			return &i, nil
		}
	}
	return nil, fmt.Errorf("instrument %q: %w", code, domain.ErrNotFound)
}

// List retrieves all instruments sorted by name
func (r *InstrumentRepository) List(ctx context.Context) ([]*domain.Instrument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Instrument, 0, len(r.s.instruments))
	for _, i := range r.s.instruments {
		out = append(out, &i)
	}
	slices.SortFunc(out, func(a, b *domain.Instrument) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

/* ---- Transaction repo ---- */

// TransactionRepository implements domain.TransactionRepository
type TransactionRepository struct{ s *Store }

// NewTransactionRepository creates a new in-memory transaction repository
func NewTransactionRepository(s *Store) *TransactionRepository { return &TransactionRepository{s: s} }

// Create stores a new transaction and assigns its insertion sequence
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	tx.Seq = r.s.seq
	r.s.transactions[tx.AccountID] = append(r.s.transactions[tx.AccountID], *tx)
	return nil
}

// ListByAccount retrieves the transactions of an account ordered by (date, insertion order)
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	stored := r.s.transactions[accountID]
	out := make([]*domain.Transaction, len(stored))
	for i := range stored {
		tx := stored[i]
		out[i] = &tx
	}
	r.s.mu.RUnlock()
	return domain.SortTransactions(out), nil
}

/* ---- Price repo ---- */

// PriceRepository implements domain.PriceRepository
type PriceRepository struct{ s *Store }

// NewPriceRepository creates a new in-memory price repository
func NewPriceRepository(s *Store) *PriceRepository { return &PriceRepository{s: s} }

// Add stores a new observation, replacing the one of the same (instrument, currency, date)
func (r *PriceRepository) Add(ctx context.Context, price *domain.PriceObservation) error {
	if err := price.Validate(); err != nil {
		return err
	}
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := slices.DeleteFunc(r.s.prices[price.InstrumentID], func(p domain.PriceObservation) bool {
		return p.CurrencyID == price.CurrencyID && p.Date == price.Date
	})
	r.s.prices[price.InstrumentID] = append(stored, *price)
	return nil
}

// Observations retrieves the observations in [start, end] ordered by date
func (r *PriceRepository) Observations(ctx context.Context, instrumentID, currencyID uuid.UUID, start, end domain.Date) ([]*domain.PriceObservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.PriceObservation
	for _, p := range r.s.prices[instrumentID] {
		if p.CurrencyID != currencyID || p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, &p)
	}
	slices.SortFunc(out, func(a, b *domain.PriceObservation) int { return a.Date.Compare(b.Date) })
	return out, nil
}

// FirstDate returns the date of the earliest observation
func (r *PriceRepository) FirstDate(ctx context.Context, instrumentID, currencyID uuid.UUID) (domain.Date, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var first domain.Date
	found := false
	for _, p := range r.s.prices[instrumentID] {
		if p.CurrencyID != currencyID {
			continue
		}
		if !found || p.Date.Before(first) {
			first, found = p.Date, true
		}
	}
	return first, found, nil
}

// CountByMonth counts observations per month, from the month of since onwards
func (r *PriceRepository) CountByMonth(ctx context.Context, instrumentID, currencyID uuid.UUID, since domain.Date) (map[domain.Date]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[domain.Date]int)
	from := since.StartOfMonth()
	for _, p := range r.s.prices[instrumentID] {
		if p.CurrencyID != currencyID || p.Date.Before(from) {
			continue
		}
		out[p.Date.StartOfMonth()]++
	}
	return out, nil
}
