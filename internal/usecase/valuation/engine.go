package valuation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/coverage"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/holdings"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/pricing"
)

// ElementKind tells accounts and instruments apart
type ElementKind string

const (
	ElementAccount    ElementKind = "account"
	ElementInstrument ElementKind = "instrument"
)

type elementKey struct {
	kind ElementKind
	id   uuid.UUID
}

// accountState is what the engine needs to know about an account, loaded once per session
type accountState struct {
	account  *domain.Account
	timeline *holdings.Timeline
}

// Engine computes raw value series of accounts and instruments, and memoizes them.
//
// An Engine is one display session: its caches only grow, and Reset starts a
// new session with empty caches. Cached series are never modified in place;
// new values are merged into a copy that replaces the cached one.
type Engine struct {
	AccountRepo     domain.AccountRepository
	InstrumentRepo  domain.InstrumentRepository
	TransactionRepo domain.TransactionRepository
	Resolver        *pricing.Resolver

	mu               sync.RWMutex
	generation       uint64
	accounts         map[uuid.UUID]*accountState
	instruments      map[uuid.UUID]*domain.Instrument
	accountValues    map[uuid.UUID]*domain.Series
	instrumentValues map[uuid.UUID]*domain.Series

	inflightMu sync.Mutex
	inflight   map[elementKey]bool
}

// NewEngine creates a new Engine instance with empty caches
func NewEngine(
	accountRepo domain.AccountRepository,
	instrumentRepo domain.InstrumentRepository,
	transactionRepo domain.TransactionRepository,
	resolver *pricing.Resolver,
) *Engine {
	e := &Engine{
		AccountRepo:     accountRepo,
		InstrumentRepo:  instrumentRepo,
		TransactionRepo: transactionRepo,
		Resolver:        resolver,
		inflight:        make(map[elementKey]bool),
	}
	e.resetCaches()
	return e
}

func (e *Engine) resetCaches() {
	e.accounts = make(map[uuid.UUID]*accountState)
	e.instruments = make(map[uuid.UUID]*domain.Instrument)
	e.accountValues = make(map[uuid.UUID]*domain.Series)
	e.instrumentValues = make(map[uuid.UUID]*domain.Series)
}

// Reset starts a new session: every cached value, holdings timeline and price is dropped.
// Computations running across a Reset still answer from the caches they started
// with, but their results are not kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.generation++
	e.resetCaches()
	e.mu.Unlock()
	e.Resolver.Reset()
	log.Debug().Msg("valuation caches reset")
}

// acquire marks an element as being computed
func (e *Engine) acquire(key elementKey) (func(), error) {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	if e.inflight[key] {
		return nil, fmt.Errorf("%s %s: %w", key.kind, key.id, domain.ErrComputationInProgress)
	}
	e.inflight[key] = true
	return func() {
		e.inflightMu.Lock()
		delete(e.inflight, key)
		e.inflightMu.Unlock()
	}, nil
}

func (e *Engine) state(ctx context.Context, accountID uuid.UUID) (*accountState, error) {
	e.mu.RLock()
	st, ok := e.accounts[accountID]
	e.mu.RUnlock()
	if ok {
		return st, nil
	}

	account, err := e.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	txs, err := e.TransactionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	st = &accountState{account: account, timeline: holdings.Reconstruct(txs)}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.accounts[accountID]; ok {
		return existing, nil
	}
	e.accounts[accountID] = st
	return st, nil
}

// Account returns the account, as loaded for this session
func (e *Engine) Account(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	st, err := e.state(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return st.account, nil
}

// Timeline returns the holdings timeline of the account
func (e *Engine) Timeline(ctx context.Context, accountID uuid.UUID) (*holdings.Timeline, error) {
	st, err := e.state(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return st.timeline, nil
}

// Instrument returns the instrument, as loaded for this session
func (e *Engine) Instrument(ctx context.Context, instrumentID uuid.UUID) (*domain.Instrument, error) {
	e.mu.RLock()
	instrument, ok := e.instruments[instrumentID]
	e.mu.RUnlock()
	if ok {
		return instrument, nil
	}

	instrument, err := e.InstrumentRepo.GetByID(ctx, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}
	e.mu.Lock()
	e.instruments[instrumentID] = instrument
	e.mu.Unlock()
	return instrument, nil
}

// CachedAccountSeries returns everything computed so far for the account.
// The returned series must not be modified.
func (e *Engine) CachedAccountSeries(accountID uuid.UUID) *domain.Series {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.accountValues[accountID]
}

// CachedInstrumentSeries returns everything computed so far for the instrument.
// The returned series must not be modified.
func (e *Engine) CachedInstrumentSeries(instrumentID uuid.UUID) *domain.Series {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.instrumentValues[instrumentID]
}

// snapshot returns the cached series of an element with the generation it belongs to
func (e *Engine) snapshot(kind ElementKind, id uuid.UUID) (*domain.Series, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.values(kind)[id], e.generation
}

func (e *Engine) values(kind ElementKind) map[uuid.UUID]*domain.Series {
	if kind == ElementInstrument {
		return e.instrumentValues
	}
	return e.accountValues
}

// publish merges fresh values into the cached series and swaps it in one step.
// If the engine was reset since cache was read, the merge is returned but not kept.
func (e *Engine) publish(kind ElementKind, id uuid.UUID, cache *domain.Series, generation uint64, fresh *domain.Series) *domain.Series {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != generation {
		return cache.Merge(fresh)
	}
	values := e.values(kind)
	current, ok := values[id]
	if !ok {
		current = domain.NewSeries()
	}
	merged := current.Merge(fresh)
	values[id] = merged
	return merged
}

// anchored restricts series to [start, end] and carries the as-of value onto
// both ends, so a window reads the same whichever key dates are cached
func anchored(series *domain.Series, start, end domain.Date) *domain.Series {
	out := series.Window(start, end)
	for _, on := range []domain.Date{start, end} {
		if out.Has(on) {
			continue
		}
		if _, v, ok := series.ValueAsOf(on); ok {
			out.Set(on, v)
		}
	}
	return out
}

// accountFloor returns the first transaction date of the account
func accountFloor(st *accountState) (*domain.Date, bool) {
	start, ok := st.timeline.StartDate()
	if !ok {
		return nil, false
	}
	return &start, true
}

// MissingAccountRanges returns the sub-ranges of [start, end] not cached yet for the account
func (e *Engine) MissingAccountRanges(ctx context.Context, accountID uuid.UUID, start, end domain.Date) ([]domain.DateRange, error) {
	if _, err := domain.NewDateRange(start, end); err != nil {
		return nil, err
	}
	st, err := e.state(ctx, accountID)
	if err != nil {
		return nil, err
	}
	floor, ok := accountFloor(st)
	if !ok {
		return nil, nil
	}
	return coverage.MissingRanges(e.CachedAccountSeries(accountID), start, end, floor), nil
}

// MissingInstrumentRanges returns the sub-ranges of [start, end] not cached yet for the instrument
func (e *Engine) MissingInstrumentRanges(ctx context.Context, instrumentID uuid.UUID, start, end domain.Date) ([]domain.DateRange, error) {
	if _, err := domain.NewDateRange(start, end); err != nil {
		return nil, err
	}
	instrument, err := e.Instrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	floor, err := e.instrumentFloor(ctx, instrument)
	if err != nil {
		return nil, err
	}
	return coverage.MissingRanges(e.CachedInstrumentSeries(instrumentID), start, end, &floor), nil
}

// AccountSeries returns the value of the account in its base currency at both
// ends of [start, end] and at every key date in between, computing only what is
// not cached yet.
// The series is empty before the first transaction of the account.
func (e *Engine) AccountSeries(ctx context.Context, accountID uuid.UUID, start, end domain.Date) (*domain.Series, error) {
	if _, err := domain.NewDateRange(start, end); err != nil {
		return nil, err
	}
	release, err := e.acquire(elementKey{ElementAccount, accountID})
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := e.state(ctx, accountID)
	if err != nil {
		return nil, err
	}
	floor, ok := accountFloor(st)
	if !ok {
		return domain.NewSeries(), nil
	}

	cache, generation := e.snapshot(ElementAccount, accountID)
	ranges := coverage.Contiguous(cache, coverage.MissingRanges(cache, start, end, floor))
	fresh := domain.NewSeries()
	for _, r := range ranges {
		log.Debug().
			Str("account_id", accountID.String()).
			Str("range", r.String()).
			Msg("computing account values")

		points, err := e.walk(ctx, st, r)
		if err != nil {
			return nil, domain.AttachAccount(err, accountID)
		}
		for _, p := range points {
			fresh.Set(p.Date, p.Total)
		}
	}

	merged := cache
	if fresh.Len() > 0 || cache == nil {
		merged = e.publish(ElementAccount, accountID, cache, generation, fresh)
	}
	return anchored(merged, start, end), nil
}

// instrumentFloor returns the date of the first price of the instrument in its base currency
func (e *Engine) instrumentFloor(ctx context.Context, instrument *domain.Instrument) (domain.Date, error) {
	if instrument.BaseCurrencyID == nil {
		return domain.Date{}, &domain.NoPriceError{InstrumentID: instrument.ID, Reason: "no base currency"}
	}
	first, ok, err := e.Resolver.FirstDate(ctx, instrument.ID, *instrument.BaseCurrencyID)
	if err != nil {
		return domain.Date{}, err
	}
	if !ok {
		return domain.Date{}, &domain.NoPriceError{
			InstrumentID: instrument.ID,
			CurrencyID:   *instrument.BaseCurrencyID,
			Reason:       "no price observation",
		}
	}
	return first, nil
}

// InstrumentSeries returns the unit price of the instrument in its base currency
// over [start, end]: one value at each observation date, plus the as-of values at
// both ends of the window. Nothing is returned before the first observation.
func (e *Engine) InstrumentSeries(ctx context.Context, instrumentID uuid.UUID, start, end domain.Date) (*domain.Series, error) {
	if _, err := domain.NewDateRange(start, end); err != nil {
		return nil, err
	}
	release, err := e.acquire(elementKey{ElementInstrument, instrumentID})
	if err != nil {
		return nil, err
	}
	defer release()

	instrument, err := e.Instrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	floor, err := e.instrumentFloor(ctx, instrument)
	if err != nil {
		return nil, err
	}
	currencyID := *instrument.BaseCurrencyID

	cache, generation := e.snapshot(ElementInstrument, instrumentID)
	ranges := coverage.Contiguous(cache, coverage.MissingRanges(cache, start, end, &floor))
	fresh := domain.NewSeries()
	for _, r := range ranges {
		log.Debug().
			Str("instrument_id", instrumentID.String()).
			Str("range", r.String()).
			Msg("computing instrument values")

		prices, err := e.Resolver.PricesInRange(ctx, instrumentID, currencyID, r.From, r.To)
		if err != nil {
			return nil, err
		}
		_, last, err := e.Resolver.PriceAsOf(ctx, instrumentID, currencyID, r.To)
		if err != nil {
			return nil, err
		}
		prices.Set(r.To, last)
		fresh = fresh.Merge(prices)
	}

	merged := cache
	if fresh.Len() > 0 || cache == nil {
		merged = e.publish(ElementInstrument, instrumentID, cache, generation, fresh)
	}
	return anchored(merged, start, end), nil
}
