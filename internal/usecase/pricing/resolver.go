package pricing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

type priceKey struct {
	instrumentID uuid.UUID
	currencyID   uuid.UUID
}

// loadedPrices holds every observation of one (instrument, currency) pair from
// the beginning of time up to loadedTo
type loadedPrices struct {
	series   *domain.Series
	loadedTo domain.Date
}

// Resolver answers "what was the price of this instrument, in this currency,
// as of this date" from sparse price observations.
// Observations are loaded from the repository once and kept for the lifetime of the Resolver.
type Resolver struct {
	PriceRepo domain.PriceRepository

	mu     sync.Mutex
	loaded map[priceKey]*loadedPrices
}

// NewResolver creates a new Resolver instance
func NewResolver(priceRepo domain.PriceRepository) *Resolver {
	return &Resolver{
		PriceRepo: priceRepo,
		loaded:    make(map[priceKey]*loadedPrices),
	}
}

// Reset drops every loaded observation
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = make(map[priceKey]*loadedPrices)
}

// load returns the observations of the pair, making sure they cover every date up to upTo
func (r *Resolver) load(ctx context.Context, instrumentID, currencyID uuid.UUID, upTo domain.Date) (*domain.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := priceKey{instrumentID, currencyID}
	entry, ok := r.loaded[key]
	if ok && !upTo.After(entry.loadedTo) {
		return entry.series, nil
	}

	from := domain.MinDate
	series := domain.NewSeries()
	if ok {
		from = entry.loadedTo.AddDays(1)
		series = entry.series
	}

	observations, err := r.PriceRepo.Observations(ctx, instrumentID, currencyID, from, upTo)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices of %s: %w", instrumentID, err)
	}

	fresh := domain.NewSeries()
	for _, obs := range observations {
		fresh.Set(obs.Date, obs.Price)
	}
	merged := series.Merge(fresh)
	r.loaded[key] = &loadedPrices{series: merged, loadedTo: upTo}

	log.Debug().
		Str("instrument_id", instrumentID.String()).
		Str("currency_id", currencyID.String()).
		Str("from", from.String()).
		Str("to", upTo.String()).
		Int("observations", len(observations)).
		Msg("loaded price observations")

	return merged, nil
}

// PriceAsOf returns the most recent observation dated on or before on.
// It fails with a *domain.NoPriceError when there is none.
func (r *Resolver) PriceAsOf(ctx context.Context, instrumentID, currencyID uuid.UUID, on domain.Date) (domain.Date, decimal.Decimal, error) {
	series, err := r.load(ctx, instrumentID, currencyID, on)
	if err != nil {
		return domain.Date{}, decimal.Zero, err
	}
	observedOn, price, ok := series.ValueAsOf(on)
	if !ok {
		return domain.Date{}, decimal.Zero, &domain.NoPriceError{
			InstrumentID: instrumentID,
			CurrencyID:   currencyID,
			Date:         &on,
		}
	}
	return observedOn, price, nil
}

// PricesInRange returns the observations dated strictly between start and end,
// plus an entry at start holding the price as of start.
// It fails with a *domain.NoPriceError when no observation exists on or before start.
func (r *Resolver) PricesInRange(ctx context.Context, instrumentID, currencyID uuid.UUID, start, end domain.Date) (*domain.Series, error) {
	if start.After(end) {
		return nil, &domain.ValidationError{Field: "start_date", Value: start, Message: "start date must be before end date"}
	}
	_, first, err := r.PriceAsOf(ctx, instrumentID, currencyID, start)
	if err != nil {
		return nil, err
	}
	series, err := r.load(ctx, instrumentID, currencyID, end)
	if err != nil {
		return nil, err
	}

	out := domain.NewSeries()
	out.Set(start, first)
	for on, price := range series.Window(start.AddDays(1), end.AddDays(-1)).All() {
		out.Set(on, price)
	}
	return out, nil
}

// Observed returns the actual observations dated in [start, end]
func (r *Resolver) Observed(ctx context.Context, instrumentID, currencyID uuid.UUID, start, end domain.Date) (*domain.Series, error) {
	series, err := r.load(ctx, instrumentID, currencyID, end)
	if err != nil {
		return nil, err
	}
	return series.Window(start, end), nil
}

// FirstDate returns the date of the earliest observation of the pair
func (r *Resolver) FirstDate(ctx context.Context, instrumentID, currencyID uuid.UUID) (domain.Date, bool, error) {
	first, ok, err := r.PriceRepo.FirstDate(ctx, instrumentID, currencyID)
	if err != nil {
		return domain.Date{}, false, fmt.Errorf("failed to find first price of %s: %w", instrumentID, err)
	}
	return first, ok, nil
}
