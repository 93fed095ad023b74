package valuation

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// Point is the composition of an account at the end of a key date.
// Positions holds the value of each instrument with a non-zero quantity, in the
// account's base currency. Total is Cash plus every position.
type Point struct {
	Date      domain.Date
	Cash      decimal.Decimal
	Positions map[uuid.UUID]decimal.Decimal
	Total     decimal.Decimal
}

// unitValue is the current per-unit value of one instrument during a walk
type unitValue struct {
	value    decimal.Decimal
	known    bool
	observed bool // true once a real price observation was used
}

// walk values the account at every key date of r: both ends of the range, every
// transaction date, and every price observation date of the instruments held.
//
// Before an instrument's first observation in range, its value is the last price
// observed before the range, or failing that the unit price of the last transaction
// on it. An instrument without any observation in the account currency fails.
func (e *Engine) walk(ctx context.Context, st *accountState, r domain.DateRange) ([]Point, error) {
	tl := st.timeline
	currencyID := st.account.BaseCurrencyID

	current, ok := tl.At(r.From)
	if !ok {
		current = domain.NewHoldings()
	}

	keyDates := map[domain.Date]bool{r.From: true, r.To: true}
	for _, d := range tl.Between(r.From, r.To) {
		keyDates[d] = true
	}

	units := make(map[uuid.UUID]*unitValue)
	observations := make(map[uuid.UUID]*domain.Series)
	for _, instrumentID := range tl.Instruments(r.From, r.To) {
		if instrumentID == currencyID {
			units[instrumentID] = &unitValue{value: decimal.NewFromInt(1), known: true, observed: true}
			continue
		}

		if _, ok, err := e.Resolver.FirstDate(ctx, instrumentID, currencyID); err != nil {
			return nil, err
		} else if !ok {
			return nil, &domain.NoPriceError{
				InstrumentID: instrumentID,
				CurrencyID:   currencyID,
				Reason:       "no price observation",
			}
		}

		unit := &unitValue{}
		_, price, err := e.Resolver.PriceAsOf(ctx, instrumentID, currencyID, r.From)
		switch {
		case err == nil:
			*unit = unitValue{value: price, known: true, observed: true}
		case errors.Is(err, domain.ErrNoPrice):
			if bookPrice, ok := tl.LastUnitPrice(instrumentID, r.From); ok {
				*unit = unitValue{value: bookPrice, known: true}
			}
		default:
			return nil, err
		}
		units[instrumentID] = unit

		observed, err := e.Resolver.Observed(ctx, instrumentID, currencyID, r.From.AddDays(1), r.To)
		if err != nil {
			return nil, err
		}
		observations[instrumentID] = observed
		for _, d := range observed.Dates() {
			keyDates[d] = true
		}
	}

	dates := make([]domain.Date, 0, len(keyDates))
	for d := range keyDates {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, domain.Date.Compare)

	points := make([]Point, 0, len(dates))
	for _, d := range dates {
		if d != r.From {
			if h, ok := tl.At(d); ok {
				current = h
			}
		}
		for instrumentID, unit := range units {
			if price, ok := observations[instrumentID].Get(d); ok {
				*unit = unitValue{value: price, known: true, observed: true}
			} else if !unit.observed {
				if bookPrice, ok := tl.LastUnitPrice(instrumentID, d); ok {
					*unit = unitValue{value: bookPrice, known: true}
				}
			}
		}

		p := Point{Date: d, Cash: current.Cash, Positions: make(map[uuid.UUID]decimal.Decimal), Total: current.Cash}
		for instrumentID, qty := range current.Shares {
			if qty.IsZero() {
				continue
			}
			unit, ok := units[instrumentID]
			if !ok || !unit.known {
				on := d
				return nil, &domain.NoPriceError{
					InstrumentID: instrumentID,
					CurrencyID:   currencyID,
					Date:         &on,
				}
			}
			value := qty.Mul(unit.value)
			p.Positions[instrumentID] = value
			p.Total = p.Total.Add(value)
		}
		points = append(points, p)
	}
	return points, nil
}

// Composition returns, for every key date of [start, end], the split of the
// account's value between cash and each instrument held. It is not cached.
func (e *Engine) Composition(ctx context.Context, accountID uuid.UUID, start, end domain.Date) ([]Point, error) {
	if _, err := domain.NewDateRange(start, end); err != nil {
		return nil, err
	}
	st, err := e.state(ctx, accountID)
	if err != nil {
		return nil, err
	}
	floor, ok := accountFloor(st)
	if !ok || floor.After(end) {
		return nil, nil
	}

	points, err := e.walk(ctx, st, domain.DateRange{From: domain.Latest(start, *floor), To: end})
	if err != nil {
		return nil, domain.AttachAccount(err, accountID)
	}
	return points, nil
}
