package graph

import (
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// RealBaselineDate returns the latest date of the series on or before baseline,
// or the first date of the series if none precedes it
func RealBaselineDate(series *domain.Series, baseline domain.Date) (domain.Date, bool) {
	if on, _, ok := series.ValueAsOf(baseline); ok {
		return on, true
	}
	return series.First()
}

// Baseline divides every value of series within [start, end] by its value at the real baseline date
func Baseline(series *domain.Series, baseline, start, end domain.Date) (*domain.Series, error) {
	realBaseline, ok := RealBaselineDate(series, baseline)
	if !ok {
		return nil, domain.ErrEmptySeries
	}
	base, _ := series.Get(realBaseline)
	if base.IsZero() {
		return nil, domain.ErrZeroBaseline
	}
	return series.Window(start, end).Map(func(_ domain.Date, v decimal.Decimal) decimal.Decimal {
		return v.Div(base)
	}), nil
}

// NetOfFlows removes from series the effect of external flows (deposits,
// withdrawals, transfers) relative to the real baseline date rb:
// flows dated after d and before rb are added back to the value at d, flows
// dated after rb and up to d are subtracted from it.
func NetOfFlows(series *domain.Series, txs []*domain.Transaction, baseline domain.Date) *domain.Series {
	rb, ok := RealBaselineDate(series, baseline)
	if !ok {
		return series
	}

	var flows []*domain.Transaction
	for _, tx := range txs {
		if tx.ExcludedFromNetBaseline() {
			flows = append(flows, tx)
		}
	}
	if len(flows) == 0 {
		return series
	}

	return series.Map(func(d domain.Date, v decimal.Decimal) decimal.Decimal {
		for _, tx := range flows {
			switch {
			case tx.Date.After(d) && tx.Date.Before(rb):
				v = v.Add(tx.Flow())
			case tx.Date.After(rb) && !tx.Date.After(d):
				v = v.Sub(tx.Flow())
			}
		}
		return v
	})
}
