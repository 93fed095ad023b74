package dashboard

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/valuation"
)

// coverageMonths is how many months before the current one the price coverage looks at
const coverageMonths = 6

// lowCoverage is the monthly observation count at or under which coverage is flagged
const lowCoverage = 10

// AccountOverview is the state of one account on a given date
type AccountOverview struct {
	Account       *domain.Account
	Balance       decimal.Decimal
	TotalInvested decimal.Decimal
	Value         *decimal.Decimal // nil when the account could not be valued
	Gain          *decimal.Decimal // Value - TotalInvested
	Err           error
}

// CurrencyTotals sums the accounts sharing a base currency
type CurrencyTotals struct {
	CurrencyID    uuid.UUID
	TotalInvested decimal.Decimal
	Value         decimal.Decimal
}

// Overview lists every visible account with its value
type Overview struct {
	Date     domain.Date
	Accounts []AccountOverview
	Totals   []CurrencyTotals
}

// MonthCount is the number of price observations of an instrument in a month
type MonthCount struct {
	Month domain.Date // first day of the month
	Count int
	Low   bool
}

// InstrumentCoverage is the monthly price coverage of a synced instrument
type InstrumentCoverage struct {
	Instrument *domain.Instrument
	Months     []MonthCount
}

// DashboardService handles dashboard-related operations
type DashboardService struct {
	AccountRepo    domain.AccountRepository
	InstrumentRepo domain.InstrumentRepository
	PriceRepo      domain.PriceRepository
	Engine         *valuation.Engine
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(
	accountRepo domain.AccountRepository,
	instrumentRepo domain.InstrumentRepository,
	priceRepo domain.PriceRepository,
	engine *valuation.Engine,
) *DashboardService {
	return &DashboardService{
		AccountRepo:    accountRepo,
		InstrumentRepo: instrumentRepo,
		PriceRepo:      priceRepo,
		Engine:         engine,
	}
}

// GetOverview values every visible account on the given date.
// Logic:
//   - Balance and TotalInvested come from the holdings timeline
//   - Value comes from the valuation engine; an account that cannot be valued keeps its error
//   - Totals are summed per base currency, over the accounts that could be valued
func (s *DashboardService) GetOverview(ctx context.Context, on domain.Date) (*Overview, error) {
	accounts, err := s.AccountRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	overview := &Overview{Date: on}
	totals := make(map[uuid.UUID]*CurrencyTotals)
	for _, account := range accounts {
		row := AccountOverview{Account: account, Balance: decimal.Zero, TotalInvested: decimal.Zero}

		tl, err := s.Engine.Timeline(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load holdings of account %s: %w", account.ID, err)
		}
		summary := tl.Summarize()
		row.Balance = summary.Balance
		row.TotalInvested = summary.TotalInvested

		series, err := s.Engine.AccountSeries(ctx, account.ID, on, on)
		if err != nil {
			log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("account could not be valued")
			row.Err = err
			overview.Accounts = append(overview.Accounts, row)
			continue
		}
		value := decimal.Zero
		if v, ok := series.Get(on); ok {
			value = v
		}
		gain := value.Sub(row.TotalInvested)
		row.Value, row.Gain = &value, &gain

		t, ok := totals[account.BaseCurrencyID]
		if !ok {
			t = &CurrencyTotals{CurrencyID: account.BaseCurrencyID, TotalInvested: decimal.Zero, Value: decimal.Zero}
			totals[account.BaseCurrencyID] = t
		}
		t.TotalInvested = t.TotalInvested.Add(row.TotalInvested)
		t.Value = t.Value.Add(value)

		overview.Accounts = append(overview.Accounts, row)
	}

	for _, t := range totals {
		overview.Totals = append(overview.Totals, *t)
	}
	slices.SortFunc(overview.Totals, func(a, b CurrencyTotals) int {
		return strings.Compare(a.CurrencyID.String(), b.CurrencyID.String())
	})
	return overview, nil
}

// GetPriceCoverage counts, for every synced instrument, the price observations
// in its base currency for each month from six months ago to the current month.
// Months with 10 observations or fewer are flagged, except the current one.
func (s *DashboardService) GetPriceCoverage(ctx context.Context, today domain.Date) ([]InstrumentCoverage, error) {
	instruments, err := s.InstrumentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}

	current := today.StartOfMonth()
	start := domain.NewDate(current.Year(), current.Month()-coverageMonths, 1)

	var out []InstrumentCoverage
	for _, instrument := range instruments {
		if !instrument.IsSynced() || instrument.BaseCurrencyID == nil {
			continue
		}
		counts, err := s.PriceRepo.CountByMonth(ctx, instrument.ID, *instrument.BaseCurrencyID, start)
		if err != nil {
			return nil, fmt.Errorf("failed to count prices of %s: %w", instrument.ShortName(), err)
		}

		row := InstrumentCoverage{Instrument: instrument}
		for month := start; !month.After(current); month = domain.NewDate(month.Year(), month.Month()+1, 1) {
			count := counts[month]
			row.Months = append(row.Months, MonthCount{
				Month: month,
				Count: count,
				Low:   count <= lowCoverage && month != current,
			})
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b InstrumentCoverage) int { return strings.Compare(a.Instrument.Name, b.Instrument.Name) })
	return out, nil
}
