package graph

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/pricing"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/valuation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day0 = domain.MustParseDate("2024-03-01")
	day1 = day0.AddDays(1)
	day2 = day0.AddDays(2)
	day3 = day0.AddDays(3)
)

type world struct {
	ctx          context.Context
	instruments  *memory.InstrumentRepository
	accounts     *memory.AccountRepository
	transactions *memory.TransactionRepository
	prices       *memory.PriceRepository
	normalizer   *Normalizer
	eur          *domain.Instrument
}

func newWorld(t *testing.T) *world {
	t.Helper()
	store := memory.NewStore()
	w := &world{
		ctx:          context.Background(),
		instruments:  memory.NewInstrumentRepository(store),
		accounts:     memory.NewAccountRepository(store),
		transactions: memory.NewTransactionRepository(store),
		prices:       memory.NewPriceRepository(store),
	}
	engine := valuation.NewEngine(w.accounts, w.instruments, w.transactions, pricing.NewResolver(w.prices))
	w.normalizer = NewNormalizer(engine)
	w.eur = &domain.Instrument{Name: "Euro", MainCode: "EUR"}
	require.NoError(t, w.instruments.Create(w.ctx, w.eur))
	return w
}

func (w *world) account(t *testing.T) *domain.Account {
	t.Helper()
	a := &domain.Account{Name: "Broker", Enabled: true, BaseCurrencyID: w.eur.ID}
	require.NoError(t, w.accounts.Create(w.ctx, a))
	return a
}

func (w *world) instrument(t *testing.T, code string) *domain.Instrument {
	t.Helper()
	i := &domain.Instrument{Name: code, MainCode: code, BaseCurrencyID: &w.eur.ID}
	require.NoError(t, w.instruments.Create(w.ctx, i))
	return i
}

func (w *world) tx(t *testing.T, a *domain.Account, on domain.Date, typ domain.TransactionType, qty, unit string, i *domain.Instrument) {
	t.Helper()
	tx := &domain.Transaction{
		AccountID: a.ID,
		Date:      on,
		Type:      typ,
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(unit),
	}
	if i != nil {
		tx.InstrumentID = &i.ID
	}
	require.NoError(t, w.transactions.Create(w.ctx, tx))
}

func (w *world) price(t *testing.T, i *domain.Instrument, on domain.Date, price string) {
	t.Helper()
	require.NoError(t, w.prices.Add(w.ctx, &domain.PriceObservation{
		InstrumentID: i.ID, CurrencyID: w.eur.ID, Date: on, Price: decimal.RequireFromString(price), Source: "test",
	}))
}

// freshNormalizer returns a normalizer with empty caches over the same repositories
func (w *world) freshNormalizer() *Normalizer {
	return NewNormalizer(valuation.NewEngine(w.accounts, w.instruments, w.transactions, pricing.NewResolver(w.prices)))
}

func TestGraph_ValueModePassesThrough(t *testing.T) {
	w := newWorld(t)
	a := w.account(t)
	w.tx(t, a, day0, domain.TransactionTypeCashEntry, "100", "1", nil)
	w.tx(t, a, day2, domain.TransactionTypeCashEntry, "50", "1", nil)

	res, err := w.normalizer.Graph(w.ctx, Request{Start: day1, End: day3, Accounts: []uuid.UUID{a.ID}})

	require.NoError(t, err)
	assert.Equal(t, ModeValue, res.Mode)
	want := map[domain.Date]decimal.Decimal{
		day1: decimal.NewFromInt(100),
		day2: decimal.NewFromInt(150),
		day3: decimal.NewFromInt(150),
	}
	if diff := cmp.Diff(want, res.Accounts[a.ID].Values()); diff != "" {
		t.Errorf("value graph mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_BaselineIsOneAtBaselineDate(t *testing.T) {
	w := newWorld(t)
	x := w.instrument(t, "X")
	w.price(t, x, day0, "80")
	w.price(t, x, day2, "100")
	w.price(t, x, day3, "120")

	res, err := w.normalizer.Graph(w.ctx, Request{
		Mode: ModeBaseline, Start: day0, End: day3, Baseline: day2, Instruments: []uuid.UUID{x.ID},
	})

	require.NoError(t, err)
	series := res.Instruments[x.ID]
	v, ok := series.Get(day2)
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(1)), "got %s", v)
	v, _ = series.Get(day3)
	assert.True(t, v.Equal(decimal.RequireFromString("1.2")), "got %s", v)
	v, _ = series.Get(day0)
	assert.True(t, v.Equal(decimal.RequireFromString("0.8")), "got %s", v)
}

func TestGraph_BaselineFallsBackToFirstValue(t *testing.T) {
	w := newWorld(t)
	a := w.account(t)
	w.tx(t, a, day2, domain.TransactionTypeCashEntry, "200", "1", nil)

	res, err := w.normalizer.Graph(w.ctx, Request{
		Mode: ModeBaseline, Start: day0, End: day3, Baseline: day0, Accounts: []uuid.UUID{a.ID},
	})

	require.NoError(t, err)
	v, ok := res.Accounts[a.ID].Get(day2)
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(1)))
}

func TestGraph_BaselineNetRemovesDeposits(t *testing.T) {
	w := newWorld(t)
	a := w.account(t)
	x := w.instrument(t, "X")
	w.price(t, x, day0, "100")
	w.price(t, x, day3, "115")
	w.tx(t, a, day0, domain.TransactionTypeCashEntry, "10000", "1", nil)
	w.tx(t, a, day0, domain.TransactionTypeAssetBuy, "100", "100", x)
	w.tx(t, a, day2, domain.TransactionTypeCashEntry, "1000", "1", nil)

	req := Request{Start: day0, End: day3, Baseline: day0, Accounts: []uuid.UUID{a.ID}}

	req.Mode = ModeValue
	res, err := w.normalizer.Graph(w.ctx, req)
	require.NoError(t, err)
	raw, _ := res.Accounts[a.ID].Get(day3)
	require.True(t, raw.Equal(decimal.NewFromInt(12500)), "got %s", raw)

	req.Mode = ModeBaselineNet
	res, err = w.normalizer.Graph(w.ctx, req)
	require.NoError(t, err)
	net, _ := res.Accounts[a.ID].Get(day3)
	assert.True(t, net.Equal(decimal.RequireFromString("1.15")), "got %s", net)
	atBaseline, _ := res.Accounts[a.ID].Get(day0)
	assert.True(t, atBaseline.Equal(decimal.NewFromInt(1)))

	req.Mode = ModeBaseline
	res, err = w.normalizer.Graph(w.ctx, req)
	require.NoError(t, err)
	gross, _ := res.Accounts[a.ID].Get(day3)
	assert.True(t, gross.Equal(decimal.NewFromInt(1).Add(decimal.RequireFromString("0.25"))), "got %s", gross)
}

func TestGraph_BaselineOnWarmSessionMatchesFreshSession(t *testing.T) {
	w := newWorld(t)
	a := w.account(t)
	mid, second, last := day0.AddDays(5), day0.AddDays(10), day0.AddDays(20)
	w.tx(t, a, day0, domain.TransactionTypeCashEntry, "100", "1", nil)
	w.tx(t, a, second, domain.TransactionTypeCashEntry, "100", "1", nil)

	_, err := w.normalizer.Graph(w.ctx, Request{Start: day0, End: last, Accounts: []uuid.UUID{a.ID}})
	require.NoError(t, err)

	for _, mode := range []Mode{ModeValue, ModeBaseline, ModeBaselineNet} {
		t.Run(string(mode), func(t *testing.T) {
			req := Request{Mode: mode, Start: mid, End: last, Baseline: mid, Accounts: []uuid.UUID{a.ID}}

			warm, err := w.normalizer.Graph(w.ctx, req)
			require.NoError(t, err)
			fresh, err := w.freshNormalizer().Graph(w.ctx, req)
			require.NoError(t, err)

			if diff := cmp.Diff(fresh.Accounts[a.ID].Values(), warm.Accounts[a.ID].Values()); diff != "" {
				t.Errorf("warm session differs from a fresh one (-fresh +warm):\n%s", diff)
			}
		})
	}

	res, err := w.normalizer.Graph(w.ctx, Request{Mode: ModeBaseline, Start: mid, End: last, Baseline: mid, Accounts: []uuid.UUID{a.ID}})
	require.NoError(t, err)
	want := map[domain.Date]decimal.Decimal{
		mid:    decimal.NewFromInt(1),
		second: decimal.NewFromInt(2),
		last:   decimal.NewFromInt(2),
	}
	if diff := cmp.Diff(want, res.Accounts[a.ID].Values()); diff != "" {
		t.Errorf("baseline graph mismatch (-want +got):\n%s", diff)
	}
}

func TestNetOfFlows_ExampleFromBaseline(t *testing.T) {
	accountID := uuid.New()
	raw := domain.SeriesOf(map[domain.Date]decimal.Decimal{
		day0: decimal.NewFromInt(10000),
		day2: decimal.NewFromInt(11000),
		day3: decimal.NewFromInt(11500),
	})
	deposit := &domain.Transaction{
		AccountID: accountID, Date: day2, Type: domain.TransactionTypeCashEntry,
		Quantity: decimal.NewFromInt(1000), UnitPrice: decimal.NewFromInt(1),
	}

	net := NetOfFlows(raw, []*domain.Transaction{deposit}, day0)
	graph, err := Baseline(net, day0, day0, day3)

	require.NoError(t, err)
	v, _ := graph.Get(day3)
	assert.True(t, v.Equal(decimal.RequireFromString("1.05")), "got %s", v)
}

func TestNetOfFlows_AddsBackFlowsBeforeBaseline(t *testing.T) {
	raw := domain.SeriesOf(map[domain.Date]decimal.Decimal{
		day0: decimal.NewFromInt(1000),
		day3: decimal.NewFromInt(1500),
	})
	deposit := &domain.Transaction{
		Date: day1, Type: domain.TransactionTypeCashEntry,
		Quantity: decimal.NewFromInt(500), UnitPrice: decimal.NewFromInt(1),
	}
	dividend := &domain.Transaction{
		Date: day2, Type: domain.TransactionTypeDividends,
		Quantity: decimal.NewFromInt(20), UnitPrice: decimal.NewFromInt(1),
	}

	net := NetOfFlows(raw, []*domain.Transaction{deposit, dividend}, day3)

	v, _ := net.Get(day0)
	assert.True(t, v.Equal(decimal.NewFromInt(1500)), "deposit between day0 and the baseline is added back, got %s", v)
	v, _ = net.Get(day3)
	assert.True(t, v.Equal(decimal.NewFromInt(1500)))
}

func TestBaseline_Errors(t *testing.T) {
	_, err := Baseline(domain.NewSeries(), day0, day0, day3)
	assert.ErrorIs(t, err, domain.ErrEmptySeries)

	zero := domain.SeriesOf(map[domain.Date]decimal.Decimal{day0: decimal.Zero})
	_, err = Baseline(zero, day0, day0, day3)
	assert.ErrorIs(t, err, domain.ErrZeroBaseline)
}

func TestGraph_SplitSumsToOne(t *testing.T) {
	w := newWorld(t)
	a := w.account(t)
	x, y := w.instrument(t, "X"), w.instrument(t, "Y")
	w.price(t, x, day0, "10")
	w.price(t, x, day2, "13.37")
	w.price(t, y, day0, "3")
	w.price(t, y, day1, "2.9")
	w.price(t, y, day3, "3.3")
	w.tx(t, a, day0, domain.TransactionTypeCashEntry, "1000", "1", nil)
	w.tx(t, a, day0, domain.TransactionTypeAssetBuy, "30", "10", x)
	w.tx(t, a, day1, domain.TransactionTypeAssetBuy, "70", "2.9", y)
	w.tx(t, a, day2, domain.TransactionTypeAssetSell, "10", "13.37", x)

	res, err := w.normalizer.Graph(w.ctx, Request{Mode: ModeSplit, Start: day0, End: day3, Accounts: []uuid.UUID{a.ID}})

	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Components, 3)
	cash := res.Components[2]
	assert.True(t, cash.Cash)
	assert.Equal(t, w.eur.ID, cash.InstrumentID)

	tolerance := decimal.New(1, -9)
	require.Equal(t, 4, cash.Series.Len())
	for on, v := range cash.Series.All() {
		assert.True(t, v.Sub(decimal.NewFromInt(1)).Abs().LessThan(tolerance), "cash layer on %s is %s", on, v)
	}
	for on, v := range res.Accounts[a.ID].All() {
		assert.True(t, v.Equal(decimal.NewFromInt(1)), "account line on %s", on)
	}

	// Layers are stacked: each one is at least the previous one
	for on := range cash.Series.All() {
		below := decimal.Zero
		for _, layer := range res.Components {
			v, ok := layer.Series.Get(on)
			require.True(t, ok)
			assert.True(t, v.GreaterThanOrEqual(below), "layer %s on %s", layer.InstrumentID, on)
			below = v
		}
	}
}

func TestGraph_SplitNeedsExactlyOneAccount(t *testing.T) {
	w := newWorld(t)
	a, b := w.account(t), w.account(t)

	_, err := w.normalizer.Graph(w.ctx, Request{Mode: ModeSplit, Start: day0, End: day3, Accounts: []uuid.UUID{a.ID, b.ID}})
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	_, err = w.normalizer.Graph(w.ctx, Request{Mode: ModeSplit, Start: day0, End: day3})
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestGraph_InvalidRequests(t *testing.T) {
	w := newWorld(t)

	_, err := w.normalizer.Graph(w.ctx, Request{Start: day3, End: day0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = w.normalizer.Graph(w.ctx, Request{Mode: "pie", Start: day0, End: day3})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = w.normalizer.Graph(w.ctx, Request{Mode: ModeBaseline, Start: day0, End: day3})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGraph_NoPriceIsReportedPerElement(t *testing.T) {
	w := newWorld(t)
	ok := w.account(t)
	broken := w.account(t)
	x := w.instrument(t, "X")
	w.tx(t, ok, day0, domain.TransactionTypeCashEntry, "10", "1", nil)
	w.tx(t, broken, day0, domain.TransactionTypeProfitAsset, "1", "0", x)

	res, err := w.normalizer.Graph(w.ctx, Request{Start: day0, End: day3, Accounts: []uuid.UUID{ok.ID, broken.ID}})

	require.NoError(t, err)
	assert.Contains(t, res.Accounts, ok.ID)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrNoPrice)
	assert.Equal(t, broken.ID, res.Errors[0].ID)
}
