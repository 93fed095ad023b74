package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/valuation"
)

// Request describes a graph to compute
type Request struct {
	Mode        Mode
	Start       domain.Date
	End         domain.Date
	Baseline    domain.Date // used by the baseline modes only
	Accounts    []uuid.UUID
	Instruments []uuid.UUID
}

// Validate ensures the request can be computed
func (r Request) Validate() error {
	if _, err := domain.NewDateRange(r.Start, r.End); err != nil {
		return err
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if r.Mode.IsBaseline() && r.Baseline.IsZero() {
		return &domain.ValidationError{Field: "baseline_date", Message: "missing baseline date"}
	}
	return nil
}

// Component is one stacked layer of a split graph
type Component struct {
	InstrumentID uuid.UUID
	Cash         bool
	Series       *domain.Series
}

// Result holds the graph series of every element that could be computed, and
// the error of every element that could not
type Result struct {
	Mode        Mode
	Accounts    map[uuid.UUID]*domain.Series
	Instruments map[uuid.UUID]*domain.Series
	Components  []Component // split mode only, bottom layer first
	Errors      []*valuation.ElementError
}

// Normalizer turns raw value series into graph series.
// Graph series are derived on every call and never cached.
type Normalizer struct {
	Engine *valuation.Engine
}

// NewNormalizer creates a new Normalizer instance
func NewNormalizer(engine *valuation.Engine) *Normalizer {
	return &Normalizer{Engine: engine}
}

// Graph computes the graph series of every requested element.
// Invalid requests and unsupported combinations fail as a whole; an element
// that cannot be valued is reported in Result.Errors.
func (n *Normalizer) Graph(ctx context.Context, req Request) (*Result, error) {
	if req.Mode == "" {
		req.Mode = ModeValue
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("mode", string(req.Mode)).
		Str("start", req.Start.String()).
		Str("end", req.End.String()).
		Int("accounts", len(req.Accounts)).
		Int("instruments", len(req.Instruments)).
		Msg("computing graph")

	if req.Mode == ModeSplit {
		return n.split(ctx, req)
	}

	res := &Result{
		Mode:        req.Mode,
		Accounts:    make(map[uuid.UUID]*domain.Series),
		Instruments: make(map[uuid.UUID]*domain.Series),
	}
	for _, id := range req.Accounts {
		series, err := n.accountGraph(ctx, req, id)
		if err != nil {
			res.addError(valuation.ElementAccount, id, err)
			continue
		}
		res.Accounts[id] = series
	}
	for _, id := range req.Instruments {
		series, err := n.instrumentGraph(ctx, req, id)
		if err != nil {
			res.addError(valuation.ElementInstrument, id, err)
			continue
		}
		res.Instruments[id] = series
	}
	return res, nil
}

// window returns the range of raw values a mode needs
func window(req Request) (domain.Date, domain.Date) {
	if !req.Mode.IsBaseline() {
		return req.Start, req.End
	}
	return domain.Earliest(req.Start, req.Baseline), domain.Latest(req.End, req.Baseline)
}

func (n *Normalizer) accountGraph(ctx context.Context, req Request, accountID uuid.UUID) (*domain.Series, error) {
	from, to := window(req)
	raw, err := n.Engine.AccountSeries(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	switch req.Mode {
	case ModeBaseline:
		return Baseline(raw, req.Baseline, req.Start, req.End)
	case ModeBaselineNet:
		tl, err := n.Engine.Timeline(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return Baseline(NetOfFlows(raw, tl.Transactions(), req.Baseline), req.Baseline, req.Start, req.End)
	}
	return raw.Window(req.Start, req.End), nil
}

func (n *Normalizer) instrumentGraph(ctx context.Context, req Request, instrumentID uuid.UUID) (*domain.Series, error) {
	from, to := window(req)
	raw, err := n.Engine.InstrumentSeries(ctx, instrumentID, from, to)
	if err != nil {
		return nil, err
	}
	if req.Mode.IsBaseline() {
		return Baseline(raw, req.Baseline, req.Start, req.End)
	}
	return raw.Window(req.Start, req.End), nil
}

// split stacks the composition of a single account: each instrument's share of
// the account value is added on top of the previous ones, and cash comes last,
// reaching 1. Dates where the account is worth zero are left out.
func (n *Normalizer) split(ctx context.Context, req Request) (*Result, error) {
	if len(req.Accounts) != 1 {
		return nil, &domain.CapabilityError{Message: "only 1 account can be displayed in this mode"}
	}
	accountID := req.Accounts[0]
	res := &Result{
		Mode:        ModeSplit,
		Accounts:    make(map[uuid.UUID]*domain.Series),
		Instruments: make(map[uuid.UUID]*domain.Series),
	}

	account, err := n.Engine.Account(ctx, accountID)
	if err != nil {
		res.addError(valuation.ElementAccount, accountID, err)
		return res, nil
	}
	tl, err := n.Engine.Timeline(ctx, accountID)
	if err != nil {
		res.addError(valuation.ElementAccount, accountID, err)
		return res, nil
	}
	points, err := n.Engine.Composition(ctx, accountID, req.Start, req.End)
	if err != nil {
		res.addError(valuation.ElementAccount, accountID, err)
		return res, nil
	}

	var layers []Component
	if len(points) > 0 {
		for _, id := range tl.Instruments(points[0].Date, req.End) {
			layers = append(layers, Component{InstrumentID: id, Series: domain.NewSeries()})
		}
	}
	cash := Component{InstrumentID: account.BaseCurrencyID, Cash: true, Series: domain.NewSeries()}
	total := domain.NewSeries()

	one := decimal.NewFromInt(1)
	for _, p := range points {
		if p.Total.IsZero() {
			continue
		}
		stack := decimal.Zero
		for _, layer := range layers {
			if value, ok := p.Positions[layer.InstrumentID]; ok {
				stack = stack.Add(value.Div(p.Total))
			}
			layer.Series.Set(p.Date, stack)
		}
		cash.Series.Set(p.Date, stack.Add(p.Cash.Div(p.Total)))
		total.Set(p.Date, one)
	}

	res.Components = append(layers, cash)
	res.Accounts[accountID] = total
	for _, layer := range layers {
		res.Instruments[layer.InstrumentID] = layer.Series
	}
	if _, held := res.Instruments[cash.InstrumentID]; !held {
		res.Instruments[cash.InstrumentID] = cash.Series
	}
	return res, nil
}

func (r *Result) addError(kind valuation.ElementKind, id uuid.UUID, err error) {
	if errors.Is(err, domain.ErrEmptySeries) || errors.Is(err, domain.ErrZeroBaseline) {
		err = fmt.Errorf("cannot graph %s %s: %w", kind, id, err)
	}
	log.Warn().Err(err).Str("kind", string(kind)).Str("id", id.String()).Msg("element could not be graphed")
	r.Errors = append(r.Errors, &valuation.ElementError{Kind: kind, ID: id, Err: err})
}
