package valuation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// ElementError is the failure of one element of a multi-element request
type ElementError struct {
	Kind ElementKind
	ID   uuid.UUID
	Err  error
}

func (e *ElementError) Error() string { return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err) }

func (e *ElementError) Unwrap() error { return e.Err }

// Request selects the elements and the window to value
type Request struct {
	Accounts    []uuid.UUID
	Instruments []uuid.UUID
	Start       domain.Date
	End         domain.Date
}

// Validate ensures the request can be computed
func (r Request) Validate() error {
	_, err := domain.NewDateRange(r.Start, r.End)
	return err
}

// Result holds the series of every element that could be valued, and the error
// of every element that could not
type Result struct {
	Accounts    map[uuid.UUID]*domain.Series
	Instruments map[uuid.UUID]*domain.Series
	Errors      []*ElementError
}

// ValueSeries values every requested element over the window.
// An invalid request fails as a whole; a failing element is reported in
// Result.Errors and does not prevent the others from being valued.
func (e *Engine) ValueSeries(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Accounts:    make(map[uuid.UUID]*domain.Series),
		Instruments: make(map[uuid.UUID]*domain.Series),
	}
	for _, id := range req.Accounts {
		series, err := e.AccountSeries(ctx, id, req.Start, req.End)
		if err != nil {
			res.addError(ElementAccount, id, err)
			continue
		}
		res.Accounts[id] = series
	}
	for _, id := range req.Instruments {
		series, err := e.InstrumentSeries(ctx, id, req.Start, req.End)
		if err != nil {
			res.addError(ElementInstrument, id, err)
			continue
		}
		res.Instruments[id] = series
	}
	return res, nil
}

func (r *Result) addError(kind ElementKind, id uuid.UUID, err error) {
	log.Warn().Err(err).Str("kind", string(kind)).Str("id", id.String()).Msg("element could not be valued")
	r.Errors = append(r.Errors, &ElementError{Kind: kind, ID: id, Err: err})
}
