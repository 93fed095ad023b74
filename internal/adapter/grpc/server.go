package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-valuation/internal/domain"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/dashboard"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/graph"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/valuation"
)

// Server implements the ValuationService gRPC server
type Server struct {
	Sessions       *SessionStore
	AccountRepo    domain.AccountRepository
	InstrumentRepo domain.InstrumentRepository
	PriceRepo      domain.PriceRepository
}

// NewServer creates a new gRPC server instance
func NewServer(
	sessions *SessionStore,
	accountRepo domain.AccountRepository,
	instrumentRepo domain.InstrumentRepository,
	priceRepo domain.PriceRepository,
) *Server {
	return &Server{
		Sessions:       sessions,
		AccountRepo:    accountRepo,
		InstrumentRepo: instrumentRepo,
		PriceRepo:      priceRepo,
	}
}

// GetValueSeries handles the GetValueSeries RPC
func (s *Server) GetValueSeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := parseValuationRequest(req)
	if err != nil {
		return nil, mapError(err)
	}

	session := s.Sessions.Get(stringField(req, "session"))
	res, err := session.Engine.ValueSeries(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return newResponse(map[string]any{
		"accounts":    seriesByID(res.Accounts),
		"instruments": seriesByID(res.Instruments),
		"errors":      elementErrorsToList(res.Errors),
	})
}

// GetGraph handles the GetGraph RPC
func (s *Server) GetGraph(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := parseGraphRequest(req)
	if err != nil {
		return nil, mapError(err)
	}

	session := s.Sessions.Get(stringField(req, "session"))
	res, err := session.Normalizer.Graph(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	bounds := res.Mode.Bounds()
	markers := make(map[string]any)
	for id, series := range res.Accounts {
		code := accountCurrencyCode(ctx, session.Engine, id)
		markers[id.String()] = markersToList(graph.Markers(series, res.Mode, code))
	}
	for id, series := range res.Instruments {
		code := instrumentCurrencyCode(ctx, session.Engine, id)
		markers[id.String()] = markersToList(graph.Markers(series, res.Mode, code))
	}

	components := make([]any, 0, len(res.Components))
	for _, c := range res.Components {
		components = append(components, map[string]any{
			"instrument_id": c.InstrumentID.String(),
			"cash":          c.Cash,
			"series":        seriesToMap(c.Series),
		})
	}

	return newResponse(map[string]any{
		"mode": string(res.Mode),
		"bounds": map[string]any{
			"min": floatOrNil(bounds.Min),
			"max": floatOrNil(bounds.Max),
		},
		"accounts":    seriesByID(res.Accounts),
		"instruments": seriesByID(res.Instruments),
		"components":  components,
		"markers":     markers,
		"errors":      elementErrorsToList(res.Errors),
	})
}

// GetMissingRanges handles the GetMissingRanges RPC
func (s *Server) GetMissingRanges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, mapError(err)
	}
	start, err := dateField(req, "start")
	if err != nil {
		return nil, mapError(err)
	}
	end, err := dateField(req, "end")
	if err != nil {
		return nil, mapError(err)
	}

	session := s.Sessions.Get(stringField(req, "session"))
	var ranges []domain.DateRange
	switch kind := valuation.ElementKind(stringField(req, "kind")); kind {
	case valuation.ElementAccount:
		ranges, err = session.Engine.MissingAccountRanges(ctx, id, start, end)
	case valuation.ElementInstrument:
		ranges, err = session.Engine.MissingInstrumentRanges(ctx, id, start, end)
	default:
		err = &domain.ValidationError{Field: "kind", Value: kind, Message: "kind must be account or instrument"}
	}
	if err != nil {
		return nil, mapError(err)
	}

	return newResponse(map[string]any{"ranges": rangesToList(ranges)})
}

// ResetSession handles the ResetSession RPC
func (s *Server) ResetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.Sessions.Reset(stringField(req, "session"))
	return newResponse(map[string]any{"reset": true})
}

// GetOverview handles the GetOverview RPC
func (s *Server) GetOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	on, err := optionalDateField(req, "on", domain.Today())
	if err != nil {
		return nil, mapError(err)
	}

	session := s.Sessions.Get(stringField(req, "session"))
	service := dashboard.NewDashboardService(s.AccountRepo, s.InstrumentRepo, s.PriceRepo, session.Engine)

	overview, err := service.GetOverview(ctx, on)
	if err != nil {
		return nil, mapError(err)
	}
	coverage, err := service.GetPriceCoverage(ctx, on)
	if err != nil {
		return nil, mapError(err)
	}

	accounts := make([]any, 0, len(overview.Accounts))
	for _, row := range overview.Accounts {
		item := map[string]any{
			"id":             row.Account.ID.String(),
			"name":           row.Account.Label(),
			"balance":        row.Balance.String(),
			"total_invested": row.TotalInvested.String(),
		}
		if row.Err != nil {
			item["error"] = row.Err.Error()
		} else {
			item["value"] = row.Value.String()
			item["gain"] = row.Gain.String()
		}
		accounts = append(accounts, item)
	}

	totals := make([]any, 0, len(overview.Totals))
	for _, t := range overview.Totals {
		totals = append(totals, map[string]any{
			"currency_id":    t.CurrencyID.String(),
			"currency":       instrumentCode(ctx, session.Engine, t.CurrencyID),
			"total_invested": t.TotalInvested.String(),
			"value":          t.Value.String(),
		})
	}

	instruments := make([]any, 0, len(coverage))
	for _, c := range coverage {
		months := make([]any, 0, len(c.Months))
		for _, m := range c.Months {
			months = append(months, map[string]any{
				"month": m.Month.String(),
				"count": m.Count,
				"low":   m.Low,
			})
		}
		instruments = append(instruments, map[string]any{
			"instrument_id": c.Instrument.ID.String(),
			"name":          c.Instrument.ShortName(),
			"months":        months,
		})
	}

	return newResponse(map[string]any{
		"date":     overview.Date.String(),
		"accounts": accounts,
		"totals":   totals,
		"coverage": instruments,
	})
}

func parseValuationRequest(req *structpb.Struct) (valuation.Request, error) {
	var input valuation.Request
	var err error
	if input.Start, err = dateField(req, "start"); err != nil {
		return input, err
	}
	if input.End, err = dateField(req, "end"); err != nil {
		return input, err
	}
	if input.Accounts, err = uuidListField(req, "accounts"); err != nil {
		return input, err
	}
	if input.Instruments, err = uuidListField(req, "instruments"); err != nil {
		return input, err
	}
	return input, nil
}

func parseGraphRequest(req *structpb.Struct) (graph.Request, error) {
	var input graph.Request
	mode, err := graph.ParseMode(stringField(req, "mode"))
	if err != nil {
		return input, err
	}
	input.Mode = mode
	if input.Start, err = dateField(req, "start"); err != nil {
		return input, err
	}
	if input.End, err = dateField(req, "end"); err != nil {
		return input, err
	}
	if input.Baseline, err = optionalDateField(req, "baseline", domain.Date{}); err != nil {
		return input, err
	}
	if input.Accounts, err = uuidListField(req, "accounts"); err != nil {
		return input, err
	}
	if input.Instruments, err = uuidListField(req, "instruments"); err != nil {
		return input, err
	}
	return input, nil
}

func newResponse(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return out, nil
}

func elementErrorsToList(errs []*valuation.ElementError) []any {
	out := make([]any, 0, len(errs))
	for _, e := range errs {
		out = append(out, map[string]any{
			"kind":    string(e.Kind),
			"id":      e.ID.String(),
			"code":    status.Code(mapError(e.Err)).String(),
			"message": e.Err.Error(),
		})
	}
	return out
}

func markersToList(markers []graph.Marker) []any {
	out := make([]any, 0, len(markers))
	for _, m := range markers {
		out = append(out, map[string]any{
			"date":  m.Date.String(),
			"value": m.Value.String(),
			"label": m.Label,
		})
	}
	return out
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// instrumentCode returns the main code of an instrument, or "" when it cannot be loaded
func instrumentCode(ctx context.Context, engine *valuation.Engine, id uuid.UUID) string {
	instrument, err := engine.Instrument(ctx, id)
	if err != nil {
		return ""
	}
	return instrument.MainCode
}

func accountCurrencyCode(ctx context.Context, engine *valuation.Engine, accountID uuid.UUID) string {
	account, err := engine.Account(ctx, accountID)
	if err != nil {
		return ""
	}
	return instrumentCode(ctx, engine, account.BaseCurrencyID)
}

func instrumentCurrencyCode(ctx context.Context, engine *valuation.Engine, instrumentID uuid.UUID) string {
	instrument, err := engine.Instrument(ctx, instrumentID)
	if err != nil || instrument.BaseCurrencyID == nil {
		return ""
	}
	return instrumentCode(ctx, engine, *instrument.BaseCurrencyID)
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrUnsupported):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, domain.ErrNoPrice), errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrComputationInProgress):
		return status.Errorf(codes.Aborted, "%s", errorMsg)
	case errors.Is(err, domain.ErrEmptySeries), errors.Is(err, domain.ErrZeroBaseline):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
