package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-valuation/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/pricing"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/valuation"
)

const testToken = "test-token"

type testServer struct {
	client  *ValuationServiceClient
	ctx     context.Context
	account *domain.Account
	x       *domain.Instrument
}

// newTestServer serves a ledger holding a deposit of 10000 on 2024-01-01,
// a buy of 50 X at 100 on 2024-01-05 and a price of 120 for X on 2024-01-10
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	accounts := memory.NewAccountRepository(store)
	instruments := memory.NewInstrumentRepository(store)
	transactions := memory.NewTransactionRepository(store)
	prices := memory.NewPriceRepository(store)

	eur := &domain.Instrument{Name: "Euro", MainCode: "EUR"}
	require.NoError(t, instruments.Create(ctx, eur))
	x := &domain.Instrument{Name: "X", MainCode: "X", BaseCurrencyID: &eur.ID}
	require.NoError(t, instruments.Create(ctx, x))
	account := &domain.Account{Name: "Broker", Enabled: true, BaseCurrencyID: eur.ID}
	require.NoError(t, accounts.Create(ctx, account))
	require.NoError(t, transactions.Create(ctx, &domain.Transaction{
		AccountID: account.ID, Date: domain.MustParseDate("2024-01-01"), Type: domain.TransactionTypeCashEntry,
		Quantity: decimal.NewFromInt(10000), UnitPrice: decimal.NewFromInt(1),
	}))
	require.NoError(t, transactions.Create(ctx, &domain.Transaction{
		AccountID: account.ID, Date: domain.MustParseDate("2024-01-05"), Type: domain.TransactionTypeAssetBuy,
		Quantity: decimal.NewFromInt(50), UnitPrice: decimal.NewFromInt(100), InstrumentID: &x.ID,
	}))
	require.NoError(t, prices.Add(ctx, &domain.PriceObservation{
		InstrumentID: x.ID, CurrencyID: eur.ID, Date: domain.MustParseDate("2024-01-10"),
		Price: decimal.NewFromInt(120), Source: "test",
	}))

	sessions := NewSessionStore(func() *valuation.Engine {
		return valuation.NewEngine(accounts, instruments, transactions, pricing.NewResolver(prices))
	})

	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(), AuthInterceptor(testToken)))
	RegisterValuationServiceServer(server, NewServer(sessions, accounts, instruments, prices))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testServer{
		client:  NewValuationServiceClient(conn),
		ctx:     metadata.AppendToOutgoingContext(ctx, "authorization", testToken),
		account: account,
		x:       x,
	}
}

func (s *testServer) call(t *testing.T, method string, fields map[string]any) (map[string]any, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	resp, err := s.client.Call(s.ctx, method, req)
	if err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

func TestServer_GetValueSeries(t *testing.T) {
	s := newTestServer(t)

	// Execute
	resp, err := s.call(t, "GetValueSeries", map[string]any{
		"start":    "2024-01-01",
		"end":      "2024-01-10",
		"accounts": []any{s.account.ID.String()},
	})

	// Assert
	require.NoError(t, err)
	accounts := resp["accounts"].(map[string]any)
	assert.Equal(t, map[string]any{
		"2024-01-01": "10000",
		"2024-01-05": "10000",
		"2024-01-10": "11000",
	}, accounts[s.account.ID.String()])
	assert.Empty(t, resp["errors"])
}

func TestServer_GetValueSeries_InvalidWindow(t *testing.T) {
	s := newTestServer(t)

	// Execute
	_, err := s.call(t, "GetValueSeries", map[string]any{
		"start":    "2024-02-01",
		"end":      "2024-01-01",
		"accounts": []any{s.account.ID.String()},
	})

	// Assert
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_GetGraph_Baseline(t *testing.T) {
	s := newTestServer(t)

	// Execute
	resp, err := s.call(t, "GetGraph", map[string]any{
		"mode":     "baseline",
		"start":    "2024-01-01",
		"end":      "2024-01-10",
		"baseline": "2024-01-01",
		"accounts": []any{s.account.ID.String()},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "baseline", resp["mode"])
	series := resp["accounts"].(map[string]any)[s.account.ID.String()].(map[string]any)
	assert.Equal(t, "1", series["2024-01-01"])
	assert.Equal(t, "1.1", series["2024-01-10"])

	markers := resp["markers"].(map[string]any)[s.account.ID.String()].([]any)
	require.Len(t, markers, 3)
	assert.Equal(t, "110.0%", markers[2].(map[string]any)["label"])
	assert.Equal(t, float64(0), resp["bounds"].(map[string]any)["min"])
}

func TestServer_GetGraph_SplitWithSeveralAccounts(t *testing.T) {
	s := newTestServer(t)

	// Execute
	_, err := s.call(t, "GetGraph", map[string]any{
		"mode":     "split",
		"start":    "2024-01-01",
		"end":      "2024-01-10",
		"accounts": []any{s.account.ID.String(), s.account.ID.String()},
	})

	// Assert
	st, _ := status.FromError(err)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Contains(t, st.Message(), "only 1 account")
}

func TestServer_GetMissingRanges_AndReset(t *testing.T) {
	s := newTestServer(t)
	request := map[string]any{
		"session": "chart-1",
		"kind":    "account",
		"id":      s.account.ID.String(),
		"start":   "2024-01-01",
		"end":     "2024-01-10",
	}

	// Execute: nothing cached yet
	resp, err := s.call(t, "GetMissingRanges", request)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"2024-01-01", "2024-01-10"}}, resp["ranges"])

	// Execute: value the window, then nothing is missing
	_, err = s.call(t, "GetValueSeries", map[string]any{
		"session":  "chart-1",
		"start":    "2024-01-01",
		"end":      "2024-01-10",
		"accounts": []any{s.account.ID.String()},
	})
	require.NoError(t, err)
	resp, err = s.call(t, "GetMissingRanges", request)
	require.NoError(t, err)
	assert.Empty(t, resp["ranges"])

	// Execute: a reset session starts empty
	_, err = s.call(t, "ResetSession", map[string]any{"session": "chart-1"})
	require.NoError(t, err)
	resp, err = s.call(t, "GetMissingRanges", request)
	require.NoError(t, err)
	assert.Len(t, resp["ranges"], 1)
}

func TestServer_GetMissingRanges_InvalidKind(t *testing.T) {
	s := newTestServer(t)

	// Execute
	_, err := s.call(t, "GetMissingRanges", map[string]any{
		"kind":  "portfolio",
		"id":    s.account.ID.String(),
		"start": "2024-01-01",
		"end":   "2024-01-10",
	})

	// Assert
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_GetOverview(t *testing.T) {
	s := newTestServer(t)

	// Execute
	resp, err := s.call(t, "GetOverview", map[string]any{"on": "2024-01-31"})

	// Assert
	require.NoError(t, err)
	accounts := resp["accounts"].([]any)
	require.Len(t, accounts, 1)
	row := accounts[0].(map[string]any)
	assert.Equal(t, "11000", row["value"])
	assert.Equal(t, "1000", row["gain"])
	totals := resp["totals"].([]any)
	require.Len(t, totals, 1)
	assert.Equal(t, "EUR", totals[0].(map[string]any)["currency"])
}

func TestServer_RequiresToken(t *testing.T) {
	s := newTestServer(t)
	req, err := structpb.NewStruct(map[string]any{"session": "x"})
	require.NoError(t, err)

	// Execute
	_, err = s.client.Call(context.Background(), "ResetSession", req)

	// Assert
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"Validation", &domain.ValidationError{Field: "start_date", Message: "start date must be before end date"}, codes.InvalidArgument},
		{"Capability", &domain.CapabilityError{Message: "only 1 account can be displayed in this mode"}, codes.FailedPrecondition},
		{"No price", &domain.NoPriceError{Reason: "no price observation"}, codes.NotFound},
		{"Not found", domain.ErrNotFound, codes.NotFound},
		{"In progress", domain.ErrComputationInProgress, codes.Aborted},
		{"Other", assert.AnError, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(mapError(tt.err)))
		})
	}
	assert.NoError(t, mapError(nil))
}
