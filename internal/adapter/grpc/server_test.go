package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthwise-backend/internal/domain"
	"github.com/simaogato/wealthwise-backend/internal/usecase/consistency"
	"github.com/simaogato/wealthwise-backend/internal/usecase/history"
	"github.com/simaogato/wealthwise-backend/internal/usecase/investment"
)

// Mocks

type MockHistoryCalculator struct{ mock.Mock }

func (m *MockHistoryCalculator) CalculateUserHistory(ctx context.Context, userID uuid.UUID, start, end *domain.Date) (*history.Result, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Result), args.Error(1)
}

type MockCoverage struct{ mock.Mock }

func (m *MockCoverage) Measure(ctx context.Context, symbols []string, dateRange domain.DateRange) (*domain.CoverageReport, error) {
	args := m.Called(ctx, symbols, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CoverageReport), args.Error(1)
}

func (m *MockCoverage) EnsureCoverage(ctx context.Context, symbols []string, dateRange domain.DateRange) (*domain.CoverageReport, error) {
	args := m.Called(ctx, symbols, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CoverageReport), args.Error(1)
}

type MockNetWorth struct{ mock.Mock }

func (m *MockNetWorth) GetCurrentNetWorth(ctx context.Context, userID uuid.UUID) (*domain.NetWorthResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NetWorthResult), args.Error(1)
}

func (m *MockNetWorth) RecordMilestone(ctx context.Context, userID uuid.UUID) (*domain.NetWorthMilestone, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NetWorthMilestone), args.Error(1)
}

type MockValidator struct{ mock.Mock }

func (m *MockValidator) Validate(ctx context.Context, userID uuid.UUID, cfg consistency.Config) (*domain.ValidationReport, error) {
	args := m.Called(ctx, userID, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ValidationReport), args.Error(1)
}

type MockQuoteRefresher struct{ mock.Mock }

func (m *MockQuoteRefresher) RefreshQuotes(ctx context.Context, userID uuid.UUID) (*investment.RefreshResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*investment.RefreshResult), args.Error(1)
}

type MockHoldingRepository struct{ mock.Mock }

func (m *MockHoldingRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Holding), args.Error(1)
}

func (m *MockHoldingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Holding, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holding), args.Error(1)
}

func (m *MockHoldingRepository) UpdatePrice(ctx context.Context, holding *domain.Holding) error {
	args := m.Called(ctx, holding)
	return args.Error(0)
}

func (m *MockHoldingRepository) ListActiveSymbols(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// Fixture

const testToken = "test-token"

type serverFixture struct {
	history   *MockHistoryCalculator
	coverage  *MockCoverage
	netWorth  *MockNetWorth
	validator *MockValidator
	quotes    *MockQuoteRefresher
	holdings  *MockHoldingRepository
	conn      *grpc.ClientConn
	userID    uuid.UUID
}

// newServerFixture starts the valuation service on an in-memory listener
// with the same interceptor chain as the binary
func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		history:   new(MockHistoryCalculator),
		coverage:  new(MockCoverage),
		netWorth:  new(MockNetWorth),
		validator: new(MockValidator),
		quotes:    new(MockQuoteRefresher),
		holdings:  new(MockHoldingRepository),
		userID:    uuid.New(),
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(slog.New(slog.NewTextHandler(io.Discard, nil))),
		AuthInterceptor(testToken),
	))
	RegisterValuationServiceServer(srv, NewServer(f.history, f.coverage, f.netWorth, f.validator, f.quotes, f.holdings))

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	f.conn = conn

	return f
}

func (f *serverFixture) ctx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+testToken, UserIDHeader, f.userID.String())
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

// Tests

func TestServer_GetPortfolioHistory(t *testing.T) {
	// Setup
	f := newServerFixture(t)
	start := domain.NewDate(2024, time.January, 1)
	end := domain.NewDate(2024, time.January, 3)

	result := &history.Result{
		UserID: f.userID,
		Range:  domain.DateRange{Start: start, End: end},
		Snapshots: []domain.PortfolioSnapshot{
			{Date: start, Value: decimal.NewFromInt(1000), HoldingsIncluded: 1, HoldingsTotal: 1, Confidence: 1, Quality: domain.QualityExcellent},
		},
		Coverage:     &domain.CoverageReport{Range: domain.DateRange{Start: start, End: end}, ExpectedDays: 3},
		CurrentValue: decimal.NewFromInt(1000),
		Quality: history.QualityAssessment{
			AverageConfidence: 1,
			Label:             domain.QualityExcellent,
			LabelCounts:       map[domain.QualityLabel]int{domain.QualityExcellent: 1},
		},
		Warnings: []string{"holding skipped"},
	}
	f.history.On("CalculateUserHistory", mock.Anything, f.userID,
		mock.MatchedBy(func(d *domain.Date) bool { return d != nil && *d == start }),
		(*domain.Date)(nil),
	).Return(result, nil)

	// Execute
	resp, err := Invoke(f.ctx(t), f.conn, MethodGetPortfolioHistory, mustStruct(t, map[string]any{"start": "2024-01-01"}))

	// Assert
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, f.userID.String(), fields["user_id"])
	assert.Equal(t, "1000", fields["current_value"])
	snapshots := fields["snapshots"].([]any)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "2024-01-01", snapshots[0].(map[string]any)["date"])
	assert.Equal(t, "excellent", fields["quality"].(map[string]any)["label"])
	assert.Equal(t, []any{"holding skipped"}, fields["warnings"])
	f.history.AssertExpectations(t)
}

func TestServer_GetPortfolioHistory_InvalidRange(t *testing.T) {
	// Setup
	f := newServerFixture(t)
	f.history.On("CalculateUserHistory", mock.Anything, f.userID, mock.Anything, mock.Anything).
		Return(nil, history.ErrInvalidRange)

	// Execute
	_, err := Invoke(f.ctx(t), f.conn, MethodGetPortfolioHistory,
		mustStruct(t, map[string]any{"start": "2024-02-01", "end": "2024-01-01"}))

	// Assert
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_GetPortfolioHistory_BadDate(t *testing.T) {
	f := newServerFixture(t)

	_, err := Invoke(f.ctx(t), f.conn, MethodGetPortfolioHistory, mustStruct(t, map[string]any{"start": "01/02/2024"}))

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	f.history.AssertNotCalled(t, "CalculateUserHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_RequiresAuthAndUser(t *testing.T) {
	f := newServerFixture(t)

	// No token
	_, err := Invoke(context.Background(), f.conn, MethodGetNetWorth, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	// Token but no user
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", testToken)
	_, err = Invoke(ctx, f.conn, MethodGetNetWorth, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	f.netWorth.AssertNotCalled(t, "GetCurrentNetWorth", mock.Anything, mock.Anything)
}

func TestServer_GetNetWorth(t *testing.T) {
	// Setup
	f := newServerFixture(t)
	f.netWorth.On("GetCurrentNetWorth", mock.Anything, f.userID).Return(&domain.NetWorthResult{
		UserID:   f.userID,
		NetWorth: decimal.NewFromInt(118000),
		Breakdown: domain.NetWorthBreakdown{
			LiquidAssets:     decimal.NewFromInt(15000),
			PortfolioValue:   decimal.NewFromInt(25000),
			PhysicalAssets:   decimal.NewFromInt(100000),
			TotalLiabilities: decimal.NewFromInt(22000),
			EmbeddedLoans:    decimal.NewFromInt(300000),
		},
		CalculatedAt: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}, nil)

	// Execute
	resp, err := Invoke(f.ctx(t), f.conn, MethodGetNetWorth, nil)

	// Assert
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, "118000", fields["net_worth"])
	assert.Equal(t, "2024-03-01T12:00:00Z", fields["calculated_at"])
	breakdown := fields["breakdown"].(map[string]any)
	assert.Equal(t, "100000", breakdown["physical_assets"])
	assert.Equal(t, "300000", breakdown["embedded_loans"])
}

func TestServer_GetNetWorth_StoreFailure(t *testing.T) {
	f := newServerFixture(t)
	f.netWorth.On("GetCurrentNetWorth", mock.Anything, f.userID).
		Return(nil, errors.New("failed to calculate net worth: debts: connection refused"))

	_, err := Invoke(f.ctx(t), f.conn, MethodGetNetWorth, nil)

	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "debts")
}

func TestServer_RecordNetWorthMilestone(t *testing.T) {
	f := newServerFixture(t)
	milestoneID := uuid.New()
	f.netWorth.On("RecordMilestone", mock.Anything, f.userID).Return(&domain.NetWorthMilestone{
		ID:         milestoneID,
		UserID:     f.userID,
		RecordedAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		NetWorth:   decimal.NewFromInt(5000),
	}, nil)

	resp, err := Invoke(f.ctx(t), f.conn, MethodRecordNetWorthMilestone, nil)

	require.NoError(t, err)
	assert.Equal(t, milestoneID.String(), resp.AsMap()["id"])
	assert.Equal(t, "5000", resp.AsMap()["net_worth"])
}

func TestServer_GetCoverage(t *testing.T) {
	// Setup
	f := newServerFixture(t)
	dateRange := domain.DateRange{Start: domain.NewDate(2024, time.January, 1), End: domain.NewDate(2024, time.January, 10)}
	report := &domain.CoverageReport{
		Range:          dateRange,
		ExpectedDays:   10,
		TotalBars:      8,
		OverallPercent: 80,
		Symbols:        []domain.SymbolCoverage{{Symbol: "AAPL", CoveragePercent: 80, BarCount: 8, Backfilled: true}},
	}
	f.coverage.On("EnsureCoverage", mock.Anything, []string{"AAPL"}, dateRange).Return(report, nil)

	// Execute
	resp, err := Invoke(f.ctx(t), f.conn, MethodGetCoverage, mustStruct(t, map[string]any{
		"symbols": []any{"AAPL"},
		"start":   "2024-01-01",
		"end":     "2024-01-10",
		"ensure":  true,
	}))

	// Assert
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, float64(80), fields["overall_percent"])
	symbols := fields["symbols"].([]any)
	require.Len(t, symbols, 1)
	assert.Equal(t, true, symbols[0].(map[string]any)["backfilled"])
	f.coverage.AssertNotCalled(t, "Measure", mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_GetCoverage_Validation(t *testing.T) {
	f := newServerFixture(t)

	tests := []struct {
		name string
		req  map[string]any
	}{
		{"no symbols", map[string]any{"start": "2024-01-01", "end": "2024-01-10"}},
		{"missing end", map[string]any{"symbols": []any{"AAPL"}, "start": "2024-01-01"}},
		{"inverted", map[string]any{"symbols": []any{"AAPL"}, "start": "2024-01-10", "end": "2024-01-01"}},
		{"non-string symbol", map[string]any{"symbols": []any{42}, "start": "2024-01-01", "end": "2024-01-10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Invoke(f.ctx(t), f.conn, MethodGetCoverage, mustStruct(t, tt.req))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestServer_ValidateConsistency_Categories(t *testing.T) {
	// Setup
	f := newServerFixture(t)
	f.validator.On("Validate", mock.Anything, f.userID, mock.MatchedBy(func(cfg consistency.Config) bool {
		return cfg.CheckDebts && cfg.CheckNetWorth && !cfg.CheckAccounts && !cfg.CheckBudgets
	})).Return(&domain.ValidationReport{
		UserID:  f.userID,
		IsValid: false,
		Score:   90,
		Issues: []domain.ValidationIssue{
			{Severity: domain.SeverityHigh, Category: consistency.CategoryDebts, Message: "loan counted twice"},
		},
	}, nil)

	// Execute
	resp, err := Invoke(f.ctx(t), f.conn, MethodValidateConsistency,
		mustStruct(t, map[string]any{"categories": []any{"debts", "net_worth"}}))

	// Assert
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, float64(90), fields["score"])
	assert.Equal(t, false, fields["is_valid"])
	issues := fields["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "high", issues[0].(map[string]any)["severity"])
	assert.Nil(t, issues[0].(map[string]any)["record_id"])
	f.validator.AssertExpectations(t)
}

func TestServer_ValidateConsistency_UnknownCategory(t *testing.T) {
	f := newServerFixture(t)

	_, err := Invoke(f.ctx(t), f.conn, MethodValidateConsistency,
		mustStruct(t, map[string]any{"categories": []any{"crypto"}}))

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_RefreshQuotes(t *testing.T) {
	f := newServerFixture(t)
	f.quotes.On("RefreshQuotes", mock.Anything, f.userID).Return(&investment.RefreshResult{
		Updated:        2,
		FailedSymbols:  []string{"GONE"},
		PortfolioValue: decimal.RequireFromString("3670.00"),
	}, nil)

	resp, err := Invoke(f.ctx(t), f.conn, MethodRefreshQuotes, nil)

	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, float64(2), fields["updated"])
	assert.Equal(t, []any{"GONE"}, fields["failed_symbols"])
	assert.Equal(t, "3670", fields["portfolio_value"])
}

func TestServer_GetAllocation(t *testing.T) {
	// Setup
	f := newServerFixture(t)
	f.holdings.On("FindActiveByUser", mock.Anything, f.userID).Return([]*domain.Holding{
		{ID: uuid.New(), Symbol: "AAPL", Shares: decimal.NewFromInt(1), MarketValue: decimal.NewFromInt(600), IsActive: true},
		{ID: uuid.New(), Symbol: "MSFT", Shares: decimal.NewFromInt(1), MarketValue: decimal.NewFromInt(400), IsActive: true},
	}, nil)

	// Execute
	resp, err := Invoke(f.ctx(t), f.conn, MethodGetAllocation, nil)

	// Assert
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, "1000", fields["total_value"])
	slices := fields["slices"].([]any)
	require.Len(t, slices, 2)
	assert.Equal(t, "AAPL", slices[0].(map[string]any)["symbol"])
	assert.Equal(t, "60", slices[0].(map[string]any)["percent"])
}

func TestServer_GetAllocation_NoHoldings(t *testing.T) {
	f := newServerFixture(t)
	f.holdings.On("FindActiveByUser", mock.Anything, f.userID).Return([]*domain.Holding{}, nil)

	resp, err := Invoke(f.ctx(t), f.conn, MethodGetAllocation, nil)

	require.NoError(t, err)
	assert.Equal(t, "0", resp.AsMap()["total_value"])
	assert.Empty(t, resp.AsMap()["slices"])
}

func TestServer_GetAllocation_UnpricedHoldings(t *testing.T) {
	// Setup
	f := newServerFixture(t)
	f.holdings.On("FindActiveByUser", mock.Anything, f.userID).Return([]*domain.Holding{
		{ID: uuid.New(), Symbol: "AAPL", Shares: decimal.NewFromInt(3), MarketValue: decimal.Zero, IsActive: true},
	}, nil)

	// Execute
	resp, err := Invoke(f.ctx(t), f.conn, MethodGetAllocation, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "0", resp.AsMap()["total_value"])
	assert.Empty(t, resp.AsMap()["slices"])
}
