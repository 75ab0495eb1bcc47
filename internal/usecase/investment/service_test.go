package investment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthwise-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHoldingRepository is a mock implementation of HoldingRepository for testing
type MockHoldingRepository struct {
	mock.Mock
}

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

// MockPriceRepository is a mock implementation of PriceRepository for testing
type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) FindBars(ctx context.Context, symbols []string, dateRange domain.DateRange) ([]domain.DailyBar, error) {
	args := m.Called(ctx, symbols, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DailyBar), args.Error(1)
}

func (m *MockPriceRepository) UpsertBars(ctx context.Context, bars []domain.DailyBar) error {
	args := m.Called(ctx, bars)
	return args.Error(0)
}

// MockMarketDataProvider is a mock implementation of MarketDataProvider for testing
type MockMarketDataProvider struct {
	mock.Mock
}

func (m *MockMarketDataProvider) Name() string { return "mock" }

func (m *MockMarketDataProvider) GetHistoricalBars(ctx context.Context, symbol string, lookbackDays int) ([]domain.DailyBar, error) {
	args := m.Called(ctx, symbol, lookbackDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DailyBar), args.Error(1)
}

func (m *MockMarketDataProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func newTestService() (*InvestmentService, *MockHoldingRepository, *MockPriceRepository, *MockMarketDataProvider) {
	holdingRepo := new(MockHoldingRepository)
	priceRepo := new(MockPriceRepository)
	provider := new(MockMarketDataProvider)
	service := NewInvestmentService(holdingRepo, priceRepo, provider, slog.New(slog.NewTextHandler(io.Discard, nil)))
	service.now = func() time.Time { return time.Date(2024, time.June, 3, 16, 0, 0, 0, time.UTC) }
	return service, holdingRepo, priceRepo, provider
}

func TestCalculateGainLoss_ProfitScenario(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, _, _ := newTestService()

	// Setup: 10 shares bought for 1000, now priced at 120
	holdingID := uuid.New()
	holding := &domain.Holding{
		ID:           holdingID,
		Symbol:       "AAPL",
		Shares:       decimal.NewFromInt(10),
		CurrentPrice: decimal.NewFromInt(120),
		TotalCost:    decimal.NewFromInt(1000),
	}
	holdingRepo.On("GetByID", ctx, holdingID).Return(holding, nil)

	// Execute
	gain, err := service.CalculateGainLoss(ctx, holdingID)

	// Assert
	assert.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(gain)) // 1200 - 1000 = +200
	holdingRepo.AssertExpectations(t)
}

func TestCalculateGainLoss_LossScenario(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, _, _ := newTestService()

	// Setup: 10 shares bought for 1000, now priced at 90
	holdingID := uuid.New()
	holding := &domain.Holding{
		ID:           holdingID,
		Symbol:       "AAPL",
		Shares:       decimal.NewFromInt(10),
		CurrentPrice: decimal.NewFromInt(90),
		TotalCost:    decimal.NewFromInt(1000),
	}
	holdingRepo.On("GetByID", ctx, holdingID).Return(holding, nil)

	// Execute
	gain, err := service.CalculateGainLoss(ctx, holdingID)

	// Assert
	assert.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-100).Equal(gain)) // 900 - 1000 = -100
}

func TestCalculateGainLoss_NeverPriced(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, _, _ := newTestService()

	holdingID := uuid.New()
	holding := &domain.Holding{
		ID:        holdingID,
		Symbol:    "AAPL",
		Shares:    decimal.NewFromInt(10),
		TotalCost: decimal.NewFromInt(1000),
	}
	holdingRepo.On("GetByID", ctx, holdingID).Return(holding, nil)

	gain, err := service.CalculateGainLoss(ctx, holdingID)

	assert.NoError(t, err) // Should return 0 gracefully, not error
	assert.True(t, gain.IsZero())
}

func TestCalculateGainLoss_HoldingNotFound(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, _, _ := newTestService()

	holdingID := uuid.New()
	holdingRepo.On("GetByID", ctx, holdingID).Return(nil, errors.New("holding not found"))

	gain, err := service.CalculateGainLoss(ctx, holdingID)

	assert.Error(t, err)
	assert.True(t, gain.IsZero())
	assert.Contains(t, err.Error(), "holding not found")
}

func TestUpdatePrice_Success(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, _, _ := newTestService()

	// Setup: holding exists
	holdingID := uuid.New()
	holding := &domain.Holding{
		ID:        holdingID,
		Symbol:    "VTI",
		Shares:    decimal.NewFromInt(4),
		TotalCost: decimal.NewFromInt(800),
	}
	holdingRepo.On("GetByID", ctx, holdingID).Return(holding, nil)
	holdingRepo.On("UpdatePrice", ctx, mock.MatchedBy(func(h *domain.Holding) bool {
		return h.ID == holdingID &&
			h.CurrentPrice.Equal(decimal.NewFromInt(250)) &&
			h.MarketValue.Equal(decimal.NewFromInt(1000)) &&
			h.GainLoss.Equal(decimal.NewFromInt(200))
	})).Return(nil)

	// Execute
	updated, err := service.UpdatePrice(ctx, holdingID, decimal.NewFromInt(250))

	// Assert
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(updated.GainLossPercent))
	holdingRepo.AssertExpectations(t)
}

func TestUpdatePrice_NonPositivePrice(t *testing.T) {
	tests := []struct {
		name  string
		price decimal.Decimal
	}{
		{"zero", decimal.Zero},
		{"negative", decimal.NewFromInt(-100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			service, holdingRepo, _, _ := newTestService()

			_, err := service.UpdatePrice(ctx, uuid.New(), tt.price)

			assert.Error(t, err)
			assert.Contains(t, err.Error(), "price must be positive")
			holdingRepo.AssertNotCalled(t, "GetByID")
			holdingRepo.AssertNotCalled(t, "UpdatePrice")
		})
	}
}

func TestRefreshQuotes_UpdatesHoldingsAndStoresBars(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, priceRepo, provider := newTestService()
	userID := uuid.New()

	// Setup: two AAPL lots and one MSFT lot
	holdings := []*domain.Holding{
		{ID: uuid.New(), Symbol: "AAPL", Shares: decimal.NewFromInt(10), TotalCost: decimal.NewFromInt(1500), IsActive: true},
		{ID: uuid.New(), Symbol: "aapl", Shares: decimal.NewFromInt(5), TotalCost: decimal.NewFromInt(700), IsActive: true},
		{ID: uuid.New(), Symbol: "MSFT", Shares: decimal.NewFromInt(2), TotalCost: decimal.NewFromInt(600), IsActive: true},
	}
	holdingRepo.On("FindActiveByUser", ctx, userID).Return(holdings, nil)
	holdingRepo.On("UpdatePrice", ctx, mock.Anything).Return(nil)
	provider.On("GetQuote", mock.Anything, "AAPL").Return(&domain.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(190), Volume: 1000}, nil)
	provider.On("GetQuote", mock.Anything, "MSFT").Return(&domain.Quote{
		Symbol: "MSFT", Price: decimal.NewFromInt(410),
		Open: decimal.NewFromInt(400), High: decimal.NewFromInt(415), Low: decimal.NewFromInt(398),
	}, nil)
	priceRepo.On("UpsertBars", ctx, mock.MatchedBy(func(bars []domain.DailyBar) bool {
		if len(bars) != 2 {
			return false
		}
		aapl, msft := bars[0], bars[1]
		return aapl.Symbol == "AAPL" && aapl.Close.Equal(decimal.NewFromInt(190)) &&
			aapl.High.Equal(decimal.NewFromInt(190)) && aapl.Source == "mock" &&
			aapl.Date == domain.NewDate(2024, time.June, 3) &&
			msft.Symbol == "MSFT" && msft.Low.Equal(decimal.NewFromInt(398))
	})).Return(nil)

	// Execute
	result, err := service.RefreshQuotes(ctx, userID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated)
	assert.Empty(t, result.FailedSymbols)
	// 15 x 190 + 2 x 410
	assert.True(t, decimal.NewFromInt(3670).Equal(result.PortfolioValue), "got %s", result.PortfolioValue)
	assert.True(t, decimal.NewFromInt(1900).Equal(holdings[0].MarketValue))
	assert.True(t, decimal.NewFromInt(400).Equal(holdings[0].GainLoss))
	holdingRepo.AssertNumberOfCalls(t, "UpdatePrice", 3)
	priceRepo.AssertExpectations(t)
}

func TestRefreshQuotes_SymbolFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, priceRepo, provider := newTestService()
	userID := uuid.New()

	holdings := []*domain.Holding{
		{ID: uuid.New(), Symbol: "GONE", Shares: decimal.NewFromInt(1), IsActive: true},
		{ID: uuid.New(), Symbol: "VTI", Shares: decimal.NewFromInt(3), IsActive: true},
	}
	holdingRepo.On("FindActiveByUser", ctx, userID).Return(holdings, nil)
	holdingRepo.On("UpdatePrice", ctx, mock.Anything).Return(nil)
	provider.On("GetQuote", mock.Anything, "GONE").Return(nil, domain.ErrSymbolNotFound)
	provider.On("GetQuote", mock.Anything, "VTI").Return(&domain.Quote{Price: decimal.NewFromInt(250)}, nil)
	priceRepo.On("UpsertBars", ctx, mock.Anything).Return(errors.New("write failed"))

	result, err := service.RefreshQuotes(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{"GONE"}, result.FailedSymbols)
	assert.True(t, decimal.NewFromInt(750).Equal(result.PortfolioValue))
}

func TestRefreshQuotes_LoadFailure(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, _, provider := newTestService()
	userID := uuid.New()

	holdingRepo.On("FindActiveByUser", ctx, userID).Return(nil, errors.New("db down"))

	result, err := service.RefreshQuotes(ctx, userID)

	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load holdings")
	provider.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestRefreshQuotes_SlowSymbolTimesOut(t *testing.T) {
	ctx := context.Background()
	service, holdingRepo, priceRepo, provider := newTestService()
	service.QuoteTimeout = 20 * time.Millisecond
	userID := uuid.New()

	// Setup: SLOW never answers until its call context expires
	holdings := []*domain.Holding{
		{ID: uuid.New(), Symbol: "SLOW", Shares: decimal.NewFromInt(1), IsActive: true},
		{ID: uuid.New(), Symbol: "VTI", Shares: decimal.NewFromInt(2), IsActive: true},
	}
	holdingRepo.On("FindActiveByUser", ctx, userID).Return(holdings, nil)
	holdingRepo.On("UpdatePrice", ctx, mock.Anything).Return(nil)
	provider.On("GetQuote", mock.Anything, "SLOW").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	provider.On("GetQuote", mock.Anything, "VTI").Return(&domain.Quote{Price: decimal.NewFromInt(250)}, nil)
	priceRepo.On("UpsertBars", ctx, mock.Anything).Return(nil)

	// Execute
	started := time.Now()
	result, err := service.RefreshQuotes(ctx, userID)

	// Assert
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{"SLOW"}, result.FailedSymbols)
	assert.True(t, decimal.NewFromInt(500).Equal(result.PortfolioValue))
}
