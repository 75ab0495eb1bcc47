package investment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// RefreshResult summarizes a quote refresh run
type RefreshResult struct {
	Updated        int             // holdings whose price was refreshed
	FailedSymbols  []string        // symbols whose quote could not be fetched or stored
	PortfolioValue decimal.Decimal // sum of market values after the refresh
}

// InvestmentService handles investment-related operations
type InvestmentService struct {
	HoldingRepo domain.HoldingRepository
	PriceRepo   domain.PriceRepository
	Provider    domain.MarketDataProvider
	Logger      *slog.Logger

	// QuoteTimeout bounds each provider call so one slow symbol cannot hold up the rest
	QuoteTimeout time.Duration

	now func() time.Time
}

// DefaultQuoteTimeout is the per-symbol quote timeout used by NewInvestmentService
const DefaultQuoteTimeout = 10 * time.Second

// NewInvestmentService creates a new InvestmentService instance
func NewInvestmentService(
	holdingRepo domain.HoldingRepository,
	priceRepo domain.PriceRepository,
	provider domain.MarketDataProvider,
	logger *slog.Logger,
) *InvestmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvestmentService{
		HoldingRepo: holdingRepo,
		PriceRepo:   priceRepo,
		Provider:    provider,
		Logger:       logger,
		QuoteTimeout: DefaultQuoteTimeout,
		now:          time.Now,
	}
}

// UpdatePrice sets a holding's current price by hand and refreshes the derived fields.
// Returns the updated holding.
func (s *InvestmentService) UpdatePrice(ctx context.Context, holdingID uuid.UUID, price decimal.Decimal) (*domain.Holding, error) {
	// Validate price is positive
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("price must be positive")
	}

	holding, err := s.HoldingRepo.GetByID(ctx, holdingID)
	if err != nil {
		return nil, err
	}

	holding.CurrentPrice = price
	holding.Recalculate()

	if err := s.HoldingRepo.UpdatePrice(ctx, holding); err != nil {
		return nil, err
	}

	return holding, nil
}

// RefreshQuotes fetches a live quote for every symbol the user holds, updates the holdings
// and records today's bar in the price store.
// A symbol whose quote fails is logged and reported in FailedSymbols; the others still update.
func (s *InvestmentService) RefreshQuotes(ctx context.Context, userID uuid.UUID) (*RefreshResult, error) {
	holdings, err := s.HoldingRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	bySymbol := make(map[string][]*domain.Holding)
	for _, h := range holdings {
		symbol := domain.NormalizeSymbol(h.Symbol)
		if symbol == "" {
			continue
		}
		bySymbol[symbol] = append(bySymbol[symbol], h)
	}
	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	result := &RefreshResult{PortfolioValue: decimal.Zero, FailedSymbols: []string{}}
	today := domain.DateOf(s.now().UTC())
	bars := make([]domain.DailyBar, 0, len(symbols))

	for _, symbol := range symbols {
		quote, err := s.fetchQuote(ctx, symbol)
		if err == nil && !quote.Price.IsPositive() {
			err = errors.New("quote price must be positive")
		}
		if err != nil {
			s.Logger.Warn("Quote refresh failed", "user_id", userID, "symbol", symbol, "error", err)
			result.FailedSymbols = append(result.FailedSymbols, symbol)
			continue
		}

		failed := false
		for _, h := range bySymbol[symbol] {
			h.CurrentPrice = quote.Price
			h.Recalculate()
			if err := s.HoldingRepo.UpdatePrice(ctx, h); err != nil {
				s.Logger.Warn("Failed to store refreshed price", "holding_id", h.ID, "symbol", symbol, "error", err)
				failed = true
				continue
			}
			result.Updated++
		}
		if failed {
			result.FailedSymbols = append(result.FailedSymbols, symbol)
		}

		bars = append(bars, quoteBar(symbol, today, quote, s.Provider.Name()))
	}

	for _, h := range holdings {
		result.PortfolioValue = result.PortfolioValue.Add(h.MarketValue)
	}

	if len(bars) > 0 {
		if err := s.PriceRepo.UpsertBars(ctx, bars); err != nil {
			// Holdings are already updated; the bars will be backfilled later
			s.Logger.Warn("Failed to store quote bars", "user_id", userID, "error", err)
		}
	}

	return result, nil
}

// fetchQuote calls the provider for one symbol under QuoteTimeout
func (s *InvestmentService) fetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	timeout := s.QuoteTimeout
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.Provider.GetQuote(callCtx, symbol)
}

// CalculateGainLoss calculates the unrealized gain or loss of a holding
// Logic: GainLoss = Shares * CurrentPrice - TotalCost
// A holding that was never priced returns 0.
func (s *InvestmentService) CalculateGainLoss(ctx context.Context, holdingID uuid.UUID) (decimal.Decimal, error) {
	holding, err := s.HoldingRepo.GetByID(ctx, holdingID)
	if err != nil {
		return decimal.Zero, err
	}

	if !holding.CurrentPrice.IsPositive() {
		return decimal.Zero, nil
	}

	return holding.LiveValue().Sub(holding.TotalCost), nil
}

// quoteBar turns a quote into today's bar; missing OHLC parts fall back to the price
func quoteBar(symbol string, date domain.Date, q *domain.Quote, source string) domain.DailyBar {
	orPrice := func(v decimal.Decimal) decimal.Decimal {
		if v.IsPositive() {
			return v
		}
		return q.Price
	}
	bar := domain.DailyBar{
		Symbol: symbol,
		Date:   date,
		Open:   orPrice(q.Open),
		High:   orPrice(q.High),
		Low:    orPrice(q.Low),
		Close:  q.Price,
		Volume: q.Volume,
		Source: source,
	}
	if bar.High.LessThan(bar.Close) {
		bar.High = bar.Close
	}
	if bar.Low.GreaterThan(bar.Close) {
		bar.Low = bar.Close
	}
	return bar
}
