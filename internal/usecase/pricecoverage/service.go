package pricecoverage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/simaogato/wealthwise-backend/internal/domain"
	"golang.org/x/time/rate"
)

// Config tunes when and how fast missing bars are backfilled
type Config struct {
	Threshold       float64       // coverage percent below which a symbol is backfilled
	BatchSize       int           // symbols requested from the provider per batch
	BatchDelay      time.Duration // minimum spacing between batches
	ProviderTimeout time.Duration // per-symbol provider call timeout
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Threshold:       80,
		BatchSize:       5,
		BatchDelay:      250 * time.Millisecond,
		ProviderTimeout: 10 * time.Second,
	}
}

// CoverageService measures stored bar coverage and backfills gaps from the market data provider
type CoverageService struct {
	PriceRepo domain.PriceRepository
	Provider  domain.MarketDataProvider
	Logger    *slog.Logger

	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

// NewCoverageService creates a new CoverageService instance
func NewCoverageService(priceRepo domain.PriceRepository, provider domain.MarketDataProvider, cfg Config, logger *slog.Logger) *CoverageService {
	defaults := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaults.ProviderTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.BatchDelay > 0 {
		limit = rate.Every(cfg.BatchDelay)
	}

	return &CoverageService{
		PriceRepo: priceRepo,
		Provider:  provider,
		Logger:    logger,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		now:       time.Now,
	}
}

// Measure computes per-symbol and overall coverage for the range from one bulk read
func (s *CoverageService) Measure(ctx context.Context, symbols []string, dateRange domain.DateRange) (*domain.CoverageReport, error) {
	symbols = uniqueSymbols(symbols)
	if len(symbols) == 0 {
		return &domain.CoverageReport{Range: dateRange, ExpectedDays: dateRange.Days(), Symbols: []domain.SymbolCoverage{}}, nil
	}

	bars, err := s.PriceRepo.FindBars(ctx, symbols, dateRange)
	if err != nil {
		return nil, fmt.Errorf("failed to measure price coverage: %w", err)
	}
	return buildReport(symbols, dateRange, bars), nil
}

// EnsureCoverage backfills every symbol whose coverage over the range is below the threshold.
//
// Symbols are fetched in throttled batches; a provider or store failure for one symbol is
// logged and does not stop the others. The returned report is measured after backfilling.
func (s *CoverageService) EnsureCoverage(ctx context.Context, symbols []string, dateRange domain.DateRange) (*domain.CoverageReport, error) {
	if err := dateRange.Validate(); err != nil {
		return nil, fmt.Errorf("failed to ensure price coverage: %w", err)
	}

	report, err := s.Measure(ctx, symbols, dateRange)
	if err != nil {
		return nil, err
	}

	lacking := make([]string, 0)
	for _, sc := range report.Symbols {
		if sc.CoveragePercent < s.cfg.Threshold {
			lacking = append(lacking, sc.Symbol)
		}
	}
	if len(lacking) == 0 {
		return report, nil
	}

	s.Logger.Info("Backfilling price history",
		"symbols", len(lacking), "range", dateRange.String(), "threshold", s.cfg.Threshold)

	backfilled := s.backfill(ctx, lacking, dateRange)
	if len(backfilled) == 0 {
		return report, nil
	}

	after, err := s.Measure(ctx, symbols, dateRange)
	if err != nil {
		// Bars were written; the pre-backfill report is still a valid lower bound
		s.Logger.Warn("Could not re-measure coverage after backfill", "error", err)
		return report, nil
	}
	for i := range after.Symbols {
		after.Symbols[i].Backfilled = backfilled[after.Symbols[i].Symbol]
	}
	return after, nil
}

// backfill fetches and stores bars for symbols in rate-limited batches.
// It returns the set of symbols for which bars were written.
func (s *CoverageService) backfill(ctx context.Context, symbols []string, dateRange domain.DateRange) map[string]bool {
	written := make(map[string]bool)
	var mu sync.Mutex

	for start := 0; start < len(symbols); start += s.cfg.BatchSize {
		if err := s.limiter.Wait(ctx); err != nil {
			s.Logger.Warn("Backfill interrupted", "error", err)
			break
		}

		end := min(start+s.cfg.BatchSize, len(symbols))
		var wg sync.WaitGroup
		for _, symbol := range symbols[start:end] {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()
				n, err := s.backfillSymbol(ctx, symbol, dateRange)
				if err != nil {
					s.Logger.Warn("Backfill failed for symbol", "symbol", symbol, "error", err)
					return
				}
				if n > 0 {
					mu.Lock()
					written[symbol] = true
					mu.Unlock()
				}
			}(symbol)
		}
		wg.Wait()
	}
	return written
}

// backfillSymbol fetches the provider history for one symbol and upserts the bars inside the range
func (s *CoverageService) backfillSymbol(ctx context.Context, symbol string, dateRange domain.DateRange) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	lookback := domain.DateOf(s.now().UTC()).DaysSince(dateRange.Start) + 1
	if lookback < dateRange.Days() {
		lookback = dateRange.Days()
	}

	fetched, err := s.Provider.GetHistoricalBars(callCtx, symbol, lookback)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch historical bars: %w", err)
	}

	bars := make([]domain.DailyBar, 0, len(fetched))
	for _, b := range fetched {
		if !dateRange.Contains(b.Date) {
			continue
		}
		b.Symbol = symbol
		if b.Source == "" {
			b.Source = s.Provider.Name()
		}
		if err := b.Validate(); err != nil {
			s.Logger.Debug("Dropping invalid bar", "symbol", symbol, "date", b.Date.String(), "error", err)
			continue
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return 0, nil
	}

	if err := s.PriceRepo.UpsertBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("failed to store backfilled bars: %w", err)
	}
	s.Logger.Debug("Backfilled bars", "symbol", symbol, "bars", len(bars))
	return len(bars), nil
}

// buildReport computes coverage figures from the bars found in the store
func buildReport(symbols []string, dateRange domain.DateRange, bars []domain.DailyBar) *domain.CoverageReport {
	expected := dateRange.Days()
	perSymbol := make(map[string]*domain.SymbolCoverage, len(symbols))
	seen := make(map[string]map[domain.Date]bool, len(symbols))
	for _, symbol := range symbols {
		perSymbol[symbol] = &domain.SymbolCoverage{Symbol: symbol}
		seen[symbol] = make(map[domain.Date]bool)
	}

	for _, b := range bars {
		symbol := domain.NormalizeSymbol(b.Symbol)
		sc, ok := perSymbol[symbol]
		if !ok || !dateRange.Contains(b.Date) || seen[symbol][b.Date] {
			continue
		}
		seen[symbol][b.Date] = true
		sc.BarCount++
		if sc.FirstDate.IsZero() || b.Date.Before(sc.FirstDate) {
			sc.FirstDate = b.Date
		}
		if sc.LastDate.IsZero() || b.Date.After(sc.LastDate) {
			sc.LastDate = b.Date
		}
	}

	report := &domain.CoverageReport{
		Range:        dateRange,
		ExpectedDays: expected,
		Symbols:      make([]domain.SymbolCoverage, 0, len(symbols)),
	}
	for _, symbol := range symbols {
		sc := perSymbol[symbol]
		sc.CoveragePercent = percent(sc.BarCount, expected)
		report.TotalBars += sc.BarCount
		report.Symbols = append(report.Symbols, *sc)
	}
	report.OverallPercent = percent(report.TotalBars, expected*len(symbols))
	return report
}

func percent(found, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	return float64(found) / float64(expected) * 100
}

// uniqueSymbols normalizes, de-duplicates and sorts symbols
func uniqueSymbols(symbols []string) []string {
	set := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = domain.NormalizeSymbol(s)
		if s == "" || set[s] {
			continue
		}
		set[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
