package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// DefaultLookbackDays is how much price history is seeded when none is configured
const DefaultLookbackDays = 365

// CoverageEnsurer backfills stored price coverage for a set of symbols
type CoverageEnsurer interface {
	EnsureCoverage(ctx context.Context, symbols []string, dateRange domain.DateRange) (*domain.CoverageReport, error)
}

// PriceSeeder makes sure every actively held symbol has recent price history stored
type PriceSeeder struct {
	holdingRepo  domain.HoldingRepository
	coverage     CoverageEnsurer
	lookbackDays int
	logger       *slog.Logger
	now          func() time.Time
}

// NewPriceSeeder creates a new PriceSeeder instance
func NewPriceSeeder(holdingRepo domain.HoldingRepository, coverage CoverageEnsurer, lookbackDays int, logger *slog.Logger) *PriceSeeder {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceSeeder{
		holdingRepo:  holdingRepo,
		coverage:     coverage,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          time.Now,
	}
}

// Seed ensures price coverage for the last lookbackDays days (today included)
// for every symbol held by an active holding.
// Symbols already covered are left untouched.
func (s *PriceSeeder) Seed(ctx context.Context) (*domain.CoverageReport, error) {
	symbols, err := s.holdingRepo.ListActiveSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list held symbols: %w", err)
	}

	today := domain.DateOf(s.now().UTC())
	dateRange := domain.DateRange{Start: today.AddDays(-(s.lookbackDays - 1)), End: today}

	if len(symbols) == 0 {
		s.logger.Info("No held symbols, skipping price seeding")
		return &domain.CoverageReport{Range: dateRange, ExpectedDays: dateRange.Days(), Symbols: []domain.SymbolCoverage{}}, nil
	}

	report, err := s.coverage.EnsureCoverage(ctx, symbols, dateRange)
	if err != nil {
		return nil, fmt.Errorf("failed to seed price history: %w", err)
	}

	s.logger.Info("Price history seeded",
		"symbols", len(symbols),
		"range", dateRange.String(),
		"coverage_percent", report.OverallPercent)
	return report, nil
}
