package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthwise-backend/internal/domain"
	"github.com/simaogato/wealthwise-backend/internal/usecase/snapshot"
)

// DeviationWarningThreshold is the relative gap between the last reconstructed value and the
// live value above which a data-quality warning is raised
const DeviationWarningThreshold = 0.05

// ErrInvalidRange is returned when the requested end date is before the start date
var ErrInvalidRange = errors.New("invalid date range: end is before start")

// CoverageEnsurer measures and backfills stored price coverage
type CoverageEnsurer interface {
	Measure(ctx context.Context, symbols []string, dateRange domain.DateRange) (*domain.CoverageReport, error)
	EnsureCoverage(ctx context.Context, symbols []string, dateRange domain.DateRange) (*domain.CoverageReport, error)
}

// QualityAssessment summarizes the reliability of a snapshot series
type QualityAssessment struct {
	AverageConfidence float64
	Label             domain.QualityLabel
	LabelCounts       map[domain.QualityLabel]int
	CoveragePercent   float64
}

// Result is a reconstructed valuation series for one user
type Result struct {
	UserID       uuid.UUID
	Range        domain.DateRange
	Snapshots    []domain.PortfolioSnapshot
	Coverage     *domain.CoverageReport
	CurrentValue decimal.Decimal
	Deviation    float64 // relative gap between the last snapshot and CurrentValue
	Quality      QualityAssessment
	Warnings     []string
}

// Service reconstructs daily portfolio valuations from stored price history
type Service struct {
	HoldingRepo domain.HoldingRepository
	PriceRepo   domain.PriceRepository
	Coverage    CoverageEnsurer
	Stats       *StatsCache
	Logger      *slog.Logger

	now func() time.Time
}

// NewService creates a new history Service instance
func NewService(
	holdingRepo domain.HoldingRepository,
	priceRepo domain.PriceRepository,
	coverage CoverageEnsurer,
	stats *StatsCache,
	logger *slog.Logger,
) *Service {
	if stats == nil {
		stats = NewStatsCache(StatsCacheConfig{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		HoldingRepo: holdingRepo,
		PriceRepo:   priceRepo,
		Coverage:    coverage,
		Stats:       stats,
		Logger:      logger,
		now:         time.Now,
	}
}

// CalculateUserHistory loads the user's active holdings and reconstructs their history
func (s *Service) CalculateUserHistory(ctx context.Context, userID uuid.UUID, start, end *domain.Date) (*Result, error) {
	holdings, err := s.HoldingRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	return s.CalculateHistory(ctx, userID, holdings, start, end)
}

// CalculateHistory produces one snapshot per calendar day for the given holdings.
//
// start and end are optional. The range defaults to [earliest purchase, today] and a start
// before the earliest purchase is moved forward to it. Malformed holdings are skipped with a
// warning. A gap between the last snapshot and the live value is reported, never returned as
// an error.
func (s *Service) CalculateHistory(ctx context.Context, userID uuid.UUID, holdings []*domain.Holding, start, end *domain.Date) (*Result, error) {
	began := s.now()
	today := domain.DateOf(began.UTC())

	if start != nil && end != nil && end.Before(*start) {
		return nil, ErrInvalidRange
	}

	result := &Result{UserID: userID, CurrentValue: decimal.Zero, Snapshots: []domain.PortfolioSnapshot{}}

	eligible := s.filterHoldings(userID, holdings, result)
	if len(eligible) == 0 {
		result.Coverage = &domain.CoverageReport{Symbols: []domain.SymbolCoverage{}}
		result.Quality = assessQuality(nil, result.Coverage)
		return result, nil
	}

	earliest := eligible[0].PurchaseDate
	for _, h := range eligible[1:] {
		if h.PurchaseDate.Before(earliest) {
			earliest = h.PurchaseDate
		}
	}

	dateRange := domain.DateRange{Start: earliest, End: today}
	if start != nil && start.After(earliest) {
		dateRange.Start = *start
	}
	if end != nil {
		dateRange.End = *end
	}
	if dateRange.End.Before(dateRange.Start) {
		// The range ends before the first purchase: nothing was owned yet
		result.Range = dateRange
		result.Coverage = &domain.CoverageReport{Range: dateRange, Symbols: []domain.SymbolCoverage{}}
		result.Quality = assessQuality(nil, result.Coverage)
		return result, nil
	}
	result.Range = dateRange

	symbols := symbolSet(eligible)

	coverage, err := s.Coverage.EnsureCoverage(ctx, symbols, dateRange)
	if err != nil {
		s.Logger.Warn("Coverage could not be ensured, using stored prices only",
			"user_id", userID, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("price coverage could not be ensured: %v", err))
		coverage, err = s.Coverage.Measure(ctx, symbols, dateRange)
		if err != nil {
			return nil, fmt.Errorf("failed to measure price coverage: %w", err)
		}
	}
	result.Coverage = coverage

	bars, err := s.PriceRepo.FindBars(ctx, symbols, dateRange)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	index := snapshot.NewPriceIndex(bars)

	for day := range dateRange.Dates() {
		snap, ok := snapshot.SnapshotForDate(eligible, day, index)
		if !ok {
			continue
		}
		result.Snapshots = append(result.Snapshots, snap)
	}

	for _, h := range eligible {
		result.CurrentValue = result.CurrentValue.Add(h.LiveValue())
	}

	if n := len(result.Snapshots); n > 0 {
		last := result.Snapshots[n-1]
		result.Deviation = RelativeDeviation(last.Value, result.CurrentValue)
		if result.Deviation > DeviationWarningThreshold {
			s.Logger.Warn("Reconstructed value deviates from live value",
				"user_id", userID,
				"date", last.Date.String(),
				"reconstructed", last.Value.String(),
				"live", result.CurrentValue.String(),
				"deviation", result.Deviation)
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"last reconstructed value %s on %s deviates %.2f%% from live value %s",
				last.Value.StringFixed(2), last.Date, result.Deviation*100, result.CurrentValue.StringFixed(2)))
		}
	}

	result.Quality = assessQuality(result.Snapshots, result.Coverage)

	s.Stats.Record(Stats{
		UserID:          userID,
		Duration:        s.now().Sub(began),
		SnapshotCount:   len(result.Snapshots),
		SymbolCount:     len(symbols),
		CoveragePercent: result.Coverage.OverallPercent,
		CalculatedAt:    began,
	})

	return result, nil
}

// filterHoldings keeps active, well-formed holdings and records a warning for the rest
func (s *Service) filterHoldings(userID uuid.UUID, holdings []*domain.Holding, result *Result) []*domain.Holding {
	eligible := make([]*domain.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h == nil || !h.IsActive {
			continue
		}
		if err := h.Validate(); err != nil {
			s.Logger.Warn("Skipping malformed holding",
				"user_id", userID, "holding_id", h.ID, "symbol", h.Symbol, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("holding %s skipped: %v", h.ID, err))
			continue
		}
		eligible = append(eligible, h)
	}
	return eligible
}

// RelativeDeviation returns |a-b|/b. A zero b yields 0 when a is also zero and +Inf otherwise.
func RelativeDeviation(a, b decimal.Decimal) float64 {
	diff := a.Sub(b).Abs()
	if b.IsZero() {
		if diff.IsZero() {
			return 0
		}
		return math.Inf(1)
	}
	return diff.Div(b.Abs()).InexactFloat64()
}

func assessQuality(snapshots []domain.PortfolioSnapshot, coverage *domain.CoverageReport) QualityAssessment {
	qa := QualityAssessment{
		Label:       domain.QualityPoor,
		LabelCounts: make(map[domain.QualityLabel]int),
	}
	if coverage != nil {
		qa.CoveragePercent = coverage.OverallPercent
	}
	if len(snapshots) == 0 {
		return qa
	}

	var sum float64
	for _, snap := range snapshots {
		sum += snap.Confidence
		qa.LabelCounts[snap.Quality]++
	}
	// rounded so that float noise in the sum cannot push a mean across a label threshold
	qa.AverageConfidence = math.Round(sum/float64(len(snapshots))*1e6) / 1e6
	qa.Label = snapshot.LabelForConfidence(qa.AverageConfidence)
	return qa
}

func symbolSet(holdings []*domain.Holding) []string {
	seen := make(map[string]bool, len(holdings))
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbol := domain.NormalizeSymbol(h.Symbol)
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}
	return symbols
}
