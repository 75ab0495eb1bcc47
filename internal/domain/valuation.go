package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QualityLabel grades how reliable a reconstructed value is
type QualityLabel string

const (
	QualityExcellent QualityLabel = "excellent"
	QualityGood      QualityLabel = "good"
	QualityFair      QualityLabel = "fair"
	QualityPoor      QualityLabel = "poor"
)

// PortfolioSnapshot is one day's reconstructed portfolio value.
// Derived on every calculation, never persisted.
type PortfolioSnapshot struct {
	Date             Date
	Value            decimal.Decimal
	HoldingsIncluded int     // holdings that could be priced on Date
	HoldingsTotal    int     // holdings owned on Date
	Confidence       float64 // mean per-holding confidence, 0..1
	Quality          QualityLabel
}

// SymbolCoverage describes how complete the stored bars for a symbol are
type SymbolCoverage struct {
	Symbol          string
	CoveragePercent float64
	BarCount        int
	FirstDate       Date
	LastDate        Date
	Backfilled      bool
}

// CoverageReport aggregates per-symbol coverage over a date range
type CoverageReport struct {
	Range          DateRange
	Symbols        []SymbolCoverage
	ExpectedDays   int
	TotalBars      int
	OverallPercent float64
}

// NetWorthBreakdown splits net worth into its categories
type NetWorthBreakdown struct {
	LiquidAssets     decimal.Decimal
	PortfolioValue   decimal.Decimal
	PhysicalAssets   decimal.Decimal // equity, net of embedded loans
	TotalLiabilities decimal.Decimal
	EmbeddedLoans    decimal.Decimal // informational, already netted in PhysicalAssets
}

// NetWorthResult is a freshly calculated net worth figure
type NetWorthResult struct {
	UserID       uuid.UUID
	NetWorth     decimal.Decimal
	Breakdown    NetWorthBreakdown
	CalculatedAt time.Time
}

// Severity ranks validation findings
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityWarning  Severity = "warning"
)

// ValidationIssue is a single consistency finding. Never persisted.
type ValidationIssue struct {
	Severity     Severity
	Category     string
	Message      string
	RecordID     *uuid.UUID
	SuggestedFix string
}

// ValidationReport is the result of a consistency run
type ValidationReport struct {
	UserID   uuid.UUID
	IsValid  bool
	Score    int
	Issues   []ValidationIssue
	Warnings []ValidationIssue
}
