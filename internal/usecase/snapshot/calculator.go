package snapshot

import (
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// Heuristic constants for stale-price fallback and quality labels.
// Changing them changes every reconstructed series, so they are kept fixed.
const (
	// StalenessWindowDays is how old a prior bar may be and still price a holding
	StalenessWindowDays = 7

	// ExactConfidence is the confidence of a price taken from a bar on the target date
	ExactConfidence = 1.0

	// MinStaleConfidence is the floor for stale-price confidence
	MinStaleConfidence = 0.5

	// Label thresholds on mean confidence
	ExcellentThreshold = 0.9
	GoodThreshold      = 0.7
	FairThreshold      = 0.5
)

// ConfidenceDecayPerDay is subtracted from the confidence for every day a price is stale
var ConfidenceDecayPerDay = decimal.RequireFromString("0.1")

// PriceSource tells how a price was resolved
type PriceSource string

const (
	SourceExact   PriceSource = "exact"
	SourceStale   PriceSource = "stale"
	SourceMissing PriceSource = "missing"
)

// PriceResolution is the best available price for a symbol on a date
type PriceResolution struct {
	Price      decimal.Decimal
	Confidence float64
	DaysStale  int
	Source     PriceSource
}

// Found reports whether a usable price was resolved
func (r PriceResolution) Found() bool { return r.Source != SourceMissing }

// ResolvePrice picks the best price for symbol on date:
//  1. a bar on the exact date: close, confidence 1.0
//  2. the latest prior bar at most StalenessWindowDays old: close,
//     confidence max(0.5, 1.0 - 0.1*daysStale)
//  3. otherwise missing, confidence 0
func ResolvePrice(index *PriceIndex, symbol string, date domain.Date) PriceResolution {
	if bar, ok := index.Exact(symbol, date); ok {
		return PriceResolution{Price: bar.Close, Confidence: ExactConfidence, Source: SourceExact}
	}

	bar, ok := index.LatestOnOrBefore(symbol, date)
	if !ok {
		return PriceResolution{Source: SourceMissing}
	}
	daysStale := date.DaysSince(bar.Date)
	if daysStale > StalenessWindowDays {
		return PriceResolution{Source: SourceMissing, DaysStale: daysStale}
	}
	return PriceResolution{
		Price:      bar.Close,
		Confidence: StaleConfidence(daysStale),
		DaysStale:  daysStale,
		Source:     SourceStale,
	}
}

// StaleConfidence returns max(MinStaleConfidence, 1.0 - ConfidenceDecayPerDay*daysStale).
// Computed in decimal so 0.9, 0.8, ... come out exact.
func StaleConfidence(daysStale int) float64 {
	c := decimal.NewFromInt(1).Sub(ConfidenceDecayPerDay.Mul(decimal.NewFromInt(int64(daysStale))))
	return max(MinStaleConfidence, c.InexactFloat64())
}

// LabelForConfidence maps a mean confidence to a quality label
func LabelForConfidence(confidence float64) domain.QualityLabel {
	switch {
	case confidence >= ExcellentThreshold:
		return domain.QualityExcellent
	case confidence >= GoodThreshold:
		return domain.QualityGood
	case confidence >= FairThreshold:
		return domain.QualityFair
	default:
		return domain.QualityPoor
	}
}

// SnapshotForDate values the holdings owned on date.
//
// Only holdings purchased on or before date take part. A holding without a usable price
// contributes 0, is left out of HoldingsIncluded and still counts toward HoldingsTotal,
// which lowers the mean confidence. The second return value is false when the day
// has no holdings or none of them could be priced; callers skip such days.
func SnapshotForDate(holdings []*domain.Holding, date domain.Date, index *PriceIndex) (domain.PortfolioSnapshot, bool) {
	snap := domain.PortfolioSnapshot{Date: date, Value: decimal.Zero}

	confidenceSum := decimal.Zero
	for _, h := range holdings {
		if h.PurchaseDate.After(date) {
			continue
		}
		snap.HoldingsTotal++

		res := ResolvePrice(index, h.Symbol, date)
		if !res.Found() {
			continue
		}
		snap.Value = snap.Value.Add(h.Shares.Mul(res.Price))
		snap.HoldingsIncluded++
		confidenceSum = confidenceSum.Add(decimal.NewFromFloat(res.Confidence))
	}

	if snap.HoldingsTotal == 0 || snap.HoldingsIncluded == 0 {
		return domain.PortfolioSnapshot{}, false
	}

	// summed in decimal so a mean sitting on a label threshold is not pushed below it
	snap.Confidence = confidenceSum.Div(decimal.NewFromInt(int64(snap.HoldingsTotal))).InexactFloat64()
	snap.Quality = LabelForConfidence(snap.Confidence)
	return snap, true
}
