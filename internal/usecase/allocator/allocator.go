package allocator

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// PercentPlaces is the precision of allocation percentages
const PercentPlaces = 2

var (
	// ErrNoHoldings is returned for an empty holdings list
	ErrNoHoldings = errors.New("holdings list cannot be empty")

	// ErrNoPortfolioValue is returned when the active holdings are worth nothing, e.g. never priced
	ErrNoPortfolioValue = errors.New("total portfolio value must be positive")
)

// Slice is one symbol's share of the portfolio
type Slice struct {
	Symbol   string
	Value    decimal.Decimal
	Percent  decimal.Decimal
	Holdings int // number of lots merged into this slice
}

// CalculateAllocation splits the portfolio market value by symbol
// Returns slices ordered by value, largest first
// Logic:
//  1. Merge active holdings by symbol and sum their market values
//  2. Sort by value (Higher = First), ties by symbol
//  3. Round every percentage except the largest to PercentPlaces
//  4. Assign 100 minus the others to the largest slice
//
// Safety: Ensures percentages sum to exactly 100 (no rounding drift)
func CalculateAllocation(holdings []*domain.Holding) ([]Slice, error) {
	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}

	// Step 1: Merge lots by symbol
	bySymbol := make(map[string]*Slice)
	total := decimal.Zero
	for _, h := range holdings {
		if !h.IsActive {
			continue
		}
		if h.MarketValue.IsNegative() {
			return nil, errors.New("holding market value must not be negative")
		}
		symbol := domain.NormalizeSymbol(h.Symbol)
		s, ok := bySymbol[symbol]
		if !ok {
			s = &Slice{Symbol: symbol, Value: decimal.Zero}
			bySymbol[symbol] = s
		}
		s.Value = s.Value.Add(h.MarketValue)
		s.Holdings++
		total = total.Add(h.MarketValue)
	}

	if total.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNoPortfolioValue
	}

	// Step 2: Sort by value
	slices := make([]Slice, 0, len(bySymbol))
	for _, s := range bySymbol {
		slices = append(slices, *s)
	}
	sort.Slice(slices, func(i, j int) bool {
		if !slices[i].Value.Equal(slices[j].Value) {
			return slices[i].Value.GreaterThan(slices[j].Value)
		}
		return slices[i].Symbol < slices[j].Symbol
	})

	// Step 3: Percentages of everything but the largest slice
	hundred := decimal.NewFromInt(100)
	assigned := decimal.Zero
	for i := 1; i < len(slices); i++ {
		slices[i].Percent = slices[i].Value.Div(total).Mul(hundred).Round(PercentPlaces)
		assigned = assigned.Add(slices[i].Percent)
	}

	// Step 4: The largest slice absorbs the rounding remainder
	slices[0].Percent = hundred.Sub(assigned)

	// Safety check: Ensure percentages sum to exactly 100
	sum := decimal.Zero
	for _, s := range slices {
		sum = sum.Add(s.Percent)
	}
	if !sum.Equal(hundred) {
		return nil, errors.New("allocation percentages do not sum to 100")
	}

	return slices, nil
}
