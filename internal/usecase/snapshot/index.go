package snapshot

import (
	"slices"
	"sort"

	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// PriceIndex is an in-memory, per-symbol ordered view of daily bars.
// It is built once per calculation from a single bulk read and is read-only afterwards.
type PriceIndex struct {
	series map[string]*priceSeries
}

// priceSeries holds the bars of one symbol sorted by date, one bar per date
type priceSeries struct {
	dates []domain.Date
	bars  []domain.DailyBar
}

// NewPriceIndex groups bars by symbol and sorts each series by date.
// When two bars share the same (symbol, date) the later one in the input wins.
func NewPriceIndex(bars []domain.DailyBar) *PriceIndex {
	grouped := make(map[string]map[domain.Date]domain.DailyBar)
	for _, bar := range bars {
		symbol := domain.NormalizeSymbol(bar.Symbol)
		if grouped[symbol] == nil {
			grouped[symbol] = make(map[domain.Date]domain.DailyBar)
		}
		grouped[symbol][bar.Date] = bar
	}

	index := &PriceIndex{series: make(map[string]*priceSeries, len(grouped))}
	for symbol, byDate := range grouped {
		s := &priceSeries{
			dates: make([]domain.Date, 0, len(byDate)),
			bars:  make([]domain.DailyBar, 0, len(byDate)),
		}
		for d := range byDate {
			s.dates = append(s.dates, d)
		}
		sort.Slice(s.dates, func(i, j int) bool { return s.dates[i].Before(s.dates[j]) })
		for _, d := range s.dates {
			s.bars = append(s.bars, byDate[d])
		}
		index.series[symbol] = s
	}
	return index
}

// Exact returns the bar stored for symbol on date
func (ix *PriceIndex) Exact(symbol string, date domain.Date) (domain.DailyBar, bool) {
	s, ok := ix.series[domain.NormalizeSymbol(symbol)]
	if !ok {
		return domain.DailyBar{}, false
	}
	i, found := slices.BinarySearchFunc(s.dates, date, domain.Date.Compare)
	if !found {
		return domain.DailyBar{}, false
	}
	return s.bars[i], true
}

// LatestOnOrBefore returns the most recent bar for symbol dated on or before date
func (ix *PriceIndex) LatestOnOrBefore(symbol string, date domain.Date) (domain.DailyBar, bool) {
	s, ok := ix.series[domain.NormalizeSymbol(symbol)]
	if !ok {
		return domain.DailyBar{}, false
	}
	i, found := slices.BinarySearchFunc(s.dates, date, domain.Date.Compare)
	if found {
		return s.bars[i], true
	}
	// i is the insertion point; the previous entry is the last one before date
	if i == 0 {
		return domain.DailyBar{}, false
	}
	return s.bars[i-1], true
}

// Len returns the number of bars stored for symbol
func (ix *PriceIndex) Len(symbol string) int {
	s, ok := ix.series[domain.NormalizeSymbol(symbol)]
	if !ok {
		return 0
	}
	return len(s.dates)
}
