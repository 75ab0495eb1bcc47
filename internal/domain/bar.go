package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DailyBar is one day's OHLC price record for a symbol.
// Uniquely keyed by (Symbol, Date); rewritten only by upsert-style backfill.
type DailyBar struct {
	Symbol string
	Date   Date
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
	Source string // provider that produced the bar, e.g. "yahoo"
}

// Validate ensures the bar can be stored in the price store
func (b *DailyBar) Validate() error {
	if strings.TrimSpace(b.Symbol) == "" {
		return errors.New("bar symbol cannot be empty")
	}
	if b.Date.IsZero() {
		return errors.New("bar date must be set")
	}
	if b.Close.LessThanOrEqual(decimal.Zero) {
		return errors.New("bar close price must be positive")
	}
	if !b.High.IsZero() && !b.Low.IsZero() && b.High.LessThan(b.Low) {
		return errors.New("bar high must not be below low")
	}
	if b.Volume < 0 {
		return errors.New("bar volume must not be negative")
	}
	return nil
}

// NormalizeSymbol upper-cases and trims a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Quote is a live price for a symbol as returned by a market data provider
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Volume int64
}
