package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding is a user's position in one security.
// MarketValue == Shares*CurrentPrice and GainLoss == MarketValue-TotalCost are expected
// but not enforced; the consistency validator reports drift.
type Holding struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Symbol          string
	Shares          decimal.Decimal
	CurrentPrice    decimal.Decimal
	AverageCost     decimal.Decimal
	TotalCost       decimal.Decimal
	MarketValue     decimal.Decimal
	GainLoss        decimal.Decimal
	GainLossPercent decimal.Decimal
	PurchaseDate    Date
	IsActive        bool
}

// Validate reports whether the holding is well-formed enough to be valued
func (h *Holding) Validate() error {
	if strings.TrimSpace(h.Symbol) == "" {
		return errors.New("holding symbol cannot be empty")
	}
	if h.Shares.LessThanOrEqual(decimal.Zero) {
		return errors.New("holding shares must be positive")
	}
	if h.PurchaseDate.IsZero() {
		return errors.New("holding purchase date must be set")
	}
	return nil
}

// LiveValue is the value at the stored current price, independent of any price history
func (h *Holding) LiveValue() decimal.Decimal {
	return h.Shares.Mul(h.CurrentPrice)
}

// Recalculate refreshes the derived fields from Shares, CurrentPrice and TotalCost
func (h *Holding) Recalculate() {
	h.MarketValue = h.LiveValue()
	h.GainLoss = h.MarketValue.Sub(h.TotalCost)
	if h.TotalCost.IsPositive() {
		h.GainLossPercent = h.GainLoss.Div(h.TotalCost).Mul(decimal.NewFromInt(100)).Round(4)
	} else {
		h.GainLossPercent = decimal.Zero
	}
}
