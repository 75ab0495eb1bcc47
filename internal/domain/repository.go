package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrSymbolNotFound is returned by providers for unknown symbols
var ErrSymbolNotFound = errors.New("symbol not found")

// PriceRepository defines the interface for daily bar persistence operations
type PriceRepository interface {
	// FindBars retrieves all bars for the given symbols within the range (bounds included)
	// in a single query
	FindBars(ctx context.Context, symbols []string, dateRange DateRange) ([]DailyBar, error)

	// UpsertBars inserts bars, replacing any existing bar with the same (symbol, date)
	UpsertBars(ctx context.Context, bars []DailyBar) error
}

// HoldingRepository defines the interface for investment position persistence operations
type HoldingRepository interface {
	// FindActiveByUser retrieves the active holdings of a user
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Holding, error)

	// GetByID retrieves a holding by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Holding, error)

	// UpdatePrice stores a new current price together with the derived fields
	UpdatePrice(ctx context.Context, holding *Holding) error

	// ListActiveSymbols returns the distinct symbols held by any active holding
	ListActiveSymbols(ctx context.Context) ([]string, error)
}

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// ListByUser retrieves a user's accounts, optionally only the active ones
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Account, error)
}

// DebtRepository defines the interface for debt persistence operations
type DebtRepository interface {
	// ListByUser retrieves a user's debts, optionally only the active ones
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Debt, error)
}

// PhysicalAssetRepository defines the interface for physical asset persistence operations
type PhysicalAssetRepository interface {
	// ListByUser retrieves a user's physical assets, optionally only the active ones
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*PhysicalAsset, error)
}

// BudgetRepository defines the interface for budget persistence operations
type BudgetRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Budget, error)
}

// GoalRepository defines the interface for goal persistence operations
type GoalRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Goal, error)
}

// MilestoneRepository defines the interface for net worth milestone persistence operations
type MilestoneRepository interface {
	// Add creates a new milestone entry
	Add(ctx context.Context, milestone *NetWorthMilestone) error

	// ListByUser retrieves a user's milestones ordered from oldest to newest
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*NetWorthMilestone, error)
}

// MarketDataProvider supplies historical and current prices.
// Implementations return ErrSymbolNotFound (possibly wrapped) for unknown symbols.
type MarketDataProvider interface {
	// Name identifies the provider; it is stored as the bar source
	Name() string

	// GetHistoricalBars returns daily bars covering the last lookbackDays days
	GetHistoricalBars(ctx context.Context, symbol string, lookbackDays int) ([]DailyBar, error)

	// GetQuote returns the latest quote for a symbol
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

