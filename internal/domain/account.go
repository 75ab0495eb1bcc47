package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the kind of bank account
type AccountType string

const (
	AccountTypeChecking   AccountType = "CHECKING"
	AccountTypeSavings    AccountType = "SAVINGS"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeInvestment AccountType = "INVESTMENT"
)

// Account represents a bank or cash account
type Account struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Type     AccountType
	Balance  decimal.Decimal
	IsActive bool
}

// IsLiquid reports whether the balance counts as liquid cash.
// Credit balances are liabilities tracked as Debt records, and investment
// accounts are valued through their holdings.
func (a *Account) IsLiquid() bool {
	switch a.Type {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCash:
		return true
	default:
		return false
	}
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.Name == "" {
		return errors.New("account name cannot be empty")
	}
	switch a.Type {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCash, AccountTypeCredit, AccountTypeInvestment:
	default:
		return errors.New("account type must be CHECKING, SAVINGS, CASH, CREDIT, or INVESTMENT")
	}
	return nil
}

// Budget is a spending limit for one category over a period
type Budget struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Category string
	Limit    decimal.Decimal
	Spent    decimal.Decimal
	Period   string // "monthly", "weekly", ...
	IsActive bool
}

// Utilization returns Spent as a percentage of Limit, zero when no limit is set
func (b *Budget) Utilization() decimal.Decimal {
	if !b.Limit.IsPositive() {
		return decimal.Zero
	}
	return b.Spent.Div(b.Limit).Mul(decimal.NewFromInt(100)).Round(2)
}

// Goal is a savings target
type Goal struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	TargetDate    Date
	IsCompleted   bool
}

// Progress returns CurrentAmount as a percentage of TargetAmount
func (g *Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
}

// NetWorthMilestone is a net worth figure stored at a point in time,
// used to cross-check freshly calculated values
type NetWorthMilestone struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	RecordedAt       time.Time
	NetWorth         decimal.Decimal
	LiquidAssets     decimal.Decimal
	PortfolioValue   decimal.Decimal
	PhysicalAssets   decimal.Decimal
	TotalLiabilities decimal.Decimal
}
