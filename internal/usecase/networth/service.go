package networth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// NetWorthService aggregates balances across every asset and liability category
type NetWorthService struct {
	AccountRepo   domain.AccountRepository
	HoldingRepo   domain.HoldingRepository
	AssetRepo     domain.PhysicalAssetRepository
	DebtRepo      domain.DebtRepository
	MilestoneRepo domain.MilestoneRepository

	now func() time.Time
}

// NewNetWorthService creates a new NetWorthService instance
func NewNetWorthService(
	accountRepo domain.AccountRepository,
	holdingRepo domain.HoldingRepository,
	assetRepo domain.PhysicalAssetRepository,
	debtRepo domain.DebtRepository,
	milestoneRepo domain.MilestoneRepository,
) *NetWorthService {
	return &NetWorthService{
		AccountRepo:   accountRepo,
		HoldingRepo:   holdingRepo,
		AssetRepo:     assetRepo,
		DebtRepo:      debtRepo,
		MilestoneRepo: milestoneRepo,
		now:           time.Now,
	}
}

// GetCurrentNetWorth calculates the user's net worth from the current store state.
// Logic:
//   - LiquidAssets: sum of active checking, savings and cash account balances
//   - PortfolioValue: sum of active holdings' market values
//   - PhysicalAssets: sum of active physical assets' equity (value minus embedded loan)
//   - TotalLiabilities: sum of active debts' remaining balances
//   - NetWorth: LiquidAssets + PortfolioValue + PhysicalAssets - TotalLiabilities
//
// A failing read for any category fails the whole calculation.
func (s *NetWorthService) GetCurrentNetWorth(ctx context.Context, userID uuid.UUID) (*domain.NetWorthResult, error) {
	// 1. Liquid accounts
	accounts, err := s.AccountRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, wrap("accounts", err)
	}

	// 2. Investment positions
	holdings, err := s.HoldingRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, wrap("investments", err)
	}

	// 3. Physical assets with their embedded loans
	assets, err := s.AssetRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, wrap("physical assets", err)
	}

	// 4. Debts
	debts, err := s.DebtRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, wrap("debts", err)
	}

	result := Calculate(accounts, holdings, assets, debts)
	result.UserID = userID
	result.CalculatedAt = s.now()
	return result, nil
}

// RecordMilestone calculates the current net worth and stores it as a milestone
func (s *NetWorthService) RecordMilestone(ctx context.Context, userID uuid.UUID) (*domain.NetWorthMilestone, error) {
	result, err := s.GetCurrentNetWorth(ctx, userID)
	if err != nil {
		return nil, err
	}

	milestone := &domain.NetWorthMilestone{
		ID:               uuid.New(),
		UserID:           userID,
		RecordedAt:       result.CalculatedAt,
		NetWorth:         result.NetWorth,
		LiquidAssets:     result.Breakdown.LiquidAssets,
		PortfolioValue:   result.Breakdown.PortfolioValue,
		PhysicalAssets:   result.Breakdown.PhysicalAssets,
		TotalLiabilities: result.Breakdown.TotalLiabilities,
	}

	if err := s.MilestoneRepo.Add(ctx, milestone); err != nil {
		return nil, fmt.Errorf("failed to record net worth milestone: %w", err)
	}
	return milestone, nil
}

// Calculate aggregates already loaded records into a net worth figure.
// Inactive records are ignored. Loans embedded in physical assets are netted inside
// PhysicalAssets and reported in EmbeddedLoans only; they are never subtracted twice.
func Calculate(accounts []*domain.Account, holdings []*domain.Holding, assets []*domain.PhysicalAsset, debts []*domain.Debt) *domain.NetWorthResult {
	b := domain.NetWorthBreakdown{
		LiquidAssets:     decimal.Zero,
		PortfolioValue:   decimal.Zero,
		PhysicalAssets:   decimal.Zero,
		TotalLiabilities: decimal.Zero,
		EmbeddedLoans:    decimal.Zero,
	}

	for _, a := range accounts {
		if a.IsActive && a.IsLiquid() {
			b.LiquidAssets = b.LiquidAssets.Add(a.Balance)
		}
	}

	for _, h := range holdings {
		if h.IsActive {
			b.PortfolioValue = b.PortfolioValue.Add(h.MarketValue)
		}
	}

	for _, pa := range assets {
		if !pa.IsActive {
			continue
		}
		b.PhysicalAssets = b.PhysicalAssets.Add(pa.Equity())
		b.EmbeddedLoans = b.EmbeddedLoans.Add(pa.LoanBalance())
	}

	for _, d := range debts {
		if d.IsActive {
			b.TotalLiabilities = b.TotalLiabilities.Add(d.RemainingBalance)
		}
	}

	return &domain.NetWorthResult{
		NetWorth:  b.LiquidAssets.Add(b.PortfolioValue).Add(b.PhysicalAssets).Sub(b.TotalLiabilities),
		Breakdown: b,
	}
}

func wrap(category string, err error) error {
	return fmt.Errorf("failed to calculate net worth: %s: %w", category, err)
}
