package consistency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthwise-backend/internal/domain"
	"github.com/simaogato/wealthwise-backend/internal/usecase/networth"
)

// Issue categories
const (
	CategoryAccounts       = "accounts"
	CategoryInvestments    = "investments"
	CategoryDebts          = "debts"
	CategoryPhysicalAssets = "physical_assets"
	CategoryBudgets        = "budgets"
	CategoryGoals          = "goals"
	CategoryNetWorth       = "net_worth"
)

// Score deductions per severity
var severityPenalty = map[domain.Severity]int{
	domain.SeverityCritical: 20,
	domain.SeverityHigh:     10,
	domain.SeverityMedium:   5,
	domain.SeverityLow:      2,
	domain.SeverityWarning:  1,
}

// minGrowthWindowDays is the shortest holding period over which growth is annualized
const minGrowthWindowDays = 30

// Config selects which checks run and their tolerances
type Config struct {
	CheckAccounts       bool
	CheckInvestments    bool
	CheckDebts          bool
	CheckPhysicalAssets bool
	CheckBudgets        bool
	CheckGoals          bool
	CheckNetWorth       bool

	AmountTolerance        decimal.Decimal // absolute drift allowed between stored and derived amounts
	MilestoneDriftPercent  float64         // allowed gap between the latest milestone and a fresh net worth
	MaxAnnualGrowthPercent float64         // annualized growth above this is flagged as unrealistic
	Now                    func() time.Time
}

// DefaultConfig enables every check with the standard tolerances
func DefaultConfig() Config {
	return Config{
		CheckAccounts:          true,
		CheckInvestments:       true,
		CheckDebts:             true,
		CheckPhysicalAssets:    true,
		CheckBudgets:           true,
		CheckGoals:             true,
		CheckNetWorth:          true,
		AmountTolerance:        decimal.RequireFromString("0.01"),
		MilestoneDriftPercent:  5,
		MaxAnnualGrowthPercent: 200,
		Now:                    time.Now,
	}
}

// Validator cross-checks stored figures against values derived from them.
// Findings are advisory; nothing here blocks a write.
type Validator struct {
	AccountRepo   domain.AccountRepository
	HoldingRepo   domain.HoldingRepository
	AssetRepo     domain.PhysicalAssetRepository
	DebtRepo      domain.DebtRepository
	BudgetRepo    domain.BudgetRepository
	GoalRepo      domain.GoalRepository
	MilestoneRepo domain.MilestoneRepository
	Logger        *slog.Logger
}

// NewValidator creates a new Validator instance
func NewValidator(
	accountRepo domain.AccountRepository,
	holdingRepo domain.HoldingRepository,
	assetRepo domain.PhysicalAssetRepository,
	debtRepo domain.DebtRepository,
	budgetRepo domain.BudgetRepository,
	goalRepo domain.GoalRepository,
	milestoneRepo domain.MilestoneRepository,
	logger *slog.Logger,
) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		AccountRepo:   accountRepo,
		HoldingRepo:   holdingRepo,
		AssetRepo:     assetRepo,
		DebtRepo:      debtRepo,
		BudgetRepo:    budgetRepo,
		GoalRepo:      goalRepo,
		MilestoneRepo: milestoneRepo,
		Logger:        logger,
	}
}

// run holds the records loaded during one validation so each category is read at most once
type run struct {
	v      *Validator
	ctx    context.Context
	userID uuid.UUID
	cfg    Config
	now    time.Time

	accounts []*domain.Account
	holdings []*domain.Holding
	assets   []*domain.PhysicalAsset
	debts    []*domain.Debt
	loaded   map[string]bool

	issues   []domain.ValidationIssue
	warnings []domain.ValidationIssue
}

// Validate runs the enabled checks for a user and scores the result.
// A store read failure is returned as an error; it is not a finding.
func (v *Validator) Validate(ctx context.Context, userID uuid.UUID, cfg Config) (*domain.ValidationReport, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	defaults := DefaultConfig()
	if cfg.AmountTolerance.IsZero() {
		cfg.AmountTolerance = defaults.AmountTolerance
	}
	if cfg.MilestoneDriftPercent <= 0 {
		cfg.MilestoneDriftPercent = defaults.MilestoneDriftPercent
	}
	if cfg.MaxAnnualGrowthPercent <= 0 {
		cfg.MaxAnnualGrowthPercent = defaults.MaxAnnualGrowthPercent
	}

	r := &run{v: v, ctx: ctx, userID: userID, cfg: cfg, now: cfg.Now(), loaded: make(map[string]bool)}

	checks := []struct {
		enabled bool
		check   func() error
	}{
		{cfg.CheckAccounts, r.checkAccounts},
		{cfg.CheckInvestments, r.checkInvestments},
		{cfg.CheckDebts, r.checkDebts},
		{cfg.CheckPhysicalAssets, r.checkPhysicalAssets},
		{cfg.CheckBudgets, r.checkBudgets},
		{cfg.CheckGoals, r.checkGoals},
		{cfg.CheckNetWorth, r.checkNetWorth},
	}
	for _, c := range checks {
		if !c.enabled {
			continue
		}
		if err := c.check(); err != nil {
			return nil, err
		}
	}

	report := &domain.ValidationReport{
		UserID:   userID,
		IsValid:  true,
		Score:    100,
		Issues:   r.issues,
		Warnings: r.warnings,
	}
	if report.Issues == nil {
		report.Issues = []domain.ValidationIssue{}
	}
	if report.Warnings == nil {
		report.Warnings = []domain.ValidationIssue{}
	}
	for _, issue := range report.Issues {
		report.Score -= severityPenalty[issue.Severity]
		if issue.Severity == domain.SeverityCritical || issue.Severity == domain.SeverityHigh {
			report.IsValid = false
		}
	}
	report.Score -= len(report.Warnings) * severityPenalty[domain.SeverityWarning]
	report.Score = max(report.Score, 0)

	v.Logger.Info("Consistency validation finished",
		"user_id", userID, "score", report.Score, "issues", len(report.Issues), "warnings", len(report.Warnings))
	return report, nil
}

func (r *run) add(severity domain.Severity, category string, id *uuid.UUID, fix string, format string, args ...any) {
	issue := domain.ValidationIssue{
		Severity:     severity,
		Category:     category,
		Message:      fmt.Sprintf(format, args...),
		RecordID:     id,
		SuggestedFix: fix,
	}
	if severity == domain.SeverityWarning {
		r.warnings = append(r.warnings, issue)
		return
	}
	r.issues = append(r.issues, issue)
}

func (r *run) loadAccounts() error {
	if r.loaded[CategoryAccounts] {
		return nil
	}
	accounts, err := r.v.AccountRepo.ListByUser(r.ctx, r.userID, true)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", CategoryAccounts, err)
	}
	r.accounts, r.loaded[CategoryAccounts] = accounts, true
	return nil
}

func (r *run) loadHoldings() error {
	if r.loaded[CategoryInvestments] {
		return nil
	}
	holdings, err := r.v.HoldingRepo.FindActiveByUser(r.ctx, r.userID)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", CategoryInvestments, err)
	}
	r.holdings, r.loaded[CategoryInvestments] = holdings, true
	return nil
}

func (r *run) loadAssets() error {
	if r.loaded[CategoryPhysicalAssets] {
		return nil
	}
	assets, err := r.v.AssetRepo.ListByUser(r.ctx, r.userID, true)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", CategoryPhysicalAssets, err)
	}
	r.assets, r.loaded[CategoryPhysicalAssets] = assets, true
	return nil
}

func (r *run) loadDebts() error {
	if r.loaded[CategoryDebts] {
		return nil
	}
	debts, err := r.v.DebtRepo.ListByUser(r.ctx, r.userID, true)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", CategoryDebts, err)
	}
	r.debts, r.loaded[CategoryDebts] = debts, true
	return nil
}

func (r *run) checkAccounts() error {
	if err := r.loadAccounts(); err != nil {
		return err
	}
	for _, a := range r.accounts {
		id := a.ID
		if err := a.Validate(); err != nil {
			r.add(domain.SeverityMedium, CategoryAccounts, &id, "correct the account record", "account %q is malformed: %v", a.Name, err)
			continue
		}
		if a.IsLiquid() && a.Balance.IsNegative() {
			r.add(domain.SeverityWarning, CategoryAccounts, &id, "", "account %q is overdrawn (%s)", a.Name, a.Balance.StringFixed(2))
		}
		if a.Type == domain.AccountTypeCredit && !a.Balance.IsZero() {
			r.add(domain.SeverityWarning, CategoryAccounts, &id, "track the card balance as a credit_card debt",
				"credit account %q balance %s is not counted in net worth", a.Name, a.Balance.StringFixed(2))
		}
	}
	return nil
}

func (r *run) checkInvestments() error {
	if err := r.loadHoldings(); err != nil {
		return err
	}
	tol := r.cfg.AmountTolerance
	for _, h := range r.holdings {
		id := h.ID
		if err := h.Validate(); err != nil {
			r.add(domain.SeverityHigh, CategoryInvestments, &id, "fix or deactivate the holding", "holding %s is malformed: %v", h.ID, err)
			continue
		}
		if !h.CurrentPrice.IsPositive() {
			r.add(domain.SeverityHigh, CategoryInvestments, &id, "refresh the quote", "holding %s has no current price", h.Symbol)
			continue
		}

		expectedValue := h.Shares.Mul(h.CurrentPrice)
		if h.MarketValue.Sub(expectedValue).Abs().GreaterThan(tol) {
			r.add(domain.SeverityMedium, CategoryInvestments, &id, "recalculate market value from shares and current price",
				"holding %s market value %s differs from shares x price %s", h.Symbol, h.MarketValue.StringFixed(2), expectedValue.StringFixed(2))
		}

		expectedGain := h.MarketValue.Sub(h.TotalCost)
		if h.GainLoss.Sub(expectedGain).Abs().GreaterThan(tol) {
			r.add(domain.SeverityMedium, CategoryInvestments, &id, "recalculate gain/loss from market value and total cost",
				"holding %s gain/loss %s differs from market value - total cost %s", h.Symbol, h.GainLoss.StringFixed(2), expectedGain.StringFixed(2))
		}

		if h.AverageCost.IsPositive() {
			expectedCost := h.Shares.Mul(h.AverageCost)
			if h.TotalCost.Sub(expectedCost).Abs().GreaterThan(tol) {
				r.add(domain.SeverityLow, CategoryInvestments, &id, "recalculate total cost from shares and average cost",
					"holding %s total cost %s differs from shares x average cost %s", h.Symbol, h.TotalCost.StringFixed(2), expectedCost.StringFixed(2))
			}
		}

		today := domain.DateOf(r.now.UTC())
		if h.PurchaseDate.After(today) {
			r.add(domain.SeverityMedium, CategoryInvestments, &id, "correct the purchase date",
				"holding %s purchase date %s is in the future", h.Symbol, h.PurchaseDate)
			continue
		}

		held := today.DaysSince(h.PurchaseDate)
		if held >= minGrowthWindowDays && h.TotalCost.IsPositive() {
			growth := expectedValue.Sub(h.TotalCost).Div(h.TotalCost).Mul(decimal.NewFromInt(100))
			annual := growth.Mul(decimal.NewFromInt(365)).Div(decimal.NewFromInt(int64(held))).InexactFloat64()
			if annual > r.cfg.MaxAnnualGrowthPercent {
				r.add(domain.SeverityWarning, CategoryInvestments, &id, "check the cost basis and current price",
					"holding %s grew at an annualized %.1f%%, above %.0f%%", h.Symbol, annual, r.cfg.MaxAnnualGrowthPercent)
			}
		}
	}
	return nil
}

func (r *run) checkDebts() error {
	if err := r.loadDebts(); err != nil {
		return err
	}
	if err := r.loadAssets(); err != nil {
		return err
	}
	for _, d := range r.debts {
		id := d.ID
		if err := d.Validate(); err != nil {
			r.add(domain.SeverityHigh, CategoryDebts, &id, "correct the debt record", "debt %q is malformed: %v", d.Name, err)
			continue
		}
		if d.OriginalAmount.IsPositive() && d.RemainingBalance.GreaterThan(d.OriginalAmount) {
			r.add(domain.SeverityLow, CategoryDebts, &id, "verify the original amount",
				"debt %q remaining balance %s exceeds the original amount %s", d.Name, d.RemainingBalance.StringFixed(2), d.OriginalAmount.StringFixed(2))
		}
		if d.InterestRate.GreaterThan(decimal.NewFromInt(100)) {
			r.add(domain.SeverityMedium, CategoryDebts, &id, "enter the annual rate in percent",
				"debt %q interest rate %s%% is unrealistic", d.Name, d.InterestRate.String())
		}
		if err := domain.ValidateDebtPlacement(d, r.assets); err != nil {
			r.add(domain.SeverityHigh, CategoryDebts, &id, "remove the debt; the loan is tracked on the physical asset",
				"debt %q duplicates the loan embedded in asset %s and is counted twice", d.Name, d.SecuredAssetID)
		}
	}
	return nil
}

func (r *run) checkPhysicalAssets() error {
	if err := r.loadAssets(); err != nil {
		return err
	}
	for _, a := range r.assets {
		id := a.ID
		if a.CurrentValue.IsNegative() {
			r.add(domain.SeverityHigh, CategoryPhysicalAssets, &id, "enter a non-negative current value",
				"asset %q has a negative current value %s", a.Name, a.CurrentValue.StringFixed(2))
		}
		if a.Loan != nil && a.Loan.LoanBalance.IsNegative() {
			r.add(domain.SeverityMedium, CategoryPhysicalAssets, &id, "enter a non-negative loan balance",
				"asset %q has a negative loan balance %s", a.Name, a.Loan.LoanBalance.StringFixed(2))
		}
	}
	return nil
}

func (r *run) checkBudgets() error {
	budgets, err := r.v.BudgetRepo.ListByUser(r.ctx, r.userID, true)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", CategoryBudgets, err)
	}
	hundred := decimal.NewFromInt(100)
	for _, b := range budgets {
		id := b.ID
		if !b.Limit.IsPositive() {
			r.add(domain.SeverityMedium, CategoryBudgets, &id, "set a positive limit", "budget %q has no positive limit", b.Category)
			continue
		}
		if b.Spent.IsNegative() {
			r.add(domain.SeverityLow, CategoryBudgets, &id, "recompute spending from transactions", "budget %q has negative spending", b.Category)
			continue
		}
		if u := b.Utilization(); u.GreaterThan(hundred) {
			r.add(domain.SeverityWarning, CategoryBudgets, &id, "", "budget %q is over its limit (%s%% used)", b.Category, u.StringFixed(0))
		}
	}
	return nil
}

func (r *run) checkGoals() error {
	goals, err := r.v.GoalRepo.ListByUser(r.ctx, r.userID)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", CategoryGoals, err)
	}
	today := domain.DateOf(r.now.UTC())
	for _, g := range goals {
		id := g.ID
		if !g.TargetAmount.IsPositive() {
			r.add(domain.SeverityMedium, CategoryGoals, &id, "set a positive target amount", "goal %q has no positive target", g.Name)
			continue
		}
		if g.IsCompleted {
			continue
		}
		if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
			r.add(domain.SeverityLow, CategoryGoals, &id, "mark the goal as completed", "goal %q reached its target but is not completed", g.Name)
			continue
		}
		if !g.TargetDate.IsZero() && g.TargetDate.Before(today) {
			r.add(domain.SeverityWarning, CategoryGoals, &id, "move the target date", "goal %q passed its target date %s at %s%%", g.Name, g.TargetDate, g.Progress().StringFixed(0))
		}
	}
	return nil
}

// checkNetWorth compares stored milestones with each other and with a fresh calculation
func (r *run) checkNetWorth() error {
	milestones, err := r.v.MilestoneRepo.ListByUser(r.ctx, r.userID)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", CategoryNetWorth, err)
	}
	if len(milestones) == 0 {
		return nil
	}

	tol := r.cfg.AmountTolerance
	for i, m := range milestones {
		id := m.ID
		parts := m.LiquidAssets.Add(m.PortfolioValue).Add(m.PhysicalAssets).Sub(m.TotalLiabilities)
		if m.NetWorth.Sub(parts).Abs().GreaterThan(tol) {
			r.add(domain.SeverityCritical, CategoryNetWorth, &id, "re-record the milestone",
				"milestone %s net worth %s does not match its breakdown %s", m.RecordedAt.Format(time.DateOnly), m.NetWorth.StringFixed(2), parts.StringFixed(2))
		}
		if m.RecordedAt.After(r.now) {
			r.add(domain.SeverityLow, CategoryNetWorth, &id, "correct the milestone timestamp",
				"milestone recorded at %s is in the future", m.RecordedAt.Format(time.RFC3339))
		}
		if i == 0 {
			continue
		}
		prev := milestones[i-1]
		days := m.RecordedAt.Sub(prev.RecordedAt).Hours() / 24
		if days < minGrowthWindowDays || !prev.NetWorth.IsPositive() {
			continue
		}
		growth := m.NetWorth.Sub(prev.NetWorth).Div(prev.NetWorth).Mul(decimal.NewFromInt(100)).InexactFloat64()
		if annual := growth * 365 / days; annual > r.cfg.MaxAnnualGrowthPercent {
			r.add(domain.SeverityWarning, CategoryNetWorth, &id, "check for missing liabilities or double-counted assets",
				"net worth grew at an annualized %.1f%% between milestones", annual)
		}
	}

	for _, load := range []func() error{r.loadAccounts, r.loadHoldings, r.loadAssets, r.loadDebts} {
		if err := load(); err != nil {
			return err
		}
	}
	fresh := networth.Calculate(r.accounts, r.holdings, r.assets, r.debts)

	latest := milestones[len(milestones)-1]
	if drift := driftPercent(fresh.NetWorth, latest.NetWorth); drift > r.cfg.MilestoneDriftPercent {
		id := latest.ID
		r.add(domain.SeverityMedium, CategoryNetWorth, &id, "record a new milestone",
			"current net worth %s differs %.1f%% from the latest milestone %s",
			fresh.NetWorth.StringFixed(2), drift, latest.NetWorth.StringFixed(2))
	}
	return nil
}

// driftPercent returns |current-stored| / |stored| * 100; a zero stored value drifts only if current is non-zero
func driftPercent(current, stored decimal.Decimal) float64 {
	diff := current.Sub(stored).Abs()
	if stored.IsZero() {
		if diff.IsZero() {
			return 0
		}
		return 100
	}
	return diff.Div(stored.Abs()).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
