package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrLoanAlreadyEmbedded is returned when a debt duplicates a loan already
// recorded on a physical asset
var ErrLoanAlreadyEmbedded = errors.New("loan is already recorded on the secured physical asset")

// DebtType represents the kind of liability
type DebtType string

const (
	DebtTypeMortgage     DebtType = "MORTGAGE"
	DebtTypeAutoLoan     DebtType = "AUTO_LOAN"
	DebtTypeStudentLoan  DebtType = "STUDENT_LOAN"
	DebtTypeCreditCard   DebtType = "CREDIT_CARD"
	DebtTypePersonalLoan DebtType = "PERSONAL_LOAN"
	DebtTypeOther        DebtType = "OTHER"
)

// Debt represents a liability owed by the user
type Debt struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Name             string
	Type             DebtType
	OriginalAmount   decimal.Decimal
	RemainingBalance decimal.Decimal
	InterestRate     decimal.Decimal // annual, in percent
	MinimumPayment   decimal.Decimal
	SecuredAssetID   *uuid.UUID // physical asset backing the debt, if any
	IsActive         bool
}

// Validate ensures the debt adheres to domain rules
func (d *Debt) Validate() error {
	if d.Name == "" {
		return errors.New("debt name cannot be empty")
	}
	if d.RemainingBalance.IsNegative() {
		return errors.New("debt remaining balance must not be negative")
	}
	if d.InterestRate.IsNegative() {
		return errors.New("debt interest rate must not be negative")
	}
	return nil
}

// LoanInfo is a loan embedded in a physical asset (e.g. a mortgage on a house)
type LoanInfo struct {
	Lender         string
	LoanBalance    decimal.Decimal
	MonthlyPayment decimal.Decimal
	InterestRate   decimal.Decimal
}

// PhysicalAsset represents a real-world asset such as real estate or a vehicle
type PhysicalAsset struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Type          string // "real_estate", "vehicle", "collectible", ...
	PurchasePrice decimal.Decimal
	CurrentValue  decimal.Decimal
	Loan          *LoanInfo // nil when the asset is owned outright
	IsActive      bool
}

// LoanBalance returns the embedded loan balance, zero when there is no loan
func (a *PhysicalAsset) LoanBalance() decimal.Decimal {
	if a.Loan == nil {
		return decimal.Zero
	}
	return a.Loan.LoanBalance
}

// Equity returns CurrentValue minus the embedded loan. Negative equity
// (an underwater asset) is a legitimate state.
func (a *PhysicalAsset) Equity() decimal.Decimal {
	return a.CurrentValue.Sub(a.LoanBalance())
}

// ValidateDebtPlacement enforces the single-home rule for secured loans:
// a loan that lives in PhysicalAsset.Loan must not also be entered as a Debt.
// Debt writes happen outside this service; callers that create or update debts
// run it first. The consistency validator applies it to stored data.
func ValidateDebtPlacement(debt *Debt, assets []*PhysicalAsset) error {
	if debt.SecuredAssetID == nil {
		return nil
	}
	for _, asset := range assets {
		if asset.ID != *debt.SecuredAssetID {
			continue
		}
		if asset.Loan != nil && asset.Loan.LoanBalance.IsPositive() {
			return ErrLoanAlreadyEmbedded
		}
	}
	return nil
}
