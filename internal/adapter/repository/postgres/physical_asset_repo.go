package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// physicalAssetRepository implements domain.PhysicalAssetRepository
type physicalAssetRepository struct {
	db *DB
}

// NewPhysicalAssetRepository creates a new physical asset repository
func NewPhysicalAssetRepository(db *DB) domain.PhysicalAssetRepository {
	return &physicalAssetRepository{db: db}
}

// ListByUser retrieves a user's physical assets with their embedded loans
func (r *physicalAssetRepository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.PhysicalAsset, error) {
	query := `
		SELECT id, user_id, name, asset_type, purchase_price, current_value,
			loan_lender, loan_balance, loan_monthly_payment, loan_interest_rate, is_active
		FROM physical_assets
		WHERE user_id = $1 AND (NOT $2 OR is_active)
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query physical assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*domain.PhysicalAsset, 0)
	for rows.Next() {
		var a domain.PhysicalAsset
		var purchasePrice, currentValue string
		var lender, loanBalance, monthlyPayment, loanRate sql.NullString

		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Name,
			&a.Type,
			&purchasePrice,
			&currentValue,
			&lender,
			&loanBalance,
			&monthlyPayment,
			&loanRate,
			&a.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan physical asset: %w", err)
		}

		var p decimalParser
		a.PurchasePrice = p.parse("purchase_price", purchasePrice)
		a.CurrentValue = p.parse("current_value", currentValue)

		// A NULL loan balance means the asset is owned outright
		if loanBalance.Valid {
			a.Loan = &domain.LoanInfo{
				Lender:         lender.String,
				LoanBalance:    p.parseNull("loan_balance", loanBalance),
				MonthlyPayment: p.parseNull("loan_monthly_payment", monthlyPayment),
				InterestRate:   p.parseNull("loan_interest_rate", loanRate),
			}
		}
		if p.err != nil {
			return nil, p.err
		}

		assets = append(assets, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating physical assets: %w", err)
	}

	return assets, nil
}
