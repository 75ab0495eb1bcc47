package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// debtRepository implements domain.DebtRepository
type debtRepository struct {
	db *DB
}

// NewDebtRepository creates a new debt repository
func NewDebtRepository(db *DB) domain.DebtRepository {
	return &debtRepository{db: db}
}

// ListByUser retrieves a user's debts, optionally only the active ones
func (r *debtRepository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.Debt, error) {
	query := `
		SELECT id, user_id, name, debt_type, original_amount, remaining_balance,
			interest_rate, minimum_payment, secured_asset_id, is_active
		FROM debts
		WHERE user_id = $1 AND (NOT $2 OR is_active)
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	debts := make([]*domain.Debt, 0)
	for rows.Next() {
		var d domain.Debt
		var original, remaining, rate, minPayment string
		var securedAssetID sql.NullString

		err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.Name,
			&d.Type,
			&original,
			&remaining,
			&rate,
			&minPayment,
			&securedAssetID,
			&d.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}

		// Parse secured_asset_id (nullable)
		if securedAssetID.Valid {
			assetID, err := uuid.Parse(securedAssetID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse secured_asset_id: %w", err)
			}
			d.SecuredAssetID = &assetID
		}

		var p decimalParser
		d.OriginalAmount = p.parse("original_amount", original)
		d.RemainingBalance = p.parse("remaining_balance", remaining)
		d.InterestRate = p.parse("interest_rate", rate)
		d.MinimumPayment = p.parse("minimum_payment", minPayment)
		if p.err != nil {
			return nil, p.err
		}

		debts = append(debts, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating debts: %w", err)
	}

	return debts, nil
}
