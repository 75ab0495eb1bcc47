package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

const holdingColumns = `id, user_id, symbol, shares, current_price, average_cost, total_cost,
	market_value, gain_loss, gain_loss_percent, purchase_date, is_active`

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanHolding(row scanner) (*domain.Holding, error) {
	var h domain.Holding
	var shares, price, avgCost, totalCost, marketValue, gainLoss, gainLossPct string
	var purchaseDate time.Time

	if err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Symbol,
		&shares,
		&price,
		&avgCost,
		&totalCost,
		&marketValue,
		&gainLoss,
		&gainLossPct,
		&purchaseDate,
		&h.IsActive,
	); err != nil {
		return nil, err
	}

	var p decimalParser
	h.Shares = p.parse("shares", shares)
	h.CurrentPrice = p.parse("current_price", price)
	h.AverageCost = p.parse("average_cost", avgCost)
	h.TotalCost = p.parse("total_cost", totalCost)
	h.MarketValue = p.parse("market_value", marketValue)
	h.GainLoss = p.parse("gain_loss", gainLoss)
	h.GainLossPercent = p.parse("gain_loss_percent", gainLossPct)
	if p.err != nil {
		return nil, p.err
	}
	h.PurchaseDate = domain.DateOf(purchaseDate)

	return &h, nil
}

// FindActiveByUser retrieves the active holdings of a user
func (r *holdingRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + `
		FROM holdings
		WHERE user_id = $1 AND is_active
		ORDER BY purchase_date, symbol
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]*domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetByID retrieves a holding by its ID
func (r *holdingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE id = $1`

	h, err := scanHolding(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("holding not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get holding by ID: %w", err)
	}

	return h, nil
}

// UpdatePrice stores the current price together with the derived fields
func (r *holdingRepository) UpdatePrice(ctx context.Context, holding *domain.Holding) error {
	query := `
		UPDATE holdings
		SET current_price = $1, market_value = $2, gain_loss = $3, gain_loss_percent = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		holding.CurrentPrice.String(),
		holding.MarketValue.String(),
		holding.GainLoss.String(),
		holding.GainLossPercent.String(),
		holding.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding price: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("holding not found: %s", holding.ID)
	}

	return nil
}

// ListActiveSymbols returns the distinct symbols of all active holdings
func (r *holdingRepository) ListActiveSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT UPPER(symbol) FROM holdings WHERE is_active ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query held symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}
