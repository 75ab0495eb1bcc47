package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// milestoneRepository implements domain.MilestoneRepository
type milestoneRepository struct {
	db *DB
}

// NewMilestoneRepository creates a new net worth milestone repository
func NewMilestoneRepository(db *DB) domain.MilestoneRepository {
	return &milestoneRepository{db: db}
}

// Add creates a new milestone entry
func (r *milestoneRepository) Add(ctx context.Context, m *domain.NetWorthMilestone) error {
	query := `
		INSERT INTO net_worth_milestones
			(id, user_id, recorded_at, net_worth, liquid_assets, portfolio_value, physical_assets, total_liabilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.UserID,
		m.RecordedAt,
		m.NetWorth.String(),
		m.LiquidAssets.String(),
		m.PortfolioValue.String(),
		m.PhysicalAssets.String(),
		m.TotalLiabilities.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert net worth milestone: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's milestones, oldest first
func (r *milestoneRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.NetWorthMilestone, error) {
	query := `
		SELECT id, user_id, recorded_at, net_worth, liquid_assets, portfolio_value, physical_assets, total_liabilities
		FROM net_worth_milestones
		WHERE user_id = $1
		ORDER BY recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query net worth milestones: %w", err)
	}
	defer rows.Close()

	milestones := make([]*domain.NetWorthMilestone, 0)
	for rows.Next() {
		var m domain.NetWorthMilestone
		var netWorth, liquid, portfolio, physical, liabilities string

		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.RecordedAt,
			&netWorth,
			&liquid,
			&portfolio,
			&physical,
			&liabilities,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan net worth milestone: %w", err)
		}

		var p decimalParser
		m.NetWorth = p.parse("net_worth", netWorth)
		m.LiquidAssets = p.parse("liquid_assets", liquid)
		m.PortfolioValue = p.parse("portfolio_value", portfolio)
		m.PhysicalAssets = p.parse("physical_assets", physical)
		m.TotalLiabilities = p.parse("total_liabilities", liabilities)
		if p.err != nil {
			return nil, p.err
		}

		milestones = append(milestones, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating net worth milestones: %w", err)
	}

	return milestones, nil
}
