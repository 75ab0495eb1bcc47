package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// budgetRepository implements domain.BudgetRepository
type budgetRepository struct {
	db *DB
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *DB) domain.BudgetRepository {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.Budget, error) {
	query := `
		SELECT id, user_id, category, limit_amount, spent, period, is_active
		FROM budgets
		WHERE user_id = $1 AND (NOT $2 OR is_active)
		ORDER BY category
	`

	rows, err := r.db.QueryContext(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]*domain.Budget, 0)
	for rows.Next() {
		var b domain.Budget
		var limit, spent string

		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &limit, &spent, &b.Period, &b.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}

		var p decimalParser
		b.Limit = p.parse("limit_amount", limit)
		b.Spent = p.parse("spent", spent)
		if p.err != nil {
			return nil, p.err
		}

		budgets = append(budgets, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}

	return budgets, nil
}

// goalRepository implements domain.GoalRepository
type goalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *DB) domain.GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Goal, error) {
	query := `
		SELECT id, user_id, name, target_amount, current_amount, target_date, is_completed
		FROM goals
		WHERE user_id = $1
		ORDER BY target_date NULLS LAST, name
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	goals := make([]*domain.Goal, 0)
	for rows.Next() {
		var g domain.Goal
		var target, current string
		var targetDate sql.NullTime

		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &targetDate, &g.IsCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}

		var p decimalParser
		g.TargetAmount = p.parse("target_amount", target)
		g.CurrentAmount = p.parse("current_amount", current)
		if p.err != nil {
			return nil, p.err
		}
		if targetDate.Valid {
			g.TargetDate = domain.DateOf(targetDate.Time)
		}

		goals = append(goals, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}
