package postgres

import (
	"context"
	"fmt"
)

// schema creates every table the repositories use. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_bars (
		symbol TEXT NOT NULL,
		date DATE NOT NULL,
		open NUMERIC(20, 6) NOT NULL,
		high NUMERIC(20, 6) NOT NULL,
		low NUMERIC(20, 6) NOT NULL,
		close NUMERIC(20, 6) NOT NULL,
		volume BIGINT NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (symbol, date)
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		symbol TEXT NOT NULL,
		shares NUMERIC(20, 8) NOT NULL,
		current_price NUMERIC(20, 6) NOT NULL DEFAULT 0,
		average_cost NUMERIC(20, 6) NOT NULL DEFAULT 0,
		total_cost NUMERIC(20, 2) NOT NULL DEFAULT 0,
		market_value NUMERIC(20, 2) NOT NULL DEFAULT 0,
		gain_loss NUMERIC(20, 2) NOT NULL DEFAULT 0,
		gain_loss_percent NUMERIC(12, 4) NOT NULL DEFAULT 0,
		purchase_date DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings (user_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name TEXT NOT NULL,
		account_type TEXT NOT NULL,
		balance NUMERIC(20, 2) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts (user_id)`,
	`CREATE TABLE IF NOT EXISTS physical_assets (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name TEXT NOT NULL,
		asset_type TEXT NOT NULL DEFAULT '',
		purchase_price NUMERIC(20, 2) NOT NULL DEFAULT 0,
		current_value NUMERIC(20, 2) NOT NULL DEFAULT 0,
		loan_lender TEXT,
		loan_balance NUMERIC(20, 2),
		loan_monthly_payment NUMERIC(20, 2),
		loan_interest_rate NUMERIC(8, 4),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_physical_assets_user ON physical_assets (user_id)`,
	`CREATE TABLE IF NOT EXISTS debts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name TEXT NOT NULL,
		debt_type TEXT NOT NULL,
		original_amount NUMERIC(20, 2) NOT NULL DEFAULT 0,
		remaining_balance NUMERIC(20, 2) NOT NULL DEFAULT 0,
		interest_rate NUMERIC(8, 4) NOT NULL DEFAULT 0,
		minimum_payment NUMERIC(20, 2) NOT NULL DEFAULT 0,
		secured_asset_id UUID REFERENCES physical_assets (id) ON DELETE SET NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_debts_user ON debts (user_id)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		category TEXT NOT NULL,
		limit_amount NUMERIC(20, 2) NOT NULL DEFAULT 0,
		spent NUMERIC(20, 2) NOT NULL DEFAULT 0,
		period TEXT NOT NULL DEFAULT 'monthly',
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS goals (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name TEXT NOT NULL,
		target_amount NUMERIC(20, 2) NOT NULL DEFAULT 0,
		current_amount NUMERIC(20, 2) NOT NULL DEFAULT 0,
		target_date DATE,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS net_worth_milestones (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		net_worth NUMERIC(20, 2) NOT NULL,
		liquid_assets NUMERIC(20, 2) NOT NULL DEFAULT 0,
		portfolio_value NUMERIC(20, 2) NOT NULL DEFAULT 0,
		physical_assets NUMERIC(20, 2) NOT NULL DEFAULT 0,
		total_liabilities NUMERIC(20, 2) NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_milestones_user_recorded ON net_worth_milestones (user_id, recorded_at)`,
}

// Migrate creates missing tables and indexes
func Migrate(ctx context.Context, db *DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
