package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

// ListByUser retrieves a user's accounts, optionally only the active ones
func (r *accountRepository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.Account, error) {
	query := `
		SELECT id, user_id, name, account_type, balance, is_active
		FROM accounts
		WHERE user_id = $1 AND (NOT $2 OR is_active)
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		var a domain.Account
		var balanceStr string

		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Name,
			&a.Type,
			&balanceStr,
			&a.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		var p decimalParser
		a.Balance = p.parse("balance", balanceStr)
		if p.err != nil {
			return nil, p.err
		}

		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
