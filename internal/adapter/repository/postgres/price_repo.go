package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/simaogato/wealthwise-backend/internal/domain"
)

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new daily bar repository
func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

// FindBars retrieves every bar for the symbols within the range in one query
func (r *priceRepository) FindBars(ctx context.Context, symbols []string, dateRange domain.DateRange) ([]domain.DailyBar, error) {
	if len(symbols) == 0 {
		return []domain.DailyBar{}, nil
	}

	query := `
		SELECT symbol, date, open, high, low, close, volume, source
		FROM daily_bars
		WHERE symbol = ANY($1) AND date BETWEEN $2 AND $3
		ORDER BY symbol, date
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(symbols), dateRange.Start.Time(), dateRange.End.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily bars: %w", err)
	}
	defer rows.Close()

	bars := make([]domain.DailyBar, 0)
	for rows.Next() {
		var bar domain.DailyBar
		var date time.Time
		var openStr, highStr, lowStr, closeStr string

		err := rows.Scan(
			&bar.Symbol,
			&date,
			&openStr,
			&highStr,
			&lowStr,
			&closeStr,
			&bar.Volume,
			&bar.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily bar: %w", err)
		}

		var p decimalParser
		bar.Date = domain.DateOf(date)
		bar.Open = p.parse("open", openStr)
		bar.High = p.parse("high", highStr)
		bar.Low = p.parse("low", lowStr)
		bar.Close = p.parse("close", closeStr)
		if p.err != nil {
			return nil, p.err
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily bars: %w", err)
	}

	return bars, nil
}

// UpsertBars inserts bars in a single database transaction.
// A bar with an existing (symbol, date) replaces the stored one.
func (r *priceRepository) UpsertBars(ctx context.Context, bars []domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	// Start a database transaction
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO daily_bars (symbol, date, open, high, low, close, volume, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			source = EXCLUDED.source
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare bar upsert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err = stmt.ExecContext(ctx,
			domain.NormalizeSymbol(bar.Symbol),
			bar.Date.Time(),
			bar.Open.String(),
			bar.High.String(),
			bar.Low.String(),
			bar.Close.String(),
			bar.Volume,
			bar.Source,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert bar %s %s: %w", bar.Symbol, bar.Date, err)
		}
	}

	// Commit the transaction
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bar upsert: %w", err)
	}

	return nil
}
