package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

// Add stores a price observation, replacing the one recorded on the same date
func (r *priceRepository) Add(ctx context.Context, price *domain.PriceObservation) error {
	if err := price.Validate(); err != nil {
		return err
	}
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}

	query := `
		INSERT INTO prices (id, instrument_id, currency_id, date, price, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (instrument_id, currency_id, date)
		DO UPDATE SET price = EXCLUDED.price, source = EXCLUDED.source
	`

	_, err := r.db.ExecContext(ctx, query,
		price.ID,
		price.InstrumentID,
		price.CurrencyID,
		price.Date.Time(),
		price.Price.String(),
		price.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price: %w", err)
	}

	return nil
}

// Observations retrieves the prices of an instrument in a currency within [start, end], ordered by date
func (r *priceRepository) Observations(ctx context.Context, instrumentID, currencyID uuid.UUID, start, end domain.Date) ([]*domain.PriceObservation, error) {
	query := `
		SELECT id, instrument_id, currency_id, date, price, source
		FROM prices
		WHERE instrument_id = $1 AND currency_id = $2 AND date BETWEEN $3 AND $4
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, instrumentID, currencyID, start.Time(), end.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var prices []*domain.PriceObservation
	for rows.Next() {
		var price domain.PriceObservation
		var date time.Time
		var priceStr string

		err := rows.Scan(
			&price.ID,
			&price.InstrumentID,
			&price.CurrencyID,
			&date,
			&priceStr,
			&price.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		price.Date = domain.DateOf(date)

		// Parse price (NUMERIC)
		if price.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse price: %w", err)
		}

		prices = append(prices, &price)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}

// FirstDate returns the date of the earliest price of an instrument in a currency
func (r *priceRepository) FirstDate(ctx context.Context, instrumentID, currencyID uuid.UUID) (domain.Date, bool, error) {
	query := `
		SELECT MIN(date)
		FROM prices
		WHERE instrument_id = $1 AND currency_id = $2
	`

	var first sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, instrumentID, currencyID).Scan(&first); err != nil {
		return domain.Date{}, false, fmt.Errorf("failed to get first price date: %w", err)
	}
	if !first.Valid {
		return domain.Date{}, false, nil
	}
	return domain.DateOf(first.Time), true, nil
}

// CountByMonth counts the prices of an instrument in a currency per month, from since onwards
func (r *priceRepository) CountByMonth(ctx context.Context, instrumentID, currencyID uuid.UUID, since domain.Date) (map[domain.Date]int, error) {
	query := `
		SELECT date_trunc('month', date)::date AS month, COUNT(*)
		FROM prices
		WHERE instrument_id = $1 AND currency_id = $2 AND date >= $3
		GROUP BY month
	`

	rows, err := r.db.QueryContext(ctx, query, instrumentID, currencyID, since.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to count prices: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Date]int)
	for rows.Next() {
		var month time.Time
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan price count: %w", err)
		}
		counts[domain.DateOf(month)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price counts: %w", err)
	}

	return counts, nil
}
