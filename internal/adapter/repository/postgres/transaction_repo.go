package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create validates and inserts a transaction. The database assigns its sequence number.
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	query := `
		INSERT INTO transactions (id, account_id, date, label, type, quantity, unit_price, instrument_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`

	var instrumentID interface{}
	if tx.InstrumentID != nil {
		instrumentID = *tx.InstrumentID
	}

	err := r.db.QueryRowContext(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Date.Time(),
		tx.Label,
		string(tx.Type),
		tx.Quantity.String(),
		tx.UnitPrice.String(),
		instrumentID,
	).Scan(&tx.Seq)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// ListByAccount retrieves the transactions of an account ordered by date, then insertion order
func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT id, seq, account_id, date, label, type, quantity, unit_price, instrument_id
		FROM transactions
		WHERE account_id = $1
		ORDER BY date, seq
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var date time.Time
		var quantityStr, unitPriceStr string
		var instrumentID uuid.NullUUID

		err := rows.Scan(
			&tx.ID,
			&tx.Seq,
			&tx.AccountID,
			&date,
			&tx.Label,
			&tx.Type,
			&quantityStr,
			&unitPriceStr,
			&instrumentID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Date = domain.DateOf(date)

		// Parse quantity and unit_price (NUMERIC)
		if tx.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		if tx.UnitPrice, err = decimal.NewFromString(unitPriceStr); err != nil {
			return nil, fmt.Errorf("failed to parse unit_price: %w", err)
		}

		// Parse instrument_id (nullable)
		if instrumentID.Valid {
			tx.InstrumentID = &instrumentID.UUID
		}

		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}
