package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// instrumentRepository implements domain.InstrumentRepository
type instrumentRepository struct {
	db *DB
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *DB) domain.InstrumentRepository {
	return &instrumentRepository{db: db}
}

const instrumentColumns = `id, name, main_code, sync_origin, hidden, base_currency_id`

func scanInstrument(row interface{ Scan(...any) error }) (*domain.Instrument, error) {
	var instrument domain.Instrument
	var baseCurrencyID uuid.NullUUID
	err := row.Scan(
		&instrument.ID,
		&instrument.Name,
		&instrument.MainCode,
		&instrument.SyncOrigin,
		&instrument.Hidden,
		&baseCurrencyID,
	)
	if err != nil {
		return nil, err
	}

	// Parse base_currency_id (nullable)
	if baseCurrencyID.Valid {
		instrument.BaseCurrencyID = &baseCurrencyID.UUID
	}
	return &instrument, nil
}

// GetByID retrieves an instrument by its ID
func (r *instrumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE id = $1`

	instrument, err := scanInstrument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instrument %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get instrument by ID: %w", err)
	}
	return instrument, nil
}

// GetByCode retrieves an instrument by its main code
func (r *instrumentRepository) GetByCode(ctx context.Context, code string) (*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE main_code = $1 LIMIT 1`

	instrument, err := scanInstrument(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instrument %q: %w", code, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get instrument by code: %w", err)
	}
	return instrument, nil
}

// List retrieves all instruments, sorted by name
func (r *instrumentRepository) List(ctx context.Context) ([]*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	var instruments []*domain.Instrument
	for rows.Next() {
		instrument, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, instrument)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}

	return instruments, nil
}

// Create creates a new instrument
func (r *instrumentRepository) Create(ctx context.Context, instrument *domain.Instrument) error {
	if err := instrument.Validate(); err != nil {
		return err
	}
	if instrument.ID == uuid.Nil {
		instrument.ID = uuid.New()
	}

	query := `
		INSERT INTO instruments (` + instrumentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var baseCurrencyID interface{}
	if instrument.BaseCurrencyID != nil {
		baseCurrencyID = *instrument.BaseCurrencyID
	}

	_, err := r.db.ExecContext(ctx, query,
		instrument.ID,
		instrument.Name,
		instrument.MainCode,
		string(instrument.SyncOrigin),
		instrument.Hidden,
		baseCurrencyID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert instrument: %w", err)
	}

	return nil
}
