package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=wealthflow sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS instruments (
	id               UUID PRIMARY KEY,
	name             VARCHAR(250) NOT NULL,
	main_code        VARCHAR(250) NOT NULL DEFAULT '',
	sync_origin      VARCHAR(50) NOT NULL DEFAULT '',
	hidden           BOOLEAN NOT NULL DEFAULT FALSE,
	base_currency_id UUID REFERENCES instruments (id)
);

CREATE TABLE IF NOT EXISTS accounts (
	id               UUID PRIMARY KEY,
	name             VARCHAR(250) NOT NULL,
	code             VARCHAR(250) NOT NULL DEFAULT '',
	enabled          BOOLEAN NOT NULL DEFAULT TRUE,
	hidden           BOOLEAN NOT NULL DEFAULT FALSE,
	base_currency_id UUID NOT NULL REFERENCES instruments (id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id            UUID PRIMARY KEY,
	seq           BIGSERIAL NOT NULL,
	account_id    UUID NOT NULL REFERENCES accounts (id),
	date          DATE NOT NULL,
	label         VARCHAR(250) NOT NULL DEFAULT '',
	type          VARCHAR(50) NOT NULL,
	quantity      NUMERIC NOT NULL,
	unit_price    NUMERIC NOT NULL DEFAULT 0,
	instrument_id UUID REFERENCES instruments (id)
);
CREATE INDEX IF NOT EXISTS transactions_account_date ON transactions (account_id, date, seq);

CREATE TABLE IF NOT EXISTS prices (
	id            UUID PRIMARY KEY,
	instrument_id UUID NOT NULL REFERENCES instruments (id),
	currency_id   UUID NOT NULL REFERENCES instruments (id),
	date          DATE NOT NULL,
	price         NUMERIC NOT NULL,
	source        VARCHAR(250) NOT NULL,
	UNIQUE (instrument_id, currency_id, date)
);
`

// Migrate creates the tables if they don't exist yet
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
