package domain

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// List retrieves the enabled accounts, including hidden ones if requested
	List(ctx context.Context, includeHidden bool) ([]*Account, error)

	// Create creates a new account
	Create(ctx context.Context, account *Account) error
}

// InstrumentRepository defines the interface for instrument persistence operations
type InstrumentRepository interface {
	// GetByID retrieves an instrument by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Instrument, error)

	// GetByCode retrieves an instrument by its main code
	GetByCode(ctx context.Context, code string) (*Instrument, error)

	// List retrieves all instruments
	List(ctx context.Context) ([]*Instrument, error)

	// Create creates a new instrument
	Create(ctx context.Context, instrument *Instrument) error
}

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// Create creates a new transaction and assigns its insertion sequence
	Create(ctx context.Context, tx *Transaction) error

	// ListByAccount retrieves all transactions of an account, ordered by (date, insertion order)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error)
}

// PriceRepository defines the interface for price observation persistence operations
type PriceRepository interface {
	// Add creates a new price observation
	Add(ctx context.Context, price *PriceObservation) error

	// Observations retrieves the observations of an instrument in a currency
	// between start and end (both inclusive), ordered by date
	Observations(ctx context.Context, instrumentID, currencyID uuid.UUID, start, end Date) ([]*PriceObservation, error)

	// FirstDate returns the date of the earliest observation, false if there is none
	FirstDate(ctx context.Context, instrumentID, currencyID uuid.UUID) (Date, bool, error)

	// CountByMonth returns the number of observations of the instrument in a
	// currency for each month from the month of since onwards, keyed by first day of month
	CountByMonth(ctx context.Context, instrumentID, currencyID uuid.UUID, since Date) (map[Date]int, error)
}
