package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceObservation is the price of one unit of an instrument, expressed in a currency, on a date.
// At most one observation exists per (instrument, currency, date).
type PriceObservation struct {
	ID           uuid.UUID
	InstrumentID uuid.UUID
	CurrencyID   uuid.UUID
	Date         Date
	Price        decimal.Decimal
	Source       string
}

// Validate ensures the observation adheres to domain rules
func (p *PriceObservation) Validate() error {
	if p.InstrumentID == uuid.Nil {
		return &ValidationError{Field: "share_id", Message: "missing share"}
	}
	if p.CurrencyID == uuid.Nil {
		return &ValidationError{Field: "currency_id", Message: "missing currency"}
	}
	if p.CurrencyID == p.InstrumentID {
		return &ValidationError{Field: "currency_id", Value: p.CurrencyID, Message: "price currency must differ from the share"}
	}
	if p.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "missing date"}
	}
	if p.Price.IsZero() {
		return &ValidationError{Field: "price", Value: p.Price, Message: "missing price"}
	}
	if p.Source == "" {
		return &ValidationError{Field: "source", Message: "missing source"}
	}
	if len(p.Source) > maxNameLength {
		return &ValidationError{Field: "source", Value: p.Source, Message: "max length for source is 250 characters"}
	}
	return nil
}
