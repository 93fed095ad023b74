package domain

import (
	"github.com/google/uuid"
)

// SyncOrigin is the external source prices of an instrument are downloaded from
type SyncOrigin string

const (
	SyncOriginNone         SyncOrigin = ""
	SyncOriginAlphavantage SyncOrigin = "alphavantage"
	SyncOriginBoursorama   SyncOrigin = "boursorama"
	SyncOriginQuantalys    SyncOrigin = "quantalys"
)

// IsValid reports whether the origin is known. The empty origin means "not synced".
func (o SyncOrigin) IsValid() bool {
	switch o {
	case SyncOriginNone, SyncOriginAlphavantage, SyncOriginBoursorama, SyncOriginQuantalys:
		return true
	}
	return false
}

// Instrument is anything that can be held and priced: a stock, a fund, or a currency.
// Currencies are instruments too, and are the target of price observations.
type Instrument struct {
	ID             uuid.UUID
	Name           string
	MainCode       string
	SyncOrigin     SyncOrigin
	Hidden         bool
	BaseCurrencyID *uuid.UUID // nil for currencies
}

// Validate ensures the instrument adheres to domain rules
func (i *Instrument) Validate() error {
	if i.Name == "" {
		return &ValidationError{Field: "name", Message: "missing share name"}
	}
	if len(i.Name) > maxNameLength {
		return &ValidationError{Field: "name", Value: i.Name, Message: "max length for share name is 250 characters"}
	}
	if len(i.MainCode) > maxNameLength {
		return &ValidationError{Field: "main_code", Value: i.MainCode, Message: "max length for share main code is 250 characters"}
	}
	if i.BaseCurrencyID != nil && *i.BaseCurrencyID == i.ID {
		return &ValidationError{Field: "base_currency_id", Value: i.BaseCurrencyID, Message: "share base currency can't be itself"}
	}
	if !i.SyncOrigin.IsValid() {
		return &ValidationError{Field: "sync_origin", Value: i.SyncOrigin, Message: "share sync origin is invalid"}
	}
	return nil
}

// IsSynced reports whether prices are downloaded automatically
func (i *Instrument) IsSynced() bool { return i.SyncOrigin != SyncOriginNone }

// ShortName returns "name (main code)"
func (i *Instrument) ShortName() string {
	if i.MainCode == "" {
		return i.Name
	}
	return i.Name + " (" + i.MainCode + ")"
}
