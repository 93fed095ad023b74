package domain

import (
	"github.com/google/uuid"
)

const maxNameLength = 250

// Account is an investment account. Its value is expressed in its base currency.
type Account struct {
	ID             uuid.UUID
	Name           string
	Code           string
	Enabled        bool
	Hidden         bool
	BaseCurrencyID uuid.UUID
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.Name == "" {
		return &ValidationError{Field: "name", Message: "missing account name"}
	}
	if len(a.Name) > maxNameLength {
		return &ValidationError{Field: "name", Value: a.Name, Message: "max length for account name is 250 characters"}
	}
	if len(a.Code) > maxNameLength {
		return &ValidationError{Field: "code", Value: a.Code, Message: "max length for account code is 250 characters"}
	}
	if a.BaseCurrencyID == uuid.Nil {
		return &ValidationError{Field: "base_currency_id", Message: "missing account base currency"}
	}
	return nil
}

// Label returns the name displayed on graphs
func (a *Account) Label() string {
	if a.Code == "" {
		return a.Name
	}
	return a.Name + " (" + a.Code + ")"
}
