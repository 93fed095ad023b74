package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// currencyNamespace derives stable currency IDs from their ISO code
var currencyNamespace = uuid.MustParse("6f1c2f0e-5a7b-4d43-9a51-0c1d3b7e8a20")

// CurrencyID returns the fixed ID of the currency instrument with that code
func CurrencyID(code string) uuid.UUID {
	return uuid.NewSHA1(currencyNamespace, []byte(strings.ToUpper(code)))
}

// CurrencySeeder ensures the configured base currencies exist as instruments.
// A currency is an instrument with no base currency of its own.
type CurrencySeeder struct {
	repo  domain.InstrumentRepository
	codes []string
}

// NewCurrencySeeder creates a new CurrencySeeder instance
func NewCurrencySeeder(repo domain.InstrumentRepository, codes []string) *CurrencySeeder {
	return &CurrencySeeder{
		repo:  repo,
		codes: codes,
	}
}

// Seed creates the missing currencies. Existing ones, found by code, are left untouched.
func (s *CurrencySeeder) Seed(ctx context.Context) error {
	for _, raw := range s.codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		currency := money.GetCurrency(code)
		if currency == nil {
			return &domain.ValidationError{Field: "base_currencies", Value: raw, Message: "unknown currency code"}
		}

		_, err := s.repo.GetByCode(ctx, currency.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to look up currency %s: %w", currency.Code, err)
		}

		instrument := &domain.Instrument{
			ID:       CurrencyID(currency.Code),
			Name:     currency.Code,
			MainCode: currency.Code,
		}
		if err := instrument.Validate(); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, instrument); err != nil {
			return fmt.Errorf("failed to create currency %s: %w", currency.Code, err)
		}
	}
	return nil
}
