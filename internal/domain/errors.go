package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNoPrice is matched by every *NoPriceError
	ErrNoPrice = errors.New("no price")

	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("invalid")

	// ErrUnsupported is matched by every *CapabilityError
	ErrUnsupported = errors.New("unsupported")

	// ErrNotFound is returned by repositories when an entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrEmptySeries is returned when there is no value to normalize
	ErrEmptySeries = errors.New("no value to graph")

	// ErrZeroBaseline is returned when the baseline value is zero
	ErrZeroBaseline = errors.New("baseline value is zero")

	// ErrComputationInProgress is returned when an element's series is requested
	// while that same element is already being computed
	ErrComputationInProgress = errors.New("computation already in progress")
)

// NoPriceError is raised when a value cannot be resolved because no qualifying
// price observation exists. It is non-fatal and scoped to a single element.
type NoPriceError struct {
	InstrumentID uuid.UUID
	CurrencyID   uuid.UUID
	AccountID    *uuid.UUID
	Date         *Date
	Reason       string
}

func (e *NoPriceError) Error() string {
	var b strings.Builder
	reason := e.Reason
	if reason == "" {
		reason = "no price found"
	}
	b.WriteString(reason)
	fmt.Fprintf(&b, " for instrument %s", e.InstrumentID)
	if e.CurrencyID != uuid.Nil {
		fmt.Fprintf(&b, " in currency %s", e.CurrencyID)
	}
	if e.Date != nil {
		fmt.Fprintf(&b, " on or before %s", e.Date)
	}
	if e.AccountID != nil {
		fmt.Fprintf(&b, " (account %s)", e.AccountID)
	}
	return b.String()
}

func (e *NoPriceError) Is(target error) bool { return target == ErrNoPrice }

// ForAccount returns a copy of the error attributed to the given account
func (e *NoPriceError) ForAccount(accountID uuid.UUID) *NoPriceError {
	out := *e
	out.AccountID = &accountID
	return &out
}

// AttachAccount attributes a *NoPriceError found in err's chain to the account.
// Other errors are returned unchanged.
func AttachAccount(err error, accountID uuid.UUID) error {
	var noPrice *NoPriceError
	if errors.As(err, &noPrice) && noPrice.AccountID == nil {
		return noPrice.ForAccount(accountID)
	}
	return err
}

// ValidationError is raised for structurally invalid input (missing field,
// start date after end date...). It is always reported before any computation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CapabilityError is raised for valid but unsupported combinations, like the
// split mode with several accounts. It is guidance for the user, not a failure.
type CapabilityError struct {
	Message string
}

func (e *CapabilityError) Error() string { return e.Message }

func (e *CapabilityError) Is(target error) bool { return target == ErrUnsupported }
