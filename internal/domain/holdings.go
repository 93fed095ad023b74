package domain

import (
	"maps"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holdings is the state of an account at the end of a day: its cash, and the
// quantity held of each instrument it ever held. Zero quantities are kept.
type Holdings struct {
	Cash   decimal.Decimal
	Shares map[uuid.UUID]decimal.Decimal
}

// NewHoldings returns empty holdings
func NewHoldings() Holdings {
	return Holdings{Cash: decimal.Zero, Shares: make(map[uuid.UUID]decimal.Decimal)}
}

// Clone returns an independent copy
func (h Holdings) Clone() Holdings {
	out := Holdings{Cash: h.Cash, Shares: make(map[uuid.UUID]decimal.Decimal, len(h.Shares))}
	maps.Copy(out.Shares, h.Shares)
	return out
}

// Quantity returns the quantity held of an instrument, zero if never held
func (h Holdings) Quantity(instrumentID uuid.UUID) decimal.Decimal {
	if q, ok := h.Shares[instrumentID]; ok {
		return q
	}
	return decimal.Zero
}

// Apply folds a transaction into the holdings. Any transaction with an asset
// records an entry for its instrument, even when the quantity does not move.
func (h *Holdings) Apply(tx *Transaction) {
	h.Cash = h.Cash.Add(tx.CashTotal())
	impact, _ := tx.Type.Impact()
	if impact.HasAsset && tx.InstrumentID != nil {
		h.Shares[*tx.InstrumentID] = h.Quantity(*tx.InstrumentID).Add(tx.AssetTotal())
	}
}
