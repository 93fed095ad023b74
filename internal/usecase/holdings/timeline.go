package holdings

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// Timeline is the sequence of end-of-day holdings of one account, one snapshot
// per distinct transaction date. A Timeline is read-only once built.
type Timeline struct {
	dates     []domain.Date
	snapshots map[domain.Date]domain.Holdings
	txs       []*domain.Transaction
}

// Reconstruct folds the transactions of an account into a Timeline.
// Transactions are applied in (date, insertion order); all the transactions of a
// day are folded into a single snapshot holding the end-of-day state.
// An account without transactions yields an empty Timeline.
func Reconstruct(txs []*domain.Transaction) *Timeline {
	sorted := domain.SortTransactions(txs)
	tl := &Timeline{
		snapshots: make(map[domain.Date]domain.Holdings),
		txs:       sorted,
	}

	current := domain.NewHoldings()
	for i, tx := range sorted {
		current.Apply(tx)
		last := i == len(sorted)-1 || sorted[i+1].Date != tx.Date
		if last {
			tl.dates = append(tl.dates, tx.Date)
			tl.snapshots[tx.Date] = current.Clone()
		}
	}
	return tl
}

// IsEmpty reports whether the account has no transaction
func (tl *Timeline) IsEmpty() bool { return len(tl.dates) == 0 }

// StartDate returns the date of the first transaction
func (tl *Timeline) StartDate() (domain.Date, bool) {
	if tl.IsEmpty() {
		return domain.Date{}, false
	}
	return tl.dates[0], true
}

// Dates returns the key dates, in chronological order
func (tl *Timeline) Dates() []domain.Date { return slices.Clone(tl.dates) }

// Transactions returns the transactions in the order they were applied
func (tl *Timeline) Transactions() []*domain.Transaction { return slices.Clone(tl.txs) }

// At returns the snapshot valid on a date: the one at the latest key date <= on.
// It returns false before the first transaction.
func (tl *Timeline) At(on domain.Date) (domain.Holdings, bool) {
	i, found := slices.BinarySearchFunc(tl.dates, on, domain.Date.Compare)
	if found {
		return tl.snapshots[on].Clone(), true
	}
	if i == 0 {
		return domain.Holdings{}, false
	}
	return tl.snapshots[tl.dates[i-1]].Clone(), true
}

// Between returns the key dates d with from < d <= to
func (tl *Timeline) Between(from, to domain.Date) []domain.Date {
	var out []domain.Date
	for _, d := range tl.dates {
		if d.After(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	return out
}

// Instruments returns the instruments held with a non-zero quantity at some
// point in [from, to], in order of first appearance
func (tl *Timeline) Instruments(from, to domain.Date) []uuid.UUID {
	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	collect := func(h domain.Holdings) {
		ids := make([]uuid.UUID, 0, len(h.Shares))
		for id, qty := range h.Shares {
			if !qty.IsZero() && !seen[id] {
				ids = append(ids, id)
			}
		}
		slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
		for _, id := range ids {
			seen[id] = true
			out = append(out, id)
		}
	}

	if h, ok := tl.At(from); ok {
		collect(h)
	}
	for _, d := range tl.Between(from, to) {
		collect(tl.snapshots[d])
	}
	return out
}

// LastUnitPrice returns the unit price of the latest transaction on the
// instrument dated on or before on, ignoring transactions without a unit price
func (tl *Timeline) LastUnitPrice(instrumentID uuid.UUID, on domain.Date) (decimal.Decimal, bool) {
	for i := len(tl.txs) - 1; i >= 0; i-- {
		tx := tl.txs[i]
		if tx.Date.After(on) || tx.InstrumentID == nil || *tx.InstrumentID != instrumentID {
			continue
		}
		if !tx.UnitPrice.IsZero() {
			return tx.UnitPrice, true
		}
	}
	return decimal.Zero, false
}
