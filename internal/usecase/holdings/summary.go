package holdings

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// dustThreshold is the absolute quantity under which a balance counts as zero
var dustThreshold = decimal.New(1, -8)

// Summary is the final state of an account once all its transactions are applied
type Summary struct {
	StartDate     *domain.Date
	Balance       decimal.Decimal
	Shares        map[uuid.UUID]decimal.Decimal // non-zero quantities only
	TotalInvested decimal.Decimal               // sum of cash deposits
}

// Summarize computes the final balance, holdings and invested amount of the timeline
func (tl *Timeline) Summarize() Summary {
	s := Summary{
		Balance:       decimal.Zero,
		Shares:        make(map[uuid.UUID]decimal.Decimal),
		TotalInvested: decimal.Zero,
	}
	if start, ok := tl.StartDate(); ok {
		s.StartDate = &start
		last, _ := tl.At(tl.dates[len(tl.dates)-1])
		s.Balance = last.Cash
		for id, qty := range last.Shares {
			if qty.Abs().GreaterThanOrEqual(dustThreshold) {
				s.Shares[id] = qty
			}
		}
	}
	if s.Balance.Abs().LessThan(dustThreshold) {
		s.Balance = decimal.Zero
	}
	for _, tx := range tl.txs {
		if tx.Type == domain.TransactionTypeCashEntry {
			s.TotalInvested = s.TotalInvested.Add(tx.Quantity)
		}
	}
	return s
}

// BalanceAfter returns the cash balance, and the quantity of the transaction's
// instrument, right after the given transaction is applied. Same-day
// transactions count in insertion order.
func (tl *Timeline) BalanceAfter(txID uuid.UUID) (cash, asset decimal.Decimal, err error) {
	cash, asset = decimal.Zero, decimal.Zero
	idx := -1
	for i, tx := range tl.txs {
		if tx.ID == txID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return cash, asset, domain.ErrUnknownTransaction
	}

	target := tl.txs[idx]
	for _, tx := range tl.txs[:idx+1] {
		cash = cash.Add(tx.CashTotal())
		if sameInstrument(tx, target) {
			asset = asset.Add(tx.AssetTotal())
		}
	}
	return cash, asset, nil
}

func sameInstrument(a, b *domain.Transaction) bool {
	if a.InstrumentID == nil || b.InstrumentID == nil {
		return a.InstrumentID == nil && b.InstrumentID == nil
	}
	return *a.InstrumentID == *b.InstrumentID
}
