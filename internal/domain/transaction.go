package domain

import (
	"cmp"
	"errors"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the kind of a transaction. It defines its cash and asset impacts.
type TransactionType string

const (
	TransactionTypeArbitrageBuy        TransactionType = "arbitrage_buy"
	TransactionTypeArbitrageSell       TransactionType = "arbitrage_sell"
	TransactionTypeAssetBuy            TransactionType = "asset_buy"
	TransactionTypeAssetSell           TransactionType = "asset_sell"
	TransactionTypeCashEntry           TransactionType = "cash_entry"
	TransactionTypeCashExit            TransactionType = "cash_exit"
	TransactionTypeCompanyFundingCash  TransactionType = "company_funding_cash"
	TransactionTypeCompanyFundingAsset TransactionType = "company_funding_asset"
	TransactionTypeDividends           TransactionType = "dividends"
	TransactionTypeFeeAsset            TransactionType = "fee_asset"
	TransactionTypeFeeCash             TransactionType = "fee_cash"
	TransactionTypeMovementFee         TransactionType = "movement_fee"
	TransactionTypeProfitAsset         TransactionType = "profit_asset"
	TransactionTypeProfitCash          TransactionType = "profit_cash"
	TransactionTypeSplitSource         TransactionType = "split_source"
	TransactionTypeSplitTarget         TransactionType = "split_target"
	TransactionTypeTaxesCash           TransactionType = "taxes_cash"
	TransactionTypeTaxesAsset          TransactionType = "taxes_asset"
	TransactionTypeTransferInCash      TransactionType = "transfer_in_cash"
	TransactionTypeTransferInAsset     TransactionType = "transfer_in_asset"
	TransactionTypeTransferOutCash     TransactionType = "transfer_out_cash"
	TransactionTypeTransferOutAsset    TransactionType = "transfer_out_asset"
)

// TypeImpact holds the fixed coefficients of a transaction type.
//
// ImpactCurrency and ImpactAsset are -1, 0 or 1. HasAsset may be true even when
// ImpactAsset is 0 (fees paid for an asset, dividends). ExcludeFromNetBaseline
// marks external flows (deposits, withdrawals, transfers) that the net baseline
// graph removes.
type TypeImpact struct {
	Name                   string
	ImpactCurrency         int
	ImpactAsset            int
	HasAsset               bool
	ExcludeFromNetBaseline bool
}

var transactionTypes = map[TransactionType]TypeImpact{
	TransactionTypeArbitrageBuy:        {"Arbitrage - Buy", 0, 1, true, false},
	TransactionTypeArbitrageSell:       {"Arbitrage - Sell", 0, -1, true, false},
	TransactionTypeAssetBuy:            {"Asset buy / subscription", -1, 1, true, false},
	TransactionTypeAssetSell:           {"Asset sell", 1, -1, true, false},
	TransactionTypeCashEntry:           {"Cash deposit", 1, 0, false, true},
	TransactionTypeCashExit:            {"Cash withdrawal", -1, 0, false, true},
	TransactionTypeCompanyFundingCash:  {"Company funding - Cash", 1, 0, false, false},
	TransactionTypeCompanyFundingAsset: {"Company funding - Asset", 0, 1, true, false},
	TransactionTypeDividends:           {"Dividends", 1, 0, true, false},
	TransactionTypeFeeAsset:            {"Management fee - in units", 0, -1, true, false},
	TransactionTypeFeeCash:             {"Management fee - in cash", -1, 0, false, false},
	TransactionTypeMovementFee:         {"Movement fee", -1, 0, true, false},
	TransactionTypeProfitAsset:         {"Profit - in units", 0, 1, true, false},
	TransactionTypeProfitCash:          {"Profit - in cash", 1, 0, true, false},
	TransactionTypeSplitSource:         {"Split & merge - Source", 0, -1, true, false},
	TransactionTypeSplitTarget:         {"Split & merge - Target", 0, 1, true, false},
	TransactionTypeTaxesCash:           {"Taxes - in cash", -1, 0, false, false},
	TransactionTypeTaxesAsset:          {"Taxes - in units", 0, -1, true, false},
	TransactionTypeTransferInCash:      {"Transfer - Cash in", 1, 0, false, true},
	TransactionTypeTransferInAsset:     {"Transfer - Asset in", 0, 1, true, true},
	TransactionTypeTransferOutCash:     {"Transfer - Cash out", -1, 0, false, true},
	TransactionTypeTransferOutAsset:    {"Transfer - Asset out", 0, -1, true, true},
}

// Impact returns the coefficients of the type
func (t TransactionType) Impact() (TypeImpact, bool) {
	impact, ok := transactionTypes[t]
	return impact, ok
}

// IsValid reports whether t is one of the known transaction types
func (t TransactionType) IsValid() bool {
	_, ok := transactionTypes[t]
	return ok
}

// ParseTransactionType converts a type name into a TransactionType
func ParseTransactionType(name string) (TransactionType, error) {
	t := TransactionType(name)
	if !t.IsValid() {
		return "", &ValidationError{Field: "type", Value: name, Message: "transaction type is invalid"}
	}
	return t, nil
}

// TransactionTypes returns all known types, sorted by name
func TransactionTypes() []TransactionType {
	types := make([]TransactionType, 0, len(transactionTypes))
	for t := range transactionTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Transaction represents a cash or asset movement recorded on an account.
// Transactions are immutable once created.
type Transaction struct {
	ID           uuid.UUID
	Seq          int64 // insertion order, breaks ties between same-day transactions
	AccountID    uuid.UUID
	Date         Date
	Label        string
	Type         TransactionType
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	InstrumentID *uuid.UUID // required when the type has an asset
}

const maxLabelLength = 250

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if len(t.Label) > maxLabelLength {
		return &ValidationError{Field: "label", Value: t.Label, Message: "max length for transaction label is 250 characters"}
	}
	if t.Type == "" {
		return &ValidationError{Field: "type", Message: "missing transaction type"}
	}
	impact, ok := t.Type.Impact()
	if !ok {
		return &ValidationError{Field: "type", Value: t.Type, Message: "transaction type is invalid"}
	}
	if t.AccountID == uuid.Nil {
		return &ValidationError{Field: "account_id", Message: "missing transaction account"}
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "missing transaction date"}
	}
	if t.Quantity.IsZero() {
		return &ValidationError{Field: "quantity", Value: t.Quantity, Message: "missing transaction quantity"}
	}
	if impact.HasAsset && impact.ImpactCurrency != 0 && t.UnitPrice.IsZero() {
		return &ValidationError{Field: "unit_price", Value: t.UnitPrice, Message: "missing transaction unit price"}
	}
	if (impact.HasAsset || impact.ImpactAsset != 0) && (t.InstrumentID == nil || *t.InstrumentID == uuid.Nil) {
		return &ValidationError{Field: "instrument_id", Message: "missing transaction instrument"}
	}
	return nil
}

// CashTotal returns the cash change due to this transaction (may be negative)
func (t *Transaction) CashTotal() decimal.Decimal {
	impact, _ := t.Type.Impact()
	return decimal.NewFromInt(int64(impact.ImpactCurrency)).Mul(t.Quantity).Mul(t.UnitPrice)
}

// AssetTotal returns the asset quantity change due to this transaction (may be negative)
func (t *Transaction) AssetTotal() decimal.Decimal {
	impact, _ := t.Type.Impact()
	return decimal.NewFromInt(int64(impact.ImpactAsset)).Mul(t.Quantity)
}

// Flow returns the monetary amount this transaction brings into the account:
// its cash change plus its asset change valued at the transaction's unit price
func (t *Transaction) Flow() decimal.Decimal {
	return t.CashTotal().Add(t.AssetTotal().Mul(t.UnitPrice))
}

// ExcludedFromNetBaseline reports whether the transaction is an external flow
func (t *Transaction) ExcludedFromNetBaseline() bool {
	impact, _ := t.Type.Impact()
	return impact.ExcludeFromNetBaseline
}

// MovesAsset reports whether the transaction changes an instrument quantity
func (t *Transaction) MovesAsset() bool {
	impact, _ := t.Type.Impact()
	return impact.ImpactAsset != 0 && t.InstrumentID != nil
}

// SortTransactions returns a copy of txs sorted by (date, insertion order)
func SortTransactions(txs []*Transaction) []*Transaction {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b *Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return sorted
}

// ErrUnknownTransaction is returned when a transaction is not part of an account
var ErrUnknownTransaction = errors.New("transaction doesn't exist in that account")
