package domain

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Validate(t *testing.T) {
	accountID := uuid.New()
	instrumentID := uuid.New()
	day := MustParseDate("2024-01-05")

	tests := []struct {
		name    string
		tx      Transaction
		wantErr bool
		errMsg  string
	}{
		{
			name: "Asset buy with instrument and unit price should pass",
			tx: Transaction{
				ID:           uuid.New(),
				AccountID:    accountID,
				Date:         day,
				Label:        "Buy ETF",
				Type:         TransactionTypeAssetBuy,
				Quantity:     decimal.NewFromInt(50),
				UnitPrice:    decimal.NewFromInt(100),
				InstrumentID: &instrumentID,
			},
			wantErr: false,
		},
		{
			name: "Cash deposit without instrument should pass",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: accountID,
				Date:      day,
				Type:      TransactionTypeCashEntry,
				Quantity:  decimal.NewFromInt(10000),
				UnitPrice: decimal.NewFromInt(1),
			},
			wantErr: false,
		},
		{
			name: "Label longer than 250 characters should fail",
			tx: Transaction{
				AccountID: accountID,
				Date:      day,
				Label:     strings.Repeat("a", 251),
				Type:      TransactionTypeCashEntry,
				Quantity:  decimal.NewFromInt(1),
			},
			wantErr: true,
			errMsg:  "max length for transaction label is 250 characters",
		},
		{
			name: "Unknown type should fail",
			tx: Transaction{
				AccountID: accountID,
				Date:      day,
				Type:      TransactionType("gift"),
				Quantity:  decimal.NewFromInt(1),
			},
			wantErr: true,
			errMsg:  "transaction type is invalid",
		},
		{
			name: "Missing quantity should fail",
			tx: Transaction{
				AccountID: accountID,
				Date:      day,
				Type:      TransactionTypeCashEntry,
			},
			wantErr: true,
			errMsg:  "missing transaction quantity",
		},
		{
			name: "Asset sell without unit price should fail",
			tx: Transaction{
				AccountID:    accountID,
				Date:         day,
				Type:         TransactionTypeAssetSell,
				Quantity:     decimal.NewFromInt(3),
				InstrumentID: &instrumentID,
			},
			wantErr: true,
			errMsg:  "missing transaction unit price",
		},
		{
			name: "Fee in units without unit price should pass",
			tx: Transaction{
				AccountID:    accountID,
				Date:         day,
				Type:         TransactionTypeFeeAsset,
				Quantity:     decimal.NewFromInt(1),
				InstrumentID: &instrumentID,
			},
			wantErr: false,
		},
		{
			name: "Dividends without instrument should fail",
			tx: Transaction{
				AccountID: accountID,
				Date:      day,
				Type:      TransactionTypeDividends,
				Quantity:  decimal.NewFromInt(12),
				UnitPrice: decimal.NewFromInt(1),
			},
			wantErr: true,
			errMsg:  "missing transaction instrument",
		},
		{
			name: "Missing date should fail",
			tx: Transaction{
				AccountID: accountID,
				Type:      TransactionTypeCashEntry,
				Quantity:  decimal.NewFromInt(1),
			},
			wantErr: true,
			errMsg:  "missing transaction date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransaction_Totals(t *testing.T) {
	instrumentID := uuid.New()

	tests := []struct {
		name      string
		tx        Transaction
		wantCash  string
		wantAsset string
		wantFlow  string
	}{
		{
			name:      "Asset buy spends cash and adds units",
			tx:        Transaction{Type: TransactionTypeAssetBuy, Quantity: decimal.NewFromInt(50), UnitPrice: decimal.NewFromInt(100), InstrumentID: &instrumentID},
			wantCash:  "-5000",
			wantAsset: "50",
			wantFlow:  "0",
		},
		{
			name:      "Cash deposit adds cash only",
			tx:        Transaction{Type: TransactionTypeCashEntry, Quantity: decimal.NewFromInt(10000), UnitPrice: decimal.NewFromInt(1)},
			wantCash:  "10000",
			wantAsset: "0",
			wantFlow:  "10000",
		},
		{
			name:      "Asset transfer out removes units",
			tx:        Transaction{Type: TransactionTypeTransferOutAsset, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(25), InstrumentID: &instrumentID},
			wantCash:  "0",
			wantAsset: "-4",
			wantFlow:  "-100",
		},
		{
			name:      "Dividends add cash without moving units",
			tx:        Transaction{Type: TransactionTypeDividends, Quantity: decimal.NewFromInt(30), UnitPrice: decimal.NewFromInt(1), InstrumentID: &instrumentID},
			wantCash:  "30",
			wantAsset: "0",
			wantFlow:  "30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCash, tt.tx.CashTotal().String())
			assert.Equal(t, tt.wantAsset, tt.tx.AssetTotal().String())
			assert.Equal(t, tt.wantFlow, tt.tx.Flow().String())
		})
	}
}

func TestTransactionType_Table(t *testing.T) {
	types := TransactionTypes()
	assert.Len(t, types, 22)

	for _, typ := range types {
		impact, ok := typ.Impact()
		require.True(t, ok)
		assert.NotEmpty(t, impact.Name)
		assert.Contains(t, []int{-1, 0, 1}, impact.ImpactCurrency)
		assert.Contains(t, []int{-1, 0, 1}, impact.ImpactAsset)
		if impact.ImpactAsset != 0 {
			assert.True(t, impact.HasAsset, "type %s moves units but has no asset", typ)
		}
	}

	excluded := []TransactionType{
		TransactionTypeCashEntry, TransactionTypeCashExit,
		TransactionTypeTransferInCash, TransactionTypeTransferOutCash,
		TransactionTypeTransferInAsset, TransactionTypeTransferOutAsset,
	}
	for _, typ := range types {
		tx := Transaction{Type: typ}
		assert.Equal(t, slices.Contains(excluded, typ), tx.ExcludedFromNetBaseline(), "type %s", typ)
	}

	_, err := ParseTransactionType("asset_buy")
	assert.NoError(t, err)
	_, err = ParseTransactionType("nope")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSortTransactions_TiesKeepInsertionOrder(t *testing.T) {
	day := MustParseDate("2024-03-01")
	a := &Transaction{Seq: 2, Date: day}
	b := &Transaction{Seq: 1, Date: day}
	c := &Transaction{Seq: 3, Date: day.AddDays(-1)}

	sorted := SortTransactions([]*Transaction{a, b, c})

	assert.Equal(t, []*Transaction{c, b, a}, sorted)
}
