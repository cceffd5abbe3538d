package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDeriveStatus_OrdenDeUmbrales(t *testing.T) {
	reorder, minStock := dec("15"), dec("10")
	assert.Equal(t, entity.StatusCritical, entity.DeriveStatus(dec("0"), reorder, minStock))
	assert.Equal(t, entity.StatusLow, entity.DeriveStatus(dec("2"), reorder, minStock))
	assert.Equal(t, entity.StatusLow, entity.DeriveStatus(dec("15"), reorder, minStock))
	assert.Equal(t, entity.StatusOK, entity.DeriveStatus(dec("15.01"), reorder, minStock))

	// reorderPoint < minStock: la franja warning queda entre ambos
	assert.Equal(t, entity.StatusWarning, entity.DeriveStatus(dec("8"), dec("5"), dec("10")))
}

func TestDeriveStatus_Monotono(t *testing.T) {
	rank := map[entity.StockStatus]int{
		entity.StatusCritical: 0, entity.StatusLow: 1, entity.StatusWarning: 2, entity.StatusOK: 3,
	}
	prev := -1
	for i := 0; i <= 40; i++ {
		r := rank[entity.DeriveStatus(decimal.NewFromInt(int64(i)), dec("10"), dec("20"))]
		assert.GreaterOrEqual(t, r, prev)
		prev = r
	}
}

func TestAdjustmentType_Apply(t *testing.T) {
	next, out := entity.AdjustmentRestock.Apply(dec("2"), dec("5"))
	assert.Equal(t, entity.DeltaApplied, out)
	assert.True(t, next.Equal(dec("7")))

	_, out = entity.AdjustmentRestock.Apply(dec("99999"), dec("2"))
	assert.Equal(t, entity.DeltaOverCapacity, out)

	for _, typ := range []entity.AdjustmentType{entity.AdjustmentUsage, entity.AdjustmentWaste, entity.AdjustmentDeduction} {
		next, out = typ.Apply(dec("1"), dec("0.4"))
		assert.Equal(t, entity.DeltaApplied, out)
		assert.True(t, next.Equal(dec("0.6")))

		_, out = typ.Apply(dec("0.3"), dec("0.5"))
		assert.Equal(t, entity.DeltaInsufficient, out, typ.String())
	}

	next, out = entity.AdjustmentCorrection.Apply(dec("50"), dec("12"))
	assert.Equal(t, entity.DeltaApplied, out)
	assert.True(t, next.Equal(dec("12")))

	next, _ = entity.AdjustmentCorrection.Apply(dec("50"), dec("200000"))
	assert.True(t, next.Equal(entity.MaxStock))
}

func TestAdjustmentType_TextoJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Type entity.AdjustmentType `json:"type"`
	}{entity.AdjustmentDeduction})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"deduction"}`, string(b))

	var in struct {
		Type entity.AdjustmentType `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Restock"}`), &in))
	assert.Equal(t, entity.AdjustmentRestock, in.Type)
	assert.Error(t, json.Unmarshal([]byte(`{"type":"theft"}`), &in))

	_, ok := entity.ParseAdjustmentType("waste")
	assert.True(t, ok)
	assert.False(t, entity.AdjustmentType(0).Valid())
}

func TestReplayLedger(t *testing.T) {
	entries := []*entity.StockAdjustment{
		{Type: entity.AdjustmentCorrection, Quantity: dec("2"), PreviousStock: dec("0"), NewStock: dec("2")},
		{Type: entity.AdjustmentRestock, Quantity: dec("5"), PreviousStock: dec("2"), NewStock: dec("7")},
		{Type: entity.AdjustmentDeduction, Quantity: dec("1.5"), PreviousStock: dec("7"), NewStock: dec("5.5")},
	}
	stock, bad := entity.ReplayLedger(entries)
	assert.Equal(t, -1, bad)
	assert.True(t, stock.Equal(dec("5.5")))

	entries[2].NewStock = dec("6")
	_, bad = entity.ReplayLedger(entries)
	assert.Equal(t, 2, bad)
}
