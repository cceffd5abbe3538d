package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func seedLedger(t *testing.T, f *fixture) (*entity.InventoryItem, *entity.InventoryItem) {
	t.Helper()
	ctx := context.Background()
	beans := f.addItem(t, inventory.CreateItemInput{Name: "Espresso Beans", Unit: "kg", InitialStock: dec("10")})
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "l", InitialStock: dec("20")})
	steps := []struct {
		item  *entity.InventoryItem
		typ   entity.AdjustmentType
		qty   string
		notes string
	}{
		{beans, entity.AdjustmentUsage, "1", "molienda"},
		{beans, entity.AdjustmentWaste, "0.5", "bolsa rota"},
		{milk, entity.AdjustmentWaste, "1", "vencida"},
		{milk, entity.AdjustmentRestock, "5", "proveedor"},
		{beans, entity.AdjustmentWaste, "0.25", "derrame"},
	}
	for _, s := range steps {
		_, err := f.engine.Adjust(ctx, s.item.ID, inventory.AdjustInput{Type: s.typ, Quantity: dec(s.qty), Notes: s.notes, PerformedBy: "x"})
		require.NoError(t, err)
	}
	return beans, milk
}

func TestAuditList_FiltrosPaginacionYEstadisticas(t *testing.T) {
	f := newFixture(t)
	beans, _ := seedLedger(t, f)
	ctx := context.Background()

	page, err := f.audit.List(ctx, inventory.AuditFilter{Type: "waste", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, "derrame", page.Entries[0].Notes, "más recientes primero")
	assert.Equal(t, 3, page.Stats["waste"])
	assert.Equal(t, 0, page.Stats["restock"], "las estadísticas siguen el filtro")
	assert.Len(t, page.Stats, len(entity.AdjustmentTypes))

	page, err = f.audit.List(ctx, inventory.AuditFilter{Type: "waste", Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	page, err = f.audit.List(ctx, inventory.AuditFilter{ItemID: beans.ID, Search: "BOLSA"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "bolsa rota", page.Entries[0].Notes)

	page, err = f.audit.List(ctx, inventory.AuditFilter{Search: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Total, "busca también por nombre del ítem")

	page, err = f.audit.List(ctx, inventory.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Pagination.Limit)
	assert.Equal(t, 7, page.Pagination.Total)
	assert.Equal(t, 2, page.Stats["correction"])
}

func TestAuditList_RangoDeFechas(t *testing.T) {
	f := newFixture(t)
	seedLedger(t, f)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	page, err := f.audit.List(ctx, inventory.AuditFilter{From: &past, To: &future})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Pagination.Total)

	page, err = f.audit.List(ctx, inventory.AuditFilter{From: &future})
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
	assert.NotNil(t, page.Entries)

	_, err = f.audit.List(ctx, inventory.AuditFilter{From: &future, To: &past})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))
}

func TestAuditList_FiltrosInvalidos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.audit.List(ctx, inventory.AuditFilter{ItemID: "123"})
	assert.Equal(t, domain.CodeInvalidItemID, domain.Code(err))

	_, err = f.audit.List(ctx, inventory.AuditFilter{Type: "theft"})
	assert.Equal(t, domain.CodeInvalidType, domain.Code(err))

	_, err = f.audit.List(ctx, inventory.AuditFilter{ReferenceType: "gift"})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))

	page, err := f.audit.List(ctx, inventory.AuditFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Pagination.Limit)
}

func TestListFromQuery_FechaSolaCubreElDia(t *testing.T) {
	f := newFixture(t)
	seedLedger(t, f)

	today := time.Now().UTC().Format(time.DateOnly)
	out, err := f.audit.ListFromQuery(context.Background(), dto.AdjustmentListQuery{From: today, To: today, ReferenceType: "adjustment"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Pagination.Total, "los dos stocks iniciales")

	_, err = f.audit.ListFromQuery(context.Background(), dto.AdjustmentListQuery{From: "16/10/2026"})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))
}

func TestHistory_DetectaLedgerInconsistente(t *testing.T) {
	f := newFixture(t)
	beans, _ := seedLedger(t, f)
	ctx := context.Background()

	h, err := f.audit.History(ctx, beans.ID)
	require.NoError(t, err)
	assert.True(t, h.Consistent)
	assert.Equal(t, "8.25", h.ReplayedStock.String())
	assert.Len(t, h.Entries, 4)

	// Una escritura que salta el motor rompe la igualdad con el replay
	require.NoError(t, f.store.Items().ApplyDelta(ctx, beans.ID, dec("9"), entity.StatusOK, nil))
	h, err = f.audit.History(ctx, beans.ID)
	require.NoError(t, err)
	assert.False(t, h.Consistent)
	assert.Equal(t, -1, h.BrokenAt)
	assert.Equal(t, "8.25", h.ReplayedStock.String())

	_, err = f.audit.History(ctx, "6f1c2c44-7a0e-4a55-8a6e-2f5d1d3b9c10")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}
