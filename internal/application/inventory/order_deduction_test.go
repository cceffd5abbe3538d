package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func milkOrder(quantities ...string) inventory.ProcessOrderInput {
	in := inventory.ProcessOrderInput{OrderID: "ord-1", OrderNumber: "A-100", PerformedBy: "pos"}
	for _, q := range quantities {
		in.LineItems = append(in.LineItems, inventory.OrderLineItem{
			OrderedQuantity: dec("1"),
			Ingredients:     []inventory.Ingredient{{Name: "Fresh Milk", Quantity: dec(q), Unit: "ml"}},
		})
	}
	return in
}

func TestProcessOrder_AgregaIngredientesRepetidos(t *testing.T) {
	f := newFixture(t)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000"), MaxStock: dec("5000")})

	res, err := f.orders.ProcessOrder(context.Background(), milkOrder("50", "80", "70"))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.AllAvailable)
	require.Len(t, res.Successful, 1, "tres líneas del mismo ingrediente se descuentan una sola vez")
	assert.Equal(t, "200", res.Successful[0].Quantity.String())
	assert.Equal(t, "800", res.Successful[0].NewStock.String())
	assert.Equal(t, "800", f.stock(t, milk.ID).String())

	entries := f.ledger(t, milk.ID)
	require.Len(t, entries, 2)
	last := entries[1]
	assert.Equal(t, entity.AdjustmentDeduction, last.Type)
	assert.Equal(t, res.TransactionID, last.TransactionID)
	require.NotNil(t, last.Reference)
	assert.Equal(t, entity.ReferenceOrder, last.Reference.Type)
	assert.Equal(t, "ord-1", last.Reference.ID)
	assert.Equal(t, "A-100", last.Reference.Number)
	assert.Equal(t, 1, f.events.count())
}

func TestProcessOrder_MultiplicaPorCantidadPedidaYConvierte(t *testing.T) {
	f := newFixture(t)
	flour := f.addItem(t, inventory.CreateItemInput{Name: "Flour", Category: "flour", Unit: "kg", InitialStock: dec("10")})
	eggs := f.addItem(t, inventory.CreateItemInput{Name: "Eggs", Unit: "pcs", InitialStock: dec("24")})

	res, err := f.orders.ProcessOrder(context.Background(), inventory.ProcessOrderInput{
		OrderID: "ord-2", OrderNumber: "B-7", PerformedBy: "pos",
		LineItems: []inventory.OrderLineItem{
			{OrderedQuantity: dec("3"), Ingredients: []inventory.Ingredient{
				{Name: "flour", Quantity: dec("250"), Unit: "g"},
				{Name: "EGGS", Quantity: dec("2"), Unit: "pcs"},
			}},
			{OrderedQuantity: dec("1"), Ingredients: []inventory.Ingredient{
				{Name: "Flour", Quantity: dec("0.5"), Unit: "kg"},
			}},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Successful, 2)
	// 3 × 250 g + 0.5 kg = 1.25 kg
	assert.Equal(t, "8.75", f.stock(t, flour.ID).String())
	assert.Equal(t, "18", f.stock(t, eggs.ID).String())

	entries := f.ledger(t, flour.ID)
	assert.Equal(t, "Pedido B-7 (750 g + 0.5 kg)", entries[len(entries)-1].Notes)
}

func TestProcessOrder_TotalEnUnidadChicaSeLimitaEnUnidadBase(t *testing.T) {
	f := newFixture(t)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "l", InitialStock: dec("200")})

	in := milkOrder("250")
	in.LineItems[0].OrderedQuantity = dec("500")
	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.NoError(t, err)
	// 500 × 250 ml = 125000 ml = 125 l, dentro del máximo aunque el número en ml lo supere
	require.True(t, res.Success, "failed: %+v", res.Failed)
	assert.True(t, res.AllAvailable)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Successful, 1)
	assert.Equal(t, "125", res.Successful[0].Quantity.String())
	assert.Equal(t, "75", f.stock(t, milk.ID).String())

	entries := f.ledger(t, milk.ID)
	last := entries[len(entries)-1]
	require.NotNil(t, last.OriginalQuantity)
	assert.Equal(t, "125000", last.OriginalQuantity.String())
	assert.Equal(t, "ml", last.OriginalUnit)
	assert.Equal(t, "125000 ml = 125 l", last.ConversionNote)
}

func TestProcessOrder_RequerimientoQueRedondeaACeroSeRechazaAntesDeConfirmar(t *testing.T) {
	f := newFixture(t)
	salt := f.addItem(t, inventory.CreateItemInput{Name: "Salt", Unit: "kg", InitialStock: dec("5")})
	published := f.events.count()

	res, err := f.orders.ProcessOrder(context.Background(), inventory.ProcessOrderInput{
		OrderID: "ord-3", OrderNumber: "C-1", PerformedBy: "pos",
		LineItems: []inventory.OrderLineItem{{OrderedQuantity: dec("1"), Ingredients: []inventory.Ingredient{
			{Name: "Salt", Quantity: dec("0.04"), Unit: "g"},
		}}},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.AllAvailable, "0.04 g equivale a 0 kg y no cuenta como disponible")
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.CodeInvalidQuantity, res.Failed[0].Code)
	assert.Equal(t, salt.ID, res.Failed[0].ItemID)
	assert.Empty(t, res.Successful)

	assert.Equal(t, "5", f.stock(t, salt.ID).String())
	assert.Len(t, f.ledger(t, salt.ID), 1)
	assert.Equal(t, published, f.events.count())

	report, err := f.orders.CheckAvailability(context.Background(), []inventory.AvailabilityRequest{
		{ItemName: "Salt", Quantity: dec("0.04"), Unit: "g"},
	})
	require.NoError(t, err)
	assert.False(t, report.AllAvailable)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.CodeInvalidQuantity, report.Results[0].Code)
}

func TestProcessOrder_FaltanteNoModificaNingunItem(t *testing.T) {
	f := newFixture(t)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000")})
	sugar := f.addItem(t, inventory.CreateItemInput{Name: "Sugar", Unit: "g", InitialStock: dec("5")})

	in := milkOrder("100")
	in.LineItems[0].Ingredients = append(in.LineItems[0].Ingredients, inventory.Ingredient{Name: "Sugar", Quantity: dec("20"), Unit: "g"})

	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.AllAvailable)
	assert.Empty(t, res.Successful)
	require.Len(t, res.Shortfalls, 1)
	assert.Equal(t, "Sugar", res.Shortfalls[0].Name)
	assert.Equal(t, "15", res.Shortfalls[0].ShortBy.String())

	assert.Equal(t, "1000", f.stock(t, milk.ID).String())
	assert.Equal(t, "5", f.stock(t, sugar.ID).String())
	assert.Zero(t, f.events.count())
}

func TestProcessOrder_IngredienteInexistente(t *testing.T) {
	f := newFixture(t)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000")})

	in := milkOrder("100")
	in.LineItems[0].Ingredients = append(in.LineItems[0].Ingredients, inventory.Ingredient{Name: "Dragon Fruit", Quantity: dec("1")})

	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.CodeItemNotFound, res.Failed[0].Code)
	assert.Equal(t, "1000", f.stock(t, milk.ID).String())
}

func TestProcessOrder_EntradaInvalidaDevuelveError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.ProcessOrder(ctx, inventory.ProcessOrderInput{OrderID: "ord-1"})
	assert.Equal(t, domain.CodeValidation, domain.Code(err))

	_, err = f.orders.ProcessOrder(ctx, milkOrder("0"))
	assert.Equal(t, domain.CodeInvalidQuantity, domain.Code(err))

	in := milkOrder("10")
	in.OrderID = " "
	_, err = f.orders.ProcessOrder(ctx, in)
	assert.Equal(t, domain.CodeValidation, domain.Code(err))
}

func TestProcessOrder_AtomicoRechazoDentroDeLaTxNoAplicaNada(t *testing.T) {
	var hook *hookRunner
	f := newFixture(t, withRunner(func(inner inventory.TxRunner) inventory.TxRunner {
		hook = &hookRunner{inner: inner}
		return hook
	}))
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000")})
	sugar := f.addItem(t, inventory.CreateItemInput{Name: "Sugar", Unit: "g", InitialStock: dec("100")})

	// Otro proceso consume el azúcar entre la verificación y la confirmación
	hook.arm(func(n int) {
		if n == 1 {
			f.drain(t, sugar.ID, "95")
		}
	})

	in := milkOrder("100")
	in.LineItems[0].Ingredients = append(in.LineItems[0].Ingredients, inventory.Ingredient{Name: "Sugar", Quantity: dec("20"), Unit: "g"})

	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.AllAvailable)
	assert.Empty(t, res.Successful)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.CodeInsufficientStock, res.Failed[0].Code)
	require.NotNil(t, res.Failed[0].Available)
	assert.Equal(t, "5", res.Failed[0].Available.String())
	assert.False(t, res.RollbackPerformed, "en modo atómico no hay nada que compensar")

	assert.Equal(t, "1000", f.stock(t, milk.ID).String(), "el descuento de leche se deshace con la tx")
	assert.Len(t, f.ledger(t, milk.ID), 1)
}

func TestProcessOrder_AtomicoErrorTransitorioDevuelveError(t *testing.T) {
	var flaky *flakyRunner
	f := newFixture(t, withRunner(func(inner inventory.TxRunner) inventory.TxRunner {
		flaky = &flakyRunner{inner: inner}
		return flaky
	}))
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000")})
	sugar := f.addItem(t, inventory.CreateItemInput{Name: "Sugar", Unit: "g", InitialStock: dec("100")})
	flaky.itemID = sugar.ID

	in := milkOrder("100")
	in.LineItems[0].Ingredients = append(in.LineItems[0].Ingredients, inventory.Ingredient{Name: "Sugar", Quantity: dec("20"), Unit: "g"})

	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, "1000", f.stock(t, milk.ID).String())
	assert.Equal(t, "100", f.stock(t, sugar.ID).String())
}

func TestProcessOrder_PorItemCompensaLosConfirmados(t *testing.T) {
	var hook *hookRunner
	f := newFixture(t,
		withMode(inventory.BatchModePerItem, true),
		withRunner(func(inner inventory.TxRunner) inventory.TxRunner {
			hook = &hookRunner{inner: inner}
			return hook
		}),
	)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000")})
	sugar := f.addItem(t, inventory.CreateItemInput{Name: "Sugar", Unit: "g", InitialStock: dec("100")})

	// La leche se confirma (tx 1); antes del azúcar (tx 2) otro proceso lo consume
	hook.arm(func(n int) {
		if n == 2 {
			f.drain(t, sugar.ID, "95")
		}
	})

	in := milkOrder("100")
	in.LineItems[0].Ingredients = append(in.LineItems[0].Ingredients, inventory.Ingredient{Name: "Sugar", Quantity: dec("20"), Unit: "g"})

	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Successful, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.CodeInsufficientStock, res.Failed[0].Code)
	assert.True(t, res.RollbackPerformed)
	assert.Empty(t, res.FailedRollbacks)

	assert.Equal(t, "1000", f.stock(t, milk.ID).String(), "la leche vuelve a su valor por compensación")
	entries := f.ledger(t, milk.ID)
	require.Len(t, entries, 3, "inicial + descuento + compensación; nada se borra")
	assert.True(t, entries[2].IsRollback())
	assert.Equal(t, entries[1].ID, entries[2].Reference.Number)
}

func TestProcessOrder_PorItemSinRollbackDejaParcial(t *testing.T) {
	var hook *hookRunner
	f := newFixture(t,
		withMode(inventory.BatchModePerItem, false),
		withRunner(func(inner inventory.TxRunner) inventory.TxRunner {
			hook = &hookRunner{inner: inner}
			return hook
		}),
	)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000")})
	sugar := f.addItem(t, inventory.CreateItemInput{Name: "Sugar", Unit: "g", InitialStock: dec("100")})
	hook.arm(func(n int) {
		if n == 2 {
			f.drain(t, sugar.ID, "95")
		}
	})

	in := milkOrder("100")
	in.LineItems[0].Ingredients = append(in.LineItems[0].Ingredients, inventory.Ingredient{Name: "Sugar", Quantity: dec("20"), Unit: "g"})

	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.RollbackPerformed)
	assert.Equal(t, "900", f.stock(t, milk.ID).String())
}

func TestProcessOrder_PorItemRollbackBloqueadoSeReporta(t *testing.T) {
	var hook *hookRunner
	f := newFixture(t,
		withMode(inventory.BatchModePerItem, true),
		withGuard(busyGuard{}),
		withRunner(func(inner inventory.TxRunner) inventory.TxRunner {
			hook = &hookRunner{inner: inner}
			return hook
		}),
	)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Unit: "ml", InitialStock: dec("1000")})
	sugar := f.addItem(t, inventory.CreateItemInput{Name: "Sugar", Unit: "g", InitialStock: dec("100")})
	hook.arm(func(n int) {
		if n == 2 {
			f.drain(t, sugar.ID, "95")
		}
	})

	in := milkOrder("100")
	in.LineItems[0].Ingredients = append(in.LineItems[0].Ingredients, inventory.Ingredient{Name: "Sugar", Quantity: dec("20"), Unit: "g"})

	res, err := f.orders.ProcessOrder(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.RollbackPerformed)
	require.Len(t, res.FailedRollbacks, 1, "la compensación pendiente nunca se oculta")
	assert.Equal(t, domain.CodeRollbackInProgress, res.FailedRollbacks[0].Code)
	assert.Equal(t, res.Successful[0].AdjustmentID, res.FailedRollbacks[0].AdjustmentID)
	assert.Equal(t, "900", f.stock(t, milk.ID).String())
}

func TestCheckAvailability_SoloLectura(t *testing.T) {
	f := newFixture(t)
	milk := f.addItem(t, inventory.CreateItemInput{Name: "Fresh Milk", Category: "dairy", Unit: "l", InitialStock: dec("2")})
	f.addItem(t, inventory.CreateItemInput{Name: "Butter", Unit: "g", InitialStock: dec("100")})

	report, err := f.orders.CheckAvailability(context.Background(), []inventory.AvailabilityRequest{
		{ItemName: "Butter", Quantity: dec("250"), Unit: "g"},
		{ItemName: "fresh milk", Quantity: dec("500"), Unit: "ml"},
		{ItemName: "Truffle", Quantity: dec("1"), Unit: "g"},
		{ItemName: "Fresh Milk", Quantity: dec("1"), Unit: "l"},
	})
	require.NoError(t, err)
	assert.False(t, report.AllAvailable)
	require.Len(t, report.Results, 3)

	assert.Equal(t, "Butter", report.Results[0].ItemName)
	assert.False(t, report.Results[0].Sufficient)
	assert.Equal(t, domain.CodeInsufficientStock, report.Results[0].Code)

	assert.True(t, report.Results[1].Sufficient)
	assert.Equal(t, "1.5", report.Results[1].Required.String(), "500 ml + 1 l")
	assert.Equal(t, "l", report.Results[1].Unit)

	assert.False(t, report.Results[2].Found)
	assert.Equal(t, domain.CodeItemNotFound, report.Results[2].Code)

	require.Len(t, report.InsufficientItems, 1)
	assert.Equal(t, "150", report.InsufficientItems[0].ShortBy.String())
	assert.Equal(t, "2", f.stock(t, milk.ID).String())
}

func TestParseBatchMode(t *testing.T) {
	assert.Equal(t, inventory.BatchModePerItem, inventory.ParseBatchMode(" PER_ITEM "))
	assert.Equal(t, inventory.BatchModeAtomic, inventory.ParseBatchMode("atomic"))
	assert.Equal(t, inventory.BatchModeAtomic, inventory.ParseBatchMode(""))
	assert.Equal(t, inventory.BatchModeAtomic, inventory.ParseBatchMode("lo-que-sea"))
}
