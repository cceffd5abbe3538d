package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalizeUnit_AliasYMayusculas(t *testing.T) {
	assert.Equal(t, "kg", inventory.NormalizeUnit(" KG "))
	assert.Equal(t, "kg", inventory.NormalizeUnit("Kilogramos"))
	assert.Equal(t, "l", inventory.NormalizeUnit("L"))
	assert.Equal(t, "fl_oz", inventory.NormalizeUnit("fl oz"))
	assert.Equal(t, "pcs", inventory.NormalizeUnit("piece"))
	assert.Equal(t, "", inventory.NormalizeUnit("barril"))
	assert.True(t, inventory.IsValidUnit("ml"))
	assert.False(t, inventory.IsValidUnit(""))
}

func TestGetUnitCategory(t *testing.T) {
	cat, err := inventory.GetUnitCategory("lb")
	require.NoError(t, err)
	assert.Equal(t, inventory.CategoryWeight, cat)

	cat, err = inventory.GetUnitCategory("cup")
	require.NoError(t, err)
	assert.Equal(t, inventory.CategoryVolume, cat)

	_, err = inventory.GetUnitCategory("xyz")
	assert.ErrorIs(t, err, domain.ErrInvalidUnit)

	assert.True(t, inventory.AreUnitsCompatible("g", "kg"))
	assert.False(t, inventory.AreUnitsCompatible("g", "ml"))
	assert.False(t, inventory.AreUnitsCompatible("g", "xyz"))
}

func TestSmartConvert_MismaCategoria(t *testing.T) {
	got, err := inventory.SmartConvert(dec("500"), "g", "kg", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("0.5")), got.String())

	got, err = inventory.SmartConvert(dec("2"), "l", "ml", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("2000")), got.String())

	got, err = inventory.SmartConvert(dec("2"), "dozen", "pcs", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("24")), got.String())
}

func TestSmartConvert_ConDensidad(t *testing.T) {
	// 1 l de leche (1.03 g/ml) = 1.03 kg
	got, err := inventory.SmartConvert(dec("1"), "l", "kg", dec("1.03"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("1.03")), got.String())

	// 103 g de leche = 100 ml
	got, err = inventory.SmartConvert(dec("103"), "g", "ml", dec("1.03"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("100")), got.String())
}

func TestSmartConvert_SinDensidadFallaConMissingDensity(t *testing.T) {
	_, err := inventory.SmartConvert(dec("1"), "kg", "l", decimal.Zero)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingDensity)

	var cerr *inventory.ConversionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, inventory.CategoryWeight, cerr.FromCategory)
	assert.Equal(t, inventory.CategoryVolume, cerr.ToCategory)
}

func TestSmartConvert_ConteoContraPesoEsIncompatible(t *testing.T) {
	_, err := inventory.SmartConvert(dec("3"), "pcs", "kg", dec("1"))
	assert.ErrorIs(t, err, domain.ErrIncompatibleUnits)
}

func TestSmartConvert_UnidadDesconocida(t *testing.T) {
	_, err := inventory.SmartConvert(dec("3"), "barril", "kg", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidUnit)
	_, err = inventory.SmartConvert(dec("3"), "kg", "barril", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidUnit)
}

func TestSmartConvert_IdaYVuelta(t *testing.T) {
	pairs := [][2]string{
		{"g", "kg"}, {"mg", "lb"}, {"oz", "g"}, {"ml", "l"}, {"tsp", "cup"},
		{"fl_oz", "gal"}, {"pcs", "dozen"}, {"g", "ml"}, {"l", "oz"},
	}
	density := dec("1.03")
	for _, x := range []string{"1", "0.3", "123.4567", "99999"} {
		for _, p := range pairs {
			orig := dec(x)
			there, err := inventory.SmartConvert(orig, p[0], p[1], density)
			require.NoError(t, err)
			back, err := inventory.SmartConvert(there, p[1], p[0], density)
			require.NoError(t, err)
			diff := back.Sub(orig).Abs()
			assert.True(t, diff.LessThan(dec("0.0001")), "%s %s→%s→%s = %s", x, p[0], p[1], p[0], back)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.True(t, inventory.FormatQuantity(dec("2.6"), "pcs").Equal(dec("3")))
	assert.True(t, inventory.FormatQuantity(dec("0.123456"), "kg").Equal(dec("0.1235")))
	assert.True(t, inventory.FormatQuantity(dec("0.1"), "ml").Equal(dec("0.1")))
}

func TestConversionNote(t *testing.T) {
	assert.Equal(t, "500 g = 0.5 kg", inventory.ConversionNote(dec("500"), "g", dec("0.5"), "kg"))
}

func TestDensityFor_PrefiereDensidadDelItem(t *testing.T) {
	d := dec("0.95")
	item := &entity.InventoryItem{Category: "Milk", Density: &d}
	got, ok := inventory.DensityFor(item)
	require.True(t, ok)
	assert.True(t, got.Equal(d))

	item.Density = nil
	got, ok = inventory.DensityFor(item)
	require.True(t, ok)
	assert.True(t, got.Equal(dec("1.03")))

	item.Category = "Olive Oil"
	assert.True(t, inventory.HasDensity(item))

	item.Category = "Espresso Beans"
	assert.False(t, inventory.HasDensity(item))
}

func TestToItemUnit(t *testing.T) {
	item := &entity.InventoryItem{Unit: "kg", Category: "coffee"}
	got, err := inventory.ToItemUnit(item, dec("500"), "g")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("0.5")))

	got, err = inventory.ToItemUnit(item, dec("7"), "")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("7")))

	_, err = inventory.ToItemUnit(item, dec("1"), "l")
	assert.ErrorIs(t, err, domain.ErrMissingDensity)
}
