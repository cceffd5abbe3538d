package inventory

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// DensityTable densidades de referencia (g/ml) por código estable de categoría.
// Se indexa por código, no por nombre libre del ítem.
var DensityTable = map[string]decimal.Decimal{
	"water":         decimal.RequireFromString("1"),
	"milk":          decimal.RequireFromString("1.03"),
	"dairy":         decimal.RequireFromString("1.03"),
	"cream":         decimal.RequireFromString("1.01"),
	"oil":           decimal.RequireFromString("0.92"),
	"olive_oil":     decimal.RequireFromString("0.91"),
	"honey":         decimal.RequireFromString("1.42"),
	"syrup":         decimal.RequireFromString("1.33"),
	"sugar":         decimal.RequireFromString("0.845"),
	"flour":         decimal.RequireFromString("0.593"),
	"salt":          decimal.RequireFromString("1.217"),
	"rice":          decimal.RequireFromString("0.85"),
	"ground_coffee": decimal.RequireFromString("0.4"),
	"cocoa":         decimal.RequireFromString("0.52"),
}

// DensityCode normaliza una categoría a código: minúsculas, espacios y guiones → "_".
func DensityCode(category string) string {
	code := cases.Fold().String(strings.TrimSpace(category))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(code)
}

// DensityFor densidad efectiva del ítem: la propia si existe, si no la de su categoría.
func DensityFor(item *entity.InventoryItem) (decimal.Decimal, bool) {
	if item == nil {
		return decimal.Zero, false
	}
	if item.Density != nil && item.Density.IsPositive() {
		return *item.Density, true
	}
	d, ok := DensityTable[DensityCode(item.Category)]
	return d, ok
}

// HasDensity indica si el ítem admite conversión peso↔volumen.
func HasDensity(item *entity.InventoryItem) bool {
	_, ok := DensityFor(item)
	return ok
}

// ToItemUnit convierte qty (en unit) a la unidad base del ítem.
// unit vacío se interpreta como la unidad base.
func ToItemUnit(item *entity.InventoryItem, qty decimal.Decimal, unit string) (decimal.Decimal, error) {
	if strings.TrimSpace(unit) == "" || SameUnit(unit, item.Unit) {
		return qty, nil
	}
	density, _ := DensityFor(item)
	converted, err := SmartConvert(qty, unit, item.Unit, density)
	if err != nil {
		return decimal.Zero, err
	}
	return FormatQuantity(converted, item.Unit), nil
}
