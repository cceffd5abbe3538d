package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// UnitCategory agrupa unidades convertibles entre sí con razones fijas.
type UnitCategory string

const (
	CategoryWeight UnitCategory = "weight"
	CategoryVolume UnitCategory = "volume"
	CategoryCount  UnitCategory = "count"
)

// Precisión de almacenamiento: enteros para conteo, 4 decimales para peso/volumen.
const (
	countPrecision   = 0
	measurePrecision = 4
)

type unitDef struct {
	category UnitCategory
	factor   decimal.Decimal // cantidad de la unidad base de la categoría (g, ml, pcs)
}

var units = map[string]unitDef{
	// peso (base g)
	"mg": {CategoryWeight, decimal.RequireFromString("0.001")},
	"g":  {CategoryWeight, decimal.NewFromInt(1)},
	"kg": {CategoryWeight, decimal.NewFromInt(1000)},
	"oz": {CategoryWeight, decimal.RequireFromString("28.349523125")},
	"lb": {CategoryWeight, decimal.RequireFromString("453.59237")},
	// volumen (base ml)
	"ml":    {CategoryVolume, decimal.NewFromInt(1)},
	"cl":    {CategoryVolume, decimal.NewFromInt(10)},
	"dl":    {CategoryVolume, decimal.NewFromInt(100)},
	"l":     {CategoryVolume, decimal.NewFromInt(1000)},
	"tsp":   {CategoryVolume, decimal.RequireFromString("4.92892159375")},
	"tbsp":  {CategoryVolume, decimal.RequireFromString("14.78676478125")},
	"fl_oz": {CategoryVolume, decimal.RequireFromString("29.5735295625")},
	"cup":   {CategoryVolume, decimal.RequireFromString("236.5882365")},
	"pt":    {CategoryVolume, decimal.RequireFromString("473.176473")},
	"qt":    {CategoryVolume, decimal.RequireFromString("946.352946")},
	"gal":   {CategoryVolume, decimal.RequireFromString("3785.411784")},
	// conteo (base pcs)
	"pcs":   {CategoryCount, decimal.NewFromInt(1)},
	"dozen": {CategoryCount, decimal.NewFromInt(12)},
}

var aliases = map[string]string{
	"milligram": "mg", "milligrams": "mg",
	"gr": "g", "gram": "g", "grams": "g", "gramo": "g", "gramos": "g",
	"kgs": "kg", "kilo": "kg", "kilos": "kg", "kilogram": "kg", "kilograms": "kg", "kilogramo": "kg", "kilogramos": "kg",
	"ounce": "oz", "ounces": "oz",
	"lbs": "lb", "pound": "lb", "pounds": "lb",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "mililitro": "ml", "mililitros": "ml",
	"lt": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l", "litro": "l", "litros": "l",
	"teaspoon": "tsp", "teaspoons": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp",
	"floz": "fl_oz", "fl oz": "fl_oz", "fl-oz": "fl_oz",
	"cups": "cup", "pint": "pt", "pints": "pt", "quart": "qt", "quarts": "qt",
	"gallon": "gal", "gallons": "gal",
	"pc": "pcs", "piece": "pcs", "pieces": "pcs", "unit": "pcs", "units": "pcs", "each": "pcs", "ea": "pcs",
	"unidad": "pcs", "unidades": "pcs", "docena": "dozen", "dozens": "dozen",
}

// ConversionError describe por qué no se pudo convertir entre dos unidades.
type ConversionError struct {
	From         string
	To           string
	FromCategory UnitCategory
	ToCategory   UnitCategory
	Err          error
}

func (e *ConversionError) Error() string {
	switch {
	case errors.Is(e.Err, domain.ErrMissingDensity):
		return fmt.Sprintf("no se puede convertir %s (%s) a %s (%s): falta densidad", e.From, e.FromCategory, e.To, e.ToCategory)
	case errors.Is(e.Err, domain.ErrIncompatibleUnits):
		return fmt.Sprintf("no se puede convertir %s (%s) a %s (%s)", e.From, e.FromCategory, e.To, e.ToCategory)
	default:
		return fmt.Sprintf("conversión %s → %s: %v", e.From, e.To, e.Err)
	}
}

func (e *ConversionError) Unwrap() error { return e.Err }

// NormalizeUnit devuelve el símbolo canónico de una unidad o "" si no se reconoce.
func NormalizeUnit(u string) string {
	key := cases.Fold().String(strings.TrimSpace(u))
	if _, ok := units[key]; ok {
		return key
	}
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return ""
}

// IsValidUnit indica si la unidad (o un alias) es conocida.
func IsValidUnit(u string) bool {
	return NormalizeUnit(u) != ""
}

// GetUnitCategory devuelve la categoría de la unidad.
func GetUnitCategory(u string) (UnitCategory, error) {
	def, ok := units[NormalizeUnit(u)]
	if !ok {
		return "", &ConversionError{From: u, Err: domain.ErrInvalidUnit}
	}
	return def.category, nil
}

// AreUnitsCompatible es true si ambas unidades son de la misma categoría.
func AreUnitsCompatible(a, b string) bool {
	ca, errA := GetUnitCategory(a)
	cb, errB := GetUnitCategory(b)
	return errA == nil && errB == nil && ca == cb
}

// SameUnit compara dos unidades tras normalizar alias.
func SameUnit(a, b string) bool {
	na := NormalizeUnit(a)
	return na != "" && na == NormalizeUnit(b)
}

// SmartConvert convierte qty de from a to. Dentro de una categoría usa razones fijas;
// entre peso y volumen usa la densidad (g/ml). density cero o negativa significa "desconocida".
func SmartConvert(qty decimal.Decimal, from, to string, density decimal.Decimal) (decimal.Decimal, error) {
	nf, nt := NormalizeUnit(from), NormalizeUnit(to)
	if nf == "" {
		return decimal.Zero, &ConversionError{From: from, To: to, Err: domain.ErrInvalidUnit}
	}
	if nt == "" {
		return decimal.Zero, &ConversionError{From: from, To: to, Err: domain.ErrInvalidUnit}
	}
	if nf == nt {
		return qty, nil
	}
	df, dt := units[nf], units[nt]
	base := qty.Mul(df.factor)

	if df.category == dt.category {
		return base.Div(dt.factor), nil
	}

	cerr := &ConversionError{From: nf, To: nt, FromCategory: df.category, ToCategory: dt.category}
	if df.category == CategoryCount || dt.category == CategoryCount {
		cerr.Err = domain.ErrIncompatibleUnits
		return decimal.Zero, cerr
	}
	if !density.IsPositive() {
		cerr.Err = domain.ErrMissingDensity
		return decimal.Zero, cerr
	}
	if df.category == CategoryWeight {
		// g → ml
		return base.Div(density).Div(dt.factor), nil
	}
	// ml → g
	return base.Mul(density).Div(dt.factor), nil
}

// FormatQuantity redondea a la precisión de la unidad para que el ledger no acumule deriva.
func FormatQuantity(value decimal.Decimal, unit string) decimal.Decimal {
	if def, ok := units[NormalizeUnit(unit)]; ok && def.category == CategoryCount {
		return value.Round(countPrecision)
	}
	return value.Round(measurePrecision)
}

// ConversionNote texto legible de una conversión: "500 g = 0.5 kg".
func ConversionNote(original decimal.Decimal, from string, converted decimal.Decimal, to string) string {
	return fmt.Sprintf("%s %s = %s %s", original.String(), from, FormatQuantity(converted, to).String(), to)
}
