package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentType discriminador cerrado de ajustes de stock.
type AdjustmentType uint8

const (
	AdjustmentRestock AdjustmentType = iota + 1
	AdjustmentUsage
	AdjustmentWaste
	AdjustmentCorrection
	AdjustmentDeduction
)

// AdjustmentTypes lista completa, en orden estable (usada para estadísticas).
var AdjustmentTypes = []AdjustmentType{
	AdjustmentRestock, AdjustmentUsage, AdjustmentWaste, AdjustmentCorrection, AdjustmentDeduction,
}

func (t AdjustmentType) String() string {
	switch t {
	case AdjustmentRestock:
		return "restock"
	case AdjustmentUsage:
		return "usage"
	case AdjustmentWaste:
		return "waste"
	case AdjustmentCorrection:
		return "correction"
	case AdjustmentDeduction:
		return "deduction"
	}
	return fmt.Sprintf("AdjustmentType(%d)", uint8(t))
}

// Valid indica si t es uno de los tipos definidos.
func (t AdjustmentType) Valid() bool {
	return t >= AdjustmentRestock && t <= AdjustmentDeduction
}

// Consumes es true para los tipos que restan stock y exigen disponibilidad.
func (t AdjustmentType) Consumes() bool {
	return t == AdjustmentUsage || t == AdjustmentWaste || t == AdjustmentDeduction
}

// ParseAdjustmentType interpreta el nombre del tipo (insensible a mayúsculas).
func ParseAdjustmentType(s string) (AdjustmentType, bool) {
	for _, t := range AdjustmentTypes {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, true
		}
	}
	return 0, false
}

func (t AdjustmentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("tipo de ajuste inválido: %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *AdjustmentType) UnmarshalText(b []byte) error {
	parsed, ok := ParseAdjustmentType(string(b))
	if !ok {
		return fmt.Errorf("tipo de ajuste inválido: %q", string(b))
	}
	*t = parsed
	return nil
}

// DeltaOutcome resultado de aplicar la regla del tipo al stock previo.
type DeltaOutcome int

const (
	DeltaApplied DeltaOutcome = iota
	DeltaOverCapacity
	DeltaInsufficient
)

// Apply calcula el nuevo stock según el tipo:
// restock suma (rechaza > MaxStock), usage/waste/deduction restan (exigen previous ≥ qty),
// correction fija el valor absoluto (recortado a MaxStock).
func (t AdjustmentType) Apply(previous, qty decimal.Decimal) (decimal.Decimal, DeltaOutcome) {
	switch t {
	case AdjustmentRestock:
		next := previous.Add(qty)
		if next.GreaterThan(MaxStock) {
			return previous, DeltaOverCapacity
		}
		return next, DeltaApplied
	case AdjustmentUsage, AdjustmentWaste, AdjustmentDeduction:
		if previous.LessThan(qty) {
			return previous, DeltaInsufficient
		}
		return previous.Sub(qty), DeltaApplied
	case AdjustmentCorrection:
		if qty.GreaterThan(MaxStock) {
			return MaxStock, DeltaApplied
		}
		if qty.IsNegative() {
			return decimal.Zero, DeltaApplied
		}
		return qty, DeltaApplied
	}
	panic(fmt.Sprintf("tipo de ajuste sin regla: %d", uint8(t)))
}

// ReferenceType origen de negocio de un ajuste.
type ReferenceType string

const (
	ReferenceOrder      ReferenceType = "order"
	ReferenceManual     ReferenceType = "manual"
	ReferenceReturn     ReferenceType = "return"
	ReferenceAdjustment ReferenceType = "adjustment"
	ReferenceRollback   ReferenceType = "rollback"
)

// Valid indica si el tipo de referencia es conocido.
func (r ReferenceType) Valid() bool {
	switch r {
	case ReferenceOrder, ReferenceManual, ReferenceReturn, ReferenceAdjustment, ReferenceRollback:
		return true
	}
	return false
}

// AdjustmentReference vincula el ajuste con la operación que lo originó.
// Para rollbacks: ID = transactionID original, Number = ID del ajuste compensado.
type AdjustmentReference struct {
	Type   ReferenceType
	ID     string
	Number string
}

// StockAdjustment fila inmutable del ledger de stock.
type StockAdjustment struct {
	ID               string
	ItemID           string
	ItemName         string // snapshot al momento de escribir
	Type             AdjustmentType
	Quantity         decimal.Decimal // unidad base, post conversión
	Unit             string
	OriginalQuantity *decimal.Decimal // solo si la unidad del caller difería
	OriginalUnit     string
	PreviousStock    decimal.Decimal
	NewStock         decimal.Decimal
	Notes            string
	ConversionNote   string
	Reference        *AdjustmentReference
	TransactionID    string
	PerformedBy      string
	CreatedAt        time.Time
}

// IsRollback indica si el ajuste es una compensación.
func (a *StockAdjustment) IsRollback() bool {
	return a.Reference != nil && a.Reference.Type == ReferenceRollback
}

// ReplayLedger reconstruye el stock aplicando los ajustes en orden.
// Devuelve el stock final y el índice del primer ajuste inconsistente (-1 si todos cuadran).
func ReplayLedger(entries []*StockAdjustment) (decimal.Decimal, int) {
	stock := decimal.Zero
	for i, e := range entries {
		if !e.PreviousStock.Equal(stock) {
			return stock, i
		}
		next, outcome := e.Type.Apply(stock, e.Quantity)
		if outcome != DeltaApplied || !next.Equal(e.NewStock) {
			return stock, i
		}
		stock = next
	}
	return stock, -1
}
