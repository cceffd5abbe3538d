package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxStock tope físico de stock por ítem (en unidad base).
var MaxStock = decimal.NewFromInt(100000)

// StockStatus estado derivado del stock frente a los umbrales del ítem.
type StockStatus string

const (
	StatusCritical StockStatus = "critical"
	StatusLow      StockStatus = "low"
	StatusWarning  StockStatus = "warning"
	StatusOK       StockStatus = "ok"
)

// InventoryItem representa un ítem físico del inventario (insumo o producto).
// CurrentStock es un caché derivado del ledger de ajustes; solo lo muta el motor de ajustes.
type InventoryItem struct {
	ID            string
	Name          string
	Category      string
	CurrentStock  decimal.Decimal // en Unit
	MinStock      decimal.Decimal
	MaxStock      decimal.Decimal
	ReorderPoint  decimal.Decimal
	Unit          string // unidad base
	DisplayUnit   string
	PricePerUnit  decimal.Decimal
	Supplier      string
	Location      string
	Density       *decimal.Decimal // g/ml; habilita conversión peso↔volumen
	Status        StockStatus
	LastRestocked *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeriveStatus calcula el estado para un stock dado. Los umbrales se evalúan en orden:
// critical (≤0), low (≤ reorderPoint), warning (≤ minStock), ok.
func DeriveStatus(stock, reorderPoint, minStock decimal.Decimal) StockStatus {
	switch {
	case stock.LessThanOrEqual(decimal.Zero):
		return StatusCritical
	case stock.LessThanOrEqual(reorderPoint):
		return StatusLow
	case stock.LessThanOrEqual(minStock):
		return StatusWarning
	default:
		return StatusOK
	}
}

// StatusFor estado que tendría el ítem con el stock indicado.
func (i *InventoryItem) StatusFor(stock decimal.Decimal) StockStatus {
	return DeriveStatus(stock, i.ReorderPoint, i.MinStock)
}

// RefreshStatus recalcula Status desde CurrentStock. Se llama en cada lectura y escritura.
func (i *InventoryItem) RefreshStatus() {
	i.Status = i.StatusFor(i.CurrentStock)
}
