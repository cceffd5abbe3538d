package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de almacenamiento, pasando repositorios
// atados a esa tx. Es la frontera de unidad de trabajo del motor: o se confirma todo o nada.
// Los fallos propios del almacenamiento (abort, conexión) se devuelven envueltos en domain.ErrTransient.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.InventoryItemRepository,
		ledgerRepo repository.StockAdjustmentRepository,
	) error) error
}

// RollbackGuard serializa rollbacks concurrentes de una misma transacción.
// Acquire devuelve domain.ErrRollbackInProgress si otro proceso ya lo tiene.
type RollbackGuard interface {
	Acquire(ctx context.Context, transactionID string) (release func(), err error)
}

// StockAdjustedEvent evento publicado tras confirmar un ajuste.
type StockAdjustedEvent struct {
	AdjustmentID  string             `json:"adjustment_id"`
	ItemID        string             `json:"item_id"`
	ItemName      string             `json:"item_name"`
	Type          string             `json:"type"`
	Quantity      decimal.Decimal    `json:"quantity"`
	Unit          string             `json:"unit"`
	PreviousStock decimal.Decimal    `json:"previous_stock"`
	NewStock      decimal.Decimal    `json:"new_stock"`
	Status        entity.StockStatus `json:"status"`
	TransactionID string             `json:"transaction_id,omitempty"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

// EventPublisher publica eventos de stock fuera de la transacción (best effort).
type EventPublisher interface {
	PublishStockAdjusted(ctx context.Context, events ...StockAdjustedEvent) error
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) PublishStockAdjusted(context.Context, ...StockAdjustedEvent) error { return nil }
