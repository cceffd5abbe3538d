package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryItemRepository define el puerto de persistencia para ítems de inventario (DIP).
// Las lecturas devuelven (nil, nil) cuando el ítem no existe.
type InventoryItemRepository interface {
	// Create persiste un ítem nuevo; devuelve domain.ErrDuplicateName si el nombre
	// (sin distinguir mayúsculas) ya existe.
	Create(ctx context.Context, item *entity.InventoryItem) error
	GetByID(ctx context.Context, id string) (*entity.InventoryItem, error)
	GetByName(ctx context.Context, name string) (*entity.InventoryItem, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error)
	List(ctx context.Context, limit, offset int) ([]*entity.InventoryItem, error)
	Count(ctx context.Context) (int, error)
	// ApplyDelta escribe stock y estado de un ítem. Solo lo usa el motor de ajustes.
	// lastRestocked nil deja el valor previo.
	ApplyDelta(ctx context.Context, itemID string, newStock decimal.Decimal, status entity.StockStatus, lastRestocked *time.Time) error
	// UpdatePrice fija el costo unitario (promedio ponderado tras un restock con costo).
	UpdatePrice(ctx context.Context, itemID string, price decimal.Decimal) error
	Delete(ctx context.Context, id string) error
}
