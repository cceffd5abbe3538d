package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AdjustmentFilter filtros del ledger. Los campos vacíos no filtran.
type AdjustmentFilter struct {
	ItemID        string
	Search        string // nombre del ítem o notas, sin distinguir mayúsculas
	Type          entity.AdjustmentType
	ReferenceType entity.ReferenceType
	TransactionID string
	From          *time.Time
	To            *time.Time
}

// StockAdjustmentRepository puerto del ledger de ajustes (solo inserción, nunca update/delete).
type StockAdjustmentRepository interface {
	Create(ctx context.Context, adj *entity.StockAdjustment) error
	GetByID(ctx context.Context, id string) (*entity.StockAdjustment, error)
	// ListByTransaction devuelve los ajustes de una transacción en orden de escritura.
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockAdjustment, error)
	// ListByItem devuelve el historial completo de un ítem en orden de escritura (para replay).
	ListByItem(ctx context.Context, itemID string) ([]*entity.StockAdjustment, error)
	// HasRollbackFor indica si ya existe una compensación para el ajuste dado.
	HasRollbackFor(ctx context.Context, adjustmentID string) (bool, error)

	// List devuelve ajustes filtrados, más recientes primero.
	List(ctx context.Context, filter AdjustmentFilter, limit, offset int) ([]*entity.StockAdjustment, error)
	Count(ctx context.Context, filter AdjustmentFilter) (int, error)
	CountByType(ctx context.Context, filter AdjustmentFilter) (map[entity.AdjustmentType]int, error)
}
