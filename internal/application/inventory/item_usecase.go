package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ItemUseCase alta, consulta y baja de ítems. El stock solo cambia por el motor de ajustes.
type ItemUseCase struct {
	txRunner TxRunner
	itemRepo repository.InventoryItemRepository
	engine   *AdjustStockUseCase
	log      *logger.Logger
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(txRunner TxRunner, itemRepo repository.InventoryItemRepository, engine *AdjustStockUseCase, log *logger.Logger) *ItemUseCase {
	return &ItemUseCase{txRunner: txRunner, itemRepo: itemRepo, engine: engine, log: log.Component("items")}
}

// CreateItemInput datos de alta. InitialStock se registra como ajuste correction.
type CreateItemInput struct {
	Name         string
	Category     string
	InitialStock decimal.Decimal
	MinStock     decimal.Decimal
	MaxStock     decimal.Decimal
	ReorderPoint decimal.Decimal
	Unit         string
	DisplayUnit  string
	PricePerUnit decimal.Decimal
	Supplier     string
	Location     string
	Density      *decimal.Decimal
	PerformedBy  string
}

// Create da de alta un ítem. Con stock inicial escribe, en la misma transacción, el ajuste
// que deja el ledger reproducible desde cero.
func (uc *ItemUseCase) Create(ctx context.Context, in CreateItemInput) (*entity.InventoryItem, error) {
	item, err := newItem(in)
	if err != nil {
		return nil, err
	}
	existing, err := uc.itemRepo.GetByName(ctx, item.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateName
	}

	err = uc.txRunner.Run(ctx, func(items repository.InventoryItemRepository, ledger repository.StockAdjustmentRepository) error {
		if err := items.Create(ctx, item); err != nil {
			return err
		}
		if !in.InitialStock.IsPositive() {
			return nil
		}
		res, err := uc.engine.AdjustInTx(ctx, items, ledger, item.ID, AdjustInput{
			Type:        entity.AdjustmentCorrection,
			Quantity:    in.InitialStock,
			Unit:        item.Unit,
			Notes:       "Stock inicial",
			PerformedBy: in.PerformedBy,
			Reference:   &entity.AdjustmentReference{Type: entity.ReferenceAdjustment, ID: item.ID},
		})
		if err != nil {
			return err
		}
		item.CurrentStock = res.NewStock
		item.Status = res.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("item_id", item.ID).Str("name", item.Name).Str("stock", item.CurrentStock.String()).Msg("ítem creado")
	return item, nil
}

func newItem(in CreateItemInput) (*entity.InventoryItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: nombre requerido", domain.ErrInvalidInput)
	}
	unit := inventory.NormalizeUnit(in.Unit)
	if unit == "" {
		return nil, &inventory.ConversionError{From: in.Unit, Err: domain.ErrInvalidUnit}
	}
	display := unit
	if strings.TrimSpace(in.DisplayUnit) != "" {
		display = inventory.NormalizeUnit(in.DisplayUnit)
		if display == "" {
			return nil, &inventory.ConversionError{From: in.DisplayUnit, Err: domain.ErrInvalidUnit}
		}
	}
	if in.InitialStock.IsNegative() || in.InitialStock.GreaterThan(entity.MaxStock) {
		return nil, domain.ErrInvalidQuantity
	}
	for _, v := range []decimal.Decimal{in.MinStock, in.MaxStock, in.ReorderPoint, in.PricePerUnit} {
		if v.IsNegative() {
			return nil, fmt.Errorf("%w: umbrales y precio no pueden ser negativos", domain.ErrInvalidInput)
		}
	}
	if in.Density != nil && !in.Density.IsPositive() {
		return nil, fmt.Errorf("%w: la densidad debe ser positiva", domain.ErrInvalidInput)
	}
	now := time.Now()
	item := &entity.InventoryItem{
		ID:           uuid.New().String(),
		Name:         name,
		Category:     strings.TrimSpace(in.Category),
		CurrentStock: decimal.Zero,
		MinStock:     in.MinStock,
		MaxStock:     in.MaxStock,
		ReorderPoint: in.ReorderPoint,
		Unit:         unit,
		DisplayUnit:  display,
		PricePerUnit: in.PricePerUnit,
		Supplier:     strings.TrimSpace(in.Supplier),
		Location:     strings.TrimSpace(in.Location),
		Density:      in.Density,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	item.RefreshStatus()
	return item, nil
}

// GetByID devuelve el ítem con su estado recalculado.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidItemID
	}
	item, err := uc.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	item.RefreshStatus()
	return item, nil
}

// List devuelve ítems ordenados por nombre.
// Count total de ítems registrados, para la paginación.
func (uc *ItemUseCase) Count(ctx context.Context) (int, error) {
	return uc.itemRepo.Count(ctx)
}

func (uc *ItemUseCase) List(ctx context.Context, limit, offset int) ([]*entity.InventoryItem, error) {
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, err := uc.itemRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.RefreshStatus()
	}
	return items, nil
}

// Delete elimina el ítem. Sus ajustes permanecen en el ledger.
func (uc *ItemUseCase) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidItemID
	}
	item, err := uc.itemRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrItemNotFound
	}
	if err := uc.itemRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.log.Info().Str("item_id", id).Str("name", item.Name).Msg("ítem eliminado")
	return nil
}
