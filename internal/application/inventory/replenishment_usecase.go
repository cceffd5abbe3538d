package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	usageWindow  = 30 * 24 * time.Hour
	itemPageSize = 100
)

// ReplenishmentUseCase arma la lista de reposición a partir de umbrales y consumo del ledger.
type ReplenishmentUseCase struct {
	itemRepo   repository.InventoryItemRepository
	ledgerRepo repository.StockAdjustmentRepository
	now        func() time.Time
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(itemRepo repository.InventoryItemRepository, ledgerRepo repository.StockAdjustmentRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{itemRepo: itemRepo, ledgerRepo: ledgerRepo, now: time.Now}
}

// ReorderSuggestion ítem en o bajo su punto de reorden.
type ReorderSuggestion struct {
	Item          *entity.InventoryItem
	TargetStock   decimal.Decimal
	SuggestedQty  decimal.Decimal
	EstimatedCost decimal.Decimal

	// UsageLast30Days suma de usage, waste y deduction de los últimos 30 días.
	UsageLast30Days decimal.Decimal
	Priority        int
}

// GenerateReorderList devuelve los ítems low o critical con la cantidad sugerida para
// volver a MaxStock (o a 1.5 × ReorderPoint si el ítem no tiene máximo).
// Orden: critical primero, luego mayor consumo reciente, luego mayor déficit.
func (uc *ReplenishmentUseCase) GenerateReorderList(ctx context.Context) ([]ReorderSuggestion, error) {
	var below []*entity.InventoryItem
	for offset := 0; ; offset += itemPageSize {
		page, err := uc.itemRepo.List(ctx, itemPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, it := range page {
			it.RefreshStatus()
			if it.Status == entity.StatusCritical || it.Status == entity.StatusLow {
				below = append(below, it)
			}
		}
		if len(page) < itemPageSize {
			break
		}
	}

	since := uc.now().Add(-usageWindow)
	out := make([]ReorderSuggestion, 0, len(below))
	for _, it := range below {
		usage, err := uc.recentUsage(ctx, it.ID, since)
		if err != nil {
			return nil, err
		}
		target := it.MaxStock
		if !target.IsPositive() {
			target = it.ReorderPoint.Mul(decimal.NewFromFloat(1.5))
		}
		qty := target.Sub(it.CurrentStock)
		if qty.IsNegative() {
			qty = decimal.Zero
		}
		out = append(out, ReorderSuggestion{
			Item:            it,
			TargetStock:     target,
			SuggestedQty:    qty,
			EstimatedCost:   qty.Mul(it.PricePerUnit).Round(2),
			UsageLast30Days: usage,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ac, bc := a.Item.Status == entity.StatusCritical, b.Item.Status == entity.StatusCritical
		if ac != bc {
			return ac
		}
		if !a.UsageLast30Days.Equal(b.UsageLast30Days) {
			return a.UsageLast30Days.GreaterThan(b.UsageLast30Days)
		}
		return a.Item.ReorderPoint.Sub(a.Item.CurrentStock).GreaterThan(b.Item.ReorderPoint.Sub(b.Item.CurrentStock))
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}

func (uc *ReplenishmentUseCase) recentUsage(ctx context.Context, itemID string, since time.Time) (decimal.Decimal, error) {
	entries, err := uc.ledgerRepo.ListByItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		if e.Type.Consumes() && !e.CreatedAt.Before(since) {
			total = total.Add(e.Quantity)
		}
	}
	return total, nil
}
