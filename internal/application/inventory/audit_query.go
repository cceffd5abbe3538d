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
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 100
)

// AuditQueryUseCase consultas de solo lectura sobre el ledger.
type AuditQueryUseCase struct {
	itemRepo   repository.InventoryItemRepository
	ledgerRepo repository.StockAdjustmentRepository
}

// NewAuditQueryUseCase construye el caso de uso.
func NewAuditQueryUseCase(itemRepo repository.InventoryItemRepository, ledgerRepo repository.StockAdjustmentRepository) *AuditQueryUseCase {
	return &AuditQueryUseCase{itemRepo: itemRepo, ledgerRepo: ledgerRepo}
}

// AuditFilter filtros de List. Type y ReferenceType llegan como texto desde el caller.
type AuditFilter struct {
	ItemID        string
	Search        string
	Type          string
	ReferenceType string
	TransactionID string
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

// Pagination metadatos de página.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// AuditPage página del ledger con estadísticas por tipo sobre el mismo filtro.
type AuditPage struct {
	Entries    []*entity.StockAdjustment
	Pagination Pagination
	Stats      map[string]int
}

// List devuelve ajustes filtrados, más recientes primero.
func (uc *AuditQueryUseCase) List(ctx context.Context, f AuditFilter) (*AuditPage, error) {
	filter, err := toRepositoryFilter(f)
	if err != nil {
		return nil, err
	}
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	total, err := uc.ledgerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	entries, err := uc.ledgerRepo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	byType, err := uc.ledgerRepo.CountByType(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int, len(entity.AdjustmentTypes))
	for _, t := range entity.AdjustmentTypes {
		stats[t.String()] = byType[t]
	}
	if entries == nil {
		entries = []*entity.StockAdjustment{}
	}
	return &AuditPage{
		Entries: entries,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
		Stats: stats,
	}, nil
}

func toRepositoryFilter(f AuditFilter) (repository.AdjustmentFilter, error) {
	out := repository.AdjustmentFilter{
		ItemID:        strings.TrimSpace(f.ItemID),
		Search:        strings.TrimSpace(f.Search),
		TransactionID: strings.TrimSpace(f.TransactionID),
		From:          f.From,
		To:            f.To,
	}
	if out.ItemID != "" {
		if _, err := uuid.Parse(out.ItemID); err != nil {
			return out, domain.ErrInvalidItemID
		}
	}
	if s := strings.TrimSpace(f.Type); s != "" {
		t, ok := entity.ParseAdjustmentType(s)
		if !ok {
			return out, domain.ErrInvalidAdjustmentType
		}
		out.Type = t
	}
	if s := strings.TrimSpace(f.ReferenceType); s != "" {
		rt := entity.ReferenceType(strings.ToLower(s))
		if !rt.Valid() {
			return out, fmt.Errorf("%w: tipo de referencia %q", domain.ErrInvalidInput, s)
		}
		out.ReferenceType = rt
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return out, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	return out, nil
}

// ItemHistory historial de un ítem con la verificación de replay.
type ItemHistory struct {
	Item          *entity.InventoryItem
	Entries       []*entity.StockAdjustment
	ReplayedStock decimal.Decimal
	// Consistent es true si el ledger reproduce exactamente el stock en caché.
	Consistent bool
	// BrokenAt índice del primer ajuste que no cuadra; -1 si ninguno.
	BrokenAt int
}

// History reproduce el ledger completo de un ítem y lo compara con su stock actual.
func (uc *AuditQueryUseCase) History(ctx context.Context, itemID string) (*ItemHistory, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, domain.ErrInvalidItemID
	}
	item, err := uc.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	item.RefreshStatus()
	entries, err := uc.ledgerRepo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	stock, broken := entity.ReplayLedger(entries)
	if entries == nil {
		entries = []*entity.StockAdjustment{}
	}
	return &ItemHistory{
		Item:          item,
		Entries:       entries,
		ReplayedStock: stock,
		Consistent:    broken < 0 && stock.Equal(item.CurrentStock),
		BrokenAt:      broken,
	}, nil
}
