package memory

import (
	"context"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockAdjustmentRepository = (*LedgerRepo)(nil)

// LedgerRepo ledger en memoria, solo inserción.
type LedgerRepo struct {
	store *Store
	tx    *state
}

func (r *LedgerRepo) read() *state {
	if r.tx != nil {
		return r.tx
	}
	return r.store.snapshot()
}

func copyAdjustment(a *entity.StockAdjustment) *entity.StockAdjustment {
	c := *a
	if a.OriginalQuantity != nil {
		q := *a.OriginalQuantity
		c.OriginalQuantity = &q
	}
	if a.Reference != nil {
		ref := *a.Reference
		c.Reference = &ref
	}
	return &c
}

func (r *LedgerRepo) Create(ctx context.Context, adj *entity.StockAdjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.tx != nil {
		r.tx.ledger = append(r.tx.ledger, copyAdjustment(adj))
		return nil
	}
	return r.store.update(ctx, func(st *state) error {
		st.ledger = append(st.ledger, copyAdjustment(adj))
		return nil
	})
}

func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*entity.StockAdjustment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, a := range r.read().ledger {
		if a.ID == id {
			return copyAdjustment(a), nil
		}
	}
	return nil, nil
}

func (r *LedgerRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockAdjustment, error) {
	return r.collect(ctx, func(a *entity.StockAdjustment) bool { return a.TransactionID == transactionID })
}

func (r *LedgerRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.StockAdjustment, error) {
	return r.collect(ctx, func(a *entity.StockAdjustment) bool { return a.ItemID == itemID })
}

func (r *LedgerRepo) HasRollbackFor(ctx context.Context, adjustmentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, a := range r.read().ledger {
		if a.IsRollback() && a.Reference.Number == adjustmentID {
			return true, nil
		}
	}
	return false, nil
}

// List más recientes primero: el ledger en memoria está en orden de escritura, se recorre al revés.
func (r *LedgerRepo) List(ctx context.Context, filter repository.AdjustmentFilter, limit, offset int) ([]*entity.StockAdjustment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ledger := r.read().ledger
	var out []*entity.StockAdjustment
	skipped := 0
	for i := len(ledger) - 1; i >= 0; i-- {
		if !matches(ledger[i], filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, copyAdjustment(ledger[i]))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *LedgerRepo) Count(ctx context.Context, filter repository.AdjustmentFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for _, a := range r.read().ledger {
		if matches(a, filter) {
			n++
		}
	}
	return n, nil
}

func (r *LedgerRepo) CountByType(ctx context.Context, filter repository.AdjustmentFilter) (map[entity.AdjustmentType]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[entity.AdjustmentType]int)
	for _, a := range r.read().ledger {
		if matches(a, filter) {
			out[a.Type]++
		}
	}
	return out, nil
}

func (r *LedgerRepo) collect(ctx context.Context, keep func(*entity.StockAdjustment) bool) ([]*entity.StockAdjustment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*entity.StockAdjustment
	for _, a := range r.read().ledger {
		if keep(a) {
			out = append(out, copyAdjustment(a))
		}
	}
	return out, nil
}

func matches(a *entity.StockAdjustment, f repository.AdjustmentFilter) bool {
	if f.ItemID != "" && a.ItemID != f.ItemID {
		return false
	}
	if f.Type.Valid() && a.Type != f.Type {
		return false
	}
	if f.ReferenceType != "" && (a.Reference == nil || a.Reference.Type != f.ReferenceType) {
		return false
	}
	if f.TransactionID != "" && a.TransactionID != f.TransactionID {
		return false
	}
	if f.From != nil && a.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && a.CreatedAt.After(*f.To) {
		return false
	}
	if f.Search != "" {
		q := nameKey(f.Search)
		if !strings.Contains(nameKey(a.ItemName), q) && !strings.Contains(nameKey(a.Notes), q) {
			return false
		}
	}
	return true
}
