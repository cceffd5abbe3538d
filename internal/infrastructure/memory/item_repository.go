package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.InventoryItemRepository = (*ItemRepo)(nil)

// ItemRepo ítems en memoria. Con tx opera sobre el borrador de la transacción;
// sin tx lee la última foto y cada escritura abre su propia transacción.
// Devuelve copias: mutar un ítem leído no altera el almacén.
type ItemRepo struct {
	store *Store
	tx    *state
}

func (r *ItemRepo) read() *state {
	if r.tx != nil {
		return r.tx
	}
	return r.store.snapshot()
}

func (r *ItemRepo) write(ctx context.Context, fn func(st *state) error) error {
	if r.tx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(r.tx)
	}
	return r.store.update(ctx, fn)
}

func copyItem(it *entity.InventoryItem) *entity.InventoryItem {
	if it == nil {
		return nil
	}
	c := *it
	if it.Density != nil {
		d := *it.Density
		c.Density = &d
	}
	if it.LastRestocked != nil {
		t := *it.LastRestocked
		c.LastRestocked = &t
	}
	return &c
}

func (r *ItemRepo) Create(ctx context.Context, item *entity.InventoryItem) error {
	return r.write(ctx, func(st *state) error {
		key := nameKey(item.Name)
		if _, ok := st.names[key]; ok {
			return domain.ErrDuplicateName
		}
		st.items[item.ID] = copyItem(item)
		st.names[key] = item.ID
		return nil
	})
}

func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyItem(r.read().items[id]), nil
}

func (r *ItemRepo) GetByName(ctx context.Context, name string) (*entity.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := r.read()
	id, ok := st.names[nameKey(name)]
	if !ok {
		return nil, nil
	}
	return copyItem(st.items[id]), nil
}

// GetForUpdate dentro de una transacción equivale a GetByID: el escritor ya es exclusivo.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error) {
	return r.GetByID(ctx, id)
}

func (r *ItemRepo) List(ctx context.Context, limit, offset int) ([]*entity.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := r.read()
	list := make([]*entity.InventoryItem, 0, len(st.items))
	for _, it := range st.items {
		list = append(list, copyItem(it))
	}
	sort.Slice(list, func(i, j int) bool { return nameKey(list[i].Name) < nameKey(list[j].Name) })
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (r *ItemRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(r.read().items), nil
}

func (r *ItemRepo) ApplyDelta(ctx context.Context, itemID string, newStock decimal.Decimal, status entity.StockStatus, lastRestocked *time.Time) error {
	return r.write(ctx, func(st *state) error {
		cur, ok := st.items[itemID]
		if !ok {
			return domain.ErrItemNotFound
		}
		next := copyItem(cur)
		next.CurrentStock = newStock
		next.Status = status
		if lastRestocked != nil {
			t := *lastRestocked
			next.LastRestocked = &t
		}
		next.UpdatedAt = time.Now()
		st.items[itemID] = next
		return nil
	})
}

func (r *ItemRepo) UpdatePrice(ctx context.Context, itemID string, price decimal.Decimal) error {
	return r.write(ctx, func(st *state) error {
		cur, ok := st.items[itemID]
		if !ok {
			return domain.ErrItemNotFound
		}
		next := copyItem(cur)
		next.PricePerUnit = price
		next.UpdatedAt = time.Now()
		st.items[itemID] = next
		return nil
	})
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	return r.write(ctx, func(st *state) error {
		cur, ok := st.items[id]
		if !ok {
			return domain.ErrItemNotFound
		}
		delete(st.names, nameKey(cur.Name))
		delete(st.items, id)
		return nil
	})
}
