package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.InventoryItemRepository = (*InventoryItemRepo)(nil)

// InventoryItemRepo implementación de InventoryItemRepository sobre PostgreSQL (usable con pool o tx).
type InventoryItemRepo struct {
	q Querier
}

// NewInventoryItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryItemRepository(q Querier) *InventoryItemRepo {
	return &InventoryItemRepo{q: q}
}

const itemColumns = `id, name, category, current_stock, min_stock, max_stock, reorder_point,
	unit, display_unit, price_per_unit, supplier, location, density, status,
	last_restocked, created_at, updated_at`

// Create persiste un ítem nuevo.
func (r *InventoryItemRepo) Create(ctx context.Context, item *entity.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.Name, item.Category, item.CurrentStock, item.MinStock, item.MaxStock, item.ReorderPoint,
		item.Unit, item.DisplayUnit, item.PricePerUnit, item.Supplier, item.Location, item.Density, string(item.Status),
		item.LastRestocked, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return wrapErr("create inventory item", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *InventoryItemRepo) GetByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	return r.getOne(ctx, "get inventory item", `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
}

// GetByName obtiene un ítem por nombre sin distinguir mayúsculas.
func (r *InventoryItemRepo) GetByName(ctx context.Context, name string) (*entity.InventoryItem, error) {
	return r.getOne(ctx, "get inventory item by name", `SELECT `+itemColumns+` FROM inventory_items WHERE lower(name) = lower(btrim($1))`, name)
}

// GetForUpdate obtiene el ítem y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *InventoryItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error) {
	return r.getOne(ctx, "get inventory item for update", `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id)
}

func (r *InventoryItemRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.InventoryItem, error) {
	item, err := scanItem(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return item, nil
}

// List devuelve ítems ordenados por nombre.
func (r *InventoryItemRepo) List(ctx context.Context, limit, offset int) ([]*entity.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items ORDER BY lower(name) LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, wrapErr("list inventory items", err)
	}
	defer rows.Close()
	var list []*entity.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, wrapErr("scan inventory item", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list inventory items", err)
	}
	return list, nil
}

func (r *InventoryItemRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM inventory_items`).Scan(&n); err != nil {
		return 0, wrapErr("count inventory items", err)
	}
	return n, nil
}

// ApplyDelta escribe stock y estado. lastRestocked nil conserva el valor previo.
func (r *InventoryItemRepo) ApplyDelta(ctx context.Context, itemID string, newStock decimal.Decimal, status entity.StockStatus, lastRestocked *time.Time) error {
	query := `
		UPDATE inventory_items
		SET current_stock = $2, status = $3, last_restocked = COALESCE($4, last_restocked), updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, itemID, newStock, string(status), lastRestocked)
	if err != nil {
		return wrapErr("apply stock delta", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// UpdatePrice fija price_per_unit.
func (r *InventoryItemRepo) UpdatePrice(ctx context.Context, itemID string, price decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE inventory_items SET price_per_unit = $2, updated_at = now() WHERE id = $1`, itemID, price)
	if err != nil {
		return wrapErr("update item price", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// Delete elimina el ítem. Los ajustes del ledger no se tocan.
func (r *InventoryItemRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete inventory item", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*entity.InventoryItem, error) {
	var (
		it     entity.InventoryItem
		status string
	)
	err := row.Scan(
		&it.ID, &it.Name, &it.Category, &it.CurrentStock, &it.MinStock, &it.MaxStock, &it.ReorderPoint,
		&it.Unit, &it.DisplayUnit, &it.PricePerUnit, &it.Supplier, &it.Location, &it.Density, &status,
		&it.LastRestocked, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.Status = entity.StockStatus(status)
	return &it, nil
}

