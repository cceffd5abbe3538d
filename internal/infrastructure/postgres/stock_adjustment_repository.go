package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockAdjustmentRepository = (*StockAdjustmentRepo)(nil)

// StockAdjustmentRepo ledger de ajustes sobre PostgreSQL. Solo inserta; nunca actualiza ni borra.
type StockAdjustmentRepo struct {
	q Querier
}

// NewStockAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockAdjustmentRepository(q Querier) *StockAdjustmentRepo {
	return &StockAdjustmentRepo{q: q}
}

const adjustmentColumns = `id, item_id, item_name, type, quantity, unit, original_quantity, original_unit,
	previous_stock, new_stock, notes, conversion_note, reference_type, reference_id, reference_number,
	transaction_id, performed_by, created_at`

// rollbackIndex índice parcial que impide compensar dos veces el mismo ajuste.
const rollbackIndex = "stock_adjustments_rollback_key"

// Create inserta una fila del ledger.
func (r *StockAdjustmentRepo) Create(ctx context.Context, adj *entity.StockAdjustment) error {
	var refType, refID, refNumber *string
	if adj.Reference != nil {
		t := string(adj.Reference.Type)
		refType, refID, refNumber = &t, &adj.Reference.ID, &adj.Reference.Number
	}
	query := `
		INSERT INTO stock_adjustments (` + adjustmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		adj.ID, adj.ItemID, adj.ItemName, adj.Type.String(), adj.Quantity, adj.Unit, adj.OriginalQuantity, adj.OriginalUnit,
		adj.PreviousStock, adj.NewStock, adj.Notes, adj.ConversionNote, refType, refID, refNumber,
		adj.TransactionID, adj.PerformedBy, adj.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == rollbackIndex {
			return fmt.Errorf("%w: el ajuste %s ya fue compensado", domain.ErrRollbackInProgress, adj.Reference.Number)
		}
		return wrapErr("create stock adjustment", err)
	}
	return nil
}

// GetByID obtiene un ajuste por ID; (nil, nil) si no existe.
func (r *StockAdjustmentRepo) GetByID(ctx context.Context, id string) (*entity.StockAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments WHERE id = $1`
	adj, err := scanAdjustment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get stock adjustment", err)
	}
	return adj, nil
}

// ListByTransaction ajustes de una transacción en orden de escritura.
func (r *StockAdjustmentRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments WHERE transaction_id = $1 ORDER BY seq`
	return r.list(ctx, "list adjustments by transaction", query, transactionID)
}

// ListByItem historial completo de un ítem en orden de escritura.
func (r *StockAdjustmentRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.StockAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments WHERE item_id = $1 ORDER BY seq`
	return r.list(ctx, "list adjustments by item", query, itemID)
}

// HasRollbackFor indica si ya existe una compensación del ajuste.
func (r *StockAdjustmentRepo) HasRollbackFor(ctx context.Context, adjustmentID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM stock_adjustments WHERE reference_type = 'rollback' AND reference_number = $1)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, adjustmentID).Scan(&exists); err != nil {
		return false, wrapErr("check rollback", err)
	}
	return exists, nil
}

// List ajustes filtrados, más recientes primero.
func (r *StockAdjustmentRepo) List(ctx context.Context, filter repository.AdjustmentFilter, limit, offset int) ([]*entity.StockAdjustment, error) {
	where, args := buildAdjustmentWhere(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM stock_adjustments %s ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d`,
		adjustmentColumns, where, len(args)-1, len(args))
	return r.list(ctx, "list stock adjustments", query, args...)
}

// Count total de ajustes que cumplen el filtro.
func (r *StockAdjustmentRepo) Count(ctx context.Context, filter repository.AdjustmentFilter) (int, error) {
	where, args := buildAdjustmentWhere(filter)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_adjustments `+where, args...).Scan(&total); err != nil {
		return 0, wrapErr("count stock adjustments", err)
	}
	return total, nil
}

// CountByType conteo por tipo con el mismo filtro (sin paginar).
func (r *StockAdjustmentRepo) CountByType(ctx context.Context, filter repository.AdjustmentFilter) (map[entity.AdjustmentType]int, error) {
	where, args := buildAdjustmentWhere(filter)
	rows, err := r.q.Query(ctx, `SELECT type, COUNT(*) FROM stock_adjustments `+where+` GROUP BY type`, args...)
	if err != nil {
		return nil, wrapErr("count adjustments by type", err)
	}
	defer rows.Close()
	out := make(map[entity.AdjustmentType]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, wrapErr("scan adjustment count", err)
		}
		if t, ok := entity.ParseAdjustmentType(name); ok {
			out[t] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("count adjustments by type", err)
	}
	return out, nil
}

func (r *StockAdjustmentRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockAdjustment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()
	var list []*entity.StockAdjustment
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, wrapErr("scan stock adjustment", err)
		}
		list = append(list, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return list, nil
}

// buildAdjustmentWhere arma el WHERE con placeholders numerados.
func buildAdjustmentWhere(f repository.AdjustmentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ItemID != "" {
		add("item_id = $%d", f.ItemID)
	}
	if f.Search != "" {
		add("(item_name ILIKE $%[1]d OR notes ILIKE $%[1]d)", "%"+escapeLike(f.Search)+"%")
	}
	if f.Type.Valid() {
		add("type = $%d", f.Type.String())
	}
	if f.ReferenceType != "" {
		add("reference_type = $%d", string(f.ReferenceType))
	}
	if f.TransactionID != "" {
		add("transaction_id = $%d", f.TransactionID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanAdjustment(row pgx.Row) (*entity.StockAdjustment, error) {
	var (
		a                         entity.StockAdjustment
		typ                       string
		refType, refID, refNumber *string
	)
	err := row.Scan(
		&a.ID, &a.ItemID, &a.ItemName, &typ, &a.Quantity, &a.Unit, &a.OriginalQuantity, &a.OriginalUnit,
		&a.PreviousStock, &a.NewStock, &a.Notes, &a.ConversionNote, &refType, &refID, &refNumber,
		&a.TransactionID, &a.PerformedBy, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t, ok := entity.ParseAdjustmentType(typ)
	if !ok {
		return nil, fmt.Errorf("tipo de ajuste desconocido en ledger: %q", typ)
	}
	a.Type = t
	if refType != nil {
		a.Reference = &entity.AdjustmentReference{Type: entity.ReferenceType(*refType)}
		if refID != nil {
			a.Reference.ID = *refID
		}
		if refNumber != nil {
			a.Reference.Number = *refNumber
		}
	}
	return &a, nil
}
