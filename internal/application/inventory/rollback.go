package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// RollbackInput entrada de Rollback. AdjustmentIDs vacío compensa todos los descuentos de la transacción.
type RollbackInput struct {
	TransactionID string
	AdjustmentIDs []string
	PerformedBy   string
}

// RolledBackItem ajuste compensado (o que ya lo estaba).
type RolledBackItem struct {
	AdjustmentID         string
	RollbackAdjustmentID string
	ItemID               string
	ItemName             string
	Quantity             decimal.Decimal
	Unit                 string
	NewStock             decimal.Decimal
	AlreadyRolledBack    bool
}

// FailedRollback compensación que no pudo escribirse. El stock del ítem sigue descontado.
type FailedRollback struct {
	AdjustmentID string
	ItemID       string
	ItemName     string
	Quantity     decimal.Decimal
	Unit         string
	Code         string
	Message      string
}

// RollbackResult resultado de Rollback.
type RollbackResult struct {
	TransactionID         string
	RollbackTransactionID string
	Success               bool
	RolledBackItems       []RolledBackItem
	FailedRollbacks       []FailedRollback
}

// Rollback escribe ajustes correction que devuelven lo descontado por una transacción.
// Es idempotente: un ajuste ya compensado se reporta con AlreadyRolledBack y no se vuelve a acreditar.
// Cada compensación se confirma en su propia transacción; las fallidas quedan en FailedRollbacks.
func (uc *OrderDeductionUseCase) Rollback(ctx context.Context, in RollbackInput) (*RollbackResult, error) {
	ctx, span := tracer.Start(ctx, "inventory.rollback", trace.WithAttributes(
		attribute.String("transaction.id", in.TransactionID),
		attribute.Int("rollback.requested", len(in.AdjustmentIDs)),
	))
	defer span.End()

	txID := strings.TrimSpace(in.TransactionID)
	if txID == "" {
		return nil, uc.fail(span, fmt.Errorf("%w: transactionId requerido", domain.ErrInvalidInput))
	}
	if uc.guard != nil {
		release, err := uc.guard.Acquire(ctx, txID)
		if err != nil {
			return nil, uc.fail(span, err)
		}
		defer release()
	}

	entries, err := uc.ledgerRepo.ListByTransaction(ctx, txID)
	if err != nil {
		return nil, uc.fail(span, fmt.Errorf("listar ajustes de la transacción: %w", err))
	}
	if len(entries) == 0 {
		return nil, uc.fail(span, domain.ErrTransactionNotFound)
	}

	result := &RollbackResult{TransactionID: txID, RollbackTransactionID: uuid.New().String()}
	targets := selectRollbackTargets(entries, in.AdjustmentIDs, result)

	var committed []*AdjustResult
	for _, original := range targets {
		var (
			res     *AdjustResult
			already bool
		)
		err := uc.txRunner.Run(ctx, func(items repository.InventoryItemRepository, ledger repository.StockAdjustmentRepository) error {
			done, err := ledger.HasRollbackFor(ctx, original.ID)
			if err != nil {
				return err
			}
			if done {
				already = true
				return nil
			}
			res, err = uc.engine.CompensateInTx(ctx, items, ledger, original, result.RollbackTransactionID, in.PerformedBy)
			return err
		})
		switch {
		case err != nil:
			result.FailedRollbacks = append(result.FailedRollbacks, failedRollbackFrom(original, err))
			uc.log.Error().Err(err).
				Str("transaction_id", txID).
				Str("adjustment_id", original.ID).
				Str("item_id", original.ItemID).
				Str("quantity", original.Quantity.String()).
				Msg("rollback fallido: el stock del ítem queda descontado")
		case already:
			result.RolledBackItems = append(result.RolledBackItems, RolledBackItem{
				AdjustmentID:      original.ID,
				ItemID:            original.ItemID,
				ItemName:          original.ItemName,
				Quantity:          original.Quantity,
				Unit:              original.Unit,
				AlreadyRolledBack: true,
			})
		default:
			committed = append(committed, res)
			result.RolledBackItems = append(result.RolledBackItems, RolledBackItem{
				AdjustmentID:         original.ID,
				RollbackAdjustmentID: res.Adjustment.ID,
				ItemID:               original.ItemID,
				ItemName:             original.ItemName,
				Quantity:             original.Quantity,
				Unit:                 original.Unit,
				NewStock:             res.NewStock,
			})
		}
	}
	uc.engine.Publish(ctx, committed...)

	result.Success = len(result.FailedRollbacks) == 0
	span.SetAttributes(
		attribute.Int("rollback.done", len(result.RolledBackItems)),
		attribute.Int("rollback.failed", len(result.FailedRollbacks)),
	)
	if result.Success {
		span.SetStatus(codes.Ok, "rollback completo")
	} else {
		span.SetStatus(codes.Error, "rollback incompleto")
	}
	uc.log.Info().
		Str("transaction_id", txID).
		Str("rollback_transaction_id", result.RollbackTransactionID).
		Int("rolled_back", len(committed)).
		Int("failed", len(result.FailedRollbacks)).
		Msg("rollback de transacción procesado")
	return result, nil
}

// selectRollbackTargets devuelve los descuentos compensables de la transacción. Los ids pedidos
// que no pertenecen a ella o no restaron stock se registran como fallos.
func selectRollbackTargets(entries []*entity.StockAdjustment, ids []string, result *RollbackResult) []*entity.StockAdjustment {
	byID := make(map[string]*entity.StockAdjustment, len(entries))
	var all []*entity.StockAdjustment
	for _, e := range entries {
		if e.IsRollback() || !e.Type.Consumes() {
			continue
		}
		byID[e.ID] = e
		all = append(all, e)
	}
	if len(ids) == 0 {
		return all
	}
	seen := make(map[string]bool, len(ids))
	var out []*entity.StockAdjustment
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, ok := byID[id]
		if !ok {
			result.FailedRollbacks = append(result.FailedRollbacks, FailedRollback{
				AdjustmentID: id,
				Code:         domain.CodeValidation,
				Message:      fmt.Sprintf("el ajuste %s no es un descuento de la transacción %s", id, result.TransactionID),
			})
			continue
		}
		out = append(out, e)
	}
	return out
}

func failedRollbackFrom(original *entity.StockAdjustment, err error) FailedRollback {
	return FailedRollback{
		AdjustmentID: original.ID,
		ItemID:       original.ItemID,
		ItemName:     original.ItemName,
		Quantity:     original.Quantity,
		Unit:         original.Unit,
		Code:         domain.Code(err),
		Message:      err.Error(),
	}
}
