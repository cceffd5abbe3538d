package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var tracer = otel.Tracer("github.com/jhoicas/stock-ledger/internal/application/inventory")

// AdjustStockUseCase es el motor de ajustes de un solo ítem: valida, convierte unidades,
// aplica la regla del tipo, recalcula el estado y escribe ítem + ledger en una misma transacción.
type AdjustStockUseCase struct {
	txRunner  TxRunner
	itemRepo  repository.InventoryItemRepository
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewAdjustStockUseCase construye el motor. publisher puede ser nil.
func NewAdjustStockUseCase(
	txRunner TxRunner,
	itemRepo repository.InventoryItemRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *AdjustStockUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &AdjustStockUseCase{
		txRunner:  txRunner,
		itemRepo:  itemRepo,
		publisher: publisher,
		log:       log.Component("adjust_stock"),
		now:       time.Now,
	}
}

// AdjustInput entrada de un ajuste. Unit vacío significa la unidad base del ítem.
type AdjustInput struct {
	Type          entity.AdjustmentType
	Quantity      decimal.Decimal
	Unit          string
	Notes         string
	PerformedBy   string
	Reference     *entity.AdjustmentReference
	TransactionID string

	// UnitCost costo por Unit de la mercadería entrante; solo en restock.
	UnitCost *decimal.Decimal
}

// AdjustResult resultado de un ajuste confirmado.
type AdjustResult struct {
	NewStock   decimal.Decimal
	Status     entity.StockStatus
	Adjustment *entity.StockAdjustment
}

// conversion cantidad normalizada a la unidad base del ítem.
type conversion struct {
	qty          decimal.Decimal
	original     *decimal.Decimal
	originalUnit string
	note         string
}

// Adjust ejecuta un ajuste atómico: VALIDATED → COMMITTED o REJECTED, sin estados intermedios visibles.
// Las validaciones y la conversión se resuelven antes de abrir la transacción; dentro de ella se
// bloquea la fila y se recalcula contra el stock vigente.
func (uc *AdjustStockUseCase) Adjust(ctx context.Context, itemID string, in AdjustInput) (*AdjustResult, error) {
	ctx, span := tracer.Start(ctx, "inventory.adjust", trace.WithAttributes(
		attribute.String("item.id", itemID),
		attribute.String("adjustment.type", in.Type.String()),
		attribute.String("adjustment.quantity", in.Quantity.String()),
		attribute.String("adjustment.unit", in.Unit),
	))
	defer span.End()

	if err := validateAdjustInput(itemID, in); err != nil {
		return nil, uc.reject(span, itemID, in, err)
	}
	item, err := uc.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, uc.reject(span, itemID, in, fmt.Errorf("cargar ítem: %w", err))
	}
	if item == nil {
		return nil, uc.reject(span, itemID, in, domain.ErrItemNotFound)
	}
	if _, err := convertToBase(item, in.Quantity, in.Unit); err != nil {
		return nil, uc.reject(span, itemID, in, err)
	}

	var res *AdjustResult
	err = uc.txRunner.Run(ctx, func(items repository.InventoryItemRepository, ledger repository.StockAdjustmentRepository) error {
		var txErr error
		res, txErr = uc.AdjustInTx(ctx, items, ledger, itemID, in)
		return txErr
	})
	if err != nil {
		return nil, uc.reject(span, itemID, in, err)
	}

	span.SetAttributes(
		attribute.String("stock.new", res.NewStock.String()),
		attribute.String("stock.status", string(res.Status)),
	)
	span.SetStatus(codes.Ok, "ajuste confirmado")
	uc.log.Info().
		Str("item_id", itemID).
		Str("adjustment_id", res.Adjustment.ID).
		Str("type", in.Type.String()).
		Str("quantity", res.Adjustment.Quantity.String()).
		Str("new_stock", res.NewStock.String()).
		Str("status", string(res.Status)).
		Msg("ajuste de stock confirmado")
	uc.Publish(ctx, res)
	return res, nil
}

// AdjustInTx aplica el ajuste con los repositorios de una transacción ya abierta por el caller.
// Si devuelve error el caller debe abortar la transacción.
func (uc *AdjustStockUseCase) AdjustInTx(
	ctx context.Context,
	items repository.InventoryItemRepository,
	ledger repository.StockAdjustmentRepository,
	itemID string,
	in AdjustInput,
) (*AdjustResult, error) {
	if err := validateAdjustInput(itemID, in); err != nil {
		return nil, err
	}
	// Bloquea la fila del ítem hasta el commit
	item, err := items.GetForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	conv, err := convertToBase(item, in.Quantity, in.Unit)
	if err != nil {
		return nil, err
	}

	previous := item.CurrentStock
	next, outcome := in.Type.Apply(previous, conv.qty)
	switch outcome {
	case entity.DeltaOverCapacity:
		return nil, fmt.Errorf("%w: %s + %s %s > %s", domain.ErrOverCapacity, previous, conv.qty, item.Unit, entity.MaxStock)
	case entity.DeltaInsufficient:
		return nil, &domain.InsufficientStockError{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Available: previous,
			Requested: conv.qty,
			Unit:      item.Unit,
		}
	}

	now := uc.now()
	status := item.StatusFor(next)
	var restocked *time.Time
	if in.Type == entity.AdjustmentRestock {
		restocked = &now
	}
	if err := items.ApplyDelta(ctx, item.ID, next, status, restocked); err != nil {
		return nil, err
	}
	if in.UnitCost != nil {
		// costo por unidad base: total pagado / cantidad convertida
		incoming := in.UnitCost.Mul(in.Quantity).Div(conv.qty)
		price := inventory.WeightedAverageCost(previous, item.PricePerUnit, conv.qty, incoming)
		if err := items.UpdatePrice(ctx, item.ID, price); err != nil {
			return nil, err
		}
	}

	adj := &entity.StockAdjustment{
		ID:               uuid.New().String(),
		ItemID:           item.ID,
		ItemName:         item.Name,
		Type:             in.Type,
		Quantity:         conv.qty,
		Unit:             item.Unit,
		OriginalQuantity: conv.original,
		OriginalUnit:     conv.originalUnit,
		PreviousStock:    previous,
		NewStock:         next,
		Notes:            strings.TrimSpace(in.Notes),
		ConversionNote:   conv.note,
		Reference:        in.Reference,
		TransactionID:    in.TransactionID,
		PerformedBy:      in.PerformedBy,
		CreatedAt:        now,
	}
	if err := ledger.Create(ctx, adj); err != nil {
		return nil, err
	}
	return &AdjustResult{NewStock: next, Status: status, Adjustment: adj}, nil
}

// CompensateInTx acredita de vuelta exactamente lo que descontó original, como un ajuste
// correction nuevo (nunca edita la fila original). Si el crédito superara la capacidad
// se rechaza en lugar de recortarlo.
func (uc *AdjustStockUseCase) CompensateInTx(
	ctx context.Context,
	items repository.InventoryItemRepository,
	ledger repository.StockAdjustmentRepository,
	original *entity.StockAdjustment,
	rollbackTxID, performedBy string,
) (*AdjustResult, error) {
	if !original.Type.Consumes() {
		return nil, fmt.Errorf("%w: solo se compensan ajustes que restan stock (%s)", domain.ErrInvalidInput, original.Type)
	}
	item, err := items.GetForUpdate(ctx, original.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	target := item.CurrentStock.Add(original.Quantity)
	if target.GreaterThan(entity.MaxStock) {
		return nil, fmt.Errorf("%w: devolver %s %s dejaría %s", domain.ErrOverCapacity, original.Quantity, original.Unit, target)
	}
	in := AdjustInput{
		Type:     entity.AdjustmentCorrection,
		Quantity: target,
		Unit:     item.Unit,
		Notes: fmt.Sprintf("Rollback: +%s %s del ajuste %s (%s)",
			original.Quantity, original.Unit, original.ID, original.Type),
		PerformedBy: performedBy,
		Reference: &entity.AdjustmentReference{
			Type:   entity.ReferenceRollback,
			ID:     original.TransactionID,
			Number: original.ID,
		},
		TransactionID: rollbackTxID,
	}
	return uc.AdjustInTx(ctx, items, ledger, item.ID, in)
}

// Publish emite los eventos de ajustes confirmados. Un fallo del broker solo se registra:
// los ajustes ya están en el ledger.
func (uc *AdjustStockUseCase) Publish(ctx context.Context, results ...*AdjustResult) {
	if len(results) == 0 {
		return
	}
	events := make([]StockAdjustedEvent, 0, len(results))
	for _, r := range results {
		a := r.Adjustment
		events = append(events, StockAdjustedEvent{
			AdjustmentID:  a.ID,
			ItemID:        a.ItemID,
			ItemName:      a.ItemName,
			Type:          a.Type.String(),
			Quantity:      a.Quantity,
			Unit:          a.Unit,
			PreviousStock: a.PreviousStock,
			NewStock:      a.NewStock,
			Status:        r.Status,
			TransactionID: a.TransactionID,
			OccurredAt:    a.CreatedAt,
		})
	}
	if err := uc.publisher.PublishStockAdjusted(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Int("events", len(events)).Msg("no se pudo publicar evento de stock")
	}
}

func (uc *AdjustStockUseCase) reject(span trace.Span, itemID string, in AdjustInput, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.Code(err))
	ev := uc.log.Warn()
	if !domain.IsBusinessRejection(err) {
		ev = uc.log.Error()
	}
	ev.Err(err).
		Str("item_id", itemID).
		Str("type", in.Type.String()).
		Str("quantity", in.Quantity.String()).
		Str("unit", in.Unit).
		Str("code", domain.Code(err)).
		Msg("ajuste de stock rechazado")
	return err
}

func validateAdjustInput(itemID string, in AdjustInput) error {
	if _, err := uuid.Parse(itemID); err != nil {
		return domain.ErrInvalidItemID
	}
	if !in.Type.Valid() {
		return domain.ErrInvalidAdjustmentType
	}
	// el tope se valida después de convertir a la unidad base
	if !in.Quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if in.Unit != "" && !inventory.IsValidUnit(in.Unit) {
		return &inventory.ConversionError{From: in.Unit, Err: domain.ErrInvalidUnit}
	}
	if in.Reference != nil && !in.Reference.Type.Valid() {
		return fmt.Errorf("%w: tipo de referencia %q", domain.ErrInvalidInput, in.Reference.Type)
	}
	if in.UnitCost != nil {
		if in.Type != entity.AdjustmentRestock {
			return fmt.Errorf("%w: unit_cost solo aplica a restock", domain.ErrInvalidInput)
		}
		if in.UnitCost.IsNegative() {
			return fmt.Errorf("%w: unit_cost no puede ser negativo", domain.ErrInvalidInput)
		}
	}
	return nil
}

// convertToBase lleva la cantidad a la unidad base del ítem con su precisión (4 decimales,
// enteros en unidades de conteo) y exige 0 < cantidad ≤ MaxStock sobre el resultado.
func convertToBase(item *entity.InventoryItem, qty decimal.Decimal, unit string) (conversion, error) {
	conv, err := toBase(item, qty, unit)
	if err != nil {
		return conversion{}, err
	}
	if !conv.qty.IsPositive() {
		return conversion{}, fmt.Errorf("%w: %s %s equivale a 0 %s", domain.ErrInvalidQuantity, qty, unit, item.Unit)
	}
	if conv.qty.GreaterThan(entity.MaxStock) {
		return conversion{}, fmt.Errorf("%w: %s %s supera el máximo de %s %s", domain.ErrInvalidQuantity, conv.qty, item.Unit, entity.MaxStock, item.Unit)
	}
	return conv, nil
}

func toBase(item *entity.InventoryItem, qty decimal.Decimal, unit string) (conversion, error) {
	if strings.TrimSpace(unit) == "" || inventory.SameUnit(unit, item.Unit) {
		return conversion{qty: inventory.FormatQuantity(qty, item.Unit)}, nil
	}
	density, _ := inventory.DensityFor(item)
	converted, err := inventory.SmartConvert(qty, unit, item.Unit, density)
	if err != nil {
		var cerr *inventory.ConversionError
		if errors.As(err, &cerr) && errors.Is(err, domain.ErrMissingDensity) {
			return conversion{}, fmt.Errorf("%w (ítem %q, categoría %q)", err, item.Name, item.Category)
		}
		return conversion{}, err
	}
	original := qty
	return conversion{
		qty:          inventory.FormatQuantity(converted, item.Unit),
		original:     &original,
		originalUnit: unit,
		note:         inventory.ConversionNote(qty, unit, converted, item.Unit),
	}, nil
}
