package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// BatchMode modo de confirmación de un lote de descuentos.
type BatchMode string

const (
	// BatchModeAtomic una sola transacción para todos los descuentos.
	BatchModeAtomic BatchMode = "atomic"
	// BatchModePerItem cada descuento se confirma por separado y se compensa si el lote falla.
	BatchModePerItem BatchMode = "per_item"
)

// ParseBatchMode interpreta el modo; vacío o desconocido es atomic.
func ParseBatchMode(s string) BatchMode {
	if BatchMode(strings.ToLower(strings.TrimSpace(s))) == BatchModePerItem {
		return BatchModePerItem
	}
	return BatchModeAtomic
}

// OrderDeductionConfig opciones del coordinador.
type OrderDeductionConfig struct {
	Mode            BatchMode
	RollbackEnabled bool
}

// OrderDeductionUseCase coordina el descuento de ingredientes de un pedido: agrega,
// resuelve, verifica disponibilidad y solo entonces confirma.
type OrderDeductionUseCase struct {
	txRunner   TxRunner
	itemRepo   repository.InventoryItemRepository
	ledgerRepo repository.StockAdjustmentRepository
	engine     *AdjustStockUseCase
	guard      RollbackGuard
	cfg        OrderDeductionConfig
	log        *logger.Logger
}

// NewOrderDeductionUseCase construye el coordinador.
func NewOrderDeductionUseCase(
	txRunner TxRunner,
	itemRepo repository.InventoryItemRepository,
	ledgerRepo repository.StockAdjustmentRepository,
	engine *AdjustStockUseCase,
	guard RollbackGuard,
	cfg OrderDeductionConfig,
	log *logger.Logger,
) *OrderDeductionUseCase {
	if cfg.Mode == "" {
		cfg.Mode = BatchModeAtomic
	}
	return &OrderDeductionUseCase{
		txRunner:   txRunner,
		itemRepo:   itemRepo,
		ledgerRepo: ledgerRepo,
		engine:     engine,
		guard:      guard,
		cfg:        cfg,
		log:        log.Component("order_deduction"),
	}
}

// Ingredient cantidad de un ingrediente por unidad de plato.
type Ingredient struct {
	Name     string
	Quantity decimal.Decimal
	Unit     string
}

// OrderLineItem línea del pedido.
type OrderLineItem struct {
	Ingredients     []Ingredient
	OrderedQuantity decimal.Decimal
}

// ProcessOrderInput entrada de ProcessOrder.
type ProcessOrderInput struct {
	OrderID     string
	OrderNumber string
	PerformedBy string
	LineItems   []OrderLineItem
}

// Shortfall faltante de un ingrediente en la unidad base del ítem.
type Shortfall struct {
	Name      string
	ItemID    string
	Required  decimal.Decimal
	Available decimal.Decimal
	ShortBy   decimal.Decimal
	Unit      string
}

// DeductionResult descuento confirmado.
type DeductionResult struct {
	Name          string
	ItemID        string
	AdjustmentID  string
	Quantity      decimal.Decimal
	Unit          string
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
	Status        entity.StockStatus
}

// FailedDeduction descuento rechazado. Available/Requested solo vienen con INSUFFICIENT_STOCK.
type FailedDeduction struct {
	Name      string
	ItemID    string
	Code      string
	Message   string
	Available *decimal.Decimal
	Requested *decimal.Decimal
	Unit      string
}

// BatchAdjustmentResult resultado de ProcessOrder.
type BatchAdjustmentResult struct {
	Success           bool
	TransactionID     string
	AllAvailable      bool
	Successful        []DeductionResult
	Failed            []FailedDeduction
	Shortfalls        []Shortfall
	RollbackPerformed bool
	FailedRollbacks   []FailedRollback
}

// requirementPart cantidad acumulada de un ingrediente en una unidad concreta.
type requirementPart struct {
	qty  decimal.Decimal
	unit string
}

// requirement necesidad agregada de un ingrediente (clave: nombre sin distinguir mayúsculas).
type requirement struct {
	name  string
	parts []requirementPart
}

func (r *requirement) add(qty decimal.Decimal, unit string) {
	for i := range r.parts {
		if inventory.SameUnit(r.parts[i].unit, unit) {
			r.parts[i].qty = r.parts[i].qty.Add(qty)
			return
		}
	}
	r.parts = append(r.parts, requirementPart{qty: qty, unit: unit})
}

// resolved requerimiento con su ítem y la cantidad total en la unidad base.
type resolved struct {
	req   *requirement
	item  *entity.InventoryItem
	total decimal.Decimal
}

var nameFolder = cases.Fold()

func nameKey(name string) string {
	return nameFolder.String(strings.TrimSpace(name))
}

// aggregate multiplica cada ingrediente por la cantidad pedida y suma por nombre,
// en el orden de primera aparición.
func aggregate(lines []OrderLineItem) ([]*requirement, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: el pedido no tiene líneas", domain.ErrInvalidInput)
	}
	byKey := make(map[string]*requirement)
	var out []*requirement
	for _, line := range lines {
		if !line.OrderedQuantity.IsPositive() {
			return nil, fmt.Errorf("%w: cantidad pedida %s", domain.ErrInvalidQuantity, line.OrderedQuantity)
		}
		for _, ing := range line.Ingredients {
			if err := validateRequirement(ing.Name, ing.Quantity, ing.Unit); err != nil {
				return nil, err
			}
			key := nameKey(ing.Name)
			req, ok := byKey[key]
			if !ok {
				req = &requirement{name: strings.TrimSpace(ing.Name)}
				byKey[key] = req
				out = append(out, req)
			}
			req.add(ing.Quantity.Mul(line.OrderedQuantity), ing.Unit)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: el pedido no tiene ingredientes", domain.ErrInvalidInput)
	}
	return out, nil
}

func validateRequirement(name string, qty decimal.Decimal, unit string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: ingrediente sin nombre", domain.ErrInvalidInput)
	}
	// el máximo aplica al total convertido: un total mayor nunca alcanza en stock
	if !qty.IsPositive() {
		return fmt.Errorf("%w: %q %s", domain.ErrInvalidQuantity, name, qty)
	}
	if unit != "" && !inventory.IsValidUnit(unit) {
		return &inventory.ConversionError{From: unit, Err: domain.ErrInvalidUnit}
	}
	return nil
}

// resolve busca cada ingrediente y convierte su total a la unidad base del ítem.
// Los ingredientes inexistentes, inconvertibles o que redondean a 0 se devuelven como fallos; los errores
// de almacenamiento se devuelven como error.
func (uc *OrderDeductionUseCase) resolve(ctx context.Context, reqs []*requirement) ([]resolved, []FailedDeduction, error) {
	var (
		out    []resolved
		failed []FailedDeduction
	)
	for _, req := range reqs {
		item, err := uc.itemRepo.GetByName(ctx, req.name)
		if err != nil {
			return nil, nil, fmt.Errorf("resolver %q: %w", req.name, err)
		}
		if item == nil {
			failed = append(failed, FailedDeduction{
				Name:    req.name,
				Code:    domain.CodeItemNotFound,
				Message: fmt.Sprintf("ítem %q no existe en inventario", req.name),
			})
			continue
		}
		total := decimal.Zero
		var convErr error
		for _, p := range req.parts {
			q, err := inventory.ToItemUnit(item, p.qty, p.unit)
			if err != nil {
				convErr = err
				break
			}
			total = total.Add(q)
		}
		if convErr != nil {
			failed = append(failed, failedFrom(req.name, item, convErr))
			continue
		}
		total = inventory.FormatQuantity(total, item.Unit)
		if !total.IsPositive() {
			failed = append(failed, failedFrom(req.name, item,
				fmt.Errorf("%w: %s equivale a 0 %s", domain.ErrInvalidQuantity, req.name, item.Unit)))
			continue
		}
		out = append(out, resolved{req: req, item: item, total: total})
	}
	return out, failed, nil
}

func shortfalls(items []resolved) []Shortfall {
	var out []Shortfall
	for _, r := range items {
		if r.item.CurrentStock.LessThan(r.total) {
			out = append(out, Shortfall{
				Name:      r.req.name,
				ItemID:    r.item.ID,
				Required:  r.total,
				Available: r.item.CurrentStock,
				ShortBy:   r.total.Sub(r.item.CurrentStock),
				Unit:      r.item.Unit,
			})
		}
	}
	return out
}

// deductionInput arma la entrada del motor. Con una sola unidad se delega la conversión
// al motor para que quede la nota de conversión; con varias se descuenta el total ya convertido.
func deductionInput(r resolved, in ProcessOrderInput, txID string) AdjustInput {
	ai := AdjustInput{
		Type:        entity.AdjustmentDeduction,
		Quantity:    r.total,
		Unit:        r.item.Unit,
		Notes:       fmt.Sprintf("Pedido %s", in.OrderNumber),
		PerformedBy: in.PerformedBy,
		Reference: &entity.AdjustmentReference{
			Type:   entity.ReferenceOrder,
			ID:     in.OrderID,
			Number: in.OrderNumber,
		},
		TransactionID: txID,
	}
	if len(r.req.parts) == 1 {
		ai.Quantity = r.req.parts[0].qty
		ai.Unit = r.req.parts[0].unit
		return ai
	}
	parts := make([]string, 0, len(r.req.parts))
	for _, p := range r.req.parts {
		parts = append(parts, strings.TrimSpace(p.qty.String()+" "+p.unit))
	}
	ai.Notes = fmt.Sprintf("Pedido %s (%s)", in.OrderNumber, strings.Join(parts, " + "))
	return ai
}

// ProcessOrder descuenta los ingredientes de un pedido. Los rechazos de negocio (ítem
// inexistente, faltantes, conversiones) vuelven en el resultado con error nil; el error se
// reserva para entradas inválidas y fallos de almacenamiento antes de confirmar nada.
func (uc *OrderDeductionUseCase) ProcessOrder(ctx context.Context, in ProcessOrderInput) (*BatchAdjustmentResult, error) {
	ctx, span := tracer.Start(ctx, "inventory.process_order", trace.WithAttributes(
		attribute.String("order.id", in.OrderID),
		attribute.String("order.number", in.OrderNumber),
		attribute.String("batch.mode", string(uc.cfg.Mode)),
	))
	defer span.End()

	if strings.TrimSpace(in.OrderID) == "" {
		return nil, uc.fail(span, fmt.Errorf("%w: orderId requerido", domain.ErrInvalidInput))
	}
	reqs, err := aggregate(in.LineItems)
	if err != nil {
		return nil, uc.fail(span, err)
	}
	items, failed, err := uc.resolve(ctx, reqs)
	if err != nil {
		return nil, uc.fail(span, err)
	}

	txID := uuid.New().String()
	result := &BatchAdjustmentResult{TransactionID: txID}
	if len(failed) > 0 {
		result.Failed = failed
		uc.logRejected(in, result, "ingredientes sin resolver")
		span.SetStatus(codes.Error, "ingredientes sin resolver")
		return result, nil
	}
	if sf := shortfalls(items); len(sf) > 0 {
		result.Shortfalls = sf
		uc.logRejected(in, result, "stock insuficiente")
		span.SetStatus(codes.Error, "stock insuficiente")
		return result, nil
	}
	result.AllAvailable = true

	if uc.cfg.Mode == BatchModePerItem {
		err = uc.commitPerItem(ctx, in, items, result)
	} else {
		err = uc.commitAtomic(ctx, in, items, result)
	}
	if err != nil {
		return nil, uc.fail(span, err)
	}
	result.Success = len(result.Failed) == 0
	span.SetAttributes(
		attribute.Int("batch.successful", len(result.Successful)),
		attribute.Int("batch.failed", len(result.Failed)),
		attribute.Bool("batch.rollback", result.RollbackPerformed),
	)
	if result.Success {
		span.SetStatus(codes.Ok, "pedido descontado")
		uc.log.Info().
			Str("order_id", in.OrderID).
			Str("transaction_id", txID).
			Int("items", len(result.Successful)).
			Msg("pedido descontado de inventario")
	} else {
		span.SetStatus(codes.Error, "descuento parcial")
		uc.logRejected(in, result, "descuento fallido")
	}
	return result, nil
}

// commitAtomic ejecuta todos los descuentos en una sola transacción. Un rechazo aborta
// la transacción completa y se reporta en Failed sin descuentos aplicados.
func (uc *OrderDeductionUseCase) commitAtomic(ctx context.Context, in ProcessOrderInput, items []resolved, result *BatchAdjustmentResult) error {
	var (
		applied  []*AdjustResult
		failedAt *resolved
	)
	err := uc.txRunner.Run(ctx, func(itemTx repository.InventoryItemRepository, ledgerTx repository.StockAdjustmentRepository) error {
		applied = applied[:0]
		failedAt = nil
		for i := range items {
			res, err := uc.engine.AdjustInTx(ctx, itemTx, ledgerTx, items[i].item.ID, deductionInput(items[i], in, result.TransactionID))
			if err != nil {
				failedAt = &items[i]
				return err
			}
			applied = append(applied, res)
		}
		return nil
	})
	if err != nil {
		if failedAt != nil && domain.IsBusinessRejection(err) {
			result.Failed = append(result.Failed, failedFrom(failedAt.req.name, failedAt.item, err))
			return nil
		}
		return err
	}
	for i, res := range applied {
		result.Successful = append(result.Successful, deductionFrom(items[i].req.name, res))
	}
	uc.engine.Publish(ctx, applied...)
	return nil
}

// commitPerItem confirma cada descuento por separado; si alguno falla después de otros
// ya confirmados, los compensa (si el rollback está habilitado).
func (uc *OrderDeductionUseCase) commitPerItem(ctx context.Context, in ProcessOrderInput, items []resolved, result *BatchAdjustmentResult) error {
	var firstErr error
	for _, r := range items {
		res, err := uc.engine.Adjust(ctx, r.item.ID, deductionInput(r, in, result.TransactionID))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			result.Failed = append(result.Failed, failedFrom(r.req.name, r.item, err))
			continue
		}
		result.Successful = append(result.Successful, deductionFrom(r.req.name, res))
	}
	if len(result.Successful) == 0 && firstErr != nil && !domain.IsBusinessRejection(firstErr) {
		return firstErr
	}
	if len(result.Failed) == 0 || len(result.Successful) == 0 || !uc.cfg.RollbackEnabled {
		return nil
	}

	ids := make([]string, 0, len(result.Successful))
	for _, s := range result.Successful {
		ids = append(ids, s.AdjustmentID)
	}
	rb, err := uc.Rollback(ctx, RollbackInput{
		TransactionID: result.TransactionID,
		AdjustmentIDs: ids,
		PerformedBy:   in.PerformedBy,
	})
	result.RollbackPerformed = true
	if err != nil {
		// Ninguna compensación se escribió: todas quedan pendientes
		for _, s := range result.Successful {
			result.FailedRollbacks = append(result.FailedRollbacks, FailedRollback{
				AdjustmentID: s.AdjustmentID,
				ItemID:       s.ItemID,
				ItemName:     s.Name,
				Quantity:     s.Quantity,
				Unit:         s.Unit,
				Code:         domain.Code(err),
				Message:      err.Error(),
			})
		}
		return nil
	}
	result.FailedRollbacks = rb.FailedRollbacks
	return nil
}

// AvailabilityRequest consulta de disponibilidad de un ítem.
type AvailabilityRequest struct {
	ItemName string
	Quantity decimal.Decimal
	Unit     string
}

// AvailabilityResult disponibilidad de un ítem consultado.
type AvailabilityResult struct {
	ItemName   string
	ItemID     string
	Found      bool
	Sufficient bool
	Required   decimal.Decimal
	Available  decimal.Decimal
	Unit       string
	Code       string
	Message    string
}

// AvailabilityReport resultado de CheckAvailability.
type AvailabilityReport struct {
	AllAvailable      bool
	Results           []AvailabilityResult
	InsufficientItems []Shortfall
}

// CheckAvailability compara lo requerido contra el stock actual sin mutar nada.
// Ítems repetidos se suman como en ProcessOrder.
func (uc *OrderDeductionUseCase) CheckAvailability(ctx context.Context, reqs []AvailabilityRequest) (*AvailabilityReport, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: sin ítems a consultar", domain.ErrInvalidInput)
	}
	ings := make([]Ingredient, 0, len(reqs))
	for _, r := range reqs {
		ings = append(ings, Ingredient{Name: r.ItemName, Quantity: r.Quantity, Unit: r.Unit})
	}
	aggregated, err := aggregate([]OrderLineItem{{Ingredients: ings, OrderedQuantity: decimal.NewFromInt(1)}})
	if err != nil {
		return nil, err
	}
	items, failed, err := uc.resolve(ctx, aggregated)
	if err != nil {
		return nil, err
	}

	report := &AvailabilityReport{AllAvailable: len(failed) == 0}
	short := make(map[string]Shortfall)
	for _, s := range shortfalls(items) {
		short[s.ItemID] = s
		report.InsufficientItems = append(report.InsufficientItems, s)
		report.AllAvailable = false
	}
	failedByName := make(map[string]FailedDeduction, len(failed))
	for _, f := range failed {
		failedByName[nameKey(f.Name)] = f
	}
	resolvedByName := make(map[string]resolved, len(items))
	for _, r := range items {
		resolvedByName[nameKey(r.req.name)] = r
	}
	// Resultados en el orden de la consulta
	for _, req := range aggregated {
		key := nameKey(req.name)
		if f, ok := failedByName[key]; ok {
			report.Results = append(report.Results, AvailabilityResult{
				ItemName: req.name,
				ItemID:   f.ItemID,
				Found:    f.ItemID != "",
				Unit:     f.Unit,
				Code:     f.Code,
				Message:  f.Message,
			})
			continue
		}
		r := resolvedByName[key]
		_, isShort := short[r.item.ID]
		res := AvailabilityResult{
			ItemName:   r.item.Name,
			ItemID:     r.item.ID,
			Found:      true,
			Sufficient: !isShort,
			Required:   r.total,
			Available:  r.item.CurrentStock,
			Unit:       r.item.Unit,
		}
		if isShort {
			res.Code = domain.CodeInsufficientStock
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func failedFrom(name string, item *entity.InventoryItem, err error) FailedDeduction {
	f := FailedDeduction{Name: name, Code: domain.Code(err), Message: err.Error()}
	if item != nil {
		f.ItemID = item.ID
		f.Unit = item.Unit
	}
	var ins *domain.InsufficientStockError
	if errors.As(err, &ins) {
		available, requested := ins.Available, ins.Requested
		f.Available = &available
		f.Requested = &requested
		f.Unit = ins.Unit
	}
	return f
}

func deductionFrom(name string, res *AdjustResult) DeductionResult {
	a := res.Adjustment
	return DeductionResult{
		Name:          name,
		ItemID:        a.ItemID,
		AdjustmentID:  a.ID,
		Quantity:      a.Quantity,
		Unit:          a.Unit,
		PreviousStock: a.PreviousStock,
		NewStock:      a.NewStock,
		Status:        res.Status,
	}
}

func (uc *OrderDeductionUseCase) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.Code(err))
	return err
}

func (uc *OrderDeductionUseCase) logRejected(in ProcessOrderInput, res *BatchAdjustmentResult, msg string) {
	ev := uc.log.Warn()
	if len(res.FailedRollbacks) > 0 {
		ev = uc.log.Error()
	}
	ev.Str("order_id", in.OrderID).
		Str("transaction_id", res.TransactionID).
		Int("failed", len(res.Failed)).
		Int("shortfalls", len(res.Shortfalls)).
		Bool("rollback", res.RollbackPerformed).
		Int("failed_rollbacks", len(res.FailedRollbacks)).
		Msg(msg)
}
