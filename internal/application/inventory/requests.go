package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Adaptadores request HTTP → casos de uso y resultado → respuesta.
// Los handlers los usan para no conocer los tipos internos.

// AdjustFromRequest adapta el body de un ajuste al motor.
func (uc *AdjustStockUseCase) AdjustFromRequest(ctx context.Context, itemID string, in dto.AdjustStockRequest) (*dto.AdjustStockResponse, error) {
	t, ok := entity.ParseAdjustmentType(in.Type)
	if !ok {
		return nil, domain.ErrInvalidAdjustmentType
	}
	input := AdjustInput{
		Type:        t,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		Notes:       in.Notes,
		PerformedBy: in.PerformedBy,
		UnitCost:    in.UnitCost,
	}
	if in.Reference != nil {
		input.Reference = &entity.AdjustmentReference{
			Type:   entity.ReferenceType(strings.ToLower(in.Reference.Type)),
			ID:     in.Reference.ID,
			Number: in.Reference.Number,
		}
	}
	res, err := uc.Adjust(ctx, itemID, input)
	if err != nil {
		return nil, err
	}
	return &dto.AdjustStockResponse{
		NewStock:   res.NewStock,
		Status:     string(res.Status),
		Adjustment: ToAdjustmentResponse(res.Adjustment),
	}, nil
}

// CreateFromRequest adapta el alta de ítem.
func (uc *ItemUseCase) CreateFromRequest(ctx context.Context, performedBy string, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.Create(ctx, CreateItemInput{
		Name:         in.Name,
		Category:     in.Category,
		InitialStock: in.CurrentStock,
		MinStock:     in.MinStock,
		MaxStock:     in.MaxStock,
		ReorderPoint: in.ReorderPoint,
		Unit:         in.Unit,
		DisplayUnit:  in.DisplayUnit,
		PricePerUnit: in.PricePerUnit,
		Supplier:     in.Supplier,
		Location:     in.Location,
		Density:      in.Density,
		PerformedBy:  performedBy,
	})
	if err != nil {
		return nil, err
	}
	out := ToItemResponse(item)
	return &out, nil
}

// CheckAvailabilityFromRequest adapta la consulta de disponibilidad.
func (uc *OrderDeductionUseCase) CheckAvailabilityFromRequest(ctx context.Context, in dto.CheckAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	reqs := make([]AvailabilityRequest, 0, len(in.Items))
	for _, it := range in.Items {
		reqs = append(reqs, AvailabilityRequest{ItemName: it.ItemName, Quantity: it.Quantity, Unit: it.Unit})
	}
	report, err := uc.CheckAvailability(ctx, reqs)
	if err != nil {
		return nil, err
	}
	out := &dto.AvailabilityResponse{
		AllAvailable:      report.AllAvailable,
		Results:           make([]dto.AvailabilityResultResponse, 0, len(report.Results)),
		InsufficientItems: toShortfallResponses(report.InsufficientItems),
	}
	for _, r := range report.Results {
		out.Results = append(out.Results, dto.AvailabilityResultResponse{
			ItemName:   r.ItemName,
			ItemID:     r.ItemID,
			Found:      r.Found,
			Sufficient: r.Sufficient,
			Required:   r.Required,
			Available:  r.Available,
			Unit:       r.Unit,
			Code:       r.Code,
			Message:    r.Message,
		})
	}
	return out, nil
}

// ProcessOrderFromRequest adapta el descuento de un pedido.
func (uc *OrderDeductionUseCase) ProcessOrderFromRequest(ctx context.Context, orderID string, in dto.ProcessOrderRequest) (*dto.BatchAdjustmentResponse, error) {
	input := ProcessOrderInput{
		OrderID:     orderID,
		OrderNumber: in.OrderNumber,
		PerformedBy: in.PerformedBy,
		LineItems:   make([]OrderLineItem, 0, len(in.LineItems)),
	}
	for _, li := range in.LineItems {
		line := OrderLineItem{OrderedQuantity: li.OrderedQuantity}
		for _, ing := range li.Ingredients {
			line.Ingredients = append(line.Ingredients, Ingredient{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit})
		}
		input.LineItems = append(input.LineItems, line)
	}
	res, err := uc.ProcessOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	out := &dto.BatchAdjustmentResponse{
		Success:           res.Success,
		TransactionID:     res.TransactionID,
		AllAvailable:      res.AllAvailable,
		Successful:        make([]dto.DeductionResponse, 0, len(res.Successful)),
		Failed:            make([]dto.FailedDeductionResponse, 0, len(res.Failed)),
		Shortfalls:        toShortfallResponses(res.Shortfalls),
		RollbackPerformed: res.RollbackPerformed,
		FailedRollbacks:   toFailedRollbackResponses(res.FailedRollbacks),
	}
	for _, s := range res.Successful {
		out.Successful = append(out.Successful, dto.DeductionResponse{
			Name:          s.Name,
			ItemID:        s.ItemID,
			AdjustmentID:  s.AdjustmentID,
			Quantity:      s.Quantity,
			Unit:          s.Unit,
			PreviousStock: s.PreviousStock,
			NewStock:      s.NewStock,
			Status:        string(s.Status),
		})
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, dto.FailedDeductionResponse{
			Name:      f.Name,
			ItemID:    f.ItemID,
			Code:      f.Code,
			Message:   f.Message,
			Available: f.Available,
			Requested: f.Requested,
			Unit:      f.Unit,
		})
	}
	return out, nil
}

// RollbackFromRequest adapta el rollback de una transacción.
func (uc *OrderDeductionUseCase) RollbackFromRequest(ctx context.Context, transactionID string, in dto.RollbackRequest) (*dto.RollbackResponse, error) {
	res, err := uc.Rollback(ctx, RollbackInput{
		TransactionID: transactionID,
		AdjustmentIDs: in.AdjustmentIDs,
		PerformedBy:   in.PerformedBy,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.RollbackResponse{
		Success:               res.Success,
		TransactionID:         res.TransactionID,
		RollbackTransactionID: res.RollbackTransactionID,
		RolledBackItems:       make([]dto.RolledBackItemResponse, 0, len(res.RolledBackItems)),
		FailedRollbacks:       toFailedRollbackResponses(res.FailedRollbacks),
	}
	for _, r := range res.RolledBackItems {
		out.RolledBackItems = append(out.RolledBackItems, dto.RolledBackItemResponse{
			AdjustmentID:         r.AdjustmentID,
			RollbackAdjustmentID: r.RollbackAdjustmentID,
			ItemID:               r.ItemID,
			ItemName:             r.ItemName,
			Quantity:             r.Quantity,
			Unit:                 r.Unit,
			NewStock:             r.NewStock,
			AlreadyRolledBack:    r.AlreadyRolledBack,
		})
	}
	return out, nil
}

// ListFromQuery adapta la consulta del ledger. Las fechas aceptan RFC3339 o YYYY-MM-DD;
// una fecha sola en To cubre el día completo.
func (uc *AuditQueryUseCase) ListFromQuery(ctx context.Context, q dto.AdjustmentListQuery) (*dto.AdjustmentListResponse, error) {
	from, err := parseDate(q.From, false)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(q.To, true)
	if err != nil {
		return nil, err
	}
	page, err := uc.List(ctx, AuditFilter{
		ItemID:        q.ItemID,
		Search:        q.Search,
		Type:          q.Type,
		ReferenceType: q.ReferenceType,
		TransactionID: q.TransactionID,
		From:          from,
		To:            to,
		Page:          q.Page,
		Limit:         q.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &dto.AdjustmentListResponse{
		Entries: ToAdjustmentResponses(page.Entries),
		Pagination: dto.PageResponse{
			Page:       page.Pagination.Page,
			Limit:      page.Pagination.Limit,
			Total:      page.Pagination.Total,
			TotalPages: page.Pagination.TotalPages,
		},
		Stats: page.Stats,
	}, nil
}

// HistoryResponse adapta el historial de un ítem.
func (uc *AuditQueryUseCase) HistoryResponse(ctx context.Context, itemID string) (*dto.ItemHistoryResponse, error) {
	h, err := uc.History(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &dto.ItemHistoryResponse{
		Item:          ToItemResponse(h.Item),
		Entries:       ToAdjustmentResponses(h.Entries),
		ReplayedStock: h.ReplayedStock,
		Consistent:    h.Consistent,
		BrokenAt:      h.BrokenAt,
	}, nil
}

func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha %q", domain.ErrInvalidInput, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ToItemResponse mapea un ítem a su respuesta.
func ToItemResponse(it *entity.InventoryItem) dto.ItemResponse {
	return dto.ItemResponse{
		ID:            it.ID,
		Name:          it.Name,
		Category:      it.Category,
		CurrentStock:  it.CurrentStock,
		MinStock:      it.MinStock,
		MaxStock:      it.MaxStock,
		ReorderPoint:  it.ReorderPoint,
		Unit:          it.Unit,
		DisplayUnit:   it.DisplayUnit,
		PricePerUnit:  it.PricePerUnit,
		Supplier:      it.Supplier,
		Location:      it.Location,
		Density:       it.Density,
		Status:        string(it.Status),
		LastRestocked: it.LastRestocked,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
}

// ToAdjustmentResponse mapea una fila del ledger.
func ToAdjustmentResponse(a *entity.StockAdjustment) dto.AdjustmentResponse {
	out := dto.AdjustmentResponse{
		ID:               a.ID,
		ItemID:           a.ItemID,
		ItemName:         a.ItemName,
		Type:             a.Type.String(),
		Quantity:         a.Quantity,
		Unit:             a.Unit,
		OriginalQuantity: a.OriginalQuantity,
		OriginalUnit:     a.OriginalUnit,
		PreviousStock:    a.PreviousStock,
		NewStock:         a.NewStock,
		Notes:            a.Notes,
		ConversionNote:   a.ConversionNote,
		TransactionID:    a.TransactionID,
		PerformedBy:      a.PerformedBy,
		CreatedAt:        a.CreatedAt,
	}
	if a.Reference != nil {
		out.Reference = &dto.ReferenceDTO{Type: string(a.Reference.Type), ID: a.Reference.ID, Number: a.Reference.Number}
	}
	return out
}

// ToAdjustmentResponses mapea varias filas; nunca devuelve nil.
func ToAdjustmentResponses(in []*entity.StockAdjustment) []dto.AdjustmentResponse {
	out := make([]dto.AdjustmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, ToAdjustmentResponse(a))
	}
	return out
}

func toShortfallResponses(in []Shortfall) []dto.ShortfallResponse {
	out := make([]dto.ShortfallResponse, 0, len(in))
	for _, s := range in {
		out = append(out, dto.ShortfallResponse{
			Name:      s.Name,
			ItemID:    s.ItemID,
			Required:  s.Required,
			Available: s.Available,
			ShortBy:   s.ShortBy,
			Unit:      s.Unit,
		})
	}
	return out
}

func toFailedRollbackResponses(in []FailedRollback) []dto.FailedRollbackResponse {
	out := make([]dto.FailedRollbackResponse, 0, len(in))
	for _, f := range in {
		out = append(out, dto.FailedRollbackResponse{
			AdjustmentID: f.AdjustmentID,
			ItemID:       f.ItemID,
			ItemName:     f.ItemName,
			Quantity:     f.Quantity,
			Unit:         f.Unit,
			Code:         f.Code,
			Message:      f.Message,
		})
	}
	return out
}

// ReorderListResponse adapta la lista de reposición.
func (uc *ReplenishmentUseCase) ReorderListResponse(ctx context.Context) ([]dto.ReorderSuggestionResponse, error) {
	list, err := uc.GenerateReorderList(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReorderSuggestionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.ReorderSuggestionResponse{
			ItemID:          s.Item.ID,
			ItemName:        s.Item.Name,
			Status:          string(s.Item.Status),
			Unit:            s.Item.Unit,
			CurrentStock:    s.Item.CurrentStock,
			ReorderPoint:    s.Item.ReorderPoint,
			TargetStock:     s.TargetStock,
			SuggestedQty:    s.SuggestedQty,
			PricePerUnit:    s.Item.PricePerUnit,
			EstimatedCost:   s.EstimatedCost,
			UsageLast30Days: s.UsageLast30Days,
			Priority:        s.Priority,
		})
	}
	return out, nil
}
