package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/validator"
)

// InventoryHandler maneja las rutas de inventario.
type InventoryHandler struct {
	items         *inventory.ItemUseCase
	adjust        *inventory.AdjustStockUseCase
	orders        *inventory.OrderDeductionUseCase
	audit         *inventory.AuditQueryUseCase
	replenishment *inventory.ReplenishmentUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	items *inventory.ItemUseCase,
	adjust *inventory.AdjustStockUseCase,
	orders *inventory.OrderDeductionUseCase,
	audit *inventory.AuditQueryUseCase,
	replenishment *inventory.ReplenishmentUseCase,
) *InventoryHandler {
	return &InventoryHandler{items: items, adjust: adjust, orders: orders, audit: audit, replenishment: replenishment}
}

// CreateItem godoc
// @Summary      Crear ítem de inventario
// @Description  El stock inicial se registra como ajuste de corrección en el ledger.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateItemRequest  true  "Datos del ítem"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/items [post]
func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if errs := validator.ValidateStruct(in); errs != nil {
		return validationFailed(c, errs)
	}
	out, err := h.items.CreateFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListItems godoc
// @Summary      Listar ítems
// @Tags         inventory
// @Produce      json
// @Param        limit   query     int  false  "Tamaño de página"
// @Param        offset  query     int  false  "Desplazamiento"
// @Success      200     {object}  map[string]interface{}
// @Router       /api/inventory/items [get]
func (h *InventoryHandler) ListItems(c *fiber.Ctx) error {
	var q dto.PageRequest
	if err := c.QueryParser(&q); err != nil {
		return invalidBody(c)
	}
	if errs := validator.ValidateStruct(q); errs != nil {
		return validationFailed(c, errs)
	}
	q.DefaultPage()
	items, err := h.items.List(c.UserContext(), q.Limit, q.Offset)
	if err != nil {
		return writeError(c, err)
	}
	total, err := h.items.Count(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, inventory.ToItemResponse(it))
	}
	return c.JSON(fiber.Map{
		"items": out,
		"pagination": dto.PageResponse{
			Page:       q.Offset/q.Limit + 1,
			Limit:      q.Limit,
			Offset:     q.Offset,
			Total:      total,
			TotalPages: (total + q.Limit - 1) / q.Limit,
		},
	})
}

// GetItem godoc
// @Summary      Obtener ítem
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "ID del ítem"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id} [get]
func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.items.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inventory.ToItemResponse(item))
}

// DeleteItem godoc
// @Summary      Eliminar ítem
// @Description  Los ajustes del ítem permanecen en el ledger.
// @Tags         inventory
// @Param        id   path  string  true  "ID del ítem"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id} [delete]
func (h *InventoryHandler) DeleteItem(c *fiber.Ctx) error {
	if err := h.items.Delete(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdjustStock godoc
// @Summary      Ajustar stock
// @Description  restock suma; usage, waste y deduction restan; correction fija el valor. Convierte a la unidad base del ítem.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "ID del ítem"
// @Param        body  body      dto.AdjustStockRequest  true  "Ajuste"
// @Success      201   {object}  dto.AdjustStockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/adjustments [post]
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.PerformedBy == "" {
		in.PerformedBy = GetUserID(c)
	}
	if errs := validator.ValidateStruct(in); errs != nil {
		return validationFailed(c, errs)
	}
	out, err := h.adjust.AdjustFromRequest(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ItemHistory godoc
// @Summary      Historial del ítem
// @Description  Devuelve el ledger del ítem y verifica que su replay coincide con el stock actual.
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "ID del ítem"
// @Success      200  {object}  dto.ItemHistoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/history [get]
func (h *InventoryHandler) ItemHistory(c *fiber.Ctx) error {
	out, err := h.audit.HistoryResponse(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CheckAvailability godoc
// @Summary      Consultar disponibilidad
// @Description  Solo lectura; no modifica stock.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CheckAvailabilityRequest  true  "Ítems a consultar"
// @Success      200   {object}  dto.AvailabilityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/availability [post]
func (h *InventoryHandler) CheckAvailability(c *fiber.Ctx) error {
	var in dto.CheckAvailabilityRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if errs := validator.ValidateStruct(in); errs != nil {
		return validationFailed(c, errs)
	}
	out, err := h.orders.CheckAvailabilityFromRequest(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ProcessOrder godoc
// @Summary      Descontar ingredientes de un pedido
// @Description  Agrega ingredientes por nombre, verifica disponibilidad y descuenta. Con faltantes no modifica nada.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        orderId  path      string                   true  "ID del pedido"
// @Param        body     body      dto.ProcessOrderRequest  true  "Líneas del pedido"
// @Success      200      {object}  dto.BatchAdjustmentResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      422      {object}  dto.BatchAdjustmentResponse
// @Router       /api/inventory/orders/{orderId}/deductions [post]
func (h *InventoryHandler) ProcessOrder(c *fiber.Ctx) error {
	var in dto.ProcessOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.PerformedBy == "" {
		in.PerformedBy = GetUserID(c)
	}
	if errs := validator.ValidateStruct(in); errs != nil {
		return validationFailed(c, errs)
	}
	out, err := h.orders.ProcessOrderFromRequest(c.UserContext(), c.Params("orderId"), in)
	if err != nil {
		return writeError(c, err)
	}
	if !out.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	}
	return c.JSON(out)
}

// RollbackTransaction godoc
// @Summary      Revertir una transacción
// @Description  Escribe correcciones compensatorias para los descuentos de la transacción. Idempotente.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        transactionId  path      string               true  "ID de la transacción"
// @Param        body           body      dto.RollbackRequest  true  "Ajustes a revertir (vacío = todos)"
// @Success      200            {object}  dto.RollbackResponse
// @Failure      404            {object}  dto.ErrorResponse
// @Failure      409            {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions/{transactionId}/rollback [post]
func (h *InventoryHandler) RollbackTransaction(c *fiber.Ctx) error {
	var in dto.RollbackRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	if in.PerformedBy == "" {
		in.PerformedBy = GetUserID(c)
	}
	if errs := validator.ValidateStruct(in); errs != nil {
		return validationFailed(c, errs)
	}
	out, err := h.orders.RollbackFromRequest(c.UserContext(), c.Params("transactionId"), in)
	if err != nil {
		return writeError(c, err)
	}
	if !out.Success {
		return c.Status(fiber.StatusMultiStatus).JSON(out)
	}
	return c.JSON(out)
}

// ListAdjustments godoc
// @Summary      Consultar el ledger
// @Description  Filtros combinables, más recientes primero, con conteo por tipo.
// @Tags         inventory
// @Produce      json
// @Param        item_id         query     string  false  "ID del ítem"
// @Param        search          query     string  false  "Texto en nombre o notas"
// @Param        type            query     string  false  "Tipo de ajuste"
// @Param        reference_type  query     string  false  "Tipo de referencia"
// @Param        transaction_id  query     string  false  "Transacción"
// @Param        from            query     string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to              query     string  false  "Hasta (RFC3339 o YYYY-MM-DD)"
// @Param        page            query     int     false  "Página"
// @Param        limit           query     int     false  "Tamaño de página (máx 100)"
// @Success      200             {object}  dto.AdjustmentListResponse
// @Failure      400             {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [get]
func (h *InventoryHandler) ListAdjustments(c *fiber.Ctx) error {
	var q dto.AdjustmentListQuery
	if err := c.QueryParser(&q); err != nil {
		return invalidBody(c)
	}
	if errs := validator.ValidateStruct(q); errs != nil {
		return validationFailed(c, errs)
	}
	out, err := h.audit.ListFromQuery(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetReorderList godoc
// @Summary      Lista de reposición
// @Description  Ítems en estado low o critical con cantidad sugerida y costo estimado, ordenados por prioridad.
// @Tags         inventory
// @Produce      json
// @Success      200  {array}   dto.ReorderSuggestionResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/reorder [get]
func (h *InventoryHandler) GetReorderList(c *fiber.Ctx) error {
	list, err := h.replenishment.ReorderListResponse(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}
