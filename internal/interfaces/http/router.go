package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Items   *inventory.ItemUseCase
	Adjust  *inventory.AdjustStockUseCase
	Orders  *inventory.OrderDeductionUseCase
	Audit   *inventory.AuditQueryUseCase
	Reorder *inventory.ReplenishmentUseCase
	Log     *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", RequestContext(deps.Log))

	h := NewInventoryHandler(deps.Items, deps.Adjust, deps.Orders, deps.Audit, deps.Reorder)
	inv := api.Group("/inventory")

	items := inv.Group("/items")
	items.Post("/", h.CreateItem)
	items.Get("/", h.ListItems)
	items.Get("/:id", h.GetItem)
	items.Delete("/:id", h.DeleteItem)
	items.Post("/:id/adjustments", h.AdjustStock)
	items.Get("/:id/history", h.ItemHistory)

	inv.Post("/availability", h.CheckAvailability)
	inv.Post("/orders/:orderId/deductions", h.ProcessOrder)
	inv.Post("/transactions/:transactionId/rollback", h.RollbackTransaction)
	inv.Get("/adjustments", h.ListAdjustments)
	inv.Get("/reorder", h.GetReorderList)
}
