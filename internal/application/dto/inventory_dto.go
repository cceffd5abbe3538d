package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest body para POST /api/inventory/items.
type CreateItemRequest struct {
	Name         string           `json:"name" validate:"required,max=120"`
	Category     string           `json:"category" validate:"max=60"`
	CurrentStock decimal.Decimal  `json:"current_stock" validate:"decimal_gte0"`
	MinStock     decimal.Decimal  `json:"min_stock" validate:"decimal_gte0"`
	MaxStock     decimal.Decimal  `json:"max_stock" validate:"decimal_gte0"`
	ReorderPoint decimal.Decimal  `json:"reorder_point" validate:"decimal_gte0"`
	Unit         string           `json:"unit" validate:"required"`
	DisplayUnit  string           `json:"display_unit,omitempty"`
	PricePerUnit decimal.Decimal  `json:"price_per_unit" validate:"decimal_gte0"`
	Supplier     string           `json:"supplier,omitempty" validate:"max=120"`
	Location     string           `json:"location,omitempty" validate:"max=120"`
	Density      *decimal.Decimal `json:"density,omitempty"`
}

// ItemResponse ítem de inventario.
type ItemResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	CurrentStock  decimal.Decimal  `json:"current_stock"`
	MinStock      decimal.Decimal  `json:"min_stock"`
	MaxStock      decimal.Decimal  `json:"max_stock"`
	ReorderPoint  decimal.Decimal  `json:"reorder_point"`
	Unit          string           `json:"unit"`
	DisplayUnit   string           `json:"display_unit"`
	PricePerUnit  decimal.Decimal  `json:"price_per_unit"`
	Supplier      string           `json:"supplier,omitempty"`
	Location      string           `json:"location,omitempty"`
	Density       *decimal.Decimal `json:"density,omitempty"`
	Status        string           `json:"status"`
	LastRestocked *time.Time       `json:"last_restocked,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ReferenceDTO referencia de negocio de un ajuste.
type ReferenceDTO struct {
	Type   string `json:"type" validate:"required,oneof=order manual return adjustment rollback"`
	ID     string `json:"id,omitempty"`
	Number string `json:"number,omitempty"`
}

// AdjustStockRequest body para POST /api/inventory/items/:id/adjustments.
type AdjustStockRequest struct {
	Type        string           `json:"type" validate:"required"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Unit        string           `json:"unit,omitempty"`
	Notes       string           `json:"notes,omitempty" validate:"max=500"`
	PerformedBy string           `json:"performed_by" validate:"required"`
	Reference   *ReferenceDTO    `json:"reference,omitempty"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
}

// AdjustmentResponse fila del ledger.
type AdjustmentResponse struct {
	ID               string           `json:"id"`
	ItemID           string           `json:"item_id"`
	ItemName         string           `json:"item_name"`
	Type             string           `json:"type"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Unit             string           `json:"unit"`
	OriginalQuantity *decimal.Decimal `json:"original_quantity,omitempty"`
	OriginalUnit     string           `json:"original_unit,omitempty"`
	PreviousStock    decimal.Decimal  `json:"previous_stock"`
	NewStock         decimal.Decimal  `json:"new_stock"`
	Notes            string           `json:"notes,omitempty"`
	ConversionNote   string           `json:"conversion_note,omitempty"`
	Reference        *ReferenceDTO    `json:"reference,omitempty"`
	TransactionID    string           `json:"transaction_id,omitempty"`
	PerformedBy      string           `json:"performed_by"`
	CreatedAt        time.Time        `json:"created_at"`
}

// AdjustStockResponse resultado de un ajuste.
type AdjustStockResponse struct {
	NewStock   decimal.Decimal    `json:"new_stock"`
	Status     string             `json:"status"`
	Adjustment AdjustmentResponse `json:"adjustment"`
}

// AvailabilityItemRequest ítem a consultar.
type AvailabilityItemRequest struct {
	ItemName string          `json:"item_name" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit,omitempty"`
}

// CheckAvailabilityRequest body para POST /api/inventory/availability.
type CheckAvailabilityRequest struct {
	Items []AvailabilityItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ShortfallResponse faltante de un ingrediente.
type ShortfallResponse struct {
	Name      string          `json:"name"`
	ItemID    string          `json:"item_id,omitempty"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	ShortBy   decimal.Decimal `json:"short_by"`
	Unit      string          `json:"unit"`
}

// AvailabilityResultResponse disponibilidad de un ítem.
type AvailabilityResultResponse struct {
	ItemName   string          `json:"item_name"`
	ItemID     string          `json:"item_id,omitempty"`
	Found      bool            `json:"found"`
	Sufficient bool            `json:"sufficient"`
	Required   decimal.Decimal `json:"required"`
	Available  decimal.Decimal `json:"available"`
	Unit       string          `json:"unit,omitempty"`
	Code       string          `json:"code,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// AvailabilityResponse resultado de la consulta de disponibilidad.
type AvailabilityResponse struct {
	AllAvailable      bool                         `json:"all_available"`
	Results           []AvailabilityResultResponse `json:"results"`
	InsufficientItems []ShortfallResponse          `json:"insufficient_items"`
}

// IngredientRequest ingrediente por unidad de plato.
type IngredientRequest struct {
	Name     string          `json:"name" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit,omitempty"`
}

// OrderLineItemRequest línea del pedido.
type OrderLineItemRequest struct {
	Ingredients     []IngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	OrderedQuantity decimal.Decimal     `json:"ordered_quantity"`
}

// ProcessOrderRequest body para POST /api/inventory/orders/:orderId/deductions.
type ProcessOrderRequest struct {
	OrderNumber string                 `json:"order_number" validate:"required"`
	PerformedBy string                 `json:"performed_by" validate:"required"`
	LineItems   []OrderLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

// DeductionResponse descuento confirmado.
type DeductionResponse struct {
	Name          string          `json:"name"`
	ItemID        string          `json:"item_id"`
	AdjustmentID  string          `json:"adjustment_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	Status        string          `json:"status"`
}

// FailedDeductionResponse descuento rechazado.
type FailedDeductionResponse struct {
	Name      string           `json:"name"`
	ItemID    string           `json:"item_id,omitempty"`
	Code      string           `json:"code"`
	Message   string           `json:"message"`
	Available *decimal.Decimal `json:"available,omitempty"`
	Requested *decimal.Decimal `json:"requested,omitempty"`
	Unit      string           `json:"unit,omitempty"`
}

// FailedRollbackResponse compensación no escrita.
type FailedRollbackResponse struct {
	AdjustmentID string          `json:"adjustment_id"`
	ItemID       string          `json:"item_id,omitempty"`
	ItemName     string          `json:"item_name,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit,omitempty"`
	Code         string          `json:"code"`
	Message      string          `json:"message"`
}

// BatchAdjustmentResponse resultado de un descuento por pedido.
type BatchAdjustmentResponse struct {
	Success           bool                      `json:"success"`
	TransactionID     string                    `json:"transaction_id"`
	AllAvailable      bool                      `json:"all_available"`
	Successful        []DeductionResponse       `json:"successful"`
	Failed            []FailedDeductionResponse `json:"failed"`
	Shortfalls        []ShortfallResponse       `json:"shortfalls,omitempty"`
	RollbackPerformed bool                      `json:"rollback_performed"`
	FailedRollbacks   []FailedRollbackResponse  `json:"failed_rollbacks,omitempty"`
}

// RollbackRequest body para POST /api/inventory/transactions/:transactionId/rollback.
type RollbackRequest struct {
	AdjustmentIDs []string `json:"adjustment_ids,omitempty" validate:"omitempty,dive,uuid"`
	PerformedBy   string   `json:"performed_by" validate:"required"`
}

// RolledBackItemResponse ajuste compensado.
type RolledBackItemResponse struct {
	AdjustmentID         string          `json:"adjustment_id"`
	RollbackAdjustmentID string          `json:"rollback_adjustment_id,omitempty"`
	ItemID               string          `json:"item_id"`
	ItemName             string          `json:"item_name"`
	Quantity             decimal.Decimal `json:"quantity"`
	Unit                 string          `json:"unit"`
	NewStock             decimal.Decimal `json:"new_stock"`
	AlreadyRolledBack    bool            `json:"already_rolled_back"`
}

// RollbackResponse resultado de un rollback.
type RollbackResponse struct {
	Success               bool                     `json:"success"`
	TransactionID         string                   `json:"transaction_id"`
	RollbackTransactionID string                   `json:"rollback_transaction_id"`
	RolledBackItems       []RolledBackItemResponse `json:"rolled_back_items"`
	FailedRollbacks       []FailedRollbackResponse `json:"failed_rollbacks"`
}

// AdjustmentListQuery query de GET /api/inventory/adjustments.
type AdjustmentListQuery struct {
	ItemID        string `query:"item_id"`
	Search        string `query:"search"`
	Type          string `query:"type"`
	ReferenceType string `query:"reference_type"`
	TransactionID string `query:"transaction_id"`
	From          string `query:"from"`
	To            string `query:"to"`
	Page          int    `query:"page" validate:"omitempty,min=1"`
	Limit         int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// AdjustmentListResponse página del ledger.
type AdjustmentListResponse struct {
	Entries    []AdjustmentResponse `json:"entries"`
	Pagination PageResponse         `json:"pagination"`
	Stats      map[string]int       `json:"stats"`
}

// ItemHistoryResponse historial con verificación de replay.
type ItemHistoryResponse struct {
	Item          ItemResponse         `json:"item"`
	Entries       []AdjustmentResponse `json:"entries"`
	ReplayedStock decimal.Decimal      `json:"replayed_stock"`
	Consistent    bool                 `json:"consistent"`
	BrokenAt      int                  `json:"broken_at"`
}

// ReorderSuggestionResponse ítem a reponer.
type ReorderSuggestionResponse struct {
	ItemID          string          `json:"item_id"`
	ItemName        string          `json:"item_name"`
	Status          string          `json:"status"`
	Unit            string          `json:"unit"`
	CurrentStock    decimal.Decimal `json:"current_stock"`
	ReorderPoint    decimal.Decimal `json:"reorder_point"`
	TargetStock     decimal.Decimal `json:"target_stock"`       // MaxStock o ReorderPoint * 1.5
	SuggestedQty    decimal.Decimal `json:"suggested_qty"`      // TargetStock - CurrentStock
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`     // costo promedio ponderado
	EstimatedCost   decimal.Decimal `json:"estimated_cost"`     // SuggestedQty * PricePerUnit
	UsageLast30Days decimal.Decimal `json:"usage_last_30_days"` // usage + waste + deduction
	Priority        int             `json:"priority"`           // 1 = más urgente
}
