package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrInvalidItemID         = errors.New("id de ítem inválido")
	ErrItemNotFound          = errors.New("ítem de inventario no encontrado")
	ErrDuplicateName         = errors.New("ya existe un ítem con ese nombre")
	ErrInvalidQuantity       = errors.New("la cantidad debe ser mayor a 0 y menor o igual a 100000")
	ErrInvalidAdjustmentType = errors.New("tipo de ajuste inválido")
	ErrOverCapacity          = errors.New("el stock resultante supera la capacidad máxima")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrInvalidUnit           = errors.New("unidad no reconocida")
	ErrIncompatibleUnits     = errors.New("unidades incompatibles")
	ErrMissingDensity        = errors.New("sin densidad para convertir entre peso y volumen")
	ErrRollbackInProgress    = errors.New("ya hay un rollback en curso para la transacción")
	ErrTransactionNotFound   = errors.New("transacción sin ajustes registrados")

	// ErrTransient marca fallos de almacenamiento reintentables (abort de tx, conexión caída).
	ErrTransient = errors.New("error transitorio de almacenamiento")
)

// Códigos públicos expuestos a quien invoca el motor.
const (
	CodeInvalidItemID      = "INVALID_ITEM_ID"
	CodeItemNotFound       = "ITEM_NOT_FOUND"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeInvalidType        = "INVALID_TYPE"
	CodeOverCapacity       = "OVER_CAPACITY"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInvalidUnit        = "INVALID_UNIT"
	CodeIncompatibleUnits  = "INCOMPATIBLE_UNITS"
	CodeMissingDensity     = "MISSING_DENSITY"
	CodeDuplicateName      = "DUPLICATE_NAME"
	CodeValidation         = "VALIDATION"
	CodeRollbackInProgress = "ROLLBACK_IN_PROGRESS"
	CodeInternal           = "INTERNAL_ERROR"
)

// InsufficientStockError lleva el faltante exacto; nunca se recorta en silencio.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Available decimal.Decimal
	Requested decimal.Decimal
	Unit      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %q: disponible %s %s, solicitado %s %s",
		e.ItemName, e.Available.String(), e.Unit, e.Requested.String(), e.Unit)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Code traduce cualquier error del motor a su código público.
// Lo que no se reconoce se considera interno (reintentable).
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidItemID):
		return CodeInvalidItemID
	case errors.Is(err, ErrItemNotFound):
		return CodeItemNotFound
	case errors.Is(err, ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, ErrInvalidAdjustmentType):
		return CodeInvalidType
	case errors.Is(err, ErrOverCapacity):
		return CodeOverCapacity
	case errors.Is(err, ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, ErrInvalidUnit):
		return CodeInvalidUnit
	case errors.Is(err, ErrIncompatibleUnits):
		return CodeIncompatibleUnits
	case errors.Is(err, ErrMissingDensity):
		return CodeMissingDensity
	case errors.Is(err, ErrDuplicateName):
		return CodeDuplicateName
	case errors.Is(err, ErrRollbackInProgress):
		return CodeRollbackInProgress
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrTransactionNotFound):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// IsBusinessRejection indica si el error es un rechazo corregible por quien llama
// (a diferencia de un fallo transitorio de almacenamiento).
func IsBusinessRejection(err error) bool {
	code := Code(err)
	return code != "" && code != CodeInternal
}
