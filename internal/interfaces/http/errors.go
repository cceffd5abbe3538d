package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/validator"
)

// statusFor traduce el código de dominio a estado HTTP.
func statusFor(code string, err error) int {
	switch code {
	case domain.CodeInvalidItemID, domain.CodeInvalidQuantity, domain.CodeInvalidType,
		domain.CodeInvalidUnit, domain.CodeIncompatibleUnits, domain.CodeMissingDensity, domain.CodeValidation:
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadRequest
	case domain.CodeItemNotFound:
		return fiber.StatusNotFound
	case domain.CodeDuplicateName, domain.CodeRollbackInProgress:
		return fiber.StatusConflict
	case domain.CodeInsufficientStock, domain.CodeOverCapacity:
		return fiber.StatusUnprocessableEntity
	}
	if errors.Is(err, domain.ErrTransient) {
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// writeError responde con el código público del error. Los internos no exponen el detalle.
func writeError(c *fiber.Ctx, err error) error {
	code := domain.Code(err)
	status := statusFor(code, err)
	resp := dto.ErrorResponse{Code: code, Message: err.Error()}
	if code == domain.CodeInternal {
		resp.Message = "error interno, intente más tarde"
	}
	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		resp.Details = map[string]any{
			"item_id":   insufficient.ItemID,
			"item_name": insufficient.ItemName,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
			"unit":      insufficient.Unit,
		}
	}
	return c.Status(status).JSON(resp)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// validationFailed responde 400 con los campos que no pasaron la validación.
func validationFailed(c *fiber.Ctx, errs []*validator.FieldError) error {
	fields := make(map[string]any, len(errs))
	for _, fe := range errs {
		fields[fe.Field] = fe.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Code:    domain.CodeValidation,
		Message: "datos inválidos",
		Details: fields,
	})
}
