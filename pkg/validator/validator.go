package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldError falla de validación de un campo (nombre según su tag json).
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("campo '%s' no cumple '%s=%s'", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("campo '%s' no cumple '%s'", e.Field, e.Tag)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// decimal_gte0: decimal.Decimal no negativo
	_ = validate.RegisterValidation("decimal_gte0", func(fl validator.FieldLevel) bool {
		switch v := fl.Field().Interface().(type) {
		case decimal.Decimal:
			return !v.IsNegative()
		case *decimal.Decimal:
			return v == nil || !v.IsNegative()
		}
		return false
	})
}

// ValidateStruct valida data con sus tags `validate`. Devuelve nil si no hay errores.
func ValidateStruct(data any) []*FieldError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []*FieldError{{Field: "", Tag: err.Error()}}
	}
	out := make([]*FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &FieldError{Field: trimRoot(fe.Namespace()), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// trimRoot quita el nombre del struct raíz: "CreateItemRequest.name" → "name".
func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
