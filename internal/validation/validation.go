package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Validator wraps go-playground/validator and reports field names by their
// json tag.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Check validates obj and returns the failing fields, or nil.
func (v *Validator) Check(obj any) []FieldError {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []FieldError{{Field: "", Message: err.Error(), Type: "invalid"}}
	}
	out := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

// Struct validates obj and returns a VALIDATION_FAILED domain error listing
// the failing fields.
func (v *Validator) Struct(obj any) error {
	fields := v.Check(obj)
	if len(fields) == 0 {
		return nil
	}
	return apperrors.NewValidationError("invalid request data", map[string]any{"fields": fields})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "oneof":
		return "Value must be one of " + fe.Param()
	default:
		return "Invalid value"
	}
}
