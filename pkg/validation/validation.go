package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "vras/pkg/domain-errors"
	s "vras/pkg/string"
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate validates a struct and returns a domain validation error carrying
// per-field failures in the shape the API surfaces on 422 responses.
func Validate(req any) error {
	err := defaultValidator.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid request body")
	}

	fields := make(map[string]dErrors.FieldError, len(validationErrs))
	for _, fe := range validationErrs {
		name := fe.Field()
		if name == "" {
			name = fe.StructField()
		}
		field := s.ToSnakeCase(name)
		fields[field] = dErrors.FieldError{
			Message: fieldMessage(field, fe),
			Rule:    fe.ActualTag(),
		}
	}
	return &dErrors.Error{Code: dErrors.CodeValidation, Message: "validation", Fields: fields}
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("The %s field is mandatory.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email.", field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", field, fe.Param())
	case "max":
		return fmt.Sprintf("The %s must be at most %s.", field, fe.Param())
	case "len":
		return fmt.Sprintf("The %s must be %s characters.", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("The %s must be numeric.", field)
	case "oneof":
		return fmt.Sprintf("The %s must be one of [%s].", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s must match %s.", field, s.ToSnakeCase(fe.Param()))
	case "notblank":
		return fmt.Sprintf("The %s must not be blank.", field)
	default:
		return fmt.Sprintf("The %s is invalid.", field)
	}
}
