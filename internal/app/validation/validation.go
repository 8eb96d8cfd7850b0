// Package validation runs declarative struct validation and converts failures
// into field errors clients can display.
package validation

import (
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/R3E-Network/marina/internal/errors"
)

// Field error types reported to clients.
const (
	TypeRequired      = "required"
	TypeStringMin     = "stringMin"
	TypeNumberMin     = "numberMin"
	TypeStringMax     = "stringMax"
	TypeNumberMax     = "numberMax"
	TypeEmail         = "email"
	TypeNumberInteger = "numberInteger"
	TypeInvalid       = "invalid"
)

// Validator validates request entities.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator that names fields by their json tag and knows the
// "integer" rule.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("integer", isInteger); err != nil {
		panic(fmt.Sprintf("validation: register integer rule: %v", err))
	}
	return &Validator{validate: v}
}

// Struct validates s. Failures come back as a 422 service error whose fields
// list every rejected value.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Internal("validation failed", err)
	}

	fields := make([]errors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, toFieldError(fe))
	}
	return errors.Validation(fields...)
}

// Missing reports a required top-level parameter that was absent.
func Missing(field string) error {
	return errors.Validation(errors.FieldError{
		Type:    TypeRequired,
		Field:   field,
		Message: fmt.Sprintf("The '%s' field is required.", field),
	})
}

func toFieldError(fe validator.FieldError) errors.FieldError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return errors.FieldError{
			Type:    TypeRequired,
			Field:   field,
			Message: fmt.Sprintf("The '%s' field is required.", field),
		}
	case "min":
		if isNumeric(fe.Kind()) {
			return errors.FieldError{
				Type:    TypeNumberMin,
				Field:   field,
				Message: fmt.Sprintf("The '%s' field must be greater than or equal to %s.", field, fe.Param()),
			}
		}
		return errors.FieldError{
			Type:    TypeStringMin,
			Field:   field,
			Message: fmt.Sprintf("The '%s' field length must be greater than or equal to %s characters long.", field, fe.Param()),
		}
	case "max":
		if isNumeric(fe.Kind()) {
			return errors.FieldError{
				Type:    TypeNumberMax,
				Field:   field,
				Message: fmt.Sprintf("The '%s' field must be less than or equal to %s.", field, fe.Param()),
			}
		}
		return errors.FieldError{
			Type:    TypeStringMax,
			Field:   field,
			Message: fmt.Sprintf("The '%s' field length must be less than or equal to %s characters long.", field, fe.Param()),
		}
	case "email":
		return errors.FieldError{
			Type:    TypeEmail,
			Field:   field,
			Message: fmt.Sprintf("The '%s' field must be a valid e-mail.", field),
		}
	case "integer":
		return errors.FieldError{
			Type:    TypeNumberInteger,
			Field:   field,
			Message: fmt.Sprintf("The '%s' field must be an integer.", field),
		}
	default:
		return errors.FieldError{
			Type:    TypeInvalid,
			Field:   field,
			Message: fmt.Sprintf("The '%s' field is invalid.", field),
		}
	}
}

func isInteger(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		x := f.Float()
		return !math.IsInf(x, 0) && x == math.Trunc(x)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
