// Package validation checks struct-tagged operation inputs and reports
// failures as VALIDATION_ERROR keyed by json field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
)

const failed = "validation failed"

var validate = newValidator()

// messages maps a validator tag to its detail text; %s is the tag param.
var messages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"gte":      "must be at least %s",
	"max":      "must be at most %s",
	"lte":      "must be at most %s",
	"gt":       "must be greater than %s",
	"oneof":    "must be one of [%s]",
	"email":    "must be a valid email",
	"dive":     "contains an invalid entry",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	// decimals compare as floats and a nil uuid counts as missing.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		return field.Interface().(decimal.Decimal).InexactFloat64()
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if id := field.Interface().(uuid.UUID); id != uuid.Nil {
			return id.String()
		}
		return ""
	}, uuid.UUID{})
	return v
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// Struct validates input and returns nil or a *pkgerrors.Error.
func Struct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, failed)
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, failed).WithDetails(details)
}

// Field builds a single-field validation error.
func Field(field, message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, failed).WithDetails(map[string]string{field: message})
}

func describe(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}
