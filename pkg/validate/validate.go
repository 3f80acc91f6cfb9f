// Package validate wraps go-playground/validator so request payloads fail
// all-or-nothing with every violated field reported in the error details.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domerrors "roamly/pkg/domain-errors"
)

// Validator validates tagged request structs.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with JSON tag names so error details match the wire
// field names, not Go struct fields.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates dst and translates violations into a single
// CodeValidation error enumerating every failed field.
func (va *Validator) Struct(dst any) error {
	err := va.v.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domerrors.Wrap(err, domerrors.CodeInternal, "validation failed")
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fieldPath(fe.Namespace())] = describe(fe)
	}
	return domerrors.New(domerrors.CodeValidation, "validation failed").WithDetails(details)
}

// fieldPath strips the root struct name from the namespace:
// "CreateBookingRequest.guests.adults" -> "guests.adults".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gtefield":
		return "must be >= field " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "e164":
		return "must be a valid E.164 phone number"
	case "latitude":
		return "must be a valid latitude"
	case "longitude":
		return "must be a valid longitude"
	case "datetime":
		return "must match format " + fe.Param()
	case "uuid":
		return "must be a valid UUID"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
