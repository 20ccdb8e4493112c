package validation

import (
	"fmt"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldError describes one violated constraint of a rejected payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator checks order payloads against the gateway's business constraints.
// Construct it once and share it; the underlying validator caches struct
// metadata and is safe for concurrent use.
type Validator struct {
	validate    *validatorv10.Validate
	enterprises []string
}

// New returns a Validator that accepts the given enterprise names
// (case-insensitively).
func New(enterprises []string) *Validator {
	v := validatorv10.New()

	// Report fields by their json names so errors match the wire payload.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Expose decimal.Decimal to the numeric comparison tags. The float64 is
	// used for validation only; persistence keeps the exact decimal value.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	upper := make([]string, len(enterprises))
	for i, e := range enterprises {
		upper[i] = strings.ToUpper(e)
	}
	_ = v.RegisterValidation("enterprise", func(fl validatorv10.FieldLevel) bool {
		candidate := strings.ToUpper(fl.Field().String())
		for _, e := range upper {
			if candidate == e {
				return true
			}
		}
		return false
	})

	return &Validator{validate: v, enterprises: upper}
}

// Validate returns every violated constraint of the payload, or nil when the
// payload is acceptable. A single violation rejects the whole payload.
func (v *Validator) Validate(p *OrderPayload) []FieldError {
	err := v.validate.Struct(p)
	if err == nil {
		return nil
	}

	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "payload", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, FieldError{Field: fieldPath(fe), Message: v.message(fe)})
	}
	return out
}

// fieldPath strips the payload type prefix, leaving e.g. "details[0].quantity".
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func (v *Validator) message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "startswith":
		return fmt.Sprintf("must start with the prefix %q", fe.Param())
	case "enterprise":
		return fmt.Sprintf("must be one of: %s", strings.Join(v.enterprises, ", "))
	case "datetime":
		return "must be a valid date in YYYY-MM-DD format"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
