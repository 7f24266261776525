package shared

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

var tagMessages = map[string]string{
	"required": "This field is required.",
	"email":    "Enter a valid email address.",
	"numeric":  "Enter a number.",
	"max":      "This value is too long.",
}

// Validate checks form against its validate tags and returns a
// *ValidationError keyed by form field name, or nil.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "This value is invalid."
		}
		ve.Add(fe.Field(), msg)
	}
	return ve.OrNil()
}

// Decimal parses an optional decimal form value. Blank input yields zero.
func Decimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// Percent parses a rate and checks it lies in [0, 100].
func Percent(ve *ValidationError, field, raw string) decimal.Decimal {
	d, err := Decimal(raw)
	if err != nil {
		ve.Add(field, "Enter a number.")
		return decimal.Zero
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		ve.Add(field, "Enter a percentage between 0 and 100.")
		return decimal.Zero
	}
	return d.Round(2)
}
