// Package validation checks request payloads before they reach a service.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("asset", func(fl validator.FieldLevel) bool {
		_, err := models.ParseAsset(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
		_, err := models.ParseChannel(fl.Field().String())
		return err == nil
	})
	// decimal accepts any numeric string; "decimal=positive" additionally
	// requires it to be greater than zero.
	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		if err != nil {
			return false
		}
		switch fl.Param() {
		case "positive":
			return d.IsPositive()
		case "nonnegative":
			return !d.IsNegative()
		}
		return true
	})
	_ = v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 6 {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
	return v
}

// Struct validates s against its `validate` tags and returns an
// ErrInvalidRequest naming every failing field.
func Struct(s interface{}) error {
	return wrap(validate.Struct(s))
}

// Var validates a single value against tag.
func Var(field interface{}, tag string) error {
	return wrap(validate.Var(field, tag))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.ErrInvalidRequest.Wrap(err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return apperrors.ErrInvalidRequest.Withf("%s", strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	if field == "" {
		field = "value"
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "asset":
		return fmt.Sprintf("%s is not a supported asset", field)
	case "channel":
		return fmt.Sprintf("%s must be paypal or bank", field)
	case "decimal":
		if fe.Param() != "" {
			return fmt.Sprintf("%s must be a %s number", field, fe.Param())
		}
		return fmt.Sprintf("%s must be numeric", field)
	case "otp":
		return fmt.Sprintf("%s must be a 6 digit code", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
