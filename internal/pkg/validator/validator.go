package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

// PaymentMethods accepted at the wallet edge.
var PaymentMethods = []string{"card", "bank_transfer", "kaspi", "wallet"}

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return contains(PaymentMethods, fl.Field().String())
	})

	// Decisions an administrator may record on a dispute or refund request.
	validate.RegisterValidation("decision", func(fl validator.FieldLevel) bool {
		return contains([]string{"Released", "Refunded", "Approved", "Rejected"}, fl.Field().String())
	})
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "payment_method":
			errors[field] = "Invalid payment method. Must be: " + strings.Join(PaymentMethods, ", ")
		case "decision":
			errors[field] = "Invalid decision"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
