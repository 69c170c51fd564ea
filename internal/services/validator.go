package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"registration-gateway/internal/models"
)

var (
	MinAmount = decimal.NewFromInt(1)
	MaxAmount = decimal.NewFromInt(10000)

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

const (
	msgMissingFields = "Missing required fields: amount, purpose, buyer_name, buyer_email, buyer_phone"
	msgInvalidEmail  = "Invalid email format"
	msgInvalidPhone  = "Phone number must be 10 digits"
	msgAmountRange   = "Amount must be between ₹1 and ₹10000"
)

// Validator checks a registration request before anything leaves the process.
type Validator struct {
	fields *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{fields: v}
}

// Validate runs the checks in order and returns the parsed amount. The
// first failing check wins.
func (v *Validator) Validate(req *models.RegistrationRequest) (decimal.Decimal, error) {
	req.Normalize()
	if isBlank(req.Amount.String()) || isBlank(req.Purpose) || isBlank(req.BuyerName) ||
		isBlank(req.BuyerEmail) || isBlank(req.BuyerPhone.String()) {
		return decimal.Zero, &ValidationError{Reason: msgMissingFields}
	}

	if !emailPattern.MatchString(req.BuyerEmail) {
		return decimal.Zero, &ValidationError{Reason: msgInvalidEmail}
	}

	if !phonePattern.MatchString(req.BuyerPhone.String()) {
		return decimal.Zero, &ValidationError{Reason: msgInvalidPhone}
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil || !InAmountRange(amount) {
		return decimal.Zero, &ValidationError{Reason: msgAmountRange}
	}

	if err := v.fields.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return decimal.Zero, describeFieldError(fieldErrs[0])
		}
		return decimal.Zero, newValidationError("invalid request: %v", err)
	}

	return amount, nil
}

// InAmountRange reports whether amount lies in [MinAmount, MaxAmount].
func InAmountRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(MinAmount) && amount.LessThanOrEqual(MaxAmount)
}

func describeFieldError(fe validator.FieldError) *ValidationError {
	switch fe.Tag() {
	case "max":
		if fe.Kind() == reflect.Map {
			return newValidationError("%s may contain at most %s entries", fe.Field(), fe.Param())
		}
		return newValidationError("%s must be at most %s characters", fe.Field(), fe.Param())
	case "url":
		return newValidationError("%s must be a valid URL", fe.Field())
	default:
		return newValidationError("%s is invalid", fe.Field())
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
