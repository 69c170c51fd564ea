package services

import (
	"github.com/shopspring/decimal"

	"registration-gateway/internal/config"
	"registration-gateway/internal/models"
)

// PricingResolver decides what a registration is charged.
type PricingResolver struct {
	solo  decimal.Decimal
	group decimal.Decimal
}

func NewPricingResolver(cfg config.PricingConfig) *PricingResolver {
	return &PricingResolver{solo: cfg.SoloPrice, group: cfg.GroupPrice}
}

// Resolve returns the fixed price for solo and group registrations and the
// client amount for anything else. A type whose price is configured as
// zero also falls through to the client amount.
func (p *PricingResolver) Resolve(regType models.RegistrationType, clientAmount decimal.Decimal) (decimal.Decimal, error) {
	price := clientAmount
	switch regType {
	case models.RegistrationSolo:
		if !p.solo.IsZero() {
			price = p.solo
		}
	case models.RegistrationGroup:
		if !p.group.IsZero() {
			price = p.group
		}
	}

	if !InAmountRange(price) {
		return decimal.Zero, &ValidationError{Reason: msgAmountRange}
	}
	return price, nil
}
