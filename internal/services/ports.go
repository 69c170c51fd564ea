package services

import (
	"context"

	"registration-gateway/internal/models"
)

// OrderLedger remembers issued orders so their settlement can be looked up
// and reconciled later.
type OrderLedger interface {
	Track(ctx context.Context, order *models.PaymentOrder) error
	Lookup(ctx context.Context, receipt string) (*models.LedgerEntry, error)
	// Settle records a settlement against the order whose receipt or
	// provider order id equals ref.
	Settle(ctx context.Context, ref string, status models.SettlementStatus) (*models.LedgerEntry, error)
}

type EventPublisher interface {
	Publish(event *models.CheckoutEvent) error
}

// Mailer sends the confirmation for a saved registration.
type Mailer interface {
	SendConfirmation(ctx context.Context, record *models.RegistrationRecord) error
}

// NopLedger is used when no Redis address is configured.
type NopLedger struct{}

func (NopLedger) Track(context.Context, *models.PaymentOrder) error { return nil }

func (NopLedger) Lookup(context.Context, string) (*models.LedgerEntry, error) {
	return nil, ErrOrderNotFound
}

func (NopLedger) Settle(context.Context, string, models.SettlementStatus) (*models.LedgerEntry, error) {
	return nil, ErrOrderNotFound
}
