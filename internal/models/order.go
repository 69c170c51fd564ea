package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const CurrencyINR = "INR"

// ErrOrderNotFound is returned by ledgers for an unknown receipt or
// provider reference.
var ErrOrderNotFound = errors.New("order not found")

type OrderStatus string

const (
	OrderCreated  OrderStatus = "created"
	OrderFallback OrderStatus = "fallback"
	OrderFailed   OrderStatus = "failed"
)

// PaymentOrder is the normalized result of an order-creation call.
type PaymentOrder struct {
	Provider        string          `json:"provider"`
	ProviderOrderID string          `json:"provider_order_id,omitempty"`
	Receipt         string          `json:"receipt"`
	Amount          decimal.Decimal `json:"amount"`
	AmountMinor     int64           `json:"amount_minor,omitempty"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	PaymentURL      string          `json:"payment_url,omitempty"`
	PublicKey       string          `json:"public_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementPaid    SettlementStatus = "paid"
	SettlementFailed  SettlementStatus = "failed"
)

// LedgerEntry tracks an issued order and what webhooks later reported
// about it. The order itself is never rewritten.
type LedgerEntry struct {
	Order      PaymentOrder     `json:"order"`
	Settlement SettlementStatus `json:"settlement"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
