package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentResponse is returned by POST /api/create-payment for both the
// regular and the fallback outcome.
type PaymentResponse struct {
	Success          bool            `json:"success"`
	Provider         string          `json:"provider,omitempty"`
	PaymentURL       string          `json:"paymentUrl,omitempty"`
	OrderID          string          `json:"order_id,omitempty"`
	PaymentRequestID string          `json:"payment_request_id,omitempty"`
	Receipt          string          `json:"receipt,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	AmountMinor      int64           `json:"amount_minor,omitempty"`
	Currency         string          `json:"currency"`
	KeyID            string          `json:"key_id,omitempty"`
	BuyerName        string          `json:"buyer_name"`
	BuyerEmail       string          `json:"buyer_email"`
	BuyerPhone       string          `json:"buyer_phone"`
	RegistrationType string          `json:"registration_type,omitempty"`
	Fallback         bool            `json:"fallback,omitempty"`
	Message          string          `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type SaveRegistrationResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RegistrationID string `json:"registrationId"`
}

type RegistrationListResponse struct {
	Success       bool                  `json:"success"`
	Registrations []*RegistrationRecord `json:"registrations"`
}

const (
	EventPaymentCreated    = "payment.created"
	EventPaymentFallback   = "payment.fallback"
	EventPaymentFailed     = "payment.failed"
	EventRegistrationSaved = "registration.saved"
	EventWebhookReceived   = "webhook.received"
)

// CheckoutEvent is published to Kafka after a request has been answered.
type CheckoutEvent struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	Key          string              `json:"key"`
	Order        *PaymentOrder       `json:"order,omitempty"`
	Registration *RegistrationRecord `json:"registration,omitempty"`
	Webhook      *WebhookPayload     `json:"webhook,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

type WebhookPayload struct {
	ContentType string         `json:"content_type"`
	Fields      map[string]any `json:"fields"`
	Verified    bool           `json:"verified"`
	ReceivedAt  time.Time      `json:"received_at"`
}
