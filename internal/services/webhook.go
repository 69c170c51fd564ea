package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"registration-gateway/internal/logger"
	"registration-gateway/internal/metrics"
	"registration-gateway/internal/models"
)

// WebhookVerifier authenticates a provider callback before it is trusted.
type WebhookVerifier interface {
	Verify(header http.Header, body []byte) error
}

// AcceptAllVerifier trusts every callback.
type AcceptAllVerifier struct{}

func (AcceptAllVerifier) Verify(http.Header, []byte) error { return nil }

type WebhookService struct {
	verifier WebhookVerifier
	events   EventPublisher
	ledger   OrderLedger
	inline   bool
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewWebhookService builds the intake. With inline set, payloads are
// reconciled during the request instead of by a broker consumer.
func NewWebhookService(verifier WebhookVerifier, events EventPublisher, ledger OrderLedger, inline bool, m *metrics.Metrics, log *logger.Logger) *WebhookService {
	if verifier == nil {
		verifier = AcceptAllVerifier{}
	}
	if ledger == nil {
		ledger = NopLedger{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &WebhookService{verifier: verifier, events: events, ledger: ledger, inline: inline, metrics: m, log: log}
}

// Receive verifies and decodes a callback body and hands it on.
func (s *WebhookService) Receive(ctx context.Context, header http.Header, body []byte) (*models.WebhookPayload, error) {
	if err := s.verifier.Verify(header, body); err != nil {
		s.log.LogSecurity("WEBHOOK_REJECTED", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrWebhookRejected, err)
	}

	contentType := header.Get("Content-Type")
	fields, err := decodeWebhook(contentType, body)
	if err != nil {
		s.log.Warn("WEBHOOK", fmt.Sprintf("Undecodable webhook body (%s): %v", contentType, err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	payload := &models.WebhookPayload{
		ContentType: contentType,
		Fields:      fields,
		Verified:    true,
		ReceivedAt:  time.Now().UTC(),
	}
	ref := WebhookReference(fields)
	s.log.Info("WEBHOOK", fmt.Sprintf("Webhook received for %q with %d fields", ref, len(fields)))

	publishEvent(s.events, s.metrics, s.log, &models.CheckoutEvent{
		Type:      models.EventWebhookReceived,
		Key:       ref,
		Webhook:   payload,
		Timestamp: payload.ReceivedAt,
	})

	if s.inline {
		if err := s.Reconcile(ctx, payload); err != nil {
			s.log.Warn("WEBHOOK", fmt.Sprintf("Reconciliation of %q skipped: %v", ref, err))
		}
	}
	return payload, nil
}

// Reconcile applies the settlement a webhook reports to the order ledger.
// Payloads without a reference or a recognised status are ignored.
func (s *WebhookService) Reconcile(ctx context.Context, payload *models.WebhookPayload) error {
	ref := WebhookReference(payload.Fields)
	status := WebhookSettlement(payload.Fields)
	if ref == "" || status == "" {
		s.log.Debug("WEBHOOK", "Webhook carries no order reference or settlement")
		return nil
	}

	entry, err := s.ledger.Settle(ctx, ref, status)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return fmt.Errorf("order %s: %w", ref, err)
		}
		return &StorageError{Op: "settle", Err: err}
	}
	s.log.LogPayment("SETTLED", entry.Order.Receipt, fmt.Sprintf("Marked %s via %s", status, ref))
	return nil
}

// HandleEvent reconciles a webhook event delivered by the broker.
func (s *WebhookService) HandleEvent(ctx context.Context, event *models.CheckoutEvent) error {
	if event.Type != models.EventWebhookReceived || event.Webhook == nil {
		return nil
	}
	return s.Reconcile(ctx, event.Webhook)
}

func decodeWebhook(contentType string, body []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fields, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/x-www-form-urlencoded":
		return decodeForm(body)
	case "application/json":
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
		return fields, nil
	}

	if err := json.Unmarshal(body, &fields); err == nil {
		return fields, nil
	}
	return decodeForm(body)
}

func decodeForm(body []byte) (map[string]any, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			fields[k] = v[0]
			continue
		}
		fields[k] = v
	}
	return fields, nil
}

// WebhookReference finds the order a callback is about: an Instamojo
// payment request id, a plain order id or Razorpay's nested entity.
func WebhookReference(fields map[string]any) string {
	for _, key := range []string{"payment_request_id", "order_id", "receipt"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	for _, entity := range []string{"payment", "order"} {
		if v := nestedString(fields, "payload", entity, "entity", "order_id"); v != "" {
			return v
		}
	}
	return nestedString(fields, "payload", "order", "entity", "id")
}

var settlementByStatus = map[string]models.SettlementStatus{
	"credit":           models.SettlementPaid,
	"captured":         models.SettlementPaid,
	"paid":             models.SettlementPaid,
	"order.paid":       models.SettlementPaid,
	"payment.captured": models.SettlementPaid,
	"failed":           models.SettlementFailed,
	"payment.failed":   models.SettlementFailed,
}

// WebhookSettlement maps a provider status or event name to a settlement.
func WebhookSettlement(fields map[string]any) models.SettlementStatus {
	candidates := []string{
		stringField(fields, "status"),
		stringField(fields, "event"),
		nestedString(fields, "payload", "payment", "entity", "status"),
	}
	for _, c := range candidates {
		if status, ok := settlementByStatus[strings.ToLower(c)]; ok {
			return status
		}
	}
	return ""
}

func stringField(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

func nestedString(fields map[string]any, path ...string) string {
	var cur any = fields
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}
