package services

import (
	"context"
	"fmt"
	"time"

	"registration-gateway/internal/gateway"
	"registration-gateway/internal/logger"
	"registration-gateway/internal/metrics"
	"registration-gateway/internal/models"
	"registration-gateway/internal/utils"
)

// CheckoutService turns a registration form into a payment order, falling
// back to a static checkout link when the provider cannot be reached.
type CheckoutService struct {
	gateway   gateway.Gateway
	validator *Validator
	pricing   *PricingResolver
	fallback  *FallbackLinker
	ledger    OrderLedger
	events    EventPublisher
	metrics   *metrics.Metrics
	log       *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

type CheckoutDeps struct {
	Gateway  gateway.Gateway
	Pricing  *PricingResolver
	Fallback *FallbackLinker
	Ledger   OrderLedger
	Events   EventPublisher
	Metrics  *metrics.Metrics
	Log      *logger.Logger
	Timeout  time.Duration
}

func NewCheckoutService(d CheckoutDeps) *CheckoutService {
	if d.Ledger == nil {
		d.Ledger = NopLedger{}
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	return &CheckoutService{
		gateway:   d.Gateway,
		validator: NewValidator(),
		pricing:   d.Pricing,
		fallback:  d.Fallback,
		ledger:    d.Ledger,
		events:    d.Events,
		metrics:   d.Metrics,
		log:       d.Log,
		timeout:   d.Timeout,
		now:       time.Now,
	}
}

// CreatePayment validates and prices the request, then asks the provider
// for an order. The returned error is a *ValidationError, a
// *gateway.ProviderError or an unclassified failure; transport failures
// never surface because they are answered with a fallback order.
func (s *CheckoutService) CreatePayment(ctx context.Context, req *models.RegistrationRequest) (*models.PaymentResponse, error) {
	provider := s.gateway.Name()

	amount, err := s.validator.Validate(req)
	if err != nil {
		s.log.LogPayment("INVALID", "-", err.Error())
		s.metrics.ObserveCheckout(provider, "invalid")
		return nil, err
	}

	price, err := s.pricing.Resolve(req.RegistrationType, amount)
	if err != nil {
		s.log.LogPayment("INVALID", "-", fmt.Sprintf("resolved price for %q out of range", req.RegistrationType))
		s.metrics.ObserveCheckout(provider, "invalid")
		return nil, err
	}
	// Paise are the smallest unit every provider charges in.
	price = price.Round(2)
	if !price.Equal(amount) {
		s.log.Debug("PRICING", fmt.Sprintf("%s registration charged %s instead of client amount %s", req.RegistrationType, price, amount))
	}

	now := s.now()
	orderReq := &gateway.OrderRequest{
		Receipt:          utils.GenerateReceipt(now),
		Amount:           price,
		Purpose:          req.Purpose,
		BuyerName:        req.BuyerName,
		BuyerEmail:       req.BuyerEmail,
		BuyerPhone:       req.BuyerPhone.String(),
		RedirectURL:      req.RedirectURL,
		RegistrationType: string(req.RegistrationType),
		Participants:     req.ParticipantDetails,
	}
	s.log.LogPayment("INIT", orderReq.Receipt, fmt.Sprintf("Creating %s order for %s", provider, price.StringFixed(2)))

	// The caller going away must not abort an order the provider may
	// already be creating.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	order, err := s.gateway.CreateOrder(callCtx, orderReq)
	elapsed := time.Since(start)

	if err == nil {
		s.metrics.ObserveGatewayCall(provider, "ok", elapsed)
		s.metrics.ObserveCheckout(provider, string(models.OrderCreated))
		s.log.LogPayment("CREATED", order.Receipt, fmt.Sprintf("Order %s created in %s", order.ProviderOrderID, elapsed.Round(time.Millisecond)))
		s.record(ctx, models.EventPaymentCreated, order, "")
		return ComposeOrder(req, order), nil
	}

	outcome := Classify(err)
	s.metrics.ObserveGatewayCall(provider, outcome.String(), elapsed)
	s.metrics.ObserveCheckout(provider, outcome.String())

	if outcome != OutcomeFallback {
		s.log.Error("PAYMENT", fmt.Sprintf("Order %s failed: %v", orderReq.Receipt, err))
		s.publish(&models.CheckoutEvent{
			Type:   models.EventPaymentFailed,
			Key:    orderReq.Receipt,
			Order:  s.orderFor(orderReq, provider, models.OrderFailed, "", now),
			Reason: err.Error(),
		})
		return nil, err
	}

	s.log.Warn("PAYMENT", fmt.Sprintf("Connection error detected for %s, providing fallback payment link: %v", orderReq.Receipt, err))
	link := s.fallback.Link(req.BuyerName, req.BuyerEmail, price.String())
	order = s.orderFor(orderReq, provider, models.OrderFallback, link, now)
	s.record(ctx, models.EventPaymentFallback, order, err.Error())
	return ComposeOrder(req, order), nil
}

func (s *CheckoutService) orderFor(req *gateway.OrderRequest, provider string, status models.OrderStatus, link string, now time.Time) *models.PaymentOrder {
	return &models.PaymentOrder{
		Provider:   provider,
		Receipt:    req.Receipt,
		Amount:     req.Amount,
		Currency:   models.CurrencyINR,
		Status:     status,
		PaymentURL: link,
		CreatedAt:  now.UTC(),
	}
}

// PaymentStatus returns the ledger entry for a receipt.
func (s *CheckoutService) PaymentStatus(ctx context.Context, receipt string) (*models.LedgerEntry, error) {
	return s.ledger.Lookup(ctx, receipt)
}

func (s *CheckoutService) record(ctx context.Context, eventType string, order *models.PaymentOrder, reason string) {
	// The provider already holds this order; tracking must outlive the caller.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.ledger.Track(ctx, order); err != nil {
		s.log.LogDatabase("TRACK_FAILED", "ledger", fmt.Sprintf("order %s: %v", order.Receipt, err))
	}
	s.publish(&models.CheckoutEvent{
		Type:   eventType,
		Key:    order.Receipt,
		Order:  order,
		Reason: reason,
	})
}

func (s *CheckoutService) publish(event *models.CheckoutEvent) {
	publishEvent(s.events, s.metrics, s.log, event)
}

// publishEvent stamps and sends an event. Broker failures are logged and
// never reach the caller.
func publishEvent(events EventPublisher, m *metrics.Metrics, log *logger.Logger, event *models.CheckoutEvent) {
	if events == nil {
		return
	}
	event.ID = utils.GenerateEventID()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := events.Publish(event); err != nil {
		m.ObserveEvent(event.Type, "error")
		log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", event.Type, event.Key, err))
		return
	}
	m.ObserveEvent(event.Type, "ok")
}
