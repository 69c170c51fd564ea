package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"registration-gateway/internal/config"
	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

// Stripe Checkout limits.
const (
	stripeProductNameMax   = 250
	stripeMetadataValueMax = 500
	stripeMetadataMax      = 50
)

// StripeGateway creates hosted Checkout Sessions priced in INR.
type StripeGateway struct {
	client     *client.API
	successURL string
	cancelURL  string
	log        *logger.Logger
}

func NewStripeGateway(cfg config.StripeConfig, timeout time.Duration, publicBaseURL string, log *logger.Logger) *StripeGateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        newHTTPClient(timeout),
		MaxNetworkRetries: stripe.Int64(0),
		URL:               stripe.String(strings.TrimRight(cfg.BaseURL, "/")),
	})

	sc := client.New(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{
		client:     sc,
		successURL: publicBaseURL + "/payment-success",
		cancelURL:  publicBaseURL + "/payment-failure",
		log:        log,
	}
}

func (g *StripeGateway) Name() string { return config.ProviderStripe }

func (g *StripeGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*models.PaymentOrder, error) {
	minor := ToMinorUnits(req.Amount)
	successURL := req.RedirectURL
	if successURL == "" {
		successURL = g.successURL
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withReference(successURL, req.Receipt)),
		CancelURL:         stripe.String(g.cancelURL),
		CustomerEmail:     stripe.String(req.BuyerEmail),
		ClientReferenceID: stripe.String(req.Receipt),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(models.CurrencyINR)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(truncate(req.Purpose, stripeProductNameMax)),
					},
					UnitAmount: stripe.Int64(minor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: stripeMetadata(req),
	}
	params.Context = ctx

	g.log.LogPayment("STRIPE", req.Receipt, fmt.Sprintf("Creating checkout session for %d paise", minor))

	sess, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, &ProviderError{
				Provider:   g.Name(),
				StatusCode: stripeErr.HTTPStatusCode,
				Message:    stripeErr.Msg,
				Details: map[string]any{
					"type":  string(stripeErr.Type),
					"code":  string(stripeErr.Code),
					"param": stripeErr.Param,
				},
			}
		}
		return nil, classifyTransport(g.Name(), err)
	}

	return &models.PaymentOrder{
		Provider:        g.Name(),
		ProviderOrderID: sess.ID,
		Receipt:         req.Receipt,
		Amount:          req.Amount,
		AmountMinor:     minor,
		Currency:        models.CurrencyINR,
		Status:          models.OrderCreated,
		PaymentURL:      sess.URL,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

func stripeMetadata(req *OrderRequest) map[string]string {
	md := map[string]string{
		"receipt":     req.Receipt,
		"buyer_name":  truncate(req.BuyerName, stripeMetadataValueMax),
		"buyer_phone": req.BuyerPhone,
	}
	if req.RegistrationType != "" {
		md["registration_type"] = req.RegistrationType
	}

	keys := make([]string, 0, len(req.Participants))
	for k := range req.Participants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, taken := md[k]; taken || len(md) >= stripeMetadataMax {
			continue
		}
		md[k] = truncate(fmt.Sprint(req.Participants[k]), stripeMetadataValueMax)
	}
	return md
}
