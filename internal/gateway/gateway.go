package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"registration-gateway/internal/config"
	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// OrderRequest is a validated, priced checkout ready to be sent to a provider.
type OrderRequest struct {
	Receipt          string
	Amount           decimal.Decimal
	Purpose          string
	BuyerName        string
	BuyerEmail       string
	BuyerPhone       string
	RedirectURL      string
	RegistrationType string
	Participants     map[string]any
}

// Gateway creates billable orders with an external payment provider.
// CreateOrder returns *TransportError when the provider could not be
// reached and *ProviderError when it answered with a rejection.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req *OrderRequest) (*models.PaymentOrder, error)
}

// New builds the gateway selected by cfg.Gateway.Provider.
func New(cfg *config.Config, log *logger.Logger) (Gateway, error) {
	g := cfg.Gateway
	switch g.Provider {
	case config.ProviderInstamojo:
		return NewInstamojoGateway(g.Instamojo, g.Timeout, cfg.Server.PublicBaseURL, log), nil
	case config.ProviderRazorpay:
		return NewRazorpayGateway(g.Razorpay, g.Timeout, log), nil
	case config.ProviderStripe:
		return NewStripeGateway(g.Stripe, g.Timeout, cfg.Server.PublicBaseURL, log), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", g.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ToMinorUnits converts rupees to paise.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
