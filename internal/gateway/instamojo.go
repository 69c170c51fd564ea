package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"registration-gateway/internal/config"
	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

// Instamojo v1.1 field limits.
const (
	instamojoPurposeMax = 30
	instamojoNameMax    = 100
	instamojoEmailMax   = 75
)

type InstamojoGateway struct {
	apiKey      string
	authToken   string
	baseURL     string
	redirectURL string
	client      *http.Client
	log         *logger.Logger
}

func NewInstamojoGateway(cfg config.InstamojoConfig, timeout time.Duration, publicBaseURL string, log *logger.Logger) *InstamojoGateway {
	return &InstamojoGateway{
		apiKey:      cfg.APIKey,
		authToken:   cfg.AuthToken,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/") + "/",
		redirectURL: publicBaseURL + "/payment-success",
		client:      newHTTPClient(timeout),
		log:         log,
	}
}

func (g *InstamojoGateway) Name() string { return config.ProviderInstamojo }

type instamojoResponse struct {
	Success        bool            `json:"success"`
	Message        json.RawMessage `json:"message,omitempty"`
	PaymentRequest *struct {
		ID      string `json:"id"`
		LongURL string `json:"longurl"`
		Amount  string `json:"amount"`
		Status  string `json:"status"`
	} `json:"payment_request,omitempty"`
}

func (g *InstamojoGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*models.PaymentOrder, error) {
	redirect := req.RedirectURL
	if redirect == "" {
		redirect = g.redirectURL
	}

	form := url.Values{}
	form.Set("purpose", truncate(req.Purpose, instamojoPurposeMax))
	form.Set("amount", req.Amount.StringFixed(2))
	form.Set("buyer_name", truncate(req.BuyerName, instamojoNameMax))
	form.Set("email", truncate(req.BuyerEmail, instamojoEmailMax))
	form.Set("phone", req.BuyerPhone)
	form.Set("redirect_url", withReference(redirect, req.Receipt))
	form.Set("send_email", "True")
	form.Set("send_sms", "True")
	form.Set("allow_repeated_payments", "False")

	if len(req.Participants) > 0 {
		g.log.Debug("INSTAMOJO", fmt.Sprintf("payment requests carry no metadata, dropping %d participant fields", len(req.Participants)))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"payment-requests/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("instamojo: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("X-Api-Key", g.apiKey)
	httpReq.Header.Set("X-Auth-Token", g.authToken)

	g.log.LogPayment("INSTAMOJO", req.Receipt, fmt.Sprintf("Creating payment request for ₹%s", req.Amount.StringFixed(2)))

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(g.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransport(g.Name(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Message:    "Instamojo API rejected the payment request",
			Details:    decodeDetails(body),
		}
	}

	var out instamojoResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("instamojo: malformed response: %w", err)
	}
	if !out.Success || out.PaymentRequest == nil {
		return nil, &ProviderError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Message:    "Instamojo API returned an error",
			Details:    decodeDetails(body),
		}
	}

	amount := req.Amount
	if parsed, err := decimal.NewFromString(out.PaymentRequest.Amount); err == nil {
		amount = parsed
	}

	return &models.PaymentOrder{
		Provider:        g.Name(),
		ProviderOrderID: out.PaymentRequest.ID,
		Receipt:         req.Receipt,
		Amount:          amount,
		Currency:        models.CurrencyINR,
		Status:          models.OrderCreated,
		PaymentURL:      out.PaymentRequest.LongURL,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// withReference tags the redirect URL with the receipt so the success page
// can be matched to the order. Instamojo keeps existing query parameters.
func withReference(redirect, receipt string) string {
	u, err := url.Parse(redirect)
	if err != nil || receipt == "" {
		return redirect
	}
	q := u.Query()
	q.Set("ref", receipt)
	u.RawQuery = q.Encode()
	return u.String()
}
