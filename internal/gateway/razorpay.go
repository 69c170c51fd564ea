package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"registration-gateway/internal/config"
	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

// Razorpay Orders API limits.
const (
	razorpayReceiptMax   = 40
	razorpayNoteValueMax = 256
	razorpayNotesMax     = 15
)

type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
	log       *logger.Logger
}

func NewRazorpayGateway(cfg config.RazorpayConfig, timeout time.Duration, log *logger.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/") + "/",
		client:    newHTTPClient(timeout),
		log:       log,
	}
}

func (g *RazorpayGateway) Name() string { return config.ProviderRazorpay }

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Field       string `json:"field,omitempty"`
	} `json:"error"`
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*models.PaymentOrder, error) {
	minor := ToMinorUnits(req.Amount)
	payload, err := json.Marshal(razorpayOrderRequest{
		Amount:   minor,
		Currency: models.CurrencyINR,
		Receipt:  truncate(req.Receipt, razorpayReceiptMax),
		Notes:    razorpayNotes(req),
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("razorpay: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	g.log.LogPayment("RAZORPAY", req.Receipt, fmt.Sprintf("Creating order for %d paise", minor))

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
		msg := "Razorpay API rejected the order"
		var apiErr razorpayError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Description != "" {
			msg = apiErr.Error.Description
		}
		return nil, &ProviderError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Message:    msg,
			Details:    decodeDetails(body),
		}
	}

	var order razorpayOrder
	if err := json.Unmarshal(body, &order); err != nil || order.ID == "" {
		return nil, fmt.Errorf("razorpay: malformed order response: %s", truncate(string(body), 200))
	}

	return &models.PaymentOrder{
		Provider:        g.Name(),
		ProviderOrderID: order.ID,
		Receipt:         req.Receipt,
		Amount:          decimal.New(order.Amount, -2),
		AmountMinor:     order.Amount,
		Currency:        models.CurrencyINR,
		Status:          models.OrderCreated,
		PublicKey:       g.keyID,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// razorpayNotes packs buyer identity and participant details into at most
// fifteen notes, buyer fields first, participant keys in sorted order.
func razorpayNotes(req *OrderRequest) map[string]string {
	notes := make(map[string]string, razorpayNotesMax)
	add := func(k, v string) {
		if _, taken := notes[k]; taken || v == "" || len(notes) >= razorpayNotesMax {
			return
		}
		notes[k] = truncate(v, razorpayNoteValueMax)
	}

	add("purpose", req.Purpose)
	add("buyer_name", req.BuyerName)
	add("buyer_email", req.BuyerEmail)
	add("buyer_phone", req.BuyerPhone)
	add("registration_type", req.RegistrationType)

	keys := make([]string, 0, len(req.Participants))
	for k := range req.Participants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, fmt.Sprint(req.Participants[k]))
	}
	return notes
}
