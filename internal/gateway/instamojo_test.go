package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registration-gateway/internal/config"
	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

func newTestInstamojo(baseURL string, timeout time.Duration) *InstamojoGateway {
	return NewInstamojoGateway(config.InstamojoConfig{
		APIKey:    "test-key",
		AuthToken: "test-token",
		BaseURL:   baseURL,
	}, timeout, "http://localhost:3001", logger.Discard())
}

func TestInstamojoCreateOrder(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/1.1/payment-requests/", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "test-token", r.Header.Get("X-Auth-Token"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "payment_request": {"id": "pr_123", "longurl": "https://www.instamojo.com/@fest/pr_123", "amount": "500.00", "status": "Pending"}}`))
	}))
	defer srv.Close()

	g := newTestInstamojo(srv.URL+"/api/1.1", time.Second)
	order, err := g.CreateOrder(context.Background(), testOrderRequest())
	require.NoError(t, err)

	assert.Equal(t, "pr_123", order.ProviderOrderID)
	assert.Equal(t, "https://www.instamojo.com/@fest/pr_123", order.PaymentURL)
	assert.Equal(t, models.OrderCreated, order.Status)
	assert.Equal(t, models.CurrencyINR, order.Currency)
	assert.Equal(t, "500", order.Amount.String())

	assert.Equal(t, "500.00", form.Get("amount"))
	assert.Len(t, []rune(form.Get("purpose")), instamojoPurposeMax)
	assert.Equal(t, "asha@example.com", form.Get("email"))
	assert.Equal(t, "9876543210", form.Get("phone"))
	assert.Equal(t, "True", form.Get("send_email"))
	assert.Equal(t, "False", form.Get("allow_repeated_payments"))
	assert.Equal(t, "http://localhost:3001/payment-success?ref=rcpt_1738405800123_abcd1234", form.Get("redirect_url"))
}

func TestInstamojoApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": {"phone": ["Phone number is invalid."]}}`))
	}))
	defer srv.Close()

	_, err := newTestInstamojo(srv.URL, time.Second).CreateOrder(context.Background(), testOrderRequest())

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.CallerFault())
	assert.Equal(t, "Instamojo API returned an error", pe.Message)
	assert.NotNil(t, pe.Details)
}

func TestInstamojoUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success": false, "message": "Invalid token or API key."}`))
	}))
	defer srv.Close()

	_, err := newTestInstamojo(srv.URL, time.Second).CreateOrder(context.Background(), testOrderRequest())

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.False(t, pe.CallerFault())
}

func TestInstamojoConnectionReset(t *testing.T) {
	srv := resetServer(t)
	defer srv.Close()

	_, err := newTestInstamojo(srv.URL, time.Second).CreateOrder(context.Background(), testOrderRequest())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeConnReset, te.Code)
	assert.Equal(t, config.ProviderInstamojo, te.Provider)
}

func TestInstamojoTimeout(t *testing.T) {
	srv := slowServer()
	defer srv.Close()

	_, err := newTestInstamojo(srv.URL, 50*time.Millisecond).CreateOrder(context.Background(), testOrderRequest())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeTimedOut, te.Code)
}

func TestInstamojoMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestInstamojo(srv.URL, time.Second).CreateOrder(context.Background(), testOrderRequest())
	require.Error(t, err)

	var te *TransportError
	var pe *ProviderError
	assert.False(t, errors.As(err, &te))
	assert.False(t, errors.As(err, &pe))
}

func TestWithReference(t *testing.T) {
	assert.Equal(t, "https://fest.example.com/done?ref=r1&src=web", withReference("https://fest.example.com/done?src=web", "r1"))
	assert.Equal(t, "https://fest.example.com/done", withReference("https://fest.example.com/done", ""))
}
