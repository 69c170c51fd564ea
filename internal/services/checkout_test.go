package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"registration-gateway/internal/config"
	"registration-gateway/internal/gateway"
	"registration-gateway/internal/models"
)

const testFallbackURL = "https://www.instamojo.com/@heritagefest2025/"

func validRequest() *models.RegistrationRequest {
	return &models.RegistrationRequest{
		Amount:     "500",
		Purpose:    "Heritage Fest Registration",
		BuyerName:  "Asha Rao",
		BuyerEmail: "asha@example.com",
		BuyerPhone: "9876543210",
	}
}

func newTestCheckout(gw *MockGateway, ledger OrderLedger, events EventPublisher) *CheckoutService {
	gw.On("Name").Return("instamojo").Maybe()
	return NewCheckoutService(CheckoutDeps{
		Gateway: gw,
		Pricing: NewPricingResolver(config.PricingConfig{
			SoloPrice:  decimal.NewFromInt(300),
			GroupPrice: decimal.NewFromInt(1000),
		}),
		Fallback: NewFallbackLinker(testFallbackURL),
		Ledger:   ledger,
		Events:   events,
		Timeout:  time.Second,
	})
}

func createdOrder(req *gateway.OrderRequest) *models.PaymentOrder {
	return &models.PaymentOrder{
		Provider:        "instamojo",
		ProviderOrderID: "MOJO5a06005J21512197",
		Receipt:         req.Receipt,
		Amount:          req.Amount,
		Currency:        models.CurrencyINR,
		Status:          models.OrderCreated,
		PaymentURL:      "https://www.instamojo.com/@fest/MOJO5a06005J21512197",
	}
}

func TestCreatePaymentMissingFieldsNeverCallsGateway(t *testing.T) {
	for _, mutate := range []func(r *models.RegistrationRequest){
		func(r *models.RegistrationRequest) { r.Amount = "" },
		func(r *models.RegistrationRequest) { r.Purpose = "" },
		func(r *models.RegistrationRequest) { r.BuyerName = "   " },
		func(r *models.RegistrationRequest) { r.BuyerEmail = "" },
		func(r *models.RegistrationRequest) { r.BuyerPhone = "" },
	} {
		gw := new(MockGateway)
		svc := newTestCheckout(gw, nil, nil)
		req := validRequest()
		mutate(req)

		resp, err := svc.CreatePayment(context.Background(), req)
		require.Error(t, err)
		assert.Nil(t, resp)

		status, body := ComposeError(err)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, msgMissingFields, body.Error)
		gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	}
}

func TestCreatePaymentRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		mutate func(r *models.RegistrationRequest)
		want   string
	}{
		"email":      {func(r *models.RegistrationRequest) { r.BuyerEmail = "asha@example" }, msgInvalidEmail},
		"phone":      {func(r *models.RegistrationRequest) { r.BuyerPhone = "98765" }, msgInvalidPhone},
		"amount low": {func(r *models.RegistrationRequest) { r.Amount = "0.5" }, msgAmountRange},
		"amount high": {func(r *models.RegistrationRequest) { r.Amount = "10000.01" }, msgAmountRange},
		"amount text": {func(r *models.RegistrationRequest) { r.Amount = "five" }, msgAmountRange},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gw := new(MockGateway)
			svc := newTestCheckout(gw, nil, nil)
			req := validRequest()
			tc.mutate(req)

			_, err := svc.CreatePayment(context.Background(), req)
			status, body := ComposeError(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.want, body.Error)
			assert.False(t, body.Success)
			gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePaymentSoloChargesFixedPrice(t *testing.T) {
	captured := make(chan *gateway.OrderRequest, 1)
	gw := new(MockGateway)
	gw.On("CreateOrder", mock.Anything, mock.AnythingOfType("*gateway.OrderRequest")).
		Run(func(args mock.Arguments) { captured <- args.Get(1).(*gateway.OrderRequest) }).
		Return(&models.PaymentOrder{
			Provider: "instamojo", ProviderOrderID: "MOJO1", Amount: decimal.NewFromInt(300),
			Currency: models.CurrencyINR, Status: models.OrderCreated, PaymentURL: "https://pay.example/MOJO1",
		}, nil).Once()

	svc := newTestCheckout(gw, nil, nil)
	req := validRequest()
	req.RegistrationType = models.RegistrationSolo

	resp, err := svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)

	sent := <-captured
	assert.True(t, decimal.NewFromInt(300).Equal(sent.Amount), "solo must be charged 300, got %s", sent.Amount)
	assert.True(t, resp.Success)
	assert.Equal(t, "MOJO1", resp.PaymentRequestID)
	gw.AssertExpectations(t)
}

func TestCreatePaymentWithoutTypeChargesClientAmount(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r *gateway.OrderRequest) bool {
		return r.Amount.Equal(decimal.NewFromInt(500))
	})).Return(func(_ context.Context, r *gateway.OrderRequest) *models.PaymentOrder {
		return createdOrder(r)
	}, nil).Once()

	svc := newTestCheckout(gw, nil, nil)
	resp, err := svc.CreatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(resp.Amount))
	assert.False(t, resp.Fallback)
	gw.AssertExpectations(t)
}

func TestCreatePaymentTransportFailureFallsBack(t *testing.T) {
	for _, code := range []string{gateway.CodeConnReset, gateway.CodeHostNotFound, gateway.CodeTimedOut} {
		t.Run(code, func(t *testing.T) {
			gw := new(MockGateway)
			gw.On("CreateOrder", mock.Anything, mock.Anything).
				Return(nil, &gateway.TransportError{Provider: "instamojo", Code: code, Err: errors.New("boom")}).Once()
			ledger := new(MockLedger)
			ledger.On("Track", mock.Anything, mock.MatchedBy(func(o *models.PaymentOrder) bool {
				return o.Status == models.OrderFallback
			})).Return(nil).Once()
			events := &recordingPublisher{}

			svc := newTestCheckout(gw, ledger, events)
			resp, err := svc.CreatePayment(context.Background(), validRequest())
			require.NoError(t, err)

			assert.True(t, resp.Success)
			assert.True(t, resp.Fallback)
			assert.Equal(t, fallbackMessage, resp.Message)
			require.NotEmpty(t, resp.PaymentURL)

			u, err := url.Parse(resp.PaymentURL)
			require.NoError(t, err)
			assert.Equal(t, "www.instamojo.com", u.Host)
			assert.Equal(t, "Asha Rao", u.Query().Get("data_name"))
			assert.Equal(t, "asha@example.com", u.Query().Get("data_email"))
			assert.Equal(t, "500", u.Query().Get("data_amount"))

			assert.Equal(t, []string{models.EventPaymentFallback}, events.types())
			ledger.AssertExpectations(t)
		})
	}
}

func TestCreatePaymentProviderRejectionHasNoFallback(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"bad request": {&gateway.ProviderError{Provider: "instamojo", StatusCode: 400, Message: "bad phone"}, http.StatusBadRequest},
		"success false": {&gateway.ProviderError{Provider: "instamojo", StatusCode: 201, Message: "Instamojo API returned an error"}, http.StatusBadRequest},
		"unauthorized": {&gateway.ProviderError{Provider: "instamojo", StatusCode: 401, Message: "invalid token"}, http.StatusInternalServerError},
		"server error": {&gateway.ProviderError{Provider: "instamojo", StatusCode: 502, Message: "bad gateway"}, http.StatusInternalServerError},
		"refused":      {errors.New("instamojo: request failed: connect: connection refused"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gw := new(MockGateway)
			gw.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, tc.err).Once()
			ledger := new(MockLedger)
			events := &recordingPublisher{}

			svc := newTestCheckout(gw, ledger, events)
			resp, err := svc.CreatePayment(context.Background(), validRequest())
			require.Error(t, err)
			assert.Nil(t, resp)

			status, body := ComposeError(err)
			assert.Equal(t, tc.status, status)
			assert.NotEqual(t, http.StatusOK, status)
			assert.False(t, body.Success)
			assert.Equal(t, []string{models.EventPaymentFailed}, events.types())
			ledger.AssertNotCalled(t, "Track", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePaymentSideChannelFailuresAreIgnored(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateOrder", mock.Anything, mock.Anything).Return(func(_ context.Context, r *gateway.OrderRequest) *models.PaymentOrder {
		return createdOrder(r)
	}, nil).Once()
	ledger := new(MockLedger)
	ledger.On("Track", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
	events := &recordingPublisher{err: errors.New("broker down")}

	svc := newTestCheckout(gw, ledger, events)
	resp, err := svc.CreatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.PaymentURL)
	ledger.AssertExpectations(t)
}

func TestCreatePaymentIgnoresCallerCancellation(t *testing.T) {
	ctxErr := make(chan error, 1)
	gw := new(MockGateway)
	gw.On("CreateOrder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { ctxErr <- args.Get(0).(context.Context).Err() }).
		Return(func(_ context.Context, r *gateway.OrderRequest) *models.PaymentOrder {
			return createdOrder(r)
		}, nil).Once()

	trackErr := make(chan error, 1)
	ledger := new(MockLedger)
	ledger.On("Track", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { trackErr <- args.Get(0).(context.Context).Err() }).
		Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestCheckout(gw, ledger, nil)
	resp, err := svc.CreatePayment(ctx, validRequest())
	require.NoError(t, err)
	assert.NoError(t, <-ctxErr)
	assert.NoError(t, <-trackErr, "order must be tracked even when the caller is gone")
	assert.Equal(t, "MOJO5a06005J21512197", resp.OrderID)
	ledger.AssertExpectations(t)
}

func TestCreatePaymentRoundsToPaise(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r *gateway.OrderRequest) bool {
			return r.Amount.Equal(decimal.RequireFromString("500.56"))
		})).Return(func(_ context.Context, r *gateway.OrderRequest) *models.PaymentOrder {
			return createdOrder(r)
		}, nil).Once()

		req := validRequest()
		req.Amount = "500.555"
		_, err := newTestCheckout(gw, nil, nil).CreatePayment(context.Background(), req)
		require.NoError(t, err)
		gw.AssertExpectations(t)
	})

	t.Run("fallback", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, &gateway.TransportError{Provider: "instamojo", Code: gateway.CodeConnReset, Err: errors.New("reset")}).Once()

		req := validRequest()
		req.Amount = "500.555"
		resp, err := newTestCheckout(gw, nil, nil).CreatePayment(context.Background(), req)
		require.NoError(t, err)

		u, err := url.Parse(resp.PaymentURL)
		require.NoError(t, err)
		assert.Equal(t, "500.56", u.Query().Get("data_amount"))
		assert.Equal(t, "500.56", resp.Amount.String())
		assert.Equal(t, int64(50056), gateway.ToMinorUnits(resp.Amount))
	})
}

func TestCreatePaymentTrimsFormInput(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r *gateway.OrderRequest) bool {
		return r.Amount.Equal(decimal.NewFromInt(500)) && r.BuyerPhone == "9876543210" && r.BuyerEmail == "asha@example.com"
	})).Return(func(_ context.Context, r *gateway.OrderRequest) *models.PaymentOrder {
		return createdOrder(r)
	}, nil).Once()

	req := validRequest()
	req.Amount = " 500 "
	req.BuyerPhone = " 9876543210\n"
	req.BuyerEmail = " asha@example.com "
	_, err := newTestCheckout(gw, nil, nil).CreatePayment(context.Background(), req)
	require.NoError(t, err)
	gw.AssertExpectations(t)
}

func TestPaymentStatus(t *testing.T) {
	ledger := new(MockLedger)
	entry := &models.LedgerEntry{Settlement: models.SettlementPaid}
	ledger.On("Lookup", mock.Anything, "rcpt_1").Return(entry, nil)
	ledger.On("Lookup", mock.Anything, "rcpt_2").Return(nil, ErrOrderNotFound)

	svc := newTestCheckout(new(MockGateway), ledger, nil)

	got, err := svc.PaymentStatus(context.Background(), "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementPaid, got.Settlement)

	_, err = svc.PaymentStatus(context.Background(), "rcpt_2")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
