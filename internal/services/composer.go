package services

import (
	"errors"
	"net/http"

	"registration-gateway/internal/gateway"
	"registration-gateway/internal/models"
	"registration-gateway/internal/utils"
)

const fallbackMessage = "Using fallback payment method due to API connectivity issues."

var providerDisplayNames = map[string]string{
	"instamojo": "Instamojo",
	"razorpay":  "Razorpay",
	"stripe":    "Stripe",
}

// ComposeOrder builds the 200 payload for a created or fallback order.
func ComposeOrder(req *models.RegistrationRequest, order *models.PaymentOrder) *models.PaymentResponse {
	resp := &models.PaymentResponse{
		Success:          true,
		Provider:         order.Provider,
		PaymentURL:       order.PaymentURL,
		OrderID:          order.ProviderOrderID,
		Receipt:          order.Receipt,
		Amount:           order.Amount,
		AmountMinor:      order.AmountMinor,
		Currency:         order.Currency,
		KeyID:            order.PublicKey,
		BuyerName:        req.BuyerName,
		BuyerEmail:       req.BuyerEmail,
		BuyerPhone:       req.BuyerPhone.String(),
		RegistrationType: string(req.RegistrationType),
	}
	if order.Provider == "instamojo" {
		resp.PaymentRequestID = order.ProviderOrderID
	}
	if order.Status == models.OrderFallback {
		resp.Fallback = true
		resp.Message = fallbackMessage
	}
	return resp
}

// ComposeError maps a checkout failure to a status code and error body.
func ComposeError(err error) (int, *models.ErrorResponse) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, utils.ErrorResponse(ve.Reason, nil)
	}

	var pe *gateway.ProviderError
	if errors.As(err, &pe) {
		outcome := Classify(err)
		if outcome == OutcomeCallerFault {
			return outcome.StatusFor(), utils.ErrorResponse(displayName(pe.Provider)+" API returned an error", providerDetails(pe))
		}
		return outcome.StatusFor(), utils.ErrorResponse("Server error while creating payment", providerDetails(pe))
	}

	return http.StatusInternalServerError, utils.ErrorResponse("Server error while creating payment", err.Error())
}

func providerDetails(pe *gateway.ProviderError) any {
	if pe.Details != nil {
		return pe.Details
	}
	return pe.Message
}

func displayName(provider string) string {
	if name, ok := providerDisplayNames[provider]; ok {
		return name
	}
	return provider
}
