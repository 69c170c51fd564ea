package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"registration-gateway/internal/models"
	"registration-gateway/internal/services"
	"registration-gateway/internal/utils"
)

type PaymentHandler struct {
	checkout *services.CheckoutService
}

func NewPaymentHandler(checkout *services.CheckoutService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout}
}

// CreatePayment accepts a JSON or form-encoded registration and answers
// with a checkout payload, a fallback payload or an error.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req models.RegistrationRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	resp, err := h.checkout.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		status, body := services.ComposeError(err)
		if status >= http.StatusInternalServerError {
			c.Error(err)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPaymentStatus reports what is known about an order by its receipt.
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	receipt := c.Param("receipt")

	entry, err := h.checkout.PaymentStatus(c.Request.Context(), receipt)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Payment not found", receipt))
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve payment status", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"receipt":    entry.Order.Receipt,
		"provider":   entry.Order.Provider,
		"order_id":   entry.Order.ProviderOrderID,
		"status":     entry.Order.Status,
		"settlement": entry.Settlement,
		"amount":     entry.Order.Amount,
		"currency":   entry.Order.Currency,
		"updated_at": entry.UpdatedAt,
	})
}
