package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"registration-gateway/internal/services"
)

// maxWebhookBytes bounds a provider callback body.
const maxWebhookBytes = 1 << 20

type WebhookHandler struct {
	webhooks *services.WebhookService
}

func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	_, err = h.webhooks.Receive(c.Request.Context(), c.Request.Header, body)
	switch {
	case errors.Is(err, services.ErrWebhookRejected):
		c.String(http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrInvalidWebhook):
		c.String(http.StatusBadRequest, "Bad Request")
	case err != nil:
		c.Error(err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
	default:
		c.String(http.StatusOK, "OK")
	}
}
