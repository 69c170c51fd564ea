package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"registration-gateway/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type PageConfig struct {
	EventName    string
	SupportPhone string
}

type PageHandler struct {
	cfg PageConfig
	log *logger.Logger
}

func NewPageHandler(cfg PageConfig, log *logger.Logger) *PageHandler {
	if cfg.EventName == "" {
		cfg.EventName = "Heritage Fest 2025"
	}
	return &PageHandler{cfg: cfg, log: log}
}

type pageData struct {
	PageConfig
	PaymentID        string
	PaymentRequestID string
	Reference        string
}

// PaymentSuccess is where the provider sends the buyer after paying.
func (h *PageHandler) PaymentSuccess(c *gin.Context) {
	h.render(c, "payment_success.html", pageData{
		PageConfig:       h.cfg,
		PaymentID:        c.Query("payment_id"),
		PaymentRequestID: c.Query("payment_request_id"),
		Reference:        c.Query("ref"),
	})
}

func (h *PageHandler) PaymentFailure(c *gin.Context) {
	h.render(c, "payment_failure.html", pageData{
		PageConfig: h.cfg,
		Reference:  c.Query("ref"),
	})
}

func (h *PageHandler) render(c *gin.Context, name string, data pageData) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := pageTemplates.ExecuteTemplate(c.Writer, name, data); err != nil {
		h.log.Error("PAGES", "render "+name+": "+err.Error())
	}
}
