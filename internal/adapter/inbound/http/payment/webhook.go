package paymenthttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payflow/server/internal/domain/payment"
	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/inbound"
)

// WebhookHandler handles gateway webhook HTTP requests.
type WebhookHandler struct {
	domain payment.PaymentDomain
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(domain payment.PaymentDomain) *WebhookHandler {
	return &WebhookHandler{domain: domain}
}

// RegisterRoutes registers webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/gateway", h.HandleGatewayWebhook)
	}
}

// HandleGatewayWebhook handles POST /webhooks/gateway.
// Malformed or unknown events are acknowledged with accepted=false so
// the gateway does not keep redelivering them.
func (h *WebhookHandler) HandleGatewayWebhook(c *gin.Context) {
	var event model.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"accepted": false, "reason": "invalid payload"})
		return
	}

	accepted := h.domain.HandleWebhook(c.Request.Context(), &event)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

// Compile-time check
var _ inbound.WebhookHttpPort = (*WebhookHandler)(nil)
