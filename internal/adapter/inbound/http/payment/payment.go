package paymenthttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/payflow/server/internal/domain/payment"
	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/inbound"
)

// PaymentHandler handles payment HTTP requests.
type PaymentHandler struct {
	domain payment.PaymentDomain
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(domain payment.PaymentDomain) *PaymentHandler {
	return &PaymentHandler{domain: domain}
}

// RegisterRoutes registers payment routes.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("", h.InitiatePayment)
		payments.GET("/pending", h.ListPendingPayments)
		payments.POST("/sweep", h.SweepPendingPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/retry", h.RetryPayment)
		payments.POST("/:id/cancel", h.CancelPayment)
	}
}

// InitiatePayment handles POST /payments.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req model.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_input", err.Error())
		return
	}

	p, err := h.domain.InitiatePayment(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetPayment handles GET /payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Invalid payment ID")
		return
	}

	p, err := h.domain.GetStatus(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    "not_found",
			Message: "Payment not found",
		})
		return
	}

	c.JSON(http.StatusOK, p)
}

// RetryPayment handles POST /payments/:id/retry.
func (h *PaymentHandler) RetryPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Invalid payment ID")
		return
	}

	var req struct {
		Method *model.PaymentMethod `json:"method,omitempty"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_input", err.Error())
			return
		}
	}

	p, err := h.domain.RetryPayment(c.Request.Context(), id, req.Method)
	if err != nil {
		handleError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    "not_found",
			Message: "Payment not found",
		})
		return
	}

	c.JSON(http.StatusOK, p)
}

// CancelPayment handles POST /payments/:id/cancel.
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Invalid payment ID")
		return
	}

	canceled, err := h.domain.CancelPayment(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if !canceled {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    "not_found",
			Message: "Payment not found",
		})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "payment canceled"})
}

// ListPendingPayments handles GET /payments/pending.
func (h *PaymentHandler) ListPendingPayments(c *gin.Context) {
	payments, err := h.domain.GetPendingPayments(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// SweepPendingPayments handles POST /payments/sweep.
func (h *PaymentHandler) SweepPendingPayments(c *gin.Context) {
	advanced, err := h.domain.ProcessPendingPayments(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"advanced": advanced})
}

// Compile-time check
var _ inbound.PaymentHttpPort = (*PaymentHandler)(nil)
