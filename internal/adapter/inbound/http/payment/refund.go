package paymenthttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/payflow/server/internal/domain/refund"
	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/inbound"
)

// RefundHandler handles refund HTTP requests.
type RefundHandler struct {
	domain refund.RefundDomain
}

// NewRefundHandler creates a new refund handler.
func NewRefundHandler(domain refund.RefundDomain) *RefundHandler {
	return &RefundHandler{domain: domain}
}

// RegisterRoutes registers refund routes.
func (h *RefundHandler) RegisterRoutes(r *gin.RouterGroup) {
	refunds := r.Group("/refunds")
	{
		refunds.POST("", h.InitiateRefund)
		refunds.GET("", h.SearchRefunds)
		refunds.POST("/sweep", h.SweepPendingRefunds)
		refunds.GET("/:id", h.GetRefund)
		refunds.POST("/:id/settle", h.SettleRefundManually)
	}
}

// InitiateRefund handles POST /refunds.
func (h *RefundHandler) InitiateRefund(c *gin.Context) {
	var req model.InitiateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_input", err.Error())
		return
	}

	r, err := h.domain.InitiateRefund(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// GetRefund handles GET /refunds/:id.
func (h *RefundHandler) GetRefund(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Invalid refund ID")
		return
	}

	r, err := h.domain.GetRefundStatus(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    "not_found",
			Message: "Refund not found",
		})
		return
	}

	c.JSON(http.StatusOK, r)
}

// SearchRefunds handles GET /refunds.
func (h *RefundHandler) SearchRefunds(c *gin.Context) {
	var filter model.RefundFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "invalid_input", err.Error())
		return
	}

	refunds, total, err := h.domain.SearchRefunds(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	filter.DefaultPagination()
	c.JSON(http.StatusOK, model.NewPaginatedResponse(refunds, total, filter.Page, filter.PageSize))
}

// SettleRefundManually handles POST /refunds/:id/settle.
func (h *RefundHandler) SettleRefundManually(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Invalid refund ID")
		return
	}

	var req model.ManualSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_input", err.Error())
		return
	}
	req.RefundID = id

	r, err := h.domain.ProcessRefundManually(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// SweepPendingRefunds handles POST /refunds/sweep.
func (h *RefundHandler) SweepPendingRefunds(c *gin.Context) {
	advanced, err := h.domain.ProcessPendingRefunds(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"advanced": advanced})
}

// Compile-time check
var _ inbound.RefundHttpPort = (*RefundHandler)(nil)
