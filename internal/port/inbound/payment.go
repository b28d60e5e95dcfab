package inbound

import "github.com/gin-gonic/gin"

// PaymentHttpPort defines HTTP handler interface for payment operations.
type PaymentHttpPort interface {
	// InitiatePayment handles POST /payments
	// Starts a payment attempt for an order.
	InitiatePayment(c *gin.Context)

	// GetPayment handles GET /payments/:id
	// Returns payment details by ID.
	GetPayment(c *gin.Context)

	// RetryPayment handles POST /payments/:id/retry
	// Re-drives a failed payment, optionally with a new method.
	RetryPayment(c *gin.Context)

	// CancelPayment handles POST /payments/:id/cancel
	// Cancels a pending payment.
	CancelPayment(c *gin.Context)

	// ListPendingPayments handles GET /payments/pending
	// Lists payments still awaiting a gateway outcome.
	ListPendingPayments(c *gin.Context)

	// SweepPendingPayments handles POST /payments/sweep
	// Reconciles pending payments against the gateway.
	SweepPendingPayments(c *gin.Context)
}

// RefundHttpPort defines HTTP handler interface for refund operations.
type RefundHttpPort interface {
	// InitiateRefund handles POST /refunds
	// Creates a refund against a payment.
	InitiateRefund(c *gin.Context)

	// GetRefund handles GET /refunds/:id
	// Returns refund details by ID.
	GetRefund(c *gin.Context)

	// SearchRefunds handles GET /refunds
	// Lists refunds matching the query filters.
	SearchRefunds(c *gin.Context)

	// SettleRefundManually handles POST /refunds/:id/settle
	// Records an out-of-band settlement for a pending refund.
	SettleRefundManually(c *gin.Context)

	// SweepPendingRefunds handles POST /refunds/sweep
	// Reconciles pending gateway-routed refunds.
	SweepPendingRefunds(c *gin.Context)
}

// WebhookHttpPort defines HTTP handler interface for webhook operations.
type WebhookHttpPort interface {
	// HandleGatewayWebhook handles POST /webhooks/gateway
	// Processes asynchronous gateway status notifications.
	HandleGatewayWebhook(c *gin.Context)
}
