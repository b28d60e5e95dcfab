package events

import (
	"context"

	"go.uber.org/zap"
)

// LogHandler writes every payment and refund outcome to the application
// log. It is the default subscriber so outcomes are visible even before
// any downstream consumer is wired in.
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a new log handler.
func NewLogHandler(logger *zap.Logger) *LogHandler {
	return &LogHandler{logger: logger.Named("events")}
}

// Handles implements Handler.
func (h *LogHandler) Handles() []string {
	return []string{
		PaymentCompletedType,
		PaymentFailedType,
		RefundCompletedType,
		RefundFailedType,
	}
}

// Handle implements Handler.
func (h *LogHandler) Handle(_ context.Context, event Event) error {
	switch ev := event.(type) {
	case PaymentCompletedEvent:
		h.logger.Info("payment completed",
			zap.String("payment_id", ev.PaymentID.String()),
			zap.String("order_id", ev.OrderID.String()),
			zap.Int64("amount", ev.Amount),
			zap.String("currency", ev.Currency),
		)
	case PaymentFailedEvent:
		h.logger.Warn("payment failed",
			zap.String("payment_id", ev.PaymentID.String()),
			zap.String("order_id", ev.OrderID.String()),
			zap.String("error", ev.ErrorMessage),
		)
	case RefundCompletedEvent:
		h.logger.Info("refund completed",
			zap.String("refund_id", ev.RefundID.String()),
			zap.String("payment_id", ev.PaymentID.String()),
			zap.Int64("amount", ev.Amount),
		)
	case RefundFailedEvent:
		h.logger.Warn("refund failed",
			zap.String("refund_id", ev.RefundID.String()),
			zap.String("payment_id", ev.PaymentID.String()),
			zap.String("error", ev.ErrorMessage),
		)
	}
	return nil
}
