package gateway

import (
	"context"
	"time"

	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/outbound"
	"github.com/payflow/server/internal/shared/config"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Breaker wraps a gateway client with a per-call timeout and a circuit
// breaker. A timeout or an open circuit surfaces as an error; callers
// treat that as a retryable failure, never as success.
type Breaker struct {
	next    outbound.GatewayPort
	cb      *gobreaker.CircuitBreaker[*model.GatewayResult]
	timeout time.Duration
}

// NewBreaker wraps next with breaker settings from the gateway config.
func NewBreaker(next outbound.GatewayPort, cfg *config.GatewayConfig, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker[*model.GatewayResult](settings),
		timeout: cfg.CallTimeout,
	}
}

var _ outbound.GatewayPort = (*Breaker)(nil)

// CreateCheckoutSession implements outbound.GatewayPort.
func (b *Breaker) CreateCheckoutSession(ctx context.Context, cfg *model.ProviderConfiguration, req *model.CheckoutRequest) (*model.GatewayResult, error) {
	return b.execute(ctx, func(ctx context.Context) (*model.GatewayResult, error) {
		return b.next.CreateCheckoutSession(ctx, cfg, req)
	})
}

// GetPaymentDetails implements outbound.GatewayPort.
func (b *Breaker) GetPaymentDetails(ctx context.Context, cfg *model.ProviderConfiguration, referenceID string) (*model.GatewayResult, error) {
	return b.execute(ctx, func(ctx context.Context) (*model.GatewayResult, error) {
		return b.next.GetPaymentDetails(ctx, cfg, referenceID)
	})
}

// ProcessRefund implements outbound.GatewayPort.
func (b *Breaker) ProcessRefund(ctx context.Context, cfg *model.ProviderConfiguration, req *model.GatewayRefundRequest) (*model.GatewayResult, error) {
	return b.execute(ctx, func(ctx context.Context) (*model.GatewayResult, error) {
		return b.next.ProcessRefund(ctx, cfg, req)
	})
}

func (b *Breaker) execute(ctx context.Context, call func(ctx context.Context) (*model.GatewayResult, error)) (*model.GatewayResult, error) {
	return b.cb.Execute(func() (*model.GatewayResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return call(callCtx)
	})
}
