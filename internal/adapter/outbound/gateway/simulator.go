// Package gateway implements the payment gateway port against a
// simulated provider. The wire protocol of a real provider is out of
// scope; the simulator honors the normalized adapter contract so the
// orchestrators can be exercised end to end.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/outbound"
	"go.uber.org/zap"
)

// Simulator is an in-memory gateway. Checkout sessions start pending;
// their terminal outcome is injected through Settle, which stands in
// for the real provider's asynchronous processing.
type Simulator struct {
	mu       sync.RWMutex
	sessions map[string]*model.GatewayResult
	logger   *zap.Logger
}

// NewSimulator creates a simulated gateway client.
func NewSimulator(logger *zap.Logger) *Simulator {
	return &Simulator{
		sessions: make(map[string]*model.GatewayResult),
		logger:   logger,
	}
}

var _ outbound.GatewayPort = (*Simulator)(nil)

// CreateCheckoutSession opens a hosted checkout flow.
func (s *Simulator) CreateCheckoutSession(ctx context.Context, cfg *model.ProviderConfiguration, req *model.CheckoutRequest) (*model.GatewayResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("%s_%s", cfg.Provider, strings.ReplaceAll(uuid.New().String(), "-", "")[:24])
	result := &model.GatewayResult{
		Status:      model.GatewayStatusPending,
		StatusCode:  "102",
		Message:     "checkout session created",
		Amount:      req.Amount,
		Currency:    req.Currency,
		Timestamp:   time.Now().UTC(),
		ReferenceID: ref,
		CheckoutURL: fmt.Sprintf("%s/checkout/%s", strings.TrimRight(cfg.EndpointURL, "/"), ref),
	}
	result.RawBody = rawBody(result)

	s.mu.Lock()
	s.sessions[ref] = result
	s.mu.Unlock()

	s.logger.Debug("simulated checkout session created",
		zap.String("reference_id", ref),
		zap.String("payment_id", req.PaymentID.String()),
	)
	return result, nil
}

// GetPaymentDetails returns the current status of a session or refund.
func (s *Simulator) GetPaymentDetails(ctx context.Context, cfg *model.ProviderConfiguration, referenceID string) (*model.GatewayResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	existing, ok := s.sessions[referenceID]
	s.mu.RUnlock()

	if !ok {
		result := &model.GatewayResult{
			Status:       model.GatewayStatusFailed,
			StatusCode:   "500",
			ErrorMessage: "unknown reference",
			Timestamp:    time.Now().UTC(),
			ReferenceID:  referenceID,
		}
		result.RawBody = rawBody(result)
		return result, nil
	}

	copied := *existing
	copied.Timestamp = time.Now().UTC()
	copied.RawBody = rawBody(&copied)
	return &copied, nil
}

// ProcessRefund refunds against an original reference. The simulator
// accepts refunds for any known reference and settles them immediately.
func (s *Simulator) ProcessRefund(ctx context.Context, cfg *model.ProviderConfiguration, req *model.GatewayRefundRequest) (*model.GatewayResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, known := s.sessions[req.OriginalReference]
	s.mu.RUnlock()

	if req.OriginalReference == "" || !known {
		result := &model.GatewayResult{
			Status:       model.GatewayStatusFailed,
			StatusCode:   "500",
			ErrorMessage: "original transaction not found",
			Amount:       req.Amount,
			Currency:     req.Currency,
			Timestamp:    time.Now().UTC(),
		}
		result.RawBody = rawBody(result)
		return result, nil
	}

	ref := fmt.Sprintf("re_%s", strings.ReplaceAll(uuid.New().String(), "-", "")[:24])
	result := &model.GatewayResult{
		Status:      model.GatewayStatusSuccess,
		StatusCode:  "200",
		Message:     "refund processed",
		Amount:      req.Amount,
		Currency:    req.Currency,
		Timestamp:   time.Now().UTC(),
		ReferenceID: ref,
	}
	result.RawBody = rawBody(result)

	s.mu.Lock()
	s.sessions[ref] = result
	s.mu.Unlock()
	return result, nil
}

// Settle injects a terminal outcome for a session, standing in for the
// provider finishing its side of the flow.
func (s *Simulator) Settle(referenceID string, status model.GatewayStatus, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[referenceID]; ok {
		existing.Status = status
		existing.StatusCode = code
	}
}

func rawBody(result *model.GatewayResult) string {
	body, err := json.Marshal(result)
	if err != nil {
		return "{}"
	}
	return string(body)
}
