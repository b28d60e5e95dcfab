package refund

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/domain/provider"
	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/outbound"
	apperrors "github.com/payflow/server/internal/shared/errors"
	"github.com/payflow/server/internal/shared/events"
	"github.com/payflow/server/internal/utils/metrics"
	"go.uber.org/zap"
)

// RefundDomain owns the refund lifecycle.
type RefundDomain interface {
	// InitiateRefund creates a refund against a payment. The sum of
	// pending and completed refund amounts never exceeds the payment
	// amount.
	InitiateRefund(ctx context.Context, req *model.InitiateRefundRequest) (*model.Refund, error)

	// GetRefundStatus returns a refund by ID, or nil when it does not exist.
	GetRefundStatus(ctx context.Context, refundID uuid.UUID) (*model.Refund, error)

	// SearchRefunds returns refunds matching the filter, paginated.
	SearchRefunds(ctx context.Context, filter model.RefundFilter) ([]*model.Refund, int64, error)

	// ProcessPendingRefunds reconciles pending gateway-routed refunds
	// and returns the number that actually advanced. Manual refunds
	// are skipped: they need explicit settlement.
	ProcessPendingRefunds(ctx context.Context) (int, error)

	// ProcessRefundManually settles a pending refund through a channel
	// outside the gateway.
	ProcessRefundManually(ctx context.Context, req *model.ManualSettlementRequest) (*model.Refund, error)
}

type refundDomain struct {
	refundDB  outbound.RefundDatabasePort
	paymentDB outbound.PaymentDatabasePort
	ledger    outbound.LedgerPort
	resolver  provider.Resolver
	gateway   outbound.GatewayPort
	router    Router
	uow       outbound.UnitOfWorkPort
	publisher outbound.EventPublisherPort
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewRefundDomain creates a new refund domain service.
func NewRefundDomain(
	refundDB outbound.RefundDatabasePort,
	paymentDB outbound.PaymentDatabasePort,
	ledger outbound.LedgerPort,
	resolver provider.Resolver,
	gateway outbound.GatewayPort,
	router Router,
	uow outbound.UnitOfWorkPort,
	publisher outbound.EventPublisherPort,
	m *metrics.Metrics,
	logger *zap.Logger,
) RefundDomain {
	return &refundDomain{
		refundDB:  refundDB,
		paymentDB: paymentDB,
		ledger:    ledger,
		resolver:  resolver,
		gateway:   gateway,
		router:    router,
		uow:       uow,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (d *refundDomain) InitiateRefund(ctx context.Context, req *model.InitiateRefundRequest) (*model.Refund, error) {
	if req == nil || req.PaymentID == uuid.Nil {
		return nil, apperrors.Validation("payment id is required")
	}
	if req.Amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}

	payment, err := d.paymentDB.FindByID(ctx, req.PaymentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("payment")
	}
	if err != nil {
		return nil, err
	}

	route := d.router.Route(payment.Method)

	now := time.Now()
	refund := &model.Refund{
		ID:                    uuid.New(),
		PaymentID:             payment.ID,
		Method:                route,
		OriginalTransactionID: req.OriginalTransactionID,
		Amount:                req.Amount,
		Reason:                req.Reason,
		Status:                model.RefundStatusPending,
		InitiatedBy:           req.InitiatedBy,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	var cfg *model.ProviderConfiguration
	if route == model.RefundMethodOriginal {
		if cfg, err = d.resolver.Resolve(ctx, payment.Method); err != nil {
			return nil, err
		}
	}

	err = d.uow.Do(ctx, func(ctx context.Context) error {
		// Lock the payment row first so concurrent initiations for the
		// same payment serialize; the guard then sums a total no other
		// in-flight initiation can move.
		locked, err := d.paymentDB.FindByIDForUpdate(ctx, payment.ID)
		if err != nil {
			return err
		}
		total, err := d.refundDB.ActiveTotalByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		if req.Amount > locked.Amount-total {
			return apperrors.Validation("refund amount exceeds remaining refundable amount")
		}

		if err := d.refundDB.Create(ctx, refund); err != nil {
			return err
		}

		// Manual route returns immediately, pending out-of-band settlement.
		if route == model.RefundMethodManual {
			return nil
		}
		return d.processThroughGateway(ctx, cfg, payment, refund)
	})
	if err != nil {
		return nil, err
	}

	d.publishOutcome(ctx, refund, "")
	return refund, nil
}

// processThroughGateway runs the gateway leg of a refund inside the
// caller's unit of work. An illegal resulting transition fails the
// whole attempt; a refund is never left half processed.
func (d *refundDomain) processThroughGateway(ctx context.Context, cfg *model.ProviderConfiguration, payment *model.Payment, refund *model.Refund) error {
	originalRef, err := d.originalReference(ctx, refund, payment)
	if err != nil {
		return err
	}

	started := time.Now()
	result, gwErr := d.gateway.ProcessRefund(ctx, cfg, &model.GatewayRefundRequest{
		RefundID:          refund.ID,
		OriginalReference: originalRef,
		Amount:            refund.Amount,
		Currency:          payment.Currency,
		Reason:            refund.Reason,
	})
	result = normalized(result, gwErr)
	d.observeGateway("process_refund", cfg.Provider, result, time.Since(started))

	txn := &model.Transaction{
		ID:             uuid.New(),
		PaymentID:      &payment.ID,
		RefundID:       &refund.ID,
		Status:         result.LedgerStatus(),
		ProviderConfID: &cfg.ID,
		Amount:         refund.Amount,
		GatewayRef:     result.ReferenceID,
		ErrorMessage:   result.ErrorMessage,
		PerformedBy:    refund.InitiatedBy,
		RetryCount:     refund.RetryCount,
		CreatedAt:      time.Now(),
	}
	if err := d.appendLedger(ctx, txn, d.gatewayResponse(refund, txn, result)); err != nil {
		return err
	}

	target := txn.Status.RefundStatusFor()
	if target == "" {
		// Gateway still working on it; the sweep picks it up.
		refund.RefundTransactionID = &txn.ID
		refund.UpdatedAt = time.Now()
		return d.refundDB.Update(ctx, refund)
	}
	if !refund.Status.CanTransitionTo(target) {
		return apperrors.InvalidTransition("refund", string(refund.Status), string(target))
	}

	refund.Status = target
	refund.RefundTransactionID = &txn.ID
	if target == model.RefundStatusCompleted {
		now := time.Now()
		refund.ProcessedAt = &now
	}
	refund.UpdatedAt = time.Now()
	d.metrics.TransitionsTotal.WithLabelValues("refund", string(model.RefundStatusPending), string(target)).Inc()
	return d.refundDB.Update(ctx, refund)
}

// originalReference finds the gateway reference the refund is keyed by.
func (d *refundDomain) originalReference(ctx context.Context, refund *model.Refund, payment *model.Payment) (string, error) {
	if refund.OriginalTransactionID != nil {
		txn, err := d.ledger.FindTransaction(ctx, *refund.OriginalTransactionID)
		if err != nil {
			return "", apperrors.NotFound("original transaction")
		}
		return txn.GatewayRef, nil
	}

	txn, err := d.ledger.LatestByPayment(ctx, payment.ID)
	if err != nil {
		return "", apperrors.NotFound("payment transaction")
	}
	return txn.GatewayRef, nil
}

func (d *refundDomain) GetRefundStatus(ctx context.Context, refundID uuid.UUID) (*model.Refund, error) {
	r, err := d.refundDB.FindByID(ctx, refundID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

func (d *refundDomain) SearchRefunds(ctx context.Context, filter model.RefundFilter) ([]*model.Refund, int64, error) {
	filter.DefaultPagination()
	return d.refundDB.FindByFilter(ctx, filter)
}

func (d *refundDomain) ProcessPendingRefunds(ctx context.Context) (int, error) {
	pending, err := d.refundDB.FindPending(ctx)
	if err != nil {
		return 0, err
	}

	advanced := 0
	for _, refund := range pending {
		if refund.Method == model.RefundMethodManual || !refund.CanRetry() {
			d.metrics.SweepItemsTotal.WithLabelValues("refund", "skipped").Inc()
			continue
		}

		moved, err := d.reconcileRefund(ctx, refund)
		if err != nil {
			d.logger.Warn("refund reconciliation failed",
				zap.String("refund_id", refund.ID.String()),
				zap.Error(err),
			)
			d.metrics.SweepItemsTotal.WithLabelValues("refund", "error").Inc()
			continue
		}
		if moved {
			advanced++
			d.metrics.SweepItemsTotal.WithLabelValues("refund", "advanced").Inc()
		} else {
			d.metrics.SweepItemsTotal.WithLabelValues("refund", "unchanged").Inc()
		}
	}
	return advanced, nil
}

func (d *refundDomain) reconcileRefund(ctx context.Context, refund *model.Refund) (bool, error) {
	payment, err := d.paymentDB.FindByID(ctx, refund.PaymentID)
	if err != nil {
		return false, err
	}
	cfg, err := d.resolver.Resolve(ctx, payment.Method)
	if err != nil {
		return false, err
	}

	last, err := d.ledger.LatestByRefund(ctx, refund.ID)
	if err != nil {
		return false, nil
	}
	if last.GatewayRef == "" {
		return false, nil
	}

	var moved bool
	err = d.uow.Do(ctx, func(ctx context.Context) error {
		started := time.Now()
		result, gwErr := d.gateway.GetPaymentDetails(ctx, cfg, last.GatewayRef)
		result = normalized(result, gwErr)
		d.observeGateway("get_payment_details", cfg.Provider, result, time.Since(started))

		txn := &model.Transaction{
			ID:             uuid.New(),
			PaymentID:      &refund.PaymentID,
			RefundID:       &refund.ID,
			Status:         result.LedgerStatus(),
			ProviderConfID: &cfg.ID,
			Amount:         refund.Amount,
			GatewayRef:     result.ReferenceID,
			ErrorMessage:   result.ErrorMessage,
			PerformedBy:    "reconciler",
			RetryCount:     refund.RetryCount,
			CreatedAt:      time.Now(),
		}
		if err := d.appendLedger(ctx, txn, d.gatewayResponse(refund, txn, result)); err != nil {
			return err
		}

		target := txn.Status.RefundStatusFor()
		switch {
		case target != "" && refund.Status.CanTransitionTo(target):
			from := refund.Status
			refund.Status = target
			if target == model.RefundStatusCompleted {
				now := time.Now()
				refund.ProcessedAt = &now
			}
			moved = true
			d.metrics.TransitionsTotal.WithLabelValues("refund", string(from), string(target)).Inc()
		case target != "" && target != refund.Status:
			d.metrics.TransitionsDroppedTotal.WithLabelValues("refund", string(refund.Status), string(target)).Inc()
			d.logger.Info("dropping illegal refund transition",
				zap.String("refund_id", refund.ID.String()),
				zap.String("from", string(refund.Status)),
				zap.String("to", string(target)),
			)
		default:
			refund.RetryCount++
		}
		refund.UpdatedAt = time.Now()
		return d.refundDB.Update(ctx, refund)
	})
	if err != nil {
		return false, err
	}

	if moved {
		d.publishOutcome(ctx, refund, "")
	}
	return moved, nil
}

func (d *refundDomain) ProcessRefundManually(ctx context.Context, req *model.ManualSettlementRequest) (*model.Refund, error) {
	if req == nil || req.RefundID == uuid.Nil {
		return nil, apperrors.Validation("refund id is required")
	}
	if req.SettlementReference == "" {
		return nil, apperrors.Validation("settlement reference is required")
	}

	refund, err := d.refundDB.FindByID(ctx, req.RefundID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("refund")
	}
	if err != nil {
		return nil, err
	}

	if refund.Status != model.RefundStatusPending {
		return nil, apperrors.InvalidOperation("only pending refunds can be settled manually")
	}

	// No partial manual settlement.
	if req.Amount != refund.Amount {
		return nil, apperrors.Validation("settlement amount must equal the refund amount")
	}

	method := refund.Method
	if req.MethodOverride != nil {
		method = *req.MethodOverride
	}
	if !method.SettlableManually() {
		return nil, apperrors.InvalidOperation("the gateway route cannot be settled manually")
	}

	err = d.uow.Do(ctx, func(ctx context.Context) error {
		now := time.Now()
		txn := &model.Transaction{
			ID:          uuid.New(),
			PaymentID:   &refund.PaymentID,
			RefundID:    &refund.ID,
			Status:      model.TransactionStatusSuccess,
			Amount:      refund.Amount,
			GatewayRef:  req.SettlementReference,
			PerformedBy: req.PerformedBy,
			Notes:       req.Notes,
			RetryCount:  refund.RetryCount,
			CreatedAt:   now,
		}
		if err := d.ledger.AppendTransaction(ctx, txn); err != nil {
			return err
		}

		refund.Method = method
		refund.Status = model.RefundStatusCompleted
		refund.RefundTransactionID = &txn.ID
		refund.ProcessedAt = &now
		refund.UpdatedAt = now
		d.metrics.TransitionsTotal.WithLabelValues("refund", string(model.RefundStatusPending), string(model.RefundStatusCompleted)).Inc()
		return d.refundDB.Update(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	d.publishOutcome(ctx, refund, "")
	return refund, nil
}

// --- helpers ---

func (d *refundDomain) gatewayResponse(refund *model.Refund, txn *model.Transaction, result *model.GatewayResult) *model.GatewayResponse {
	receivedAt := result.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return &model.GatewayResponse{
		ID:            uuid.New(),
		PaymentID:     &refund.PaymentID,
		RefundID:      &refund.ID,
		TransactionID: &txn.ID,
		RawBody:       result.RawBody,
		StatusCode:    result.StatusCode,
		Message:       result.Message,
		ErrorMessage:  result.ErrorMessage,
		ReceivedAt:    receivedAt,
	}
}

func (d *refundDomain) observeGateway(operation, providerName string, result *model.GatewayResult, elapsed time.Duration) {
	d.metrics.GatewayCallsTotal.WithLabelValues(operation, providerName, string(result.Status)).Inc()
	d.metrics.GatewayCallDuration.WithLabelValues(operation, providerName).Observe(elapsed.Seconds())
}

func (d *refundDomain) appendLedger(ctx context.Context, txn *model.Transaction, resp *model.GatewayResponse) error {
	if err := d.ledger.AppendTransaction(ctx, txn); err != nil {
		return err
	}
	return d.ledger.AppendGatewayResponse(ctx, resp)
}

func (d *refundDomain) publishOutcome(ctx context.Context, refund *model.Refund, errorMessage string) {
	if d.publisher == nil {
		return
	}
	switch refund.Status {
	case model.RefundStatusCompleted:
		_ = d.publisher.Publish(ctx, events.RefundCompletedEvent{
			RefundID:   refund.ID,
			PaymentID:  refund.PaymentID,
			Amount:     refund.Amount,
			OccurredAt: time.Now(),
		})
	case model.RefundStatusFailed, model.RefundStatusRejected:
		_ = d.publisher.Publish(ctx, events.RefundFailedEvent{
			RefundID:     refund.ID,
			PaymentID:    refund.PaymentID,
			ErrorMessage: errorMessage,
			OccurredAt:   time.Now(),
		})
	}
}

// normalized folds a transport error into a failed result.
func normalized(result *model.GatewayResult, err error) *model.GatewayResult {
	if err != nil {
		return &model.GatewayResult{
			Status:       model.GatewayStatusFailed,
			StatusCode:   "500",
			ErrorMessage: err.Error(),
			Timestamp:    time.Now(),
		}
	}
	return result
}
