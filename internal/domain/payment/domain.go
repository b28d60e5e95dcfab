package payment

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

// PaymentDomain owns the payment lifecycle.
type PaymentDomain interface {
	// InitiatePayment starts a payment attempt for an order. Calling it
	// again for the same order/user pair while the previous attempt is
	// not terminally failed or canceled returns that attempt unchanged.
	InitiatePayment(ctx context.Context, req *model.InitiatePaymentRequest) (*model.Payment, error)

	// GetStatus returns a payment by ID, or nil when it does not exist.
	GetStatus(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error)

	// RetryPayment re-drives a payment, optionally swapping its method.
	// An unknown ID is a no-op and returns (nil, nil).
	RetryPayment(ctx context.Context, paymentID uuid.UUID, methodOverride *model.PaymentMethod) (*model.Payment, error)

	// CancelPayment cancels a pending payment. An unknown ID returns
	// false without an error.
	CancelPayment(ctx context.Context, paymentID uuid.UUID) (bool, error)

	// GetPendingPayments lists all pending payments.
	GetPendingPayments(ctx context.Context) ([]*model.Payment, error)

	// ProcessPendingPayments reconciles pending non-cash payments
	// against the gateway and returns the number of payments whose
	// status actually advanced. Individual failures are logged and
	// skipped; the sweep always completes.
	ProcessPendingPayments(ctx context.Context) (int, error)

	// HandleWebhook ingests an asynchronous gateway notification. It
	// reports whether the event was accepted; it never raises.
	HandleWebhook(ctx context.Context, event *model.WebhookEvent) bool
}

type paymentDomain struct {
	paymentDB    outbound.PaymentDatabasePort
	instrumentDB outbound.UserPaymentMethodDatabasePort
	ledger       outbound.LedgerPort
	resolver     provider.Resolver
	gateway      outbound.GatewayPort
	uow          outbound.UnitOfWorkPort
	publisher    outbound.EventPublisherPort
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewPaymentDomain creates a new payment domain service.
func NewPaymentDomain(
	paymentDB outbound.PaymentDatabasePort,
	instrumentDB outbound.UserPaymentMethodDatabasePort,
	ledger outbound.LedgerPort,
	resolver provider.Resolver,
	gateway outbound.GatewayPort,
	uow outbound.UnitOfWorkPort,
	publisher outbound.EventPublisherPort,
	m *metrics.Metrics,
	logger *zap.Logger,
) PaymentDomain {
	return &paymentDomain{
		paymentDB:    paymentDB,
		instrumentDB: instrumentDB,
		ledger:       ledger,
		resolver:     resolver,
		gateway:      gateway,
		uow:          uow,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
	}
}

func (d *paymentDomain) InitiatePayment(ctx context.Context, req *model.InitiatePaymentRequest) (*model.Payment, error) {
	if req == nil || !req.Method.Valid() {
		return nil, apperrors.Validation("payment method is required")
	}
	if req.Amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}
	if req.Currency == "" {
		return nil, apperrors.Validation("currency is required")
	}

	// One payment per order/user pair while it is not terminally
	// failed or canceled.
	existing, err := d.paymentDB.FindByOrderAndUser(ctx, req.OrderID, req.UserID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != model.PaymentStatusFailed && existing.Status != model.PaymentStatusCanceled {
		d.logger.Info("reusing existing payment",
			zap.String("payment_id", existing.ID.String()),
			zap.String("order_id", req.OrderID.String()),
		)
		return existing, nil
	}

	now := time.Now()
	payment := &model.Payment{
		ID:        uuid.New(),
		OrderID:   req.OrderID,
		UserID:    req.UserID,
		Method:    req.Method,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    model.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Stored instrument lookup is best effort; absence is not an error.
	if !req.Method.IsCash() {
		if instrument, err := d.instrumentDB.FindActiveByUserAndType(ctx, req.UserID, req.Method); err == nil && instrument != nil {
			payment.UserPaymentMethodID = &instrument.ID
		}
	}

	// Cash stays pending until confirmed out of band; no gateway call.
	if req.Method.IsCash() {
		if err := d.uow.Do(ctx, func(ctx context.Context) error {
			return d.paymentDB.Create(ctx, payment)
		}); err != nil {
			return nil, err
		}
		return payment, nil
	}

	cfg, err := d.resolver.Resolve(ctx, req.Method)
	if err != nil {
		return nil, err
	}

	var gatewayFailed bool
	err = d.uow.Do(ctx, func(ctx context.Context) error {
		if err := d.paymentDB.Create(ctx, payment); err != nil {
			return err
		}

		result := d.createSession(ctx, cfg, payment)
		txn := d.sessionTransaction(payment, cfg, result)
		if err := d.appendLedger(ctx, txn, d.gatewayResponse(payment, txn, result)); err != nil {
			return err
		}

		if result.Failed() {
			gatewayFailed = true
			payment.RetryCount++
		}
		payment.CheckoutURL = result.CheckoutURL
		payment.UpdatedAt = time.Now()
		return d.paymentDB.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	if gatewayFailed {
		// The attempt and its audit rows are committed; the caller
		// retries to obtain a checkout session.
		return nil, apperrors.GatewayUnavailable("checkout session could not be created", errors.New("gateway returned failure"))
	}

	return payment, nil
}

func (d *paymentDomain) GetStatus(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	p, err := d.paymentDB.FindByID(ctx, paymentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (d *paymentDomain) RetryPayment(ctx context.Context, paymentID uuid.UUID, methodOverride *model.PaymentMethod) (*model.Payment, error) {
	payment, err := d.paymentDB.FindByID(ctx, paymentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if payment.Status != model.PaymentStatusPending && !payment.Status.CanTransitionTo(model.PaymentStatusPending) {
		return nil, apperrors.InvalidTransition("payment", string(payment.Status), string(model.PaymentStatusPending))
	}

	if methodOverride != nil && *methodOverride != payment.Method {
		if !methodOverride.Valid() {
			return nil, apperrors.Validation("unknown payment method override")
		}
		payment.Method = *methodOverride
		payment.UserPaymentMethodID = nil
		if !payment.Method.IsCash() {
			// Resolve a matching existing instrument, never create one.
			if instrument, err := d.instrumentDB.FindActiveByUserAndType(ctx, payment.UserID, payment.Method); err == nil && instrument != nil {
				payment.UserPaymentMethodID = &instrument.ID
			}
		}
	}

	if payment.Method.IsCash() {
		err = d.uow.Do(ctx, func(ctx context.Context) error {
			payment.Status = model.PaymentStatusPending
			payment.CheckoutURL = ""
			payment.RetryCount++
			payment.UpdatedAt = time.Now()
			return d.paymentDB.Update(ctx, payment)
		})
		if err != nil {
			return nil, err
		}
		return payment, nil
	}

	cfg, err := d.resolver.Resolve(ctx, payment.Method)
	if err != nil {
		return nil, err
	}

	// Any step failing rolls back the whole attempt; no partial ledger
	// write survives a failed retry.
	err = d.uow.Do(ctx, func(ctx context.Context) error {
		result := d.createSession(ctx, cfg, payment)
		if result.Failed() {
			return apperrors.GatewayUnavailable("checkout session could not be created", errors.New(result.ErrorMessage))
		}

		txn := d.sessionTransaction(payment, cfg, result)
		if err := d.appendLedger(ctx, txn, d.gatewayResponse(payment, txn, result)); err != nil {
			return err
		}

		payment.Status = model.PaymentStatusPending
		payment.CheckoutURL = result.CheckoutURL
		payment.RetryCount++
		payment.UpdatedAt = time.Now()
		return d.paymentDB.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (d *paymentDomain) CancelPayment(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	payment, err := d.paymentDB.FindByID(ctx, paymentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !payment.Status.CanTransitionTo(model.PaymentStatusCanceled) {
		return false, apperrors.InvalidTransition("payment", string(payment.Status), string(model.PaymentStatusCanceled))
	}

	err = d.uow.Do(ctx, func(ctx context.Context) error {
		payment.Status = model.PaymentStatusCanceled
		payment.UpdatedAt = time.Now()
		return d.paymentDB.Update(ctx, payment)
	})
	if err != nil {
		return false, err
	}
	d.metrics.TransitionsTotal.WithLabelValues("payment", string(model.PaymentStatusPending), string(model.PaymentStatusCanceled)).Inc()
	return true, nil
}

func (d *paymentDomain) GetPendingPayments(ctx context.Context) ([]*model.Payment, error) {
	return d.paymentDB.FindPending(ctx)
}

func (d *paymentDomain) ProcessPendingPayments(ctx context.Context) (int, error) {
	pending, err := d.paymentDB.FindPending(ctx)
	if err != nil {
		return 0, err
	}

	advanced := 0
	for _, payment := range pending {
		if payment.Method.IsCash() || !payment.CanRetry() {
			d.metrics.SweepItemsTotal.WithLabelValues("payment", "skipped").Inc()
			continue
		}

		moved, err := d.reconcilePayment(ctx, payment)
		if err != nil {
			// One item's failure never stops the sweep.
			d.logger.Warn("payment reconciliation failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			d.metrics.SweepItemsTotal.WithLabelValues("payment", "error").Inc()
			continue
		}
		if moved {
			advanced++
			d.metrics.SweepItemsTotal.WithLabelValues("payment", "advanced").Inc()
		} else {
			d.metrics.SweepItemsTotal.WithLabelValues("payment", "unchanged").Inc()
		}
	}
	return advanced, nil
}

// reconcilePayment queries the gateway for one pending payment and
// applies the resulting transition when legal. The item is its own
// atomic unit.
func (d *paymentDomain) reconcilePayment(ctx context.Context, payment *model.Payment) (bool, error) {
	cfg, err := d.resolver.Resolve(ctx, payment.Method)
	if err != nil {
		return false, err
	}

	last, err := d.ledger.LatestByPayment(ctx, payment.ID)
	if err != nil {
		return false, nil
	}
	if last.GatewayRef == "" {
		// Nothing to query against; leave the payment for the next sweep.
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
			PaymentID:      &payment.ID,
			Status:         result.LedgerStatus(),
			ProviderConfID: &cfg.ID,
			Amount:         payment.Amount,
			GatewayRef:     result.ReferenceID,
			ErrorMessage:   result.ErrorMessage,
			PerformedBy:    "reconciler",
			RetryCount:     payment.RetryCount,
			CreatedAt:      time.Now(),
		}
		// The audit pair is written even when the gateway call failed.
		if err := d.appendLedger(ctx, txn, d.gatewayResponse(payment, txn, result)); err != nil {
			return err
		}

		target := txn.Status.PaymentStatusFor()
		switch {
		case target != "" && payment.Status.CanTransitionTo(target):
			from := payment.Status
			payment.Status = target
			moved = true
			d.metrics.TransitionsTotal.WithLabelValues("payment", string(from), string(target)).Inc()
		case target != "" && target != payment.Status:
			d.metrics.TransitionsDroppedTotal.WithLabelValues("payment", string(payment.Status), string(target)).Inc()
			d.logger.Info("dropping illegal reconciliation transition",
				zap.String("payment_id", payment.ID.String()),
				zap.String("from", string(payment.Status)),
				zap.String("to", string(target)),
			)
		default:
			payment.RetryCount++
		}
		payment.UpdatedAt = time.Now()
		return d.paymentDB.Update(ctx, payment)
	})
	if err != nil {
		return false, err
	}

	if moved {
		d.publishOutcome(ctx, payment, "")
	}
	return moved, nil
}

func (d *paymentDomain) HandleWebhook(ctx context.Context, event *model.WebhookEvent) bool {
	if event == nil || !event.Complete() {
		d.metrics.WebhookEventsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	payment, err := d.paymentDB.FindByID(ctx, *event.PaymentID)
	if err != nil {
		d.logger.Warn("webhook for unknown payment",
			zap.String("payment_id", event.PaymentID.String()),
		)
		d.metrics.WebhookEventsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	// Cash payments never produce webhooks; reject without a ledger row.
	if payment.Method.IsCash() {
		d.metrics.WebhookEventsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	cfg, err := d.resolver.Resolve(ctx, payment.Method)
	if err != nil {
		d.logger.Error("webhook configuration resolution failed", zap.Error(err))
		d.metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		return false
	}

	var applied bool
	err = d.uow.Do(ctx, func(ctx context.Context) error {
		ledgerStatus := statusFromEvent(event)

		txn := &model.Transaction{
			ID:             uuid.New(),
			PaymentID:      &payment.ID,
			Status:         ledgerStatus,
			ProviderConfID: &cfg.ID,
			Amount:         payment.Amount,
			GatewayRef:     event.TransactionID,
			ErrorMessage:   event.ErrorMessage,
			PerformedBy:    "webhook",
			RetryCount:     payment.RetryCount,
			CreatedAt:      time.Now(),
		}
		receivedAt := event.EventTimeUTC
		if receivedAt.IsZero() {
			receivedAt = time.Now()
		}
		resp := &model.GatewayResponse{
			ID:            uuid.New(),
			PaymentID:     &payment.ID,
			TransactionID: &txn.ID,
			RawBody:       event.RawBody,
			StatusCode:    event.StatusCode,
			Message:       event.Message,
			ErrorMessage:  event.ErrorMessage,
			ReceivedAt:    receivedAt,
		}
		if err := d.appendLedger(ctx, txn, resp); err != nil {
			return err
		}

		target := ledgerStatus.PaymentStatusFor()
		if target == "" {
			return nil
		}
		if !payment.Status.CanTransitionTo(target) {
			// Duplicate or out-of-order delivery: keep the audit row,
			// drop the transition.
			d.metrics.TransitionsDroppedTotal.WithLabelValues("payment", string(payment.Status), string(target)).Inc()
			d.logger.Info("dropping illegal webhook transition",
				zap.String("payment_id", payment.ID.String()),
				zap.String("from", string(payment.Status)),
				zap.String("to", string(target)),
			)
			return nil
		}

		from := payment.Status
		payment.Status = target
		payment.UpdatedAt = time.Now()
		applied = true
		d.metrics.TransitionsTotal.WithLabelValues("payment", string(from), string(target)).Inc()
		return d.paymentDB.Update(ctx, payment)
	})
	if err != nil {
		d.logger.Error("webhook processing failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		d.metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		return false
	}

	if applied {
		d.publishOutcome(ctx, payment, event.ErrorMessage)
	}
	d.metrics.WebhookEventsTotal.WithLabelValues("processed").Inc()
	return true
}

// --- helpers ---

// createSession calls create-checkout-session and normalizes transport
// failures into a failed result so the audit pair can always be written.
func (d *paymentDomain) createSession(ctx context.Context, cfg *model.ProviderConfiguration, payment *model.Payment) *model.GatewayResult {
	started := time.Now()
	result, err := d.gateway.CreateCheckoutSession(ctx, cfg, &model.CheckoutRequest{
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
	})
	result = normalized(result, err)
	d.observeGateway("create_checkout_session", cfg.Provider, result, time.Since(started))
	return result
}

func (d *paymentDomain) sessionTransaction(payment *model.Payment, cfg *model.ProviderConfiguration, result *model.GatewayResult) *model.Transaction {
	return &model.Transaction{
		ID:             uuid.New(),
		PaymentID:      &payment.ID,
		Status:         result.LedgerStatus(),
		ProviderConfID: &cfg.ID,
		Amount:         payment.Amount,
		GatewayRef:     result.ReferenceID,
		ErrorMessage:   result.ErrorMessage,
		PerformedBy:    "system",
		RetryCount:     payment.RetryCount,
		CreatedAt:      time.Now(),
	}
}

func (d *paymentDomain) gatewayResponse(payment *model.Payment, txn *model.Transaction, result *model.GatewayResult) *model.GatewayResponse {
	receivedAt := result.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return &model.GatewayResponse{
		ID:            uuid.New(),
		PaymentID:     &payment.ID,
		TransactionID: &txn.ID,
		RawBody:       result.RawBody,
		StatusCode:    result.StatusCode,
		Message:       result.Message,
		ErrorMessage:  result.ErrorMessage,
		ReceivedAt:    receivedAt,
	}
}

func (d *paymentDomain) appendLedger(ctx context.Context, txn *model.Transaction, resp *model.GatewayResponse) error {
	if err := d.ledger.AppendTransaction(ctx, txn); err != nil {
		return err
	}
	return d.ledger.AppendGatewayResponse(ctx, resp)
}

func (d *paymentDomain) observeGateway(operation, providerName string, result *model.GatewayResult, elapsed time.Duration) {
	d.metrics.GatewayCallsTotal.WithLabelValues(operation, providerName, string(result.Status)).Inc()
	d.metrics.GatewayCallDuration.WithLabelValues(operation, providerName).Observe(elapsed.Seconds())
}

func (d *paymentDomain) publishOutcome(ctx context.Context, payment *model.Payment, errorMessage string) {
	if d.publisher == nil {
		return
	}
	switch payment.Status {
	case model.PaymentStatusCompleted:
		_ = d.publisher.Publish(ctx, events.PaymentCompletedEvent{
			PaymentID:  payment.ID,
			OrderID:    payment.OrderID,
			UserID:     payment.UserID,
			Amount:     payment.Amount,
			Currency:   payment.Currency,
			OccurredAt: time.Now(),
		})
	case model.PaymentStatusFailed:
		_ = d.publisher.Publish(ctx, events.PaymentFailedEvent{
			PaymentID:    payment.ID,
			OrderID:      payment.OrderID,
			UserID:       payment.UserID,
			ErrorMessage: errorMessage,
			OccurredAt:   time.Now(),
		})
	}
}

// normalized folds a transport error into a failed result. A timeout or
// open circuit is a retryable failure, never success.
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

// statusFromEvent maps an inbound webhook event to a ledger status
// using the fixed status-code mapping, falling back to the status name.
func statusFromEvent(event *model.WebhookEvent) model.TransactionStatus {
	if event.StatusCode != "" {
		return model.TransactionStatusFromCode(event.StatusCode)
	}
	switch event.Status {
	case "Success", "success":
		return model.TransactionStatusSuccess
	case "Failed", "failed":
		return model.TransactionStatusFailed
	case "Cancelled", "Canceled", "cancelled", "canceled":
		return model.TransactionStatusCanceled
	default:
		return model.TransactionStatusPending
	}
}
