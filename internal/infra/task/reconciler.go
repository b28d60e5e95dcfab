package task

import (
	"context"
	"sync"
	"time"

	"github.com/payflow/server/internal/domain/payment"
	"github.com/payflow/server/internal/domain/refund"
	"github.com/payflow/server/internal/shared/cache"
	"github.com/payflow/server/internal/shared/config"
	"go.uber.org/zap"
)

const (
	paymentSweepLock = "sweep:payments"
	refundSweepLock  = "sweep:refunds"
)

// Reconciler periodically drives pending payments and refunds toward a
// terminal status by polling the gateway. A Redis lock keeps each sweep
// on a single instance; when no lock is configured the sweeps run
// unguarded, which is fine for a single-node deployment.
type Reconciler struct {
	payments payment.PaymentDomain
	refunds  refund.RefundDomain
	lock     *cache.Lock
	interval time.Duration
	logger   *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewReconciler creates a new reconciler. lock may be nil.
func NewReconciler(
	payments payment.PaymentDomain,
	refunds refund.RefundDomain,
	lock *cache.Lock,
	cfg *config.ReconcileConfig,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		payments: payments,
		refunds:  refunds,
		lock:     lock,
		interval: cfg.Interval,
		logger:   logger.Named("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (r *Reconciler) Start() {
	r.logger.Info("starting reconciler", zap.Duration("interval", r.interval))
	r.wg.Add(1)
	go r.run()
}

// Stop stops the reconciler and waits for an in-flight sweep to finish.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info("reconciler stopped")
}

func (r *Reconciler) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			ctx := context.Background()
			r.sweep(ctx, paymentSweepLock, r.payments.ProcessPendingPayments)
			r.sweep(ctx, refundSweepLock, r.refunds.ProcessPendingRefunds)
		}
	}
}

// sweep runs one reconciliation pass under the named lock.
func (r *Reconciler) sweep(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, name)
		if err != nil {
			r.logger.Warn("sweep lock unavailable", zap.String("lock", name), zap.Error(err))
			return
		}
		if !acquired {
			return
		}
		defer func() {
			if err := r.lock.Release(ctx, name); err != nil {
				r.logger.Warn("sweep lock release failed", zap.String("lock", name), zap.Error(err))
			}
		}()
	}

	advanced, err := fn(ctx)
	if err != nil {
		r.logger.Error("sweep failed", zap.String("lock", name), zap.Error(err))
		return
	}
	if advanced > 0 {
		r.logger.Info("sweep advanced items", zap.String("lock", name), zap.Int("count", advanced))
	}
}
