package outbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/model"
)

// RefundDatabasePort defines refund persistence operations.
type RefundDatabasePort interface {
	// Create creates a new refund.
	Create(ctx context.Context, refund *model.Refund) error

	// FindByID finds a refund by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Refund, error)

	// FindByFilter finds refunds matching the filter, paginated.
	FindByFilter(ctx context.Context, filter model.RefundFilter) ([]*model.Refund, int64, error)

	// FindPending finds all pending refunds.
	FindPending(ctx context.Context) ([]*model.Refund, error)

	// ActiveTotalByPayment sums refund amounts in pending or completed
	// status for a payment. Runs inside the caller's unit of work so a
	// concurrent initiation cannot slip past the over-refund guard.
	ActiveTotalByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)

	// Update updates a refund, guarded by its concurrency token.
	Update(ctx context.Context, refund *model.Refund) error
}
