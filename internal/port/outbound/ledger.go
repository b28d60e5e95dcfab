package outbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/model"
)

// LedgerPort appends immutable audit rows. One Transaction and one
// GatewayResponse per gateway interaction attempt, failures included.
type LedgerPort interface {
	// AppendTransaction appends a transaction row.
	AppendTransaction(ctx context.Context, txn *model.Transaction) error

	// AppendGatewayResponse appends a gateway response row.
	AppendGatewayResponse(ctx context.Context, resp *model.GatewayResponse) error

	// LatestByPayment returns the newest transaction for a payment.
	LatestByPayment(ctx context.Context, paymentID uuid.UUID) (*model.Transaction, error)

	// LatestByRefund returns the newest transaction for a refund.
	LatestByRefund(ctx context.Context, refundID uuid.UUID) (*model.Transaction, error)

	// FindTransaction finds a transaction by ID.
	FindTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
}
