package outbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/model"
)

// PaymentDatabasePort defines payment persistence operations.
type PaymentDatabasePort interface {
	// Create creates a new payment.
	Create(ctx context.Context, payment *model.Payment) error

	// FindByID finds a payment by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)

	// FindByIDForUpdate finds a payment by ID and holds a row lock on it
	// for the remainder of the surrounding unit of work. Only meaningful
	// inside UnitOfWorkPort.Do.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error)

	// FindByOrderAndUser finds the most recent payment for an order/user pair.
	FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*model.Payment, error)

	// FindPending finds all pending payments.
	FindPending(ctx context.Context) ([]*model.Payment, error)

	// Update updates a payment, guarded by its concurrency token.
	Update(ctx context.Context, payment *model.Payment) error
}

// UserPaymentMethodDatabasePort defines stored-instrument read operations.
// The instrument registry is owned by an external collaborator.
type UserPaymentMethodDatabasePort interface {
	// FindActiveByUserAndType finds an active stored instrument of the
	// given type for a user.
	FindActiveByUserAndType(ctx context.Context, userID uuid.UUID, methodType model.PaymentMethod) (*model.UserPaymentMethod, error)
}
