package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants.
const (
	PaymentCompletedType = "PaymentCompleted"
	PaymentFailedType    = "PaymentFailed"
	RefundCompletedType  = "RefundCompleted"
	RefundFailedType     = "RefundFailed"
)

// Event is an outbound notification emitted after a unit of work commits.
type Event interface {
	EventType() string
}

// PaymentCompletedEvent is emitted when a payment reaches completed.
type PaymentCompletedEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventType implements Event.
func (PaymentCompletedEvent) EventType() string { return PaymentCompletedType }

// PaymentFailedEvent is emitted when a payment reaches failed.
type PaymentFailedEvent struct {
	PaymentID    uuid.UUID `json:"payment_id"`
	OrderID      uuid.UUID `json:"order_id"`
	UserID       uuid.UUID `json:"user_id"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventType implements Event.
func (PaymentFailedEvent) EventType() string { return PaymentFailedType }

// RefundCompletedEvent is emitted when a refund reaches completed.
type RefundCompletedEvent struct {
	RefundID   uuid.UUID `json:"refund_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventType implements Event.
func (RefundCompletedEvent) EventType() string { return RefundCompletedType }

// RefundFailedEvent is emitted when a refund reaches failed or rejected.
type RefundFailedEvent struct {
	RefundID     uuid.UUID `json:"refund_id"`
	PaymentID    uuid.UUID `json:"payment_id"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventType implements Event.
func (RefundFailedEvent) EventType() string { return RefundFailedType }
