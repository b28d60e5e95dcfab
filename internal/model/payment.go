package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCanceled  PaymentStatus = "canceled"
)

// paymentTransitions is the immutable transition table for payments.
// Failed->Pending exists only for the explicit retry call; webhook and
// reconciliation paths never move a payment back to pending.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCanceled},
	PaymentStatusFailed:  {PaymentStatusPending},
}

// IsTerminal returns true if the status is a terminal state.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusCanceled
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// PaymentMethod represents a payment method type.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
)

// IsCash returns true for the cash-style method, which never touches
// the gateway and is confirmed out of band.
func (m PaymentMethod) IsCash() bool {
	return m == PaymentMethodCash
}

// Valid returns true for a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodWallet, PaymentMethodBankTransfer, PaymentMethodCash:
		return true
	default:
		return false
	}
}

// MaxAttempts is the retry ceiling for payments and refunds. Items at
// the cap stay pending until someone intervenes.
const MaxAttempts = 5

// Payment represents one attempt to collect funds for an order.
type Payment struct {
	ID                  uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID             uuid.UUID     `json:"order_id" gorm:"type:uuid;not null;index:idx_payments_order_user"`
	UserID              uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index:idx_payments_order_user"`
	Method              PaymentMethod `json:"method" gorm:"not null"`
	UserPaymentMethodID *uuid.UUID    `json:"user_payment_method_id,omitempty" gorm:"type:uuid"`
	Amount              int64         `json:"amount" gorm:"not null"`
	Currency            string        `json:"currency" gorm:"not null"`
	Status              PaymentStatus `json:"status" gorm:"not null;default:pending;index"`
	RetryCount          int           `json:"retry_count" gorm:"default:0"`
	CheckoutURL         string        `json:"checkout_url,omitempty"`
	Version             int64         `json:"-" gorm:"not null;default:1"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Payment) TableName() string {
	return "payments"
}

// CanRetry returns true while the payment is under the retry ceiling.
func (p *Payment) CanRetry() bool {
	return p.RetryCount < MaxAttempts
}

// InitiatePaymentRequest represents a request to initiate a payment.
type InitiatePaymentRequest struct {
	OrderID  uuid.UUID     `json:"order_id" binding:"required"`
	UserID   uuid.UUID     `json:"user_id" binding:"required"`
	Amount   int64         `json:"amount" binding:"required"`
	Currency string        `json:"currency" binding:"required"`
	Method   PaymentMethod `json:"method" binding:"required"`
}
