package model

import (
	"time"

	"github.com/google/uuid"
)

// ProviderConfiguration is one gateway credential set for a deployment
// environment. Read-only from this service's perspective.
type ProviderConfiguration struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Provider    string    `json:"provider" gorm:"not null;uniqueIndex:idx_provider_env"`
	Environment string    `json:"environment" gorm:"not null;uniqueIndex:idx_provider_env"`
	APIKey      string    `json:"-"`
	APISecret   string    `json:"-"`
	EndpointURL string    `json:"endpoint_url"`
	WebhookURL  string    `json:"webhook_url"`
	Active      bool      `json:"active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ProviderConfiguration) TableName() string {
	return "provider_configurations"
}

// UserPaymentMethod is a stored payment instrument, owned by an
// external collaborator. Read dependency only.
type UserPaymentMethod struct {
	ID            uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	Type          PaymentMethod `json:"type" gorm:"not null"`
	MaskedDetails string        `json:"masked_details"`
	ExpiryMonth   int           `json:"expiry_month,omitempty"`
	ExpiryYear    int           `json:"expiry_year,omitempty"`
	Active        bool          `json:"active" gorm:"default:true"`
	CreatedAt     time.Time     `json:"created_at"`
}

// TableName returns the table name for GORM.
func (UserPaymentMethod) TableName() string {
	return "user_payment_methods"
}

// GatewayStatus is the normalized status a gateway call resolves to.
type GatewayStatus string

const (
	GatewayStatusSuccess   GatewayStatus = "Success"
	GatewayStatusPending   GatewayStatus = "Pending"
	GatewayStatusFailed    GatewayStatus = "Failed"
	GatewayStatusCancelled GatewayStatus = "Cancelled"
)

// GatewayResult is the normalized shape every adapter operation returns.
type GatewayResult struct {
	Status       GatewayStatus `json:"status"`
	StatusCode   string        `json:"status_code"`
	Message      string        `json:"message,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Amount       int64         `json:"amount"`
	Currency     string        `json:"currency"`
	Timestamp    time.Time     `json:"timestamp"`
	ReferenceID  string        `json:"reference_id"`

	// CheckoutURL is set only by create-checkout-session.
	CheckoutURL string `json:"checkout_url,omitempty"`

	// RawBody is the opaque payload captured for the audit trail.
	RawBody string `json:"raw_body,omitempty"`
}

// Failed reports whether the call did not reach a usable outcome.
func (r *GatewayResult) Failed() bool {
	return r.Status == GatewayStatusFailed
}

// LedgerStatus maps the normalized gateway status to a ledger status.
func (r *GatewayResult) LedgerStatus() TransactionStatus {
	switch r.Status {
	case GatewayStatusSuccess:
		return TransactionStatusSuccess
	case GatewayStatusFailed:
		return TransactionStatusFailed
	case GatewayStatusCancelled:
		return TransactionStatusCanceled
	default:
		return TransactionStatusPending
	}
}

// CheckoutRequest is the input to create-checkout-session.
type CheckoutRequest struct {
	PaymentID uuid.UUID
	OrderID   uuid.UUID
	Amount    int64
	Currency  string
}

// GatewayRefundRequest is the input to process-refund.
type GatewayRefundRequest struct {
	RefundID          uuid.UUID
	OriginalReference string
	Amount            int64
	Currency          string
	Reason            string
}
