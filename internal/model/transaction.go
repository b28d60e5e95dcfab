package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the ledger status of a gateway interaction.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusCanceled TransactionStatus = "canceled"
)

// TransactionStatusFromCode maps a gateway status code to a ledger
// status. Unrecognized codes map to pending as the conservative default.
func TransactionStatusFromCode(code string) TransactionStatus {
	switch code {
	case "200":
		return TransactionStatusSuccess
	case "102":
		return TransactionStatusPending
	case "500":
		return TransactionStatusFailed
	case "400":
		return TransactionStatusCanceled
	default:
		return TransactionStatusPending
	}
}

// PaymentStatusFor maps a ledger status onto the payment state machine.
// Pending maps to empty: there is nothing to advance.
func (s TransactionStatus) PaymentStatusFor() PaymentStatus {
	switch s {
	case TransactionStatusSuccess:
		return PaymentStatusCompleted
	case TransactionStatusFailed:
		return PaymentStatusFailed
	case TransactionStatusCanceled:
		return PaymentStatusCanceled
	default:
		return ""
	}
}

// RefundStatusFor maps a ledger status onto the refund state machine.
func (s TransactionStatus) RefundStatusFor() RefundStatus {
	switch s {
	case TransactionStatusSuccess:
		return RefundStatusCompleted
	case TransactionStatusFailed:
		return RefundStatusFailed
	case TransactionStatusCanceled:
		return RefundStatusRejected
	default:
		return ""
	}
}

// Transaction is one append-only ledger entry for a single gateway
// interaction attempt. Rows are never updated or deleted.
type Transaction struct {
	ID             uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	PaymentID      *uuid.UUID        `json:"payment_id,omitempty" gorm:"type:uuid;index"`
	RefundID       *uuid.UUID        `json:"refund_id,omitempty" gorm:"type:uuid;index"`
	Status         TransactionStatus `json:"status" gorm:"not null"`
	ProviderConfID *uuid.UUID        `json:"provider_config_id,omitempty" gorm:"type:uuid"`
	Amount         int64             `json:"amount"`
	GatewayRef     string            `json:"gateway_ref,omitempty" gorm:"index"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	PerformedBy    string            `json:"performed_by,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	RetryCount     int               `json:"retry_count" gorm:"default:0"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TableName returns the table name for GORM.
func (Transaction) TableName() string {
	return "transactions"
}

// GatewayResponse is the immutable raw audit capture of one gateway
// call or webhook event.
type GatewayResponse struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty" gorm:"type:uuid;index"`
	RefundID      *uuid.UUID `json:"refund_id,omitempty" gorm:"type:uuid;index"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty" gorm:"type:uuid;index"`
	RawBody       string     `json:"raw_body" gorm:"type:jsonb"`
	StatusCode    string     `json:"status_code"`
	Message       string     `json:"message,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
}

// TableName returns the table name for GORM.
func (GatewayResponse) TableName() string {
	return "gateway_responses"
}
