package model

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus represents the status of a refund.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
	RefundStatusRejected  RefundStatus = "rejected"
)

// refundTransitions is the immutable transition table for refunds.
// Pending is the only non-terminal state; a failed refund needs a fresh
// InitiateRefund, there is no retry edge back to pending.
var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending: {RefundStatusCompleted, RefundStatusFailed, RefundStatusRejected},
}

// IsTerminal returns true if the status is a terminal state.
func (s RefundStatus) IsTerminal() bool {
	return s != RefundStatusPending
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s RefundStatus) CanTransitionTo(target RefundStatus) bool {
	for _, next := range refundTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CountsTowardRefunded reports whether a refund in this status consumes
// refundable balance on its payment.
func (s RefundStatus) CountsTowardRefunded() bool {
	return s == RefundStatusPending || s == RefundStatusCompleted
}

// RefundMethod represents how a refund is paid out.
type RefundMethod string

const (
	RefundMethodOriginal     RefundMethod = "original"
	RefundMethodWallet       RefundMethod = "wallet"
	RefundMethodBankTransfer RefundMethod = "bank_transfer"
	RefundMethodManual       RefundMethod = "manual"
)

// SettlableManually reports whether the method may be settled through
// the manual settlement path. The original gateway route cannot be
// forced through it.
func (m RefundMethod) SettlableManually() bool {
	switch m {
	case RefundMethodManual, RefundMethodBankTransfer, RefundMethodWallet:
		return true
	default:
		return false
	}
}

// Refund represents a request to return some or all of a payment's amount.
type Refund struct {
	ID                    uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	PaymentID             uuid.UUID    `json:"payment_id" gorm:"type:uuid;not null;index"`
	Method                RefundMethod `json:"method" gorm:"not null"`
	OriginalTransactionID *uuid.UUID   `json:"original_transaction_id,omitempty" gorm:"type:uuid"`
	RefundTransactionID   *uuid.UUID   `json:"refund_transaction_id,omitempty" gorm:"type:uuid"`
	Amount                int64        `json:"amount" gorm:"not null"`
	Reason                string       `json:"reason"`
	Status                RefundStatus `json:"status" gorm:"not null;default:pending;index"`
	RetryCount            int          `json:"retry_count" gorm:"default:0"`
	InitiatedBy           string       `json:"initiated_by"`
	ProcessedAt           *time.Time   `json:"processed_at,omitempty"`
	Version               int64        `json:"-" gorm:"not null;default:1"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Refund) TableName() string {
	return "refunds"
}

// CanRetry returns true while the refund is under the retry ceiling.
func (r *Refund) CanRetry() bool {
	return r.RetryCount < MaxAttempts
}

// InitiateRefundRequest is the upstream contract from the order
// management collaborator; the only coupling point with it.
type InitiateRefundRequest struct {
	PaymentID             uuid.UUID  `json:"payment_id" binding:"required"`
	OriginalTransactionID *uuid.UUID `json:"original_transaction_id,omitempty"`
	Amount                int64      `json:"amount" binding:"required"`
	Reason                string     `json:"reason"`
	InitiatedBy           string     `json:"initiated_by"`
}

// ManualSettlementRequest represents an out-of-band refund settlement.
type ManualSettlementRequest struct {
	RefundID            uuid.UUID     `json:"refund_id"`
	Amount              int64         `json:"amount" binding:"required"`
	PerformedBy         string        `json:"performed_by" binding:"required"`
	SettlementReference string        `json:"settlement_reference" binding:"required"`
	MethodOverride      *RefundMethod `json:"method_override,omitempty"`
	Notes               string        `json:"notes,omitempty"`
}

// RefundFilter represents refund search filters.
type RefundFilter struct {
	Status    *RefundStatus `json:"status" form:"status"`
	Method    *RefundMethod `json:"method" form:"method"`
	PaymentID *uuid.UUID    `json:"payment_id" form:"payment_id"`
	UserID    *uuid.UUID    `json:"user_id" form:"user_id"`
	From      *time.Time    `json:"from" form:"from"`
	To        *time.Time    `json:"to" form:"to"`
	PaginationRequest
}
