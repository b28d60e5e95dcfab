package model

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is an inbound asynchronous status notification from the
// gateway. Events missing a payment id or a status are rejected outright.
type WebhookEvent struct {
	PaymentID     *uuid.UUID `json:"payment_id,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	RefundID      *uuid.UUID `json:"refund_id,omitempty"`
	Status        string     `json:"status"`
	StatusCode    string     `json:"status_code"`
	Message       string     `json:"message,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	RawBody       string     `json:"raw_body"`
	Amount        *int64     `json:"amount,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	EventTimeUTC  time.Time  `json:"event_time_utc"`
}

// Complete reports whether the event carries the minimum a handler needs.
func (e *WebhookEvent) Complete() bool {
	return e.PaymentID != nil && *e.PaymentID != uuid.Nil && e.Status != ""
}
