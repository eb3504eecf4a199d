package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventIntentCreated          PaymentEventType = "intent_created"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventClientConfirm          PaymentEventType = "client_confirm"
	PaymentEventSettled                PaymentEventType = "payment_settled"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventDisputed               PaymentEventType = "payment_disputed"
	PaymentEventRefundInitiated        PaymentEventType = "refund_initiated"
	PaymentEventRefundCompleted        PaymentEventType = "refund_completed"
	PaymentEventWalletDebit            PaymentEventType = "wallet_debit"
	PaymentEventWalletCredit           PaymentEventType = "wallet_credit"
	PaymentEventDeadlineExpired        PaymentEventType = "deadline_expired"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend PaymentEventSource = "backend"
	PaymentSourceWebhook PaymentEventSource = "gateway_webhook"
	PaymentSourceGateway PaymentEventSource = "gateway_api"
	PaymentSourceUser    PaymentEventSource = "user"
	PaymentSourceSweep   PaymentEventSource = "sweep"
)

// PaymentAudit represents an immutable audit log entry for payment events.
// Entries are append-only; reconciliation mismatches flagged here require
// manual follow-up rather than automatic rollback.
type PaymentAudit struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TicketID       *uuid.UUID `json:"ticket_id,omitempty" db:"ticket_id"`
	UserID         *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	GatewayIntentID *string   `json:"gateway_intent_id,omitempty" db:"gateway_intent_id"`
	GatewayEventID *string    `json:"gateway_event_id,omitempty" db:"gateway_event_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	Payload      JSONB   `json:"payload,omitempty" db:"payload"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	IsDuplicate  bool    `json:"is_duplicate" db:"is_duplicate"`

	IPAddress  *string `json:"ip_address,omitempty" db:"ip_address"`
	DeviceInfo JSONB   `json:"device_info,omitempty" db:"device_info"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// WithTicket attaches the ticket correlation
func (a *PaymentAudit) WithTicket(ticketID uuid.UUID) *PaymentAudit {
	a.TicketID = &ticketID
	return a
}

// WithAmounts records the expected/received amount pair and whether they match
func (a *PaymentAudit) WithAmounts(expected, received float64) *PaymentAudit {
	match := expected == received
	a.ExpectedAmount = &expected
	a.ReceivedAmount = &received
	a.AmountsMatch = &match
	return a
}

// WithError records a failure message on the entry
func (a *PaymentAudit) WithError(err error) *PaymentAudit {
	msg := err.Error()
	a.ErrorMessage = &msg
	return a
}
