package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus represents the booking status of a ticket
type TicketStatus string

const (
	TicketStatusBooked    TicketStatus = "booked"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusCheckedIn TicketStatus = "checked_in"
)

// PaymentStatus represents the payment lifecycle state of a ticket.
// Transitions: pending -> paid -> refunded|disputed; pending -> failed.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusDisputed PaymentStatus = "disputed"
)

// PaymentMethod identifies which channel settled a ticket
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// Ticket represents a passenger's booked seat(s) on a flight
type Ticket struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	TicketCode     string        `json:"ticket_code" db:"ticket_code"`
	FlightID       uuid.UUID     `json:"flight_id" db:"flight_id"`
	UserID         uuid.UUID     `json:"user_id" db:"user_id"`
	PassengerName  string        `json:"passenger_name" db:"passenger_name"`
	PassengerPhone string        `json:"passenger_phone" db:"passenger_phone"`
	PassengerEmail *string       `json:"passenger_email,omitempty" db:"passenger_email"`
	PassengerCount int           `json:"passenger_count" db:"passenger_count"`
	TotalAmount    float64       `json:"total_amount" db:"total_amount"`
	DiscountAmount float64       `json:"discount_amount" db:"discount_amount"`
	FinalAmount    float64       `json:"final_amount" db:"final_amount"`
	CouponID       *uuid.UUID    `json:"coupon_id,omitempty" db:"coupon_id"`
	Status         TicketStatus  `json:"status" db:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentMethod  *PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`
	GatewayIntentID *string      `json:"gateway_intent_id,omitempty" db:"gateway_intent_id"`
	WalletTxnID    *uuid.UUID    `json:"wallet_txn_id,omitempty" db:"wallet_txn_id"`
	PaymentDeadline time.Time    `json:"payment_deadline" db:"payment_deadline"`
	PaidAt         *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	RefundedAt     *time.Time    `json:"refunded_at,omitempty" db:"refunded_at"`
	CheckedInAt    *time.Time    `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`

	// Seats is populated from the seat map on reads; it is not a column.
	Seats []TicketSeat `json:"seats,omitempty" db:"-"`
}

// TicketSeat summarizes one seat held by a ticket
type TicketSeat struct {
	SeatNumber string     `json:"seat_number" db:"seat_number"`
	Class      CabinClass `json:"class" db:"class"`
	Price      float64    `json:"price" db:"-"`
}

// CanMarkPaid reports whether the ticket may transition to paid
func (t *Ticket) CanMarkPaid() bool {
	return t.PaymentStatus == PaymentStatusPending && t.Status == TicketStatusBooked
}

// CanCancel reports whether the ticket may be cancelled by the passenger.
// Paid tickets go through the refund path instead.
func (t *Ticket) CanCancel() bool {
	return t.Status == TicketStatusBooked &&
		(t.PaymentStatus == PaymentStatusPending || t.PaymentStatus == PaymentStatusFailed)
}

// CanRefund reports whether the ticket may be refunded.
// Checked-in tickets are non-refundable.
func (t *Ticket) CanRefund() bool {
	return t.PaymentStatus == PaymentStatusPaid && t.Status == TicketStatusBooked
}

// CanCheckIn reports whether the passenger may check in
func (t *Ticket) CanCheckIn() bool {
	return t.PaymentStatus == PaymentStatusPaid && t.Status == TicketStatusBooked
}

// IsDeadlineExpired reports whether the payment deadline has elapsed
func (t *Ticket) IsDeadlineExpired() bool {
	return time.Now().After(t.PaymentDeadline)
}

// SeatSelection is one requested seat in a booking
type SeatSelection struct {
	SeatNumber string `json:"seat_number" binding:"required"`
}

// BookTicketRequest is the request to create a ticket
type BookTicketRequest struct {
	FlightCode     string          `json:"flight_code" binding:"required"`
	PassengerName  string          `json:"passenger_name" binding:"required"`
	PassengerPhone string          `json:"passenger_phone" binding:"required"`
	PassengerEmail *string         `json:"passenger_email"`
	PassengerCount int             `json:"passenger_count" binding:"required"`
	Seats          []SeatSelection `json:"seats" binding:"required"`
	CouponCode     *string         `json:"coupon_code"`
}

// Validate checks the request before any mutation
func (r *BookTicketRequest) Validate() error {
	if r.PassengerCount <= 0 {
		return NewValidationError("passenger_count", "must be positive")
	}
	if len(r.Seats) != r.PassengerCount {
		return NewValidationError("seats", "seat selection must match passenger_count")
	}
	seen := make(map[string]bool, len(r.Seats))
	for _, s := range r.Seats {
		if s.SeatNumber == "" {
			return NewValidationError("seats", "seat_number is required")
		}
		if seen[s.SeatNumber] {
			return NewValidationError("seats", "duplicate seat "+s.SeatNumber)
		}
		seen[s.SeatNumber] = true
	}
	return nil
}

// CancelTicketRequest carries the optional cancellation reason
type CancelTicketRequest struct {
	Reason string `json:"reason"`
}
