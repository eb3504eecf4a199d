package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletTxnType represents the type of a wallet ledger entry
type WalletTxnType string

const (
	WalletTxnTopup      WalletTxnType = "topup"
	WalletTxnPayment    WalletTxnType = "payment"
	WalletTxnRefund     WalletTxnType = "refund"
	WalletTxnWithdrawal WalletTxnType = "withdrawal"
)

// IsCredit reports whether the transaction type adds to the balance
func (t WalletTxnType) IsCredit() bool {
	return t == WalletTxnTopup || t == WalletTxnRefund
}

// WalletTxnStatus represents the settlement status of a ledger entry
type WalletTxnStatus string

const (
	WalletTxnPending   WalletTxnStatus = "pending"
	WalletTxnCompleted WalletTxnStatus = "completed"
	WalletTxnFailed    WalletTxnStatus = "failed"
	WalletTxnCancelled WalletTxnStatus = "cancelled"
)

// WalletTransaction is one append-only entry in a user's balance ledger.
// For completed entries, BalanceAfter is the ledger-derived balance
// immediately after this entry; the user's denormalized wallet_balance
// always equals the latest completed entry's BalanceAfter.
type WalletTransaction struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserID           uuid.UUID       `json:"user_id" db:"user_id"`
	Type             WalletTxnType   `json:"type" db:"type"`
	Amount           float64         `json:"amount" db:"amount"`
	BalanceAfter     float64         `json:"balance_after" db:"balance_after"`
	Description      string          `json:"description" db:"description"`
	Status           WalletTxnStatus `json:"status" db:"status"`
	TicketID         *uuid.UUID      `json:"ticket_id,omitempty" db:"ticket_id"`
	GatewayReference *string         `json:"gateway_reference,omitempty" db:"gateway_reference"`
	BankAccount      *string         `json:"bank_account,omitempty" db:"bank_account"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// WalletBalance is the balance response for a user
type WalletBalance struct {
	UserID        uuid.UUID `json:"user_id"`
	Balance       float64   `json:"balance"`
	DailyLimit    float64   `json:"daily_limit"`
	MonthlyLimit  float64   `json:"monthly_limit"`
	TotalSpent    float64    `json:"total_spent"`
	TotalToppedUp float64    `json:"total_topped_up"`
	Tier          WalletTier `json:"tier"`
	HasPin        bool       `json:"has_pin"`
}

// TopupRequest is the request to fund the wallet via the card gateway
type TopupRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Method string  `json:"method" binding:"required"`
}

// ConfirmTopupRequest settles a pending gateway-mediated top-up
type ConfirmTopupRequest struct {
	GatewayReference string `json:"gateway_reference" binding:"required"`
}

// PayWithWalletRequest is the request to pay a ticket from wallet balance
type PayWithWalletRequest struct {
	TicketID uuid.UUID `json:"ticket_id" binding:"required"`
	Pin      string    `json:"pin" binding:"required"`
}

// WithdrawRequest is the request to withdraw wallet funds to a bank account
type WithdrawRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	BankAccount string  `json:"bank_account" binding:"required"`
	Pin         string  `json:"pin" binding:"required"`
}

// SetPinRequest sets or changes the wallet PIN.
// CurrentPin is required only when a PIN is already set.
type SetPinRequest struct {
	NewPin     string  `json:"new_pin" binding:"required"`
	CurrentPin *string `json:"current_pin"`
}
