package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletTier represents the stored-value account level of a user.
// Tiers are upgraded automatically from cumulative top-up totals.
type WalletTier string

const (
	WalletTierBasic    WalletTier = "basic"
	WalletTierSilver   WalletTier = "silver"
	WalletTierGold     WalletTier = "gold"
	WalletTierPlatinum WalletTier = "platinum"
)

// TierForTotalTopup returns the tier earned by a cumulative top-up total
func TierForTotalTopup(total float64) WalletTier {
	switch {
	case total >= 50_000_000:
		return WalletTierPlatinum
	case total >= 10_000_000:
		return WalletTierGold
	case total >= 2_000_000:
		return WalletTierSilver
	default:
		return WalletTierBasic
	}
}

// User carries the wallet-relevant account fields.
// WalletBalance is denormalized for fast reads; it is written atomically
// with every completed wallet transaction and must always equal the latest
// completed entry's balance_after.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	FullName      string     `json:"full_name" db:"full_name"`
	Status        string     `json:"status" db:"status"`
	WalletBalance float64    `json:"wallet_balance" db:"wallet_balance"`
	WalletPinHash *string    `json:"-" db:"wallet_pin_hash"`
	DailyLimit    float64    `json:"daily_limit" db:"daily_limit"`
	MonthlyLimit  float64    `json:"monthly_limit" db:"monthly_limit"`
	TotalSpent    float64    `json:"total_spent" db:"total_spent"`
	TotalToppedUp float64    `json:"total_topped_up" db:"total_topped_up"`
	WalletTier    WalletTier `json:"wallet_tier" db:"wallet_tier"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the account may transact
func (u *User) IsActive() bool {
	return u.Status == "active"
}

// HasPin reports whether a wallet PIN has been set
func (u *User) HasPin() bool {
	return u.WalletPinHash != nil && *u.WalletPinHash != ""
}
