package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DiscountType represents how a coupon's discount is calculated
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var couponCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

// ValidCouponCode reports whether the code is uppercase alphanumeric
func ValidCouponCode(code string) bool {
	return couponCodePattern.MatchString(code)
}

// Coupon represents a discount code with usage and applicability constraints
type Coupon struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Code          string         `json:"code" db:"code"`
	DiscountType  DiscountType   `json:"discount_type" db:"discount_type"`
	DiscountValue float64        `json:"discount_value" db:"discount_value"`
	MaxDiscount   *float64       `json:"max_discount,omitempty" db:"max_discount"`
	MinOrderValue float64        `json:"min_order_value" db:"min_order_value"`
	UsageLimit    int            `json:"usage_limit" db:"usage_limit"`
	UsedCount     int            `json:"used_count" db:"used_count"`
	ExpiresAt     time.Time      `json:"expires_at" db:"expires_at"`
	IsActive      bool           `json:"is_active" db:"is_active"`
	FlightIDs     pq.StringArray `json:"flight_ids,omitempty" db:"flight_ids"`
	UserIDs       pq.StringArray `json:"user_ids,omitempty" db:"user_ids"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the coupon has passed its expiry date
func (c *Coupon) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// UsageExhausted reports whether the usage limit has been reached
func (c *Coupon) UsageExhausted() bool {
	return c.UsedCount >= c.UsageLimit
}

// AppliesToFlight reports whether the coupon is valid for the given flight.
// An empty restriction list means any flight.
func (c *Coupon) AppliesToFlight(flightID uuid.UUID) bool {
	if len(c.FlightIDs) == 0 {
		return true
	}
	id := flightID.String()
	for _, allowed := range c.FlightIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

// AppliesToUser reports whether the coupon is valid for the given user.
// An empty restriction list means any user.
func (c *Coupon) AppliesToUser(userID uuid.UUID) bool {
	if len(c.UserIDs) == 0 {
		return true
	}
	id := userID.String()
	for _, allowed := range c.UserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

// CouponQuote is the result of validating a coupon against an order
type CouponQuote struct {
	CouponID       uuid.UUID `json:"coupon_id"`
	Code           string    `json:"code"`
	DiscountAmount float64   `json:"discount_amount"`
	FinalAmount    float64   `json:"final_amount"`
}

// CreateCouponRequest is the admin request to create a coupon
type CreateCouponRequest struct {
	Code          string       `json:"code" binding:"required"`
	DiscountType  DiscountType `json:"discount_type" binding:"required"`
	DiscountValue float64      `json:"discount_value" binding:"required"`
	MaxDiscount   *float64     `json:"max_discount"`
	MinOrderValue float64      `json:"min_order_value"`
	UsageLimit    int          `json:"usage_limit" binding:"required"`
	ExpiresAt     time.Time    `json:"expires_at" binding:"required"`
	FlightIDs     []string     `json:"flight_ids"`
	UserIDs       []string     `json:"user_ids"`
}

// Validate checks the request before any mutation
func (r *CreateCouponRequest) Validate() error {
	if !ValidCouponCode(r.Code) {
		return NewValidationError("code", "must be 3-20 uppercase alphanumeric characters")
	}
	switch r.DiscountType {
	case DiscountTypePercentage:
		if r.DiscountValue <= 0 || r.DiscountValue > 100 {
			return NewValidationError("discount_value", "percentage must be between 0 and 100")
		}
		if r.MaxDiscount == nil || *r.MaxDiscount <= 0 {
			return NewValidationError("max_discount", "required for percentage coupons")
		}
	case DiscountTypeFixed:
		if r.DiscountValue <= 0 {
			return NewValidationError("discount_value", "must be positive")
		}
	default:
		return NewValidationError("discount_type", "must be percentage or fixed")
	}
	if r.UsageLimit <= 0 {
		return NewValidationError("usage_limit", "must be positive")
	}
	if r.MinOrderValue < 0 {
		return NewValidationError("min_order_value", "must not be negative")
	}
	if !r.ExpiresAt.After(time.Now()) {
		return NewValidationError("expires_at", "must be in the future")
	}
	return nil
}

// UpdateCouponRequest is the admin request to edit a coupon
type UpdateCouponRequest struct {
	DiscountValue *float64   `json:"discount_value"`
	MaxDiscount   *float64   `json:"max_discount"`
	MinOrderValue *float64   `json:"min_order_value"`
	UsageLimit    *int       `json:"usage_limit"`
	ExpiresAt     *time.Time `json:"expires_at"`
	IsActive      *bool      `json:"is_active"`
}

// ValidateCouponRequest is the request to price a coupon against an order
type ValidateCouponRequest struct {
	Code       string     `json:"code" binding:"required"`
	OrderValue float64    `json:"order_value" binding:"required"`
	FlightID   *uuid.UUID `json:"flight_id"`
}
