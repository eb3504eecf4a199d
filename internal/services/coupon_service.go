package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// CouponService handles coupon validation, redemption and admin management
type CouponService struct {
	couponRepo *database.CouponRepository
	logger     *logrus.Logger
}

// NewCouponService creates a new CouponService
func NewCouponService(couponRepo *database.CouponRepository, logger *logrus.Logger) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		logger:     logger,
	}
}

// Quote validates a coupon against an order and computes the discount.
// Checks run in a fixed order so the caller always sees the first failing
// condition: existence, active flag, expiry, usage limit, flight and user
// applicability, then minimum order value.
// Quoting does not consume a use; redemption happens at payment success.
func (s *CouponService) Quote(code string, orderValue float64, flightID, userID uuid.UUID) (*models.CouponQuote, error) {
	if !models.ValidCouponCode(code) {
		return nil, models.NewValidationError("code", "must be 3-20 uppercase alphanumeric characters")
	}
	if orderValue <= 0 {
		return nil, models.NewValidationError("order_value", "must be positive")
	}

	coupon, err := s.couponRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, models.NewNotFoundError("coupon")
	}
	if !coupon.IsActive {
		return nil, models.NewValidationError("code", "coupon is not active")
	}
	if coupon.IsExpired() {
		return nil, models.NewValidationError("code", "coupon has expired")
	}
	if coupon.UsageExhausted() {
		return nil, models.NewConflictError(models.ConflictUsageLimitReached,
			"coupon usage limit has been reached")
	}
	if !coupon.AppliesToFlight(flightID) {
		return nil, models.NewValidationError("code", "coupon is not valid for this flight")
	}
	if !coupon.AppliesToUser(userID) {
		return nil, models.NewValidationError("code", "coupon is not valid for this account")
	}
	if orderValue < coupon.MinOrderValue {
		return nil, models.NewValidationError("order_value",
			fmt.Sprintf("order must be at least %.2f to use this coupon", coupon.MinOrderValue))
	}

	discount := ComputeDiscount(coupon, orderValue)

	return &models.CouponQuote{
		CouponID:       coupon.ID,
		Code:           coupon.Code,
		DiscountAmount: discount,
		FinalAmount:    orderValue - discount,
	}, nil
}

// ComputeDiscount applies the coupon's discount rule to an order value.
// The discount never exceeds the order value, so the payable amount cannot
// go negative.
func ComputeDiscount(coupon *models.Coupon, orderValue float64) float64 {
	var discount float64
	switch coupon.DiscountType {
	case models.DiscountTypeFixed:
		discount = coupon.DiscountValue
	case models.DiscountTypePercentage:
		discount = orderValue * coupon.DiscountValue / 100
		if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
			discount = *coupon.MaxDiscount
		}
	}
	if discount > orderValue {
		discount = orderValue
	}
	return discount
}

// Redeem consumes one use of the coupon. Called when the discounted payment
// actually settles, never at quote time. The increment is conditional on the
// usage limit, so concurrent redemptions of the last slot leave exactly one
// winner.
func (s *CouponService) Redeem(couponID uuid.UUID) (bool, error) {
	redeemed, err := s.couponRepo.IncrementUsage(couponID)
	if err != nil {
		return false, err
	}
	if !redeemed {
		s.logger.WithField("coupon_id", couponID).Warn("Coupon redemption lost the usage race")
	}
	return redeemed, nil
}

// Release returns one use to the coupon, used when admins correct a
// redemption that should not have counted.
func (s *CouponService) Release(couponID uuid.UUID) error {
	released, err := s.couponRepo.DecrementUsage(couponID)
	if err != nil {
		return err
	}
	if !released {
		return models.NewValidationError("coupon", "no redemptions to release")
	}
	return nil
}

// Create creates a new coupon
func (s *CouponService) Create(req *models.CreateCouponRequest) (*models.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.couponRepo.GetByCode(req.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("code", "coupon code already exists")
	}

	coupon := &models.Coupon{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MaxDiscount:   req.MaxDiscount,
		MinOrderValue: req.MinOrderValue,
		UsageLimit:    req.UsageLimit,
		ExpiresAt:     req.ExpiresAt,
		IsActive:      true,
		FlightIDs:     req.FlightIDs,
		UserIDs:       req.UserIDs,
	}

	if err := s.couponRepo.CreateCoupon(coupon); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"coupon_id": coupon.ID,
		"code":      coupon.Code,
	}).Info("Coupon created")

	return coupon, nil
}

// Update edits an existing coupon
func (s *CouponService) Update(couponID uuid.UUID, req *models.UpdateCouponRequest) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(couponID)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, models.NewNotFoundError("coupon")
	}

	if req.DiscountValue != nil {
		if *req.DiscountValue <= 0 {
			return nil, models.NewValidationError("discount_value", "must be positive")
		}
		if coupon.DiscountType == models.DiscountTypePercentage && *req.DiscountValue > 100 {
			return nil, models.NewValidationError("discount_value", "percentage must be between 0 and 100")
		}
		coupon.DiscountValue = *req.DiscountValue
	}
	if req.MaxDiscount != nil {
		coupon.MaxDiscount = req.MaxDiscount
	}
	if req.MinOrderValue != nil {
		if *req.MinOrderValue < 0 {
			return nil, models.NewValidationError("min_order_value", "must not be negative")
		}
		coupon.MinOrderValue = *req.MinOrderValue
	}
	if req.UsageLimit != nil {
		// Lowering the limit below the used count only stops further
		// redemptions, it never rolls back past ones.
		if *req.UsageLimit <= 0 {
			return nil, models.NewValidationError("usage_limit", "must be positive")
		}
		coupon.UsageLimit = *req.UsageLimit
	}
	if req.ExpiresAt != nil {
		coupon.ExpiresAt = *req.ExpiresAt
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := s.couponRepo.UpdateCoupon(coupon); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"coupon_id": coupon.ID,
		"code":      coupon.Code,
	}).Info("Coupon updated")

	return coupon, nil
}

// Get retrieves a coupon by ID
func (s *CouponService) Get(couponID uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(couponID)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, models.NewNotFoundError("coupon")
	}
	return coupon, nil
}

// List returns all coupons newest first
func (s *CouponService) List(limit, offset int) ([]models.Coupon, error) {
	return s.couponRepo.ListCoupons(limit, offset)
}
