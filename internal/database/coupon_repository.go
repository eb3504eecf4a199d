package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// CouponRepository handles coupon database operations
type CouponRepository struct {
	db *sqlx.DB
}

// NewCouponRepository creates a new CouponRepository
func NewCouponRepository(db *sqlx.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `
	id, code, discount_type, discount_value, max_discount, min_order_value,
	usage_limit, used_count, expires_at, is_active, flight_ids, user_ids,
	created_at, updated_at`

// CreateCoupon inserts a new coupon
func (r *CouponRepository) CreateCoupon(coupon *models.Coupon) error {
	coupon.ID = uuid.New()
	coupon.CreatedAt = time.Now()
	coupon.UpdatedAt = coupon.CreatedAt

	query := `
		INSERT INTO coupons (
			id, code, discount_type, discount_value, max_discount, min_order_value,
			usage_limit, used_count, expires_at, is_active, flight_ids, user_ids,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(query,
		coupon.ID, coupon.Code, coupon.DiscountType, coupon.DiscountValue,
		coupon.MaxDiscount, coupon.MinOrderValue, coupon.UsageLimit,
		coupon.ExpiresAt, coupon.IsActive, coupon.FlightIDs, coupon.UserIDs,
		coupon.CreatedAt, coupon.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// GetByID retrieves a coupon by ID. Returns nil when not found.
func (r *CouponRepository) GetByID(couponID uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	err := r.db.Get(&coupon, query, couponID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return &coupon, nil
}

// GetByCode retrieves a coupon by its unique code. Returns nil when not found.
func (r *CouponRepository) GetByCode(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	err := r.db.Get(&coupon, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon by code: %w", err)
	}
	return &coupon, nil
}

// ListCoupons returns coupons ordered newest first, paginated
func (r *CouponRepository) ListCoupons(limit, offset int) ([]models.Coupon, error) {
	var coupons []models.Coupon
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	err := r.db.Select(&coupons, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// UpdateCoupon applies admin edits to a coupon
func (r *CouponRepository) UpdateCoupon(coupon *models.Coupon) error {
	query := `
		UPDATE coupons
		SET discount_value = $2, max_discount = $3, min_order_value = $4,
		    usage_limit = $5, expires_at = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1`
	result, err := r.db.Exec(query,
		coupon.ID, coupon.DiscountValue, coupon.MaxDiscount, coupon.MinOrderValue,
		coupon.UsageLimit, coupon.ExpiresAt, coupon.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update coupon: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewNotFoundError("coupon")
	}
	return nil
}

// IncrementUsage consumes one use of the coupon. The conditional guard makes
// the increment atomic with the limit check: at the last remaining use,
// exactly one of N concurrent applications succeeds.
func (r *CouponRepository) IncrementUsage(couponID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND used_count < usage_limit AND is_active = true`,
		couponID)
	if err != nil {
		return false, fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// DecrementUsage returns one use to the coupon. Corrective admin action only.
func (r *CouponRepository) DecrementUsage(couponID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE coupons
		SET used_count = used_count - 1, updated_at = NOW()
		WHERE id = $1 AND used_count > 0`,
		couponID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement coupon usage: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
