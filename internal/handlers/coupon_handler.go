package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/middleware"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/services"
)

// CouponHandler serves coupon validation for users and CRUD for admins
type CouponHandler struct {
	couponService *services.CouponService
	logger        *logrus.Logger
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(couponService *services.CouponService, logger *logrus.Logger) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
		logger:        logger,
	}
}

// ValidateCoupon handles POST /api/v1/coupons/validate.
// Quoting never consumes a use; the coupon is redeemed when the discounted
// payment settles.
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	flightID := uuid.Nil
	if req.FlightID != nil {
		flightID = *req.FlightID
	}

	quote, err := h.couponService.Quote(req.Code, req.OrderValue, flightID, user.UserID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"code":    req.Code,
			"user_id": user.UserID,
		}).WithError(err).Info("Coupon validation rejected")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"quote":  quote,
	})
}

// CreateCoupon handles POST /api/v1/admin/coupons
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req models.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	coupon, err := h.couponService.Create(&req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"code": req.Code,
		}).WithError(err).Error("Failed to create coupon")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"coupon_id": coupon.ID,
		"code":      coupon.Code,
	}).Info("Coupon created")

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"coupon": coupon,
	})
}

// UpdateCoupon handles PATCH /api/v1/admin/coupons/:id
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid coupon ID",
		})
		return
	}

	var req models.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	coupon, err := h.couponService.Update(couponID, &req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"coupon_id": couponID,
		}).WithError(err).Error("Failed to update coupon")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"coupon": coupon,
	})
}

// GetCoupon handles GET /api/v1/admin/coupons/:id
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid coupon ID",
		})
		return
	}

	coupon, err := h.couponService.Get(couponID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"coupon": coupon,
	})
}

// ListCoupons handles GET /api/v1/admin/coupons
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	limit, offset := pagination(c)

	coupons, err := h.couponService.List(limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list coupons")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"coupons": coupons,
		"count":   len(coupons),
	})
}
