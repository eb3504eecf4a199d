package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/middleware"
	"github.com/skyreserve/flight-booking-backend/internal/services"
)

var couponRows = []string{
	"id", "code", "discount_type", "discount_value", "max_discount", "min_order_value",
	"usage_limit", "used_count", "expires_at", "is_active", "flight_ids", "user_ids",
	"created_at", "updated_at",
}

func setupCouponTest(t *testing.T, userID uuid.UUID) (*gin.Engine, sqlmock.Sqlmock) {
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	couponRepo := database.NewCouponRepository(sqlxDB)
	couponService := services.NewCouponService(couponRepo, logger)
	handler := NewCouponHandler(couponService, logger)

	router := gin.New()
	// Inject an authenticated user the way the auth middleware would
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{
			UserID: userID,
			Email:  "test@example.com",
			Roles:  []string{"passenger"},
		})
		c.Next()
	})
	router.POST("/api/v1/coupons/validate", handler.ValidateCoupon)

	return router, mock
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestValidateCoupon_PercentageDiscount(t *testing.T) {
	userID := uuid.New()
	router, mock := setupCouponTest(t, userID)

	now := time.Now()
	maxDiscount := 5000.0

	mock.ExpectQuery(`SELECT (.+) FROM coupons WHERE code`).
		WithArgs("SAVE10").
		WillReturnRows(sqlmock.NewRows(couponRows).AddRow(
			uuid.New(), "SAVE10", "percentage", 10.0, maxDiscount, 10000.0,
			100, 5, now.Add(30*24*time.Hour), true, "{}", "{}",
			now, now,
		))

	w := postJSON(t, router, "/api/v1/coupons/validate", map[string]interface{}{
		"code":        "SAVE10",
		"order_value": 30000.0,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	quote := resp["quote"].(map[string]interface{})
	assert.Equal(t, 3000.0, quote["discount_amount"])
	assert.Equal(t, 27000.0, quote["final_amount"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateCoupon_CapAtMaxDiscount(t *testing.T) {
	userID := uuid.New()
	router, mock := setupCouponTest(t, userID)

	now := time.Now()
	maxDiscount := 5000.0

	mock.ExpectQuery(`SELECT (.+) FROM coupons WHERE code`).
		WithArgs("SAVE10").
		WillReturnRows(sqlmock.NewRows(couponRows).AddRow(
			uuid.New(), "SAVE10", "percentage", 10.0, maxDiscount, 10000.0,
			100, 5, now.Add(30*24*time.Hour), true, "{}", "{}",
			now, now,
		))

	w := postJSON(t, router, "/api/v1/coupons/validate", map[string]interface{}{
		"code":        "SAVE10",
		"order_value": 100000.0,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	quote := resp["quote"].(map[string]interface{})
	assert.Equal(t, 5000.0, quote["discount_amount"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateCoupon_Expired(t *testing.T) {
	userID := uuid.New()
	router, mock := setupCouponTest(t, userID)

	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM coupons WHERE code`).
		WithArgs("OLDCODE").
		WillReturnRows(sqlmock.NewRows(couponRows).AddRow(
			uuid.New(), "OLDCODE", "fixed", 2000.0, nil, 0.0,
			100, 5, now.Add(-24*time.Hour), true, "{}", "{}",
			now, now,
		))

	w := postJSON(t, router, "/api/v1/coupons/validate", map[string]interface{}{
		"code":        "OLDCODE",
		"order_value": 30000.0,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Contains(t, resp["message"], "expired")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateCoupon_UnknownCode(t *testing.T) {
	userID := uuid.New()
	router, mock := setupCouponTest(t, userID)

	mock.ExpectQuery(`SELECT (.+) FROM coupons WHERE code`).
		WithArgs("MISSING1").
		WillReturnRows(sqlmock.NewRows(couponRows))

	w := postJSON(t, router, "/api/v1/coupons/validate", map[string]interface{}{
		"code":        "MISSING1",
		"order_value": 30000.0,
	})

	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateCoupon_InvalidRequest(t *testing.T) {
	userID := uuid.New()
	router, _ := setupCouponTest(t, userID)

	w := postJSON(t, router, "/api/v1/coupons/validate", map[string]interface{}{
		"order_value": 30000.0,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
