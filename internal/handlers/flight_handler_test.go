package handlers

import (
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
	"github.com/skyreserve/flight-booking-backend/internal/services"
)

var flightRows = []string{
	"id", "flight_code", "origin", "destination", "departure_time", "arrival_time",
	"total_seats", "available_seats", "economy_price", "business_price",
	"first_class_price", "status", "created_at", "updated_at",
}

func setupFlightTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	flightRepo := database.NewFlightRepository(sqlxDB)
	seatRepo := database.NewSeatRepository(sqlxDB)
	flightService := services.NewFlightService(flightRepo, seatRepo, logger)
	seatService := services.NewSeatService(flightRepo, seatRepo, logger)
	handler := NewFlightHandler(flightService, seatService, logger)

	router := gin.New()
	router.GET("/api/v1/flights", handler.ListFlights)
	router.GET("/api/v1/flights/:code", handler.GetFlight)

	return router, mock
}

func TestListFlights(t *testing.T) {
	router, mock := setupFlightTest(t)

	now := time.Now()
	departure := now.Add(48 * time.Hour)
	arrival := departure.Add(3 * time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM flights`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(flightRows).
			AddRow(uuid.New(), "UL504", "CMB", "LHR", departure, arrival,
				180, 175, 95000.0, 280000.0, 550000.0, "scheduled", now, now).
			AddRow(uuid.New(), "UL605", "CMB", "SIN", departure, arrival,
				180, 12, 62000.0, 190000.0, 370000.0, "scheduled", now, now))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/flights", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(2), resp["count"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFlight(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mock := setupFlightTest(t)

		now := time.Now()
		departure := now.Add(24 * time.Hour)

		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE flight_code`).
			WithArgs("UL504").
			WillReturnRows(sqlmock.NewRows(flightRows).
				AddRow(uuid.New(), "UL504", "CMB", "LHR", departure, departure.Add(3*time.Hour),
					180, 175, 95000.0, 280000.0, 550000.0, "scheduled", now, now))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/flights/UL504", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		flight := resp["flight"].(map[string]interface{})
		assert.Equal(t, "UL504", flight["flight_code"])
		assert.Equal(t, "CMB", flight["origin"])

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		router, mock := setupFlightTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE flight_code`).
			WithArgs("ZZ999").
			WillReturnRows(sqlmock.NewRows(flightRows))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/flights/ZZ999", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp["status"])

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
