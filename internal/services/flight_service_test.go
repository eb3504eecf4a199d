package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

var flightServiceRows = []string{
	"id", "flight_code", "origin", "destination", "departure_time", "arrival_time",
	"total_seats", "available_seats", "economy_price", "business_price",
	"first_class_price", "status", "created_at", "updated_at",
}

func newFlightTestService(t *testing.T) (*FlightService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	svc := NewFlightService(
		database.NewFlightRepository(sqlxDB),
		database.NewSeatRepository(sqlxDB),
		logger,
	)
	return svc, mock
}

func expectFlightByID(mock sqlmock.Sqlmock, flightID uuid.UUID, departure time.Time) {
	mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
		WithArgs(flightID).
		WillReturnRows(sqlmock.NewRows(flightServiceRows).AddRow(
			flightID, "UL504", "CMB", "LHR", departure, departure.Add(11*time.Hour),
			180, 120, 45000.0, 150000.0, 320000.0,
			"scheduled", departure.Add(-30*24*time.Hour), departure.Add(-30*24*time.Hour),
		))
}

func TestFlightService_Update(t *testing.T) {
	t.Run("Route Change Applied", func(t *testing.T) {
		svc, mock := newFlightTestService(t)
		flightID := uuid.New()
		departure := time.Now().Add(72 * time.Hour)

		expectFlightByID(mock, flightID, departure)

		origin := "CMB"
		destination := "SIN"
		mock.ExpectExec(`UPDATE flights`).
			WithArgs(flightID, origin, destination,
				sqlmock.AnyArg(), sqlmock.AnyArg(),
				45000.0, 150000.0, 320000.0, models.FlightStatusScheduled).
			WillReturnResult(sqlmock.NewResult(0, 1))

		updated, err := svc.Update(flightID, &models.UpdateFlightRequest{
			Destination: &destination,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "SIN", updated.Destination)
		assert.Equal(t, "CMB", updated.Origin)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty Origin Rejected", func(t *testing.T) {
		svc, mock := newFlightTestService(t)
		flightID := uuid.New()

		expectFlightByID(mock, flightID, time.Now().Add(72*time.Hour))

		blank := "   "
		updated, err := svc.Update(flightID, &models.UpdateFlightRequest{
			Origin: &blank,
		})
		assert.Nil(t, updated)

		var valErr *models.ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Equal(t, "origin", valErr.Field)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		svc, mock := newFlightTestService(t)
		flightID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM flights WHERE id`).
			WithArgs(flightID).
			WillReturnRows(sqlmock.NewRows(flightServiceRows))

		updated, err := svc.Update(flightID, &models.UpdateFlightRequest{})
		assert.Nil(t, updated)

		var notFound *models.NotFoundError
		require.ErrorAs(t, err, &notFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
