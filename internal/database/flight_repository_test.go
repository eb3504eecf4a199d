package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

func TestFlightRepository_ReserveSeatCount(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewFlightRepository(sqlxDB)

	flightID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flights`).
			WithArgs(flightID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := repo.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		err = repo.ReserveSeatCount(tx, flightID, 2)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient Seats", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flights`).
			WithArgs(flightID, 5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := repo.Beginx()
		require.NoError(t, err)

		err = repo.ReserveSeatCount(tx, flightID, 5)
		require.Error(t, err)

		var conflict *models.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, models.ConflictInsufficientSeats, conflict.Kind)

		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFlightRepository_ReleaseSeatCount(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewFlightRepository(sqlxDB)

	flightID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flights`).
			WithArgs(flightID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := repo.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		err = repo.ReleaseSeatCount(tx, flightID, 2)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Zero Count Is NoOp", func(t *testing.T) {
		mock.ExpectBegin()

		tx, err := repo.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		err = repo.ReleaseSeatCount(tx, flightID, 0)
		require.NoError(t, err)
	})

	t.Run("Over Release", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flights`).
			WithArgs(flightID, 200).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := repo.Beginx()
		require.NoError(t, err)

		err = repo.ReleaseSeatCount(tx, flightID, 200)
		require.Error(t, err)

		var conflict *models.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, models.ConflictOverRelease, conflict.Kind)

		require.NoError(t, tx.Rollback())
	})
}
