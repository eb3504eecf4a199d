package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var userRows = []string{
	"id", "email", "full_name", "status", "wallet_balance", "wallet_pin_hash",
	"daily_limit", "monthly_limit", "total_spent", "total_topped_up",
	"wallet_tier", "created_at", "updated_at",
}

func TestUserRepository_GetByID(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewUserRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()
		pinHash := "$2a$10$hash"

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userRows).AddRow(
				userID, "jane@example.com", "Jane Perera", "active", 12500.0, pinHash,
				2_000_000.0, 20_000_000.0, 45000.0, 60000.0,
				"basic", now, now,
			))

		user, err := repo.GetByID(userID)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "jane@example.com", user.Email)
		assert.Equal(t, models.WalletTierBasic, user.WalletTier)
		assert.True(t, user.HasPin())
		assert.True(t, user.IsActive())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userRows))

		user, err := repo.GetByID(userID)
		require.NoError(t, err)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(userID).
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.GetByID(userID)
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to get user")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewUserRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("nimal@example.com").
			WillReturnRows(sqlmock.NewRows(userRows).AddRow(
				userID, "nimal@example.com", "Nimal Silva", "active", 0.0, nil,
				2_000_000.0, 20_000_000.0, 0.0, 0.0,
				"basic", now, now,
			))

		user, err := repo.GetByEmail("nimal@example.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "Nimal Silva", user.FullName)
		assert.False(t, user.HasPin())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("missing@example.com").
			WillReturnRows(sqlmock.NewRows(userRows))

		user, err := repo.GetByEmail("missing@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_SetWalletPin(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewUserRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(userID, "$2a$10$newhash").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetWalletPin(userID, "$2a$10$newhash")
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("User Not Found", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(userID, "$2a$10$newhash").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetWalletPin(userID, "$2a$10$newhash")
		assert.Error(t, err)

		var notFound *models.NotFoundError
		assert.ErrorAs(t, err, &notFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_SetSpendLimits(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewUserRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(userID, 500_000.0, 5_000_000.0).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetSpendLimits(userID, 500_000, 5_000_000)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("User Not Found", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(userID, 500_000.0, 5_000_000.0).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetSpendLimits(userID, 500_000, 5_000_000)
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
