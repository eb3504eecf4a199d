package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponRepository_IncrementUsage(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewCouponRepository(sqlxDB)

	couponID := uuid.New()

	t.Run("Slot Available", func(t *testing.T) {
		mock.ExpectExec(`UPDATE coupons`).
			WithArgs(couponID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		redeemed, err := repo.IncrementUsage(couponID)
		require.NoError(t, err)
		assert.True(t, redeemed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Limit Reached", func(t *testing.T) {
		mock.ExpectExec(`UPDATE coupons`).
			WithArgs(couponID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		redeemed, err := repo.IncrementUsage(couponID)
		require.NoError(t, err)
		assert.False(t, redeemed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCouponRepository_DecrementUsage(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewCouponRepository(sqlxDB)

	couponID := uuid.New()

	t.Run("Returns A Use", func(t *testing.T) {
		mock.ExpectExec(`UPDATE coupons`).
			WithArgs(couponID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		released, err := repo.DecrementUsage(couponID)
		require.NoError(t, err)
		assert.True(t, released)
	})

	t.Run("Nothing To Return", func(t *testing.T) {
		mock.ExpectExec(`UPDATE coupons`).
			WithArgs(couponID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		released, err := repo.DecrementUsage(couponID)
		require.NoError(t, err)
		assert.False(t, released)
	})
}
