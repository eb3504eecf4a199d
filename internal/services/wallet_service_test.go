package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skyreserve/flight-booking-backend/internal/config"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

var walletUserRows = []string{
	"id", "email", "full_name", "status", "wallet_balance", "wallet_pin_hash",
	"daily_limit", "monthly_limit", "total_spent", "total_topped_up",
	"wallet_tier", "created_at", "updated_at",
}

func newWalletService(t *testing.T) (*WalletService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.WalletConfig{
		DefaultDailyLimit:   2_000_000,
		DefaultMonthlyLimit: 20_000_000,
		MinTopupAmount:      10_000,
		MaxTopupAmount:      50_000_000,
		MinWithdrawalAmount: 1_000,
		MaxWithdrawalAmount: 10_000_000,
	}

	svc := NewWalletService(
		database.NewWalletRepository(sqlxDB),
		database.NewUserRepository(sqlxDB),
		database.NewTicketRepository(sqlxDB),
		nil,
		NewGatewayService(&config.PaymentConfig{Environment: "sandbox"}, logger),
		database.NewPaymentAuditRepository(sqlxDB, logger),
		cfg,
		bcrypt.MinCost,
		logger,
	)
	return svc, mock
}

func expectWalletUser(mock sqlmock.Sqlmock, userID uuid.UUID, pinHash string) {
	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(walletUserRows).AddRow(
			userID, "jane@example.com", "Jane Perera", "active", 500_000.0, pinHash,
			2_000_000.0, 20_000_000.0, 0.0, 0.0,
			"basic", now, now,
		))
}

func TestWalletService_WithdrawAmountBounds(t *testing.T) {
	pin := "4321"
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	pinHash := string(hashBytes)

	tests := []struct {
		name    string
		amount  float64
		wantMsg string
	}{
		{"Zero Amount", 0, "must be positive"},
		{"Below Minimum", 500, "minimum withdrawal"},
		{"Above Maximum", 15_000_000, "maximum withdrawal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newWalletService(t)
			userID := uuid.New()
			expectWalletUser(mock, userID, pinHash)

			txn, err := svc.Withdraw(context.Background(), userID, &models.WithdrawRequest{
				Amount:      tt.amount,
				BankAccount: "8001234567",
				Pin:         pin,
			})
			assert.Nil(t, txn)

			var valErr *models.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Contains(t, err.Error(), tt.wantMsg)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWalletService_WithdrawWrongPin(t *testing.T) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, mock := newWalletService(t)
	userID := uuid.New()
	expectWalletUser(mock, userID, string(hashBytes))

	txn, err := svc.Withdraw(context.Background(), userID, &models.WithdrawRequest{
		Amount:      50_000,
		BankAccount: "8001234567",
		Pin:         "9999",
	})
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, models.ErrInvalidPin)

	assert.NoError(t, mock.ExpectationsWereMet())
}
