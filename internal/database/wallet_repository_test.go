package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

var walletTxnRows = []string{
	"id", "user_id", "type", "amount", "balance_after", "description", "status",
	"ticket_id", "gateway_reference", "bank_account", "created_at", "updated_at",
}

func TestWalletRepository_SettleTopup(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewWalletRepository(sqlxDB)

	t.Run("Pending Topup Settles", func(t *testing.T) {
		txnID := uuid.New()
		userID := uuid.New()
		now := time.Now()
		ref := "pi_abc123"

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM wallet_transactions WHERE gateway_reference`).
			WithArgs(ref).
			WillReturnRows(sqlmock.NewRows(walletTxnRows).AddRow(
				txnID, userID, "topup", 50000.0, 0.0, "Wallet top-up via card", "pending",
				nil, ref, nil, now, now,
			))
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id (.+) FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userRows).AddRow(
				userID, "jane@example.com", "Jane Perera", "active", 10000.0, nil,
				2_000_000.0, 20_000_000.0, 0.0, 1_975_000.0,
				"basic", now, now,
			))
		mock.ExpectExec(`UPDATE wallet_transactions`).
			WithArgs(txnID, 60000.0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// 1,975,000 + 50,000 crosses the silver threshold
		mock.ExpectExec(`UPDATE users`).
			WithArgs(userID, 60000.0, 2_025_000.0, models.WalletTierSilver).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txn, alreadySettled, err := repo.SettleTopup(ref)
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.False(t, alreadySettled)
		assert.Equal(t, models.WalletTxnCompleted, txn.Status)
		assert.Equal(t, 60000.0, txn.BalanceAfter)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Completed Is Idempotent", func(t *testing.T) {
		txnID := uuid.New()
		userID := uuid.New()
		now := time.Now()
		ref := "pi_replayed"

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM wallet_transactions WHERE gateway_reference`).
			WithArgs(ref).
			WillReturnRows(sqlmock.NewRows(walletTxnRows).AddRow(
				txnID, userID, "topup", 50000.0, 60000.0, "Wallet top-up via card", "completed",
				nil, ref, nil, now, now,
			))
		mock.ExpectRollback()

		txn, alreadySettled, err := repo.SettleTopup(ref)
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.True(t, alreadySettled)
		assert.Equal(t, 60000.0, txn.BalanceAfter)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Reference", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM wallet_transactions WHERE gateway_reference`).
			WithArgs("pi_missing").
			WillReturnRows(sqlmock.NewRows(walletTxnRows))
		mock.ExpectRollback()

		txn, _, err := repo.SettleTopup("pi_missing")
		assert.Nil(t, txn)

		var notFound *models.NotFoundError
		assert.ErrorAs(t, err, &notFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_PayForTicket(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewWalletRepository(sqlxDB)
	ticketRepo := NewTicketRepository(sqlxDB)

	t.Run("Insufficient Balance", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()
		ticket := &models.Ticket{ID: uuid.New(), TicketCode: "SR-TEST2345"}

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id (.+) FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userRows).AddRow(
				userID, "jane@example.com", "Jane Perera", "active", 1000.0, nil,
				2_000_000.0, 20_000_000.0, 0.0, 0.0,
				"basic", now, now,
			))
		mock.ExpectRollback()

		txn, err := repo.PayForTicket(userID, ticket, 45000, ticketRepo)
		assert.Nil(t, txn)

		var conflict *models.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, models.ConflictInsufficientBalance, conflict.Kind)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Daily Limit Exceeded", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()
		ticket := &models.Ticket{ID: uuid.New(), TicketCode: "SR-TEST2345"}

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id (.+) FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userRows).AddRow(
				userID, "jane@example.com", "Jane Perera", "active", 500000.0, nil,
				100_000.0, 20_000_000.0, 0.0, 0.0,
				"basic", now, now,
			))
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)`).
			WithArgs(userID, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(80000.0))
		mock.ExpectRollback()

		txn, err := repo.PayForTicket(userID, ticket, 45000, ticketRepo)
		assert.Nil(t, txn)

		var conflict *models.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, models.ConflictLimitExceeded, conflict.Kind)
		assert.Contains(t, err.Error(), "daily")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_Withdraw(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewWalletRepository(sqlxDB)

	t.Run("Pending Debit Leaves Balance", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id (.+) FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userRows).AddRow(
				userID, "jane@example.com", "Jane Perera", "active", 250000.0, nil,
				0.0, 0.0, 0.0, 0.0,
				"basic", now, now,
			))
		mock.ExpectExec(`INSERT INTO wallet_transactions`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE users`).
			WithArgs(userID, 150000.0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txn, err := repo.Withdraw(userID, 100000, "8001234567")
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, models.WalletTxnPending, txn.Status)
		assert.Equal(t, models.WalletTxnWithdrawal, txn.Type)
		assert.Equal(t, 150000.0, txn.BalanceAfter)
		require.NotNil(t, txn.BankAccount)
		assert.Equal(t, "8001234567", *txn.BankAccount)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient Balance", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id (.+) FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userRows).AddRow(
				userID, "jane@example.com", "Jane Perera", "active", 5000.0, nil,
				0.0, 0.0, 0.0, 0.0,
				"basic", now, now,
			))
		mock.ExpectRollback()

		txn, err := repo.Withdraw(userID, 100000, "8001234567")
		assert.Nil(t, txn)

		var conflict *models.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, models.ConflictInsufficientBalance, conflict.Kind)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
