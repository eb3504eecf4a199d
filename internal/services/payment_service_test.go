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

	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

var settleTicketRows = []string{
	"id", "ticket_code", "flight_id", "user_id",
	"passenger_name", "passenger_phone", "passenger_email", "passenger_count",
	"total_amount", "discount_amount", "final_amount", "coupon_id",
	"status", "payment_status", "payment_method", "gateway_intent_id", "wallet_txn_id",
	"payment_deadline", "paid_at", "cancelled_at", "refunded_at", "checked_in_at",
	"created_at", "updated_at",
}

func newSettleTestService(t *testing.T) (*PaymentService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	svc := NewPaymentService(
		database.NewTicketRepository(sqlxDB),
		database.NewWalletRepository(sqlxDB),
		database.NewPaymentAuditRepository(sqlxDB, logger),
		nil,
		nil,
		nil,
		logger,
	)
	return svc, mock
}

func settleTicket() *models.Ticket {
	intentID := "pi_test_123"
	return &models.Ticket{
		ID:              uuid.New(),
		TicketCode:      "SR-TEST2345",
		FlightID:        uuid.New(),
		UserID:          uuid.New(),
		FinalAmount:     45000,
		Status:          models.TicketStatusBooked,
		PaymentStatus:   models.PaymentStatusPending,
		GatewayIntentID: &intentID,
	}
}

func TestPaymentService_Settle(t *testing.T) {
	t.Run("Pending Ticket Transitions", func(t *testing.T) {
		svc, mock := newSettleTestService(t)
		ticket := settleTicket()

		mock.ExpectExec(`UPDATE tickets`).
			WithArgs(ticket.ID, models.PaymentMethodCard).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.settle(context.Background(), ticket, models.PaymentSourceWebhook, 45000)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost To Concurrent Settlement Is Quiet", func(t *testing.T) {
		svc, mock := newSettleTestService(t)
		ticket := settleTicket()
		now := time.Now()

		mock.ExpectExec(`UPDATE tickets`).
			WithArgs(ticket.ID, models.PaymentMethodCard).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM tickets WHERE id`).
			WithArgs(ticket.ID).
			WillReturnRows(sqlmock.NewRows(settleTicketRows).AddRow(
				ticket.ID, ticket.TicketCode, ticket.FlightID, ticket.UserID,
				"Jane Perera", "+94771234567", "jane@example.com", 1,
				45000.0, 0.0, 45000.0, nil,
				"booked", "paid", "card", *ticket.GatewayIntentID, nil,
				now.Add(30*time.Minute), now, nil, nil, nil,
				now, now,
			))

		// No audit insert expected: the ticket settled through another path
		err := svc.settle(context.Background(), ticket, models.PaymentSourceWebhook, 45000)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Settlement After Expiry Audits Mismatch", func(t *testing.T) {
		svc, mock := newSettleTestService(t)
		ticket := settleTicket()
		now := time.Now()

		mock.ExpectExec(`UPDATE tickets`).
			WithArgs(ticket.ID, models.PaymentMethodCard).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM tickets WHERE id`).
			WithArgs(ticket.ID).
			WillReturnRows(sqlmock.NewRows(settleTicketRows).AddRow(
				ticket.ID, ticket.TicketCode, ticket.FlightID, ticket.UserID,
				"Jane Perera", "+94771234567", "jane@example.com", 1,
				45000.0, 0.0, 45000.0, nil,
				"cancelled", "failed", nil, *ticket.GatewayIntentID, nil,
				now.Add(-10*time.Minute), nil, now, nil, nil,
				now, now,
			))
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WithArgs(
				sqlmock.AnyArg(), ticket.ID, nil, ticket.GatewayIntentID, nil,
				models.PaymentEventReconciliationMismatch, models.PaymentSourceWebhook,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), nil, false,
				nil, sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.settle(context.Background(), ticket, models.PaymentSourceWebhook, 45000)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
