package database

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// TicketRepository handles ticket database operations
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// GenerateTicketCode generates a unique ticket code like SR-7K2M9QX4
func (r *TicketRepository) GenerateTicketCode() (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	for attempt := 0; attempt < 5; attempt++ {
		code := make([]byte, 8)
		for i := range code {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
			if err != nil {
				return "", fmt.Errorf("failed to generate ticket code: %w", err)
			}
			code[i] = charset[n.Int64()]
		}
		candidate := "SR-" + string(code)

		var exists bool
		err := r.db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_code = $1)`, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check ticket code: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique ticket code after retries")
}

// CreateTicket inserts a new pending ticket inside the given transaction
func (r *TicketRepository) CreateTicket(tx *sqlx.Tx, ticket *models.Ticket) error {
	ticket.ID = uuid.New()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt

	query := `
		INSERT INTO tickets (
			id, ticket_code, flight_id, user_id,
			passenger_name, passenger_phone, passenger_email, passenger_count,
			total_amount, discount_amount, final_amount, coupon_id,
			status, payment_status, payment_deadline, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)`

	_, err := tx.Exec(query,
		ticket.ID, ticket.TicketCode, ticket.FlightID, ticket.UserID,
		ticket.PassengerName, ticket.PassengerPhone, ticket.PassengerEmail, ticket.PassengerCount,
		ticket.TotalAmount, ticket.DiscountAmount, ticket.FinalAmount, ticket.CouponID,
		ticket.Status, ticket.PaymentStatus, ticket.PaymentDeadline,
		ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

const ticketColumns = `
	id, ticket_code, flight_id, user_id,
	passenger_name, passenger_phone, passenger_email, passenger_count,
	total_amount, discount_amount, final_amount, coupon_id,
	status, payment_status, payment_method, gateway_intent_id, wallet_txn_id,
	payment_deadline, paid_at, cancelled_at, refunded_at, checked_in_at,
	created_at, updated_at`

// GetByID retrieves a ticket by ID. Returns nil when not found.
func (r *TicketRepository) GetByID(ticketID uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	err := r.db.Get(&ticket, query, ticketID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &ticket, nil
}

// GetByCode retrieves a ticket by its unique code. Returns nil when not found.
func (r *TicketRepository) GetByCode(ticketCode string) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_code = $1`
	err := r.db.Get(&ticket, query, ticketCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by code: %w", err)
	}
	return &ticket, nil
}

// GetByGatewayIntentID retrieves the ticket correlated with a gateway intent.
// Returns nil when no ticket carries the intent reference.
func (r *TicketRepository) GetByGatewayIntentID(intentID string) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE gateway_intent_id = $1`
	err := r.db.Get(&ticket, query, intentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by intent: %w", err)
	}
	return &ticket, nil
}

// ListByUser returns a user's tickets ordered newest first, paginated
func (r *TicketRepository) ListByUser(userID uuid.UUID, limit, offset int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	err := r.db.Select(&tickets, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// ListExpiredPending returns pending tickets whose payment deadline has
// elapsed, feeding the expiry sweep. Processed in batches.
func (r *TicketRepository) ListExpiredPending(limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE payment_status = 'pending' AND payment_deadline < NOW()
		ORDER BY payment_deadline
		LIMIT $1`
	err := r.db.Select(&tickets, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired tickets: %w", err)
	}
	return tickets, nil
}

// SetGatewayIntent stores the gateway intent reference on a pending ticket
func (r *TicketRepository) SetGatewayIntent(ticketID uuid.UUID, intentID string) error {
	result, err := r.db.Exec(`
		UPDATE tickets
		SET gateway_intent_id = $2, payment_method = 'card', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'`,
		ticketID, intentID)
	if err != nil {
		return fmt.Errorf("failed to set gateway intent: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewStateConflictError("ticket", "not pending")
	}
	return nil
}

// MarkPaid transitions a ticket from pending to paid. The state guard makes
// the racing confirm paths (client call, webhook, duplicate webhook) safe:
// exactly one wins, the rest see zero rows.
func (r *TicketRepository) MarkPaid(ticketID uuid.UUID, method models.PaymentMethod) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE tickets
		SET payment_status = 'paid', payment_method = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND status = 'booked'`,
		ticketID, method)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkPaidTx is MarkPaid inside an existing transaction, used when the debit
// and the ticket transition must commit together (wallet payments).
func (r *TicketRepository) MarkPaidTx(tx *sqlx.Tx, ticketID uuid.UUID, method models.PaymentMethod, walletTxnID *uuid.UUID) (bool, error) {
	result, err := tx.Exec(`
		UPDATE tickets
		SET payment_status = 'paid', payment_method = $2, wallet_txn_id = $3,
		    paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND status = 'booked'`,
		ticketID, method, walletTxnID)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkFailed transitions a ticket from pending to failed
func (r *TicketRepository) MarkFailed(ticketID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE tickets
		SET payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'`,
		ticketID)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket failed: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkFailedTx is MarkFailed inside an existing transaction (deadline sweep)
func (r *TicketRepository) MarkFailedTx(tx *sqlx.Tx, ticketID uuid.UUID) (bool, error) {
	result, err := tx.Exec(`
		UPDATE tickets
		SET payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'`,
		ticketID)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket failed: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkDisputed transitions a paid ticket to disputed. Terminal for
// automation: disputes are resolved manually, never auto-refunded.
func (r *TicketRepository) MarkDisputed(ticketID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE tickets
		SET payment_status = 'disputed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'paid'`,
		ticketID)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket disputed: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkRefundedTx transitions a paid ticket to refunded+cancelled inside a
// transaction that also releases its seats.
func (r *TicketRepository) MarkRefundedTx(tx *sqlx.Tx, ticketID uuid.UUID) (bool, error) {
	result, err := tx.Exec(`
		UPDATE tickets
		SET payment_status = 'refunded', status = 'cancelled',
		    refunded_at = NOW(), cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'paid' AND status = 'booked'`,
		ticketID)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket refunded: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkCancelledTx transitions an unpaid ticket to cancelled inside a
// transaction that also releases its seats.
func (r *TicketRepository) MarkCancelledTx(tx *sqlx.Tx, ticketID uuid.UUID) (bool, error) {
	result, err := tx.Exec(`
		UPDATE tickets
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'booked' AND payment_status IN ('pending', 'failed')`,
		ticketID)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket cancelled: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkCheckedIn sets the check-in status once on a paid ticket
func (r *TicketRepository) MarkCheckedIn(ticketID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE tickets
		SET status = 'checked_in', checked_in_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'booked' AND payment_status = 'paid'`,
		ticketID)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket checked in: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Beginx starts a transaction on the underlying pool
func (r *TicketRepository) Beginx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}
