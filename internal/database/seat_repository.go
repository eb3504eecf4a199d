package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// SeatRepository handles seat map database operations.
// The seat map is the source of truth for occupancy; every mutation here
// happens in the same transaction that moves the flight's aggregate counter.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new SeatRepository
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// seatLetters maps a position within a row to its letter
const seatLetters = "ABCDEFGHJK"

// CreateLayout generates the seat map grid for a new flight inside the given
// transaction. Rows are numbered continuously across cabin sections.
func (r *SeatRepository) CreateLayout(tx *sqlx.Tx, flightID uuid.UUID, layout []models.CabinRows) (int, error) {
	insertQuery := `
		INSERT INTO seats (
			id, flight_id, seat_number, row_number, position, class, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 'available', NOW(), NOW())`

	row := 0
	count := 0
	for _, section := range layout {
		for i := 0; i < section.Rows; i++ {
			row++
			for pos := 1; pos <= section.SeatsPerRow; pos++ {
				seatNumber := fmt.Sprintf("%d%c", row, seatLetters[pos-1])
				_, err := tx.Exec(insertQuery,
					uuid.New(), flightID, seatNumber, row, pos, section.Class)
				if err != nil {
					return 0, fmt.Errorf("failed to create seat %s: %w", seatNumber, err)
				}
				count++
			}
		}
	}
	return count, nil
}

// GetByFlight returns all seats of a flight ordered by row and position
func (r *SeatRepository) GetByFlight(flightID uuid.UUID) ([]models.Seat, error) {
	var seats []models.Seat
	query := `
		SELECT id, flight_id, seat_number, row_number, position, class, status,
		       ticket_id, block_reason, created_at, updated_at
		FROM seats
		WHERE flight_id = $1
		ORDER BY row_number, position`
	err := r.db.Select(&seats, query, flightID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	return seats, nil
}

// GetByNumbers returns the seats with the given seat numbers on a flight
func (r *SeatRepository) GetByNumbers(flightID uuid.UUID, seatNumbers []string) ([]models.Seat, error) {
	if len(seatNumbers) == 0 {
		return []models.Seat{}, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, flight_id, seat_number, row_number, position, class, status,
		       ticket_id, block_reason, created_at, updated_at
		FROM seats
		WHERE flight_id = ? AND seat_number IN (?)
		ORDER BY row_number, position`, flightID, seatNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to build seat query: %w", err)
	}
	query = r.db.Rebind(query)

	var seats []models.Seat
	if err := r.db.Select(&seats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	return seats, nil
}

// BookSeats flips the requested seats from available to booked inside a
// transaction, attaching the ticket reference. Returns the number of seats
// actually flipped; a count short of the request means another booking won
// the race for at least one seat.
func (r *SeatRepository) BookSeats(tx *sqlx.Tx, flightID uuid.UUID, seatNumbers []string, ticketID uuid.UUID) (int, error) {
	if len(seatNumbers) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'booked', ticket_id = ?, updated_at = NOW()
		WHERE flight_id = ? AND seat_number IN (?) AND status = 'available'`,
		ticketID, flightID, seatNumbers)
	if err != nil {
		return 0, fmt.Errorf("failed to build book query: %w", err)
	}
	query = tx.Rebind(query)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to book seats: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// ReleaseSeatsByTicket flips a ticket's booked seats back to available and
// clears their ticket reference. Idempotent: seats already released are
// simply not matched, and the released count is returned so the caller can
// credit the aggregate counter by exactly that amount.
func (r *SeatRepository) ReleaseSeatsByTicket(tx *sqlx.Tx, ticketID uuid.UUID) (int, error) {
	result, err := tx.Exec(`
		UPDATE seats
		SET status = 'available', ticket_id = NULL, updated_at = NOW()
		WHERE ticket_id = $1 AND status = 'booked'`,
		ticketID)
	if err != nil {
		return 0, fmt.Errorf("failed to release seats: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// BlockSeats places an administrative hold on available seats.
// Blocked seats are excluded from the available count but not tied to a ticket.
func (r *SeatRepository) BlockSeats(tx *sqlx.Tx, flightID uuid.UUID, seatNumbers []string, reason string) (int, error) {
	if len(seatNumbers) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'blocked', block_reason = ?, updated_at = NOW()
		WHERE flight_id = ? AND seat_number IN (?) AND status = 'available'`,
		reason, flightID, seatNumbers)
	if err != nil {
		return 0, fmt.Errorf("failed to build block query: %w", err)
	}
	query = tx.Rebind(query)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to block seats: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// UnblockSeats lifts an administrative hold
func (r *SeatRepository) UnblockSeats(tx *sqlx.Tx, flightID uuid.UUID, seatNumbers []string) (int, error) {
	if len(seatNumbers) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'available', block_reason = NULL, updated_at = NOW()
		WHERE flight_id = ? AND seat_number IN (?) AND status = 'blocked'`,
		flightID, seatNumbers)
	if err != nil {
		return 0, fmt.Errorf("failed to build unblock query: %w", err)
	}
	query = tx.Rebind(query)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to unblock seats: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// GetByTicket returns the seats currently held by a ticket
func (r *SeatRepository) GetByTicket(ticketID uuid.UUID) ([]models.Seat, error) {
	var seats []models.Seat
	query := `
		SELECT id, flight_id, seat_number, row_number, position, class, status,
		       ticket_id, block_reason, created_at, updated_at
		FROM seats
		WHERE ticket_id = $1
		ORDER BY row_number, position`
	err := r.db.Select(&seats, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket seats: %w", err)
	}
	return seats, nil
}

// CountByStatus returns how many seats of a flight are in each status
func (r *SeatRepository) CountByStatus(flightID uuid.UUID) (map[models.SeatStatus]int, error) {
	type statusCount struct {
		Status models.SeatStatus `db:"status"`
		Count  int               `db:"count"`
	}
	var rows []statusCount
	query := `SELECT status, COUNT(*) AS count FROM seats WHERE flight_id = $1 GROUP BY status`
	if err := r.db.Select(&rows, query, flightID); err != nil {
		return nil, fmt.Errorf("failed to count seats: %w", err)
	}

	counts := make(map[models.SeatStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Beginx starts a transaction on the underlying pool
func (r *SeatRepository) Beginx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}
