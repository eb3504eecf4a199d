package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// FlightRepository handles flight database operations
type FlightRepository struct {
	db *sqlx.DB
}

// NewFlightRepository creates a new FlightRepository
func NewFlightRepository(db *sqlx.DB) *FlightRepository {
	return &FlightRepository{db: db}
}

// CreateFlight inserts a new flight inside the given transaction.
// The seat layout is created in the same transaction by the seat repository.
func (r *FlightRepository) CreateFlight(tx *sqlx.Tx, flight *models.Flight) error {
	flight.ID = uuid.New()
	flight.CreatedAt = time.Now()
	flight.UpdatedAt = flight.CreatedAt

	query := `
		INSERT INTO flights (
			id, flight_code, origin, destination, departure_time, arrival_time,
			total_seats, available_seats, economy_price, business_price,
			first_class_price, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(query,
		flight.ID, flight.FlightCode, flight.Origin, flight.Destination,
		flight.DepartureTime, flight.ArrivalTime,
		flight.TotalSeats, flight.AvailableSeats,
		flight.EconomyPrice, flight.BusinessPrice, flight.FirstClassPrice,
		flight.Status, flight.CreatedAt, flight.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create flight: %w", err)
	}
	return nil
}

const flightColumns = `
	id, flight_code, origin, destination, departure_time, arrival_time,
	total_seats, available_seats, economy_price, business_price,
	first_class_price, status, created_at, updated_at`

// GetByID retrieves a flight by ID. Returns nil when not found.
func (r *FlightRepository) GetByID(flightID uuid.UUID) (*models.Flight, error) {
	var flight models.Flight
	query := `SELECT ` + flightColumns + ` FROM flights WHERE id = $1`
	err := r.db.Get(&flight, query, flightID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flight: %w", err)
	}
	return &flight, nil
}

// GetByCode retrieves a flight by its unique flight code. Returns nil when not found.
func (r *FlightRepository) GetByCode(flightCode string) (*models.Flight, error) {
	var flight models.Flight
	query := `SELECT ` + flightColumns + ` FROM flights WHERE flight_code = $1`
	err := r.db.Get(&flight, query, flightCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flight by code: %w", err)
	}
	return &flight, nil
}

// ListUpcoming returns scheduled flights departing after now, paginated
func (r *FlightRepository) ListUpcoming(limit, offset int) ([]models.Flight, error) {
	var flights []models.Flight
	query := `
		SELECT ` + flightColumns + `
		FROM flights
		WHERE status = 'scheduled' AND departure_time > NOW()
		ORDER BY departure_time
		LIMIT $1 OFFSET $2`
	err := r.db.Select(&flights, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}
	return flights, nil
}

// UpdateFlight applies admin edits to a flight
func (r *FlightRepository) UpdateFlight(flight *models.Flight) error {
	query := `
		UPDATE flights
		SET origin = $2, destination = $3, departure_time = $4, arrival_time = $5,
		    economy_price = $6, business_price = $7, first_class_price = $8,
		    status = $9, updated_at = NOW()
		WHERE id = $1`
	result, err := r.db.Exec(query,
		flight.ID, flight.Origin, flight.Destination,
		flight.DepartureTime, flight.ArrivalTime,
		flight.EconomyPrice, flight.BusinessPrice, flight.FirstClassPrice,
		flight.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update flight: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewNotFoundError("flight")
	}
	return nil
}

// DeleteFlight removes a flight and its seat map. Fails while any ticket for
// the flight still has a non-terminal payment state.
func (r *FlightRepository) DeleteFlight(flightID uuid.UUID) error {
	var activeTickets int
	err := r.db.Get(&activeTickets, `
		SELECT COUNT(*) FROM tickets
		WHERE flight_id = $1 AND payment_status IN ('pending', 'paid', 'disputed')`,
		flightID)
	if err != nil {
		return fmt.Errorf("failed to check active tickets: %w", err)
	}
	if activeTickets > 0 {
		return models.NewStateConflictError("flight", fmt.Sprintf("%d active tickets", activeTickets))
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM seats WHERE flight_id = $1`, flightID); err != nil {
		return fmt.Errorf("failed to delete seat map: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM flights WHERE id = $1`, flightID)
	if err != nil {
		return fmt.Errorf("failed to delete flight: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewNotFoundError("flight")
	}

	return tx.Commit()
}

// ReserveSeatCount atomically decrements available_seats inside a transaction.
// The conditional guard makes two concurrent reservations for the last N
// seats impossible: only the update that still sees enough availability wins.
func (r *FlightRepository) ReserveSeatCount(tx *sqlx.Tx, flightID uuid.UUID, count int) error {
	result, err := tx.Exec(`
		UPDATE flights
		SET available_seats = available_seats - $2, updated_at = NOW()
		WHERE id = $1 AND available_seats >= $2`,
		flightID, count)
	if err != nil {
		return fmt.Errorf("failed to reserve seats: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewConflictError(models.ConflictInsufficientSeats,
			fmt.Sprintf("flight does not have %d available seats", count))
	}
	return nil
}

// ReleaseSeatCount atomically increments available_seats inside a transaction.
// The guard rejects releases that would push the counter past total_seats,
// which catches double-refund bugs.
func (r *FlightRepository) ReleaseSeatCount(tx *sqlx.Tx, flightID uuid.UUID, count int) error {
	if count == 0 {
		return nil
	}
	result, err := tx.Exec(`
		UPDATE flights
		SET available_seats = available_seats + $2, updated_at = NOW()
		WHERE id = $1 AND available_seats + $2 <= total_seats`,
		flightID, count)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewConflictError(models.ConflictOverRelease,
			fmt.Sprintf("releasing %d seats would exceed total seats", count))
	}
	return nil
}

// Beginx starts a transaction on the underlying pool
func (r *FlightRepository) Beginx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}
