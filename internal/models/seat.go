package models

import (
	"time"

	"github.com/google/uuid"
)

// SeatStatus represents the booking status of a single seat
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusBooked    SeatStatus = "booked"
	SeatStatusBlocked   SeatStatus = "blocked"
)

// Seat represents one seat in a flight's seat map.
// The seat map is the source of truth for occupancy; Flight.AvailableSeats
// is derived from it and kept in step transactionally.
type Seat struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	FlightID   uuid.UUID  `json:"flight_id" db:"flight_id"`
	SeatNumber string     `json:"seat_number" db:"seat_number"`
	RowNumber  int        `json:"row_number" db:"row_number"`
	Position   int        `json:"position" db:"position"`
	Class      CabinClass `json:"class" db:"class"`
	Status     SeatStatus `json:"status" db:"status"`
	TicketID   *uuid.UUID `json:"ticket_id,omitempty" db:"ticket_id"`
	BlockReason *string   `json:"block_reason,omitempty" db:"block_reason"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// SeatMapRow is one row of the seat map grid response
type SeatMapRow struct {
	RowNumber int    `json:"row_number"`
	Seats     []Seat `json:"seats"`
}

// SeatMap is the seat layout response for a flight
type SeatMap struct {
	FlightID       uuid.UUID    `json:"flight_id"`
	FlightCode     string       `json:"flight_code"`
	TotalSeats     int          `json:"total_seats"`
	AvailableSeats int          `json:"available_seats"`
	Rows           []SeatMapRow `json:"rows"`
}

// BuildSeatMap groups flat seat rows into the grid response
func BuildSeatMap(flight *Flight, seats []Seat) *SeatMap {
	byRow := make(map[int][]Seat)
	maxRow := 0
	for _, seat := range seats {
		byRow[seat.RowNumber] = append(byRow[seat.RowNumber], seat)
		if seat.RowNumber > maxRow {
			maxRow = seat.RowNumber
		}
	}

	rows := make([]SeatMapRow, 0, maxRow)
	for row := 1; row <= maxRow; row++ {
		if rowSeats, ok := byRow[row]; ok {
			rows = append(rows, SeatMapRow{RowNumber: row, Seats: rowSeats})
		}
	}

	return &SeatMap{
		FlightID:       flight.ID,
		FlightCode:     flight.FlightCode,
		TotalSeats:     flight.TotalSeats,
		AvailableSeats: flight.AvailableSeats,
		Rows:           rows,
	}
}

// BlockSeatsRequest is the admin request to block or unblock seats
type BlockSeatsRequest struct {
	SeatNumbers []string `json:"seat_numbers" binding:"required"`
	Reason      string   `json:"reason"`
}

// SeatReconciliation reports the consistency check between the seat map
// and the flight's denormalized counters.
type SeatReconciliation struct {
	FlightID        uuid.UUID `json:"flight_id"`
	FlightCode      string    `json:"flight_code"`
	TotalSeats      int       `json:"total_seats"`
	AvailableSeats  int       `json:"available_seats"`
	BookedCount     int       `json:"booked_count"`
	BlockedCount    int       `json:"blocked_count"`
	AvailableCount  int       `json:"available_count"`
	Consistent      bool      `json:"consistent"`
}
