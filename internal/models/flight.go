package models

import (
	"time"

	"github.com/google/uuid"
)

// FlightStatus represents the lifecycle status of a flight
type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusDeparted  FlightStatus = "departed"
	FlightStatusCancelled FlightStatus = "cancelled"
)

// CabinClass represents the seating class of a seat or fare
type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

// Valid reports whether the cabin class is one of the known classes
func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

// Flight represents a bookable flight.
// AvailableSeats is a denormalized counter derived from the seat map; it is
// only ever mutated inside the same transaction that flips seat rows.
type Flight struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	FlightCode       string       `json:"flight_code" db:"flight_code"`
	Origin           string       `json:"origin" db:"origin"`
	Destination      string       `json:"destination" db:"destination"`
	DepartureTime    time.Time    `json:"departure_time" db:"departure_time"`
	ArrivalTime      time.Time    `json:"arrival_time" db:"arrival_time"`
	TotalSeats       int          `json:"total_seats" db:"total_seats"`
	AvailableSeats   int          `json:"available_seats" db:"available_seats"`
	EconomyPrice     float64      `json:"economy_price" db:"economy_price"`
	BusinessPrice    float64      `json:"business_price" db:"business_price"`
	FirstClassPrice  float64      `json:"first_class_price" db:"first_class_price"`
	Status           FlightStatus `json:"status" db:"status"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// PriceForClass returns the fare for the given cabin class
func (f *Flight) PriceForClass(class CabinClass) float64 {
	switch class {
	case CabinBusiness:
		return f.BusinessPrice
	case CabinFirst:
		return f.FirstClassPrice
	default:
		return f.EconomyPrice
	}
}

// IsBookable reports whether new tickets may be created against the flight
func (f *Flight) IsBookable() bool {
	return f.Status == FlightStatusScheduled && f.DepartureTime.After(time.Now())
}

// CabinRows describes how many seat rows a cabin class occupies in a layout
type CabinRows struct {
	Class        CabinClass `json:"class"`
	Rows         int        `json:"rows"`
	SeatsPerRow  int        `json:"seats_per_row"`
}

// CreateFlightRequest is the admin request to create a flight with its seat layout
type CreateFlightRequest struct {
	FlightCode      string      `json:"flight_code" binding:"required"`
	Origin          string      `json:"origin" binding:"required"`
	Destination     string      `json:"destination" binding:"required"`
	DepartureTime   time.Time   `json:"departure_time" binding:"required"`
	ArrivalTime     time.Time   `json:"arrival_time" binding:"required"`
	EconomyPrice    float64     `json:"economy_price" binding:"required"`
	BusinessPrice   float64     `json:"business_price"`
	FirstClassPrice float64     `json:"first_class_price"`
	Layout          []CabinRows `json:"layout" binding:"required"`
}

// Validate checks the request before any mutation
func (r *CreateFlightRequest) Validate() error {
	if !r.ArrivalTime.After(r.DepartureTime) {
		return NewValidationError("arrival_time", "must be after departure_time")
	}
	if r.EconomyPrice <= 0 {
		return NewValidationError("economy_price", "must be positive")
	}
	if len(r.Layout) == 0 {
		return NewValidationError("layout", "at least one cabin section is required")
	}
	for _, section := range r.Layout {
		if !section.Class.Valid() {
			return NewValidationError("layout", "unknown cabin class: "+string(section.Class))
		}
		if section.Rows <= 0 || section.SeatsPerRow <= 0 || section.SeatsPerRow > 10 {
			return NewValidationError("layout", "rows and seats_per_row must be positive (max 10 seats per row)")
		}
	}
	return nil
}

// TotalSeatCount returns the seat count implied by the layout
func (r *CreateFlightRequest) TotalSeatCount() int {
	total := 0
	for _, section := range r.Layout {
		total += section.Rows * section.SeatsPerRow
	}
	return total
}

// UpdateFlightRequest is the admin request to update flight details.
// Seat counts are not updatable here; they move only with ticket lifecycle.
type UpdateFlightRequest struct {
	Origin          *string    `json:"origin"`
	Destination     *string    `json:"destination"`
	DepartureTime   *time.Time `json:"departure_time"`
	ArrivalTime     *time.Time `json:"arrival_time"`
	EconomyPrice    *float64   `json:"economy_price"`
	BusinessPrice   *float64   `json:"business_price"`
	FirstClassPrice *float64   `json:"first_class_price"`
	Status          *string    `json:"status"`
}
