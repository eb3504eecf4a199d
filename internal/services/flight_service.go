package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// FlightService handles flight management and the seat layout lifecycle
type FlightService struct {
	flightRepo *database.FlightRepository
	seatRepo   *database.SeatRepository
	logger     *logrus.Logger
}

// NewFlightService creates a new FlightService
func NewFlightService(
	flightRepo *database.FlightRepository,
	seatRepo *database.SeatRepository,
	logger *logrus.Logger,
) *FlightService {
	return &FlightService{
		flightRepo: flightRepo,
		seatRepo:   seatRepo,
		logger:     logger,
	}
}

// Create creates a flight and generates its seat map from the cabin layout
// in one transaction.
func (s *FlightService) Create(req *models.CreateFlightRequest) (*models.Flight, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(req.FlightCode))
	existing, err := s.flightRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("flight_code", "flight code already exists")
	}

	totalSeats := req.TotalSeatCount()
	flight := &models.Flight{
		FlightCode:      code,
		Origin:          req.Origin,
		Destination:     req.Destination,
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		TotalSeats:      totalSeats,
		AvailableSeats:  totalSeats,
		EconomyPrice:    req.EconomyPrice,
		BusinessPrice:   req.BusinessPrice,
		FirstClassPrice: req.FirstClassPrice,
		Status:          models.FlightStatusScheduled,
	}

	tx, err := s.flightRepo.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.flightRepo.CreateFlight(tx, flight); err != nil {
		return nil, err
	}

	created, err := s.seatRepo.CreateLayout(tx, flight.ID, req.Layout)
	if err != nil {
		return nil, err
	}
	if created != totalSeats {
		return nil, fmt.Errorf("seat layout generated %d seats, expected %d", created, totalSeats)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"flight_id":   flight.ID,
		"flight_code": flight.FlightCode,
		"total_seats": totalSeats,
	}).Info("Flight created")

	return flight, nil
}

// Get retrieves a flight by code
func (s *FlightService) Get(flightCode string) (*models.Flight, error) {
	flight, err := s.flightRepo.GetByCode(strings.ToUpper(strings.TrimSpace(flightCode)))
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, models.NewNotFoundError("flight")
	}
	return flight, nil
}

// List returns upcoming flights
func (s *FlightService) List(limit, offset int) ([]models.Flight, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.flightRepo.ListUpcoming(limit, offset)
}

// Update edits a flight's schedule, fares or status
func (s *FlightService) Update(flightID uuid.UUID, req *models.UpdateFlightRequest) (*models.Flight, error) {
	flight, err := s.flightRepo.GetByID(flightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, models.NewNotFoundError("flight")
	}

	if req.Origin != nil {
		origin := strings.TrimSpace(*req.Origin)
		if origin == "" {
			return nil, models.NewValidationError("origin", "must not be empty")
		}
		flight.Origin = origin
	}
	if req.Destination != nil {
		destination := strings.TrimSpace(*req.Destination)
		if destination == "" {
			return nil, models.NewValidationError("destination", "must not be empty")
		}
		flight.Destination = destination
	}
	if req.DepartureTime != nil {
		flight.DepartureTime = *req.DepartureTime
	}
	if req.ArrivalTime != nil {
		flight.ArrivalTime = *req.ArrivalTime
	}
	if !flight.ArrivalTime.After(flight.DepartureTime) {
		return nil, models.NewValidationError("arrival_time", "must be after departure_time")
	}
	if req.EconomyPrice != nil {
		if *req.EconomyPrice <= 0 {
			return nil, models.NewValidationError("economy_price", "must be positive")
		}
		flight.EconomyPrice = *req.EconomyPrice
	}
	if req.BusinessPrice != nil {
		flight.BusinessPrice = *req.BusinessPrice
	}
	if req.FirstClassPrice != nil {
		flight.FirstClassPrice = *req.FirstClassPrice
	}
	if req.Status != nil {
		status := models.FlightStatus(*req.Status)
		switch status {
		case models.FlightStatusScheduled, models.FlightStatusDeparted, models.FlightStatusCancelled:
			flight.Status = status
		default:
			return nil, models.NewValidationError("status", "must be scheduled, departed or cancelled")
		}
	}

	if err := s.flightRepo.UpdateFlight(flight); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"flight_id":   flight.ID,
		"flight_code": flight.FlightCode,
	}).Info("Flight updated")

	return flight, nil
}

// Delete removes a flight and its seat map. Flights with active tickets
// cannot be deleted.
func (s *FlightService) Delete(flightID uuid.UUID) error {
	flight, err := s.flightRepo.GetByID(flightID)
	if err != nil {
		return err
	}
	if flight == nil {
		return models.NewNotFoundError("flight")
	}

	if err := s.flightRepo.DeleteFlight(flightID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"flight_id":   flight.ID,
		"flight_code": flight.FlightCode,
	}).Info("Flight deleted")

	return nil
}
