package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// SeatService handles seat map reads, admin blocks and consistency checks
type SeatService struct {
	flightRepo *database.FlightRepository
	seatRepo   *database.SeatRepository
	logger     *logrus.Logger
}

// NewSeatService creates a new SeatService
func NewSeatService(
	flightRepo *database.FlightRepository,
	seatRepo *database.SeatRepository,
	logger *logrus.Logger,
) *SeatService {
	return &SeatService{
		flightRepo: flightRepo,
		seatRepo:   seatRepo,
		logger:     logger,
	}
}

// GetSeatMap returns the seat grid for a flight
func (s *SeatService) GetSeatMap(flightCode string) (*models.SeatMap, error) {
	flight, err := s.flightRepo.GetByCode(flightCode)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, models.NewNotFoundError("flight")
	}

	seats, err := s.seatRepo.GetByFlight(flight.ID)
	if err != nil {
		return nil, err
	}

	return models.BuildSeatMap(flight, seats), nil
}

// BlockSeats takes seats out of sale for maintenance or operational reasons.
// Only available seats can be blocked; blocking counts against the flight's
// available counter like a booking does.
func (s *SeatService) BlockSeats(flightID uuid.UUID, req *models.BlockSeatsRequest) error {
	if len(req.SeatNumbers) == 0 {
		return models.NewValidationError("seat_numbers", "at least one seat is required")
	}

	flight, err := s.flightRepo.GetByID(flightID)
	if err != nil {
		return err
	}
	if flight == nil {
		return models.NewNotFoundError("flight")
	}

	tx, err := s.seatRepo.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.flightRepo.ReserveSeatCount(tx, flightID, len(req.SeatNumbers)); err != nil {
		return err
	}

	blocked, err := s.seatRepo.BlockSeats(tx, flightID, req.SeatNumbers, req.Reason)
	if err != nil {
		return err
	}
	if blocked != len(req.SeatNumbers) {
		return models.NewConflictError(models.ConflictSeatsUnavailable,
			"one or more seats are not available to block")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"flight_id": flightID,
		"seats":     req.SeatNumbers,
		"reason":    req.Reason,
	}).Info("Seats blocked")

	return nil
}

// UnblockSeats returns blocked seats to the sale pool
func (s *SeatService) UnblockSeats(flightID uuid.UUID, seatNumbers []string) error {
	if len(seatNumbers) == 0 {
		return models.NewValidationError("seat_numbers", "at least one seat is required")
	}

	flight, err := s.flightRepo.GetByID(flightID)
	if err != nil {
		return err
	}
	if flight == nil {
		return models.NewNotFoundError("flight")
	}

	tx, err := s.seatRepo.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	unblocked, err := s.seatRepo.UnblockSeats(tx, flightID, seatNumbers)
	if err != nil {
		return err
	}
	if unblocked != len(seatNumbers) {
		return models.NewValidationError("seat_numbers", "one or more seats are not blocked")
	}

	if err := s.flightRepo.ReleaseSeatCount(tx, flightID, unblocked); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"flight_id": flightID,
		"seats":     seatNumbers,
	}).Info("Seats unblocked")

	return nil
}

// Reconcile compares the seat map against the flight's denormalized
// counters. The seat map is the source of truth; a disagreement means the
// counter drifted and needs operator attention.
func (s *SeatService) Reconcile(flightID uuid.UUID) (*models.SeatReconciliation, error) {
	flight, err := s.flightRepo.GetByID(flightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, models.NewNotFoundError("flight")
	}

	counts, err := s.seatRepo.CountByStatus(flightID)
	if err != nil {
		return nil, err
	}

	available := counts[models.SeatStatusAvailable]
	booked := counts[models.SeatStatusBooked]
	blocked := counts[models.SeatStatusBlocked]

	report := &models.SeatReconciliation{
		FlightID:       flight.ID,
		FlightCode:     flight.FlightCode,
		TotalSeats:     flight.TotalSeats,
		AvailableSeats: flight.AvailableSeats,
		BookedCount:    booked,
		BlockedCount:   blocked,
		AvailableCount: available,
		Consistent: flight.AvailableSeats == available &&
			flight.TotalSeats == available+booked+blocked,
	}

	if !report.Consistent {
		s.logger.WithFields(logrus.Fields{
			"flight_id":       flight.ID,
			"flight_code":     flight.FlightCode,
			"counter":         flight.AvailableSeats,
			"seat_map":        available,
			"booked":          booked,
			"blocked":         blocked,
		}).Error("Seat counter disagrees with seat map")
	}

	return report, nil
}

// ReconcileAll runs the consistency check across upcoming flights and
// returns only the inconsistent ones.
func (s *SeatService) ReconcileAll(limit int) ([]models.SeatReconciliation, error) {
	flights, err := s.flightRepo.ListUpcoming(limit, 0)
	if err != nil {
		return nil, err
	}

	var drifted []models.SeatReconciliation
	for i := range flights {
		report, err := s.Reconcile(flights[i].ID)
		if err != nil {
			s.logger.WithError(err).WithField("flight_id", flights[i].ID).Error("Reconciliation failed")
			continue
		}
		if !report.Consistent {
			drifted = append(drifted, *report)
		}
	}
	return drifted, nil
}
