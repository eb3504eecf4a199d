package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/config"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/pkg/validator"
)

// BookingService handles the ticket lifecycle from booking to check-in.
// Seat reservation is transactional: the seat map flips and the flight's
// available counter move in the same database transaction, so a partially
// booked selection can never be observed.
type BookingService struct {
	flightRepo *database.FlightRepository
	seatRepo   *database.SeatRepository
	ticketRepo *database.TicketRepository
	couponSvc  *CouponService
	cfg        *config.BookingConfig
	phones     *validator.PhoneValidator
	logger     *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	flightRepo *database.FlightRepository,
	seatRepo *database.SeatRepository,
	ticketRepo *database.TicketRepository,
	couponSvc *CouponService,
	cfg *config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		flightRepo: flightRepo,
		seatRepo:   seatRepo,
		ticketRepo: ticketRepo,
		couponSvc:  couponSvc,
		cfg:        cfg,
		phones:     validator.NewPhoneValidator(),
		logger:     logger,
	}
}

// BookTicket creates a pending ticket holding the requested seats.
// The seats stay held until payment settles or the payment deadline passes.
func (s *BookingService) BookTicket(userID uuid.UUID, req *models.BookTicketRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.PassengerCount > s.cfg.MaxPassengers {
		return nil, models.NewValidationError("passenger_count",
			fmt.Sprintf("cannot book more than %d seats per ticket", s.cfg.MaxPassengers))
	}
	sanitizedPhone, err := s.phones.Validate(req.PassengerPhone)
	if err != nil {
		return nil, models.NewValidationError("passenger_phone", err.Error())
	}
	req.PassengerPhone = sanitizedPhone

	flight, err := s.flightRepo.GetByCode(req.FlightCode)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, models.NewNotFoundError("flight")
	}
	if !flight.IsBookable() {
		return nil, models.NewValidationError("flight_code", "flight is not open for booking")
	}

	seatNumbers := make([]string, 0, len(req.Seats))
	for _, sel := range req.Seats {
		seatNumbers = append(seatNumbers, sel.SeatNumber)
	}

	seats, err := s.seatRepo.GetByNumbers(flight.ID, seatNumbers)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(seatNumbers) {
		return nil, models.NewValidationError("seats", "one or more seats do not exist on this flight")
	}
	for _, seat := range seats {
		if seat.Status != models.SeatStatusAvailable {
			return nil, models.NewConflictError(models.ConflictSeatsUnavailable,
				fmt.Sprintf("seat %s is not available", seat.SeatNumber))
		}
	}

	// Price the selection from the flight's per-class fares
	var totalAmount float64
	ticketSeats := make([]models.TicketSeat, 0, len(seats))
	for _, seat := range seats {
		price := flight.PriceForClass(seat.Class)
		totalAmount += price
		ticketSeats = append(ticketSeats, models.TicketSeat{
			SeatNumber: seat.SeatNumber,
			Class:      seat.Class,
			Price:      price,
		})
	}

	// Quote the coupon against the order; redemption is deferred until the
	// payment settles.
	var discountAmount float64
	var couponID *uuid.UUID
	if req.CouponCode != nil && *req.CouponCode != "" {
		quote, err := s.couponSvc.Quote(*req.CouponCode, totalAmount, flight.ID, userID)
		if err != nil {
			return nil, err
		}
		discountAmount = quote.DiscountAmount
		couponID = &quote.CouponID
	}

	ticketCode, err := s.ticketRepo.GenerateTicketCode()
	if err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		TicketCode:      ticketCode,
		FlightID:        flight.ID,
		UserID:          userID,
		PassengerName:   req.PassengerName,
		PassengerPhone:  req.PassengerPhone,
		PassengerEmail:  req.PassengerEmail,
		PassengerCount:  req.PassengerCount,
		TotalAmount:     totalAmount,
		DiscountAmount:  discountAmount,
		FinalAmount:     totalAmount - discountAmount,
		CouponID:        couponID,
		Status:          models.TicketStatusBooked,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentDeadline: time.Now().Add(s.cfg.PaymentDeadline),
		Seats:           ticketSeats,
	}

	tx, err := s.flightRepo.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Decrement the flight counter first; the conditional update fails the
	// whole booking when the flight is out of seats.
	if err := s.flightRepo.ReserveSeatCount(tx, flight.ID, len(seatNumbers)); err != nil {
		return nil, err
	}

	if err := s.ticketRepo.CreateTicket(tx, ticket); err != nil {
		return nil, err
	}

	// Flip the seat map entries. The conditional update counts only seats
	// that were still available, so a concurrent booking of any requested
	// seat aborts this one.
	booked, err := s.seatRepo.BookSeats(tx, flight.ID, seatNumbers, ticket.ID)
	if err != nil {
		return nil, err
	}
	if booked != len(seatNumbers) {
		return nil, models.NewConflictError(models.ConflictSeatsUnavailable,
			"one or more seats were taken by another booking")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id":    ticket.ID,
		"ticket_code":  ticket.TicketCode,
		"flight_code":  flight.FlightCode,
		"user_id":      userID,
		"seats":        seatNumbers,
		"final_amount": ticket.FinalAmount,
	}).Info("Ticket booked")

	return ticket, nil
}

// GetTicket retrieves a ticket with its seats, enforcing ownership.
// Admin callers pass isAdmin to bypass the ownership check.
func (s *BookingService) GetTicket(ticketID, userID uuid.UUID, isAdmin bool) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.NewNotFoundError("ticket")
	}
	if !isAdmin && ticket.UserID != userID {
		return nil, models.NewForbiddenError("ticket belongs to another user")
	}

	if err := s.attachSeats(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicketByCode retrieves a ticket by its public code
func (s *BookingService) GetTicketByCode(ticketCode string, userID uuid.UUID, isAdmin bool) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByCode(ticketCode)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.NewNotFoundError("ticket")
	}
	if !isAdmin && ticket.UserID != userID {
		return nil, models.NewForbiddenError("ticket belongs to another user")
	}

	if err := s.attachSeats(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns a user's tickets newest first
func (s *BookingService) ListTickets(userID uuid.UUID, limit, offset int) ([]models.Ticket, error) {
	return s.ticketRepo.ListByUser(userID, limit, offset)
}

// CancelTicket cancels an unpaid ticket and releases its seats.
// Paid tickets must go through the refund path.
func (s *BookingService) CancelTicket(ticketID, userID uuid.UUID, isAdmin bool) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.NewNotFoundError("ticket")
	}
	if !isAdmin && ticket.UserID != userID {
		return nil, models.NewForbiddenError("ticket belongs to another user")
	}
	if !ticket.CanCancel() {
		return nil, models.NewStateConflictError("ticket", string(ticket.PaymentStatus))
	}

	if err := s.ReleaseSeats(ticket, s.ticketRepo.MarkCancelledTx); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
	}).Info("Ticket cancelled")

	return s.ticketRepo.GetByID(ticketID)
}

// CheckIn marks a paid ticket as checked in. Checked-in tickets become
// non-refundable.
func (s *BookingService) CheckIn(ticketID, userID uuid.UUID, isAdmin bool) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.NewNotFoundError("ticket")
	}
	if !isAdmin && ticket.UserID != userID {
		return nil, models.NewForbiddenError("ticket belongs to another user")
	}
	if !ticket.CanCheckIn() {
		return nil, models.NewStateConflictError("ticket", string(ticket.Status))
	}

	flight, err := s.flightRepo.GetByID(ticket.FlightID)
	if err != nil {
		return nil, err
	}
	if flight != nil && time.Now().After(flight.DepartureTime) {
		return nil, models.NewValidationError("ticket", "flight has already departed")
	}

	checkedIn, err := s.ticketRepo.MarkCheckedIn(ticket.ID)
	if err != nil {
		return nil, err
	}
	if !checkedIn {
		return nil, models.NewStateConflictError("ticket", string(ticket.Status))
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
	}).Info("Passenger checked in")

	return s.ticketRepo.GetByID(ticketID)
}

// ReleaseSeats applies a terminal ticket transition and returns the ticket's
// seats to the pool in one transaction. The transition callback runs a
// state-guarded update; when the guard loses a race the release is skipped
// and the seats stay with whichever path won.
func (s *BookingService) ReleaseSeats(ticket *models.Ticket, transition func(tx *sqlx.Tx, ticketID uuid.UUID) (bool, error)) error {
	tx, err := s.flightRepo.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transitioned, err := transition(tx, ticket.ID)
	if err != nil {
		return err
	}
	if !transitioned {
		return models.NewStateConflictError("ticket", string(ticket.PaymentStatus))
	}

	released, err := s.seatRepo.ReleaseSeatsByTicket(tx, ticket.ID)
	if err != nil {
		return err
	}
	if released > 0 {
		if err := s.flightRepo.ReleaseSeatCount(tx, ticket.FlightID, released); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// attachSeats loads the ticket's seats from the seat map
func (s *BookingService) attachSeats(ticket *models.Ticket) error {
	seats, err := s.seatRepo.GetByTicket(ticket.ID)
	if err != nil {
		return err
	}

	flight, err := s.flightRepo.GetByID(ticket.FlightID)
	if err != nil {
		return err
	}

	ticket.Seats = make([]models.TicketSeat, 0, len(seats))
	for _, seat := range seats {
		ts := models.TicketSeat{
			SeatNumber: seat.SeatNumber,
			Class:      seat.Class,
		}
		if flight != nil {
			ts.Price = flight.PriceForClass(seat.Class)
		}
		ticket.Seats = append(ticket.Seats, ts)
	}
	return nil
}
