package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/database"
)

// ExpirationService handles background expiration of unpaid tickets.
// Tickets whose payment deadline passes are failed and their seats returned
// to the pool.
type ExpirationService struct {
	ticketRepo *database.TicketRepository
	paymentSvc *PaymentService
	logger     *logrus.Logger
	stopCh     chan struct{}
	interval   time.Duration
}

// NewExpirationService creates a new expiration service
func NewExpirationService(
	ticketRepo *database.TicketRepository,
	paymentSvc *PaymentService,
	interval time.Duration,
	logger *logrus.Logger,
) *ExpirationService {
	return &ExpirationService{
		ticketRepo: ticketRepo,
		paymentSvc: paymentSvc,
		logger:     logger,
		stopCh:     make(chan struct{}),
		interval:   interval,
	}
}

// Start begins the background expiration job
func (s *ExpirationService) Start() {
	s.logger.WithField("interval", s.interval.String()).Info("Starting ticket expiration service")
	go s.run()
}

// Stop stops the background expiration job
func (s *ExpirationService) Stop() {
	s.logger.Info("Stopping ticket expiration service")
	close(s.stopCh)
}

func (s *ExpirationService) run() {
	// Run immediately on start
	s.processExpiredTickets()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processExpiredTickets()
		case <-s.stopCh:
			s.logger.Info("Ticket expiration service stopped")
			return
		}
	}
}

// processExpiredTickets finds and fails pending tickets past their deadline
func (s *ExpirationService) processExpiredTickets() {
	// Process up to 100 per cycle; the rest are picked up next tick
	expired, err := s.ticketRepo.ListExpiredPending(100)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list expired tickets")
		return
	}

	if len(expired) == 0 {
		return
	}

	s.logger.WithField("count", len(expired)).Info("Processing expired tickets")

	ctx := context.Background()
	for i := range expired {
		ticket := &expired[i]
		if err := s.paymentSvc.ExpireTicket(ctx, ticket); err != nil {
			s.logger.WithError(err).WithField("ticket_id", ticket.ID).Error("Failed to expire ticket")
		}
	}
}

// RunOnce runs a single expiration cycle (useful for testing or manual trigger)
func (s *ExpirationService) RunOnce() {
	s.processExpiredTickets()
}
