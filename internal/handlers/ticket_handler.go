package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/middleware"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/services"
	"github.com/skyreserve/flight-booking-backend/internal/utils"
)

// TicketHandler serves the booking lifecycle endpoints
type TicketHandler struct {
	bookingService *services.BookingService
	auditService   *services.AuditService
	logger         *logrus.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(bookingService *services.BookingService, auditService *services.AuditService, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{
		bookingService: bookingService,
		auditService:   auditService,
		logger:         logger,
	}
}

// BookTicket handles POST /api/v1/tickets
func (h *TicketHandler) BookTicket(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.BookTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid booking request")
		respondBindError(c, err)
		return
	}

	ticket, err := h.bookingService.BookTicket(user.UserID, &req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"user_id":     user.UserID,
			"flight_code": req.FlightCode,
			"seat_count":  len(req.Seats),
		}).WithError(err).Error("Failed to book ticket")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
		"user_id":     user.UserID,
		"flight_id":   ticket.FlightID,
		"total_amount": ticket.TotalAmount,
		"final_amount": ticket.FinalAmount,
	}).Info("Ticket booked")

	seatNumbers := make([]string, 0, len(req.Seats))
	for _, s := range req.Seats {
		seatNumbers = append(seatNumbers, s.SeatNumber)
	}
	h.auditService.LogBookingCreated(user.UserID, ticket.ID, utils.GetRealIP(c), utils.GetUserAgent(c), seatNumbers)

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"ticket": ticket,
	})
}

// ListTickets handles GET /api/v1/tickets
func (h *TicketHandler) ListTickets(c *gin.Context) {
	user := middleware.MustGetUserContext(c)
	limit, offset := pagination(c)

	tickets, err := h.bookingService.ListTickets(user.UserID, limit, offset)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"user_id": user.UserID,
		}).WithError(err).Error("Failed to list tickets")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// GetTicket handles GET /api/v1/tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// Fall back to ticket code lookup for human-readable references
		ticket, lookupErr := h.bookingService.GetTicketByCode(c.Param("id"), user.UserID, user.IsAdmin())
		if lookupErr != nil {
			respondError(c, lookupErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"ticket": ticket,
		})
		return
	}

	ticket, err := h.bookingService.GetTicket(ticketID, user.UserID, user.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"ticket": ticket,
	})
}

// CancelTicket handles POST /api/v1/tickets/:id/cancel
func (h *TicketHandler) CancelTicket(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid ticket ID",
		})
		return
	}

	var req models.CancelTicketRequest
	_ = c.ShouldBindJSON(&req)

	ticket, err := h.bookingService.CancelTicket(ticketID, user.UserID, user.IsAdmin())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ticket_id": ticketID,
			"user_id":   user.UserID,
		}).WithError(err).Error("Failed to cancel ticket")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
		"reason":      req.Reason,
	}).Info("Ticket cancelled")

	h.auditService.LogTicketCancelled(user.UserID, ticket.ID, utils.GetRealIP(c), utils.GetUserAgent(c), req.Reason)

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"ticket": ticket,
	})
}

// CheckIn handles POST /api/v1/tickets/:id/check-in
func (h *TicketHandler) CheckIn(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid ticket ID",
		})
		return
	}

	ticket, err := h.bookingService.CheckIn(ticketID, user.UserID, user.IsAdmin())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ticket_id": ticketID,
			"user_id":   user.UserID,
		}).WithError(err).Error("Failed to check in")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
	}).Info("Passenger checked in")

	h.auditService.LogCheckIn(user.UserID, ticket.ID, utils.GetRealIP(c), utils.GetUserAgent(c))

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"ticket": ticket,
	})
}
