package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/services"
)

// FlightHandler serves the flight catalog and the seat map endpoints
type FlightHandler struct {
	flightService *services.FlightService
	seatService   *services.SeatService
	logger        *logrus.Logger
}

// NewFlightHandler creates a new flight handler
func NewFlightHandler(flightService *services.FlightService, seatService *services.SeatService, logger *logrus.Logger) *FlightHandler {
	return &FlightHandler{
		flightService: flightService,
		seatService:   seatService,
		logger:        logger,
	}
}

// CreateFlight handles POST /api/v1/admin/flights
func (h *FlightHandler) CreateFlight(c *gin.Context) {
	var req models.CreateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid create flight request")
		respondBindError(c, err)
		return
	}

	flight, err := h.flightService.Create(&req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"flight_code": req.FlightCode,
		}).WithError(err).Error("Failed to create flight")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"flight_id":   flight.ID,
		"flight_code": flight.FlightCode,
		"total_seats": flight.TotalSeats,
	}).Info("Flight created")

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"flight": flight,
	})
}

// ListFlights handles GET /api/v1/flights
func (h *FlightHandler) ListFlights(c *gin.Context) {
	limit, offset := pagination(c)

	flights, err := h.flightService.List(limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list flights")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"flights": flights,
		"count":   len(flights),
	})
}

// GetFlight handles GET /api/v1/flights/:code
func (h *FlightHandler) GetFlight(c *gin.Context) {
	flight, err := h.flightService.Get(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"flight": flight,
	})
}

// UpdateFlight handles PATCH /api/v1/admin/flights/:id
func (h *FlightHandler) UpdateFlight(c *gin.Context) {
	flightID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid flight ID",
		})
		return
	}

	var req models.UpdateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	flight, err := h.flightService.Update(flightID, &req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"flight_id": flightID,
		}).WithError(err).Error("Failed to update flight")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"flight": flight,
	})
}

// DeleteFlight handles DELETE /api/v1/admin/flights/:id
func (h *FlightHandler) DeleteFlight(c *gin.Context) {
	flightID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid flight ID",
		})
		return
	}

	if err := h.flightService.Delete(flightID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"flight_id": flightID,
		}).WithError(err).Error("Failed to delete flight")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Flight deleted",
	})
}

// GetSeatMap handles GET /api/v1/flights/:code/seats
func (h *FlightHandler) GetSeatMap(c *gin.Context) {
	seatMap, err := h.seatService.GetSeatMap(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"seat_map": seatMap,
	})
}

// BlockSeats handles POST /api/v1/admin/flights/:id/seats/block
func (h *FlightHandler) BlockSeats(c *gin.Context) {
	flightID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid flight ID",
		})
		return
	}

	var req models.BlockSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.seatService.BlockSeats(flightID, &req); err != nil {
		h.logger.WithFields(logrus.Fields{
			"flight_id":  flightID,
			"seat_count": len(req.SeatNumbers),
		}).WithError(err).Error("Failed to block seats")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"flight_id":  flightID,
		"seat_count": len(req.SeatNumbers),
		"reason":     req.Reason,
	}).Info("Seats blocked")

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Seats blocked",
	})
}

// UnblockSeats handles POST /api/v1/admin/flights/:id/seats/unblock
func (h *FlightHandler) UnblockSeats(c *gin.Context) {
	flightID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid flight ID",
		})
		return
	}

	var req models.BlockSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.seatService.UnblockSeats(flightID, req.SeatNumbers); err != nil {
		h.logger.WithFields(logrus.Fields{
			"flight_id": flightID,
		}).WithError(err).Error("Failed to unblock seats")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Seats unblocked",
	})
}

// ReconcileFlight handles GET /api/v1/admin/flights/:id/reconcile
func (h *FlightHandler) ReconcileFlight(c *gin.Context) {
	flightID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid flight ID",
		})
		return
	}

	report, err := h.seatService.Reconcile(flightID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !report.Consistent {
		h.logger.WithFields(logrus.Fields{
			"flight_id": flightID,
		}).Warn("Seat map reconciliation found drift")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"reconciliation": report,
	})
}
