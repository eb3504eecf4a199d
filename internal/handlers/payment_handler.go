package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/middleware"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/services"
	"github.com/skyreserve/flight-booking-backend/internal/utils"
)

// maxWebhookBodySize caps gateway webhook payloads at 64KB
const maxWebhookBodySize = 64 * 1024

// PaymentHandler serves card payment and refund endpoints plus the
// gateway webhook receiver.
type PaymentHandler struct {
	paymentService *services.PaymentService
	auditService   *services.AuditService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *services.PaymentService, auditService *services.AuditService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		auditService:   auditService,
		logger:         logger,
	}
}

// InitiatePayment handles POST /api/v1/tickets/:id/payment/initiate
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid ticket ID",
		})
		return
	}

	ticket, intent, err := h.paymentService.InitiateCardPayment(c.Request.Context(), user.UserID, ticketID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ticket_id": ticketID,
			"user_id":   user.UserID,
		}).WithError(err).Error("Failed to initiate card payment")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"intent_id": intent.IntentID,
		"amount":    ticket.FinalAmount,
	}).Info("Card payment initiated")

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"ticket":       ticket,
		"intent_id":    intent.IntentID,
		"client_token": intent.ClientToken,
		"payment_page": intent.PaymentPage,
	})
}

// ConfirmPayment handles POST /api/v1/tickets/:id/payment/confirm.
// Client-side confirmation is a hint; the webhook remains the source of
// truth, so a webhook that already settled the ticket makes this a no-op.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid ticket ID",
		})
		return
	}

	ticket, err := h.paymentService.ConfirmPayment(c.Request.Context(), user.UserID, ticketID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ticket_id": ticketID,
			"user_id":   user.UserID,
		}).WithError(err).Error("Failed to confirm payment")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"ticket": ticket,
	})
}

// Refund handles POST /api/v1/tickets/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid ticket ID",
		})
		return
	}

	ticket, err := h.paymentService.Refund(c.Request.Context(), user.UserID, ticketID, user.IsAdmin())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"ticket_id": ticketID,
			"user_id":   user.UserID,
		}).WithError(err).Error("Failed to refund ticket")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
		"amount":      ticket.FinalAmount,
	}).Info("Ticket refunded")

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"ticket": ticket,
	})
}

// HandleWebhook handles POST /api/v1/payments/webhook. Unauthenticated;
// the HMAC signature over the raw body is the only trust anchor, so the
// body must be read before any JSON binding touches it.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Unable to read request body",
		})
		return
	}

	signature := c.GetHeader("X-Gateway-Signature")
	ipAddress := utils.GetRealIP(c)

	if err := h.paymentService.HandleWebhookEvent(c.Request.Context(), body, signature, ipAddress); err != nil {
		var valErr *models.ValidationError
		if errors.As(err, &valErr) {
			// Rejected before any state moved, usually a bad signature
			if auditErr := h.auditService.LogSuspiciousActivity(nil, "webhook_rejected",
				ipAddress, utils.GetUserAgent(c), map[string]interface{}{
					"reason": valErr.Message,
				}); auditErr != nil {
				h.logger.WithError(auditErr).Error("Failed to audit rejected webhook")
			}
		}
		h.logger.WithFields(logrus.Fields{
			"ip_address": ipAddress,
		}).WithError(err).Error("Webhook processing failed")
		// Non-2xx tells the gateway to retry delivery later
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
	})
}
