package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/services"
)

// AuditHandler serves the admin audit trail endpoints
type AuditHandler struct {
	auditService *services.AuditService
	logger       *logrus.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService, logger *logrus.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// UserActivity handles GET /api/v1/admin/users/:id/activity
func (h *AuditHandler) UserActivity(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid user ID",
		})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	events, err := h.auditService.GetRecentEvents(userID, limit)
	if err != nil {
		h.logger.WithField("user_id", userID).WithError(err).Error("Failed to fetch audit events")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"events": events,
		"count":  len(events),
	})
}
