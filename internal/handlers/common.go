package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// respondError writes the error envelope with the status mapped from the
// error's type. Unknown errors become a generic 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	status := models.ErrorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Something went wrong. Please try again later."
	}
	c.JSON(status, gin.H{
		"status":  "error",
		"message": message,
	})
}

// respondBindError writes the envelope for a failed request binding
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status":  "error",
		"message": "Invalid request format",
		"error":   err.Error(),
	})
}

// pagination reads limit/offset query params with sane bounds
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
