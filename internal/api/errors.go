package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyroom-backend/internal/booking"
)

// statusFor maps a booking error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Storage failures are logged and hidden from clients.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
