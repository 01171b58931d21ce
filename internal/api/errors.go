package api

import (
	"errors"
	"net/http"

	"github.com/ashendes/storefront/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrPaymentInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrNotEnoughStock),
		errors.Is(err, models.ErrAlreadyPaid),
		errors.Is(err, models.ErrPaymentDeclined),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, models.ErrEmptyCart):
		return "No items in cart"
	case errors.Is(err, models.ErrNotEnoughStock):
		return "Not enough stock"
	case errors.Is(err, models.ErrAlreadyPaid):
		return "Order is already paid"
	case errors.Is(err, models.ErrPaymentDeclined):
		return "Payment failed"
	case errors.Is(err, models.ErrGatewayUnavailable):
		return "Payment service temporarily unavailable"
	case errors.Is(err, models.ErrAccessDenied):
		return "Access denied"
	default:
		return err.Error()
	}
}

// respondError writes the failure envelope for err
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		c.JSON(status, gin.H{
			"success": false,
			"message": messageFor(err),
		})
		return
	}

	log.WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
		"error":  err.Error(),
	}).Error("Request failed")

	body := gin.H{
		"success": false,
		"message": "Server error",
	}
	if gin.Mode() != gin.ReleaseMode {
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}

// respondBindError writes a 400 for a malformed request body or query
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request: " + err.Error(),
	})
}
