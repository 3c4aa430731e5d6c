package handlers

import (
	"errors"
	"net/http"

	"seatbook/services/booking"
	"seatbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// seatErrorResponse adds the conflicting seats to the standard error body.
type seatErrorResponse struct {
	utils.ErrorResponse
	Seats []int `json:"seats"`
}

// writeBookingError maps coordinator errors to HTTP responses.
func writeBookingError(c *gin.Context, err error) {
	var berr *booking.Error
	if !errors.As(err, &berr) {
		getLogger(c).Error("unexpected booking error", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}

	switch {
	case errors.Is(err, booking.ErrValidationFailed):
		utils.JSONError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid booking request", berr.Message)
	case errors.Is(err, booking.ErrSeatUnavailable):
		c.AbortWithStatusJSON(http.StatusConflict, seatErrorResponse{
			ErrorResponse: utils.ErrorResponse{Code: "SEAT_UNAVAILABLE", Message: "Seats unavailable", Details: berr.Message},
			Seats:         berr.Seats,
		})
	case errors.Is(err, booking.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "NOT_FOUND", "Not found", berr.Message)
	case errors.Is(err, booking.ErrForbidden):
		utils.JSONError(c, http.StatusForbidden, "FORBIDDEN", "Not allowed", berr.Message)
	case errors.Is(err, booking.ErrAlreadyCancelled):
		utils.JSONError(c, http.StatusConflict, "ALREADY_CANCELLED", "Booking already cancelled", "")
	default:
		getLogger(c).Error("booking persistence failure", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Could not complete the booking", "")
	}
}
