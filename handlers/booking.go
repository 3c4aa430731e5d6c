package handlers

import (
	"net/http"

	"seatbook/middleware"
	"seatbook/services/booking"
	"seatbook/utils"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(service booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: service}
}

// CreateBooking reserves seats for the authenticated account.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req booking.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body", err.Error())
		return
	}
	req.RequesterID = c.GetString(middleware.ContextAccountID)

	b, err := h.Service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	b, err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextAccountID))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) MyBookings(c *gin.Context) {
	bookings, err := h.Service.ListOwnerBookings(c.Request.Context(), c.GetString(middleware.ContextAccountID))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// TripAvailability returns the seat map of a trip for ?date=YYYY-MM-DD.
func (h *BookingHandler) TripAvailability(c *gin.Context) {
	av, err := h.Service.Availability(c.Request.Context(), c.Param("tripId"), c.Query("date"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}
