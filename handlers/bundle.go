package handlers

import (
	"seatbook/middleware"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Sessions middleware.SessionAuthenticator

	// Auth endpoints
	Register gin.HandlerFunc
	Login    gin.HandlerFunc
	Logout   gin.HandlerFunc
	Me       gin.HandlerFunc

	// Booking endpoints
	CreateBooking    gin.HandlerFunc
	CancelBooking    gin.HandlerFunc
	MyBookings       gin.HandlerFunc
	TripAvailability gin.HandlerFunc

	// Operator endpoints
	UpsertTrip     gin.HandlerFunc
	OperatorStream gin.HandlerFunc

	Health gin.HandlerFunc
}
