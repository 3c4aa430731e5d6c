package routes

import (
	"net/http"
	"time"

	"seatbook/handlers"
	"seatbook/middleware"
	"seatbook/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers login and session endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/register", hb.Register)
		api.POST("/login", hb.Login)

		// Protected routes (Require Authentication)
		api.Use(middleware.SessionAuthMiddleware(hb.Sessions))
		api.POST("/logout", hb.Logout)
		api.GET("/me", hb.Me)
	}
}

// RegisterBookingRoutes sets up the endpoints of the booking engine.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	auth := middleware.SessionAuthMiddleware(hb.Sessions)

	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(auth)
		bookingGroup.POST("", hb.CreateBooking)
		bookingGroup.POST("/:id/cancel", hb.CancelBooking)
		bookingGroup.GET("/mine", hb.MyBookings)
	}

	tripGroup := r.Group("/api/trips")
	{
		tripGroup.Use(auth)
		tripGroup.GET("/:tripId/availability", hb.TripAvailability)
	}
}

// RegisterOperatorRoutes sets up trip management and the live dashboard stream.
func RegisterOperatorRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	operatorGroup := r.Group("/api/operators")
	{
		operatorGroup.Use(middleware.SessionAuthMiddleware(hb.Sessions))
		operatorGroup.Use(middleware.RequireAccountType(models.AccountTypeOperator))
		operatorGroup.PUT("/trips/:tripId", hb.UpsertTrip)
		operatorGroup.GET("/stream", hb.OperatorStream)
	}
}

// RegisterHealthRoute registers a health-check endpoint. Without a monitor it
// only reports that the process is up.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.Health != nil {
		r.GET("/health", hb.Health)
		return
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterAuthRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterOperatorRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
