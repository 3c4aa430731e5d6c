package handlers

import (
	"errors"
	"net/http"

	tripRepo "seatbook/database/repository/trip"
	"seatbook/middleware"
	"seatbook/models"
	"seatbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TripHandler struct {
	Trips tripRepo.TripRepository
}

func NewTripHandler(trips tripRepo.TripRepository) *TripHandler {
	return &TripHandler{Trips: trips}
}

type tripRequest struct {
	RouteName   string  `json:"routeName" binding:"required"`
	TotalSeats  int     `json:"totalSeats" binding:"required,min=1,max=500"`
	FarePerSeat float64 `json:"farePerSeat" binding:"gte=0"`
	Currency    string  `json:"currency" binding:"required,len=3"`
}

// UpsertTrip creates or updates a trip owned by the calling operator.
func (h *TripHandler) UpsertTrip(c *gin.Context) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body", err.Error())
		return
	}
	ctx := c.Request.Context()
	operatorID := c.GetString(middleware.ContextAccountID)
	tripID := c.Param("tripId")

	existing, err := h.Trips.GetByID(ctx, tripID)
	switch {
	case err == nil && existing.OperatorID != operatorID:
		utils.JSONError(c, http.StatusForbidden, "FORBIDDEN", "Trip belongs to another operator", "")
		return
	case err != nil && !errors.Is(err, tripRepo.ErrNotFound):
		getLogger(c).Error("trip lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Could not load trip", "")
		return
	}

	trip := models.Trip{
		ID:          tripID,
		OperatorID:  operatorID,
		RouteName:   req.RouteName,
		TotalSeats:  req.TotalSeats,
		FarePerSeat: req.FarePerSeat,
		Currency:    req.Currency,
	}
	if err := h.Trips.Upsert(ctx, trip); err != nil {
		getLogger(c).Error("trip upsert failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Could not save trip", "")
		return
	}
	c.JSON(http.StatusOK, trip)
}
