// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"errors"
	"time"

	"seatbook/database"
	"seatbook/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound         = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	// ErrSeatTaken is returned when the unique index on confirmed passenger
	// seats rejects a write: another booking already holds one of the seats.
	ErrSeatTaken = errors.New("seat already booked")
)

type BookingRepository interface {
	// CreateWithPassengers inserts the header and one passenger row per seat
	// in a single transaction.
	CreateWithPassengers(ctx context.Context, booking *models.Booking) error
	// FindConfirmed returns the confirmed bookings of a trip on a date.
	FindConfirmed(ctx context.Context, tripID, date string) ([]models.Booking, error)
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// Cancel flips a confirmed booking and its passenger rows to cancelled.
	// Exactly one of several concurrent calls succeeds.
	Cancel(ctx context.Context, bookingID string, at time.Time) error
	ListByOwner(ctx context.Context, accountID string) ([]models.Booking, error)
	ListByOperator(ctx context.Context, operatorID string, limit int64) ([]models.Booking, error)
}

type MongoBookingRepo struct {
	bookingColl   *mongo.Collection
	passengerColl *mongo.Collection
}

// NewMongoBookingRepo constructs a new MongoDB BookingRepository.
func NewMongoBookingRepo() *MongoBookingRepo {
	db := database.DB()
	return &MongoBookingRepo{
		bookingColl:   db.Collection("bookings"),
		passengerColl: db.Collection("booking_passengers"),
	}
}
