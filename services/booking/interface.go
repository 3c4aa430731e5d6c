package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "seatbook/database/repository/booking"
	"seatbook/models"
	"seatbook/services/notifier"
	"seatbook/services/seatlock"
	"seatbook/services/tasks"

	"go.uber.org/zap"
)

// BookingService is the transaction coordinator for seat bookings.
type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, requesterID string) (*models.Booking, error)
	Availability(ctx context.Context, tripID, date string) (*models.Availability, error)
	ListOwnerBookings(ctx context.Context, accountID string) ([]models.Booking, error)
}

// CreateBookingRequest asks for a set of seats on one trip and date, one
// passenger per seat in the same order.
type CreateBookingRequest struct {
	TripID      string             `json:"tripId"`
	Date        string             `json:"date"`
	Seats       []int              `json:"seats"`
	Passengers  []models.Passenger `json:"passengers"`
	RequesterID string             `json:"-"`
}

// SeatLocker is the subset of the seat lock store the coordinator uses.
type SeatLocker interface {
	AcquireAll(ctx context.Context, tripID, date string, seats []int, holderID string, ttl time.Duration) (seatlock.AcquireResult, error)
	ReleaseHeld(ctx context.Context, tripID, date string, seats []int, holderID string) (int, error)
	ListLocked(ctx context.Context, tripID, date string) ([]int, error)
}

// TripReader loads the trip a booking is made on.
type TripReader interface {
	GetByID(ctx context.Context, tripID string) (*models.Trip, error)
}

// DefaultBookingService implements BookingService. Every collaborator is
// injected at construction.
type DefaultBookingService struct {
	Repo     bookingRepo.BookingRepository
	Trips    TripReader
	Locks    SeatLocker
	Cache    ReadCache
	Notifier notifier.Publisher
	Jobs     tasks.Dispatcher
	Logger   *zap.Logger

	LockTTL  time.Duration
	CacheTTL time.Duration

	now func() time.Time
}

func NewDefaultBookingService(svc DefaultBookingService) (*DefaultBookingService, error) {
	if svc.Repo == nil || svc.Trips == nil || svc.Locks == nil || svc.Cache == nil || svc.Notifier == nil || svc.Jobs == nil {
		return nil, errors.New("booking service initialization error: missing dependency")
	}
	if svc.Logger == nil {
		svc.Logger = zap.NewNop()
	}
	if svc.LockTTL <= 0 {
		svc.LockTTL = seatlock.DefaultTTL
	}
	if svc.CacheTTL <= 0 {
		svc.CacheTTL = time.Minute
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return &svc, nil
}
