package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	bookingRepo "seatbook/database/repository/booking"
	tripRepo "seatbook/database/repository/trip"
	"seatbook/models"
	"seatbook/services/notifier"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sideEffectTimeout bounds the post-commit work that must not depend on the
// request context: lock release, cache invalidation, job enqueue, publish.
const sideEffectTimeout = 3 * time.Second

// CreateBooking reserves the requested seats and persists the booking.
//
// Seats are locked before the persisted state is re-read, so of two
// overlapping attempts exactly one can reach the write. The unique index on
// confirmed passenger seats backs this up at the storage layer.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	log := s.Logger.With(
		zap.String("tripId", req.TripID),
		zap.String("date", req.Date),
		zap.Ints("seats", req.Seats),
		zap.String("requester", req.RequesterID),
	)

	// Step 1: shape
	if err := validateShape(req); err != nil {
		log.Debug("booking rejected", zap.Error(err))
		return nil, err
	}
	trip, err := s.Trips.GetByID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, tripRepo.ErrNotFound) {
			return nil, validationError("unknown trip %s", req.TripID)
		}
		return nil, persistenceError("load trip", err)
	}
	if err := validateSeatRange(req.Seats, trip); err != nil {
		return nil, err
	}

	// Step 2: seats already committed
	if err := s.checkPersistedOverlap(ctx, req.TripID, req.Date, req.Seats); err != nil {
		return nil, err
	}

	// Step 3: seats held by attempts in flight
	holder := req.RequesterID + ":" + uuid.New().String()
	res, err := s.Locks.AcquireAll(ctx, req.TripID, req.Date, req.Seats, holder, s.LockTTL)
	if err != nil {
		return nil, persistenceError("acquire seat locks", err)
	}
	if !res.Success {
		log.Info("booking lost seat lock race", zap.Ints("conflicting", res.Conflicting))
		return nil, seatUnavailable("seats are being booked by someone else", res.Conflicting)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		// Detached so a cancelled request still frees its seats.
		rctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if _, err := s.Locks.ReleaseHeld(rctx, req.TripID, req.Date, req.Seats, holder); err != nil {
			log.Warn("seat lock release failed; TTL will free them", zap.Error(err))
		}
	}
	defer release()

	// A booking may have committed between step 2 and the lock.
	if err := s.checkPersistedOverlap(ctx, req.TripID, req.Date, req.Seats); err != nil {
		return nil, err
	}

	// Step 4: durable write
	booking := &models.Booking{
		ID:             uuid.New().String(),
		TripID:         trip.ID,
		OperatorID:     trip.OperatorID,
		OwnerAccountID: req.RequesterID,
		Date:           req.Date,
		Seats:          append([]int(nil), req.Seats...),
		Passengers:     append([]models.Passenger(nil), req.Passengers...),
		TotalAmount:    trip.FarePerSeat * float64(len(req.Seats)),
		Currency:       trip.Currency,
		Status:         models.BookingStatusConfirmed,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.Repo.CreateWithPassengers(ctx, booking); err != nil {
		if errors.Is(err, bookingRepo.ErrSeatTaken) {
			return nil, seatUnavailable("seats already booked", req.Seats)
		}
		log.Error("booking write failed", zap.Error(err))
		return nil, persistenceError("save booking", err)
	}

	// Step 5: the commit is authoritative now
	release()
	log.Info("booking confirmed", zap.String("bookingId", booking.ID), zap.Float64("total", booking.TotalAmount))

	sctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	s.invalidate(sctx, booking)
	s.enqueueSideEffects(sctx, booking, models.AuditBookingCreated, req.RequesterID)

	// Step 6
	s.publish(sctx, booking, notifier.EventBookingCreated)
	return booking, nil
}

// checkPersistedOverlap fails with ErrSeatUnavailable if any requested seat
// belongs to a confirmed booking.
func (s *DefaultBookingService) checkPersistedOverlap(ctx context.Context, tripID, date string, seats []int) error {
	booked, err := s.bookedSeats(ctx, tripID, date)
	if err != nil {
		return persistenceError("load bookings", err)
	}
	var taken []int
	for _, seat := range seats {
		if _, ok := booked[seat]; ok {
			taken = append(taken, seat)
		}
	}
	if len(taken) > 0 {
		sort.Ints(taken)
		return seatUnavailable("seats already booked", taken)
	}
	return nil
}

func (s *DefaultBookingService) bookedSeats(ctx context.Context, tripID, date string) (map[int]struct{}, error) {
	confirmed, err := s.Repo.FindConfirmed(ctx, tripID, date)
	if err != nil {
		return nil, err
	}
	booked := make(map[int]struct{})
	for _, b := range confirmed {
		for _, seat := range b.Seats {
			booked[seat] = struct{}{}
		}
	}
	return booked, nil
}
