package booking

import (
	"context"
	"errors"
	"sort"

	tripRepo "seatbook/database/repository/trip"
	"seatbook/models"

	"go.uber.org/zap"
)

// Availability returns the seat map of a trip on a date. Booked seats come
// from the cache when possible; locked seats are always read live because
// they change far faster than any cache TTL.
func (s *DefaultBookingService) Availability(ctx context.Context, tripID, date string) (*models.Availability, error) {
	if tripID == "" {
		return nil, validationError("tripId is required")
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	trip, err := s.Trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, tripRepo.ErrNotFound) {
			return nil, &Error{Kind: ErrNotFound, Message: "trip not found"}
		}
		return nil, persistenceError("load trip", err)
	}

	booked, err := s.cachedBookedSeats(ctx, tripID, date)
	if err != nil {
		return nil, persistenceError("load bookings", err)
	}
	lockedRaw, err := s.Locks.ListLocked(ctx, tripID, date)
	if err != nil {
		return nil, persistenceError("load seat locks", err)
	}

	bookedSet := make(map[int]struct{}, len(booked))
	for _, seat := range booked {
		bookedSet[seat] = struct{}{}
	}
	locked := []int{}
	lockedSet := make(map[int]struct{}, len(lockedRaw))
	for _, seat := range lockedRaw {
		if _, ok := bookedSet[seat]; ok {
			continue
		}
		lockedSet[seat] = struct{}{}
		locked = append(locked, seat)
	}

	available := []int{}
	for seat := 1; seat <= trip.TotalSeats; seat++ {
		_, b := bookedSet[seat]
		_, l := lockedSet[seat]
		if !b && !l {
			available = append(available, seat)
		}
	}

	return &models.Availability{
		TripID:     tripID,
		Date:       date,
		TotalSeats: trip.TotalSeats,
		Booked:     booked,
		Locked:     locked,
		Available:  available,
	}, nil
}

func (s *DefaultBookingService) cachedBookedSeats(ctx context.Context, tripID, date string) ([]int, error) {
	key := availabilityCacheKey(tripID, date)
	var booked []int
	if hit, err := s.Cache.Get(ctx, key, &booked); err == nil && hit {
		return booked, nil
	} else if err != nil {
		s.Logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	gen, genErr := s.Cache.Generation(ctx, key)
	set, err := s.bookedSeats(ctx, tripID, date)
	if err != nil {
		return nil, err
	}
	booked = make([]int, 0, len(set))
	for seat := range set {
		booked = append(booked, seat)
	}
	sort.Ints(booked)

	s.fillCache(ctx, key, booked, gen, genErr)
	return booked, nil
}

// fillCache stores v unless the key was invalidated after gen was read. An
// unreadable generation skips the fill.
func (s *DefaultBookingService) fillCache(ctx context.Context, key string, v any, gen int64, genErr error) {
	if genErr != nil {
		s.Logger.Warn("cache generation read failed", zap.String("key", key), zap.Error(genErr))
		return
	}
	stored, err := s.Cache.SetAt(ctx, key, v, s.CacheTTL, gen)
	if err != nil {
		s.Logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		s.Logger.Debug("cache fill skipped: invalidated during read", zap.String("key", key))
	}
}

// ListOwnerBookings returns the bookings made by an account, newest first.
func (s *DefaultBookingService) ListOwnerBookings(ctx context.Context, accountID string) ([]models.Booking, error) {
	if accountID == "" {
		return nil, validationError("account id is required")
	}
	key := ownerBookingsCacheKey(accountID)
	var bookings []models.Booking
	if hit, err := s.Cache.Get(ctx, key, &bookings); err == nil && hit {
		return bookings, nil
	}

	gen, genErr := s.Cache.Generation(ctx, key)
	bookings, err := s.Repo.ListByOwner(ctx, accountID)
	if err != nil {
		return nil, persistenceError("list bookings", err)
	}
	s.fillCache(ctx, key, bookings, gen, genErr)
	return bookings, nil
}
