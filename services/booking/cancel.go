package booking

import (
	"context"
	"errors"

	bookingRepo "seatbook/database/repository/booking"
	"seatbook/models"
	"seatbook/services/notifier"

	"go.uber.org/zap"
)

// CancelBooking flips a confirmed booking to cancelled. Its seats drop out of
// the overlap check at once; no lock is involved.
func (s *DefaultBookingService) CancelBooking(ctx context.Context, bookingID, requesterID string) (*models.Booking, error) {
	log := s.Logger.With(zap.String("bookingId", bookingID), zap.String("requester", requesterID))

	if bookingID == "" || requesterID == "" {
		return nil, validationError("booking id and requester are required")
	}

	booking, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, &Error{Kind: ErrNotFound}
		}
		return nil, persistenceError("load booking", err)
	}
	if booking.OwnerAccountID != requesterID {
		log.Warn("cancel refused: not the owner")
		return nil, &Error{Kind: ErrForbidden, Message: "only the booking owner may cancel it"}
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, &Error{Kind: ErrAlreadyCancelled}
	}

	at := s.now().UTC()
	if err := s.Repo.Cancel(ctx, bookingID, at); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrAlreadyCancelled):
			return nil, &Error{Kind: ErrAlreadyCancelled}
		case errors.Is(err, bookingRepo.ErrNotFound):
			return nil, &Error{Kind: ErrNotFound}
		}
		log.Error("cancel write failed", zap.Error(err))
		return nil, persistenceError("cancel booking", err)
	}
	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &at
	log.Info("booking cancelled")

	sctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	s.invalidate(sctx, booking)
	s.enqueueSideEffects(sctx, booking, models.AuditBookingCancelled, requesterID)
	s.publish(sctx, booking, notifier.EventBookingCancelled)
	return booking, nil
}
