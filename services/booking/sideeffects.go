package booking

import (
	"context"

	"seatbook/models"
	"seatbook/services/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingEvent is the payload published with booking_created and
// booking_cancelled.
type BookingEvent struct {
	BookingID string `json:"bookingId"`
	TripID    string `json:"tripId"`
	Date      string `json:"date"`
	Seats     []int  `json:"seats"`
	Status    string `json:"status"`
}

// invalidate drops the read caches a booking change makes stale. A failure
// only means the cache serves stale data until its TTL.
func (s *DefaultBookingService) invalidate(ctx context.Context, b *models.Booking) {
	keys := []string{availabilityCacheKey(b.TripID, b.Date), ownerBookingsCacheKey(b.OwnerAccountID)}
	if err := s.Cache.Del(ctx, keys...); err != nil {
		s.Logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// enqueueSideEffects hands the mail and the audit entry to the job queue.
// Errors are logged; the booking stands either way.
func (s *DefaultBookingService) enqueueSideEffects(ctx context.Context, b *models.Booking, action, actorID string) {
	emailType := tasks.TypeBookingConfirmationEmail
	if action == models.AuditBookingCancelled {
		emailType = tasks.TypeBookingCancellationEmail
	}
	at := s.now().UTC()

	email := models.BookingEmailPayload{
		BookingID:      b.ID,
		OwnerAccountID: b.OwnerAccountID,
		TripID:         b.TripID,
		Date:           b.Date,
		Seats:          b.Seats,
		TotalAmount:    b.TotalAmount,
		Currency:       b.Currency,
		Status:         b.Status,
		At:             at,
	}
	if err := s.Jobs.Enqueue(ctx, emailType, email); err != nil {
		s.Logger.Error("enqueue email failed", zap.String("bookingId", b.ID), zap.Error(err))
	}

	entry := models.AuditEntry{
		ID:        uuid.New().String(),
		Action:    action,
		BookingID: b.ID,
		ActorID:   actorID,
		TripID:    b.TripID,
		Date:      b.Date,
		Seats:     b.Seats,
		Amount:    b.TotalAmount,
		At:        at,
	}
	if err := s.Jobs.Enqueue(ctx, tasks.TypeAuditLog, entry); err != nil {
		s.Logger.Error("enqueue audit failed", zap.String("bookingId", b.ID), zap.Error(err))
	}
}

// publish tells the trip operator's subscribers. Delivery failures are
// logged and dropped.
func (s *DefaultBookingService) publish(ctx context.Context, b *models.Booking, eventType string) {
	ev := BookingEvent{BookingID: b.ID, TripID: b.TripID, Date: b.Date, Seats: b.Seats, Status: b.Status}
	if err := s.Notifier.Publish(ctx, b.OperatorID, eventType, ev); err != nil {
		s.Logger.Warn("notification delivery failed",
			zap.String("operatorId", b.OperatorID),
			zap.String("event", eventType),
			zap.Error(err),
		)
	}
}
