package seatlock

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunAudit logs locks that are about to lapse without having been released,
// which usually means a booking attempt died mid-flight. It blocks until ctx
// is done.
func (s *Store) RunAudit(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.auditOnce(ctx, interval)
		}
	}
}

func (s *Store) auditOnce(ctx context.Context, within time.Duration) int {
	locks, err := s.Expiring(ctx, within)
	if err != nil {
		s.logger.Warn("seat lock audit failed", zap.Error(err))
		return 0
	}
	for _, l := range locks {
		s.logger.Info("seat lock expiring unreleased",
			zap.String("tripId", l.TripID),
			zap.String("date", l.Date),
			zap.Int("seat", l.Seat),
			zap.String("holder", l.HolderID),
			zap.Time("expiresAt", l.ExpiresAt),
		)
	}
	return len(locks)
}
