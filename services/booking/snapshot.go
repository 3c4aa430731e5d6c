package booking

import (
	"context"
	"fmt"
	"time"

	bookingRepo "seatbook/database/repository/booking"
	"seatbook/models"
)

// operatorSnapshotLimit caps how many recent bookings a snapshot carries.
const operatorSnapshotLimit = 200

// OperatorStateProvider builds the state pushed to an operator's dashboard.
// It reads straight from the repository so every push is authoritative.
type OperatorStateProvider struct {
	Repo bookingRepo.BookingRepository
	now  func() time.Time
}

func NewOperatorStateProvider(repo bookingRepo.BookingRepository) *OperatorStateProvider {
	return &OperatorStateProvider{Repo: repo, now: time.Now}
}

func (p *OperatorStateProvider) Snapshot(ctx context.Context, operatorID string) (any, error) {
	bookings, err := p.Repo.ListByOperator(ctx, operatorID, operatorSnapshotLimit)
	if err != nil {
		return nil, fmt.Errorf("operator snapshot: %w", err)
	}
	state := models.OperatorState{
		OperatorID: operatorID,
		Bookings:   bookings,
		AsOf:       p.now().UTC(),
	}
	for _, b := range bookings {
		switch b.Status {
		case models.BookingStatusConfirmed:
			state.Confirmed++
			state.Revenue += b.TotalAmount
		case models.BookingStatusCancelled:
			state.Cancelled++
		}
	}
	return state, nil
}
