// FILE: database/repository/booking/indexes.go
package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"seatbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the booking and passenger indexes. The partial unique
// index on confirmed passenger seats makes a double booking impossible at the
// storage layer even if the seat lock were bypassed.
func (r *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bookingIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// Primary overlap query: trip + date + status
		{
			Keys:    bson.D{{Key: "tripId", Value: 1}, {Key: "date", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("trip_date_status_idx"),
		},
		{
			Keys:    bson.D{{Key: "ownerAccountId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("owner_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "operatorId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("operator_created_idx"),
		},
	}
	if _, err := r.bookingColl.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	passengerIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tripId", Value: 1}, {Key: "date", Value: 1}, {Key: "seat", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.BookingStatusConfirmed}).
				SetName("unique_confirmed_seat"),
		},
		{
			Keys:    bson.D{{Key: "bookingId", Value: 1}, {Key: "seat", Value: 1}},
			Options: options.Index().SetName("booking_seat_idx"),
		},
	}
	if _, err := r.passengerColl.Indexes().CreateMany(ctx, passengerIndexes); err != nil {
		return fmt.Errorf("failed to create passenger indexes: %w", err)
	}
	return nil
}
