package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// withTransaction runs fn inside a multi-document transaction, aborting on error.
func (r *MongoBookingRepo) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client := r.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
}

func (r *MongoBookingRepo) CreateWithPassengers(ctx context.Context, booking *models.Booking) error {
	if len(booking.Seats) != len(booking.Passengers) {
		return fmt.Errorf("booking %s: %d seats but %d passengers", booking.ID, len(booking.Seats), len(booking.Passengers))
	}

	rows := make([]interface{}, len(booking.Seats))
	for i, seat := range booking.Seats {
		rows[i] = models.PassengerRow{
			BookingID: booking.ID,
			TripID:    booking.TripID,
			Date:      booking.Date,
			Seat:      seat,
			Status:    booking.Status,
			Passenger: booking.Passengers[i],
		}
	}

	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.bookingColl.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		if _, err := r.passengerColl.InsertMany(sc, rows); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrSeatTaken
			}
			return fmt.Errorf("insert passengers failed: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrSeatTaken) {
		return ErrSeatTaken
	}
	if err != nil {
		return fmt.Errorf("booking transaction failed: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) Cancel(ctx context.Context, bookingID string, at time.Time) error {
	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := r.bookingColl.UpdateOne(sc,
			bson.M{"id": bookingID, "status": models.BookingStatusConfirmed},
			bson.M{"$set": bson.M{"status": models.BookingStatusCancelled, "cancelledAt": at}},
		)
		if err != nil {
			return fmt.Errorf("cancel booking failed: %w", err)
		}
		if res.MatchedCount == 0 {
			n, err := r.bookingColl.CountDocuments(sc, bson.M{"id": bookingID})
			if err != nil {
				return fmt.Errorf("cancel booking lookup failed: %w", err)
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrAlreadyCancelled
		}

		if _, err := r.passengerColl.UpdateMany(sc,
			bson.M{"bookingId": bookingID},
			bson.M{"$set": bson.M{"status": models.BookingStatusCancelled}},
		); err != nil {
			return fmt.Errorf("cancel passengers failed: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyCancelled) {
		return err
	}
	if err != nil {
		return fmt.Errorf("cancel transaction failed: %w", err)
	}
	return nil
}
