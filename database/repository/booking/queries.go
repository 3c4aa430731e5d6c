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

func (r *MongoBookingRepo) FindConfirmed(ctx context.Context, tripID, date string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"tripId": tripID, "date": date, "status": models.BookingStatusConfirmed}
	return r.find(ctx, filter, options.Find())
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": bookingID}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}

	bookings := []models.Booking{b}
	if err := r.attachPassengers(ctx, bookings); err != nil {
		return nil, err
	}
	return &bookings[0], nil
}

func (r *MongoBookingRepo) ListByOwner(ctx context.Context, accountID string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	bookings, err := r.find(ctx, bson.M{"ownerAccountId": accountID}, opts)
	if err != nil {
		return nil, err
	}
	return bookings, r.attachPassengers(ctx, bookings)
}

func (r *MongoBookingRepo) ListByOperator(ctx context.Context, operatorID string, limit int64) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	bookings, err := r.find(ctx, bson.M{"operatorId": operatorID}, opts)
	if err != nil {
		return nil, err
	}
	return bookings, r.attachPassengers(ctx, bookings)
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Booking, error) {
	cur, err := r.bookingColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cur.Close(ctx)

	bookings := []models.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// attachPassengers loads the passenger rows of every booking in one query.
// FindConfirmed skips this; the overlap check only needs seats.
func (r *MongoBookingRepo) attachPassengers(ctx context.Context, bookings []models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}

	cur, err := r.passengerColl.Find(ctx, bson.M{"bookingId": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("failed to fetch passengers: %w", err)
	}
	defer cur.Close(ctx)

	var rows []models.PassengerRow
	if err := cur.All(ctx, &rows); err != nil {
		return fmt.Errorf("failed to decode passengers: %w", err)
	}
	assignPassengers(bookings, rows)
	return nil
}

// assignPassengers sets each booking's passengers in the seat order of its header.
func assignPassengers(bookings []models.Booking, rows []models.PassengerRow) {
	type seatKey struct {
		bookingID string
		seat      int
	}
	bySeat := make(map[seatKey]models.Passenger, len(rows))
	for _, row := range rows {
		bySeat[seatKey{row.BookingID, row.Seat}] = row.Passenger
	}
	for i := range bookings {
		b := &bookings[i]
		b.Passengers = make([]models.Passenger, 0, len(b.Seats))
		for _, seat := range b.Seats {
			b.Passengers = append(b.Passengers, bySeat[seatKey{b.ID, seat}])
		}
	}
}
