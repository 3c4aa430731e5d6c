package tripRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatbook/database"
	"seatbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("trip not found")

type TripRepository interface {
	GetByID(ctx context.Context, tripID string) (*models.Trip, error)
	Upsert(ctx context.Context, trip models.Trip) error
}

type MongoTripRepo struct {
	coll *mongo.Collection
}

// NewMongoTripRepo constructs a new MongoDB TripRepository.
func NewMongoTripRepo() *MongoTripRepo {
	return &MongoTripRepo{coll: database.DB().Collection("trips")}
}

func (r *MongoTripRepo) GetByID(ctx context.Context, tripID string) (*models.Trip, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var trip models.Trip
	if err := r.coll.FindOne(ctx, bson.M{"id": tripID}).Decode(&trip); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch trip: %w", err)
	}
	return &trip, nil
}

func (r *MongoTripRepo) Upsert(ctx context.Context, trip models.Trip) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": trip.ID}, trip, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert trip: %w", err)
	}
	return nil
}

func (r *MongoTripRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_id")},
		{Keys: bson.D{{Key: "operatorId", Value: 1}}, Options: options.Index().SetName("operator_idx")},
	})
	if err != nil {
		return fmt.Errorf("failed to create trip indexes: %w", err)
	}
	return nil
}
