package auditRepo

import (
	"context"
	"fmt"
	"time"

	"seatbook/database"
	"seatbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditRepository interface {
	Insert(ctx context.Context, entry models.AuditEntry) error
}

type MongoAuditRepo struct {
	coll *mongo.Collection
}

// NewMongoAuditRepo constructs a new MongoDB AuditRepository.
func NewMongoAuditRepo() *MongoAuditRepo {
	return &MongoAuditRepo{coll: database.DB().Collection("audit_logs")}
}

func (r *MongoAuditRepo) Insert(ctx context.Context, entry models.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		// Jobs are retried, so a replayed entry may already exist.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *MongoAuditRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_id")},
		{Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "at", Value: 1}}, Options: options.Index().SetName("booking_at_idx")},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}
