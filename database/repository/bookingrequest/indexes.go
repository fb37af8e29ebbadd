package requestRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the lookup indexes and the partial unique index that
// allows a single active request per (vendor, user, starting date, service).
func (r *MongoRequestRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	activeUnique := options.Index().
		SetName("uniq_active_request").
		SetUnique(true).
		SetPartialFilterExpression(bson.M{"active": true})

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "requestId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{
				{Key: "vendorId", Value: 1},
				{Key: "userId", Value: 1},
				{Key: "startingDate", Value: 1},
				{Key: "serviceType", Value: 1},
			},
			Options: activeUnique,
		},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "vendorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{
			{Key: "state", Value: 1},
			{Key: "advancePayment.status", Value: 1},
			{Key: "advancePaymentDueDate", Value: 1},
		}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
