package requestRepo

import (
	"context"
	"fmt"
	"time"

	"lenslink/database/repository"
	"lenslink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListRequestsByUser returns the user's requests, newest first.
func (r *MongoRequestRepo) ListRequestsByUser(ctx context.Context, userID string) ([]models.BookingRequest, error) {
	return r.find(ctx, bson.M{"userId": userID}, repository.DefaultTimeout)
}

// ListRequestsByVendor returns the vendor's requests, newest first.
func (r *MongoRequestRepo) ListRequestsByVendor(ctx context.Context, vendorID string) ([]models.BookingRequest, error) {
	return r.find(ctx, bson.M{"vendorId": vendorID}, repository.DefaultTimeout)
}

func (r *MongoRequestRepo) find(ctx context.Context, filter bson.M, timeout time.Duration) ([]models.BookingRequest, error) {
	ctx, cancel := repository.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "requestId", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.BookingRequest
	for cursor.Next(ctx) {
		var req models.BookingRequest
		if err := cursor.Decode(&req); err != nil {
			return nil, fmt.Errorf("error decoding request: %w", err)
		}
		out = append(out, req)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}
