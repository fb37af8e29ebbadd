package requestRepo

import (
	"context"
	"fmt"
	"time"

	"lenslink/database/repository"
	"lenslink/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (r *MongoRequestRepo) CreateRequest(ctx context.Context, req *models.BookingRequest) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, req); err != nil {
		return repository.MapMongoError(err, "insert request "+req.RequestID)
	}
	return nil
}

func (r *MongoRequestRepo) GetRequest(ctx context.Context, requestID string) (*models.BookingRequest, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	var req models.BookingRequest
	if err := r.coll.FindOne(ctx, bson.M{"requestId": requestID}).Decode(&req); err != nil {
		return nil, repository.MapMongoError(err, "request "+requestID)
	}
	return &req, nil
}

// UpdateRequest replaces the document only while its version still equals
// req.Version.
func (r *MongoRequestRepo) UpdateRequest(ctx context.Context, req *models.BookingRequest) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	next := *req
	next.Version = req.Version + 1
	filter := bson.M{"requestId": req.RequestID, "version": req.Version}

	res, err := r.coll.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return repository.MapMongoError(err, "update request "+req.RequestID)
	}
	if res.MatchedCount == 0 {
		return r.staleOrMissing(ctx, req.RequestID, req.Version)
	}
	req.Version = next.Version
	return nil
}

func (r *MongoRequestRepo) staleOrMissing(ctx context.Context, requestID string, version int) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"requestId": requestID})
	if err != nil {
		return fmt.Errorf("count request %s: %w", requestID, err)
	}
	if n == 0 {
		return fmt.Errorf("request %s: %w", requestID, repository.ErrNotFound)
	}
	return fmt.Errorf("request %s version %d: %w", requestID, version, repository.ErrStaleWrite)
}

// DeleteRequest removes the document only while its version still equals
// version.
func (r *MongoRequestRepo) DeleteRequest(ctx context.Context, requestID string, version int) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"requestId": requestID, "version": version})
	if err != nil {
		return fmt.Errorf("delete request %s: %w", requestID, err)
	}
	if res.DeletedCount == 0 {
		return r.staleOrMissing(ctx, requestID, version)
	}
	return nil
}

func (r *MongoRequestRepo) FindActiveRequest(ctx context.Context, key repository.RequestKey) (*models.BookingRequest, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	filter := bson.M{
		"vendorId":     key.VendorID,
		"userId":       key.UserID,
		"startingDate": key.StartingDate.UTC(),
		"serviceType":  key.ServiceType,
		"active":       true,
	}
	var req models.BookingRequest
	if err := r.coll.FindOne(ctx, filter).Decode(&req); err != nil {
		return nil, repository.MapMongoError(err, "active request")
	}
	return &req, nil
}

// ListOverdueRequests returns accepted requests whose advance is still pending
// after its due date.
func (r *MongoRequestRepo) ListOverdueRequests(ctx context.Context, cutoff time.Time) ([]models.BookingRequest, error) {
	filter := bson.M{
		"state":                 models.RequestStateAccepted,
		"advancePayment.status": models.AdvanceStatusPending,
		"advancePaymentDueDate": bson.M{"$lt": cutoff.UTC()},
	}
	return r.find(ctx, filter, 30*time.Second)
}
