package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"lenslink/database/repository"
	"lenslink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo(db *mongo.Database, logger *zap.Logger) *MongoBookingRepo {
	repo := &MongoBookingRepo{coll: db.Collection("bookings")}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create booking indexes", zap.Error(err))
	}
	return repo
}

var _ BookingRepository = (*MongoBookingRepo)(nil)

func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "startingDate", Value: 1}}},
		{Keys: bson.D{{Key: "vendorId", Value: 1}, {Key: "startingDate", Value: 1}}},
		{Keys: bson.D{{Key: "advancePayment.paymentId", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return repository.MapMongoError(err, "insert booking "+b.BookingID)
	}
	return nil
}

func (r *MongoBookingRepo) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	var b models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&b); err != nil {
		return nil, repository.MapMongoError(err, "booking "+bookingID)
	}
	return &b, nil
}

func (r *MongoBookingRepo) UpdateBooking(ctx context.Context, b *models.Booking) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	next := *b
	next.Version = b.Version + 1
	res, err := r.coll.ReplaceOne(ctx, bson.M{"bookingId": b.BookingID, "version": b.Version}, &next)
	if err != nil {
		return repository.MapMongoError(err, "update booking "+b.BookingID)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"bookingId": b.BookingID})
		if err != nil {
			return fmt.Errorf("count booking %s: %w", b.BookingID, err)
		}
		if n == 0 {
			return fmt.Errorf("booking %s: %w", b.BookingID, repository.ErrNotFound)
		}
		return fmt.Errorf("booking %s version %d: %w", b.BookingID, b.Version, repository.ErrStaleWrite)
	}
	b.Version = next.Version
	return nil
}

func (r *MongoBookingRepo) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *MongoBookingRepo) ListBookingsByVendor(ctx context.Context, vendorID string) ([]models.Booking, error) {
	return r.find(ctx, bson.M{"vendorId": vendorID})
}

// find returns matching bookings in event order.
func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startingDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	var out []models.Booking
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return out, nil
}
