package requestRepo

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MongoRequestRepo implements RequestRepository using MongoDB.
type MongoRequestRepo struct {
	coll *mongo.Collection
}

func NewMongoRequestRepo(db *mongo.Database, logger *zap.Logger) *MongoRequestRepo {
	repo := &MongoRequestRepo{coll: db.Collection("booking_requests")}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create booking request indexes", zap.Error(err))
	}
	return repo
}

var _ RequestRepository = (*MongoRequestRepo)(nil)
