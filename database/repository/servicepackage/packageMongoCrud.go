package packageRepo

import (
	"context"

	"lenslink/database/repository"
	"lenslink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoPackageRepo implements PackageRepository using MongoDB.
type MongoPackageRepo struct {
	coll *mongo.Collection
}

func NewMongoPackageRepo(db *mongo.Database, logger *zap.Logger) *MongoPackageRepo {
	repo := &MongoPackageRepo{coll: db.Collection("packages")}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create package indexes", zap.Error(err))
	}
	return repo
}

var _ PackageRepository = (*MongoPackageRepo)(nil)

func (r *MongoPackageRepo) GetPackage(ctx context.Context, packageID string) (*models.Package, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	var pkg models.Package
	if err := r.coll.FindOne(ctx, bson.M{"id": packageID}).Decode(&pkg); err != nil {
		return nil, repository.MapMongoError(err, "package "+packageID)
	}
	return &pkg, nil
}

func (r *MongoPackageRepo) Upsert(ctx context.Context, pkg *models.Package) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"id": pkg.ID}, pkg, opts); err != nil {
		return repository.MapMongoError(err, "upsert package "+pkg.ID)
	}
	return nil
}
