// Command tests seeds the configured MongoDB database with demo vendors,
// packages and users for manual end-to-end runs.
package main

import (
	"context"
	"flag"
	"time"

	"lenslink/config"
	"lenslink/database"
	packageRepo "lenslink/database/repository/servicepackage"
	userRepo "lenslink/database/repository/user"
	vendorRepo "lenslink/database/repository/vendor"
	"lenslink/database/seed"
	"lenslink/utils"

	"go.uber.org/zap"
)

func main() {
	vendorsPerService := flag.Int("vendors", 10, "vendors per service type")
	users := flag.Int("users", 5, "number of demo users")
	flag.Parse()

	config.LoadConfig()
	logger := utils.GetLogger()

	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer database.CloseDB(context.Background())

	sink := seed.RepoSink{
		Users:    userRepo.NewMongoUserRepo(db, logger),
		Vendors:  vendorRepo.NewMongoVendorRepo(db, logger),
		Packages: packageRepo.NewMongoPackageRepo(db, logger),
	}
	fixtures := seed.Demo(*vendorsPerService, *users, time.Now())
	if err := fixtures.Load(ctx, sink); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seeded demo data",
		zap.Int("vendors", len(fixtures.Vendors)),
		zap.Int("packages", len(fixtures.Packages)),
		zap.Int("users", len(fixtures.Users)))
}
