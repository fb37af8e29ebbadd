package userRepo

import (
	"context"
	"fmt"
	"time"

	"lenslink/database/repository"
	"lenslink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetUser retrieves a user by its unique ID.
func (r *MongoUserRepo) GetUser(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"id": userID}).Decode(&user); err != nil {
		return nil, repository.MapMongoError(err, "user "+userID)
	}
	return &user, nil
}

// Upsert inserts or replaces a user record.
func (r *MongoUserRepo) Upsert(ctx context.Context, user *models.User) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Wallet.Transactions == nil {
		user.Wallet.Transactions = []models.Transaction{}
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"id": user.ID}, user, opts); err != nil {
		return repository.MapMongoError(err, "upsert user "+user.ID)
	}
	return nil
}

// CreditWallet appends tx to the wallet ledger and adds its amount to the balance.
func (r *MongoUserRepo) CreditWallet(ctx context.Context, userID string, tx models.Transaction) error {
	ctx, cancel := repository.WithTimeout(ctx, repository.DefaultTimeout)
	defer cancel()

	update := bson.M{
		"$inc":  bson.M{"wallet.balance": tx.Amount},
		"$push": bson.M{"wallet.transactions": tx},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": userID}, update)
	if err != nil {
		return fmt.Errorf("credit wallet of user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	return nil
}
