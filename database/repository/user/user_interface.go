package userRepo

import (
	"context"

	"lenslink/models"
)

// UserRepository defines methods for user data access.
type UserRepository interface {
	// GetUser retrieves a user by its unique ID.
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// Upsert inserts or replaces a user record.
	Upsert(ctx context.Context, user *models.User) error
	// CreditWallet appends tx to the wallet ledger and adds its amount to the balance.
	CreditWallet(ctx context.Context, userID string, tx models.Transaction) error
}
