package models

import "time"

// User is a customer booking vendors. Profile management lives elsewhere;
// the booking engine only reads identity and contact fields and credits the wallet.
type User struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	FCMToken  string    `bson:"fcmToken,omitempty" json:"-"`
	Wallet    Wallet    `bson:"wallet" json:"wallet"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
