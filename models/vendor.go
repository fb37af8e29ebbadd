package models

import "time"

// Vendor is a photography service provider.
type Vendor struct {
	ID          string    `bson:"id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	CompanyName string    `bson:"companyName,omitempty" json:"companyName,omitempty"`
	Email       string    `bson:"email" json:"email"`
	Phone       string    `bson:"phone,omitempty" json:"phone,omitempty"`
	FCMToken    string    `bson:"fcmToken,omitempty" json:"-"`
	BookedDates []string  `bson:"bookedDates" json:"bookedDates"` // DD/MM/YYYY, set semantics
	Wallet      Wallet    `bson:"wallet" json:"wallet"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
