package models

import "time"

// PaymentStage identifies which instalment a checkout session collects.
type PaymentStage string

const (
	StageAdvance PaymentStage = "advance"
	StageFinal   PaymentStage = "final"
)

// --- Gateway requests & results ---

// CheckoutRequest describes a hosted checkout session for one instalment.
type CheckoutRequest struct {
	BookingID     string
	UserID        string
	Stage         PaymentStage
	Amount        int64 // whole currency units
	Currency      string
	Description   string
	CustomerEmail string
}

// CheckoutSession is the opaque handle returned by the gateway.
type CheckoutSession struct {
	ID        string    `json:"sessionId"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PaymentResult is what the gateway reports back for a checkout session.
type PaymentResult struct {
	SessionID       string
	PaymentIntentID string
	BookingID       string
	Stage           PaymentStage
	AmountPaid      int64
	Currency        string
	Paid            bool
}

// Refund is the gateway's acknowledgement of a refund.
type Refund struct {
	ID     string
	Status string
	Amount int64
}
