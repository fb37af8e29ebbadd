package models

import "time"

type TransactionType string

const (
	TransactionCredit TransactionType = "Credit"
	TransactionDebit  TransactionType = "Debit"
)

type TransactionPaymentType string

const (
	PaymentTypeBooking      TransactionPaymentType = "Booking"
	PaymentTypeRefund       TransactionPaymentType = "Refund"
	PaymentTypeCancellation TransactionPaymentType = "Cancellation"
	PaymentTypeOther        TransactionPaymentType = "Other"
)

// Transaction is an append-only wallet ledger entry.
type Transaction struct {
	ID              string                 `bson:"id" json:"id"`
	Amount          int64                  `bson:"amount" json:"amount"`
	TransactionType TransactionType        `bson:"transactionType" json:"transactionType"`
	PaymentType     TransactionPaymentType `bson:"paymentType" json:"paymentType"`
	PaymentMethod   string                 `bson:"paymentMethod" json:"paymentMethod"`
	PaymentID       string                 `bson:"paymentId" json:"paymentId"`
	BookingID       string                 `bson:"bookingId" json:"bookingId"`
	Status          string                 `bson:"status" json:"status"`
	CreatedAt       time.Time              `bson:"createdAt" json:"createdAt"`
}

// Wallet holds a running balance and its ledger.
type Wallet struct {
	Balance      int64         `bson:"balance" json:"balance"`
	Transactions []Transaction `bson:"transactions" json:"transactions"`
}
