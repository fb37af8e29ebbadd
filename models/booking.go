package models

import "time"

// BookingStatus is the lifecycle state of a confirmed booking.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCancelled BookingStatus = "Cancelled"
	BookingStatusCompleted BookingStatus = "Completed"
)

// IsTerminal reports whether no further mutation is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// PaymentStatus is shared by the advance and final instalments of a booking.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// AdvancePayment is the 30% deposit that turned the request into a booking.
type AdvancePayment struct {
	Amount     int64         `bson:"amount" json:"amount"`
	Status     PaymentStatus `bson:"status" json:"status"`
	PaymentID  string        `bson:"paymentId" json:"paymentId"`
	PaidAt     time.Time     `bson:"paidAt" json:"paidAt"`
	RefundedAt *time.Time    `bson:"refundedAt,omitempty" json:"refundedAt,omitempty"`
	RefundID   string        `bson:"refundId,omitempty" json:"refundId,omitempty"`
}

// FinalPayment is the remaining 70%, due within a grace period after the event.
type FinalPayment struct {
	Amount    int64         `bson:"amount" json:"amount"`
	DueDate   time.Time     `bson:"dueDate" json:"dueDate"`
	Status    PaymentStatus `bson:"status" json:"status"`
	PaymentID string        `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	PaidAt    *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// PendingCancellation is the refund decided for a cancellation before the
// gateway is called. Retries reuse it so the refund amount never changes under
// the same idempotency key.
type PendingCancellation struct {
	UserRefund    int64     `bson:"userRefund" json:"userRefund"`
	VendorFee     int64     `bson:"vendorFee" json:"vendorFee"`
	UserRefundPct int       `bson:"userRefundPct" json:"userRefundPct"`
	PolicyReason  string    `bson:"policyReason" json:"policyReason"`
	DecidedAt     time.Time `bson:"decidedAt" json:"decidedAt"`
}

// Booking is a confirmed, paid engagement between a user and a vendor.
// BookingID carries over the RequestID of the originating request.
type Booking struct {
	BookingID        string    `bson:"bookingId" json:"bookingId"`
	UserID           string    `bson:"userId" json:"userId"`
	VendorID         string    `bson:"vendorId" json:"vendorId"`
	Name             string    `bson:"name" json:"name"`
	Email            string    `bson:"email" json:"email"`
	Phone            string    `bson:"phone" json:"phone"`
	Venue            string    `bson:"venue" json:"venue"`
	ServiceType      string    `bson:"serviceType" json:"serviceType"`
	PackageID        string    `bson:"packageId" json:"packageId"`
	CustomizationIDs []string  `bson:"customizationIds" json:"customizationIds"`
	Message          string    `bson:"message,omitempty" json:"message,omitempty"`
	StartingDate     time.Time `bson:"startingDate" json:"startingDate"`
	NumberOfDays     int       `bson:"numberOfDays" json:"numberOfDays"`
	TotalAmount      int64     `bson:"totalAmount" json:"totalAmount"`

	AdvancePayment AdvancePayment `bson:"advancePayment" json:"advancePayment"`
	FinalPayment   FinalPayment   `bson:"finalPayment" json:"finalPayment"`

	BookingStatus      BookingStatus `bson:"bookingStatus" json:"bookingStatus"`
	CancellationReason string        `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time    `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	PendingCancellation *PendingCancellation `bson:"pendingCancellation,omitempty" json:"pendingCancellation,omitempty"`

	RequestedDates []string `bson:"requestedDates" json:"requestedDates"` // DD/MM/YYYY, released on cancellation

	Version   int       `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
