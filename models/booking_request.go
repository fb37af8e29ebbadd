package models

import "time"

// RequestState is the lifecycle state of a booking request.
type RequestState string

const (
	RequestStateRequested      RequestState = "Requested"
	RequestStateAccepted       RequestState = "Accepted"
	RequestStateRejected       RequestState = "Rejected"
	RequestStateRevoked        RequestState = "Revoked"
	RequestStatePaymentOverdue RequestState = "PaymentOverdue"
)

// IsActive reports whether a request in this state still holds its slot.
// Active requests take part in the duplicate-request check.
func (s RequestState) IsActive() bool {
	return s == RequestStateRequested || s == RequestStateAccepted
}

// AdvanceStatus is the status of the advance payment on a request.
type AdvanceStatus string

const (
	AdvanceStatusPending   AdvanceStatus = "pending"
	AdvanceStatusCompleted AdvanceStatus = "completed"
	AdvanceStatusOverdue   AdvanceStatus = "overdue"
)

// RequestAdvancePayment is populated when the vendor accepts a request.
type RequestAdvancePayment struct {
	Amount int64         `bson:"amount" json:"amount"`
	Status AdvanceStatus `bson:"status" json:"status"`
	PaidAt *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// FinalPaymentSchedule carries the final instalment computed at acceptance
// so confirmation does not have to recompute it against a different clock.
type FinalPaymentSchedule struct {
	Amount  int64     `bson:"amount" json:"amount"`
	DueDate time.Time `bson:"dueDate" json:"dueDate"`
}

// BookingRequest is the pre-payment negotiation between a user and a vendor.
type BookingRequest struct {
	RequestID        string   `bson:"requestId" json:"requestId"` // human readable, e.g. "BR-7F3A9C21"
	UserID           string   `bson:"userId" json:"userId"`
	VendorID         string   `bson:"vendorId" json:"vendorId"`
	Name             string   `bson:"name" json:"name"`
	Email            string   `bson:"email" json:"email"`
	Phone            string   `bson:"phone" json:"phone"`
	Venue            string   `bson:"venue" json:"venue"`
	ServiceType      string   `bson:"serviceType" json:"serviceType"`
	PackageID        string   `bson:"packageId" json:"packageId"`
	CustomizationIDs []string `bson:"customizationIds" json:"customizationIds"`
	Message          string   `bson:"message,omitempty" json:"message,omitempty"`

	StartingDate time.Time `bson:"startingDate" json:"startingDate"` // midnight UTC
	NumberOfDays int       `bson:"numberOfDays" json:"numberOfDays"`
	TotalPrice   int64     `bson:"totalPrice" json:"totalPrice"`

	State  RequestState `bson:"state" json:"state"`
	Active bool         `bson:"active" json:"-"` // mirrors State.IsActive for the partial unique index

	// Populated on acceptance.
	RequestedDates        []string               `bson:"requestedDates,omitempty" json:"requestedDates,omitempty"` // DD/MM/YYYY
	AdvancePaymentDueDate *time.Time             `bson:"advancePaymentDueDate,omitempty" json:"advancePaymentDueDate,omitempty"`
	AdvancePayment        *RequestAdvancePayment `bson:"advancePayment,omitempty" json:"advancePayment,omitempty"`
	FinalPayment          *FinalPaymentSchedule  `bson:"finalPayment,omitempty" json:"finalPayment,omitempty"`

	RejectionReason   string     `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	OverdueNotifiedAt *time.Time `bson:"overdueNotifiedAt,omitempty" json:"-"`

	Version   int       `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
