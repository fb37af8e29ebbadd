package booking

import (
	"context"
	"time"

	"lenslink/database/repository"
	"lenslink/models"
)

// UserStore reads users and appends to their wallet.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// CreditWallet appends tx to the ledger and adds its amount to the balance.
	CreditWallet(ctx context.Context, userID string, tx models.Transaction) error
}

// VendorStore reads vendors, maintains their booked dates and wallet.
type VendorStore interface {
	GetVendor(ctx context.Context, vendorID string) (*models.Vendor, error)
	// AddBookedDates adds every date or none. It returns repository.ErrDatesTaken
	// when any of them is already booked.
	AddBookedDates(ctx context.Context, vendorID string, dates []string) error
	ReleaseBookedDates(ctx context.Context, vendorID string, dates []string) error
	CreditWallet(ctx context.Context, vendorID string, tx models.Transaction) error
}

// PackageStore reads vendor packages.
type PackageStore interface {
	GetPackage(ctx context.Context, packageID string) (*models.Package, error)
}

// RequestStore persists booking requests.
//
// Update is conditional on the stored version matching req.Version; on success
// req.Version is incremented. A mismatch returns repository.ErrStaleWrite.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *models.BookingRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.BookingRequest, error)
	UpdateRequest(ctx context.Context, req *models.BookingRequest) error
	// DeleteRequest removes the request only while its stored version equals
	// version; otherwise it returns repository.ErrStaleWrite.
	DeleteRequest(ctx context.Context, requestID string, version int) error
	FindActiveRequest(ctx context.Context, key repository.RequestKey) (*models.BookingRequest, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]models.BookingRequest, error)
	ListRequestsByVendor(ctx context.Context, vendorID string) ([]models.BookingRequest, error)
	// ListOverdueRequests returns Accepted requests with a pending advance whose
	// due date is strictly before cutoff.
	ListOverdueRequests(ctx context.Context, cutoff time.Time) ([]models.BookingRequest, error)
}

// BookingStore persists confirmed bookings. UpdateBooking follows the same
// version rule as RequestStore.UpdateRequest.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, b *models.Booking) error
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListBookingsByVendor(ctx context.Context, vendorID string) ([]models.Booking, error)
}

// Transactor runs fn as one atomic unit. Stores must use the ctx passed to fn.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentGateway is the external payment provider. Failures should be
// returned as *GatewayError.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
	RetrievePayment(ctx context.Context, sessionID string) (*models.PaymentResult, error)
	Refund(ctx context.Context, paymentID string, amount int64, idempotencyKey string) (*models.Refund, error)
}

// Notifier delivers a message to one recipient.
type Notifier interface {
	Notify(ctx context.Context, to models.Recipient, kind models.NotificationKind, data map[string]string) error
}

// Scheduler enqueues a reminder to fire at payload.FireAt.
type Scheduler interface {
	ScheduleReminder(ctx context.Context, payload models.ReminderPayload) error
}

// Locker serialises work on a single key across instances.
type Locker interface {
	// Acquire returns a release func, or ErrLocked when the key is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
