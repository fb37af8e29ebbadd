package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lenslink/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLocked is returned by Locker.Acquire when another holder owns the key.
var ErrLocked = errors.New("lock is held by another process")

// BookingService is the booking lifecycle consumed by the HTTP layer, the
// sweeper and the payment webhook.
type BookingService interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*models.BookingRequest, error)
	AcceptOrReject(ctx context.Context, requestID, vendorID string, action Action, reason string) (*models.BookingRequest, error)
	Revoke(ctx context.Context, requestID, userID string) (*models.BookingRequest, error)
	ExpireOverdue(ctx context.Context) (SweepReport, error)

	GetRequest(ctx context.Context, requestID string, caller Caller) (*models.BookingRequest, error)
	ListRequestsForUser(ctx context.Context, userID string) ([]models.BookingRequest, error)
	ListRequestsForVendor(ctx context.Context, vendorID string) ([]models.BookingRequest, error)

	ConfirmAdvancePayment(ctx context.Context, bookingID string, amountPaid int64, paymentID string) (*models.Booking, error)
	ConfirmFinalPayment(ctx context.Context, bookingID string, amountPaid int64, paymentID string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, userID, reason string) (*CancellationResult, error)

	StartAdvanceCheckout(ctx context.Context, requestID, userID string) (*models.CheckoutSession, error)
	StartFinalCheckout(ctx context.Context, bookingID, userID string) (*models.CheckoutSession, error)
	ConfirmCheckout(ctx context.Context, sessionID string) (*models.Booking, error)

	DeliverReminder(ctx context.Context, p models.ReminderPayload) error

	GetBooking(ctx context.Context, bookingID string, caller Caller) (*models.Booking, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListBookingsForVendor(ctx context.Context, vendorID string) ([]models.Booking, error)
}

// Caller is the authenticated party of a read.
type Caller struct {
	ID   string
	Role models.RecipientRole
}

// Deps wires a DefaultBookingService. Locker and Scheduler are optional.
type Deps struct {
	Users     UserStore
	Vendors   VendorStore
	Packages  PackageStore
	Requests  RequestStore
	Bookings  BookingStore
	Tx        Transactor
	Gateway   PaymentGateway
	Notifier  Notifier
	Scheduler Scheduler
	Locker    Locker

	Policy   Policy
	Currency string
	Logger   *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	users     UserStore
	vendors   VendorStore
	packages  PackageStore
	requests  RequestStore
	bookings  BookingStore
	tx        Transactor
	gateway   PaymentGateway
	notifier  Notifier
	scheduler Scheduler
	locker    Locker

	policy   Policy
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookingService validates d and returns a ready service.
func NewBookingService(d Deps) (*DefaultBookingService, error) {
	switch {
	case d.Users == nil, d.Vendors == nil, d.Packages == nil, d.Requests == nil, d.Bookings == nil:
		return nil, fmt.Errorf("booking service: all stores are required")
	case d.Tx == nil:
		return nil, fmt.Errorf("booking service: transactor is required")
	case d.Gateway == nil:
		return nil, fmt.Errorf("booking service: payment gateway is required")
	case d.Notifier == nil:
		return nil, fmt.Errorf("booking service: notifier is required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Currency == "" {
		d.Currency = "inr"
	}
	if d.Policy == (Policy{}) {
		d.Policy = DefaultPolicy()
	}
	return &DefaultBookingService{
		users:     d.Users,
		vendors:   d.Vendors,
		packages:  d.Packages,
		requests:  d.Requests,
		bookings:  d.Bookings,
		tx:        d.Tx,
		gateway:   d.Gateway,
		notifier:  d.Notifier,
		scheduler: d.Scheduler,
		locker:    d.Locker,
		policy:    d.Policy,
		currency:  strings.ToLower(d.Currency),
		logger:    d.Logger,
		now:       d.Now,
	}, nil
}

var _ BookingService = (*DefaultBookingService)(nil)

// notify sends one notification per recipient with a bounded timeout. Delivery
// failures never fail the calling operation.
func (s *DefaultBookingService) notify(ctx context.Context, kind models.NotificationKind, data map[string]string, to ...models.Recipient) {
	base := context.WithoutCancel(ctx)
	for _, r := range to {
		nctx, cancel := context.WithTimeout(base, s.policy.NotifyTimeout)
		if err := s.notifier.Notify(nctx, r, kind, data); err != nil {
			s.logger.Warn("notification failed",
				zap.String("kind", string(kind)),
				zap.String("recipientId", r.ID),
				zap.String("role", string(r.Role)),
				zap.Error(err))
		}
		cancel()
	}
}

// lock takes the per-booking lock when a Locker is configured.
func (s *DefaultBookingService) lock(ctx context.Context, bookingID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, "lock:booking:"+bookingID, s.policy.LockTTL)
	if errors.Is(err, ErrLocked) {
		return nil, conflict(CodeBusy, "another operation on this booking is in progress, try again shortly")
	}
	if err != nil {
		return nil, internal("failed to acquire booking lock", err)
	}
	return release, nil
}

func (s *DefaultBookingService) today() time.Time {
	return NormalizeDate(s.now())
}

func userRecipient(u *models.User) models.Recipient {
	return models.Recipient{ID: u.ID, Role: models.RoleUser, Name: u.Name, Email: u.Email}
}

func vendorRecipient(v *models.Vendor) models.Recipient {
	name := v.CompanyName
	if name == "" {
		name = v.Name
	}
	return models.Recipient{ID: v.ID, Role: models.RoleVendor, Name: name, Email: v.Email}
}

func newRequestID() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "BR-" + strings.ToUpper(id[:8])
}

func newTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

func formatAmount(amount int64) string {
	return fmt.Sprintf("%d", amount)
}
