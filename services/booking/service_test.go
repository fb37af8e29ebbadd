package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lenslink/database/repository"
	"lenslink/database/repository/memory"
	"lenslink/models"
	"lenslink/services/booking"
	"lenslink/services/booking/mocks"

	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	svc       *booking.DefaultBookingService
	store     *memory.Store
	gateway   *mocks.MockPaymentGateway
	notifier  *mocks.MockNotifier
	scheduler *mocks.MockScheduler
	now       time.Time
}

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newFixture seeds one user, one vendor and a 5000-per-day package with two
// add-ons. The clock starts on 2025-01-01 09:00 UTC. Options may replace
// dependencies before the service is built.
func newFixture(t *testing.T, opts ...func(*fixture, *booking.Deps)) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		store:     memory.NewStore(),
		gateway:   mocks.NewMockPaymentGateway(ctrl),
		notifier:  mocks.NewMockNotifier(ctrl),
		scheduler: mocks.NewMockScheduler(ctrl),
		now:       time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.store.Users().PutUser(models.User{ID: "user-1", Name: "Asha Rao", Email: "asha@example.com"})
	f.store.Vendors().PutVendor(models.Vendor{ID: "vendor-1", Name: "Ravi", CompanyName: "Golden Hour Studio", Email: "studio@example.com"})
	f.store.Packages().PutPackage(models.Package{
		ID:          "pkg-1",
		VendorID:    "vendor-1",
		Name:        "Full day coverage",
		ServiceType: "Wedding",
		Price:       5000,
		Customizations: []models.Customization{
			{ID: "drone", Name: "Drone shots", Price: 1500},
			{ID: "album", Name: "Printed album", Price: 800},
		},
	})

	deps := booking.Deps{
		Users:     f.store.Users(),
		Vendors:   f.store.Vendors(),
		Packages:  f.store.Packages(),
		Requests:  f.store.Requests(),
		Bookings:  f.store.Bookings(),
		Tx:        f.store,
		Gateway:   f.gateway,
		Notifier:  f.notifier,
		Scheduler: f.scheduler,
		Locker:    memory.NewLocker(),
		Policy:    booking.DefaultPolicy(),
		Currency:  "inr",
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return f.now },
	}
	for _, opt := range opts {
		opt(f, &deps)
	}
	svc, err := booking.NewBookingService(deps)
	if err != nil {
		t.Fatalf("NewBookingService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) allowNotifications() {
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (f *fixture) allowReminders() {
	f.scheduler.EXPECT().ScheduleReminder(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func twoDayInput(start time.Time) booking.CreateRequestInput {
	return booking.CreateRequestInput{
		UserID:       "user-1",
		VendorID:     "vendor-1",
		Name:         "Asha Rao",
		Email:        "asha@example.com",
		Phone:        "+91 98450 00000",
		Venue:        "Lalbagh, Bengaluru",
		ServiceType:  "Wedding",
		PackageID:    "pkg-1",
		StartingDate: start,
		NumberOfDays: 2,
		TotalPrice:   10000,
	}
}

func (f *fixture) mustCreate(t *testing.T, in booking.CreateRequestInput) *models.BookingRequest {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

func (f *fixture) mustAccept(t *testing.T, requestID string) *models.BookingRequest {
	t.Helper()
	req, err := f.svc.AcceptOrReject(context.Background(), requestID, "vendor-1", booking.ActionAccept, "")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return req
}

func (f *fixture) mustConfirm(t *testing.T, req *models.BookingRequest, paymentID string) *models.Booking {
	t.Helper()
	b, err := f.svc.ConfirmAdvancePayment(context.Background(), req.RequestID, req.AdvancePayment.Amount, paymentID)
	if err != nil {
		t.Fatalf("ConfirmAdvancePayment: %v", err)
	}
	return b
}

func expectKind(t *testing.T, err error, kind booking.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !booking.IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a Requested request with the server price", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		in := twoDayInput(utcDate(2025, 2, 1))
		in.CustomizationIDs = []string{"drone", "album"}
		in.TotalPrice = 12300

		req := f.mustCreate(t, in)
		if req.State != models.RequestStateRequested || !req.Active {
			t.Fatalf("unexpected state %s active=%v", req.State, req.Active)
		}
		if req.TotalPrice != 12300 {
			t.Fatalf("expected total 12300, got %d", req.TotalPrice)
		}
		stored, err := f.store.Requests().GetRequest(ctx, req.RequestID)
		if err != nil || stored.RequestID != req.RequestID {
			t.Fatalf("request not stored: %v", err)
		}
	})

	t.Run("notifies vendor and requester", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), models.NotifyRequestReceived, gomock.Any()).
			DoAndReturn(func(_ context.Context, to models.Recipient, _ models.NotificationKind, _ map[string]string) error {
				if to.Role != models.RoleVendor || to.ID != "vendor-1" {
					t.Errorf("vendor notice sent to %+v", to)
				}
				return nil
			})
		f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), models.NotifyRequestCreated, gomock.Any()).
			Return(errors.New("fcm unavailable"))

		if _, err := f.svc.CreateRequest(ctx, twoDayInput(utcDate(2025, 2, 1))); err != nil {
			t.Fatalf("notification failure must not fail the request: %v", err)
		}
	})

	t.Run("rejects a tampered price and stores nothing", func(t *testing.T) {
		f := newFixture(t)
		in := twoDayInput(utcDate(2025, 2, 1))
		in.TotalPrice = 100

		_, err := f.svc.CreateRequest(ctx, in)
		expectKind(t, err, booking.KindValidationFailed)
		if booking.CodeOf(err) != booking.CodePriceMismatch {
			t.Fatalf("expected price mismatch, got %v", err)
		}
		reqs, _ := f.store.Requests().ListRequestsByUser(ctx, "user-1")
		if len(reqs) != 0 {
			t.Fatalf("expected nothing persisted, found %d requests", len(reqs))
		}
	})

	t.Run("rejects a duplicate active request", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))

		_, err := f.svc.CreateRequest(ctx, twoDayInput(utcDate(2025, 2, 1)))
		expectKind(t, err, booking.KindConflict)
		if booking.CodeOf(err) != booking.CodeDuplicateRequest {
			t.Fatalf("expected duplicate_request, got %v", err)
		}
	})

	t.Run("allows a new request once the first is revoked", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		first := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
		if _, err := f.svc.Revoke(ctx, first.RequestID, "user-1"); err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	})

	t.Run("starting date already booked", func(t *testing.T) {
		f := newFixture(t)
		f.store.Vendors().PutVendor(models.Vendor{ID: "vendor-1", Name: "Ravi", BookedDates: []string{"01/02/2025"}})
		_, err := f.svc.CreateRequest(ctx, twoDayInput(utcDate(2025, 2, 1)))
		expectKind(t, err, booking.KindConflict)
	})

	t.Run("unknown references", func(t *testing.T) {
		f := newFixture(t)
		in := twoDayInput(utcDate(2025, 2, 1))
		in.VendorID = "vendor-404"
		_, err := f.svc.CreateRequest(ctx, in)
		expectKind(t, err, booking.KindNotFound)

		in = twoDayInput(utcDate(2025, 2, 1))
		in.PackageID = "pkg-404"
		_, err = f.svc.CreateRequest(ctx, in)
		expectKind(t, err, booking.KindNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)
		in := twoDayInput(utcDate(2025, 2, 1))
		in.NumberOfDays = 0
		_, err := f.svc.CreateRequest(ctx, in)
		expectKind(t, err, booking.KindValidationFailed)

		in = twoDayInput(utcDate(2024, 12, 1))
		_, err = f.svc.CreateRequest(ctx, in)
		expectKind(t, err, booking.KindValidationFailed)
	})
}

func TestAcceptOrReject(t *testing.T) {
	ctx := context.Background()

	t.Run("accept computes the payment schedule", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))

		got := f.mustAccept(t, req.RequestID)
		if got.State != models.RequestStateAccepted {
			t.Fatalf("expected Accepted, got %s", got.State)
		}
		if got.AdvancePayment.Amount != 3000 || got.FinalPayment.Amount != 7000 {
			t.Fatalf("expected 3000/7000, got %d/%d", got.AdvancePayment.Amount, got.FinalPayment.Amount)
		}
		if !got.AdvancePaymentDueDate.Equal(utcDate(2025, 1, 4)) {
			t.Fatalf("expected advance due 2025-01-04, got %v", got.AdvancePaymentDueDate)
		}
		if !got.FinalPayment.DueDate.Equal(utcDate(2025, 2, 10)) {
			t.Fatalf("expected final due 2025-02-10, got %v", got.FinalPayment.DueDate)
		}
		if len(got.RequestedDates) != 2 || got.RequestedDates[0] != "01/02/2025" || got.RequestedDates[1] != "02/02/2025" {
			t.Fatalf("unexpected requested dates %v", got.RequestedDates)
		}
	})

	t.Run("accept re-validates the vendor calendar", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
		f.store.Vendors().PutVendor(models.Vendor{ID: "vendor-1", Name: "Ravi", BookedDates: []string{"02/02/2025"}})

		_, err := f.svc.AcceptOrReject(ctx, req.RequestID, "vendor-1", booking.ActionAccept, "")
		expectKind(t, err, booking.KindConflict)
		var be *booking.Error
		if !errors.As(err, &be) || len(be.Details) != 1 || be.Details[0] != "02/02/2025" {
			t.Fatalf("expected conflict listing 02/02/2025, got %v", err)
		}
		stored, _ := f.store.Requests().GetRequest(ctx, req.RequestID)
		if stored.State != models.RequestStateRequested || stored.AdvancePayment != nil {
			t.Fatalf("request must stay untouched, got %s", stored.State)
		}
	})

	t.Run("accept enforces the lead time", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		req := f.mustCreate(t, twoDayInput(utcDate(2025, 1, 5)))

		_, err := f.svc.AcceptOrReject(ctx, req.RequestID, "vendor-1", booking.ActionAccept, "")
		expectKind(t, err, booking.KindValidationFailed)
		if booking.CodeOf(err) != booking.CodeLeadTime {
			t.Fatalf("expected lead time error, got %v", err)
		}
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))

		_, err := f.svc.AcceptOrReject(ctx, req.RequestID, "vendor-1", booking.ActionReject, "  ")
		expectKind(t, err, booking.KindValidationFailed)

		got, err := f.svc.AcceptOrReject(ctx, req.RequestID, "vendor-1", booking.ActionReject, "Fully booked that week")
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if got.State != models.RequestStateRejected || got.RejectionReason != "Fully booked that week" {
			t.Fatalf("unexpected request %+v", got)
		}
	})

	t.Run("second decision is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
		f.mustAccept(t, req.RequestID)

		_, err := f.svc.AcceptOrReject(ctx, req.RequestID, "vendor-1", booking.ActionReject, "changed my mind")
		expectKind(t, err, booking.KindConflict)
	})

	t.Run("other vendors cannot see the request", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))

		_, err := f.svc.AcceptOrReject(ctx, req.RequestID, "vendor-2", booking.ActionAccept, "")
		expectKind(t, err, booking.KindNotFound)
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.allowNotifications()
	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))

	_, err := f.svc.Revoke(ctx, req.RequestID, "user-2")
	expectKind(t, err, booking.KindNotFound)

	got, err := f.svc.Revoke(ctx, req.RequestID, "user-1")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if got.State != models.RequestStateRevoked || got.Active {
		t.Fatalf("unexpected request %+v", got)
	}

	list, err := f.svc.ListRequestsForUser(ctx, "user-1")
	if err != nil || len(list) != 0 {
		t.Fatalf("revoked requests must not be listed, got %d (%v)", len(list), err)
	}

	_, err = f.svc.Revoke(ctx, req.RequestID, "user-1")
	expectKind(t, err, booking.KindConflict)
}

func TestExpireOverdueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Not(models.NotifyPaymentOverdue), gomock.Any()).
		Return(nil).AnyTimes()
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), models.NotifyPaymentOverdue, gomock.Any()).
		Return(nil).Times(2)

	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	f.mustAccept(t, req.RequestID)

	f.now = time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
	report, err := f.svc.ExpireOverdue(ctx)
	if err != nil || report.Expired != 0 {
		t.Fatalf("nothing is overdue on the due date itself, got %+v (%v)", report, err)
	}

	f.now = time.Date(2025, 1, 5, 0, 0, 1, 0, time.UTC)
	report, err = f.svc.ExpireOverdue(ctx)
	if err != nil || report.Expired != 1 {
		t.Fatalf("expected one expired request, got %+v (%v)", report, err)
	}
	first, _ := f.store.Requests().GetRequest(ctx, req.RequestID)

	report, err = f.svc.ExpireOverdue(ctx)
	if err != nil || report.Expired != 0 || report.Scanned != 0 {
		t.Fatalf("second sweep must be a no-op, got %+v (%v)", report, err)
	}
	second, _ := f.store.Requests().GetRequest(ctx, req.RequestID)

	if second.State != models.RequestStatePaymentOverdue || second.AdvancePayment.Status != models.AdvanceStatusOverdue {
		t.Fatalf("unexpected final state %s/%s", second.State, second.AdvancePayment.Status)
	}
	if first.Version != second.Version {
		t.Fatalf("second sweep modified the request: version %d -> %d", first.Version, second.Version)
	}

	_, err = f.svc.ConfirmAdvancePayment(ctx, req.RequestID, 3000, "pi_late")
	expectKind(t, err, booking.KindConflict)
}

// sweepAfterRead runs afterRead once, right after the next GetRequest returns.
type sweepAfterRead struct {
	*memory.RequestStore
	afterRead func()
}

func (r *sweepAfterRead) GetRequest(ctx context.Context, requestID string) (*models.BookingRequest, error) {
	req, err := r.RequestStore.GetRequest(ctx, requestID)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return req, err
}

func TestConfirmAdvanceLosesToConcurrentExpiry(t *testing.T) {
	ctx := context.Background()
	requests := &sweepAfterRead{}
	f := newFixture(t, func(f *fixture, d *booking.Deps) {
		requests.RequestStore = f.store.Requests()
		d.Requests = requests
	})
	f.allowNotifications()
	f.allowReminders()

	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	f.mustAccept(t, req.RequestID)

	f.now = time.Date(2025, 1, 5, 1, 0, 0, 0, time.UTC)
	requests.afterRead = func() {
		report, err := f.svc.ExpireOverdue(ctx)
		if err != nil || report.Expired != 1 {
			t.Errorf("sweep between read and commit: %+v (%v)", report, err)
		}
	}

	_, err := f.svc.ConfirmAdvancePayment(ctx, req.RequestID, 3000, "pi_x")
	expectKind(t, err, booking.KindConflict)

	if _, err := f.store.Bookings().GetBooking(ctx, req.RequestID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("no booking may be created, got %v", err)
	}
	stored, err := f.store.Requests().GetRequest(ctx, req.RequestID)
	if err != nil {
		t.Fatalf("expired request must survive: %v", err)
	}
	if stored.State != models.RequestStatePaymentOverdue {
		t.Fatalf("expected PaymentOverdue, got %s", stored.State)
	}
	vendor, _ := f.store.Vendors().GetVendor(ctx, "vendor-1")
	if len(vendor.BookedDates) != 0 {
		t.Fatalf("dates must stay free, got %v", vendor.BookedDates)
	}
}

func TestAdvanceDueDayStaysPayable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.allowNotifications()
	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	f.mustAccept(t, req.RequestID)

	f.gateway.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).
		Return(&models.CheckoutSession{ID: "cs_late", URL: "https://checkout.example/cs_late"}, nil)

	f.now = time.Date(2025, 1, 4, 23, 59, 59, 0, time.UTC)
	report, err := f.svc.ExpireOverdue(ctx)
	if err != nil || report.Expired != 0 {
		t.Fatalf("last second of the due day must not expire, got %+v (%v)", report, err)
	}
	if _, err := f.svc.StartAdvanceCheckout(ctx, req.RequestID, "user-1"); err != nil {
		t.Fatalf("checkout must stay open through the due day: %v", err)
	}

	f.now = utcDate(2025, 1, 5)
	report, err = f.svc.ExpireOverdue(ctx)
	if err != nil || report.Expired != 1 {
		t.Fatalf("expected expiry at midnight after the due day, got %+v (%v)", report, err)
	}
	_, err = f.svc.StartAdvanceCheckout(ctx, req.RequestID, "user-1")
	expectKind(t, err, booking.KindConflict)
}

func TestBookingLifecycleHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.allowNotifications()

	var reminders []models.ReminderPayload
	f.scheduler.EXPECT().ScheduleReminder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p models.ReminderPayload) error {
			reminders = append(reminders, p)
			return nil
		}).Times(2)

	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	accepted := f.mustAccept(t, req.RequestID)

	b := f.mustConfirm(t, accepted, "pi_advance")
	if b.BookingID != req.RequestID || b.BookingStatus != models.BookingStatusConfirmed {
		t.Fatalf("unexpected booking %+v", b)
	}
	if b.AdvancePayment.Status != models.PaymentStatusCompleted || b.FinalPayment.Status != models.PaymentStatusPending {
		t.Fatalf("unexpected payment state %+v / %+v", b.AdvancePayment, b.FinalPayment)
	}
	if _, err := f.store.Requests().GetRequest(ctx, req.RequestID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("request must be deleted, got %v", err)
	}
	vendor, _ := f.store.Vendors().GetVendor(ctx, "vendor-1")
	if len(vendor.BookedDates) != 2 || vendor.BookedDates[0] != "01/02/2025" || vendor.BookedDates[1] != "02/02/2025" {
		t.Fatalf("unexpected vendor dates %v", vendor.BookedDates)
	}
	if len(reminders) != 2 {
		t.Fatalf("expected two reminders, got %d", len(reminders))
	}
	if reminders[0].Kind != models.NotifyEventReminder || !reminders[0].FireAt.Equal(utcDate(2025, 1, 31)) {
		t.Fatalf("unexpected event reminder %+v", reminders[0])
	}

	replay, err := f.svc.ConfirmAdvancePayment(ctx, req.RequestID, 3000, "pi_advance")
	if err != nil || replay.BookingID != b.BookingID {
		t.Fatalf("replay must return the existing booking, got %v", err)
	}
	_, err = f.svc.ConfirmAdvancePayment(ctx, req.RequestID, 3000, "pi_other")
	expectKind(t, err, booking.KindConflict)

	f.now = time.Date(2025, 2, 5, 10, 0, 0, 0, time.UTC)
	_, err = f.svc.ConfirmFinalPayment(ctx, b.BookingID, 6999, "pi_final")
	expectKind(t, err, booking.KindValidationFailed)

	done, err := f.svc.ConfirmFinalPayment(ctx, b.BookingID, 7000, "pi_final")
	if err != nil {
		t.Fatalf("ConfirmFinalPayment: %v", err)
	}
	if done.BookingStatus != models.BookingStatusCompleted || done.FinalPayment.Status != models.PaymentStatusCompleted {
		t.Fatalf("unexpected booking %+v", done)
	}

	_, err = f.svc.Cancel(ctx, b.BookingID, "user-1", "too late")
	expectKind(t, err, booking.KindConflict)
}

func TestConfirmAdvancePaymentValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.allowNotifications()
	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))

	_, err := f.svc.ConfirmAdvancePayment(ctx, req.RequestID, 3000, "pi_1")
	expectKind(t, err, booking.KindConflict)

	f.mustAccept(t, req.RequestID)
	_, err = f.svc.ConfirmAdvancePayment(ctx, req.RequestID, 2999, "pi_1")
	expectKind(t, err, booking.KindValidationFailed)

	f.store.Vendors().PutVendor(models.Vendor{ID: "vendor-1", Name: "Ravi", BookedDates: []string{"01/02/2025"}})
	_, err = f.svc.ConfirmAdvancePayment(ctx, req.RequestID, 3000, "pi_1")
	expectKind(t, err, booking.KindConflict)
	if _, err := f.store.Bookings().GetBooking(ctx, req.RequestID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("no booking may be created on conflict, got %v", err)
	}

	_, err = f.svc.ConfirmAdvancePayment(ctx, "BR-MISSING", 3000, "pi_1")
	expectKind(t, err, booking.KindNotFound)
}

func TestConfirmFinalPaymentAfterDueDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.allowNotifications()
	f.allowReminders()
	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	b := f.mustConfirm(t, f.mustAccept(t, req.RequestID), "pi_advance")

	f.now = time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.ConfirmFinalPayment(ctx, b.BookingID, 7000, "pi_final")
	expectKind(t, err, booking.KindPolicyDenied)

	f.now = time.Date(2025, 2, 10, 23, 59, 0, 0, time.UTC)
	if _, err := f.svc.ConfirmFinalPayment(ctx, b.BookingID, 7000, "pi_final"); err != nil {
		t.Fatalf("the due date itself is still on time: %v", err)
	}
}

func confirmedBooking(t *testing.T, f *fixture) *models.Booking {
	t.Helper()
	f.allowNotifications()
	f.allowReminders()
	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	return f.mustConfirm(t, f.mustAccept(t, req.RequestID), "pi_advance")
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("early cancellation refunds 95 percent", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.now = time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)

		f.gateway.EXPECT().
			Refund(gomock.Any(), "pi_advance", int64(2850), "refund-"+b.BookingID+"-pi_advance").
			Return(&models.Refund{ID: "re_1", Status: "succeeded", Amount: 2850}, nil)

		res, err := f.svc.Cancel(ctx, b.BookingID, "user-1", "family emergency")
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if res.UserRefundAmount != 2850 || res.VendorFeeAmount != 150 || res.RefundID != "re_1" {
			t.Fatalf("unexpected result %+v", res)
		}

		stored, _ := f.store.Bookings().GetBooking(ctx, b.BookingID)
		if stored.BookingStatus != models.BookingStatusCancelled ||
			stored.AdvancePayment.Status != models.PaymentStatusRefunded ||
			stored.AdvancePayment.RefundedAt == nil ||
			stored.CancellationReason != "family emergency" {
			t.Fatalf("unexpected booking %+v", stored)
		}

		user, _ := f.store.Users().GetUser(ctx, "user-1")
		if user.Wallet.Balance != 2850 || len(user.Wallet.Transactions) != 1 ||
			user.Wallet.Transactions[0].PaymentType != models.PaymentTypeRefund ||
			user.Wallet.Transactions[0].TransactionType != models.TransactionCredit {
			t.Fatalf("unexpected user wallet %+v", user.Wallet)
		}
		vendor, _ := f.store.Vendors().GetVendor(ctx, "vendor-1")
		if vendor.Wallet.Balance != 150 || len(vendor.Wallet.Transactions) != 1 ||
			vendor.Wallet.Transactions[0].PaymentType != models.PaymentTypeCancellation {
			t.Fatalf("unexpected vendor wallet %+v", vendor.Wallet)
		}
		if len(vendor.BookedDates) != 0 {
			t.Fatalf("dates must be released, got %v", vendor.BookedDates)
		}

		_, err = f.svc.Cancel(ctx, b.BookingID, "user-1", "again")
		expectKind(t, err, booking.KindConflict)
	})

	t.Run("too close to the event", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.now = time.Date(2025, 1, 25, 8, 0, 0, 0, time.UTC)

		_, err := f.svc.Cancel(ctx, b.BookingID, "user-1", "")
		expectKind(t, err, booking.KindPolicyDenied)
	})

	t.Run("already refunded at the gateway", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.gateway.EXPECT().Refund(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &booking.GatewayError{Code: booking.GatewayCodeAlreadyRefunded, Type: "invalid_request_error", Message: "Charge has already been refunded."})

		_, err := f.svc.Cancel(ctx, b.BookingID, "user-1", "")
		expectKind(t, err, booking.KindPaymentGateway)
		if booking.CodeOf(err) != booking.CodeAlreadyRefunded {
			t.Fatalf("expected already_refunded, got %v", err)
		}
		stored, _ := f.store.Bookings().GetBooking(ctx, b.BookingID)
		if stored.BookingStatus != models.BookingStatusConfirmed {
			t.Fatalf("booking must be untouched, got %s", stored.BookingStatus)
		}
	})

	t.Run("gateway timeout is retryable and changes nothing", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.gateway.EXPECT().Refund(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &booking.GatewayError{Type: "api_connection_error", Retryable: true, Err: context.DeadlineExceeded})

		_, err := f.svc.Cancel(ctx, b.BookingID, "user-1", "")
		var be *booking.Error
		if !errors.As(err, &be) || !be.Retryable {
			t.Fatalf("expected retryable gateway error, got %v", err)
		}
		user, _ := f.store.Users().GetUser(ctx, "user-1")
		if user.Wallet.Balance != 0 {
			t.Fatalf("wallet must be untouched, got %d", user.Wallet.Balance)
		}
	})

	t.Run("retry after a failed refund keeps the first decision", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		key := "refund-" + b.BookingID + "-pi_advance"

		f.now = time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
		f.gateway.EXPECT().Refund(gomock.Any(), "pi_advance", int64(2850), key).
			Return(nil, &booking.GatewayError{Type: "api_connection_error", Retryable: true, Err: context.DeadlineExceeded})
		if _, err := f.svc.Cancel(ctx, b.BookingID, "user-1", "first try"); err == nil {
			t.Fatal("expected the first attempt to fail")
		}

		pending, _ := f.store.Bookings().GetBooking(ctx, b.BookingID)
		if pending.PendingCancellation == nil || pending.PendingCancellation.UserRefund != 2850 {
			t.Fatalf("decision must be stored before the gateway call, got %+v", pending.PendingCancellation)
		}
		_, err := f.svc.ConfirmFinalPayment(ctx, b.BookingID, 7000, "pi_final")
		expectKind(t, err, booking.KindConflict)

		// A week later the policy alone would only refund 70 percent.
		f.now = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
		f.gateway.EXPECT().Refund(gomock.Any(), "pi_advance", int64(2850), key).
			Return(&models.Refund{ID: "re_1", Status: "succeeded", Amount: 2850}, nil)

		res, err := f.svc.Cancel(ctx, b.BookingID, "user-1", "second try")
		if err != nil {
			t.Fatalf("Cancel retry: %v", err)
		}
		if res.UserRefundAmount != 2850 || res.VendorFeeAmount != 150 || res.Decision.UserRefundPct != 95 {
			t.Fatalf("retry must reuse the first decision, got %+v", res)
		}
		stored, _ := f.store.Bookings().GetBooking(ctx, b.BookingID)
		if stored.BookingStatus != models.BookingStatusCancelled || stored.PendingCancellation != nil {
			t.Fatalf("unexpected booking %+v", stored)
		}
	})

	t.Run("only the owner may cancel", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		_, err := f.svc.Cancel(ctx, b.BookingID, "user-2", "")
		expectKind(t, err, booking.KindNotFound)
	})

	t.Run("clock before payment is treated as no time elapsed", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		f.allowReminders()
		req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))

		// Paid 20 days before the event, cancelled with a clock reading 22 days before it.
		f.now = time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC)
		b := f.mustConfirm(t, f.mustAccept(t, req.RequestID), "pi_advance")
		f.now = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

		f.gateway.EXPECT().Refund(gomock.Any(), "pi_advance", int64(2850), gomock.Any()).
			Return(&models.Refund{ID: "re_2"}, nil)

		res, err := f.svc.Cancel(ctx, b.BookingID, "user-1", "")
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if res.Decision.ElapsedPct != 0 || res.Decision.UserRefundPct != 95 {
			t.Fatalf("unexpected decision %+v", res.Decision)
		}
	})
}

func TestConfirmCheckoutRoutesByStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.allowNotifications()
	f.allowReminders()
	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	f.mustAccept(t, req.RequestID)

	f.gateway.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.CheckoutRequest) (*models.CheckoutSession, error) {
			if c.Stage != models.StageAdvance || c.Amount != 3000 || c.BookingID != req.RequestID {
				t.Errorf("unexpected checkout request %+v", c)
			}
			return &models.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
		})
	sess, err := f.svc.StartAdvanceCheckout(ctx, req.RequestID, "user-1")
	if err != nil || sess.ID != "cs_1" {
		t.Fatalf("StartAdvanceCheckout: %v", err)
	}

	f.gateway.EXPECT().RetrievePayment(gomock.Any(), "cs_1").Return(&models.PaymentResult{
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
		BookingID:       req.RequestID,
		Stage:           models.StageAdvance,
		AmountPaid:      3000,
		Currency:        "inr",
		Paid:            true,
	}, nil).Times(2)

	b, err := f.svc.ConfirmCheckout(ctx, "cs_1")
	if err != nil || b.BookingStatus != models.BookingStatusConfirmed {
		t.Fatalf("ConfirmCheckout: %v", err)
	}
	// Webhook and redirect both deliver the same session.
	again, err := f.svc.ConfirmCheckout(ctx, "cs_1")
	if err != nil || again.BookingID != b.BookingID {
		t.Fatalf("duplicate delivery must be idempotent: %v", err)
	}

	f.gateway.EXPECT().RetrievePayment(gomock.Any(), "cs_unpaid").Return(&models.PaymentResult{Paid: false}, nil)
	_, err = f.svc.ConfirmCheckout(ctx, "cs_unpaid")
	expectKind(t, err, booking.KindConflict)
}

func TestConfirmCheckoutLogsStrandedPayment(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, func(_ *fixture, d *booking.Deps) {
		d.Logger = zap.New(core)
	})
	f.allowNotifications()
	f.allowReminders()
	req := f.mustCreate(t, twoDayInput(utcDate(2025, 2, 1)))
	f.mustAccept(t, req.RequestID)

	// Another booking took the dates while the customer was at checkout.
	if err := f.store.Vendors().AddBookedDates(ctx, "vendor-1", []string{"01/02/2025"}); err != nil {
		t.Fatalf("AddBookedDates: %v", err)
	}

	f.gateway.EXPECT().RetrievePayment(gomock.Any(), "cs_taken").Return(&models.PaymentResult{
		SessionID:       "cs_taken",
		PaymentIntentID: "pi_taken",
		BookingID:       req.RequestID,
		Stage:           models.StageAdvance,
		AmountPaid:      3000,
		Currency:        "inr",
		Paid:            true,
	}, nil)

	_, err := f.svc.ConfirmCheckout(ctx, "cs_taken")
	if booking.CodeOf(err) != booking.CodeDatesUnavailable {
		t.Fatalf("expected dates_unavailable, got %v", err)
	}

	stranded := logs.FilterLevelExact(zap.ErrorLevel).FilterField(zap.String("paymentId", "pi_taken")).All()
	if len(stranded) != 1 {
		t.Fatalf("expected one error entry for the captured payment, got %d", len(stranded))
	}
	fields := stranded[0].ContextMap()
	if fields["sessionId"] != "cs_taken" || fields["code"] != booking.CodeDatesUnavailable {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestDeliverReminderSkipsCancelledBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := confirmedBooking(t, f)
	f.now = time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
	f.gateway.EXPECT().Refund(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&models.Refund{ID: "re_1"}, nil)
	if _, err := f.svc.Cancel(ctx, b.BookingID, "user-1", ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	err := f.svc.DeliverReminder(ctx, models.ReminderPayload{
		BookingID:  b.BookingID,
		Kind:       models.NotifyEventReminder,
		Recipients: []models.Recipient{{ID: "user-1", Role: models.RoleUser}},
	})
	if err != nil {
		t.Fatalf("DeliverReminder: %v", err)
	}
}
