package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"lenslink/database/repository"
	"lenslink/models"

	"go.uber.org/zap"
)

// PaymentMethodOnline tags ledger entries settled through the payment gateway.
const PaymentMethodOnline = "online"

// CancellationResult reports what a successful cancellation did.
type CancellationResult struct {
	Booking          *models.Booking `json:"booking"`
	Decision         RefundDecision  `json:"decision"`
	UserRefundAmount int64           `json:"userRefundAmount"`
	VendorFeeAmount  int64           `json:"vendorFeeAmount"`
	RefundID         string          `json:"refundId,omitempty"`
}

// ConfirmAdvancePayment converts an Accepted request into a Confirmed booking
// once its advance has been captured. Replaying a confirmation with the same
// paymentID returns the booking created the first time.
func (s *DefaultBookingService) ConfirmAdvancePayment(ctx context.Context, bookingID string, amountPaid int64, paymentID string) (*models.Booking, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, invalid(CodeInvalidInput, "paymentId is required")
	}
	release, err := s.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := s.logger.With(zap.String("bookingId", bookingID), zap.String("paymentId", paymentID))

	req, err := s.requests.GetRequest(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.replayAdvance(ctx, bookingID, paymentID)
	}
	if err != nil {
		return nil, internal("failed to load booking request", err)
	}

	if req.State != models.RequestStateAccepted || req.AdvancePayment == nil ||
		req.AdvancePayment.Status != models.AdvanceStatusPending || req.FinalPayment == nil {
		return nil, conflict(CodeAlreadyProcessed,
			fmt.Sprintf("booking request is not awaiting an advance payment (state %s)", req.State))
	}
	if amountPaid != req.AdvancePayment.Amount {
		return nil, invalid(CodeAmountMismatch,
			fmt.Sprintf("amount paid %d does not match the advance of %d", amountPaid, req.AdvancePayment.Amount))
	}

	vendor, err := s.vendors.GetVendor(ctx, req.VendorID)
	if err != nil {
		return nil, s.lookupErr(err, CodeVendorNotFound, "vendor not found")
	}
	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, s.lookupErr(err, CodeUserNotFound, "user not found")
	}

	expanded := ExpandDates(req.StartingDate, req.NumberOfDays)
	dates := FormatDates(expanded)
	if res := FindConflicts(expanded, vendor.BookedDates); res.HasConflict {
		log.Warn("advance paid for dates that are no longer free", zap.Strings("dates", res.Conflicting))
		return nil, datesUnavailable(res.Conflicting)
	}

	now := s.now().UTC()
	b := bookingFromRequest(req, dates, paymentID, now)

	// The money is already captured; the caller going away must not leave the
	// three writes half done.
	mctx := context.WithoutCancel(ctx)
	err = s.tx.WithTransaction(mctx, func(tctx context.Context) error {
		if err := s.bookings.CreateBooking(tctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		if err := s.vendors.AddBookedDates(tctx, b.VendorID, b.RequestedDates); err != nil {
			return fmt.Errorf("add vendor dates: %w", err)
		}
		if err := s.requests.DeleteRequest(tctx, req.RequestID, req.Version); err != nil {
			return fmt.Errorf("delete request: %w", err)
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDatesTaken):
		log.Warn("vendor dates taken during confirmation", zap.Strings("dates", dates))
		return nil, datesUnavailable(dates)
	case errors.Is(err, repository.ErrDuplicate):
		return s.replayAdvance(ctx, bookingID, paymentID)
	case errors.Is(err, repository.ErrStaleWrite), errors.Is(err, repository.ErrNotFound):
		log.Error("booking request changed while confirming a captured advance, refund manually",
			zap.String("requestId", req.RequestID), zap.Error(err))
		return nil, conflict(CodeAlreadyProcessed, "booking request changed while the payment was being confirmed")
	default:
		log.Error("advance confirmation failed after payment capture", zap.Error(err))
		return nil, internal("failed to confirm booking", err)
	}
	log.Info("booking confirmed", zap.Int64("advance", amountPaid))

	s.scheduleReminders(mctx, b, user, vendor)
	s.notify(ctx, models.NotifyBookingConfirmed, map[string]string{
		"bookingId":    b.BookingID,
		"startingDate": FormatDate(b.StartingDate),
		"advancePaid":  formatAmount(b.AdvancePayment.Amount),
		"finalAmount":  formatAmount(b.FinalPayment.Amount),
		"finalDueDate": FormatDate(b.FinalPayment.DueDate),
	}, userRecipient(user), vendorRecipient(vendor))

	return b, nil
}

func (s *DefaultBookingService) replayAdvance(ctx context.Context, bookingID, paymentID string) (*models.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(CodeRequestNotFound, "booking request not found")
	}
	if err != nil {
		return nil, internal("failed to load booking", err)
	}
	if b.AdvancePayment.PaymentID != paymentID {
		return nil, conflict(CodeAlreadyProcessed, "booking was already confirmed with a different payment")
	}
	return b, nil
}

func bookingFromRequest(req *models.BookingRequest, dates []string, paymentID string, now time.Time) *models.Booking {
	return &models.Booking{
		BookingID:        req.RequestID,
		UserID:           req.UserID,
		VendorID:         req.VendorID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Venue:            req.Venue,
		ServiceType:      req.ServiceType,
		PackageID:        req.PackageID,
		CustomizationIDs: req.CustomizationIDs,
		Message:          req.Message,
		StartingDate:     req.StartingDate,
		NumberOfDays:     req.NumberOfDays,
		TotalAmount:      req.TotalPrice,
		AdvancePayment: models.AdvancePayment{
			Amount:    req.AdvancePayment.Amount,
			Status:    models.PaymentStatusCompleted,
			PaymentID: paymentID,
			PaidAt:    now,
		},
		FinalPayment: models.FinalPayment{
			Amount:  req.FinalPayment.Amount,
			DueDate: req.FinalPayment.DueDate,
			Status:  models.PaymentStatusPending,
		},
		BookingStatus:  models.BookingStatusConfirmed,
		RequestedDates: dates,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ConfirmFinalPayment settles the remaining balance and completes the booking.
// The due date is inclusive.
func (s *DefaultBookingService) ConfirmFinalPayment(ctx context.Context, bookingID string, amountPaid int64, paymentID string) (*models.Booking, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, invalid(CodeInvalidInput, "paymentId is required")
	}
	release, err := s.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.FinalPayment.Status == models.PaymentStatusCompleted && b.FinalPayment.PaymentID == paymentID {
		return b, nil
	}
	if b.BookingStatus != models.BookingStatusConfirmed {
		return nil, conflict(CodeAlreadyProcessed, fmt.Sprintf("booking is %s", b.BookingStatus))
	}
	if b.PendingCancellation != nil {
		return nil, conflict(CodeAlreadyProcessed, "booking is being cancelled")
	}
	if b.FinalPayment.Status != models.PaymentStatusPending {
		return nil, conflict(CodeAlreadyProcessed, fmt.Sprintf("final payment is %s", b.FinalPayment.Status))
	}
	if b.AdvancePayment.Status != models.PaymentStatusCompleted {
		return nil, conflict(CodePaymentIncomplete, "advance payment must be completed before the final payment")
	}
	if amountPaid != b.FinalPayment.Amount {
		return nil, invalid(CodeAmountMismatch,
			fmt.Sprintf("amount paid %d does not match the final payment of %d", amountPaid, b.FinalPayment.Amount))
	}
	if s.today().After(NormalizeDate(b.FinalPayment.DueDate)) {
		return nil, denied(CodeFinalPaymentLate,
			"final payment was due on "+FormatDate(b.FinalPayment.DueDate))
	}

	now := s.now().UTC()
	b.FinalPayment.Status = models.PaymentStatusCompleted
	b.FinalPayment.PaymentID = paymentID
	b.FinalPayment.PaidAt = &now
	b.BookingStatus = models.BookingStatusCompleted
	b.UpdatedAt = now
	if err := s.saveBooking(context.WithoutCancel(ctx), b); err != nil {
		return nil, err
	}
	s.logger.Info("booking completed", zap.String("bookingId", b.BookingID), zap.String("paymentId", paymentID))

	s.notify(ctx, models.NotifyBookingCompleted, map[string]string{
		"bookingId": b.BookingID,
		"finalPaid": formatAmount(amountPaid),
	}, s.parties(ctx, b)...)
	return b, nil
}

// Cancel cancels a Confirmed booking on behalf of its owner and refunds the
// advance according to the refund policy. The gateway refund runs first; the
// local effects follow as one transaction.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, userID, reason string) (*CancellationResult, error) {
	release, err := s.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, notFound(CodeBookingNotFound, "booking not found")
	}
	if b.BookingStatus.IsTerminal() {
		return nil, conflict(CodeAlreadyProcessed, fmt.Sprintf("booking is already %s", b.BookingStatus))
	}
	if b.AdvancePayment.Status != models.PaymentStatusCompleted {
		return nil, conflict(CodeAlreadyProcessed, fmt.Sprintf("advance payment is %s", b.AdvancePayment.Status))
	}

	now := s.now().UTC()
	log := s.logger.With(zap.String("bookingId", b.BookingID), zap.String("paymentId", b.AdvancePayment.PaymentID))
	mctx := context.WithoutCancel(ctx)

	var (
		decision              RefundDecision
		userRefund, vendorFee int64
	)
	if p := b.PendingCancellation; p != nil {
		// An earlier attempt already decided the refund; the gateway may have
		// executed it under refundKey(b).
		decision = RefundDecision{
			Eligible:      true,
			UserRefundPct: p.UserRefundPct,
			VendorFeePct:  100 - p.UserRefundPct,
			Reason:        p.PolicyReason,
		}
		userRefund, vendorFee = p.UserRefund, p.VendorFee
		log.Info("resuming cancellation", zap.Time("decidedAt", p.DecidedAt), zap.Int64("userRefund", userRefund))
	} else {
		decision = s.policy.EvaluateRefund(b.AdvancePayment.PaidAt, b.StartingDate, now)
		if !decision.Eligible {
			e := denied(CodeNotRefundable, "booking cannot be cancelled: "+decision.Reason)
			e.Details = []string{decision.Reason}
			return nil, e
		}
		userRefund = int64(math.Round(float64(b.AdvancePayment.Amount) * float64(decision.UserRefundPct) / 100))
		vendorFee = b.AdvancePayment.Amount - userRefund

		b.PendingCancellation = &models.PendingCancellation{
			UserRefund:    userRefund,
			VendorFee:     vendorFee,
			UserRefundPct: decision.UserRefundPct,
			PolicyReason:  decision.Reason,
			DecidedAt:     now,
		}
		b.UpdatedAt = now
		if err := s.saveBooking(mctx, b); err != nil {
			return nil, err
		}
	}

	var refund *models.Refund
	if userRefund > 0 {
		gctx, cancel := context.WithTimeout(mctx, s.policy.GatewayTimeout)
		refund, err = s.gateway.Refund(gctx, b.AdvancePayment.PaymentID, userRefund, refundKey(b))
		cancel()
		if err != nil {
			log.Warn("refund rejected by gateway", zap.Error(err))
			return nil, fromGateway(err)
		}
	} else {
		refund = &models.Refund{Status: "skipped"}
	}
	log.Info("refund issued", zap.String("refundId", refund.ID), zap.Int64("amount", userRefund))

	if err := s.applyCancellationEffects(mctx, b, userRefund, vendorFee, refund, reason, now); err != nil {
		log.Error("refund issued but cancellation effects failed",
			zap.String("refundId", refund.ID),
			zap.Int64("userRefund", userRefund),
			zap.Int64("vendorFee", vendorFee),
			zap.Error(err))
		var be *Error
		if errors.As(err, &be) {
			return nil, be
		}
		return nil, internal("refund was issued but the cancellation could not be recorded", err)
	}

	s.notify(ctx, models.NotifyBookingCancelled, map[string]string{
		"bookingId":  b.BookingID,
		"userRefund": formatAmount(userRefund),
		"vendorFee":  formatAmount(vendorFee),
		"reason":     b.CancellationReason,
	}, s.parties(ctx, b)...)

	return &CancellationResult{
		Booking:          b,
		Decision:         decision,
		UserRefundAmount: userRefund,
		VendorFeeAmount:  vendorFee,
		RefundID:         refund.ID,
	}, nil
}

func refundKey(b *models.Booking) string {
	return "refund-" + b.BookingID + "-" + b.AdvancePayment.PaymentID
}

// applyCancellationEffects records a cancellation: the booking status, both
// ledger credits and the release of the vendor's dates commit together.
func (s *DefaultBookingService) applyCancellationEffects(ctx context.Context, b *models.Booking, userRefund, vendorFee int64, refund *models.Refund, reason string, now time.Time) error {
	updated := *b
	updated.BookingStatus = models.BookingStatusCancelled
	updated.CancellationReason = strings.TrimSpace(reason)
	updated.CancelledAt = &now
	updated.AdvancePayment.Status = models.PaymentStatusRefunded
	updated.AdvancePayment.RefundedAt = &now
	updated.AdvancePayment.RefundID = refund.ID
	updated.PendingCancellation = nil
	updated.UpdatedAt = now

	err := s.tx.WithTransaction(ctx, func(tctx context.Context) error {
		if err := s.bookings.UpdateBooking(tctx, &updated); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if err := s.users.CreditWallet(tctx, b.UserID, models.Transaction{
			ID:              newTransactionID(),
			Amount:          userRefund,
			TransactionType: models.TransactionCredit,
			PaymentType:     models.PaymentTypeRefund,
			PaymentMethod:   PaymentMethodOnline,
			PaymentID:       refund.ID,
			BookingID:       b.BookingID,
			Status:          string(models.PaymentStatusCompleted),
			CreatedAt:       now,
		}); err != nil {
			return fmt.Errorf("credit user wallet: %w", err)
		}
		if err := s.vendors.CreditWallet(tctx, b.VendorID, models.Transaction{
			ID:              newTransactionID(),
			Amount:          vendorFee,
			TransactionType: models.TransactionCredit,
			PaymentType:     models.PaymentTypeCancellation,
			PaymentMethod:   PaymentMethodOnline,
			PaymentID:       b.AdvancePayment.PaymentID,
			BookingID:       b.BookingID,
			Status:          string(models.PaymentStatusCompleted),
			CreatedAt:       now,
		}); err != nil {
			return fmt.Errorf("credit vendor wallet: %w", err)
		}
		if err := s.vendors.ReleaseBookedDates(tctx, b.VendorID, b.RequestedDates); err != nil {
			return fmt.Errorf("release vendor dates: %w", err)
		}
		return nil
	})
	if errors.Is(err, repository.ErrStaleWrite) {
		return conflict(CodeConcurrentUpdate, "booking was modified concurrently")
	}
	if err != nil {
		return err
	}
	*b = updated
	return nil
}

// scheduleReminders enqueues the event and final-payment reminders. Failures
// are logged; the booking stands regardless.
func (s *DefaultBookingService) scheduleReminders(ctx context.Context, b *models.Booking, user *models.User, vendor *models.Vendor) {
	if s.scheduler == nil {
		return
	}
	now := s.now()
	reminders := []models.ReminderPayload{
		{
			Kind:       models.NotifyEventReminder,
			Recipients: []models.Recipient{userRecipient(user), vendorRecipient(vendor)},
			FireAt:     NormalizeDate(b.StartingDate).Add(-s.policy.EventReminderLead),
			Data: map[string]string{
				"startingDate": FormatDate(b.StartingDate),
				"venue":        b.Venue,
			},
		},
		{
			Kind:       models.NotifyFinalPaymentReminder,
			Recipients: []models.Recipient{userRecipient(user)},
			FireAt:     NormalizeDate(b.FinalPayment.DueDate).Add(-s.policy.FinalPaymentReminderLead),
			Data: map[string]string{
				"finalAmount":  formatAmount(b.FinalPayment.Amount),
				"finalDueDate": FormatDate(b.FinalPayment.DueDate),
			},
		},
	}
	for _, r := range reminders {
		if !r.FireAt.After(now) {
			continue
		}
		r.ReminderID = b.BookingID + ":" + string(r.Kind)
		r.BookingID = b.BookingID
		r.Data["bookingId"] = b.BookingID
		if err := s.scheduler.ScheduleReminder(ctx, r); err != nil {
			s.logger.Warn("failed to schedule reminder",
				zap.String("bookingId", b.BookingID),
				zap.String("kind", string(r.Kind)),
				zap.Error(err))
		}
	}
}

// DeliverReminder sends a scheduled reminder unless the booking it refers to
// no longer needs it.
func (s *DefaultBookingService) DeliverReminder(ctx context.Context, p models.ReminderPayload) error {
	b, err := s.bookings.GetBooking(ctx, p.BookingID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("reminder dropped: booking not found", zap.String("bookingId", p.BookingID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load booking %s: %w", p.BookingID, err)
	}
	if b.BookingStatus == models.BookingStatusCancelled ||
		(p.Kind == models.NotifyFinalPaymentReminder && b.FinalPayment.Status != models.PaymentStatusPending) {
		s.logger.Info("reminder dropped: no longer relevant",
			zap.String("bookingId", p.BookingID), zap.String("kind", string(p.Kind)))
		return nil
	}
	s.notify(ctx, p.Kind, p.Data, p.Recipients...)
	return nil
}

// parties resolves the user and vendor of b for notifications.
func (s *DefaultBookingService) parties(ctx context.Context, b *models.Booking) []models.Recipient {
	var to []models.Recipient
	if u, err := s.users.GetUser(ctx, b.UserID); err == nil {
		to = append(to, userRecipient(u))
	} else {
		s.logger.Warn("notification: user lookup failed", zap.String("userId", b.UserID), zap.Error(err))
	}
	if v, err := s.vendors.GetVendor(ctx, b.VendorID); err == nil {
		to = append(to, vendorRecipient(v))
	} else {
		s.logger.Warn("notification: vendor lookup failed", zap.String("vendorId", b.VendorID), zap.Error(err))
	}
	return to
}

func (s *DefaultBookingService) loadBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, s.lookupErr(err, CodeBookingNotFound, "booking not found")
	}
	return b, nil
}

func (s *DefaultBookingService) saveBooking(ctx context.Context, b *models.Booking) error {
	err := s.bookings.UpdateBooking(ctx, b)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleWrite):
		return conflict(CodeConcurrentUpdate, "booking was modified concurrently, reload and try again")
	case errors.Is(err, repository.ErrNotFound):
		return notFound(CodeBookingNotFound, "booking not found")
	default:
		return internal("failed to save booking", err)
	}
}
