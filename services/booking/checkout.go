package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lenslink/models"

	"go.uber.org/zap"
)

// StartAdvanceCheckout opens a hosted checkout for the advance of an Accepted
// request owned by userID.
func (s *DefaultBookingService) StartAdvanceCheckout(ctx context.Context, requestID, userID string) (*models.CheckoutSession, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, notFound(CodeRequestNotFound, "booking request not found")
	}
	if req.State != models.RequestStateAccepted || req.AdvancePayment == nil ||
		req.AdvancePayment.Status != models.AdvanceStatusPending {
		return nil, conflict(CodeAlreadyProcessed,
			fmt.Sprintf("booking request is not awaiting an advance payment (state %s)", req.State))
	}
	if req.AdvancePaymentDueDate != nil && s.today().After(NormalizeDate(*req.AdvancePaymentDueDate)) {
		return nil, denied(CodeAdvanceLate, "the advance payment window closed on "+FormatDate(*req.AdvancePaymentDueDate))
	}

	return s.openCheckout(ctx, models.CheckoutRequest{
		BookingID:     req.RequestID,
		UserID:        req.UserID,
		Stage:         models.StageAdvance,
		Amount:        req.AdvancePayment.Amount,
		Currency:      s.currency,
		Description:   fmt.Sprintf("Advance for booking %s (%s, %d day(s) from %s)", req.RequestID, req.ServiceType, req.NumberOfDays, FormatDate(req.StartingDate)),
		CustomerEmail: req.Email,
	})
}

// StartFinalCheckout opens a hosted checkout for the final payment of a
// Confirmed booking owned by userID.
func (s *DefaultBookingService) StartFinalCheckout(ctx context.Context, bookingID, userID string) (*models.CheckoutSession, error) {
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, notFound(CodeBookingNotFound, "booking not found")
	}
	if b.BookingStatus != models.BookingStatusConfirmed || b.FinalPayment.Status != models.PaymentStatusPending {
		return nil, conflict(CodeAlreadyProcessed, fmt.Sprintf("booking is %s, final payment is %s", b.BookingStatus, b.FinalPayment.Status))
	}
	if b.PendingCancellation != nil {
		return nil, conflict(CodeAlreadyProcessed, "booking is being cancelled")
	}
	if s.today().After(NormalizeDate(b.FinalPayment.DueDate)) {
		return nil, denied(CodeFinalPaymentLate, "final payment was due on "+FormatDate(b.FinalPayment.DueDate))
	}

	return s.openCheckout(ctx, models.CheckoutRequest{
		BookingID:     b.BookingID,
		UserID:        b.UserID,
		Stage:         models.StageFinal,
		Amount:        b.FinalPayment.Amount,
		Currency:      s.currency,
		Description:   fmt.Sprintf("Final payment for booking %s", b.BookingID),
		CustomerEmail: b.Email,
	})
}

func (s *DefaultBookingService) openCheckout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	gctx, cancel := context.WithTimeout(ctx, s.policy.GatewayTimeout)
	defer cancel()

	sess, err := s.gateway.CreateCheckoutSession(gctx, req)
	if err != nil {
		s.logger.Warn("checkout session failed",
			zap.String("bookingId", req.BookingID),
			zap.String("stage", string(req.Stage)),
			zap.Error(err))
		return nil, fromGateway(err)
	}
	s.logger.Info("checkout session created",
		zap.String("bookingId", req.BookingID),
		zap.String("stage", string(req.Stage)),
		zap.String("sessionId", sess.ID))
	return sess, nil
}

// ConfirmCheckout looks up a completed checkout session and applies it to the
// instalment it was opened for. It backs both the redirect confirmation and
// the gateway webhook, which may race; the confirm operations are idempotent
// per payment.
func (s *DefaultBookingService) ConfirmCheckout(ctx context.Context, sessionID string) (*models.Booking, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid(CodeInvalidInput, "sessionId is required")
	}
	gctx, cancel := context.WithTimeout(ctx, s.policy.GatewayTimeout)
	res, err := s.gateway.RetrievePayment(gctx, sessionID)
	cancel()
	if err != nil {
		return nil, fromGateway(err)
	}
	if !res.Paid {
		return nil, conflict(CodePaymentIncomplete, "payment has not been completed")
	}
	if res.Currency != "" && !strings.EqualFold(res.Currency, s.currency) {
		return nil, invalid(CodeAmountMismatch, fmt.Sprintf("unexpected currency %q", res.Currency))
	}
	paymentID := res.PaymentIntentID
	if paymentID == "" {
		paymentID = res.SessionID
	}

	var b *models.Booking
	switch res.Stage {
	case models.StageAdvance:
		b, err = s.ConfirmAdvancePayment(ctx, res.BookingID, res.AmountPaid, paymentID)
	case models.StageFinal:
		b, err = s.ConfirmFinalPayment(ctx, res.BookingID, res.AmountPaid, paymentID)
	default:
		err = invalid(CodeInvalidInput, fmt.Sprintf("checkout session has unknown stage %q", res.Stage))
	}
	if err != nil && !redeliverable(err) {
		s.logger.Error("captured payment was not applied, refund it manually",
			zap.String("sessionId", sessionID),
			zap.String("paymentId", paymentID),
			zap.String("bookingId", res.BookingID),
			zap.String("stage", string(res.Stage)),
			zap.Int64("amount", res.AmountPaid),
			zap.String("code", CodeOf(err)),
			zap.Error(err))
	}
	return b, err
}

// redeliverable reports whether a later confirmation attempt can still
// succeed, so the payment is not yet stranded.
func redeliverable(err error) bool {
	var be *Error
	if !errors.As(err, &be) {
		return true
	}
	return be.Kind == KindInternal || be.Retryable || be.Code == CodeBusy
}
