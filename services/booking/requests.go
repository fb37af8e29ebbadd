package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"lenslink/database/repository"
	"lenslink/models"

	"go.uber.org/zap"
)

// Action is a vendor's decision on a pending request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// CreateRequestInput is the client's booking request. TotalPrice is what the
// client was shown and must match the server-side price.
type CreateRequestInput struct {
	UserID           string
	VendorID         string
	Name             string
	Email            string
	Phone            string
	Venue            string
	ServiceType      string
	PackageID        string
	CustomizationIDs []string
	Message          string
	StartingDate     time.Time
	NumberOfDays     int
	TotalPrice       int64
}

func (in CreateRequestInput) validate() error {
	var problems []string
	if strings.TrimSpace(in.UserID) == "" {
		problems = append(problems, "userId is required")
	}
	if strings.TrimSpace(in.VendorID) == "" {
		problems = append(problems, "vendorId is required")
	}
	if strings.TrimSpace(in.PackageID) == "" {
		problems = append(problems, "packageId is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		problems = append(problems, "email is invalid")
	}
	if strings.TrimSpace(in.Venue) == "" {
		problems = append(problems, "venue is required")
	}
	if in.StartingDate.IsZero() {
		problems = append(problems, "startingDate is required")
	}
	if in.NumberOfDays < 1 {
		problems = append(problems, "numberOfDays must be at least 1")
	}
	if in.TotalPrice < 0 {
		problems = append(problems, "totalPrice must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	e := invalid(CodeInvalidInput, "invalid booking request")
	e.Details = problems
	return e
}

// QuotePrice is the server-side price of a request: the package's daily price
// times the number of days plus each selected customization once.
func QuotePrice(pkg *models.Package, numberOfDays int, customizationIDs []string) (int64, error) {
	total := pkg.Price * int64(numberOfDays)
	seen := make(map[string]struct{}, len(customizationIDs))
	for _, id := range customizationIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c, ok := pkg.CustomizationByID(id)
		if !ok {
			return 0, invalid(CodeInvalidInput, fmt.Sprintf("customization %q is not offered by this package", id))
		}
		total += c.Price
	}
	return total, nil
}

// CreateRequest validates and stores a new request in state Requested.
func (s *DefaultBookingService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.BookingRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("userId", in.UserID), zap.String("vendorId", in.VendorID))

	user, err := s.users.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, s.lookupErr(err, CodeUserNotFound, "user not found")
	}
	vendor, err := s.vendors.GetVendor(ctx, in.VendorID)
	if err != nil {
		return nil, s.lookupErr(err, CodeVendorNotFound, "vendor not found")
	}
	pkg, err := s.packages.GetPackage(ctx, in.PackageID)
	if err != nil {
		return nil, s.lookupErr(err, CodePackageNotFound, "package not found")
	}
	if pkg.VendorID != vendor.ID {
		return nil, notFound(CodePackageNotFound, "package not found for this vendor")
	}

	start := NormalizeDate(in.StartingDate)
	if start.Before(s.today()) {
		return nil, invalid(CodeInvalidInput, "startingDate must not be in the past")
	}

	// Only the starting date is checked here; the full range is checked on accept.
	if res := FindConflicts([]time.Time{start}, vendor.BookedDates); res.HasConflict {
		return nil, datesUnavailable(res.Conflicting)
	}

	price, err := QuotePrice(pkg, in.NumberOfDays, in.CustomizationIDs)
	if err != nil {
		return nil, err
	}
	if price != in.TotalPrice {
		log.Warn("price mismatch on booking request",
			zap.Int64("submitted", in.TotalPrice), zap.Int64("computed", price))
		return nil, invalid(CodePriceMismatch, "price mismatch: please refresh the package price and try again")
	}

	serviceType := in.ServiceType
	if serviceType == "" {
		serviceType = pkg.ServiceType
	}
	key := repository.RequestKey{VendorID: vendor.ID, UserID: user.ID, StartingDate: start, ServiceType: serviceType}
	existing, err := s.requests.FindActiveRequest(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("failed to check for duplicate requests", err)
	}
	if existing != nil {
		return nil, conflict(CodeDuplicateRequest, "you already have an active request for this vendor, date and service")
	}

	now := s.now().UTC()
	req := &models.BookingRequest{
		RequestID:        newRequestID(),
		UserID:           user.ID,
		VendorID:         vendor.ID,
		Name:             strings.TrimSpace(in.Name),
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		Venue:            strings.TrimSpace(in.Venue),
		ServiceType:      serviceType,
		PackageID:        pkg.ID,
		CustomizationIDs: in.CustomizationIDs,
		Message:          in.Message,
		StartingDate:     start,
		NumberOfDays:     in.NumberOfDays,
		TotalPrice:       price,
		State:            models.RequestStateRequested,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		// The store's unique index closes the race between the lookup above and the insert.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(CodeDuplicateRequest, "you already have an active request for this vendor, date and service")
		}
		return nil, internal("failed to save booking request", err)
	}
	log.Info("booking request created", zap.String("requestId", req.RequestID))

	data := map[string]string{
		"requestId":    req.RequestID,
		"startingDate": FormatDate(req.StartingDate),
		"numberOfDays": fmt.Sprintf("%d", req.NumberOfDays),
		"totalPrice":   formatAmount(req.TotalPrice),
	}
	s.notify(ctx, models.NotifyRequestReceived, data, vendorRecipient(vendor))
	s.notify(ctx, models.NotifyRequestCreated, data, userRecipient(user))

	return req, nil
}

// AcceptOrReject applies a vendor decision to a Requested request.
func (s *DefaultBookingService) AcceptOrReject(ctx context.Context, requestID, vendorID string, action Action, reason string) (*models.BookingRequest, error) {
	if action != ActionAccept && action != ActionReject {
		return nil, invalid(CodeInvalidInput, "action must be accept or reject")
	}
	reason = strings.TrimSpace(reason)
	if action == ActionReject && reason == "" {
		return nil, invalid(CodeInvalidInput, "rejectionReason is required when rejecting")
	}

	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.VendorID != vendorID {
		return nil, notFound(CodeRequestNotFound, "booking request not found")
	}
	if req.State != models.RequestStateRequested {
		return nil, conflict(CodeAlreadyProcessed, fmt.Sprintf("booking request was already processed (%s)", req.State))
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, s.lookupErr(err, CodeUserNotFound, "user not found")
	}
	now := s.now().UTC()

	if action == ActionReject {
		req.State = models.RequestStateRejected
		req.Active = false
		req.RejectionReason = reason
		req.UpdatedAt = now
		if err := s.saveRequest(ctx, req); err != nil {
			return nil, err
		}
		s.logger.Info("booking request rejected", zap.String("requestId", req.RequestID))
		s.notify(ctx, models.NotifyRequestRejected, map[string]string{
			"requestId":       req.RequestID,
			"rejectionReason": reason,
		}, userRecipient(user))
		return req, nil
	}

	vendor, err := s.vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, s.lookupErr(err, CodeVendorNotFound, "vendor not found")
	}

	dates := ExpandDates(req.StartingDate, req.NumberOfDays)
	if res := FindConflicts(dates, vendor.BookedDates); res.HasConflict {
		return nil, datesUnavailable(res.Conflicting)
	}
	if daysBetween(now, req.StartingDate) < s.policy.MinLeadTimeDays {
		return nil, invalid(CodeLeadTime,
			fmt.Sprintf("the event must be at least %d days away to accept", s.policy.MinLeadTimeDays))
	}

	split := s.policy.SplitPayment(req.TotalPrice)
	due := s.policy.ComputeDueDates(req.StartingDate, req.NumberOfDays, now)

	req.State = models.RequestStateAccepted
	req.RequestedDates = FormatDates(dates)
	req.AdvancePaymentDueDate = &due.AdvancePaymentDue
	req.AdvancePayment = &models.RequestAdvancePayment{
		Amount: split.AdvanceAmount,
		Status: models.AdvanceStatusPending,
	}
	req.FinalPayment = &models.FinalPaymentSchedule{
		Amount:  split.FinalAmount,
		DueDate: due.FinalPaymentDue,
	}
	req.UpdatedAt = now
	if err := s.saveRequest(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("booking request accepted",
		zap.String("requestId", req.RequestID),
		zap.Int64("advance", split.AdvanceAmount),
		zap.Time("advanceDue", due.AdvancePaymentDue))

	s.notify(ctx, models.NotifyRequestAccepted, map[string]string{
		"requestId":         req.RequestID,
		"totalPrice":        formatAmount(req.TotalPrice),
		"advanceAmount":     formatAmount(split.AdvanceAmount),
		"advanceDueDate":    FormatDate(due.AdvancePaymentDue),
		"finalAmount":       formatAmount(split.FinalAmount),
		"finalDueDate":      FormatDate(due.FinalPaymentDue),
		"eventDate":         FormatDate(due.EventDate),
		"eventEndDate":      FormatDate(due.EventEndDate),
		"vendorDisplayName": vendorRecipient(vendor).Name,
	}, userRecipient(user))

	return req, nil
}

// Revoke withdraws a Requested request on behalf of its owner. The record is
// kept as Revoked and drops out of active lists.
func (s *DefaultBookingService) Revoke(ctx context.Context, requestID, userID string) (*models.BookingRequest, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, notFound(CodeRequestNotFound, "booking request not found")
	}
	if req.State != models.RequestStateRequested {
		return nil, conflict(CodeAlreadyProcessed, fmt.Sprintf("only pending requests can be revoked (current state %s)", req.State))
	}

	req.State = models.RequestStateRevoked
	req.Active = false
	req.UpdatedAt = s.now().UTC()
	if err := s.saveRequest(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("booking request revoked", zap.String("requestId", req.RequestID))
	return req, nil
}

// SweepReport summarises one ExpireOverdue run.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ExpireOverdue moves every Accepted request whose advance is still pending
// past its due date to PaymentOverdue. The due date itself is still payable,
// so a request expires from the following day. Each transition is a
// versioned write, so only the run that wins it notifies; concurrent and
// repeated runs skip.
func (s *DefaultBookingService) ExpireOverdue(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now().UTC()
	// Due dates are calendar days and checkout accepts the advance through the
	// whole due day, so a request expires from the following midnight.
	cutoff := s.today()

	candidates, err := s.requests.ListOverdueRequests(ctx, cutoff)
	if err != nil {
		return report, internal("failed to list overdue requests", err)
	}
	report.Scanned = len(candidates)

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		req := &candidates[i]
		if !isOverdue(req, cutoff) {
			report.Skipped++
			continue
		}

		req.State = models.RequestStatePaymentOverdue
		req.Active = false
		req.AdvancePayment.Status = models.AdvanceStatusOverdue
		req.OverdueNotifiedAt = &now
		req.UpdatedAt = now

		err := s.requests.UpdateRequest(ctx, req)
		switch {
		case errors.Is(err, repository.ErrStaleWrite), errors.Is(err, repository.ErrNotFound):
			report.Skipped++
			continue
		case err != nil:
			report.Failed++
			s.logger.Error("failed to expire overdue request", zap.String("requestId", req.RequestID), zap.Error(err))
			continue
		}
		report.Expired++
		s.notifyOverdue(ctx, req)
	}

	s.logger.Info("overdue sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("expired", report.Expired),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

func isOverdue(req *models.BookingRequest, cutoff time.Time) bool {
	return req.State == models.RequestStateAccepted &&
		req.AdvancePayment != nil &&
		req.AdvancePayment.Status == models.AdvanceStatusPending &&
		req.AdvancePaymentDueDate != nil &&
		req.AdvancePaymentDueDate.Before(cutoff)
}

func (s *DefaultBookingService) notifyOverdue(ctx context.Context, req *models.BookingRequest) {
	data := map[string]string{
		"requestId":      req.RequestID,
		"advanceDueDate": FormatDate(*req.AdvancePaymentDueDate),
		"startingDate":   FormatDate(req.StartingDate),
	}
	var to []models.Recipient
	if user, err := s.users.GetUser(ctx, req.UserID); err == nil {
		to = append(to, userRecipient(user))
	} else {
		s.logger.Warn("overdue notice: user lookup failed", zap.String("userId", req.UserID), zap.Error(err))
	}
	if vendor, err := s.vendors.GetVendor(ctx, req.VendorID); err == nil {
		to = append(to, vendorRecipient(vendor))
	} else {
		s.logger.Warn("overdue notice: vendor lookup failed", zap.String("vendorId", req.VendorID), zap.Error(err))
	}
	s.notify(ctx, models.NotifyPaymentOverdue, data, to...)
}

func (s *DefaultBookingService) loadRequest(ctx context.Context, requestID string) (*models.BookingRequest, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, s.lookupErr(err, CodeRequestNotFound, "booking request not found")
	}
	return req, nil
}

func (s *DefaultBookingService) saveRequest(ctx context.Context, req *models.BookingRequest) error {
	err := s.requests.UpdateRequest(ctx, req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleWrite):
		return conflict(CodeConcurrentUpdate, "booking request was modified concurrently, reload and try again")
	case errors.Is(err, repository.ErrNotFound):
		return notFound(CodeRequestNotFound, "booking request not found")
	default:
		return internal("failed to save booking request", err)
	}
}

// lookupErr maps a store read failure to NotFound or Internal.
func (s *DefaultBookingService) lookupErr(err error, code, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(code, msg)
	}
	return internal("failed to load record", err)
}
