package booking

import (
	"context"

	"lenslink/models"
)

// GetRequest returns a request visible to caller: its user or its vendor.
func (s *DefaultBookingService) GetRequest(ctx context.Context, requestID string, caller Caller) (*models.BookingRequest, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canSee(caller, req.UserID, req.VendorID) {
		return nil, notFound(CodeRequestNotFound, "booking request not found")
	}
	return req, nil
}

// ListRequestsForUser returns the user's requests, excluding revoked ones.
func (s *DefaultBookingService) ListRequestsForUser(ctx context.Context, userID string) ([]models.BookingRequest, error) {
	reqs, err := s.requests.ListRequestsByUser(ctx, userID)
	if err != nil {
		return nil, internal("failed to list booking requests", err)
	}
	return withoutRevoked(reqs), nil
}

// ListRequestsForVendor returns requests addressed to the vendor, excluding revoked ones.
func (s *DefaultBookingService) ListRequestsForVendor(ctx context.Context, vendorID string) ([]models.BookingRequest, error) {
	reqs, err := s.requests.ListRequestsByVendor(ctx, vendorID)
	if err != nil {
		return nil, internal("failed to list booking requests", err)
	}
	return withoutRevoked(reqs), nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string, caller Caller) (*models.Booking, error) {
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canSee(caller, b.UserID, b.VendorID) {
		return nil, notFound(CodeBookingNotFound, "booking not found")
	}
	return b, nil
}

func (s *DefaultBookingService) ListBookingsForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	bs, err := s.bookings.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, internal("failed to list bookings", err)
	}
	return nonNil(bs), nil
}

func (s *DefaultBookingService) ListBookingsForVendor(ctx context.Context, vendorID string) ([]models.Booking, error) {
	bs, err := s.bookings.ListBookingsByVendor(ctx, vendorID)
	if err != nil {
		return nil, internal("failed to list bookings", err)
	}
	return nonNil(bs), nil
}

func canSee(c Caller, userID, vendorID string) bool {
	switch c.Role {
	case models.RoleUser:
		return c.ID == userID
	case models.RoleVendor:
		return c.ID == vendorID
	}
	return false
}

func withoutRevoked(reqs []models.BookingRequest) []models.BookingRequest {
	out := make([]models.BookingRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.State != models.RequestStateRevoked {
			out = append(out, r)
		}
	}
	return out
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
