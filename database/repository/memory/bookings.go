package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lenslink/database/repository"
	"lenslink/models"
)

// RequestStore is the booking request view of a Store.
type RequestStore struct{ s *Store }

func (r *RequestStore) CreateRequest(ctx context.Context, req *models.BookingRequest) error {
	return r.s.write(ctx, func() error {
		if _, exists := r.s.requests[req.RequestID]; exists {
			return fmt.Errorf("request %s: %w", req.RequestID, repository.ErrDuplicate)
		}
		if req.Active {
			key := keyOf(req)
			for _, other := range r.s.requests {
				if other.Active && keyOf(&other) == key {
					return fmt.Errorf("active request for %+v: %w", key, repository.ErrDuplicate)
				}
			}
		}
		r.s.requests[req.RequestID] = cloneRequest(*req)
		return nil
	})
}

func (r *RequestStore) GetRequest(ctx context.Context, requestID string) (*models.BookingRequest, error) {
	var (
		req models.BookingRequest
		ok  bool
	)
	r.s.read(func() { req, ok = r.s.requests[requestID] })
	if !ok {
		return nil, fmt.Errorf("request %s: %w", requestID, repository.ErrNotFound)
	}
	req = cloneRequest(req)
	return &req, nil
}

func (r *RequestStore) UpdateRequest(ctx context.Context, req *models.BookingRequest) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.requests[req.RequestID]
		if !ok {
			return fmt.Errorf("request %s: %w", req.RequestID, repository.ErrNotFound)
		}
		if cur.Version != req.Version {
			return fmt.Errorf("request %s version %d: %w", req.RequestID, req.Version, repository.ErrStaleWrite)
		}
		req.Version++
		r.s.requests[req.RequestID] = cloneRequest(*req)
		return nil
	})
}

func (r *RequestStore) DeleteRequest(ctx context.Context, requestID string, version int) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.requests[requestID]
		if !ok {
			return fmt.Errorf("request %s: %w", requestID, repository.ErrNotFound)
		}
		if cur.Version != version {
			return fmt.Errorf("request %s version %d: %w", requestID, version, repository.ErrStaleWrite)
		}
		delete(r.s.requests, requestID)
		return nil
	})
}

func (r *RequestStore) FindActiveRequest(ctx context.Context, key repository.RequestKey) (*models.BookingRequest, error) {
	key.StartingDate = key.StartingDate.UTC()
	found := r.filter(func(req *models.BookingRequest) bool {
		return req.Active && keyOf(req) == key
	})
	if len(found) == 0 {
		return nil, fmt.Errorf("active request: %w", repository.ErrNotFound)
	}
	return &found[0], nil
}

func (r *RequestStore) ListRequestsByUser(ctx context.Context, userID string) ([]models.BookingRequest, error) {
	return r.filter(func(req *models.BookingRequest) bool { return req.UserID == userID }), nil
}

func (r *RequestStore) ListRequestsByVendor(ctx context.Context, vendorID string) ([]models.BookingRequest, error) {
	return r.filter(func(req *models.BookingRequest) bool { return req.VendorID == vendorID }), nil
}

func (r *RequestStore) ListOverdueRequests(ctx context.Context, cutoff time.Time) ([]models.BookingRequest, error) {
	return r.filter(func(req *models.BookingRequest) bool {
		return req.State == models.RequestStateAccepted &&
			req.AdvancePayment != nil &&
			req.AdvancePayment.Status == models.AdvanceStatusPending &&
			req.AdvancePaymentDueDate != nil &&
			req.AdvancePaymentDueDate.Before(cutoff)
	}), nil
}

// filter returns clones of matching requests, newest first.
func (r *RequestStore) filter(match func(*models.BookingRequest) bool) []models.BookingRequest {
	var out []models.BookingRequest
	r.s.read(func() {
		for _, req := range r.s.requests {
			if match(&req) {
				out = append(out, cloneRequest(req))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RequestID < out[j].RequestID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func keyOf(req *models.BookingRequest) repository.RequestKey {
	return repository.RequestKey{
		VendorID:     req.VendorID,
		UserID:       req.UserID,
		StartingDate: req.StartingDate.UTC(),
		ServiceType:  req.ServiceType,
	}
}

// BookingStore is the confirmed booking view of a Store.
type BookingStore struct{ s *Store }

func (b *BookingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return b.s.write(ctx, func() error {
		if _, exists := b.s.bookings[booking.BookingID]; exists {
			return fmt.Errorf("booking %s: %w", booking.BookingID, repository.ErrDuplicate)
		}
		b.s.bookings[booking.BookingID] = cloneBooking(*booking)
		return nil
	})
}

func (b *BookingStore) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	var (
		booking models.Booking
		ok      bool
	)
	b.s.read(func() { booking, ok = b.s.bookings[bookingID] })
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", bookingID, repository.ErrNotFound)
	}
	booking = cloneBooking(booking)
	return &booking, nil
}

func (b *BookingStore) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	return b.s.write(ctx, func() error {
		cur, ok := b.s.bookings[booking.BookingID]
		if !ok {
			return fmt.Errorf("booking %s: %w", booking.BookingID, repository.ErrNotFound)
		}
		if cur.Version != booking.Version {
			return fmt.Errorf("booking %s version %d: %w", booking.BookingID, booking.Version, repository.ErrStaleWrite)
		}
		booking.Version++
		b.s.bookings[booking.BookingID] = cloneBooking(*booking)
		return nil
	})
}

func (b *BookingStore) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return b.filter(func(bk *models.Booking) bool { return bk.UserID == userID }), nil
}

func (b *BookingStore) ListBookingsByVendor(ctx context.Context, vendorID string) ([]models.Booking, error) {
	return b.filter(func(bk *models.Booking) bool { return bk.VendorID == vendorID }), nil
}

func (b *BookingStore) filter(match func(*models.Booking) bool) []models.Booking {
	var out []models.Booking
	b.s.read(func() {
		for _, bk := range b.s.bookings {
			if match(&bk) {
				out = append(out, cloneBooking(bk))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartingDate.Before(out[j].StartingDate)
	})
	return out
}
