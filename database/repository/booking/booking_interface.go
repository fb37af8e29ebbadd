package bookingRepo

import (
	"context"

	"lenslink/models"
)

// BookingRepository persists confirmed bookings with the same version rule as
// booking requests.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, b *models.Booking) error
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListBookingsByVendor(ctx context.Context, vendorID string) ([]models.Booking, error)
}
