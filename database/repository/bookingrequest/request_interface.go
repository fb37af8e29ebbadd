package requestRepo

import (
	"context"
	"time"

	"lenslink/database/repository"
	"lenslink/models"
)

// RequestRepository persists booking requests. UpdateRequest only applies when
// the stored version equals req.Version and bumps it on success.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req *models.BookingRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.BookingRequest, error)
	UpdateRequest(ctx context.Context, req *models.BookingRequest) error
	DeleteRequest(ctx context.Context, requestID string, version int) error
	FindActiveRequest(ctx context.Context, key repository.RequestKey) (*models.BookingRequest, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]models.BookingRequest, error)
	ListRequestsByVendor(ctx context.Context, vendorID string) ([]models.BookingRequest, error)
	ListOverdueRequests(ctx context.Context, cutoff time.Time) ([]models.BookingRequest, error)
}
