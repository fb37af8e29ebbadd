// Package repository holds what every store shares: the sentinel errors the
// booking service matches on and the small helpers the Mongo stores use to
// produce them.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultTimeout bounds a single store call.
const DefaultTimeout = 5 * time.Second

// WithTimeout derives a bounded context from ctx. Session contexts keep their
// session, so calls made inside a transaction stay inside it.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

// MapMongoError translates driver errors into repository sentinels.
func MapMongoError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
