package repository

import (
	"errors"
	"time"
)

// Sentinel errors shared by every store implementation. Services match them
// with errors.Is; implementations wrap them with context.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	ErrStaleWrite = errors.New("record was modified concurrently")
	ErrDatesTaken = errors.New("one or more dates are already booked")
)

// RequestKey identifies a booking request for duplicate detection. At most one
// active request may exist per key.
type RequestKey struct {
	VendorID     string
	UserID       string
	StartingDate time.Time
	ServiceType  string
}
