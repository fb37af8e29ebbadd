// Package memory keeps every booking collection in process memory. It backs
// STORE_DRIVER=memory for local runs and the service tests. Not suitable for
// production: nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"lenslink/models"
)

type txKey struct{}

// Store owns the data of all collections. Writes are serialised with
// transactions, so a rolled back transaction never discards a concurrent write.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users    map[string]models.User
	vendors  map[string]models.Vendor
	packages map[string]models.Package
	requests map[string]models.BookingRequest
	bookings map[string]models.Booking
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]models.User),
		vendors:  make(map[string]models.Vendor),
		packages: make(map[string]models.Package),
		requests: make(map[string]models.BookingRequest),
		bookings: make(map[string]models.Booking),
	}
}

func (s *Store) Users() *UserStore       { return &UserStore{s: s} }
func (s *Store) Vendors() *VendorStore   { return &VendorStore{s: s} }
func (s *Store) Packages() *PackageStore { return &PackageStore{s: s} }
func (s *Store) Requests() *RequestStore { return &RequestStore{s: s} }
func (s *Store) Bookings() *BookingStore { return &BookingStore{s: s} }

// WithTransaction runs fn with exclusive write access and restores the
// previous state if fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// write runs fn under the data lock, joining the caller's transaction if any.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

type snapshot struct {
	users    map[string]models.User
	vendors  map[string]models.Vendor
	packages map[string]models.Package
	requests map[string]models.BookingRequest
	bookings map[string]models.Booking
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:    cloneMap(s.users, cloneUser),
		vendors:  cloneMap(s.vendors, cloneVendor),
		packages: cloneMap(s.packages, clonePackage),
		requests: cloneMap(s.requests, cloneRequest),
		bookings: cloneMap(s.bookings, cloneBooking),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.vendors = snap.vendors
	s.packages = snap.packages
	s.requests = snap.requests
	s.bookings = snap.bookings
}

func cloneMap[T any](m map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}
