package memory

import (
	"context"
	"fmt"

	"lenslink/database/repository"
	"lenslink/models"
)

// UserStore is the user view of a Store.
type UserStore struct{ s *Store }

// PutUser inserts or replaces a user.
func (u *UserStore) PutUser(user models.User) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.users[user.ID] = cloneUser(user)
}

func (u *UserStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var (
		user models.User
		ok   bool
	)
	u.s.read(func() { user, ok = u.s.users[userID] })
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	user = cloneUser(user)
	return &user, nil
}

func (u *UserStore) CreditWallet(ctx context.Context, userID string, tx models.Transaction) error {
	return u.s.write(ctx, func() error {
		user, ok := u.s.users[userID]
		if !ok {
			return fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
		}
		user = cloneUser(user)
		user.Wallet.Balance += tx.Amount
		user.Wallet.Transactions = append(user.Wallet.Transactions, tx)
		u.s.users[userID] = user
		return nil
	})
}

// VendorStore is the vendor view of a Store.
type VendorStore struct{ s *Store }

// PutVendor inserts or replaces a vendor.
func (v *VendorStore) PutVendor(vendor models.Vendor) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.vendors[vendor.ID] = cloneVendor(vendor)
}

func (v *VendorStore) GetVendor(ctx context.Context, vendorID string) (*models.Vendor, error) {
	var (
		vendor models.Vendor
		ok     bool
	)
	v.s.read(func() { vendor, ok = v.s.vendors[vendorID] })
	if !ok {
		return nil, fmt.Errorf("vendor %s: %w", vendorID, repository.ErrNotFound)
	}
	vendor = cloneVendor(vendor)
	return &vendor, nil
}

func (v *VendorStore) AddBookedDates(ctx context.Context, vendorID string, dates []string) error {
	return v.s.write(ctx, func() error {
		vendor, ok := v.s.vendors[vendorID]
		if !ok {
			return fmt.Errorf("vendor %s: %w", vendorID, repository.ErrNotFound)
		}
		booked := make(map[string]struct{}, len(vendor.BookedDates))
		for _, d := range vendor.BookedDates {
			booked[d] = struct{}{}
		}
		for _, d := range dates {
			if _, taken := booked[d]; taken {
				return fmt.Errorf("vendor %s date %s: %w", vendorID, d, repository.ErrDatesTaken)
			}
		}
		vendor = cloneVendor(vendor)
		for _, d := range dates {
			if _, dup := booked[d]; dup {
				continue
			}
			booked[d] = struct{}{}
			vendor.BookedDates = append(vendor.BookedDates, d)
		}
		v.s.vendors[vendorID] = vendor
		return nil
	})
}

func (v *VendorStore) ReleaseBookedDates(ctx context.Context, vendorID string, dates []string) error {
	return v.s.write(ctx, func() error {
		vendor, ok := v.s.vendors[vendorID]
		if !ok {
			return fmt.Errorf("vendor %s: %w", vendorID, repository.ErrNotFound)
		}
		drop := make(map[string]struct{}, len(dates))
		for _, d := range dates {
			drop[d] = struct{}{}
		}
		kept := make([]string, 0, len(vendor.BookedDates))
		for _, d := range vendor.BookedDates {
			if _, ok := drop[d]; !ok {
				kept = append(kept, d)
			}
		}
		vendor = cloneVendor(vendor)
		vendor.BookedDates = kept
		v.s.vendors[vendorID] = vendor
		return nil
	})
}

func (v *VendorStore) CreditWallet(ctx context.Context, vendorID string, tx models.Transaction) error {
	return v.s.write(ctx, func() error {
		vendor, ok := v.s.vendors[vendorID]
		if !ok {
			return fmt.Errorf("vendor %s: %w", vendorID, repository.ErrNotFound)
		}
		vendor = cloneVendor(vendor)
		vendor.Wallet.Balance += tx.Amount
		vendor.Wallet.Transactions = append(vendor.Wallet.Transactions, tx)
		v.s.vendors[vendorID] = vendor
		return nil
	})
}

// PackageStore is the package view of a Store.
type PackageStore struct{ s *Store }

// PutPackage inserts or replaces a package.
func (p *PackageStore) PutPackage(pkg models.Package) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.packages[pkg.ID] = clonePackage(pkg)
}

func (p *PackageStore) GetPackage(ctx context.Context, packageID string) (*models.Package, error) {
	var (
		pkg models.Package
		ok  bool
	)
	p.s.read(func() { pkg, ok = p.s.packages[packageID] })
	if !ok {
		return nil, fmt.Errorf("package %s: %w", packageID, repository.ErrNotFound)
	}
	pkg = clonePackage(pkg)
	return &pkg, nil
}
