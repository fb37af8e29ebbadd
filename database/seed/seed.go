// Package seed builds demo users, vendors and packages for local runs and
// integration tests.
package seed

import (
	"context"
	"fmt"
	"time"

	"lenslink/models"
)

// ServiceTypes offered by the demo vendors.
var ServiceTypes = []string{"wedding", "portrait", "event"}

// Fixtures is one consistent set of directory records.
type Fixtures struct {
	Users    []models.User
	Vendors  []models.Vendor
	Packages []models.Package
}

// Demo returns vendorsPerService vendors for every service type, each with a
// single package, plus usersCount users. Ids are deterministic.
func Demo(vendorsPerService, usersCount int, now time.Time) Fixtures {
	var f Fixtures
	counter := 1
	for _, service := range ServiceTypes {
		for i := 0; i < vendorsPerService; i++ {
			vendorID := fmt.Sprintf("vendor-%d", counter)
			f.Vendors = append(f.Vendors, models.Vendor{
				ID:          vendorID,
				Name:        fmt.Sprintf("%s Studio %d", service, counter),
				CompanyName: fmt.Sprintf("Studio %d Pvt Ltd", counter),
				Email:       fmt.Sprintf("%s_vendor_%d@example.com", service, counter),
				Phone:       fmt.Sprintf("900000%04d", counter),
				BookedDates: []string{},
				Wallet:      models.Wallet{Transactions: []models.Transaction{}},
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			// Prices step by 5000 so totals are easy to check by hand.
			f.Packages = append(f.Packages, models.Package{
				ID:          fmt.Sprintf("pkg-%d", counter),
				VendorID:    vendorID,
				Name:        fmt.Sprintf("%s classic", service),
				ServiceType: service,
				Price:       int64(10000 + 5000*i),
				Customizations: []models.Customization{
					{ID: fmt.Sprintf("pkg-%d-album", counter), Name: "Printed album", Price: 2000},
					{ID: fmt.Sprintf("pkg-%d-drone", counter), Name: "Drone coverage", Price: 3000},
				},
			})
			counter++
		}
	}
	for i := 1; i <= usersCount; i++ {
		f.Users = append(f.Users, models.User{
			ID:        fmt.Sprintf("user-%d", i),
			Name:      fmt.Sprintf("Demo User %d", i),
			Email:     fmt.Sprintf("user_%d@example.com", i),
			Phone:     fmt.Sprintf("800000%04d", i),
			Wallet:    models.Wallet{Transactions: []models.Transaction{}},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return f
}

// Sink receives fixtures. The mongo repositories and the memory store both
// satisfy it through small adapters.
type Sink interface {
	SaveUser(ctx context.Context, u models.User) error
	SaveVendor(ctx context.Context, v models.Vendor) error
	SavePackage(ctx context.Context, p models.Package) error
}

// Load writes every fixture to sink and stops at the first error.
func (f Fixtures) Load(ctx context.Context, sink Sink) error {
	for _, u := range f.Users {
		if err := sink.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, v := range f.Vendors {
		if err := sink.SaveVendor(ctx, v); err != nil {
			return fmt.Errorf("seed vendor %s: %w", v.ID, err)
		}
	}
	for _, p := range f.Packages {
		if err := sink.SavePackage(ctx, p); err != nil {
			return fmt.Errorf("seed package %s: %w", p.ID, err)
		}
	}
	return nil
}
