package seed

import (
	"context"

	"lenslink/database/repository/memory"
	packageRepo "lenslink/database/repository/servicepackage"
	userRepo "lenslink/database/repository/user"
	vendorRepo "lenslink/database/repository/vendor"
	"lenslink/models"
)

// MemorySink loads fixtures into an in-process store.
type MemorySink struct {
	Store *memory.Store
}

func (s MemorySink) SaveUser(_ context.Context, u models.User) error {
	s.Store.Users().PutUser(u)
	return nil
}

func (s MemorySink) SaveVendor(_ context.Context, v models.Vendor) error {
	s.Store.Vendors().PutVendor(v)
	return nil
}

func (s MemorySink) SavePackage(_ context.Context, p models.Package) error {
	s.Store.Packages().PutPackage(p)
	return nil
}

// RepoSink upserts fixtures through the persistent repositories.
type RepoSink struct {
	Users    userRepo.UserRepository
	Vendors  vendorRepo.VendorRepository
	Packages packageRepo.PackageRepository
}

func (s RepoSink) SaveUser(ctx context.Context, u models.User) error {
	return s.Users.Upsert(ctx, &u)
}

func (s RepoSink) SaveVendor(ctx context.Context, v models.Vendor) error {
	return s.Vendors.Upsert(ctx, &v)
}

func (s RepoSink) SavePackage(ctx context.Context, p models.Package) error {
	return s.Packages.Upsert(ctx, &p)
}
