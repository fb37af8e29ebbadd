package packageRepo

import (
	"context"

	"lenslink/models"
)

// PackageRepository defines methods for the vendor package catalogue.
type PackageRepository interface {
	GetPackage(ctx context.Context, packageID string) (*models.Package, error)
	Upsert(ctx context.Context, pkg *models.Package) error
}
