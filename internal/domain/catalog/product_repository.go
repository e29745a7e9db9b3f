package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForTenant finds a product by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)

	// FindByCode finds a product by its code within a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Product, error)

	// FindAllForTenant finds all products for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Product, error)

	// FindPage returns one page of products ordered by creation time.
	// Used by batch verification to walk the catalog deterministically.
	FindPage(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// DeleteForTenant deletes a product within a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts products for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}
