package mapping

import (
	"context"

	"github.com/google/uuid"
)

// SelectionRepository persists the per-product-per-store category selection.
// Selections are replaced wholesale on every change and re-validated before
// the write; there is no partial update.
type SelectionRepository interface {
	// Find returns the selection for a product-store pair, or
	// ErrSelectionNotFound when none exists.
	Find(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*CategorySelection, error)

	// Replace overwrites the selection for a product-store pair
	Replace(ctx context.Context, tenantID, productID, storeID uuid.UUID, sel *CategorySelection) error

	// Delete removes the selection for a product-store pair
	Delete(ctx context.Context, tenantID, productID, storeID uuid.UUID) error
}
