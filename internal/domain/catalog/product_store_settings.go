package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductStoreSettings carries the flags a product has for one specific
// store. A missing row means defaults: synchronization enabled. It exists
// so a single product can be pulled out of sync on one store without
// touching the store itself or the product's other stores.
type ProductStoreSettings struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	StoreID      uuid.UUID
	SyncDisabled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewProductStoreSettings creates settings for a product-store pair with defaults
func NewProductStoreSettings(tenantID, productID, storeID uuid.UUID) *ProductStoreSettings {
	now := time.Now()
	return &ProductStoreSettings{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProductID: productID,
		StoreID:   storeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisableSync excludes the product from synchronization on this store
func (s *ProductStoreSettings) DisableSync() {
	s.SyncDisabled = true
	s.UpdatedAt = time.Now()
}

// EnableSync re-includes the product in synchronization on this store
func (s *ProductStoreSettings) EnableSync() {
	s.SyncDisabled = false
	s.UpdatedAt = time.Now()
}

// ProductStoreSettingsRepository persists per product-store flags.
type ProductStoreSettingsRepository interface {
	// Find returns the settings for a pair, or shared.ErrNotFound when no
	// row exists yet.
	Find(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*ProductStoreSettings, error)

	// Save creates or updates the settings row
	Save(ctx context.Context, settings *ProductStoreSettings) error
}
