package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantProvider derives the active tenant set from the stores table: a
// tenant with no enabled store has nothing to verify.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new tenant provider
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetAllActiveTenantIDs returns the tenants that have at least one enabled store
func (p *GormTenantProvider) GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("stores").
		Distinct("tenant_id").
		Where("enabled = ?", true).
		Order("tenant_id ASC").
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return nil, err
	}
	return tenantIDs, nil
}
