package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/infrastructure/persistence/models"
)

// GormProductStoreSettingsRepository implements ProductStoreSettingsRepository
// using GORM.
type GormProductStoreSettingsRepository struct {
	db *gorm.DB
}

// NewGormProductStoreSettingsRepository creates a new GormProductStoreSettingsRepository
func NewGormProductStoreSettingsRepository(db *gorm.DB) *GormProductStoreSettingsRepository {
	return &GormProductStoreSettingsRepository{db: db}
}

// Find returns the settings for a product-store pair
func (r *GormProductStoreSettingsRepository) Find(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*catalog.ProductStoreSettings, error) {
	var model models.ProductStoreSettingsModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND store_id = ?", tenantID, productID, storeID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates the settings row. The write is an upsert keyed on
// the pair so concurrent editors do last-writer-wins.
func (r *GormProductStoreSettingsRepository) Save(ctx context.Context, settings *catalog.ProductStoreSettings) error {
	model := models.ProductStoreSettingsModelFromDomain(settings)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"sync_disabled", "updated_at"}),
		}).
		Create(model).Error
}

// Ensure GormProductStoreSettingsRepository implements ProductStoreSettingsRepository
var _ catalog.ProductStoreSettingsRepository = (*GormProductStoreSettingsRepository)(nil)
