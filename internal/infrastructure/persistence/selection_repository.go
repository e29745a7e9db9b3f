package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/infrastructure/persistence/models"
)

// GormSelectionRepository implements SelectionRepository using GORM. The
// selection payload stays an opaque jsonb blob; rows written by earlier
// releases are migrated to the canonical shape when read.
type GormSelectionRepository struct {
	db *gorm.DB
}

// NewGormSelectionRepository creates a new GormSelectionRepository
func NewGormSelectionRepository(db *gorm.DB) *GormSelectionRepository {
	return &GormSelectionRepository{db: db}
}

// Find returns the selection for a product-store pair
func (r *GormSelectionRepository) Find(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*mapping.CategorySelection, error) {
	var model models.CategorySelectionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND store_id = ?", tenantID, productID, storeID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrSelectionNotFound
		}
		return nil, err
	}

	sel, err := model.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("decode selection for product %s store %s: %w", productID, storeID, err)
	}
	return sel, nil
}

// Replace overwrites the selection for a product-store pair. The write is
// an upsert keyed on the pair so concurrent editors do last-writer-wins.
func (r *GormSelectionRepository) Replace(ctx context.Context, tenantID, productID, storeID uuid.UUID, sel *mapping.CategorySelection) error {
	if err := sel.Validate(); err != nil {
		return err
	}

	var model models.CategorySelectionModel
	if err := model.FromDomain(tenantID, productID, storeID, sel); err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&model).Error
}

// Delete removes the selection for a product-store pair
func (r *GormSelectionRepository) Delete(ctx context.Context, tenantID, productID, storeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CategorySelectionModel{}, "tenant_id = ? AND product_id = ? AND store_id = ?",
			tenantID, productID, storeID).Error
}

// Ensure GormSelectionRepository implements SelectionRepository
var _ mapping.SelectionRepository = (*GormSelectionRepository)(nil)
