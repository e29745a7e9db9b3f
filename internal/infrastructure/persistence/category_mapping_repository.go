package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/infrastructure/persistence/models"
)

// GormCategoryMappingRepository implements CategoryMappingRepository using GORM
type GormCategoryMappingRepository struct {
	db *gorm.DB
}

// NewGormCategoryMappingRepository creates a new GormCategoryMappingRepository
func NewGormCategoryMappingRepository(db *gorm.DB) *GormCategoryMappingRepository {
	return &GormCategoryMappingRepository{db: db}
}

// ---------------------------------------------------------------------------
// CategoryMappingReader implementation
// ---------------------------------------------------------------------------

// FindActive finds the active mapping for a canonical id
func (r *GormCategoryMappingRepository) FindActive(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, canonicalID uuid.UUID) (*mapping.CategoryMapping, error) {
	var model models.CategoryMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND type = ? AND canonical_id = ? AND active",
			tenantID, storeID, mappingType, canonicalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByRemote finds the active mapping for a remote id
func (r *GormCategoryMappingRepository) FindActiveByRemote(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, remoteID int64) (*mapping.CategoryMapping, error) {
	var model models.CategoryMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND type = ? AND remote_id = ? AND active",
			tenantID, storeID, mappingType, remoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveForStore finds all active mappings of a type for a store
func (r *GormCategoryMappingRepository) FindActiveForStore(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType) ([]mapping.CategoryMapping, error) {
	var mappingModels []models.CategoryMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND type = ? AND active", tenantID, storeID, mappingType).
		Order("remote_id ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}
	return toDomainMappings(mappingModels), nil
}

// FindActiveByCanonicalIDs finds active mappings for multiple canonical ids in one query
func (r *GormCategoryMappingRepository) FindActiveByCanonicalIDs(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, canonicalIDs []uuid.UUID) ([]mapping.CategoryMapping, error) {
	if len(canonicalIDs) == 0 {
		return nil, nil
	}
	var mappingModels []models.CategoryMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND type = ? AND canonical_id IN ? AND active",
			tenantID, storeID, mappingType, canonicalIDs).
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}
	return toDomainMappings(mappingModels), nil
}

// ---------------------------------------------------------------------------
// CategoryMappingWriter implementation
// ---------------------------------------------------------------------------

// Create inserts a new mapping. The partial unique indexes on active rows
// reject a second active mapping for the same canonical or remote id; that
// violation is surfaced as ErrMappingAlreadyExists so a concurrent creator
// can adopt the winner's row.
func (r *GormCategoryMappingRepository) Create(ctx context.Context, m *mapping.CategoryMapping) error {
	model := models.CategoryMappingModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return mapping.ErrMappingAlreadyExists
		}
		return err
	}
	return nil
}

// Save updates an existing mapping
func (r *GormCategoryMappingRepository) Save(ctx context.Context, m *mapping.CategoryMapping) error {
	model := models.CategoryMappingModelFromDomain(m)
	return r.db.WithContext(ctx).Save(model).Error
}

// DeactivateByCanonicalID deactivates all active mappings referencing a
// canonical id, across all stores
func (r *GormCategoryMappingRepository) DeactivateByCanonicalID(ctx context.Context, tenantID uuid.UUID, mappingType mapping.MappingType, canonicalID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CategoryMappingModel{}).
		Where("tenant_id = ? AND type = ? AND canonical_id = ? AND active", tenantID, mappingType, canonicalID).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func toDomainMappings(mappingModels []models.CategoryMappingModel) []mapping.CategoryMapping {
	mappings := make([]mapping.CategoryMapping, len(mappingModels))
	for i := range mappingModels {
		mappings[i] = *mappingModels[i].ToDomain()
	}
	return mappings
}

// isUniqueViolation reports whether the error is a unique constraint
// violation, either gorm's translated error or the raw postgres 23505.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}

// Ensure GormCategoryMappingRepository implements CategoryMappingRepository
var _ mapping.CategoryMappingRepository = (*GormCategoryMappingRepository)(nil)
