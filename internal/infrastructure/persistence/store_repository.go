package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pim/backend/internal/domain/store"
	"github.com/pim/backend/internal/infrastructure/persistence/models"
)

// GormStoreRepository implements StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// FindByID finds a store by its ID
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrStoreNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByIDForTenant finds a store by ID within a tenant
func (r *GormStoreRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*store.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrStoreNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByCode finds a store by its code within a tenant
func (r *GormStoreRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*store.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrStoreNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAllEnabled finds all enabled stores for a tenant
func (r *GormStoreRepository) FindAllEnabled(ctx context.Context, tenantID uuid.UUID) ([]store.Store, error) {
	var storeModels []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled", tenantID).
		Order("code ASC").
		Find(&storeModels).Error; err != nil {
		return nil, err
	}

	stores := make([]store.Store, len(storeModels))
	for i := range storeModels {
		st, err := storeModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		stores[i] = *st
	}
	return stores, nil
}

// Save creates or updates a store
func (r *GormStoreRepository) Save(ctx context.Context, st *store.Store) error {
	model, err := models.StoreModelFromDomain(st)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// DeleteForTenant deletes a store within a tenant
func (r *GormStoreRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.StoreModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrStoreNotFound
	}
	return nil
}

// Ensure GormStoreRepository implements StoreRepository
var _ store.StoreRepository = (*GormStoreRepository)(nil)
