package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pim/backend/internal/domain/sync"
	"github.com/pim/backend/internal/infrastructure/persistence/models"
)

// GormSyncStatusRepository implements SyncStatusRepository using GORM
type GormSyncStatusRepository struct {
	db *gorm.DB
}

// NewGormSyncStatusRepository creates a new GormSyncStatusRepository
func NewGormSyncStatusRepository(db *gorm.DB) *GormSyncStatusRepository {
	return &GormSyncStatusRepository{db: db}
}

// FindByProductAndStore retrieves the record for a product-store pair
func (r *GormSyncStatusRepository) FindByProductAndStore(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*sync.SyncStatusRecord, error) {
	var model models.SyncStatusModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND store_id = ?", tenantID, productID, storeID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrSyncStatusNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByStatus retrieves records in a given status with pagination
func (r *GormSyncStatusRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status sync.SyncStatus, page, pageSize int) ([]*sync.SyncStatusRecord, int64, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	base := r.db.WithContext(ctx).
		Model(&models.SyncStatusModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, status)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var statusModels []models.SyncStatusModel
	if err := base.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&statusModels).Error; err != nil {
		return nil, 0, err
	}

	records := make([]*sync.SyncStatusRecord, len(statusModels))
	for i := range statusModels {
		record, err := statusModels[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		records[i] = record
	}
	return records, total, nil
}

// Save inserts or wholesale-replaces the record for its pair
func (r *GormSyncStatusRepository) Save(ctx context.Context, record *sync.SyncStatusRecord) error {
	model, err := models.SyncStatusModelFromDomain(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "conflicts", "differences", "fingerprint",
				"last_error", "last_checked_at", "updated_at",
			}),
		}).
		Create(model).Error
}

// CountByStatus returns per-status record counts for a tenant
func (r *GormSyncStatusRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[sync.SyncStatus]int64, error) {
	type row struct {
		Status sync.SyncStatus
		Total  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.SyncStatusModel{}).
		Select("status, COUNT(*) AS total").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[sync.SyncStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// Ensure GormSyncStatusRepository implements SyncStatusRepository
var _ sync.SyncStatusRepository = (*GormSyncStatusRepository)(nil)
