package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pim/backend/internal/domain/mapping"
)

// CategoryMappingModel is the persistence model for category identity
// mappings. Mappings are soft-deactivated rather than deleted so stale
// remote references remain auditable; partial unique indexes (created in
// migrations) enforce at most one active row per canonical id and per
// remote id within a tenant-store-type scope.
type CategoryMappingModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID           `gorm:"type:uuid;not null;index:idx_mapping_scope,priority:1"`
	StoreID     uuid.UUID           `gorm:"type:uuid;not null;index:idx_mapping_scope,priority:2"`
	Type        mapping.MappingType `gorm:"type:varchar(20);not null;index:idx_mapping_scope,priority:3"`
	CanonicalID uuid.UUID           `gorm:"type:uuid;not null"`
	RemoteID    int64               `gorm:"not null"`
	Active      bool                `gorm:"not null;default:true"`
	CreatedAt   time.Time           `gorm:"not null;default:now()"`
	UpdatedAt   time.Time           `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (CategoryMappingModel) TableName() string {
	return "category_mappings"
}

// ToDomain converts the persistence model to a domain CategoryMapping
func (m *CategoryMappingModel) ToDomain() *mapping.CategoryMapping {
	return &mapping.CategoryMapping{
		ID:          m.ID,
		TenantID:    m.TenantID,
		StoreID:     m.StoreID,
		Type:        m.Type,
		CanonicalID: m.CanonicalID,
		RemoteID:    m.RemoteID,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain CategoryMapping
func (m *CategoryMappingModel) FromDomain(cm *mapping.CategoryMapping) {
	m.ID = cm.ID
	m.TenantID = cm.TenantID
	m.StoreID = cm.StoreID
	m.Type = cm.Type
	m.CanonicalID = cm.CanonicalID
	m.RemoteID = cm.RemoteID
	m.Active = cm.Active
	m.CreatedAt = cm.CreatedAt
	m.UpdatedAt = cm.UpdatedAt
}

// CategoryMappingModelFromDomain creates a new persistence model from a domain CategoryMapping
func CategoryMappingModelFromDomain(cm *mapping.CategoryMapping) *CategoryMappingModel {
	m := &CategoryMappingModel{}
	m.FromDomain(cm)
	return m
}

// CategorySelectionModel is the persistence model for per-product-per-store
// category selections. The selection itself is an opaque jsonb blob so rows
// written by earlier releases (the flat ui list and the remote self-map
// shapes) survive in place; format detection and migration happen on read.
type CategorySelectionModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;not null;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;primaryKey"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;primaryKey"`
	Payload   []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (CategorySelectionModel) TableName() string {
	return "category_selections"
}

// ToDomain decodes the stored payload, migrating legacy formats to the
// canonical shape on the fly. The row itself is not rewritten; migrated
// selections are persisted back only when the caller saves them.
func (m *CategorySelectionModel) ToDomain() (*mapping.CategorySelection, error) {
	var raw map[string]any
	if err := json.Unmarshal(m.Payload, &raw); err != nil {
		return nil, err
	}
	return mapping.MigrateLegacy(raw)
}

// FromDomain populates the persistence model from a domain CategorySelection
func (m *CategorySelectionModel) FromDomain(tenantID, productID, storeID uuid.UUID, sel *mapping.CategorySelection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	m.TenantID = tenantID
	m.ProductID = productID
	m.StoreID = storeID
	m.Payload = data
	m.UpdatedAt = sel.UpdatedAt
	return nil
}
