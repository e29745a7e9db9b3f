package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pim/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product domain entity.
// The store-agnostic default category assignment is stored as a jsonb
// array of canonical ids alongside the row.
type ProductModel struct {
	TenantAggregateModel
	Code              string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_product_tenant_code,priority:2"`
	Name              string                `gorm:"type:varchar(200);not null"`
	ShortDescription  string                `gorm:"type:text"`
	LongDescription   string                `gorm:"type:text"`
	Price             decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Published         bool                  `gorm:"not null;default:false"`
	Status            catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
	SortOrder         int                   `gorm:"not null;default:0"`
	DefaultCategories []byte                `gorm:"type:jsonb;default:'[]'"`
	DefaultPrimary    *uuid.UUID            `gorm:"type:uuid"`
	AttributeIDs      []byte                `gorm:"type:jsonb;default:'[]'"`
	ImageSettings     string                `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() (*catalog.Product, error) {
	var defaultCategories []uuid.UUID
	if len(m.DefaultCategories) > 0 {
		if err := json.Unmarshal(m.DefaultCategories, &defaultCategories); err != nil {
			return nil, err
		}
	}
	var attributeIDs []uuid.UUID
	if len(m.AttributeIDs) > 0 {
		if err := json.Unmarshal(m.AttributeIDs, &attributeIDs); err != nil {
			return nil, err
		}
	}

	product := &catalog.Product{
		Code:              m.Code,
		Name:              m.Name,
		ShortDescription:  m.ShortDescription,
		LongDescription:   m.LongDescription,
		Price:             m.Price,
		Published:         m.Published,
		Status:            m.Status,
		SortOrder:         m.SortOrder,
		DefaultCategories: defaultCategories,
		DefaultPrimary:    m.DefaultPrimary,
		AttributeIDs:      attributeIDs,
		ImageSettings:     m.ImageSettings,
	}
	m.PopulateTenantAggregateRoot(&product.TenantAggregateRoot)
	return product, nil
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) error {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Code = p.Code
	m.Name = p.Name
	m.ShortDescription = p.ShortDescription
	m.LongDescription = p.LongDescription
	m.Price = p.Price
	m.Published = p.Published
	m.Status = p.Status
	m.SortOrder = p.SortOrder
	m.DefaultPrimary = p.DefaultPrimary

	categories := p.DefaultCategories
	if categories == nil {
		categories = []uuid.UUID{}
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	m.DefaultCategories = data

	attributes := p.AttributeIDs
	if attributes == nil {
		attributes = []uuid.UUID{}
	}
	attrData, err := json.Marshal(attributes)
	if err != nil {
		return err
	}
	m.AttributeIDs = attrData

	m.ImageSettings = p.ImageSettings
	if m.ImageSettings == "" {
		m.ImageSettings = "{}"
	}
	return nil
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) (*ProductModel, error) {
	m := &ProductModel{}
	if err := m.FromDomain(p); err != nil {
		return nil, err
	}
	return m, nil
}

// ProductStoreSettingsModel is the persistence model for per product-store
// flags. At most one row exists per pair.
type ProductStoreSettingsModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pss_pair,priority:1"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pss_pair,priority:2"`
	StoreID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pss_pair,priority:3"`
	SyncDisabled bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductStoreSettingsModel) TableName() string {
	return "product_store_settings"
}

// ToDomain converts the persistence model to domain settings
func (m *ProductStoreSettingsModel) ToDomain() *catalog.ProductStoreSettings {
	return &catalog.ProductStoreSettings{
		ID:           m.ID,
		TenantID:     m.TenantID,
		ProductID:    m.ProductID,
		StoreID:      m.StoreID,
		SyncDisabled: m.SyncDisabled,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ProductStoreSettingsModelFromDomain creates a persistence model from domain settings
func ProductStoreSettingsModelFromDomain(s *catalog.ProductStoreSettings) *ProductStoreSettingsModel {
	return &ProductStoreSettingsModel{
		ID:           s.ID,
		TenantID:     s.TenantID,
		ProductID:    s.ProductID,
		StoreID:      s.StoreID,
		SyncDisabled: s.SyncDisabled,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
