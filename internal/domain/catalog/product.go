package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product represents a product in the canonical catalog.
// Category assignment has two layers: the store-agnostic default carried
// here, and optional per-store overrides persisted with the product-store
// association.
type Product struct {
	shared.TenantAggregateRoot
	Code              string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_product_tenant_code,priority:2"`
	Name              string          `gorm:"type:varchar(200);not null"`
	ShortDescription  string          `gorm:"type:text"`
	LongDescription   string          `gorm:"type:text"`
	Price             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Published         bool            `gorm:"not null;default:false"`
	Status            ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	SortOrder         int             `gorm:"not null;default:0"`
	DefaultCategories []uuid.UUID     `gorm:"-"` // persisted via model as jsonb
	DefaultPrimary    *uuid.UUID      `gorm:"-"`
	AttributeIDs      []uuid.UUID     `gorm:"-"` // persisted via model as jsonb
	ImageSettings     string          `gorm:"-"` // opaque presentation blob
}

// SetAttributes replaces the product's attribute assignment
func (p *Product) SetAttributes(attributeIDs []uuid.UUID) {
	p.AttributeIDs = attributeIDs
	p.Touch()
	p.IncrementVersion()
}

// SetImageSettings replaces the opaque image presentation settings
func (p *Product) SetImageSettings(settings string) {
	p.ImageSettings = settings
	p.Touch()
	p.IncrementVersion()
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(tenantID uuid.UUID, code, name string) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}

	product := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(code),
		Name:                name,
		Price:               decimal.Zero,
		Status:              ProductStatusActive,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, shortDescription, longDescription string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.ShortDescription = shortDescription
	p.LongDescription = longDescription
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetPrice sets the selling price
func (p *Product) SetPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	p.Price = price
	p.Touch()
	p.IncrementVersion()
	return nil
}

// Publish marks the product as published to remote stores
func (p *Product) Publish() {
	if p.Published {
		return
	}
	p.Published = true
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
}

// Unpublish marks the product as not published
func (p *Product) Unpublish() {
	if !p.Published {
		return
	}
	p.Published = false
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
}

// SetDefaultCategories replaces the store-agnostic category assignment.
// The primary must be one of the assigned categories.
func (p *Product) SetDefaultCategories(categoryIDs []uuid.UUID, primary *uuid.UUID) error {
	if primary != nil {
		found := false
		for _, id := range categoryIDs {
			if id == *primary {
				found = true
				break
			}
		}
		if !found {
			return shared.NewDomainError("INVALID_PRIMARY", "Primary category must be one of the assigned categories")
		}
	}

	p.DefaultCategories = categoryIDs
	p.DefaultPrimary = primary
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductCategoriesChangedEvent(p))

	return nil
}

// SetSortOrder sets the sort order
func (p *Product) SetSortOrder(order int) {
	p.SortOrder = order
	p.Touch()
	p.IncrementVersion()
}

// IsActive returns true if the product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// validateProductCode validates the product code
func validateProductCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	return nil
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
