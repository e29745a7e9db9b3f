package catalog

import (
	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated           = "ProductCreated"
	EventTypeProductUpdated           = "ProductUpdated"
	EventTypeProductCategoriesChanged = "ProductCategoriesChanged"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID, product.TenantID),
		ProductID:       product.ID,
		Code:            product.Code,
		Name:            product.Name,
	}
}

// ProductUpdatedEvent is published when a product is updated
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Published bool      `json:"published"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(product *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, product.ID, product.TenantID),
		ProductID:       product.ID,
		Code:            product.Code,
		Name:            product.Name,
		Published:       product.Published,
	}
}

// ProductCategoriesChangedEvent is published when the default category
// assignment of a product changes
type ProductCategoriesChangedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID   `json:"product_id"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
	PrimaryID   *uuid.UUID  `json:"primary_id,omitempty"`
}

// NewProductCategoriesChangedEvent creates a new ProductCategoriesChangedEvent
func NewProductCategoriesChangedEvent(product *Product) *ProductCategoriesChangedEvent {
	return &ProductCategoriesChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCategoriesChanged, AggregateTypeProduct, product.ID, product.TenantID),
		ProductID:       product.ID,
		CategoryIDs:     product.DefaultCategories,
		PrimaryID:       product.DefaultPrimary,
	}
}
