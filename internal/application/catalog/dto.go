package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Code             string           `json:"code" binding:"required,min=1,max=50"`
	Name             string           `json:"name" binding:"required,min=1,max=200"`
	ShortDescription string           `json:"short_description" binding:"max=2000"`
	LongDescription  string           `json:"long_description"`
	Price            *decimal.Decimal `json:"price"`
	Published        bool             `json:"published"`
	SortOrder        *int             `json:"sort_order"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name             *string          `json:"name" binding:"omitempty,min=1,max=200"`
	ShortDescription *string          `json:"short_description" binding:"omitempty,max=2000"`
	LongDescription  *string          `json:"long_description"`
	Price            *decimal.Decimal `json:"price"`
	SortOrder        *int             `json:"sort_order"`
}

// SetDefaultCategoriesRequest replaces a product's store-agnostic category
// assignment.
type SetDefaultCategoriesRequest struct {
	CategoryIDs []uuid.UUID `json:"category_ids" binding:"required"`
	PrimaryID   *uuid.UUID  `json:"primary_id"`
}

// ProductResponse represents a product in responses
type ProductResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	ShortDescription  string          `json:"short_description"`
	LongDescription   string          `json:"long_description"`
	Price             decimal.Decimal `json:"price"`
	Published         bool            `json:"published"`
	Status            string          `json:"status"`
	SortOrder         int             `json:"sort_order"`
	DefaultCategories []uuid.UUID     `json:"default_categories"`
	DefaultPrimary    *uuid.UUID      `json:"default_primary"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ProductListResponse represents a list item for products
type ProductListResponse struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Published bool            `json:"published"`
	Status    string          `json:"status"`
	SortOrder int             `json:"sort_order"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProductListFilter represents filter options for product list
type ProductListFilter struct {
	Search    string `form:"search"`
	Status    string `form:"status" binding:"omitempty,oneof=active inactive"`
	Published *bool  `form:"published"`
	Page      int    `form:"page" binding:"min=1"`
	PageSize  int    `form:"page_size" binding:"min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) *ProductResponse {
	return &ProductResponse{
		ID:                p.ID,
		TenantID:          p.TenantID,
		Code:              p.Code,
		Name:              p.Name,
		ShortDescription:  p.ShortDescription,
		LongDescription:   p.LongDescription,
		Price:             p.Price,
		Published:         p.Published,
		Status:            string(p.Status),
		SortOrder:         p.SortOrder,
		DefaultCategories: p.DefaultCategories,
		DefaultPrimary:    p.DefaultPrimary,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
}

// ToProductListResponse converts a domain Product to ProductListResponse
func ToProductListResponse(p *catalog.Product) ProductListResponse {
	return ProductListResponse{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Price:     p.Price,
		Published: p.Published,
		Status:    string(p.Status),
		SortOrder: p.SortOrder,
		CreatedAt: p.CreatedAt,
	}
}

// ToProductListResponses converts a slice of domain Products to ProductListResponses
func ToProductListResponses(products []catalog.Product) []ProductListResponse {
	responses := make([]ProductListResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductListResponse(&p)
	}
	return responses
}
