package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/shared"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, tenantID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	// Check if code already exists
	existing, err := s.productRepo.FindByCode(ctx, tenantID, req.Code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this code already exists")
	}

	product, err := catalog.NewProduct(tenantID, req.Code, req.Name)
	if err != nil {
		return nil, err
	}

	if req.ShortDescription != "" || req.LongDescription != "" {
		if err := product.Update(req.Name, req.ShortDescription, req.LongDescription); err != nil {
			return nil, err
		}
	}

	if req.Price != nil {
		if err := product.SetPrice(*req.Price); err != nil {
			return nil, err
		}
	}

	if req.SortOrder != nil {
		product.SetSortOrder(*req.SortOrder)
	}

	if req.Published {
		product.Publish()
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	return ToProductResponse(product), nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	return ToProductResponse(product), nil
}

// GetByCode retrieves a product by code
func (s *ProductService) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ProductResponse, error) {
	product, err := s.productRepo.FindByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	return ToProductResponse(product), nil
}

// List retrieves products for a tenant
func (s *ProductService) List(ctx context.Context, tenantID uuid.UUID, filter ProductListFilter) ([]ProductListResponse, int64, error) {
	domainFilter := shared.Filter{
		Filters: make(map[string]interface{}),
	}

	if filter.Search != "" {
		domainFilter.Search = filter.Search
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Published != nil {
		domainFilter.Filters["published"] = *filter.Published
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		domainFilter.Page = filter.Page
		domainFilter.PageSize = filter.PageSize
	}

	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
		domainFilter.OrderDir = filter.OrderDir
	} else {
		domainFilter.OrderBy = "sort_order"
		domainFilter.OrderDir = "asc"
	}

	products, err := s.productRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToProductListResponses(products), total, nil
}

// Update updates an existing product
func (s *ProductService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.ShortDescription != nil || req.LongDescription != nil {
		name := product.Name
		if req.Name != nil {
			name = *req.Name
		}
		shortDesc := product.ShortDescription
		if req.ShortDescription != nil {
			shortDesc = *req.ShortDescription
		}
		longDesc := product.LongDescription
		if req.LongDescription != nil {
			longDesc = *req.LongDescription
		}
		if err := product.Update(name, shortDesc, longDesc); err != nil {
			return nil, err
		}
	}

	if req.Price != nil {
		if err := product.SetPrice(*req.Price); err != nil {
			return nil, err
		}
	}

	if req.SortOrder != nil {
		product.SetSortOrder(*req.SortOrder)
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	return ToProductResponse(product), nil
}

// SetDefaultCategories replaces a product's store-agnostic category
// assignment after verifying every category exists.
func (s *ProductService) SetDefaultCategories(ctx context.Context, tenantID, id uuid.UUID, req SetDefaultCategoriesRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if len(req.CategoryIDs) > 0 {
		found, err := s.categoryRepo.FindByIDs(ctx, tenantID, req.CategoryIDs)
		if err != nil {
			return nil, err
		}
		if len(found) != len(req.CategoryIDs) {
			return nil, shared.NewDomainError("INVALID_CATEGORY", "One or more categories do not exist")
		}
	}

	if err := product.SetDefaultCategories(req.CategoryIDs, req.PrimaryID); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	return ToProductResponse(product), nil
}

// Publish marks a product as published
func (s *ProductService) Publish(ctx context.Context, tenantID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	product.Publish()

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	return ToProductResponse(product), nil
}

// Unpublish marks a product as not published
func (s *ProductService) Unpublish(ctx context.Context, tenantID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	product.Unpublish()

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	return ToProductResponse(product), nil
}

// Delete deletes a product
func (s *ProductService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.productRepo.FindByIDForTenant(ctx, tenantID, id); err != nil {
		return err
	}

	return s.productRepo.DeleteForTenant(ctx, tenantID, id)
}
