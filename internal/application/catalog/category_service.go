package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
)

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	mappingRepo  mapping.CategoryMappingWriter
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	mappingRepo mapping.CategoryMappingWriter,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		mappingRepo:  mappingRepo,
	}
}

// Create creates a category, as a child when ParentID is set
func (s *CategoryService) Create(ctx context.Context, tenantID uuid.UUID, req CreateCategoryRequest) (*CategoryResponse, error) {
	exists, err := s.categoryRepo.ExistsByCode(ctx, tenantID, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Category with this code already exists")
	}

	var category *catalog.Category
	if req.ParentID != nil {
		parent, err := s.findOwned(ctx, tenantID, *req.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_PARENT", "Parent category not found")
			}
			return nil, err
		}
		category, err = catalog.NewChildCategory(tenantID, req.Code, req.Name, parent)
		if err != nil {
			return nil, err
		}
	} else {
		category, err = catalog.NewCategory(tenantID, req.Code, req.Name)
		if err != nil {
			return nil, err
		}
	}

	if req.Description != "" {
		if err := category.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}
	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}

	return s.saveAndRespond(ctx, category)
}

// GetByID retrieves a category by ID
func (s *CategoryService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.findOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponse(category), nil
}

// List retrieves a filtered, paginated category page with its total count
func (s *CategoryService) List(ctx context.Context, tenantID uuid.UUID, filter CategoryListFilter) ([]CategoryListResponse, int64, error) {
	domainFilter := shared.Filter{
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
		OrderBy:  "sort_order",
		OrderDir: "asc",
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		domainFilter.Page = filter.Page
		domainFilter.PageSize = filter.PageSize
	}
	if filter.SortBy != "" {
		domainFilter.OrderBy = filter.SortBy
		if filter.SortDesc {
			domainFilter.OrderDir = "desc"
		}
	}

	categories, err := s.categoryRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.categoryRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return toListResponses(categories), total, nil
}

// GetTree returns the tenant's categories as nested root nodes
func (s *CategoryService) GetTree(ctx context.Context, tenantID uuid.UUID) ([]CategoryTreeNode, error) {
	categories, err := s.categoryRepo.FindAllForTenant(ctx, tenantID, shared.Filter{
		OrderBy:  "sort_order",
		OrderDir: "asc",
	})
	if err != nil {
		return nil, err
	}
	return buildCategoryTree(categories), nil
}

// GetChildren retrieves the direct children of a category
func (s *CategoryService) GetChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]CategoryListResponse, error) {
	children, err := s.categoryRepo.FindChildren(ctx, tenantID, parentID)
	if err != nil {
		return nil, err
	}
	return toListResponses(children), nil
}

// GetRootCategories retrieves all root categories
func (s *CategoryService) GetRootCategories(ctx context.Context, tenantID uuid.UUID) ([]CategoryListResponse, error) {
	categories, err := s.categoryRepo.FindRootCategories(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toListResponses(categories), nil
}

// Update updates name, description, sort order and the settings blobs
func (s *CategoryService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.findOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = category.Name
	}
	description := req.Description
	if description == "" {
		description = category.Description
	}
	if name != category.Name || description != category.Description {
		if err := category.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}
	category.UpdateSettings(req.VisualSettings, req.VisibilitySettings, req.DefaultSettings)

	return s.saveAndRespond(ctx, category)
}

// Move reparents a category; the repository shifts the whole subtree
func (s *CategoryService) Move(ctx context.Context, tenantID, id uuid.UUID, req MoveCategoryRequest) (*CategoryResponse, error) {
	category, err := s.findOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	// Root placement unless a parent is given
	newPath := category.ID.String()
	newLevel := 0

	if req.ParentID != nil {
		newParent, err := s.findOwned(ctx, tenantID, *req.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_PARENT", "Parent category not found")
			}
			return nil, err
		}
		if category.IsAncestorOf(newParent) {
			return nil, shared.NewDomainError("CIRCULAR_REFERENCE", "Cannot move category to its own descendant")
		}
		if newParent.Level >= catalog.MaxCategoryDepth-1 {
			return nil, shared.NewDomainError("MAX_DEPTH_EXCEEDED", "Maximum category depth exceeded")
		}
		newPath = newParent.Path + "/" + category.ID.String()
		newLevel = newParent.Level + 1
	}

	if err := s.categoryRepo.UpdatePath(ctx, tenantID, id, newPath, newLevel-category.Level); err != nil {
		return nil, err
	}

	// Reload: the subtree shift happened in the repository
	category, err = s.findOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponse(category), nil
}

// Activate activates a category
func (s *CategoryService) Activate(ctx context.Context, tenantID, id uuid.UUID) (*CategoryResponse, error) {
	return s.transition(ctx, tenantID, id, (*catalog.Category).Activate)
}

// Deactivate deactivates a category
func (s *CategoryService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*CategoryResponse, error) {
	return s.transition(ctx, tenantID, id, (*catalog.Category).Deactivate)
}

// Delete removes a category. Blocked while children or products reference
// it; on success the category's store mappings are deactivated so stale
// remote ids cannot resolve to it.
func (s *CategoryService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	category, err := s.findOwned(ctx, tenantID, id)
	if err != nil {
		return err
	}

	hasChildren, err := s.categoryRepo.HasChildren(ctx, tenantID, category.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return shared.NewDomainError("HAS_CHILDREN", "Cannot delete category with children")
	}

	hasProducts, err := s.categoryRepo.HasProducts(ctx, tenantID, category.ID)
	if err != nil {
		return err
	}
	if hasProducts {
		return shared.NewDomainError("HAS_PRODUCTS", "Cannot delete category with associated products")
	}

	if err := s.categoryRepo.DeleteForTenant(ctx, tenantID, id); err != nil {
		return err
	}

	// Mapping rows stay for audit, only the active flag drops
	_, err = s.mappingRepo.DeactivateByCanonicalID(ctx, tenantID, mapping.MappingTypeCategory, id)
	return err
}

func (s *CategoryService) findOwned(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Category, error) {
	return s.categoryRepo.FindByIDForTenant(ctx, tenantID, id)
}

func (s *CategoryService) saveAndRespond(ctx context.Context, category *catalog.Category) (*CategoryResponse, error) {
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	return ToCategoryResponse(category), nil
}

func (s *CategoryService) transition(ctx context.Context, tenantID, id uuid.UUID, op func(*catalog.Category) error) (*CategoryResponse, error) {
	category, err := s.findOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := op(category); err != nil {
		return nil, err
	}
	return s.saveAndRespond(ctx, category)
}

func toListResponses(categories []catalog.Category) []CategoryListResponse {
	responses := make([]CategoryListResponse, len(categories))
	for i := range categories {
		responses[i] = ToCategoryListResponse(&categories[i])
	}
	return responses
}

// buildCategoryTree nests a flat category list under its root nodes
func buildCategoryTree(categories []catalog.Category) []CategoryTreeNode {
	nodes := make(map[uuid.UUID]*CategoryTreeNode, len(categories))
	for i := range categories {
		cat := &categories[i]
		nodes[cat.ID] = &CategoryTreeNode{
			ID:          cat.ID,
			Code:        cat.Code,
			Name:        cat.Name,
			Description: cat.Description,
			ParentID:    cat.ParentID,
			Level:       cat.Level,
			SortOrder:   cat.SortOrder,
			Status:      string(cat.Status),
			Children:    []CategoryTreeNode{},
		}
	}

	var rootIDs []uuid.UUID
	for i := range categories {
		cat := &categories[i]
		if cat.ParentID == nil {
			rootIDs = append(rootIDs, cat.ID)
			continue
		}
		if parent, ok := nodes[*cat.ParentID]; ok {
			parent.Children = append(parent.Children, CategoryTreeNode{ID: cat.ID})
		} else {
			// Orphaned parent reference, surface the node at the root
			rootIDs = append(rootIDs, cat.ID)
		}
	}

	roots := make([]CategoryTreeNode, 0, len(rootIDs))
	for _, id := range rootIDs {
		roots = append(roots, materialize(id, nodes))
	}
	return roots
}

// materialize deep-copies a node and its subtree out of the lookup map
func materialize(id uuid.UUID, nodes map[uuid.UUID]*CategoryTreeNode) CategoryTreeNode {
	node := *nodes[id]
	children := make([]CategoryTreeNode, len(node.Children))
	for i, child := range node.Children {
		children[i] = materialize(child.ID, nodes)
	}
	node.Children = children
	return node
}
