package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/pim/backend/internal/application/catalog"
)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// Create godoc
// @Summary      Create a new category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateCategoryRequest true "Category creation request"
// @Success      201 {object} dto.Response{data=catalog.CategoryResponse}
// @Router       /catalog/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req catalogapp.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, category)
}

// GetByID godoc
// @Summary      Get category by ID
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.CategoryResponse}
// @Router       /catalog/categories/{id} [get]
func (h *CategoryHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	categoryID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	category, err := h.categoryService.GetByID(c.Request.Context(), tenantID, categoryID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, category)
}

// List godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Param        search query string false "Search keyword"
// @Param        status query string false "Status filter" Enums(active, inactive)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]catalog.CategoryListResponse,meta=dto.Meta}
// @Router       /catalog/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter catalogapp.CategoryListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}

	categories, total, err := h.categoryService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, categories, total, filter.Page, filter.PageSize)
}

// GetTree godoc
// @Summary      Get category tree
// @Tags         categories
// @Produce      json
// @Success      200 {object} dto.Response{data=[]catalog.CategoryTreeNode}
// @Router       /catalog/categories/tree [get]
func (h *CategoryHandler) GetTree(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	tree, err := h.categoryService.GetTree(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tree)
}

// GetRoots godoc
// @Summary      Get root categories
// @Tags         categories
// @Produce      json
// @Success      200 {object} dto.Response{data=[]catalog.CategoryListResponse}
// @Router       /catalog/categories/roots [get]
func (h *CategoryHandler) GetRoots(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	categories, err := h.categoryService.GetRootCategories(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, categories)
}

// GetChildren godoc
// @Summary      Get children of a category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Parent Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]catalog.CategoryListResponse}
// @Router       /catalog/categories/{id}/children [get]
func (h *CategoryHandler) GetChildren(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	parentID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid parent category ID format")
		return
	}

	children, err := h.categoryService.GetChildren(c.Request.Context(), tenantID, parentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, children)
}

// Update godoc
// @Summary      Update a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body catalog.UpdateCategoryRequest true "Category update request"
// @Success      200 {object} dto.Response{data=catalog.CategoryResponse}
// @Router       /catalog/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	categoryID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	var req catalogapp.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), tenantID, categoryID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, category)
}

// Move godoc
// @Summary      Move a category to a new parent
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body catalog.MoveCategoryRequest true "Move category request"
// @Success      200 {object} dto.Response{data=catalog.CategoryResponse}
// @Router       /catalog/categories/{id}/move [post]
func (h *CategoryHandler) Move(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	categoryID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	var req catalogapp.MoveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	category, err := h.categoryService.Move(c.Request.Context(), tenantID, categoryID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, category)
}

// Activate godoc
// @Summary      Activate a category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.CategoryResponse}
// @Router       /catalog/categories/{id}/activate [post]
func (h *CategoryHandler) Activate(c *gin.Context) {
	h.transition(c, h.categoryService.Activate)
}

// Deactivate godoc
// @Summary      Deactivate a category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.CategoryResponse}
// @Router       /catalog/categories/{id}/deactivate [post]
func (h *CategoryHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.categoryService.Deactivate)
}

// Delete godoc
// @Summary      Delete a category
// @Description  Delete a category. Category must have no children and no associated products.
// @Tags         categories
// @Param        id path string true "Category ID" format(uuid)
// @Success      204 "No Content"
// @Router       /catalog/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	categoryID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), tenantID, categoryID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *CategoryHandler) transition(c *gin.Context, op func(ctx context.Context, tenantID, id uuid.UUID) (*catalogapp.CategoryResponse, error)) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	categoryID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	category, err := op(c.Request.Context(), tenantID, categoryID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, category)
}
