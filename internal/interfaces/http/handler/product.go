package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/pim/backend/internal/application/catalog"
)

// ProductHandler handles product-related API endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// Create godoc
// @Summary      Create a new product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateProductRequest true "Product creation request"
// @Success      201 {object} dto.Response{data=catalog.ProductResponse}
// @Router       /catalog/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.productService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, product)
}

// List godoc
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        search query string false "Search keyword"
// @Param        status query string false "Status filter" Enums(active, inactive)
// @Param        published query bool false "Published filter"
// @Success      200 {object} dto.Response{data=[]catalog.ProductListResponse,meta=dto.Meta}
// @Router       /catalog/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter catalogapp.ProductListFilter
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

	products, total, err := h.productService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @Summary      Get product by ID
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Router       /catalog/products/{id} [get]
func (h *ProductHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	product, err := h.productService.GetByID(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// GetByCode godoc
// @Summary      Get product by code
// @Tags         products
// @Produce      json
// @Param        code path string true "Product code"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Router       /catalog/products/code/{code} [get]
func (h *ProductHandler) GetByCode(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	product, err := h.productService.GetByCode(c.Request.Context(), tenantID, c.Param("code"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// Update godoc
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.UpdateProductRequest true "Product update request"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Router       /catalog/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req catalogapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.productService.Update(c.Request.Context(), tenantID, productID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// SetDefaultCategories godoc
// @Summary      Replace a product's default category assignment
// @Description  Sets the store-agnostic category list every store inherits
// @Description  unless it carries an override.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.SetDefaultCategoriesRequest true "Default categories"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Router       /catalog/products/{id}/default-categories [put]
func (h *ProductHandler) SetDefaultCategories(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req catalogapp.SetDefaultCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.productService.SetDefaultCategories(c.Request.Context(), tenantID, productID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// Publish godoc
// @Summary      Publish a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Router       /catalog/products/{id}/publish [post]
func (h *ProductHandler) Publish(c *gin.Context) {
	h.toggle(c, h.productService.Publish)
}

// Unpublish godoc
// @Summary      Unpublish a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Router       /catalog/products/{id}/unpublish [post]
func (h *ProductHandler) Unpublish(c *gin.Context) {
	h.toggle(c, h.productService.Unpublish)
}

// Delete godoc
// @Summary      Delete a product
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204 "No Content"
// @Router       /catalog/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	if err := h.productService.Delete(c.Request.Context(), tenantID, productID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *ProductHandler) toggle(c *gin.Context, op func(ctx context.Context, tenantID, id uuid.UUID) (*catalogapp.ProductResponse, error)) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	product, err := op(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}
