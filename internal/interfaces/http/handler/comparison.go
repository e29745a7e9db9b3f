package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pim/backend/internal/application/comparison"
	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/store"
)

// ComparisonHandler exposes the category tree comparison engine and the
// override validator.
type ComparisonHandler struct {
	BaseHandler
	engine      *comparison.CategoryComparisonEngine
	validator   *comparison.CategoryOverrideValidator
	productRepo catalog.ProductRepository
	storeRepo   store.StoreRepository
}

// NewComparisonHandler creates a new ComparisonHandler
func NewComparisonHandler(
	engine *comparison.CategoryComparisonEngine,
	validator *comparison.CategoryOverrideValidator,
	productRepo catalog.ProductRepository,
	storeRepo store.StoreRepository,
) *ComparisonHandler {
	return &ComparisonHandler{
		engine:      engine,
		validator:   validator,
		productRepo: productRepo,
		storeRepo:   storeRepo,
	}
}

// Compare godoc
// @Summary      Compare a store's remote category tree with the local catalog
// @Description  Merges both trees by recorded mapping and classifies every
// @Description  node as both, remote_only or local_only. An optional status
// @Description  query flattens the result to the matching nodes.
// @Tags         comparison
// @Produce      json
// @Param        id path string true "Store ID" format(uuid)
// @Param        status query string false "Node status filter" Enums(both, remote_only, local_only)
// @Success      200 {object} dto.Response{data=comparison.ComparisonResult}
// @Router       /stores/{id}/comparison [get]
func (h *ComparisonHandler) Compare(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	storeID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID format")
		return
	}

	st, err := h.storeRepo.FindByIDForTenant(c.Request.Context(), tenantID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.engine.Compare(c.Request.Context(), tenantID, st)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if status := c.Query("status"); status != "" {
		switch s := comparison.NodeStatus(status); s {
		case comparison.NodeStatusBoth, comparison.NodeStatusRemoteOnly, comparison.NodeStatusLocalOnly:
			h.Success(c, gin.H{
				"store_id": result.StoreID,
				"nodes":    comparison.FilterByStatus(result.Nodes, s),
				"counts":   result.Counts,
			})
		default:
			h.BadRequest(c, "Invalid status filter")
		}
		return
	}

	h.Success(c, result)
}

// ValidateOverrides godoc
// @Summary      Validate a product's category overrides across all stores
// @Tags         comparison
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=comparison.ProductOverrideReport}
// @Router       /catalog/products/{id}/overrides [get]
func (h *ComparisonHandler) ValidateOverrides(c *gin.Context) {
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

	report, err := h.validator.ValidateAllShops(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// ValidateShopOverride godoc
// @Summary      Validate a product's category override for one store
// @Tags         comparison
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=comparison.ShopOverrideResult}
// @Router       /catalog/products/{id}/overrides/{store_id} [get]
func (h *ComparisonHandler) ValidateShopOverride(c *gin.Context) {
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

	storeID, err := pathUUID(c, "store_id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID format")
		return
	}

	product, err := h.productRepo.FindByIDForTenant(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	st, err := h.storeRepo.FindByIDForTenant(c.Request.Context(), tenantID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.validator.ValidateShop(c.Request.Context(), tenantID, product, st)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
