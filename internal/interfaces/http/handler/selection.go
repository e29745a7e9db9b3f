package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mappingapp "github.com/pim/backend/internal/application/mapping"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/store"
)

// SelectionHandler exposes the per-product-per-store category selection
type SelectionHandler struct {
	BaseHandler
	selections *mappingapp.StoreSelectionService
	storeRepo  store.StoreRepository
}

// NewSelectionHandler creates a new SelectionHandler
func NewSelectionHandler(selections *mappingapp.StoreSelectionService, storeRepo store.StoreRepository) *SelectionHandler {
	return &SelectionHandler{
		selections: selections,
		storeRepo:  storeRepo,
	}
}

// UpdateSelectionRequest replaces a pair's selection with a UI-supplied list
type UpdateSelectionRequest struct {
	Selected []uuid.UUID `json:"selected" binding:"required"`
	Primary  *uuid.UUID  `json:"primary"`
}

// ApplyRemoteSelectionRequest imports a remote-side category assignment
type ApplyRemoteSelectionRequest struct {
	RemoteIDs []int64 `json:"remote_ids" binding:"required"`
}

// SelectionResponse represents a stored selection. Inherited is true when
// the pair has no override and follows the product's default assignment.
type SelectionResponse struct {
	Selected   []uuid.UUID         `json:"selected"`
	Primary    *uuid.UUID          `json:"primary"`
	Mappings   map[uuid.UUID]int64 `json:"mappings"`
	Unresolved []int64             `json:"unresolved,omitempty"`
	Source     string              `json:"source"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Inherited  bool                `json:"inherited"`
}

func toSelectionResponse(sel *mapping.CategorySelection) SelectionResponse {
	return SelectionResponse{
		Selected:   sel.Selected,
		Primary:    sel.Primary,
		Mappings:   sel.Mappings,
		Unresolved: sel.Unresolved,
		Source:     string(sel.Source),
		UpdatedAt:  sel.UpdatedAt,
	}
}

// Get godoc
// @Summary      Get the category selection for a product-store pair
// @Tags         selections
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=SelectionResponse}
// @Router       /catalog/products/{id}/stores/{store_id}/selection [get]
func (h *SelectionHandler) Get(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	sel, found, err := h.selections.Get(c.Request.Context(), tenantID, productID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if !found {
		h.Success(c, SelectionResponse{Inherited: true})
		return
	}

	h.Success(c, toSelectionResponse(sel))
}

// Update godoc
// @Summary      Replace the category selection for a product-store pair
// @Tags         selections
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Param        request body UpdateSelectionRequest true "Selection update request"
// @Success      200 {object} dto.Response{data=SelectionResponse}
// @Router       /catalog/products/{id}/stores/{store_id}/selection [put]
func (h *SelectionHandler) Update(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	var req UpdateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	st, err := h.storeRepo.FindByIDForTenant(c.Request.Context(), tenantID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	sel, err := h.selections.UpdateFromUI(c.Request.Context(), tenantID, productID, st, req.Selected, req.Primary)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSelectionResponse(sel))
}

// ApplyRemote godoc
// @Summary      Import a remote-side category assignment
// @Description  When every remote id already has a mapping the selection is
// @Description  stored immediately. Otherwise a category creation task chain
// @Description  is scheduled and scheduled=true is returned.
// @Tags         selections
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Param        request body ApplyRemoteSelectionRequest true "Remote assignment"
// @Success      202 {object} dto.Response
// @Router       /catalog/products/{id}/stores/{store_id}/selection/apply-remote [post]
func (h *SelectionHandler) ApplyRemote(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	var req ApplyRemoteSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	st, err := h.storeRepo.FindByIDForTenant(c.Request.Context(), tenantID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	scheduled, err := h.selections.ApplyRemoteAssignment(c.Request.Context(), tenantID, productID, st, req.RemoteIDs)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"scheduled": scheduled})
}

// Refresh godoc
// @Summary      Re-resolve a selection's mappings against current state
// @Tags         selections
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Success      204 "No Content"
// @Router       /catalog/products/{id}/stores/{store_id}/selection/refresh [post]
func (h *SelectionHandler) Refresh(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	st, err := h.storeRepo.FindByIDForTenant(c.Request.Context(), tenantID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if err := h.selections.Refresh(c.Request.Context(), tenantID, productID, st); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Clear godoc
// @Summary      Remove the selection so the pair inherits the default
// @Tags         selections
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Success      204 "No Content"
// @Router       /catalog/products/{id}/stores/{store_id}/selection [delete]
func (h *SelectionHandler) Clear(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	if err := h.selections.Clear(c.Request.Context(), tenantID, productID, storeID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *SelectionHandler) pairIDs(c *gin.Context) (tenantID, productID, storeID uuid.UUID, ok bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}

	productID, err = pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}

	storeID, err = pathUUID(c, "store_id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID format")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}

	return tenantID, productID, storeID, true
}
