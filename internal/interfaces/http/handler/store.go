package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pim/backend/internal/domain/store"
)

// StoreHandler handles remote store administration endpoints
type StoreHandler struct {
	BaseHandler
	storeRepo store.StoreRepository
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(storeRepo store.StoreRepository) *StoreHandler {
	return &StoreHandler{
		storeRepo: storeRepo,
	}
}

// CreateStoreRequest represents a request to register a remote store
type CreateStoreRequest struct {
	Code    string `json:"code" binding:"required,min=1,max=50"`
	Name    string `json:"name" binding:"required,min=1,max=100"`
	BaseURL string `json:"base_url" binding:"required,url"`
	APIKey  string `json:"api_key"`
}

// StoreResponse represents a store in responses
type StoreResponse struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	BaseURL         string    `json:"base_url"`
	Enabled         bool      `json:"enabled"`
	SyncEnabled     bool      `json:"sync_enabled"`
	RootSentinelIDs []int64   `json:"root_sentinel_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toStoreResponse(st *store.Store) StoreResponse {
	return StoreResponse{
		ID:              st.ID,
		Code:            st.Code,
		Name:            st.Name,
		BaseURL:         st.BaseURL,
		Enabled:         st.Enabled,
		SyncEnabled:     st.SyncEnabled,
		RootSentinelIDs: st.RootSentinelIDs,
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       st.UpdatedAt,
	}
}

// Create godoc
// @Summary      Register a remote store
// @Tags         stores
// @Accept       json
// @Produce      json
// @Param        request body CreateStoreRequest true "Store registration request"
// @Success      201 {object} dto.Response{data=StoreResponse}
// @Router       /stores [post]
func (h *StoreHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	st, err := store.NewStore(tenantID, req.Code, req.Name, req.BaseURL)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	st.APIKey = req.APIKey

	if err := h.storeRepo.Save(c.Request.Context(), st); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toStoreResponse(st))
}

// List godoc
// @Summary      List enabled stores
// @Tags         stores
// @Produce      json
// @Success      200 {object} dto.Response{data=[]StoreResponse}
// @Router       /stores [get]
func (h *StoreHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	stores, err := h.storeRepo.FindAllEnabled(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]StoreResponse, len(stores))
	for i := range stores {
		responses[i] = toStoreResponse(&stores[i])
	}
	h.Success(c, responses)
}

// GetByID godoc
// @Summary      Get store by ID
// @Tags         stores
// @Produce      json
// @Param        id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=StoreResponse}
// @Router       /stores/{id} [get]
func (h *StoreHandler) GetByID(c *gin.Context) {
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

	h.Success(c, toStoreResponse(st))
}

// Enable godoc
// @Summary      Enable a store
// @Tags         stores
// @Produce      json
// @Param        id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=StoreResponse}
// @Router       /stores/{id}/enable [post]
func (h *StoreHandler) Enable(c *gin.Context) {
	h.mutate(c, (*store.Store).Enable)
}

// Disable godoc
// @Summary      Disable a store
// @Tags         stores
// @Produce      json
// @Param        id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=StoreResponse}
// @Router       /stores/{id}/disable [post]
func (h *StoreHandler) Disable(c *gin.Context) {
	h.mutate(c, (*store.Store).Disable)
}

// EnableSync godoc
// @Summary      Enable automatic synchronization for a store
// @Tags         stores
// @Produce      json
// @Param        id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=StoreResponse}
// @Router       /stores/{id}/sync/enable [post]
func (h *StoreHandler) EnableSync(c *gin.Context) {
	h.mutate(c, (*store.Store).EnableSync)
}

// DisableSync godoc
// @Summary      Disable automatic synchronization for a store
// @Tags         stores
// @Produce      json
// @Param        id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=StoreResponse}
// @Router       /stores/{id}/sync/disable [post]
func (h *StoreHandler) DisableSync(c *gin.Context) {
	h.mutate(c, (*store.Store).DisableSync)
}

func (h *StoreHandler) mutate(c *gin.Context, op func(*store.Store)) {
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

	op(st)

	if err := h.storeRepo.Save(c.Request.Context(), st); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toStoreResponse(st))
}
