package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/pim/backend/internal/application/sync"
	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/shared"
	syncdomain "github.com/pim/backend/internal/domain/sync"
)

// SyncHandler exposes per-pair verification, stored sync statuses and the
// pair-level sync switch.
type SyncHandler struct {
	BaseHandler
	reconciler   *syncapp.ProductSyncReconciler
	statusRepo   syncdomain.SyncStatusRepository
	settingsRepo catalog.ProductStoreSettingsRepository
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(
	reconciler *syncapp.ProductSyncReconciler,
	statusRepo syncdomain.SyncStatusRepository,
	settingsRepo catalog.ProductStoreSettingsRepository,
) *SyncHandler {
	return &SyncHandler{
		reconciler:   reconciler,
		statusRepo:   statusRepo,
		settingsRepo: settingsRepo,
	}
}

// PairSyncSettingsRequest toggles synchronization for one product-store pair
type PairSyncSettingsRequest struct {
	SyncDisabled *bool `json:"sync_disabled" binding:"required"`
}

// PairSyncSettingsResponse represents the pair-level sync switch
type PairSyncSettingsResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	StoreID      uuid.UUID `json:"store_id"`
	SyncDisabled bool      `json:"sync_disabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SyncStatusResponse represents a stored verification outcome
type SyncStatusResponse struct {
	ProductID     uuid.UUID                    `json:"product_id"`
	StoreID       uuid.UUID                    `json:"store_id"`
	Status        string                       `json:"status"`
	Conflicts     []syncdomain.FieldConflict   `json:"conflicts,omitempty"`
	Differences   []syncdomain.FieldDifference `json:"differences,omitempty"`
	LastError     string                       `json:"last_error,omitempty"`
	LastCheckedAt time.Time                    `json:"last_checked_at"`
}

func toSyncStatusResponse(record *syncdomain.SyncStatusRecord) SyncStatusResponse {
	return SyncStatusResponse{
		ProductID:     record.ProductID,
		StoreID:       record.StoreID,
		Status:        string(record.Status),
		Conflicts:     record.Conflicts,
		Differences:   record.Differences,
		LastError:     record.LastError,
		LastCheckedAt: record.LastCheckedAt,
	}
}

// Verify godoc
// @Summary      Verify one product-store pair now
// @Description  Fetches the remote product, compares it with the local
// @Description  representation and stores the resulting status.
// @Tags         sync
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=SyncStatusResponse}
// @Router       /catalog/products/{id}/stores/{store_id}/sync/verify [post]
func (h *SyncHandler) Verify(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	record, err := h.reconciler.Verify(c.Request.Context(), tenantID, productID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSyncStatusResponse(record))
}

// GetStatus godoc
// @Summary      Get the stored sync status for a product-store pair
// @Tags         sync
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Success      200 {object} dto.Response{data=SyncStatusResponse}
// @Router       /catalog/products/{id}/stores/{store_id}/sync [get]
func (h *SyncHandler) GetStatus(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	record, err := h.statusRepo.FindByProductAndStore(c.Request.Context(), tenantID, productID, storeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSyncStatusResponse(record))
}

// UpdatePairSettings godoc
// @Summary      Toggle synchronization for one product-store pair
// @Description  A disabled pair is skipped by verification even when its
// @Description  store keeps syncing other products.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        store_id path string true "Store ID" format(uuid)
// @Param        request body PairSyncSettingsRequest true "Pair sync settings"
// @Success      200 {object} dto.Response{data=PairSyncSettingsResponse}
// @Router       /catalog/products/{id}/stores/{store_id}/sync [put]
func (h *SyncHandler) UpdatePairSettings(c *gin.Context) {
	tenantID, productID, storeID, ok := h.pairIDs(c)
	if !ok {
		return
	}

	var req PairSyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	settings, err := h.settingsRepo.Find(c.Request.Context(), tenantID, productID, storeID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.HandleDomainError(c, err)
			return
		}
		settings = catalog.NewProductStoreSettings(tenantID, productID, storeID)
	}

	if *req.SyncDisabled {
		settings.DisableSync()
	} else {
		settings.EnableSync()
	}

	if err := h.settingsRepo.Save(c.Request.Context(), settings); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, PairSyncSettingsResponse{
		ProductID:    settings.ProductID,
		StoreID:      settings.StoreID,
		SyncDisabled: settings.SyncDisabled,
		UpdatedAt:    settings.UpdatedAt,
	})
}

// ListByStatus godoc
// @Summary      List sync statuses in a given state
// @Tags         sync
// @Produce      json
// @Param        status query string true "Sync status" Enums(not_published, pending, synced, conflict, error, disabled)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]SyncStatusResponse,meta=dto.Meta}
// @Router       /sync/statuses [get]
func (h *SyncHandler) ListByStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query struct {
		Status   string `form:"status" binding:"required,oneof=not_published pending synced conflict error disabled"`
		Page     int    `form:"page" binding:"omitempty,min=1"`
		PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = 20
	}

	records, total, err := h.statusRepo.FindByStatus(c.Request.Context(), tenantID, syncdomain.SyncStatus(query.Status), query.Page, query.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]SyncStatusResponse, len(records))
	for i, record := range records {
		responses[i] = toSyncStatusResponse(record)
	}
	h.SuccessWithMeta(c, responses, total, query.Page, query.PageSize)
}

// StatusCounts godoc
// @Summary      Per-status sync record counts for the tenant
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /sync/statuses/counts [get]
func (h *SyncHandler) StatusCounts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	counts, err := h.statusRepo.CountByStatus(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, counts)
}

func (h *SyncHandler) pairIDs(c *gin.Context) (tenantID, productID, storeID uuid.UUID, ok bool) {
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
