package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/domain/store"
	syncdomain "github.com/pim/backend/internal/domain/sync"
)

// ProductSyncReconciler verifies a product's local representation against
// the remote store's copy and maintains the persisted sync status for the
// pair. Every run recomputes the status from scratch.
//
// Field policy: a name mismatch (after whitespace normalization) suggests an
// external edit and is a conflict requiring human review; every other
// divergence is a difference the next outbound push will overwrite.
type ProductSyncReconciler struct {
	productRepo   catalog.ProductRepository
	settingsRepo  catalog.ProductStoreSettingsRepository
	storeRepo     store.StoreRepository
	selectionRepo mapping.SelectionRepository
	mappingRepo   mapping.CategoryMappingRepository
	statusRepo    syncdomain.SyncStatusRepository
	gateway       syncdomain.RemoteStoreGateway
	logger        *zap.Logger
}

// NewProductSyncReconciler creates a new ProductSyncReconciler
func NewProductSyncReconciler(
	productRepo catalog.ProductRepository,
	settingsRepo catalog.ProductStoreSettingsRepository,
	storeRepo store.StoreRepository,
	selectionRepo mapping.SelectionRepository,
	mappingRepo mapping.CategoryMappingRepository,
	statusRepo syncdomain.SyncStatusRepository,
	gateway syncdomain.RemoteStoreGateway,
	logger *zap.Logger,
) *ProductSyncReconciler {
	return &ProductSyncReconciler{
		productRepo:   productRepo,
		settingsRepo:  settingsRepo,
		storeRepo:     storeRepo,
		selectionRepo: selectionRepo,
		mappingRepo:   mappingRepo,
		statusRepo:    statusRepo,
		gateway:       gateway,
		logger:        logger,
	}
}

// Verify runs one verification pass for a product-store pair and persists
// the outcome. The status record is created lazily on first verification.
func (r *ProductSyncReconciler) Verify(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*syncdomain.SyncStatusRecord, error) {
	record, err := r.statusRepo.FindByProductAndStore(ctx, tenantID, productID, storeID)
	if err != nil {
		if !errors.Is(err, syncdomain.ErrSyncStatusNotFound) {
			return nil, err
		}
		record = syncdomain.NewSyncStatusRecord(tenantID, productID, storeID)
	}

	st, err := r.storeRepo.FindByIDForTenant(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}

	// Administratively off, at store or pair level: no remote contact at all
	if err := r.syncEnabled(ctx, tenantID, productID, st); err != nil {
		if !errors.Is(err, syncdomain.ErrSyncDisabled) {
			return nil, err
		}
		record.MarkDisabled()
		if err := r.statusRepo.Save(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	product, err := r.productRepo.FindByIDForTenant(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	remote, err := r.gateway.FetchProduct(ctx, st, product.Code)
	if err != nil {
		record.MarkError(err.Error())
		if saveErr := r.statusRepo.Save(ctx, record); saveErr != nil {
			return nil, saveErr
		}
		return record, err
	}

	if remote == nil {
		if product.Published {
			record.MarkMissingRemote()
		} else {
			record.MarkNotPublished()
		}
		if err := r.statusRepo.Save(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	r.ensureProductMapping(ctx, tenantID, product, st, remote)

	conflicts, differences, err := r.compare(ctx, tenantID, product, st, remote)
	if err != nil {
		record.MarkError(err.Error())
		if saveErr := r.statusRepo.Save(ctx, record); saveErr != nil {
			return nil, saveErr
		}
		return record, err
	}

	record.ApplyComparison(conflicts, differences, syncdomain.Fingerprint(remote))
	if err := r.statusRepo.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// syncEnabled reports whether the pair may contact the remote store. The
// store level switches win; otherwise the pair's own settings row decides.
// A missing settings row means sync is enabled.
func (r *ProductSyncReconciler) syncEnabled(ctx context.Context, tenantID, productID uuid.UUID, st *store.Store) error {
	if !st.Enabled || !st.SyncEnabled {
		return fmt.Errorf("store %s: %w", st.Code, syncdomain.ErrSyncDisabled)
	}
	settings, err := r.settingsRepo.Find(ctx, tenantID, productID, st.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if settings.SyncDisabled {
		return fmt.Errorf("product %s on store %s: %w", productID, st.Code, syncdomain.ErrSyncDisabled)
	}
	return nil
}

// ensureProductMapping records the product's remote id correlation the first
// time a remote copy is seen. The remote copy itself is correlated by code,
// so losing the write only means the next verification records it again.
func (r *ProductSyncReconciler) ensureProductMapping(ctx context.Context, tenantID uuid.UUID, product *catalog.Product, st *store.Store, remote *syncdomain.RemoteProduct) {
	_, err := r.mappingRepo.FindActive(ctx, tenantID, st.ID, mapping.MappingTypeProduct, product.ID)
	if err == nil {
		return
	}
	if !errors.Is(err, mapping.ErrMappingNotFound) {
		r.logger.Warn("product mapping lookup failed",
			zap.String("product_id", product.ID.String()),
			zap.String("store", st.Code),
			zap.Error(err))
		return
	}

	m, err := mapping.NewCategoryMapping(tenantID, st.ID, mapping.MappingTypeProduct, product.ID, remote.RemoteID)
	if err != nil {
		r.logger.Warn("remote product carries an unusable id",
			zap.String("product_id", product.ID.String()),
			zap.String("store", st.Code),
			zap.Int64("remote_id", remote.RemoteID),
			zap.Error(err))
		return
	}
	if err := r.mappingRepo.Create(ctx, m); err != nil && !errors.Is(err, mapping.ErrMappingAlreadyExists) {
		r.logger.Warn("product mapping create failed",
			zap.String("product_id", product.ID.String()),
			zap.String("store", st.Code),
			zap.Error(err))
	}
}

func (r *ProductSyncReconciler) compare(ctx context.Context, tenantID uuid.UUID, product *catalog.Product, st *store.Store, remote *syncdomain.RemoteProduct) ([]syncdomain.FieldConflict, []syncdomain.FieldDifference, error) {
	var conflicts []syncdomain.FieldConflict
	var differences []syncdomain.FieldDifference

	if NormalizeWhitespace(product.Name) != NormalizeWhitespace(remote.Name) {
		conflicts = append(conflicts, syncdomain.FieldConflict{
			Field:       "name",
			LocalValue:  product.Name,
			RemoteValue: remote.Name,
			Severity:    syncdomain.SeverityMedium,
			Detail:      "name changed on the remote store, review before overwriting",
		})
	}

	if product.ShortDescription != remote.ShortDescription {
		differences = append(differences, syncdomain.FieldDifference{
			Field:       "short_description",
			LocalValue:  product.ShortDescription,
			RemoteValue: remote.ShortDescription,
		})
	}
	if product.LongDescription != remote.LongDescription {
		differences = append(differences, syncdomain.FieldDifference{
			Field:       "long_description",
			LocalValue:  product.LongDescription,
			RemoteValue: remote.LongDescription,
		})
	}
	if product.Published != remote.Published {
		differences = append(differences, syncdomain.FieldDifference{
			Field:       "published",
			LocalValue:  strconv.FormatBool(product.Published),
			RemoteValue: strconv.FormatBool(remote.Published),
		})
	}
	if !product.Price.Equal(remote.Price) {
		differences = append(differences, syncdomain.FieldDifference{
			Field:       "price",
			LocalValue:  product.Price.String(),
			RemoteValue: remote.Price.String(),
		})
	}

	localCategories, err := r.localRemoteCategoryIDs(ctx, tenantID, product, st)
	if err != nil {
		return nil, nil, err
	}
	remoteCategories := make([]int64, 0, len(remote.CategoryIDs))
	for _, id := range remote.CategoryIDs {
		if !st.IsRootSentinel(id) {
			remoteCategories = append(remoteCategories, id)
		}
	}
	if !equalIDSets(localCategories, remoteCategories) {
		differences = append(differences, syncdomain.FieldDifference{
			Field:       "categories",
			LocalValue:  formatIDSet(localCategories),
			RemoteValue: formatIDSet(remoteCategories),
		})
	}

	localAttributes, err := r.localRemoteAttributeIDs(ctx, tenantID, product, st)
	if err != nil {
		return nil, nil, err
	}
	if !equalIDSets(localAttributes, remote.AttributeIDs) {
		differences = append(differences, syncdomain.FieldDifference{
			Field:       "attributes",
			LocalValue:  formatIDSet(localAttributes),
			RemoteValue: formatIDSet(remote.AttributeIDs),
		})
	}

	if product.ImageSettings != remote.ImageSettings {
		differences = append(differences, syncdomain.FieldDifference{
			Field:       "image_settings",
			LocalValue:  product.ImageSettings,
			RemoteValue: remote.ImageSettings,
		})
	}

	return conflicts, differences, nil
}

// localRemoteCategoryIDs projects the product's category assignment for the
// store as remote ids, preferring the stored per-store selection and falling
// back to the store-agnostic default mapped through current mapping state.
func (r *ProductSyncReconciler) localRemoteCategoryIDs(ctx context.Context, tenantID uuid.UUID, product *catalog.Product, st *store.Store) ([]int64, error) {
	sel, err := r.selectionRepo.Find(ctx, tenantID, product.ID, st.ID)
	if err == nil {
		return sel.RemoteIDs(), nil
	}
	if !errors.Is(err, mapping.ErrSelectionNotFound) {
		return nil, err
	}

	if len(product.DefaultCategories) == 0 {
		return nil, nil
	}
	mappings, err := r.mappingRepo.FindActiveByCanonicalIDs(ctx, tenantID, st.ID, mapping.MappingTypeCategory, product.DefaultCategories)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.RemoteID)
	}
	return ids, nil
}

// localRemoteAttributeIDs projects the product's attribute assignment as
// remote ids through the attribute mappings for the store. Unmapped
// attributes are simply absent: they cannot exist remotely yet.
func (r *ProductSyncReconciler) localRemoteAttributeIDs(ctx context.Context, tenantID uuid.UUID, product *catalog.Product, st *store.Store) ([]int64, error) {
	if len(product.AttributeIDs) == 0 {
		return nil, nil
	}
	mappings, err := r.mappingRepo.FindActiveByCanonicalIDs(ctx, tenantID, st.ID, mapping.MappingTypeAttribute, product.AttributeIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.RemoteID)
	}
	return ids, nil
}

// BatchError records one product-store pair that failed during a batch run
type BatchError struct {
	ProductID uuid.UUID `json:"product_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Message   string    `json:"message"`
}

// BatchResult summarizes one batch verification run
type BatchResult struct {
	Verified  int          `json:"verified"`
	Errors    []BatchError `json:"errors"`
	Exhausted bool         `json:"exhausted"`
}

// VerifyBatch walks the catalog page by page and verifies every
// product-store pair until the wall clock budget runs out. A failure or
// panic on one pair is recorded and the loop continues; the batch never
// fails as a whole because of a single bad pair. Exhausted is true when the
// budget expired before the catalog was fully covered.
func (r *ProductSyncReconciler) VerifyBatch(ctx context.Context, tenantID uuid.UUID, budget time.Duration, pageSize int) (*BatchResult, error) {
	stores, err := r.storeRepo.FindAllEnabled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(budget)
	result := &BatchResult{}

	for page := 1; ; page++ {
		products, err := r.productRepo.FindPage(ctx, tenantID, page, pageSize)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			break
		}

		for i := range products {
			for j := range stores {
				if time.Now().After(deadline) {
					result.Exhausted = true
					r.logger.Warn("batch verification budget exhausted",
						zap.String("tenant_id", tenantID.String()),
						zap.Int("verified", result.Verified))
					return result, nil
				}
				r.verifyPair(ctx, tenantID, &products[i], &stores[j], result)
			}
		}
	}

	return result, nil
}

// verifyPair verifies one pair, converting panics into batch errors so one
// bad record cannot take down the whole run.
func (r *ProductSyncReconciler) verifyPair(ctx context.Context, tenantID uuid.UUID, product *catalog.Product, st *store.Store, result *BatchResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic during product verification",
				zap.String("tenant_id", tenantID.String()),
				zap.String("product_id", product.ID.String()),
				zap.String("store", st.Code),
				zap.Any("panic", rec))
			result.Errors = append(result.Errors, BatchError{
				ProductID: product.ID,
				StoreID:   st.ID,
				Message:   fmt.Sprintf("panic: %v", rec),
			})
		}
	}()

	if _, err := r.Verify(ctx, tenantID, product.ID, st.ID); err != nil {
		r.logger.Error("product verification failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("product_id", product.ID.String()),
			zap.String("store", st.Code),
			zap.Error(err))
		result.Errors = append(result.Errors, BatchError{
			ProductID: product.ID,
			StoreID:   st.ID,
			Message:   err.Error(),
		})
		return
	}
	result.Verified++
}

// NormalizeWhitespace collapses repeated whitespace and trims the ends
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func equalIDSets(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int64{}, a...)
	bs := append([]int64{}, b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func formatIDSet(ids []int64) string {
	sorted := append([]int64{}, ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
