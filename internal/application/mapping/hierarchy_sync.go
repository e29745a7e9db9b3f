package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/domain/store"
	"github.com/pim/backend/internal/domain/sync"
)

// Task kinds handled by the background task processor
const (
	TaskKindCreateCategories = "category.create_missing"
	TaskKindApplyProductSync = "product.apply_sync"
)

// CategoryCreationPayload is the payload carried by a category creation task
// and handed unchanged to the chained apply task.
type CategoryCreationPayload struct {
	StoreID     uuid.UUID `json:"store_id"`
	ProductID   uuid.UUID `json:"product_id"`
	RemoteIDs   []int64   `json:"remote_ids"`
	Correlation uuid.UUID `json:"correlation"`
}

// CategoryHierarchySynchronizer materializes local categories for remote ids
// the catalog does not know yet, preserving the remote parent-child
// structure. Bulk creation runs as an asynchronous task chained to a
// follow-up product sync, so callers never block on the remote store.
type CategoryHierarchySynchronizer struct {
	mappingRepo  mapping.CategoryMappingRepository
	categoryRepo catalog.CategoryRepository
	trees        sync.RemoteTreeProvider
	taskRepo     shared.TaskRepository
	logger       *zap.Logger
}

// NewCategoryHierarchySynchronizer creates a new CategoryHierarchySynchronizer
func NewCategoryHierarchySynchronizer(
	mappingRepo mapping.CategoryMappingRepository,
	categoryRepo catalog.CategoryRepository,
	trees sync.RemoteTreeProvider,
	taskRepo shared.TaskRepository,
	logger *zap.Logger,
) *CategoryHierarchySynchronizer {
	return &CategoryHierarchySynchronizer{
		mappingRepo:  mappingRepo,
		categoryRepo: categoryRepo,
		trees:        trees,
		taskRepo:     taskRepo,
		logger:       logger,
	}
}

// PlanMissing returns the requested remote ids that have no active mapping
// for the store. Root sentinels are never reported missing. Recomputing the
// plan is safe at any time, which is what makes the creation task
// restartable.
func (s *CategoryHierarchySynchronizer) PlanMissing(ctx context.Context, tenantID uuid.UUID, st *store.Store, remoteIDs []int64) ([]int64, error) {
	requested := lo.Filter(lo.Uniq(remoteIDs), func(id int64, _ int) bool {
		return !st.IsRootSentinel(id)
	})
	if len(requested) == 0 {
		return nil, nil
	}

	active, err := s.mappingRepo.FindActiveForStore(ctx, tenantID, st.ID, mapping.MappingTypeCategory)
	if err != nil {
		return nil, err
	}
	mapped := make(map[int64]struct{}, len(active))
	for _, m := range active {
		mapped[m.RemoteID] = struct{}{}
	}

	return lo.Filter(requested, func(id int64, _ int) bool {
		_, ok := mapped[id]
		return !ok
	}), nil
}

// ScheduleCreation enqueues an asynchronous creation task for the remote ids
// that lack a mapping, chained to a follow-up product sync task that runs
// only after creation completes. Returns false when nothing is missing and
// no task was enqueued.
func (s *CategoryHierarchySynchronizer) ScheduleCreation(ctx context.Context, tenantID uuid.UUID, st *store.Store, productID uuid.UUID, remoteIDs []int64) (bool, error) {
	missing, err := s.PlanMissing(ctx, tenantID, st, remoteIDs)
	if err != nil {
		return false, err
	}
	if len(missing) == 0 {
		return false, nil
	}

	payload, err := json.Marshal(CategoryCreationPayload{
		StoreID:     st.ID,
		ProductID:   productID,
		RemoteIDs:   missing,
		Correlation: uuid.New(),
	})
	if err != nil {
		return false, err
	}

	task := shared.NewTask(tenantID, TaskKindCreateCategories, payload).Then(TaskKindApplyProductSync)
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return false, err
	}

	s.logger.Info("scheduled category creation",
		zap.String("tenant_id", tenantID.String()),
		zap.String("store", st.Code),
		zap.Int64s("remote_ids", missing),
		zap.String("task_id", task.ID.String()))

	return true, nil
}

// CreateMissing creates local categories and mappings for every remote id in
// the set that still lacks one. One node failing (for example a remote
// parent that cannot be resolved) does not stop creation of its siblings;
// all failures are returned together after the pass.
func (s *CategoryHierarchySynchronizer) CreateMissing(ctx context.Context, tenantID uuid.UUID, st *store.Store, remoteIDs []int64) error {
	missing, err := s.PlanMissing(ctx, tenantID, st, remoteIDs)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	index, err := s.remoteIndex(ctx, st)
	if err != nil {
		return err
	}

	var failures []error
	created := false
	for _, remoteID := range missing {
		if _, err := s.createWithAncestors(ctx, tenantID, st, index, remoteID, 0); err != nil {
			s.logger.Error("category creation failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("store", st.Code),
				zap.Int64("remote_id", remoteID),
				zap.Error(err))
			failures = append(failures, fmt.Errorf("remote id %d: %w", remoteID, err))
			continue
		}
		created = true
	}

	if created {
		s.trees.Invalidate(ctx, st.ID)
	}

	return errors.Join(failures...)
}

// CreateSingle resolves or creates the canonical category for one remote id
func (s *CategoryHierarchySynchronizer) CreateSingle(ctx context.Context, tenantID uuid.UUID, st *store.Store, remoteID int64) (uuid.UUID, error) {
	index, err := s.remoteIndex(ctx, st)
	if err != nil {
		return uuid.Nil, err
	}

	canonicalID, err := s.createWithAncestors(ctx, tenantID, st, index, remoteID, 0)
	if err != nil {
		return uuid.Nil, err
	}

	s.trees.Invalidate(ctx, st.ID)
	return canonicalID, nil
}

// remoteIndex flattens the remote tree into a remote id lookup table
func (s *CategoryHierarchySynchronizer) remoteIndex(ctx context.Context, st *store.Store) (map[int64]*sync.RemoteCategoryNode, error) {
	roots, err := s.trees.CategoryTree(ctx, st)
	if err != nil {
		return nil, err
	}

	index := make(map[int64]*sync.RemoteCategoryNode)
	for _, root := range roots {
		root.Walk(func(node *sync.RemoteCategoryNode) bool {
			index[node.RemoteID] = node
			return true
		})
	}
	return index, nil
}

// createWithAncestors creates the category for a remote id, resolving its
// remote parent chain first. Recursion ends at a root sentinel or an
// already-mapped ancestor. Idempotent: losing the mapping-uniqueness race
// means another worker created the node, and the winner's canonical id is
// re-read and returned.
func (s *CategoryHierarchySynchronizer) createWithAncestors(ctx context.Context, tenantID uuid.UUID, st *store.Store, index map[int64]*sync.RemoteCategoryNode, remoteID int64, depth int) (uuid.UUID, error) {
	if depth > catalog.MaxCategoryDepth {
		return uuid.Nil, fmt.Errorf("%w: parent chain for remote id %d exceeds maximum depth", mapping.ErrHierarchyIntegrity, remoteID)
	}

	if existing, err := s.mappingRepo.FindActiveByRemote(ctx, tenantID, st.ID, mapping.MappingTypeCategory, remoteID); err == nil {
		return existing.CanonicalID, nil
	} else if !errors.Is(err, mapping.ErrMappingNotFound) {
		return uuid.Nil, err
	}

	node, ok := index[remoteID]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: remote id %d not present in the store's category tree", mapping.ErrHierarchyIntegrity, remoteID)
	}

	var parent *catalog.Category
	if node.ParentID != 0 && !st.IsRootSentinel(node.ParentID) {
		parentID, err := s.createWithAncestors(ctx, tenantID, st, index, node.ParentID, depth+1)
		if err != nil {
			return uuid.Nil, err
		}
		parent, err = s.categoryRepo.FindByIDForTenant(ctx, tenantID, parentID)
		if err != nil {
			return uuid.Nil, err
		}
	}

	category, err := s.newLocalCategory(tenantID, st, node, parent)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return uuid.Nil, err
	}

	m, err := mapping.NewCategoryMapping(tenantID, st.ID, mapping.MappingTypeCategory, category.ID, remoteID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.mappingRepo.Create(ctx, m); err != nil {
		if errors.Is(err, mapping.ErrMappingAlreadyExists) {
			// Lost the race; discard our category and adopt the winner's
			if delErr := s.categoryRepo.DeleteForTenant(ctx, tenantID, category.ID); delErr != nil {
				s.logger.Warn("could not remove category from lost creation race",
					zap.String("category_id", category.ID.String()),
					zap.Error(delErr))
			}
			winner, findErr := s.mappingRepo.FindActiveByRemote(ctx, tenantID, st.ID, mapping.MappingTypeCategory, remoteID)
			if findErr != nil {
				return uuid.Nil, findErr
			}
			return winner.CanonicalID, nil
		}
		return uuid.Nil, err
	}

	s.logger.Info("created local category for remote id",
		zap.String("tenant_id", tenantID.String()),
		zap.String("store", st.Code),
		zap.Int64("remote_id", remoteID),
		zap.String("category_id", category.ID.String()))

	return category.ID, nil
}

func (s *CategoryHierarchySynchronizer) newLocalCategory(tenantID uuid.UUID, st *store.Store, node *sync.RemoteCategoryNode, parent *catalog.Category) (*catalog.Category, error) {
	// Deterministic code so re-runs collide on the same row
	code := fmt.Sprintf("%s-R%d", strings.ToUpper(st.Code), node.RemoteID)

	var category *catalog.Category
	var err error
	if parent != nil {
		category, err = catalog.NewChildCategory(tenantID, code, node.Name, parent)
	} else {
		category, err = catalog.NewCategory(tenantID, code, node.Name)
	}
	if err != nil {
		return nil, err
	}

	category.SetSortOrder(node.SortOrder)
	return category, nil
}
