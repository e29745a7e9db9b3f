package mapping

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/domain/sync"
)

type hierarchyFixture struct {
	mappingRepo  *MockCategoryMappingRepository
	categoryRepo *MockCategoryRepository
	trees        *MockRemoteTreeProvider
	taskRepo     *MockTaskRepository
	synchronizer *CategoryHierarchySynchronizer
}

func newHierarchyFixture() *hierarchyFixture {
	f := &hierarchyFixture{
		mappingRepo:  new(MockCategoryMappingRepository),
		categoryRepo: new(MockCategoryRepository),
		trees:        new(MockRemoteTreeProvider),
		taskRepo:     new(MockTaskRepository),
	}
	f.synchronizer = NewCategoryHierarchySynchronizer(f.mappingRepo, f.categoryRepo, f.trees, f.taskRepo, zap.NewNop())
	return f
}

func TestHierarchySynchronizerPlanMissing(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	st := testStore(t, tenantID)

	t.Run("filters sentinels and mapped ids", func(t *testing.T) {
		f := newHierarchyFixture()

		// Setup expectations: 10 is already mapped
		f.mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
			Return([]mapping.CategoryMapping{*activeMapping(t, tenantID, st.ID, uuid.New(), 10)}, nil)

		// Execute: 1 and 2 are root sentinels
		missing, err := f.synchronizer.PlanMissing(ctx, tenantID, st, []int64{1, 2, 10, 20, 20, 30})

		// Verify
		require.NoError(t, err)
		assert.Equal(t, []int64{20, 30}, missing)
	})

	t.Run("all sentinels short-circuits without repository access", func(t *testing.T) {
		f := newHierarchyFixture()

		missing, err := f.synchronizer.PlanMissing(ctx, tenantID, st, []int64{1, 2})

		require.NoError(t, err)
		assert.Empty(t, missing)
		f.mappingRepo.AssertNotCalled(t, "FindActiveForStore")
	})
}

func TestHierarchySynchronizerScheduleCreation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	st := testStore(t, tenantID)
	productID := uuid.New()

	t.Run("enqueues creation task chained to product sync", func(t *testing.T) {
		f := newHierarchyFixture()

		// Setup expectations
		f.mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
			Return([]mapping.CategoryMapping{}, nil)

		var saved *shared.Task
		f.taskRepo.On("Save", ctx, mock.AnythingOfType("[]*shared.Task")).
			Run(func(args mock.Arguments) {
				tasks := args.Get(1).([]*shared.Task)
				require.Len(t, tasks, 1)
				saved = tasks[0]
			}).
			Return(nil)

		// Execute
		scheduled, err := f.synchronizer.ScheduleCreation(ctx, tenantID, st, productID, []int64{20, 30})

		// Verify
		require.NoError(t, err)
		assert.True(t, scheduled)
		require.NotNil(t, saved)
		assert.Equal(t, TaskKindCreateCategories, saved.Kind)
		assert.Equal(t, TaskKindApplyProductSync, saved.NextKind)

		var payload CategoryCreationPayload
		require.NoError(t, json.Unmarshal(saved.Payload, &payload))
		assert.Equal(t, st.ID, payload.StoreID)
		assert.Equal(t, productID, payload.ProductID)
		assert.Equal(t, []int64{20, 30}, payload.RemoteIDs)
		assert.NotEqual(t, uuid.Nil, payload.Correlation)
	})

	t.Run("nothing missing means no task", func(t *testing.T) {
		f := newHierarchyFixture()

		// Setup expectations
		f.mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
			Return([]mapping.CategoryMapping{*activeMapping(t, tenantID, st.ID, uuid.New(), 20)}, nil)

		// Execute
		scheduled, err := f.synchronizer.ScheduleCreation(ctx, tenantID, st, productID, []int64{20})

		// Verify
		require.NoError(t, err)
		assert.False(t, scheduled)
		f.taskRepo.AssertNotCalled(t, "Save")
	})
}

func TestHierarchySynchronizerCreateMissing(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	remoteTree := func() []*sync.RemoteCategoryNode {
		// 1 (sentinel root)
		// └── 10 "Electronics"
		//     └── 20 "Phones"
		return []*sync.RemoteCategoryNode{{
			RemoteID: 1,
			Name:     "Root",
			Children: []*sync.RemoteCategoryNode{{
				RemoteID: 10,
				ParentID: 1,
				Name:     "Electronics",
				Children: []*sync.RemoteCategoryNode{{
					RemoteID: 20,
					ParentID: 10,
					Name:     "Phones",
				}},
			}},
		}}
	}

	t.Run("creates parent before child", func(t *testing.T) {
		f := newHierarchyFixture()
		st := testStore(t, tenantID)

		f.mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
			Return([]mapping.CategoryMapping{}, nil)
		f.trees.On("CategoryTree", ctx, st).Return(remoteTree(), nil)
		f.mappingRepo.On("FindActiveByRemote", ctx, tenantID, st.ID, mapping.MappingTypeCategory, mock.AnythingOfType("int64")).
			Return(nil, mapping.ErrMappingNotFound)

		var savedCategories []*catalog.Category
		f.categoryRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).
			Run(func(args mock.Arguments) {
				saved := args.Get(1).(*catalog.Category)
				savedCategories = append(savedCategories, saved)
				// Parents are read back by id when children are created
				f.categoryRepo.On("FindByIDForTenant", ctx, tenantID, saved.ID).Return(saved, nil)
			}).
			Return(nil)

		var createdMappings []*mapping.CategoryMapping
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).
			Run(func(args mock.Arguments) {
				createdMappings = append(createdMappings, args.Get(1).(*mapping.CategoryMapping))
			}).
			Return(nil)
		f.trees.On("Invalidate", ctx, st.ID).Return()

		// Execute: request only the leaf; its parent must be created first
		err := f.synchronizer.CreateMissing(ctx, tenantID, st, []int64{20})

		// Verify
		require.NoError(t, err)
		require.Len(t, savedCategories, 2)
		assert.Equal(t, "Electronics", savedCategories[0].Name)
		assert.Equal(t, "Phones", savedCategories[1].Name)
		assert.Equal(t, "MAIN-R10", savedCategories[0].Code)
		assert.Nil(t, savedCategories[0].ParentID)
		require.NotNil(t, savedCategories[1].ParentID)
		assert.Equal(t, savedCategories[0].ID, *savedCategories[1].ParentID)

		require.Len(t, createdMappings, 2)
		assert.Equal(t, int64(10), createdMappings[0].RemoteID)
		assert.Equal(t, int64(20), createdMappings[1].RemoteID)
		f.trees.AssertCalled(t, "Invalidate", ctx, st.ID)
	})

	t.Run("node missing from remote tree fails alone", func(t *testing.T) {
		f := newHierarchyFixture()
		st := testStore(t, tenantID)

		f.mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
			Return([]mapping.CategoryMapping{}, nil)
		f.trees.On("CategoryTree", ctx, st).Return(remoteTree(), nil)
		f.mappingRepo.On("FindActiveByRemote", ctx, tenantID, st.ID, mapping.MappingTypeCategory, mock.AnythingOfType("int64")).
			Return(nil, mapping.ErrMappingNotFound)
		f.categoryRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).Return(nil)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.trees.On("Invalidate", ctx, st.ID).Return()

		// Execute: 99 is not in the tree, 10 is
		err := f.synchronizer.CreateMissing(ctx, tenantID, st, []int64{99, 10})

		// Verify: the bad node is reported, the sibling still got created
		require.Error(t, err)
		assert.ErrorIs(t, err, mapping.ErrHierarchyIntegrity)
		f.mappingRepo.AssertNumberOfCalls(t, "Create", 1)
		f.trees.AssertCalled(t, "Invalidate", ctx, st.ID)
	})

	t.Run("losing the creation race adopts the winner", func(t *testing.T) {
		f := newHierarchyFixture()
		st := testStore(t, tenantID)
		winnerID := uuid.New()

		f.trees.On("CategoryTree", ctx, st).Return(remoteTree(), nil)
		// First lookup misses; after the duplicate-key failure the winner is read back
		f.mappingRepo.On("FindActiveByRemote", ctx, tenantID, st.ID, mapping.MappingTypeCategory, int64(10)).
			Return(nil, mapping.ErrMappingNotFound).Once()
		f.categoryRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).Return(nil)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).
			Return(mapping.ErrMappingAlreadyExists)
		f.categoryRepo.On("DeleteForTenant", ctx, tenantID, mock.AnythingOfType("uuid.UUID")).Return(nil)
		f.mappingRepo.On("FindActiveByRemote", ctx, tenantID, st.ID, mapping.MappingTypeCategory, int64(10)).
			Return(activeMapping(t, tenantID, st.ID, winnerID, 10), nil)
		f.trees.On("Invalidate", ctx, st.ID).Return()

		// Execute
		canonicalID, err := f.synchronizer.CreateSingle(ctx, tenantID, st, 10)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, winnerID, canonicalID)
		f.categoryRepo.AssertCalled(t, "DeleteForTenant", ctx, tenantID, mock.AnythingOfType("uuid.UUID"))
	})
}
