package comparison

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/domain/store"
	"github.com/pim/backend/internal/domain/sync"
)

// MockMappingReader is a mock implementation of CategoryMappingReader
type MockMappingReader struct {
	mock.Mock
}

func (m *MockMappingReader) FindActive(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, canonicalID uuid.UUID) (*mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType, canonicalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapping.CategoryMapping), args.Error(1)
}

func (m *MockMappingReader) FindActiveByRemote(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, remoteID int64) (*mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapping.CategoryMapping), args.Error(1)
}

func (m *MockMappingReader) FindActiveForStore(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType) ([]mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType)
	return args.Get(0).([]mapping.CategoryMapping), args.Error(1)
}

func (m *MockMappingReader) FindActiveByCanonicalIDs(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, canonicalIDs []uuid.UUID) ([]mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType, canonicalIDs)
	return args.Get(0).([]mapping.CategoryMapping), args.Error(1)
}

// MockTreeProvider is a mock implementation of RemoteTreeProvider
type MockTreeProvider struct {
	mock.Mock
}

func (m *MockTreeProvider) CategoryTree(ctx context.Context, s *store.Store) ([]*sync.RemoteCategoryNode, error) {
	args := m.Called(ctx, s)
	return args.Get(0).([]*sync.RemoteCategoryNode), args.Error(1)
}

func (m *MockTreeProvider) Invalidate(ctx context.Context, storeID uuid.UUID) {
	m.Called(ctx, storeID)
}

// MockCategoryRepository is a mock implementation of catalog.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*catalog.Category, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, parentID)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindRootCategories(ctx context.Context, tenantID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindDescendants(ctx context.Context, tenantID, categoryID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, categoryID)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockCategoryRepository) HasChildren(ctx context.Context, tenantID, categoryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) HasProducts(ctx context.Context, tenantID, categoryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) CountProductsByCategory(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

func (m *MockCategoryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCategoryRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) UpdatePath(ctx context.Context, tenantID, categoryID uuid.UUID, newPath string, levelDelta int) error {
	args := m.Called(ctx, tenantID, categoryID, newPath, levelDelta)
	return args.Error(0)
}

func testStore(t *testing.T, tenantID uuid.UUID) *store.Store {
	t.Helper()
	st, err := store.NewStore(tenantID, "main", "Main Store", "https://shop.example.com")
	require.NoError(t, err)
	return st
}

func testCategory(t *testing.T, tenantID uuid.UUID, code, name string) *catalog.Category {
	t.Helper()
	c, err := catalog.NewCategory(tenantID, code, name)
	require.NoError(t, err)
	return c
}

func activeMapping(t *testing.T, tenantID, storeID, canonicalID uuid.UUID, remoteID int64) mapping.CategoryMapping {
	t.Helper()
	m, err := mapping.NewCategoryMapping(tenantID, storeID, mapping.MappingTypeCategory, canonicalID, remoteID)
	require.NoError(t, err)
	return *m
}

func TestCategoryComparisonEngineCompare(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	st := testStore(t, tenantID)

	mappedLocal := testCategory(t, tenantID, "ELEC", "Electronics")
	orphanLocal := testCategory(t, tenantID, "BOOKS", "Books")

	// Remote: sentinel root 1 with children 10 (mapped to mappedLocal) and 20 (unmapped)
	remoteTree := []*sync.RemoteCategoryNode{{
		RemoteID: 1,
		Name:     "Root",
		Children: []*sync.RemoteCategoryNode{
			{RemoteID: 10, ParentID: 1, Name: "Electronics"},
			{RemoteID: 20, ParentID: 1, Name: "Toys"},
		},
	}}

	mappingRepo := new(MockMappingReader)
	categoryRepo := new(MockCategoryRepository)
	trees := new(MockTreeProvider)
	engine := NewCategoryComparisonEngine(mappingRepo, categoryRepo, trees, zap.NewNop())

	// Setup expectations
	trees.On("CategoryTree", ctx, st).Return(remoteTree, nil)
	mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
		Return([]mapping.CategoryMapping{activeMapping(t, tenantID, st.ID, mappedLocal.ID, 10)}, nil)
	categoryRepo.On("FindAllForTenant", ctx, tenantID, mock.AnythingOfType("shared.Filter")).
		Return([]catalog.Category{*mappedLocal, *orphanLocal}, nil)
	categoryRepo.On("CountProductsByCategory", ctx, tenantID).
		Return(map[uuid.UUID]int{mappedLocal.ID: 3}, nil)

	// Execute
	result, err := engine.Compare(ctx, tenantID, st)

	// Verify
	require.NoError(t, err)
	require.Len(t, result.Nodes, 3)

	t.Run("sentinel children are lifted to top level", func(t *testing.T) {
		for _, node := range result.Nodes {
			assert.Equal(t, 0, node.Depth)
		}
	})

	t.Run("mapped remote node is both", func(t *testing.T) {
		node := result.Nodes[0]
		assert.Equal(t, NodeStatusBoth, node.Status)
		assert.Equal(t, mappedLocal.ID, *node.CanonicalID)
		assert.Equal(t, int64(10), *node.RemoteID)
		assert.Equal(t, 3, node.ProductCount)
		assert.False(t, node.Deletable)
	})

	t.Run("unmapped remote node is remote_only with zero products", func(t *testing.T) {
		node := result.Nodes[1]
		assert.Equal(t, NodeStatusRemoteOnly, node.Status)
		assert.Nil(t, node.CanonicalID)
		assert.Equal(t, 0, node.ProductCount)
	})

	t.Run("unvisited local category is local_only and deletable", func(t *testing.T) {
		node := result.Nodes[2]
		assert.Equal(t, NodeStatusLocalOnly, node.Status)
		assert.Equal(t, orphanLocal.ID, *node.CanonicalID)
		assert.Nil(t, node.RemoteID)
		assert.True(t, node.Deletable)
		assert.Equal(t, "Books", node.Path)
	})

	t.Run("counts fold over the whole forest", func(t *testing.T) {
		assert.Equal(t, ComparisonCounts{
			Synced:      1,
			ToAdd:       1,
			ToRemove:    1,
			RemoteTotal: 2,
			LocalTotal:  2,
		}, result.Counts)
	})

	t.Run("filter extracts flat status lists", func(t *testing.T) {
		toAdd := FilterByStatus(result.Nodes, NodeStatusRemoteOnly)
		require.Len(t, toAdd, 1)
		assert.Equal(t, "Toys", toAdd[0].Name)
	})
}

func TestCategoryComparisonEngineMatchesByMappingNotName(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	st := testStore(t, tenantID)

	// Local category named identically to the remote node, but unmapped
	local := testCategory(t, tenantID, "ELEC", "Electronics")
	remoteTree := []*sync.RemoteCategoryNode{
		{RemoteID: 10, Name: "Electronics"},
	}

	mappingRepo := new(MockMappingReader)
	categoryRepo := new(MockCategoryRepository)
	trees := new(MockTreeProvider)
	engine := NewCategoryComparisonEngine(mappingRepo, categoryRepo, trees, zap.NewNop())

	trees.On("CategoryTree", ctx, st).Return(remoteTree, nil)
	mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
		Return([]mapping.CategoryMapping{}, nil)
	categoryRepo.On("FindAllForTenant", ctx, tenantID, mock.AnythingOfType("shared.Filter")).
		Return([]catalog.Category{*local}, nil)
	categoryRepo.On("CountProductsByCategory", ctx, tenantID).
		Return(map[uuid.UUID]int{}, nil)

	result, err := engine.Compare(ctx, tenantID, st)
	require.NoError(t, err)

	// Same name, no mapping: one remote_only and one local_only node
	require.Len(t, result.Nodes, 2)
	assert.Equal(t, NodeStatusRemoteOnly, result.Nodes[0].Status)
	assert.Equal(t, NodeStatusLocalOnly, result.Nodes[1].Status)
}

func TestCategoryComparisonEngineNestedLocalOnly(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	st := testStore(t, tenantID)

	// Visited parent with an unvisited child: the child surfaces as
	// local_only at the parent's level.
	parent := testCategory(t, tenantID, "ELEC", "Electronics")
	child, err := catalog.NewChildCategory(tenantID, "PHONES", "Phones", parent)
	require.NoError(t, err)

	remoteTree := []*sync.RemoteCategoryNode{
		{RemoteID: 10, Name: "Electronics"},
	}

	mappingRepo := new(MockMappingReader)
	categoryRepo := new(MockCategoryRepository)
	trees := new(MockTreeProvider)
	engine := NewCategoryComparisonEngine(mappingRepo, categoryRepo, trees, zap.NewNop())

	trees.On("CategoryTree", ctx, st).Return(remoteTree, nil)
	mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
		Return([]mapping.CategoryMapping{activeMapping(t, tenantID, st.ID, parent.ID, 10)}, nil)
	categoryRepo.On("FindAllForTenant", ctx, tenantID, mock.AnythingOfType("shared.Filter")).
		Return([]catalog.Category{*parent, *child}, nil)
	categoryRepo.On("CountProductsByCategory", ctx, tenantID).
		Return(map[uuid.UUID]int{}, nil)

	result, err := engine.Compare(ctx, tenantID, st)
	require.NoError(t, err)

	require.Len(t, result.Nodes, 2)
	assert.Equal(t, NodeStatusBoth, result.Nodes[0].Status)
	assert.Equal(t, NodeStatusLocalOnly, result.Nodes[1].Status)
	assert.Equal(t, child.ID, *result.Nodes[1].CanonicalID)
	assert.Equal(t, ComparisonCounts{Synced: 1, ToRemove: 1, RemoteTotal: 1, LocalTotal: 2}, result.Counts)
}

func TestCategoryComparisonEngineEmptyRemoteTree(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	st := testStore(t, tenantID)

	// Remote store has no categories at all: every local category must
	// surface as local_only, hierarchy included.
	parent := testCategory(t, tenantID, "ELEC", "Electronics")
	child, err := catalog.NewChildCategory(tenantID, "PHONES", "Phones", parent)
	require.NoError(t, err)
	other := testCategory(t, tenantID, "BOOKS", "Books")

	mappingRepo := new(MockMappingReader)
	categoryRepo := new(MockCategoryRepository)
	trees := new(MockTreeProvider)
	engine := NewCategoryComparisonEngine(mappingRepo, categoryRepo, trees, zap.NewNop())

	trees.On("CategoryTree", ctx, st).Return([]*sync.RemoteCategoryNode{}, nil)
	mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
		Return([]mapping.CategoryMapping{}, nil)
	categoryRepo.On("FindAllForTenant", ctx, tenantID, mock.AnythingOfType("shared.Filter")).
		Return([]catalog.Category{*parent, *child, *other}, nil)
	categoryRepo.On("CountProductsByCategory", ctx, tenantID).
		Return(map[uuid.UUID]int{}, nil)

	result, err := engine.Compare(ctx, tenantID, st)
	require.NoError(t, err)

	// Two local roots, the child nested under its parent
	require.Len(t, result.Nodes, 2)
	localOnly := FilterByStatus(result.Nodes, NodeStatusLocalOnly)
	require.Len(t, localOnly, 3)
	for _, node := range localOnly {
		assert.Nil(t, node.RemoteID)
	}
	assert.Empty(t, FilterByStatus(result.Nodes, NodeStatusBoth))
	assert.Empty(t, FilterByStatus(result.Nodes, NodeStatusRemoteOnly))
	assert.Equal(t, ComparisonCounts{ToRemove: 3, LocalTotal: 3}, result.Counts)
}

func TestCategoryComparisonEnginePerfectMirror(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	st := testStore(t, tenantID)

	// Every remote node mapped, every local category visited: the merged
	// forest is all both, with nothing to add or remove.
	parent := testCategory(t, tenantID, "ELEC", "Electronics")
	child, err := catalog.NewChildCategory(tenantID, "PHONES", "Phones", parent)
	require.NoError(t, err)

	remoteTree := []*sync.RemoteCategoryNode{{
		RemoteID: 10,
		Name:     "Electronics",
		Children: []*sync.RemoteCategoryNode{
			{RemoteID: 11, ParentID: 10, Name: "Phones"},
		},
	}}

	mappingRepo := new(MockMappingReader)
	categoryRepo := new(MockCategoryRepository)
	trees := new(MockTreeProvider)
	engine := NewCategoryComparisonEngine(mappingRepo, categoryRepo, trees, zap.NewNop())

	trees.On("CategoryTree", ctx, st).Return(remoteTree, nil)
	mappingRepo.On("FindActiveForStore", ctx, tenantID, st.ID, mapping.MappingTypeCategory).
		Return([]mapping.CategoryMapping{
			activeMapping(t, tenantID, st.ID, parent.ID, 10),
			activeMapping(t, tenantID, st.ID, child.ID, 11),
		}, nil)
	categoryRepo.On("FindAllForTenant", ctx, tenantID, mock.AnythingOfType("shared.Filter")).
		Return([]catalog.Category{*parent, *child}, nil)
	categoryRepo.On("CountProductsByCategory", ctx, tenantID).
		Return(map[uuid.UUID]int{parent.ID: 1, child.ID: 2}, nil)

	result, err := engine.Compare(ctx, tenantID, st)
	require.NoError(t, err)

	// One merged root, the child nested beneath it
	require.Len(t, result.Nodes, 1)
	both := FilterByStatus(result.Nodes, NodeStatusBoth)
	require.Len(t, both, 2)
	for _, node := range both {
		require.NotNil(t, node.CanonicalID)
		require.NotNil(t, node.RemoteID)
	}
	assert.Empty(t, FilterByStatus(result.Nodes, NodeStatusRemoteOnly))
	assert.Empty(t, FilterByStatus(result.Nodes, NodeStatusLocalOnly))
	assert.Equal(t, ComparisonCounts{
		Synced:      2,
		ToAdd:       0,
		ToRemove:    0,
		RemoteTotal: 2,
		LocalTotal:  2,
	}, result.Counts)
}
