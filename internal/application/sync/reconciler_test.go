package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/domain/store"
	syncdomain "github.com/pim/backend/internal/domain/sync"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*catalog.Product, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindPage(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]catalog.Product, error) {
	args := m.Called(ctx, tenantID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockProductRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockStoreRepository is a mock implementation of store.StoreRepository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStoreRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*store.Store, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStoreRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*store.Store, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStoreRepository) FindAllEnabled(ctx context.Context, tenantID uuid.UUID) ([]store.Store, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Store), args.Error(1)
}

func (m *MockStoreRepository) Save(ctx context.Context, s *store.Store) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStoreRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockSelectionRepository is a mock implementation of mapping.SelectionRepository
type MockSelectionRepository struct {
	mock.Mock
}

func (m *MockSelectionRepository) Find(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*mapping.CategorySelection, error) {
	args := m.Called(ctx, tenantID, productID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapping.CategorySelection), args.Error(1)
}

func (m *MockSelectionRepository) Replace(ctx context.Context, tenantID, productID, storeID uuid.UUID, sel *mapping.CategorySelection) error {
	args := m.Called(ctx, tenantID, productID, storeID, sel)
	return args.Error(0)
}

func (m *MockSelectionRepository) Delete(ctx context.Context, tenantID, productID, storeID uuid.UUID) error {
	args := m.Called(ctx, tenantID, productID, storeID)
	return args.Error(0)
}

// MockMappingRepository is a mock implementation of mapping.CategoryMappingRepository
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) FindActive(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, canonicalID uuid.UUID) (*mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType, canonicalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapping.CategoryMapping), args.Error(1)
}

func (m *MockMappingRepository) FindActiveByRemote(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, remoteID int64) (*mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapping.CategoryMapping), args.Error(1)
}

func (m *MockMappingRepository) FindActiveForStore(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType) ([]mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mapping.CategoryMapping), args.Error(1)
}

func (m *MockMappingRepository) FindActiveByCanonicalIDs(ctx context.Context, tenantID, storeID uuid.UUID, mappingType mapping.MappingType, canonicalIDs []uuid.UUID) ([]mapping.CategoryMapping, error) {
	args := m.Called(ctx, tenantID, storeID, mappingType, canonicalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mapping.CategoryMapping), args.Error(1)
}

func (m *MockMappingRepository) Create(ctx context.Context, cm *mapping.CategoryMapping) error {
	args := m.Called(ctx, cm)
	return args.Error(0)
}

func (m *MockMappingRepository) Save(ctx context.Context, cm *mapping.CategoryMapping) error {
	args := m.Called(ctx, cm)
	return args.Error(0)
}

func (m *MockMappingRepository) DeactivateByCanonicalID(ctx context.Context, tenantID uuid.UUID, mappingType mapping.MappingType, canonicalID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, mappingType, canonicalID)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductStoreSettingsRepository is a mock implementation of catalog.ProductStoreSettingsRepository
type MockProductStoreSettingsRepository struct {
	mock.Mock
}

func (m *MockProductStoreSettingsRepository) Find(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*catalog.ProductStoreSettings, error) {
	args := m.Called(ctx, tenantID, productID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductStoreSettings), args.Error(1)
}

func (m *MockProductStoreSettingsRepository) Save(ctx context.Context, settings *catalog.ProductStoreSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockSyncStatusRepository is a mock implementation of syncdomain.SyncStatusRepository
type MockSyncStatusRepository struct {
	mock.Mock
}

func (m *MockSyncStatusRepository) FindByProductAndStore(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*syncdomain.SyncStatusRecord, error) {
	args := m.Called(ctx, tenantID, productID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncdomain.SyncStatusRecord), args.Error(1)
}

func (m *MockSyncStatusRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status syncdomain.SyncStatus, page, pageSize int) ([]*syncdomain.SyncStatusRecord, int64, error) {
	args := m.Called(ctx, tenantID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*syncdomain.SyncStatusRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncStatusRepository) Save(ctx context.Context, record *syncdomain.SyncStatusRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSyncStatusRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[syncdomain.SyncStatus]int64, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[syncdomain.SyncStatus]int64), args.Error(1)
}

// MockRemoteStoreGateway is a mock implementation of syncdomain.RemoteStoreGateway
type MockRemoteStoreGateway struct {
	mock.Mock
}

func (m *MockRemoteStoreGateway) FetchProduct(ctx context.Context, st *store.Store, productCode string) (*syncdomain.RemoteProduct, error) {
	args := m.Called(ctx, st, productCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncdomain.RemoteProduct), args.Error(1)
}

func (m *MockRemoteStoreGateway) FetchCategoryTree(ctx context.Context, st *store.Store) ([]*syncdomain.RemoteCategoryNode, error) {
	args := m.Called(ctx, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*syncdomain.RemoteCategoryNode), args.Error(1)
}

type reconcilerFixture struct {
	productRepo   *MockProductRepository
	settingsRepo  *MockProductStoreSettingsRepository
	storeRepo     *MockStoreRepository
	selectionRepo *MockSelectionRepository
	mappingRepo   *MockMappingRepository
	statusRepo    *MockSyncStatusRepository
	gateway       *MockRemoteStoreGateway
	reconciler    *ProductSyncReconciler
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		productRepo:   new(MockProductRepository),
		settingsRepo:  new(MockProductStoreSettingsRepository),
		storeRepo:     new(MockStoreRepository),
		selectionRepo: new(MockSelectionRepository),
		mappingRepo:   new(MockMappingRepository),
		statusRepo:    new(MockSyncStatusRepository),
		gateway:       new(MockRemoteStoreGateway),
	}
	f.reconciler = NewProductSyncReconciler(
		f.productRepo, f.settingsRepo, f.storeRepo, f.selectionRepo,
		f.mappingRepo, f.statusRepo, f.gateway, zap.NewNop(),
	)
	return f
}

func testStore(tenantID uuid.UUID) *store.Store {
	st, _ := store.NewStore(tenantID, "main", "Main Store", "https://shop.example.com")
	return st
}

func testProduct(tenantID uuid.UUID) *catalog.Product {
	p, _ := catalog.NewProduct(tenantID, "WIDGET-1", "Blue Widget")
	p.ShortDescription = "A widget"
	p.LongDescription = "A very fine widget"
	p.Price = decimal.NewFromInt(10)
	p.Publish()
	return p
}

func matchingRemote(p *catalog.Product) *syncdomain.RemoteProduct {
	return &syncdomain.RemoteProduct{
		RemoteID:         100,
		Code:             p.Code,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		LongDescription:  p.LongDescription,
		Price:            p.Price,
		Published:        p.Published,
	}
}

func TestProductSyncReconciler_Verify(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("should mark disabled without contacting the remote", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		st.DisableSync()
		product := testProduct(tenantID)

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusDisabled, record.Status)
		f.gateway.AssertNotCalled(t, "FetchProduct", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should mark disabled when sync is off for just this pair", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)

		settings := catalog.NewProductStoreSettings(tenantID, product.ID, st.ID)
		settings.DisableSync()

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, product.ID, st.ID).Return(settings, nil)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify: the store stays enabled, only this product is excluded
		require.NoError(t, err)
		assert.True(t, st.Enabled && st.SyncEnabled)
		assert.Equal(t, syncdomain.SyncStatusDisabled, record.Status)
		f.gateway.AssertNotCalled(t, "FetchProduct", mock.Anything, mock.Anything, mock.Anything)
		f.productRepo.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should record the remote product correlation on first contact", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)
		remote := matchingRemote(product)

		var created *mapping.CategoryMapping

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, product.ID, st.ID).Return(nil, shared.ErrNotFound)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(remote, nil)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, product.ID).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*mapping.CategoryMapping) }).
			Return(nil)
		f.selectionRepo.On("Find", ctx, tenantID, product.ID, st.ID).Return(nil, mapping.ErrSelectionNotFound)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusSynced, record.Status)
		require.NotNil(t, created)
		assert.Equal(t, mapping.MappingTypeProduct, created.Type)
		assert.Equal(t, product.ID, created.CanonicalID)
		assert.Equal(t, remote.RemoteID, created.RemoteID)
	})

	t.Run("should conflict when a published product is missing remotely", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(nil, nil)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusConflict, record.Status)
		require.Len(t, record.Conflicts, 1)
		assert.Equal(t, "existence", record.Conflicts[0].Field)
		assert.Equal(t, syncdomain.SeverityHigh, record.Conflicts[0].Severity)
	})

	t.Run("should stay not_published when an unpublished product is missing remotely", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)
		product.Unpublish()

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(nil, nil)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusNotPublished, record.Status)
		assert.Empty(t, record.Conflicts)
	})

	t.Run("should treat a name mismatch as a conflict", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)
		remote := matchingRemote(product)
		remote.Name = "Red Widget"

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(remote, nil)
		f.selectionRepo.On("Find", ctx, tenantID, product.ID, st.ID).Return(nil, mapping.ErrSelectionNotFound)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusConflict, record.Status)
		require.Len(t, record.Conflicts, 1)
		assert.Equal(t, "name", record.Conflicts[0].Field)
		assert.Equal(t, syncdomain.SeverityMedium, record.Conflicts[0].Severity)
	})

	t.Run("should ignore whitespace-only name differences", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)
		remote := matchingRemote(product)
		remote.Name = "  Blue \t Widget "

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(remote, nil)
		f.selectionRepo.On("Find", ctx, tenantID, product.ID, st.ID).Return(nil, mapping.ErrSelectionNotFound)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusSynced, record.Status)
	})

	t.Run("should mark pending when only push-safe fields differ", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)
		remote := matchingRemote(product)
		remote.ShortDescription = "An older widget"
		remote.Published = false

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(remote, nil)
		f.selectionRepo.On("Find", ctx, tenantID, product.ID, st.ID).Return(nil, mapping.ErrSelectionNotFound)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusPending, record.Status)
		assert.Empty(t, record.Conflicts)
		require.Len(t, record.Differences, 2)
		fields := []string{record.Differences[0].Field, record.Differences[1].Field}
		assert.Contains(t, fields, "short_description")
		assert.Contains(t, fields, "published")
	})

	t.Run("should compare category assignment through the stored selection", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)
		remote := matchingRemote(product)
		remote.CategoryIDs = []int64{1, 42} // sentinel plus one real category

		catID := uuid.New()
		sel := mapping.NewCategorySelection([]uuid.UUID{catID}, &catID, mapping.SourceManual)
		sel.SetMapping(catID, 42)

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(remote, nil)
		f.selectionRepo.On("Find", ctx, tenantID, product.ID, st.ID).Return(sel, nil)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncStatusSynced, record.Status)
		assert.NotEmpty(t, record.Fingerprint)
	})

	t.Run("should record an error and keep the previous comparison", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)

		existing := syncdomain.NewSyncStatusRecord(tenantID, product.ID, st.ID)
		existing.ApplyComparison(nil, []syncdomain.FieldDifference{{Field: "price", LocalValue: "10", RemoteValue: "12"}}, "abc")

		// Setup expectations
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, product.ID, st.ID).Return(existing, nil)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)
		f.gateway.On("FetchProduct", ctx, st, product.Code).Return(nil, errors.New("connection refused"))
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		record, err := f.reconciler.Verify(ctx, tenantID, product.ID, st.ID)

		// Verify
		require.Error(t, err)
		assert.Equal(t, syncdomain.SyncStatusError, record.Status)
		assert.Equal(t, "connection refused", record.LastError)
		require.Len(t, record.Differences, 1)
		assert.Equal(t, "price", record.Differences[0].Field)
	})
}

func TestProductSyncReconciler_VerifyBatch(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("should continue past individual failures", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)

		good1 := testProduct(tenantID)
		bad := testProduct(tenantID)
		bad.Code = "WIDGET-2"
		good2 := testProduct(tenantID)
		good2.Code = "WIDGET-3"

		// Setup expectations
		f.storeRepo.On("FindAllEnabled", ctx, tenantID).Return([]store.Store{*st}, nil)
		f.productRepo.On("FindPage", ctx, tenantID, 1, 50).Return([]catalog.Product{*good1, *bad, *good2}, nil)
		f.productRepo.On("FindPage", ctx, tenantID, 2, 50).Return([]catalog.Product{}, nil)
		f.statusRepo.On("FindByProductAndStore", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, syncdomain.ErrSyncStatusNotFound)
		f.storeRepo.On("FindByIDForTenant", ctx, tenantID, st.ID).Return(st, nil)
		f.settingsRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, shared.ErrNotFound)
		f.mappingRepo.On("FindActive", ctx, tenantID, st.ID, mapping.MappingTypeProduct, mock.AnythingOfType("uuid.UUID")).Return(nil, mapping.ErrMappingNotFound)
		f.mappingRepo.On("Create", ctx, mock.AnythingOfType("*mapping.CategoryMapping")).Return(nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, good1.ID).Return(good1, nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, bad.ID).Return(bad, nil)
		f.productRepo.On("FindByIDForTenant", ctx, tenantID, good2.ID).Return(good2, nil)
		f.gateway.On("FetchProduct", ctx, st, good1.Code).Return(matchingRemote(good1), nil)
		f.gateway.On("FetchProduct", ctx, st, bad.Code).Return(nil, errors.New("timeout"))
		f.gateway.On("FetchProduct", ctx, st, good2.Code).Return(matchingRemote(good2), nil)
		f.selectionRepo.On("Find", ctx, tenantID, mock.AnythingOfType("uuid.UUID"), st.ID).Return(nil, mapping.ErrSelectionNotFound)
		f.statusRepo.On("Save", ctx, mock.AnythingOfType("*sync.SyncStatusRecord")).Return(nil)

		// Execute
		result, err := f.reconciler.VerifyBatch(ctx, tenantID, time.Minute, 50)

		// Verify
		require.NoError(t, err)
		assert.Equal(t, 2, result.Verified)
		assert.False(t, result.Exhausted)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, bad.ID, result.Errors[0].ProductID)
		assert.Equal(t, "timeout", result.Errors[0].Message)
	})

	t.Run("should stop when the budget is exhausted", func(t *testing.T) {
		f := newReconcilerFixture()
		st := testStore(tenantID)
		product := testProduct(tenantID)

		// Setup expectations
		f.storeRepo.On("FindAllEnabled", ctx, tenantID).Return([]store.Store{*st}, nil)
		f.productRepo.On("FindPage", ctx, tenantID, 1, 50).Return([]catalog.Product{*product}, nil)

		// Execute
		result, err := f.reconciler.VerifyBatch(ctx, tenantID, -time.Second, 50)

		// Verify
		require.NoError(t, err)
		assert.True(t, result.Exhausted)
		assert.Equal(t, 0, result.Verified)
		f.gateway.AssertNotCalled(t, "FetchProduct", mock.Anything, mock.Anything, mock.Anything)
	})
}
