package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogapp "github.com/pim/backend/internal/application/catalog"
	"github.com/pim/backend/internal/domain/catalog"
	"github.com/pim/backend/internal/domain/mapping"
	"github.com/pim/backend/internal/domain/shared"
	"github.com/pim/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockCategoryRepository is a mock implementation of catalog.CategoryRepository
type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*catalog.Category, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, parentID)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) FindRootCategories(ctx context.Context, tenantID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) FindDescendants(ctx context.Context, tenantID, categoryID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, tenantID, categoryID)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *mockCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *mockCategoryRepository) HasChildren(ctx context.Context, tenantID, categoryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCategoryRepository) HasProducts(ctx context.Context, tenantID, categoryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCategoryRepository) CountProductsByCategory(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

func (m *mockCategoryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCategoryRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockCategoryRepository) UpdatePath(ctx context.Context, tenantID, categoryID uuid.UUID, newPath string, levelDelta int) error {
	args := m.Called(ctx, tenantID, categoryID, newPath, levelDelta)
	return args.Error(0)
}

// mockMappingWriter is a mock implementation of mapping.CategoryMappingWriter
type mockMappingWriter struct {
	mock.Mock
}

func (m *mockMappingWriter) Create(ctx context.Context, cm *mapping.CategoryMapping) error {
	args := m.Called(ctx, cm)
	return args.Error(0)
}

func (m *mockMappingWriter) Save(ctx context.Context, cm *mapping.CategoryMapping) error {
	args := m.Called(ctx, cm)
	return args.Error(0)
}

func (m *mockMappingWriter) DeactivateByCanonicalID(ctx context.Context, tenantID uuid.UUID, mappingType mapping.MappingType, canonicalID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, mappingType, canonicalID)
	return args.Get(0).(int64), args.Error(1)
}

type categoryHandlerFixture struct {
	categoryRepo *mockCategoryRepository
	mappingRepo  *mockMappingWriter
	engine       *gin.Engine
}

func newCategoryHandlerFixture() *categoryHandlerFixture {
	f := &categoryHandlerFixture{
		categoryRepo: new(mockCategoryRepository),
		mappingRepo:  new(mockMappingWriter),
	}

	service := catalogapp.NewCategoryService(f.categoryRepo, f.mappingRepo)
	h := NewCategoryHandler(service)

	f.engine = gin.New()
	api := f.engine.Group("/api/v1/catalog")
	api.POST("/categories", h.Create)
	api.GET("/categories/:id", h.GetByID)
	api.DELETE("/categories/:id", h.Delete)

	return f
}

func TestCategoryHandlerCreate(t *testing.T) {
	f := newCategoryHandlerFixture()
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	f.categoryRepo.On("ExistsByCode", mock.Anything, tenantID, "ELEC").Return(false, nil)
	f.categoryRepo.On("Save", mock.Anything, mock.AnythingOfType("*catalog.Category")).Return(nil)

	body, _ := json.Marshal(map[string]any{"code": "ELEC", "name": "Electronics"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/categories", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "ELEC", data["code"])
	assert.Equal(t, "Electronics", data["name"])
}

func TestCategoryHandlerCreateDuplicateCode(t *testing.T) {
	f := newCategoryHandlerFixture()
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	f.categoryRepo.On("ExistsByCode", mock.Anything, tenantID, "ELEC").Return(true, nil)

	body, _ := json.Marshal(map[string]any{"code": "ELEC", "name": "Electronics"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/categories", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
}

func TestCategoryHandlerGetByIDNotFound(t *testing.T) {
	f := newCategoryHandlerFixture()
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	categoryID := uuid.New()

	f.categoryRepo.On("FindByIDForTenant", mock.Anything, tenantID, categoryID).Return(nil, shared.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories/"+categoryID.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestCategoryHandlerGetByIDInvalidUUID(t *testing.T) {
	f := newCategoryHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories/not-a-uuid", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoryHandlerDeleteBlockedByChildren(t *testing.T) {
	f := newCategoryHandlerFixture()
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	category, err := catalog.NewCategory(tenantID, "ELEC", "Electronics")
	require.NoError(t, err)

	f.categoryRepo.On("FindByIDForTenant", mock.Anything, tenantID, category.ID).Return(category, nil)
	f.categoryRepo.On("HasChildren", mock.Anything, tenantID, category.ID).Return(true, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/categories/"+category.ID.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeHasChildren, resp.Error.Code)
}

func TestCategoryHandlerDelete(t *testing.T) {
	f := newCategoryHandlerFixture()
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	category, err := catalog.NewCategory(tenantID, "ELEC", "Electronics")
	require.NoError(t, err)

	f.categoryRepo.On("FindByIDForTenant", mock.Anything, tenantID, category.ID).Return(category, nil)
	f.categoryRepo.On("HasChildren", mock.Anything, tenantID, category.ID).Return(false, nil)
	f.categoryRepo.On("HasProducts", mock.Anything, tenantID, category.ID).Return(false, nil)
	f.categoryRepo.On("DeleteForTenant", mock.Anything, tenantID, category.ID).Return(nil)
	f.mappingRepo.On("DeactivateByCanonicalID", mock.Anything, tenantID, mapping.MappingTypeCategory, category.ID).Return(int64(1), nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/categories/"+category.ID.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	f.mappingRepo.AssertExpectations(t)
}

func TestCategoryHandlerTenantHeader(t *testing.T) {
	f := newCategoryHandlerFixture()
	otherTenant := uuid.New()
	categoryID := uuid.New()

	f.categoryRepo.On("FindByIDForTenant", mock.Anything, otherTenant, categoryID).Return(nil, shared.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories/"+categoryID.String(), nil)
	req.Header.Set("X-Tenant-ID", otherTenant.String())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	f.categoryRepo.AssertExpectations(t)
}
