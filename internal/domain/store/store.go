package store

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/shared"
)

var (
	ErrStoreNotFound    = errors.New("store: store not found")
	ErrStoreInvalidCode = errors.New("store: invalid store code")
	ErrStoreInvalidURL  = errors.New("store: invalid base URL")
	ErrStoreDisabled    = errors.New("store: store is disabled")
)

// defaultRootSentinels are the remote platform's built-in root category ids
// ("Root catalog" and "Home"). They are never mapped or created locally.
var defaultRootSentinels = []int64{1, 2}

// Store represents an independently hosted remote commerce platform the
// canonical catalog is reconciled against. Each store keeps its own copy of
// product data and its own numeric identifiers.
type Store struct {
	shared.TenantAggregateRoot
	Code            string  `gorm:"type:varchar(50);not null;uniqueIndex:idx_store_tenant_code,priority:2"`
	Name            string  `gorm:"type:varchar(100);not null"`
	BaseURL         string  `gorm:"type:varchar(255);not null"`
	APIKey          string  `gorm:"type:varchar(255)"`
	Enabled         bool    `gorm:"not null;default:true"`
	SyncEnabled     bool    `gorm:"not null;default:true"`
	RootSentinelIDs []int64 `gorm:"-"` // persisted via model as jsonb
}

// TableName returns the table name for GORM
func (Store) TableName() string {
	return "stores"
}

// NewStore creates a new store
func NewStore(tenantID uuid.UUID, code, name, baseURL string) (*Store, error) {
	if code == "" || len(code) > 50 {
		return nil, ErrStoreInvalidCode
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, ErrStoreInvalidURL
	}

	sentinels := make([]int64, len(defaultRootSentinels))
	copy(sentinels, defaultRootSentinels)

	return &Store{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		BaseURL:             baseURL,
		Enabled:             true,
		SyncEnabled:         true,
		RootSentinelIDs:     sentinels,
	}, nil
}

// IsRootSentinel reports whether the remote id is one of the platform's
// reserved root categories.
func (s *Store) IsRootSentinel(remoteID int64) bool {
	for _, id := range s.RootSentinelIDs {
		if id == remoteID {
			return true
		}
	}
	return false
}

// Enable enables the store
func (s *Store) Enable() {
	s.Enabled = true
	s.Touch()
	s.IncrementVersion()
}

// Disable disables the store
func (s *Store) Disable() {
	s.Enabled = false
	s.Touch()
	s.IncrementVersion()
}

// EnableSync enables automatic synchronization for the store
func (s *Store) EnableSync() {
	s.SyncEnabled = true
	s.Touch()
	s.IncrementVersion()
}

// DisableSync disables automatic synchronization for the store
func (s *Store) DisableSync() {
	s.SyncEnabled = false
	s.Touch()
	s.IncrementVersion()
}

// StoreRepository defines the interface for store persistence
type StoreRepository interface {
	// FindByID finds a store by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)

	// FindByIDForTenant finds a store by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Store, error)

	// FindByCode finds a store by its code within a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Store, error)

	// FindAllEnabled finds all enabled stores for a tenant
	FindAllEnabled(ctx context.Context, tenantID uuid.UUID) ([]Store, error)

	// Save creates or updates a store
	Save(ctx context.Context, s *Store) error

	// DeleteForTenant deletes a store within a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
