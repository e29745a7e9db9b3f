package mapping

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// CategoryMapping Entity
// ---------------------------------------------------------------------------

// MappingType distinguishes what kind of canonical entity a mapping binds.
type MappingType string

const (
	MappingTypeCategory  MappingType = "category"
	MappingTypeProduct   MappingType = "product"
	MappingTypeAttribute MappingType = "attribute"
)

// IsValid returns true if the mapping type is valid
func (t MappingType) IsValid() bool {
	return t == MappingTypeCategory || t == MappingTypeProduct || t == MappingTypeAttribute
}

// CategoryMapping is a stored correspondence between a canonical id and a
// remote id, scoped to one store. At most one active mapping may exist per
// (store, type, canonical id); the persistence layer enforces this with a
// partial unique index, which is what makes concurrent auto-creation
// idempotent. Deactivated mappings are kept for audit and never reused.
type CategoryMapping struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	StoreID     uuid.UUID
	Type        MappingType
	CanonicalID uuid.UUID
	RemoteID    int64
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewCategoryMapping creates a new active mapping
func NewCategoryMapping(tenantID, storeID uuid.UUID, mappingType MappingType, canonicalID uuid.UUID, remoteID int64) (*CategoryMapping, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMappingInvalidTenantID
	}
	if storeID == uuid.Nil {
		return nil, ErrMappingInvalidStoreID
	}
	if !mappingType.IsValid() {
		return nil, ErrMappingInvalidType
	}
	if remoteID <= 0 {
		return nil, ErrMappingInvalidRemoteID
	}

	now := time.Now()
	return &CategoryMapping{
		ID:          uuid.New(),
		TenantID:    tenantID,
		StoreID:     storeID,
		Type:        mappingType,
		CanonicalID: canonicalID,
		RemoteID:    remoteID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Deactivate soft-deletes the mapping. The row stays for audit.
func (m *CategoryMapping) Deactivate() {
	m.Active = false
	m.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// CategoryMappingRepository Interface
// ---------------------------------------------------------------------------

// CategoryMappingReader defines the interface for reading mappings
type CategoryMappingReader interface {
	// FindActive finds the active mapping for a canonical id
	FindActive(ctx context.Context, tenantID, storeID uuid.UUID, mappingType MappingType, canonicalID uuid.UUID) (*CategoryMapping, error)

	// FindActiveByRemote finds the active mapping for a remote id
	FindActiveByRemote(ctx context.Context, tenantID, storeID uuid.UUID, mappingType MappingType, remoteID int64) (*CategoryMapping, error)

	// FindActiveForStore finds all active mappings of a type for a store
	FindActiveForStore(ctx context.Context, tenantID, storeID uuid.UUID, mappingType MappingType) ([]CategoryMapping, error)

	// FindActiveByCanonicalIDs finds active mappings for multiple canonical ids in one query
	FindActiveByCanonicalIDs(ctx context.Context, tenantID, storeID uuid.UUID, mappingType MappingType, canonicalIDs []uuid.UUID) ([]CategoryMapping, error)
}

// CategoryMappingWriter defines the interface for persisting mappings
type CategoryMappingWriter interface {
	// Create inserts a new mapping. A violation of the active-mapping
	// uniqueness constraint is surfaced as ErrMappingAlreadyExists so
	// concurrent creators can re-read the winner's row.
	Create(ctx context.Context, m *CategoryMapping) error

	// Save updates an existing mapping
	Save(ctx context.Context, m *CategoryMapping) error

	// DeactivateByCanonicalID deactivates all active mappings referencing a
	// canonical id, across all stores. Used by cleanup when the canonical
	// entity disappears.
	DeactivateByCanonicalID(ctx context.Context, tenantID uuid.UUID, mappingType MappingType, canonicalID uuid.UUID) (int64, error)
}

// CategoryMappingRepository defines the full interface for mapping persistence
type CategoryMappingRepository interface {
	CategoryMappingReader
	CategoryMappingWriter
}
