package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pim/backend/internal/domain/sync"
)

// SyncStatusModel is the persistence model for product-store verification
// status. Conflicts and differences are stored as jsonb so the review UI
// can show field-level detail without a join.
type SyncStatusModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sync_status_pair,priority:1;index:idx_sync_status_tenant_status,priority:1"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sync_status_pair,priority:2"`
	StoreID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sync_status_pair,priority:3"`
	Status        sync.SyncStatus `gorm:"type:varchar(20);not null;default:'not_published';index:idx_sync_status_tenant_status,priority:2"`
	Conflicts     []byte          `gorm:"type:jsonb;default:'[]'"`
	Differences   []byte          `gorm:"type:jsonb;default:'[]'"`
	Fingerprint   string          `gorm:"type:varchar(64)"`
	LastError     string          `gorm:"type:text"`
	LastCheckedAt time.Time
	CreatedAt     time.Time `gorm:"not null;default:now()"`
	UpdatedAt     time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (SyncStatusModel) TableName() string {
	return "sync_statuses"
}

// ToDomain converts the persistence model to a domain SyncStatusRecord
func (m *SyncStatusModel) ToDomain() (*sync.SyncStatusRecord, error) {
	var conflicts []sync.FieldConflict
	if len(m.Conflicts) > 0 {
		if err := json.Unmarshal(m.Conflicts, &conflicts); err != nil {
			return nil, err
		}
	}
	var differences []sync.FieldDifference
	if len(m.Differences) > 0 {
		if err := json.Unmarshal(m.Differences, &differences); err != nil {
			return nil, err
		}
	}

	return &sync.SyncStatusRecord{
		ID:            m.ID,
		TenantID:      m.TenantID,
		ProductID:     m.ProductID,
		StoreID:       m.StoreID,
		Status:        m.Status,
		Conflicts:     conflicts,
		Differences:   differences,
		Fingerprint:   m.Fingerprint,
		LastError:     m.LastError,
		LastCheckedAt: m.LastCheckedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

// FromDomain populates the persistence model from a domain SyncStatusRecord
func (m *SyncStatusModel) FromDomain(r *sync.SyncStatusRecord) error {
	conflicts := r.Conflicts
	if conflicts == nil {
		conflicts = []sync.FieldConflict{}
	}
	conflictData, err := json.Marshal(conflicts)
	if err != nil {
		return err
	}
	differences := r.Differences
	if differences == nil {
		differences = []sync.FieldDifference{}
	}
	differenceData, err := json.Marshal(differences)
	if err != nil {
		return err
	}

	m.ID = r.ID
	m.TenantID = r.TenantID
	m.ProductID = r.ProductID
	m.StoreID = r.StoreID
	m.Status = r.Status
	m.Conflicts = conflictData
	m.Differences = differenceData
	m.Fingerprint = r.Fingerprint
	m.LastError = r.LastError
	m.LastCheckedAt = r.LastCheckedAt
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	return nil
}

// SyncStatusModelFromDomain creates a new persistence model from a domain SyncStatusRecord
func SyncStatusModelFromDomain(r *sync.SyncStatusRecord) (*SyncStatusModel, error) {
	m := &SyncStatusModel{}
	if err := m.FromDomain(r); err != nil {
		return nil, err
	}
	return m, nil
}
