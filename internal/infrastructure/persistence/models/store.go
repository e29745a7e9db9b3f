package models

import (
	"encoding/json"

	"github.com/pim/backend/internal/domain/store"
)

// StoreModel is the persistence model for the Store domain entity.
// Root sentinel ids are stored as a jsonb array so a store whose remote
// platform uses non-default reserved roots can be configured per row.
type StoreModel struct {
	TenantAggregateModel
	Code            string `gorm:"type:varchar(50);not null;uniqueIndex:idx_store_tenant_code,priority:2"`
	Name            string `gorm:"type:varchar(100);not null"`
	BaseURL         string `gorm:"type:varchar(255);not null"`
	APIKey          string `gorm:"type:varchar(255)"`
	Enabled         bool   `gorm:"not null;default:true"`
	SyncEnabled     bool   `gorm:"not null;default:true"`
	RootSentinelIDs []byte `gorm:"type:jsonb;default:'[1,2]'"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store entity.
func (m *StoreModel) ToDomain() (*store.Store, error) {
	var sentinels []int64
	if len(m.RootSentinelIDs) > 0 {
		if err := json.Unmarshal(m.RootSentinelIDs, &sentinels); err != nil {
			return nil, err
		}
	}

	st := &store.Store{
		Code:            m.Code,
		Name:            m.Name,
		BaseURL:         m.BaseURL,
		APIKey:          m.APIKey,
		Enabled:         m.Enabled,
		SyncEnabled:     m.SyncEnabled,
		RootSentinelIDs: sentinels,
	}
	m.PopulateTenantAggregateRoot(&st.TenantAggregateRoot)
	return st, nil
}

// FromDomain populates the persistence model from a domain Store entity.
func (m *StoreModel) FromDomain(st *store.Store) error {
	m.FromDomainTenantAggregateRoot(st.TenantAggregateRoot)
	m.Code = st.Code
	m.Name = st.Name
	m.BaseURL = st.BaseURL
	m.APIKey = st.APIKey
	m.Enabled = st.Enabled
	m.SyncEnabled = st.SyncEnabled

	sentinels := st.RootSentinelIDs
	if sentinels == nil {
		sentinels = []int64{}
	}
	data, err := json.Marshal(sentinels)
	if err != nil {
		return err
	}
	m.RootSentinelIDs = data
	return nil
}

// StoreModelFromDomain creates a new persistence model from a domain Store entity.
func StoreModelFromDomain(st *store.Store) (*StoreModel, error) {
	m := &StoreModel{}
	if err := m.FromDomain(st); err != nil {
		return nil, err
	}
	return m, nil
}
