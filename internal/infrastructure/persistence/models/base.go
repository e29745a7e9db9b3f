package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/shared"
)

// TenantAggregateModel carries the persistence fields every tenant-scoped
// aggregate shares: identity, timestamps, optimistic-lock version and the
// owning tenant. Models embed it and map their own columns on top.
type TenantAggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainTenantAggregateRoot copies shared aggregate fields from the domain.
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.ID = t.ID
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
	m.Version = t.Version
	m.TenantID = t.TenantID
}

// PopulateTenantAggregateRoot copies shared aggregate fields into the domain.
func (m *TenantAggregateModel) PopulateTenantAggregateRoot(t *shared.TenantAggregateRoot) {
	t.ID = m.ID
	t.CreatedAt = m.CreatedAt
	t.UpdatedAt = m.UpdatedAt
	t.Version = m.Version
	t.TenantID = m.TenantID
}
