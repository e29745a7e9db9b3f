package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pim/backend/internal/domain/shared"
)

// TaskModel is the persistence model for background tasks. Tasks drive the
// deferred work the write path cannot do inline, such as creating missing
// local categories before a product sync is applied.
type TaskModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_task_tenant_status,priority:1"`
	Kind        string            `gorm:"type:varchar(100);not null"`
	NextKind    string            `gorm:"type:varchar(100)"`
	Payload     []byte            `gorm:"type:jsonb;not null"`
	Status      shared.TaskStatus `gorm:"type:varchar(20);default:PENDING;index:idx_task_tenant_status,priority:2;index:idx_task_status_created,priority:1"`
	RetryCount  int               `gorm:"default:0"`
	MaxRetries  int               `gorm:"default:5"`
	LastError   string            `gorm:"type:text"`
	NextRetryAt *time.Time        `gorm:"index:idx_task_next_retry"`
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;default:now();index:idx_task_status_created,priority:2"`
	UpdatedAt   time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (TaskModel) TableName() string {
	return "tasks"
}

// ToDomain converts the persistence model to a domain Task
func (m *TaskModel) ToDomain() *shared.Task {
	return &shared.Task{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Kind:        m.Kind,
		NextKind:    m.NextKind,
		Payload:     m.Payload,
		Status:      m.Status,
		RetryCount:  m.RetryCount,
		MaxRetries:  m.MaxRetries,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ProcessedAt: m.ProcessedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Task
func (m *TaskModel) FromDomain(t *shared.Task) {
	m.ID = t.ID
	m.TenantID = t.TenantID
	m.Kind = t.Kind
	m.NextKind = t.NextKind
	m.Payload = t.Payload
	m.Status = t.Status
	m.RetryCount = t.RetryCount
	m.MaxRetries = t.MaxRetries
	m.LastError = t.LastError
	m.NextRetryAt = t.NextRetryAt
	m.ProcessedAt = t.ProcessedAt
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// TaskModelFromDomain creates a new persistence model from a domain Task
func TaskModelFromDomain(t *shared.Task) *TaskModel {
	m := &TaskModel{}
	m.FromDomain(t)
	return m
}
