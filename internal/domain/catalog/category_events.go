package catalog

import (
	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/shared"
)

const AggregateTypeCategory = "Category"

const (
	EventTypeCategoryCreated       = "CategoryCreated"
	EventTypeCategoryUpdated       = "CategoryUpdated"
	EventTypeCategoryStatusChanged = "CategoryStatusChanged"
)

func categoryEventBase(eventType string, category *Category) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeCategory, category.ID, category.TenantID)
}

// CategoryCreatedEvent is raised when a category enters the tree
type CategoryCreatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID  `json:"category_id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Level      int        `json:"level"`
}

func NewCategoryCreatedEvent(category *Category) *CategoryCreatedEvent {
	return &CategoryCreatedEvent{
		BaseDomainEvent: categoryEventBase(EventTypeCategoryCreated, category),
		CategoryID:      category.ID,
		Code:            category.Code,
		Name:            category.Name,
		ParentID:        category.ParentID,
		Level:           category.Level,
	}
}

// CategoryUpdatedEvent is raised when name or description change
type CategoryUpdatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
}

func NewCategoryUpdatedEvent(category *Category) *CategoryUpdatedEvent {
	return &CategoryUpdatedEvent{
		BaseDomainEvent: categoryEventBase(EventTypeCategoryUpdated, category),
		CategoryID:      category.ID,
		Code:            category.Code,
		Name:            category.Name,
	}
}

// CategoryStatusChangedEvent is raised on activate/deactivate transitions
type CategoryStatusChangedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID      `json:"category_id"`
	Code       string         `json:"code"`
	OldStatus  CategoryStatus `json:"old_status"`
	NewStatus  CategoryStatus `json:"new_status"`
}

func NewCategoryStatusChangedEvent(category *Category, oldStatus, newStatus CategoryStatus) *CategoryStatusChangedEvent {
	return &CategoryStatusChangedEvent{
		BaseDomainEvent: categoryEventBase(EventTypeCategoryStatusChanged, category),
		CategoryID:      category.ID,
		Code:            category.Code,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}
