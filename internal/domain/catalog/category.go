package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pim/backend/internal/domain/shared"
)

// MaxCategoryDepth is the maximum depth of the category hierarchy
const MaxCategoryDepth = 5

// CategoryStatus represents the status of a category
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusInactive CategoryStatus = "inactive"
)

// Category is a node in the tenant's canonical category tree. Path is the
// materialized ancestor chain ("rootID/…/ownID") so subtree queries stay a
// prefix match.
type Category struct {
	shared.TenantAggregateRoot
	Code        string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_category_tenant_code,priority:2"`
	Name        string         `gorm:"type:varchar(100);not null"`
	Description string         `gorm:"type:text"`
	ParentID    *uuid.UUID     `gorm:"type:uuid;index"`
	Path        string         `gorm:"type:varchar(500);not null;index"`
	Level       int            `gorm:"not null;default:0"`
	SortOrder   int            `gorm:"not null;default:0"`
	Status      CategoryStatus `gorm:"type:varchar(20);not null;default:'active'"`

	// Per-category configuration blobs, opaque to the reconciliation core.
	VisualSettings     string `gorm:"type:jsonb;default:'{}'"`
	VisibilitySettings string `gorm:"type:jsonb;default:'{}'"`
	DefaultSettings    string `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a root category
func NewCategory(tenantID uuid.UUID, code, name string) (*Category, error) {
	return newCategory(tenantID, code, name, nil)
}

// NewChildCategory creates a category under the given parent
func NewChildCategory(tenantID uuid.UUID, code, name string, parent *Category) (*Category, error) {
	if parent == nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Parent category is required")
	}
	if parent.Level >= MaxCategoryDepth-1 {
		return nil, shared.NewDomainError("MAX_DEPTH_EXCEEDED", fmt.Sprintf("Category depth cannot exceed %d levels", MaxCategoryDepth))
	}
	return newCategory(tenantID, code, name, parent)
}

func newCategory(tenantID uuid.UUID, code, name string, parent *Category) (*Category, error) {
	if err := validateCategoryCode(code); err != nil {
		return nil, err
	}
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	category := &Category{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(code),
		Name:                name,
		Status:              CategoryStatusActive,
		VisualSettings:      "{}",
		VisibilitySettings:  "{}",
		DefaultSettings:     "{}",
	}
	if parent != nil {
		category.ParentID = &parent.ID
		category.Level = parent.Level + 1
		category.Path = parent.Path + "/" + category.ID.String()
	} else {
		category.Path = category.ID.String()
	}

	category.AddDomainEvent(NewCategoryCreatedEvent(category))
	return category, nil
}

// Update replaces the category's name and description
func (c *Category) Update(name, description string) error {
	if err := validateCategoryName(name); err != nil {
		return err
	}

	c.Name = name
	c.Description = description
	c.bump()
	c.AddDomainEvent(NewCategoryUpdatedEvent(c))
	return nil
}

// SetSortOrder sets the display order of the category
func (c *Category) SetSortOrder(order int) {
	c.SortOrder = order
	c.bump()
}

// UpdateSettings replaces the opaque per-category setting blobs.
// Empty strings leave the corresponding blob untouched.
func (c *Category) UpdateSettings(visual, visibility, defaults string) {
	if visual != "" {
		c.VisualSettings = visual
	}
	if visibility != "" {
		c.VisibilitySettings = visibility
	}
	if defaults != "" {
		c.DefaultSettings = defaults
	}
	c.bump()
}

// Activate activates the category
func (c *Category) Activate() error {
	if c.Status == CategoryStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Category is already active")
	}
	c.Status = CategoryStatusActive
	c.bump()
	c.AddDomainEvent(NewCategoryStatusChangedEvent(c, CategoryStatusInactive, CategoryStatusActive))
	return nil
}

// Deactivate deactivates the category
func (c *Category) Deactivate() error {
	if c.Status == CategoryStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Category is already inactive")
	}
	c.Status = CategoryStatusInactive
	c.bump()
	c.AddDomainEvent(NewCategoryStatusChangedEvent(c, CategoryStatusActive, CategoryStatusInactive))
	return nil
}

// IsActive returns true if the category is active
func (c *Category) IsActive() bool {
	return c.Status == CategoryStatusActive
}

// IsRoot returns true for categories without a parent
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// GetAncestorIDs returns the ids along the path, nearest root first,
// excluding the category itself
func (c *Category) GetAncestorIDs() []uuid.UUID {
	parts := strings.Split(c.Path, "/")
	if len(parts) <= 1 {
		return nil
	}

	ancestors := make([]uuid.UUID, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		if id, err := uuid.Parse(part); err == nil {
			ancestors = append(ancestors, id)
		}
	}
	return ancestors
}

// IsAncestorOf reports whether other sits somewhere under this category
func (c *Category) IsAncestorOf(other *Category) bool {
	if other == nil || other.Path == "" {
		return false
	}
	return strings.HasPrefix(other.Path, c.Path+"/")
}

// IsDescendantOf reports whether this category sits under other
func (c *Category) IsDescendantOf(other *Category) bool {
	return other != nil && other.IsAncestorOf(c)
}

// bump records a mutation for optimistic locking and timestamps
func (c *Category) bump() {
	c.Touch()
	c.IncrementVersion()
}

func validateCategoryCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Category code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Category code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Category code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateCategoryName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}
