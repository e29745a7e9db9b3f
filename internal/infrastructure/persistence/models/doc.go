// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Shared persistence fields (TenantAggregateModel)
// - catalog.go: Product model with its jsonb assignment columns
// - store.go: Remote store registrations
// - mapping.go: Category identity mappings and per-store selections
// - sync.go: Per product-store verification outcomes
// - task.go: Durable background task queue
//
// The Category entity is persisted directly; its tree bookkeeping (path,
// level) lives on the aggregate and needs no separate mapping layer.
package models
