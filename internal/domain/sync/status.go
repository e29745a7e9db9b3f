package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncStatus represents the synchronization state of a product-store pair
type SyncStatus string

const (
	// SyncStatusNotPublished means the product does not exist on the remote
	// store and the local record does not claim it should.
	SyncStatusNotPublished SyncStatus = "not_published"
	// SyncStatusPending means differences exist that the next outbound push
	// will overwrite.
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSynced means local and remote representations match.
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusConflict means a divergence requiring human review was found.
	SyncStatusConflict SyncStatus = "conflict"
	// SyncStatusError means the last verification run failed.
	SyncStatusError SyncStatus = "error"
	// SyncStatusDisabled means synchronization is administratively off for
	// this pair.
	SyncStatusDisabled SyncStatus = "disabled"
)

// ConflictSeverity grades how urgently a conflict needs attention
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
)

// FieldConflict records a divergence that requires human resolution before
// the pair can be safely synchronized again.
type FieldConflict struct {
	Field       string           `json:"field"`
	LocalValue  string           `json:"localValue"`
	RemoteValue string           `json:"remoteValue"`
	Severity    ConflictSeverity `json:"severity"`
	Detail      string           `json:"detail,omitempty"`
}

// FieldDifference records a divergence the system intends to overwrite on
// the next outbound push.
type FieldDifference struct {
	Field       string `json:"field"`
	LocalValue  string `json:"localValue"`
	RemoteValue string `json:"remoteValue"`
}

// SyncStatusRecord is the persisted verification outcome for one
// product-store pair. It is created lazily on first verification and every
// run recomputes its status from scratch; there is no terminal state.
type SyncStatusRecord struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ProductID     uuid.UUID
	StoreID       uuid.UUID
	Status        SyncStatus
	Conflicts     []FieldConflict
	Differences   []FieldDifference
	Fingerprint   string
	LastError     string
	LastCheckedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSyncStatusRecord creates a fresh record for a product-store pair
func NewSyncStatusRecord(tenantID, productID, storeID uuid.UUID) *SyncStatusRecord {
	now := time.Now()
	return &SyncStatusRecord{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProductID: productID,
		StoreID:   storeID,
		Status:    SyncStatusNotPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyComparison stores a comparison outcome and derives the overall
// status: conflict wins over pending, pending wins over synced.
func (r *SyncStatusRecord) ApplyComparison(conflicts []FieldConflict, differences []FieldDifference, fingerprint string) {
	r.Conflicts = conflicts
	r.Differences = differences
	r.Fingerprint = fingerprint
	r.LastError = ""

	switch {
	case len(conflicts) > 0:
		r.Status = SyncStatusConflict
	case len(differences) > 0:
		r.Status = SyncStatusPending
	default:
		r.Status = SyncStatusSynced
	}
	r.touch()
}

// MarkMissingRemote records that the remote store has no trace of a product
// the local record claims is published. This is a high severity conflict.
func (r *SyncStatusRecord) MarkMissingRemote() {
	r.Conflicts = []FieldConflict{{
		Field:       "existence",
		LocalValue:  "published",
		RemoteValue: "absent",
		Severity:    SeverityHigh,
		Detail:      "product is published locally but missing on the remote store",
	}}
	r.Differences = nil
	r.Fingerprint = ""
	r.LastError = ""
	r.Status = SyncStatusConflict
	r.touch()
}

// MarkNotPublished records the benign absence of an unpublished product
func (r *SyncStatusRecord) MarkNotPublished() {
	r.Conflicts = nil
	r.Differences = nil
	r.Fingerprint = ""
	r.LastError = ""
	r.Status = SyncStatusNotPublished
	r.touch()
}

// MarkDisabled records that sync is administratively off for this pair
func (r *SyncStatusRecord) MarkDisabled() {
	r.Conflicts = nil
	r.Differences = nil
	r.LastError = ""
	r.Status = SyncStatusDisabled
	r.touch()
}

// MarkError records a failed verification run without discarding the
// previous comparison payload.
func (r *SyncStatusRecord) MarkError(errMsg string) {
	r.LastError = errMsg
	r.Status = SyncStatusError
	r.touch()
}

// NeedsAttention reports whether an operator should look at this pair
func (r *SyncStatusRecord) NeedsAttention() bool {
	return r.Status == SyncStatusConflict || r.Status == SyncStatusError
}

func (r *SyncStatusRecord) touch() {
	now := time.Now()
	r.LastCheckedAt = now
	r.UpdatedAt = now
}

// SyncStatusRepository defines the interface for sync status persistence.
// Writes are last-writer-wins; batch runs must not process the same pair
// concurrently.
type SyncStatusRepository interface {
	// FindByProductAndStore retrieves the record for a pair, or ErrSyncStatusNotFound
	FindByProductAndStore(ctx context.Context, tenantID, productID, storeID uuid.UUID) (*SyncStatusRecord, error)
	// FindByStatus retrieves records in a given status with pagination
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status SyncStatus, page, pageSize int) ([]*SyncStatusRecord, int64, error)
	// Save inserts or wholesale-replaces the record for its pair
	Save(ctx context.Context, record *SyncStatusRecord) error
	// CountByStatus returns per-status record counts for a tenant
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[SyncStatus]int64, error)
}
