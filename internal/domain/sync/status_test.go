package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStatusRecordStateMachine(t *testing.T) {
	newRecord := func() *SyncStatusRecord {
		return NewSyncStatusRecord(uuid.New(), uuid.New(), uuid.New())
	}

	t.Run("conflicts win over differences", func(t *testing.T) {
		record := newRecord()
		record.ApplyComparison(
			[]FieldConflict{{Field: "name", Severity: SeverityMedium}},
			[]FieldDifference{{Field: "shortDescription"}},
			"abc",
		)
		assert.Equal(t, SyncStatusConflict, record.Status)
		assert.True(t, record.NeedsAttention())
	})

	t.Run("differences alone yield pending", func(t *testing.T) {
		record := newRecord()
		record.ApplyComparison(nil, []FieldDifference{{Field: "published"}}, "abc")
		assert.Equal(t, SyncStatusPending, record.Status)
		assert.False(t, record.NeedsAttention())
	})

	t.Run("clean comparison yields synced", func(t *testing.T) {
		record := newRecord()
		record.ApplyComparison(nil, nil, "abc")
		assert.Equal(t, SyncStatusSynced, record.Status)
		assert.Equal(t, "abc", record.Fingerprint)
	})

	t.Run("missing remote published product is a high severity conflict", func(t *testing.T) {
		record := newRecord()
		record.MarkMissingRemote()
		assert.Equal(t, SyncStatusConflict, record.Status)
		require.Len(t, record.Conflicts, 1)
		assert.Equal(t, SeverityHigh, record.Conflicts[0].Severity)
	})

	t.Run("missing remote unpublished product is benign", func(t *testing.T) {
		record := newRecord()
		record.MarkNotPublished()
		assert.Equal(t, SyncStatusNotPublished, record.Status)
		assert.Empty(t, record.Conflicts)
	})

	t.Run("error keeps previous comparison payload", func(t *testing.T) {
		record := newRecord()
		record.ApplyComparison(nil, []FieldDifference{{Field: "published"}}, "abc")
		record.MarkError("gateway timeout")
		assert.Equal(t, SyncStatusError, record.Status)
		assert.Equal(t, "gateway timeout", record.LastError)
		assert.Len(t, record.Differences, 1)
		assert.Equal(t, "abc", record.Fingerprint)
	})

	t.Run("each run recomputes status from scratch", func(t *testing.T) {
		record := newRecord()
		record.ApplyComparison([]FieldConflict{{Field: "name"}}, nil, "v1")
		record.ApplyComparison(nil, nil, "v2")
		assert.Equal(t, SyncStatusSynced, record.Status)
		assert.Empty(t, record.Conflicts)
		assert.Empty(t, record.LastError)
	})
}

func TestFingerprint(t *testing.T) {
	base := func() *RemoteProduct {
		return &RemoteProduct{
			RemoteID:    7,
			Code:        "SKU-1",
			Name:        "Widget",
			Price:       decimal.NewFromInt(10),
			Published:   true,
			CategoryIDs: []int64{3, 1, 2},
		}
	}

	t.Run("stable across category ordering", func(t *testing.T) {
		a, b := base(), base()
		b.CategoryIDs = []int64{1, 2, 3}
		assert.Equal(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("changes when content changes", func(t *testing.T) {
		a, b := base(), base()
		b.Name = "Widget v2"
		assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		p := base()
		Fingerprint(p)
		assert.Equal(t, []int64{3, 1, 2}, p.CategoryIDs)
	})

	t.Run("nil product has empty fingerprint", func(t *testing.T) {
		assert.Empty(t, Fingerprint(nil))
	})
}
