package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pim/backend/internal/domain/sync"
)

// newMockSyncStatusRepository creates a GormSyncStatusRepository with a mocked SQL connection
func newMockSyncStatusRepository(t *testing.T) (*GormSyncStatusRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormSyncStatusRepository(gormDB), mock, mockDB
}

func syncStatusColumns() []string {
	return []string{"id", "tenant_id", "product_id", "store_id", "status", "conflicts", "differences", "fingerprint", "last_error", "last_checked_at", "created_at", "updated_at"}
}

func TestGormSyncStatusRepository_FindByProductAndStore(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()
	storeID := uuid.New()

	t.Run("finds existing record with decoded payloads", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncStatusRepository(t)
		defer mockDB.Close()

		now := time.Now()
		conflicts := `[{"field":"name","localValue":"Blue Widget","remoteValue":"Red Widget","severity":"medium"}]`
		differences := `[{"field":"price","localValue":"10","remoteValue":"12"}]`

		rows := sqlmock.NewRows(syncStatusColumns()).
			AddRow(uuid.New(), tenantID, productID, storeID, "conflict", []byte(conflicts), []byte(differences), "abc123", "", now, now, now)

		mock.ExpectQuery(`SELECT \* FROM "sync_statuses" WHERE tenant_id = \$1 AND product_id = \$2 AND store_id = \$3`).
			WithArgs(tenantID, productID, storeID, 1).
			WillReturnRows(rows)

		record, err := repo.FindByProductAndStore(context.Background(), tenantID, productID, storeID)

		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, sync.SyncStatusConflict, record.Status)
		require.Len(t, record.Conflicts, 1)
		assert.Equal(t, "name", record.Conflicts[0].Field)
		require.Len(t, record.Differences, 1)
		assert.Equal(t, "price", record.Differences[0].Field)
		assert.Equal(t, "abc123", record.Fingerprint)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrSyncStatusNotFound for missing pair", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncStatusRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "sync_statuses"`).
			WithArgs(tenantID, productID, storeID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		record, err := repo.FindByProductAndStore(context.Background(), tenantID, productID, storeID)

		assert.Nil(t, record)
		assert.ErrorIs(t, err, sync.ErrSyncStatusNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncStatusRepository_FindByStatus(t *testing.T) {
	t.Run("returns paged records with total count", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncStatusRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "sync_statuses" WHERE tenant_id = \$1 AND status = \$2`).
			WithArgs(tenantID, "conflict").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

		rows := sqlmock.NewRows(syncStatusColumns()).
			AddRow(uuid.New(), tenantID, uuid.New(), uuid.New(), "conflict", []byte(`[]`), []byte(`[]`), "", "", now, now, now)

		mock.ExpectQuery(`SELECT \* FROM "sync_statuses" WHERE tenant_id = \$1 AND status = \$2 ORDER BY updated_at DESC LIMIT .*`).
			WithArgs(tenantID, "conflict", 10).
			WillReturnRows(rows)

		records, total, err := repo.FindByStatus(context.Background(), tenantID, sync.SyncStatusConflict, 1, 10)

		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		assert.Len(t, records, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncStatusRepository_Save(t *testing.T) {
	t.Run("upserts on the pair key", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncStatusRepository(t)
		defer mockDB.Close()

		record := sync.NewSyncStatusRecord(uuid.New(), uuid.New(), uuid.New())
		record.ApplyComparison(nil, []sync.FieldDifference{
			{Field: "price", LocalValue: "10", RemoteValue: "12"},
		}, "fp-1")

		mock.ExpectExec(`INSERT INTO "sync_statuses" .* ON CONFLICT \("tenant_id","product_id","store_id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Save(context.Background(), record)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncStatusRepository_CountByStatus(t *testing.T) {
	t.Run("aggregates counts per status", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncStatusRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"status", "total"}).
			AddRow("synced", int64(40)).
			AddRow("conflict", int64(3))

		mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS total FROM "sync_statuses" WHERE tenant_id = \$1 GROUP BY .*status`).
			WithArgs(tenantID).
			WillReturnRows(rows)

		counts, err := repo.CountByStatus(context.Background(), tenantID)

		require.NoError(t, err)
		assert.Equal(t, int64(40), counts[sync.SyncStatusSynced])
		assert.Equal(t, int64(3), counts[sync.SyncStatusConflict])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
