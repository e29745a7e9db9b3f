package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(t *testing.T, level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func traceQuery(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) {
		return sql, rows
	}
}

func TestNewGormLogger_Options(t *testing.T) {
	gormLog, _ := newObservedGormLogger(t, gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.False(t, gormLog.skipNotFound)
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(t, gormlogger.Info)

	clone := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	cloned, ok := clone.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, cloned.level)
}

func TestGormLogger_LevelGating(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(t, gormlogger.Info)
	gormLog.Info(context.Background(), "loaded %d mappings", 3)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "loaded 3 mappings")

	silent, silentRecorded := newObservedGormLogger(t, gormlogger.Silent)
	silent.Info(context.Background(), "suppressed")
	silent.Warn(context.Background(), "suppressed")
	silent.Error(context.Background(), "suppressed")
	assert.Empty(t, silentRecorded.All())
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(t, gormlogger.Error)

	gormLog.Trace(context.Background(), time.Now(),
		traceQuery(`SELECT * FROM "category_mappings"`, 0),
		errors.New("connection refused"),
	)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql error", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
}

func TestGormLogger_Trace_RecordNotFoundIgnored(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(t, gormlogger.Error)

	gormLog.Trace(context.Background(), time.Now(),
		traceQuery(`SELECT * FROM "category_mappings" WHERE id = $1`, 0),
		gormlogger.ErrRecordNotFound,
	)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(t, gormlogger.Warn,
		WithSlowThreshold(time.Nanosecond),
	)

	gormLog.Trace(context.Background(), time.Now().Add(-time.Second),
		traceQuery(`SELECT * FROM "sync_status_records"`, 10), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "slow sql", logs[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
}

func TestGormLogger_Trace_NormalQuery(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(t, gormlogger.Info)

	gormLog.Trace(context.Background(), time.Now(),
		traceQuery(`SELECT * FROM "stores"`, 5), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql", logs[0].Message)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(t, gormlogger.Silent)

	gormLog.Trace(context.Background(), time.Now(),
		traceQuery(`SELECT * FROM "stores"`, 5), nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_ContextEnrichment(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(t, gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	ctx = context.WithValue(ctx, TenantIDKey, "tenant-456")

	gormLog.Trace(ctx, time.Now(), traceQuery(`SELECT * FROM "stores"`, 1), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	fields := logs[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "tenant-456", fields["tenant_id"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
