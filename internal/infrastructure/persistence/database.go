package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pim/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM handle and owns the connection pool settings.
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens a connection with SQL logging disabled.
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return open(cfg, logger.Default.LogMode(logger.Silent))
}

// NewDatabaseWithCustomLogger opens a connection that routes SQL logs
// through the given GORM logger implementation.
func NewDatabaseWithCustomLogger(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	return open(cfg, gormLogger)
}

func open(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) sqlDB() (*sql.DB, error) {
	db, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	db, err := d.sqlDB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Ping verifies the connection is still alive.
func (d *Database) Ping() error {
	db, err := d.sqlDB()
	if err != nil {
		return err
	}
	return db.Ping()
}

// Stats reports connection pool statistics for health endpoints.
func (d *Database) Stats() (ConnectionStats, error) {
	db, err := d.sqlDB()
	if err != nil {
		return ConnectionStats{}, err
	}
	s := db.Stats()
	return ConnectionStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration,
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxIdleTimeClosed:  s.MaxIdleTimeClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}, nil
}

// ConnectionStats holds connection pool statistics.
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxIdleTimeClosed  int64
	MaxLifetimeClosed  int64
}

// Transaction runs fn inside a database transaction, rolling back on error.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}

// WithTenant returns a handle scoped to one tenant. Every tenant-owned
// query must go through this; an empty tenant ID panics rather than
// silently reading across tenants.
func (d *Database) WithTenant(tenantID string) *gorm.DB {
	if tenantID == "" {
		panic("WithTenant called with empty tenant ID")
	}
	return d.DB.Where("tenant_id = ?", tenantID)
}
