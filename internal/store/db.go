package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clavrr/clavr/internal/config"
)

// NewDBConnection creates a database connection based on settings.
// Supports both production (postgres) and development/test (sqlite) environments.
func NewDBConnection(settings config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	switch settings.Type {
	case config.PostgresDBType:
		db, err = gorm.Open(postgres.Open(settings.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
	case config.SqliteDBType:
		dsn := settings.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		// An in-memory database exists per connection; keep the pool at one
		// so every query sees the same schema.
		if dsn == ":memory:" {
			sqlDB, derr := db.DB()
			if derr != nil {
				return nil, fmt.Errorf("failed to get database instance: %w", derr)
			}
			sqlDB.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", settings.Type)
	}

	return db, nil
}

// Migrate runs schema auto-migration for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Session{},
		&Task{},
		&WebhookSubscription{},
		&WebhookDelivery{},
		&QueryRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// CloseDB closes the database connection.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
