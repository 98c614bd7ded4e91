package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/match-engine/internal/config"
)

// NewDB initializes the database connection for the configured driver and
// migrates the schema.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "mysql", "":
		dialector = mysql.Open(cfg.DB.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}

	level := logger.Warn
	if cfg.DB.LogSQL {
		level = logger.Info
	}

	database, err := Open(dialector, logger.Default.LogMode(level))
	if err != nil {
		return nil, err
	}

	if cfg.DB.Driver == "sqlite" {
		// single writer; transactions queue on the pool instead of failing with SQLITE_BUSY
		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return database, nil
}

// Open connects through the given dialector and runs AutoMigrate.
// Timestamps are kept in UTC with millisecond precision on every driver.
func Open(dialector gorm.Dialector, log logger.Interface) (*gorm.DB, error) {
	database, err := gorm.Open(dialector, &gorm.Config{
		Logger:         log,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := database.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return database, nil
}

// NewTestDB opens an isolated in-memory SQLite database named after name.
// The pool is pinned to one connection so concurrent transactions serialize
// the way row locks serialize them on MySQL.
func NewTestDB(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	database, err := Open(sqlite.Open(dsn), logger.Discard)
	if err != nil {
		return nil, err
	}
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return database, nil
}
