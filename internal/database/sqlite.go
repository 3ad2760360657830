package database

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errMissingPath = errors.New("database path is required")

// OpenSQLite establishes a SQLite connection and performs schema migrations.
// Failures wrap draws.ErrStorageUnavailable.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: %w", draws.ErrStorageUnavailable, errMissingPath)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", draws.ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", draws.ErrStorageUnavailable, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&draws.Draw{}, &migrationRecord{}); err != nil {
		return nil, fmt.Errorf("%w: %w", draws.ErrStorageUnavailable, err)
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("%w: %w", draws.ErrStorageUnavailable, err)
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
