// Package databasetest opens throwaway databases for tests of the packages
// built on the entity store.
package databasetest

import (
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"realestate/server/internal/database"
)

// MemoryDSN names a private shared-cache in-memory SQLite database
func MemoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1&_busy_timeout=5000", uuid.NewString())
}

// Open returns a migrated in-memory database that is closed when t ends.
// A nil logger discards output.
func Open(t testing.TB, logger *logrus.Logger) *database.Database {
	t.Helper()

	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	gdb, err := database.OpenSQLite(MemoryDSN(), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get test database handle: %v", err)
	}
	// The in-memory database lives as long as its only connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := database.MigrateSchema(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db := database.New(gdb, logger)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
