package database

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"realestate/server/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1&_busy_timeout=5000", uuid.NewString())
	gdb, err := OpenSQLite(dsn, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	require.NoError(t, MigrateSchema(gdb))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db := New(gdb, logger)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, db *Database, username string) (*models.User, *models.Profile) {
	t.Helper()
	u := &models.User{
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		Email:        username + "@example.com",
		PasswordHash: "hash",
		IsActive:     true,
	}
	profile, err := db.CreateUserWithProfile(context.Background(), u)
	require.NoError(t, err)
	return u, profile
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestMigrateSchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.RunMigrations())
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "data/app.db?_foreign_keys=1&_busy_timeout=5000", sqliteDSN("data/app.db"))
	assert.Equal(t, "file:x?mode=memory", sqliteDSN("file:x?mode=memory"))
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		in   Page
		want Page
	}{
		{Page{}, Page{Number: 1, Size: DefaultPageSize}},
		{Page{Number: 3, Size: 10}, Page{Number: 3, Size: 10}},
		{Page{Number: -1, Size: 1000}, Page{Number: 1, Size: MaxPageSize}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
	}
	assert.Equal(t, 20, Page{Number: 3, Size: 10}.Offset())
}
