package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"realestate/server/internal/apperr"
	"realestate/server/internal/models"
)

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	db := setupTestDB(t).WithRetryPolicy(RetryPolicy{MaxRetries: 3, Delay: time.Millisecond})

	calls := 0
	err := db.WithRetry(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_DomainErrorsReturnImmediately(t *testing.T) {
	db := setupTestDB(t).WithRetryPolicy(RetryPolicy{MaxRetries: 3, Delay: time.Millisecond})
	sentinel := apperr.Validation("bad input")

	calls := 0
	err := db.WithRetry(context.Background(), func(tx *gorm.DB) error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	db := setupTestDB(t).WithRetryPolicy(RetryPolicy{MaxRetries: 2, Delay: time.Millisecond})

	calls := 0
	err := db.WithRetry(context.Background(), func(tx *gorm.DB) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsTransient(err))
}

func TestWithRetry_HonoursCancellation(t *testing.T) {
	db := setupTestDB(t).WithRetryPolicy(RetryPolicy{MaxRetries: 5, Delay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := db.WithRetry(ctx, func(tx *gorm.DB) error {
		calls++
		cancel()
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RollsBackFailedAttempt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sentinel := errors.New("abort")

	err := db.WithRetry(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Enquiry{Name: "a", Email: "a@example.com", Subject: "s", Message: "m"}).Error; err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, db.GetDB().Model(&models.Enquiry{}).Count(&count).Error)
	assert.Zero(t, count)
}
