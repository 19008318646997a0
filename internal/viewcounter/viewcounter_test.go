package viewcounter

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/server/internal/apperr"
	"realestate/server/internal/database"
	"realestate/server/internal/database/databasetest"
	"realestate/server/internal/models"
)

func setupCounter(t *testing.T) (*Counter, *database.Database, *models.Property) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	db := databasetest.Open(t, logger)

	property := &models.Property{OwnerID: 1, Title: "flat", AdvertType: models.AdvertForRent, PropertyType: models.PropertyApartment, Published: true}
	require.NoError(t, db.CreateProperty(context.Background(), property))

	return NewCounter(db, logger), db, property
}

func views(t *testing.T, db *database.Database, id uint) uint {
	t.Helper()
	p, err := db.GetProperty(context.Background(), id)
	require.NoError(t, err)
	return p.Views
}

func TestRecordView_CountsOncePerIP(t *testing.T) {
	counter, db, property := setupCounter(t)
	ctx := context.Background()

	counted, err := counter.RecordView(ctx, property.ID, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = counter.RecordView(ctx, property.ID, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, counted)

	counted, err = counter.RecordView(ctx, property.ID, "203.0.113.8")
	require.NoError(t, err)
	assert.True(t, counted)

	assert.Equal(t, uint(2), views(t, db, property.ID))

	records, err := db.ListPropertyViews(ctx, property.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRecordView_ConcurrentSameIP(t *testing.T) {
	counter, db, property := setupCounter(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	countedTimes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counted, err := counter.RecordView(ctx, property.ID, "198.51.100.1")
			assert.NoError(t, err)
			if counted {
				mu.Lock()
				countedTimes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, countedTimes)
	assert.Equal(t, uint(1), views(t, db, property.ID))
}

func TestRecordView_Errors(t *testing.T) {
	counter, db, property := setupCounter(t)
	ctx := context.Background()

	_, err := counter.RecordView(ctx, property.ID, "  ")
	assert.ErrorIs(t, err, ErrEmptyIP)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = counter.RecordView(ctx, property.ID+100, "192.0.2.1")
	assert.ErrorIs(t, err, database.ErrPropertyNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Zero(t, views(t, db, property.ID))
}
