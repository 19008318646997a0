// Package viewcounter records distinct-IP views of a property.
package viewcounter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realestate/server/internal/apperr"
	"realestate/server/internal/database"
	"realestate/server/internal/metrics"
	"realestate/server/internal/models"
)

var ErrEmptyIP = apperr.Validation("client ip is required")

// Transactor runs a function inside a retried transaction
type Transactor interface {
	WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Counter struct {
	store  Transactor
	logger *logrus.Logger
}

func NewCounter(store Transactor, logger *logrus.Logger) *Counter {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Counter{store: store, logger: logger}
}

// RecordView counts the first view of a property from ip. Repeated views
// from the same ip are a no-op and report counted == false.
func (c *Counter) RecordView(ctx context.Context, propertyID uint, ip string) (bool, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return false, ErrEmptyIP
	}

	var counted bool
	err := c.store.WithRetry(ctx, func(tx *gorm.DB) error {
		counted = false

		var exists int64
		if err := tx.Model(&models.Property{}).Where("id = ?", propertyID).Count(&exists).Error; err != nil {
			return fmt.Errorf("failed to look up property: %w", err)
		}
		if exists == 0 {
			return database.ErrPropertyNotFound
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "property_id"}, {Name: "ip"}},
			DoNothing: true,
		}).Create(&models.PropertyView{PropertyID: propertyID, IP: ip})
		if res.Error != nil {
			return fmt.Errorf("failed to insert property view: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		err := tx.Model(&models.Property{}).Where("id = ?", propertyID).
			UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("failed to increment views: %w", err)
		}
		counted = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, database.ErrPropertyNotFound) {
			c.logger.WithError(err).WithField("property_id", propertyID).Error("Failed to record property view")
		}
		return false, apperr.Classify(err, "failed to record property view")
	}

	if counted {
		metrics.PropertyViewsRecorded.Inc()
	}
	return counted, nil
}
