package database

import (
	"context"
	"fmt"

	"realestate/server/internal/models"
)

func (d *Database) CreateEnquiry(ctx context.Context, e *models.Enquiry) error {
	if err := d.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to save enquiry: %w", err)
	}
	return nil
}
