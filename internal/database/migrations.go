package database

import (
	"fmt"

	"gorm.io/gorm"

	"realestate/server/internal/models"
)

// MigrateSchema creates or updates every table together with its unique
// indexes and check constraints
func MigrateSchema(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Property{},
		&models.PropertyView{},
		&models.Rating{},
		&models.Enquiry{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}
