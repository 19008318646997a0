package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"realestate/server/internal/models"
)

// CreateUserWithProfile inserts the user and its empty profile atomically
func (d *Database) CreateUserWithProfile(ctx context.Context, u *models.User) (*models.Profile, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	var profile models.Profile
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		profile = models.Profile{UserID: u.ID, Gender: models.GenderOther}
		if err := tx.Omit("User").Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	profile.User = *u
	return &profile, nil
}

func (d *Database) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := d.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (d *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := d.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
