package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"realestate/server/internal/models"
)

var editableProfileColumns = []string{
	"phone_number", "about_me", "license", "gender", "country", "city",
	"is_buyer", "is_seller", "is_agent", "updated_at",
}

func (d *Database) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	var p models.Profile
	err := d.db.WithContext(ctx).Preload("User").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (d *Database) GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var p models.Profile
	err := d.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile writes the self-service columns of p. Rating caches and the
// top agent flag are never touched here.
func (d *Database) UpdateProfile(ctx context.Context, p *models.Profile) error {
	res := d.db.WithContext(ctx).Model(p).Select(editableProfileColumns).Updates(p)
	if res.Error != nil {
		return fmt.Errorf("failed to update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (d *Database) ListAgents(ctx context.Context) ([]models.Profile, error) {
	return d.listProfiles(ctx, "is_agent = ?", true)
}

func (d *Database) ListTopAgents(ctx context.Context) ([]models.Profile, error) {
	return d.listProfiles(ctx, "top_agent = ?", true)
}

func (d *Database) listProfiles(ctx context.Context, query string, args ...interface{}) ([]models.Profile, error) {
	profiles := make([]models.Profile, 0)
	err := d.db.WithContext(ctx).Preload("User").Where(query, args...).Order("id ASC").Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// ListRatings returns the reviews of an agent profile, newest first
func (d *Database) ListRatings(ctx context.Context, agentProfileID uint) ([]models.Rating, error) {
	ratings := make([]models.Rating, 0)
	err := d.db.WithContext(ctx).
		Where("agent_id = ?", agentProfileID).
		Order("created_at DESC").Order("id DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}
