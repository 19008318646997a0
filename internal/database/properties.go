package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"realestate/server/internal/models"
	"realestate/server/internal/search"
)

// Page selects a window of a listing, numbered from 1
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Columns a property owner may change. Views and the published flag are
// deliberately absent.
var editablePropertyColumns = []string{
	"title", "description", "country", "city", "postal_code", "street_address",
	"property_number", "price", "tax", "plot_area", "total_floors", "bedrooms",
	"bathrooms", "garages", "advert_type", "property_type", "currency",
	"area_measurement", "year_built", "updated_at",
}

func (d *Database) CreateProperty(ctx context.Context, p *models.Property) error {
	if err := d.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (d *Database) GetProperty(ctx context.Context, id uint) (*models.Property, error) {
	var p models.Property
	err := d.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

// UpdateProperty writes the editable columns of p
func (d *Database) UpdateProperty(ctx context.Context, p *models.Property) error {
	p.Normalize()
	res := d.db.WithContext(ctx).Model(p).Select(editablePropertyColumns).Updates(p)
	if res.Error != nil {
		return fmt.Errorf("failed to update property: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// DeleteProperty removes the property together with its view records
func (d *Database) DeleteProperty(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyView{}).Error; err != nil {
			return fmt.Errorf("failed to delete property views: %w", err)
		}
		res := tx.Delete(&models.Property{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete property: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPropertyNotFound
		}
		return nil
	})
}

// ListProperties returns a page of properties, newest first. A nil owner lists every property.
func (d *Database) ListProperties(ctx context.Context, ownerID *uint, page Page) ([]models.Property, int64, error) {
	q := d.db.WithContext(ctx).Model(&models.Property{})
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	return listPage(q, page)
}

// ListPublishedByOwner returns a page of the owner's published properties, newest first
func (d *Database) ListPublishedByOwner(ctx context.Context, ownerID uint, page Page) ([]models.Property, int64, error) {
	q := d.db.WithContext(ctx).Model(&models.Property{}).
		Where("owner_id = ? AND published = ?", ownerID, true)
	return listPage(q, page)
}

func listPage(q *gorm.DB, page Page) ([]models.Property, int64, error) {
	page = page.Normalize()
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	properties := make([]models.Property, 0)
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&properties).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, total, nil
}

// FindPublished returns the published properties selected by f, with every
// value bound as a query parameter
func (d *Database) FindPublished(ctx context.Context, f search.Filter) ([]models.Property, error) {
	q := d.db.WithContext(ctx).Model(&models.Property{}).Where("published = ?", true)

	if f.AdvertType != nil {
		q = q.Where("LOWER(advert_type) = LOWER(?)", string(*f.AdvertType))
	}
	if f.PropertyType != nil {
		q = q.Where("LOWER(property_type) = LOWER(?)", string(*f.PropertyType))
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	q = q.Where("bedrooms >= ?", f.MinBedrooms).Where("bathrooms >= ?", f.MinBathrooms)
	if f.Phrase != "" {
		q = q.Where(`LOWER(description) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Phrase))+"%")
	}

	switch f.Sort {
	case search.SortPriceAsc:
		q = q.Order("price ASC").Order("id ASC")
	case search.SortPriceDesc:
		q = q.Order("price DESC").Order("id ASC")
	case search.SortNewest:
		q = q.Order("created_at DESC").Order("id DESC")
	default:
		q = q.Order("id ASC")
	}

	properties := make([]models.Property, 0)
	if err := q.Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return properties, nil
}

func (d *Database) SetPublished(ctx context.Context, id uint, published bool) (*models.Property, error) {
	res := d.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Update("published", published)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update published flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrPropertyNotFound
	}
	return d.GetProperty(ctx, id)
}

// ListPropertyViews returns the distinct-IP view records of a property, most recent first
func (d *Database) ListPropertyViews(ctx context.Context, propertyID uint) ([]models.PropertyView, error) {
	views := make([]models.PropertyView, 0)
	err := d.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at DESC").Order("id DESC").
		Find(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list property views: %w", err)
	}
	return views, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
