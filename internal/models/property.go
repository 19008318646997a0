package models

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type AdvertType string

const (
	AdvertForSale AdvertType = "For Sale"
	AdvertForRent AdvertType = "For Rent"
	AdvertAuction AdvertType = "Auction"
)

var AdvertTypes = []AdvertType{AdvertForSale, AdvertForRent, AdvertAuction}

// ParseAdvertType resolves s case-insensitively to a known advert type
func ParseAdvertType(s string) (AdvertType, bool) {
	for _, t := range AdvertTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

type PropertyType string

const (
	PropertyHouse      PropertyType = "House"
	PropertyApartment  PropertyType = "Apartment"
	PropertyLand       PropertyType = "Land"
	PropertyCommercial PropertyType = "Commercial"
	PropertyIndustrial PropertyType = "Industrial"
	PropertyOffice     PropertyType = "Office"
	PropertyStorage    PropertyType = "Storage"
	PropertyParking    PropertyType = "Parking"
	PropertyOther      PropertyType = "Other"
)

var PropertyTypes = []PropertyType{
	PropertyHouse, PropertyApartment, PropertyLand, PropertyCommercial, PropertyIndustrial,
	PropertyOffice, PropertyStorage, PropertyParking, PropertyOther,
}

func ParsePropertyType(s string) (PropertyType, bool) {
	for _, t := range PropertyTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

type Property struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OwnerID        uint         `gorm:"not null;index" json:"user"`
	Title          string       `gorm:"size:255;not null" json:"title"`
	RefCode        string       `gorm:"size:255;uniqueIndex" json:"ref_code"`
	Description    string       `gorm:"type:text;default:'Default description.. Update me please...'" json:"description"`
	Country        string       `gorm:"size:64;default:'CM'" json:"country"`
	City           string       `gorm:"size:255;default:'Bamenda'" json:"city"`
	PostalCode     string       `gorm:"size:255;default:'140-001'" json:"postal_code"`
	StreetAddress  string       `gorm:"size:255" json:"street_address"`
	PropertyNumber int          `json:"property_number"`
	Price          float64      `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Tax            float64      `gorm:"type:decimal(6,2);not null;default:0" json:"tax"`
	PlotArea       float64      `gorm:"type:decimal(10,2);default:0" json:"plot_area"`
	TotalFloors    int          `gorm:"default:0" json:"total_floors"`
	Bedrooms       int          `gorm:"not null" json:"bedrooms"`
	Bathrooms      int          `gorm:"not null" json:"bathrooms"`
	Garages        int          `gorm:"default:0" json:"garages"`
	AdvertType     AdvertType   `gorm:"size:50;not null;default:'For Sale';index" json:"advert_type"`
	PropertyType   PropertyType `gorm:"size:20;not null;default:'Other'" json:"property_type"`
	Published      bool         `gorm:"not null;default:false;index" json:"published_status"`
	Views          uint         `gorm:"not null;default:0" json:"views"`
	Currency       string       `gorm:"size:3;default:'USD'" json:"currency"`
	AreaMeasure    string       `gorm:"column:area_measurement;size:20;default:'sq ft'" json:"area_measurement"`
	YearBuilt      int          `gorm:"default:0" json:"year_built"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// FinalPrice is the price with tax applied, both steps rounded to cents
func (p Property) FinalPrice() float64 {
	return Round2(p.Price + Round2(p.Price*p.Tax))
}

// Normalize title-cases the title and capitalises the first letter of the description
func (p *Property) Normalize() {
	p.Title = cases.Title(language.English).String(strings.TrimSpace(p.Title))

	desc := strings.TrimSpace(p.Description)
	if r, size := utf8.DecodeRuneInString(desc); r != utf8.RuneError {
		desc = string(unicode.ToUpper(r)) + desc[size:]
	}
	p.Description = desc
}

func (p *Property) BeforeSave(tx *gorm.DB) error {
	p.Normalize()
	return nil
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.RefCode == "" {
		p.RefCode = NewRefCode()
	}
	return nil
}

// NewRefCode returns "REF-" followed by 10 upper-case alphanumerics
func NewRefCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "REF-" + strings.ToUpper(id[:10])
}

// Round2 rounds half away from zero to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PropertyView records one distinct client IP that opened a property
type PropertyView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	IP         string    `gorm:"size:255;not null;uniqueIndex:idx_property_views_property_ip,priority:2" json:"ip"`
	PropertyID uint      `gorm:"not null;uniqueIndex:idx_property_views_property_ip,priority:1" json:"property"`
	CreatedAt  time.Time `json:"created_at"`
}
