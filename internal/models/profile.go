package models

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func ParseGender(s string) (Gender, bool) {
	for _, g := range []Gender{GenderMale, GenderFemale, GenderOther} {
		if strings.EqualFold(string(g), strings.TrimSpace(s)) {
			return g, true
		}
	}
	return "", false
}

// Profile is the one-to-one extension of a User. Rating and NumReviews are
// caches recomputed from the ratings table whenever a review is added.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User        User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PhoneNumber string    `gorm:"size:30;default:'+237670181440'" json:"phone_number"`
	AboutMe     string    `gorm:"type:text;default:'Say something about yourself'" json:"about_me"`
	License     *string   `gorm:"size:20" json:"license"`
	Gender      Gender    `gorm:"size:20;not null;default:'Other'" json:"gender"`
	Country     string    `gorm:"size:64;not null;default:'CMR'" json:"country"`
	City        string    `gorm:"size:180;not null;default:'Bamenda'" json:"city"`
	IsBuyer     bool      `gorm:"not null;default:false" json:"is_buyer"`
	IsSeller    bool      `gorm:"not null;default:false" json:"is_seller"`
	IsAgent     bool      `gorm:"not null;default:false;index" json:"is_agent"`
	TopAgent    bool      `gorm:"not null;default:false" json:"top_agent"`
	Rating      *float64  `gorm:"type:decimal(4,2)" json:"rating"`
	NumReviews  int       `gorm:"not null;default:0" json:"num_reviews"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
