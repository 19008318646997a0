package models

import "time"

type Enquiry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	PhoneNumber string    `gorm:"size:100" json:"phone_number"`
	Email       string    `gorm:"size:100;not null" json:"email"`
	Subject     string    `gorm:"size:100;not null" json:"subject"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
