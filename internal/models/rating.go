package models

import "time"

// Rating is one user's review of an agent profile
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RaterID   uint      `gorm:"not null;uniqueIndex:idx_ratings_rater_agent,priority:1" json:"rater"`
	AgentID   uint      `gorm:"not null;index;uniqueIndex:idx_ratings_rater_agent,priority:2" json:"agent"`
	Score     int       `gorm:"column:rating;not null;check:chk_ratings_score,rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
