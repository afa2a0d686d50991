package models

import "time"

// Positions accepted for regular users.
const (
	PositionResearchAssistant = "RA"
	PositionTeachingAssistant = "TA"
	PositionPostGrad          = "PG"
)

type User struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;size:150;not null" json:"email"`
	PasswordHash   string    `gorm:"size:200;not null" json:"-"`
	Ratio          *float64  `json:"ratio"`
	ResourceNeeded string    `gorm:"size:50" json:"resource_needed"`
	Position       string    `gorm:"size:50" json:"position"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
