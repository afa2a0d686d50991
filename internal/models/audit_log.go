package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is an append-only record of a booking or administrative action.
// UserID has no foreign key so entries outlive deleted users.
type AuditLog struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	UserID    *uint64        `gorm:"index" json:"user_id"` // nil for system actions
	Username  string         `gorm:"size:150" json:"username"`
	Action    string         `gorm:"size:50;not null;index" json:"action"` // e.g. "BOOK_SLOT"
	Details   string         `gorm:"size:255" json:"details"`
	Metadata  datatypes.JSON `gorm:"type:json" json:"metadata"`
	IP        string         `gorm:"size:64" json:"ip"`
	UserAgent string         `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
