package models

import "time"

// TimeSlot is one calendar day of one server, from local midnight to
// 23:59:59. ReservedByUserID is nil while the slot is free.
type TimeSlot struct {
	ID               uint64    `gorm:"primaryKey" json:"id"`
	ServerID         uint64    `gorm:"not null;uniqueIndex:idx_time_slots_server_day,priority:1" json:"server_id"`
	StartTime        time.Time `gorm:"not null;uniqueIndex:idx_time_slots_server_day,priority:2;index" json:"start_time"`
	EndTime          time.Time `gorm:"not null" json:"end_time"`
	ReservedByUserID *uint64   `gorm:"index" json:"reserved_by_user_id"`

	Server     *Server `gorm:"foreignKey:ServerID" json:"server,omitempty"`
	ReservedBy *User   `gorm:"foreignKey:ReservedByUserID" json:"-"`
}

// IsReserved reports whether someone holds the slot.
func (s TimeSlot) IsReserved() bool { return s.ReservedByUserID != nil }

// HeldBy reports whether userID holds the slot.
func (s TimeSlot) HeldBy(userID uint64) bool {
	return s.ReservedByUserID != nil && *s.ReservedByUserID == userID
}
