package models

import "time"

// DefaultMaxQuota is the legacy per-assignment pool size.
const DefaultMaxQuota = 360

// UserServer grants a user access to a server. MaxQuota and UsedQuota are
// legacy counters: they are reset monthly and shown to admins but bookings
// are limited by the monthly/weekly slot counts instead.
type UserServer struct {
	UserID          uint64    `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ServerID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"server_id"`
	MaxQuota        int       `gorm:"column:max_quota;not null;default:360" json:"max_quota"`
	UsedQuota       int       `gorm:"not null;default:0" json:"used_quota"`
	AccessStartDate time.Time `json:"access_start_date"`

	User   *User   `gorm:"foreignKey:UserID" json:"-"`
	Server *Server `gorm:"foreignKey:ServerID" json:"-"`
}

func (UserServer) TableName() string { return "user_servers" }
