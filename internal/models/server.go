package models

import "time"

// Server is a bookable compute machine. Its time slots are removed with it.
type Server struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:150;not null" json:"name"`
	IPAddress string `gorm:"size:50;not null" json:"ip_address"`
	Location  string `gorm:"size:100" json:"location"`

	HDDSize  int    `json:"hdd_size"`
	SSDSize  int    `json:"ssd_size"`
	RAMSize  int    `json:"ram_size"`
	VRAMSize int    `json:"vram_size"`
	CPUModel string `gorm:"size:100" json:"cpu_model"`
	GPUModel string `gorm:"size:100" json:"gpu_model"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TimeSlots []TimeSlot `gorm:"foreignKey:ServerID" json:"-"`
}
