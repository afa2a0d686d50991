package testfixtures

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"serverbook/internal/models"
)

// Password is the plaintext password of every fixture user.
const Password = "password123"

var (
	userCounter   uint64
	serverCounter uint64

	hashOnce     sync.Once
	passwordHash []byte
	hashErr      error
)

func hashedPassword(tb testing.TB) string {
	hashOnce.Do(func() {
		passwordHash, hashErr = bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	})
	if hashErr != nil {
		tb.Fatalf("hash password: %v", hashErr)
	}
	return string(passwordHash)
}

// UserOption adjusts a fixture user before it is inserted.
type UserOption func(*models.User)

// AsAdmin marks the fixture user as administrator.
func AsAdmin() UserOption {
	return func(u *models.User) { u.IsAdmin = true }
}

// WithPosition sets the user's position and ratio.
func WithPosition(position string, ratio float64) UserOption {
	return func(u *models.User) {
		u.Position = position
		u.Ratio = &ratio
	}
}

// CreateUser inserts a user with a unique username.
func CreateUser(tb testing.TB, conn *gorm.DB, opts ...UserOption) models.User {
	tb.Helper()
	idx := atomic.AddUint64(&userCounter, 1)
	ratio := 1.0
	user := models.User{
		Username:     fmt.Sprintf("user%03d", idx),
		Email:        fmt.Sprintf("user%03d@example.com", idx),
		PasswordHash: hashedPassword(tb),
		Ratio:        &ratio,
		Position:     models.PositionTeachingAssistant,
	}
	for _, opt := range opts {
		opt(&user)
	}
	if err := conn.Create(&user).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return user
}

// CreateServer inserts a server with a unique name.
func CreateServer(tb testing.TB, conn *gorm.DB) models.Server {
	tb.Helper()
	idx := atomic.AddUint64(&serverCounter, 1)
	server := models.Server{
		Name:      fmt.Sprintf("gpu-%02d", idx),
		IPAddress: fmt.Sprintf("10.0.0.%d", idx),
		Location:  "rack A",
		RAMSize:   256,
		VRAMSize:  80,
		GPUModel:  "A100",
	}
	if err := conn.Create(&server).Error; err != nil {
		tb.Fatalf("create server: %v", err)
	}
	return server
}

// Assign grants user access to server.
func Assign(tb testing.TB, conn *gorm.DB, userID, serverID uint64) {
	tb.Helper()
	link := models.UserServer{
		UserID:          userID,
		ServerID:        serverID,
		MaxQuota:        models.DefaultMaxQuota,
		AccessStartDate: referenceTime,
	}
	if err := conn.Create(&link).Error; err != nil {
		tb.Fatalf("assign user %d to server %d: %v", userID, serverID, err)
	}
}

// CreateSlot inserts the slot for day (its calendar date in day's location).
func CreateSlot(tb testing.TB, conn *gorm.DB, serverID uint64, day time.Time) models.TimeSlot {
	tb.Helper()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	slot := models.TimeSlot{
		ServerID:  serverID,
		StartTime: start,
		EndTime:   start.AddDate(0, 0, 1).Add(-time.Second),
	}
	if err := conn.Create(&slot).Error; err != nil {
		tb.Fatalf("create slot: %v", err)
	}
	return slot
}

// Reserve marks slot as held by userID without any policy checks.
func Reserve(tb testing.TB, conn *gorm.DB, slotID, userID uint64) {
	tb.Helper()
	if err := conn.Model(&models.TimeSlot{}).Where("id = ?", slotID).Update("reserved_by_user_id", userID).Error; err != nil {
		tb.Fatalf("reserve slot %d: %v", slotID, err)
	}
}

// Date is a shorthand for midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
