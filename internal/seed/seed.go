package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"serverbook/internal/auth"
	"serverbook/internal/models"
)

// Admin describes the bootstrap administrator account.
type Admin struct {
	Username string
	Email    string
	Password string
}

// FirstSetup makes sure an administrator account exists. It never touches
// an existing account with the same username. When no password is given a
// random one is generated and logged once.
func FirstSetup(ctx context.Context, db *gorm.DB, a Admin) (*models.User, error) {
	username := strings.TrimSpace(a.Username)
	email := strings.ToLower(strings.TrimSpace(a.Email))
	if username == "" || email == "" {
		return nil, errors.New("seed: admin username and email are required")
	}

	var existing models.User
	err := db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		if !existing.IsAdmin {
			log.Warnf("seed: user %s exists but is not an administrator", username)
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("seed: look up admin: %w", err)
	}

	password := a.Password
	generated := password == ""
	if generated {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("seed: admin password: %w", err)
	}

	admin := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := db.WithContext(ctx).Where("username = ?", username).FirstOrCreate(&admin).Error; err != nil {
		return nil, fmt.Errorf("seed: create admin: %w", err)
	}

	if generated {
		log.Warnf("✅ Seed OK | admin=%s pass=%s (generated, change after first login)", username, password)
	} else {
		log.Infof("✅ Seed OK | admin=%s", username)
	}
	return &admin, nil
}
