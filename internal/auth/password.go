package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"serverbook/internal/audit"
	"serverbook/internal/models"
)

// MinPasswordLength applies to every password set through the service.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch   = errors.New("new passwords do not match")
)

// HashPassword validates and bcrypt-hashes plain.
func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate returns the user whose username or email is login and whose
// password matches.
func Authenticate(ctx context.Context, db *gorm.DB, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	var user models.User
	err := db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// PasswordChange is a self-service password update.
type PasswordChange struct {
	Old     string
	New     string
	Confirm string
}

// ChangePassword replaces userID's password after checking the old one.
func ChangePassword(ctx context.Context, db *gorm.DB, auditLog *audit.Logger, userID uint64, req PasswordChange) error {
	if req.New != req.Confirm {
		return ErrPasswordMismatch
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("auth: load user %d: %w", userID, err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Old)); err != nil {
			return ErrInvalidCredentials
		}
		hash, err := HashPassword(req.New)
		if err != nil {
			return err
		}
		if err := tx.Model(&user).Update("password_hash", hash).Error; err != nil {
			return fmt.Errorf("auth: store password: %w", err)
		}
		auditLog.Record(ctx, tx, audit.Entry{
			UserID:   &user.ID,
			Username: user.Username,
			Action:   audit.ActionChangePassword,
			Details:  "Changed own password",
		})
		return nil
	})
}
