package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"serverbook/internal/access"
	"serverbook/internal/audit"
	"serverbook/internal/auth"
	"serverbook/internal/models"
)

// DefaultRatio applies to positions outside the known set.
const DefaultRatio = 0.5

// RatioForPosition maps a position code to its booking ratio.
func RatioForPosition(position string) float64 {
	switch position {
	case models.PositionResearchAssistant:
		return 1.5
	case models.PositionTeachingAssistant:
		return 1.0
	case models.PositionPostGrad:
		return 0.5
	default:
		return DefaultRatio
	}
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Username       string
	Email          string
	Password       string
	Position       string
	ResourceNeeded string
	IsAdmin        bool
}

// UserUpdate carries the fields to change; nil fields are kept. An empty
// Password keeps the current one.
type UserUpdate struct {
	Username       *string
	Email          *string
	Position       *string
	ResourceNeeded *string
	IsAdmin        *bool
	Password       string
}

// UserSummary is a user with the ids of the servers it may book.
type UserSummary struct {
	models.User
	ServerIDs []uint64 `json:"server_ids"`
}

func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("admin: list users: %w", err)
	}
	chk := access.Checker{DB: s.db}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		ids, err := chk.ServersAssignedTo(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("admin: servers of user %d: %w", u.ID, err)
		}
		out = append(out, UserSummary{User: u, ServerIDs: ids})
	}
	return out, nil
}

func (s *Service) CreateUser(ctx context.Context, actorID uint64, in NewUser) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" {
		return nil, invalid("username and email are required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, invalid(err.Error())
		}
		return nil, err
	}
	ratio := RatioForPosition(in.Position)
	user := models.User{
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		Ratio:          &ratio,
		Position:       in.Position,
		ResourceNeeded: in.ResourceNeeded,
		IsAdmin:        in.IsAdmin,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, 0, username, email); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("admin: create user: %w", err)
		}
		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionCreateUser,
			Details:  fmt.Sprintf("Created user %s", user.Username),
			Metadata: map[string]any{"user_id": user.ID, "position": user.Position, "is_admin": user.IsAdmin},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateUser(ctx context.Context, actorID, userID uint64, in UserUpdate) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return fmt.Errorf("admin: load user %d: %w", userID, err)
		}

		changed := []string{}
		if in.Username != nil {
			if v := strings.TrimSpace(*in.Username); v != "" && v != user.Username {
				user.Username = v
				changed = append(changed, "username")
			}
		}
		if in.Email != nil {
			if v := strings.ToLower(strings.TrimSpace(*in.Email)); v != "" && v != user.Email {
				user.Email = v
				changed = append(changed, "email")
			}
		}
		if in.Position != nil && *in.Position != user.Position {
			user.Position = *in.Position
			ratio := RatioForPosition(user.Position)
			user.Ratio = &ratio
			changed = append(changed, "position")
		}
		if in.ResourceNeeded != nil && *in.ResourceNeeded != user.ResourceNeeded {
			user.ResourceNeeded = *in.ResourceNeeded
			changed = append(changed, "resource_needed")
		}
		if in.IsAdmin != nil && *in.IsAdmin != user.IsAdmin {
			user.IsAdmin = *in.IsAdmin
			changed = append(changed, "is_admin")
		}
		if in.Password != "" {
			hash, err := auth.HashPassword(in.Password)
			if err != nil {
				if errors.Is(err, auth.ErrWeakPassword) {
					return invalid(err.Error())
				}
				return err
			}
			user.PasswordHash = hash
			changed = append(changed, "password")
		}
		if len(changed) == 0 {
			return nil
		}

		if err := ensureUnique(tx, user.ID, user.Username, user.Email); err != nil {
			return err
		}
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("admin: update user %d: %w", userID, err)
		}
		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionUpdateUser,
			Details:  fmt.Sprintf("Updated user %s (%s)", user.Username, strings.Join(changed, ", ")),
			Metadata: map[string]any{"user_id": user.ID, "fields": changed},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a non-admin user, releasing every slot it holds and
// its server assignments.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return fmt.Errorf("admin: load user %d: %w", userID, err)
		}
		if user.IsAdmin {
			return ErrAdminProtected
		}

		released := tx.Model(&models.TimeSlot{}).
			Where("reserved_by_user_id = ?", user.ID).
			Update("reserved_by_user_id", nil)
		if released.Error != nil {
			return fmt.Errorf("admin: release reservations of user %d: %w", user.ID, released.Error)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserServer{}).Error; err != nil {
			return fmt.Errorf("admin: delete assignments of user %d: %w", user.ID, err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("admin: delete user %d: %w", user.ID, err)
		}

		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionDeleteUser,
			Details:  fmt.Sprintf("Deleted user %s", user.Username),
			Metadata: map[string]any{"user_id": user.ID, "released_slots": released.RowsAffected},
		})
		return nil
	})
}

// ensureUnique fails with ErrDuplicateUser when another user than selfID
// already uses username or email.
func ensureUnique(tx *gorm.DB, selfID uint64, username, email string) error {
	var n int64
	q := tx.Model(&models.User{}).Where("(username = ? OR email = ?)", username, email)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("admin: check uniqueness: %w", err)
	}
	if n > 0 {
		return ErrDuplicateUser
	}
	return nil
}
