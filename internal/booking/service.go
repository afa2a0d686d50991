// Package booking implements slot generation, quota accounting and the
// reservation lifecycle of server time slots.
//
// A slot is FREE or RESERVED by exactly one user. Book moves FREE to
// RESERVED under the assignment and monthly/weekly limits; Cancel lets the
// holder free a future slot; OverrideCancel lets an administrator free any
// reserved slot.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"serverbook/internal/access"
	"serverbook/internal/audit"
	"serverbook/internal/models"
)

// Booking limits per user and server.
const (
	MonthlyLimit = 8
	WeeklyLimit  = 2
)

type Service struct {
	db    *gorm.DB
	audit *audit.Logger
	now   func() time.Time
	loc   *time.Location
}

type Option func(*Service)

// WithClock overrides the wall clock used for "today" and the current month.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(db *gorm.DB, auditLog *audit.Logger, opts ...Option) *Service {
	s := &Service{
		db:    db,
		audit: auditLog,
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time in the service location.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Today is midnight of the current calendar day in the service location.
func (s *Service) Today() time.Time { return startOfDay(s.now(), s.loc) }

// Book reserves slotID for userID. The monthly and weekly limits are counted
// against the slot's own date, not the time of the request.
func (s *Service) Book(ctx context.Context, userID, slotID uint64) (*models.TimeSlot, error) {
	var booked models.TimeSlot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		slot, err := loadSlot(tx, slotID)
		if err != nil {
			return err
		}
		if err := requireAssigned(ctx, tx, userID, slot.ServerID); err != nil {
			return err
		}
		if slot.IsReserved() {
			return reject(ReasonAlreadyReserved, "This day is already reserved.")
		}

		day := startOfDay(slot.StartTime, s.loc)
		monthStart, monthEnd := monthBounds(day)
		monthly, err := countHeld(tx, userID, slot.ServerID, monthStart, monthEnd)
		if err != nil {
			return err
		}
		if monthly >= MonthlyLimit {
			return reject(ReasonMonthlyLimit,
				"Monthly quota reached: you cannot book more than %d days per month. (Used: %d/%d)",
				MonthlyLimit, monthly, MonthlyLimit)
		}

		weekStart, weekEnd := weekBounds(day)
		weekly, err := countHeld(tx, userID, slot.ServerID, weekStart, weekEnd)
		if err != nil {
			return err
		}
		if weekly >= WeeklyLimit {
			return reject(ReasonWeeklyLimit,
				"Weekly limit reached: you can only book %d days per week (Sun-Sat).", WeeklyLimit)
		}

		// The IS NULL guard makes a concurrent booker lose cleanly.
		res := tx.Model(&models.TimeSlot{}).
			Where("id = ? AND reserved_by_user_id IS NULL", slot.ID).
			Update("reserved_by_user_id", userID)
		if res.Error != nil {
			return fmt.Errorf("booking: reserve slot %d: %w", slot.ID, res.Error)
		}
		if res.RowsAffected != 1 {
			return reject(ReasonAlreadyReserved, "This day is already reserved.")
		}

		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   &user.ID,
			Username: user.Username,
			Action:   audit.ActionBookSlot,
			Details:  fmt.Sprintf("Reserved %s for %s", slot.Server.Name, day.Format(dateLayout)),
			Metadata: map[string]any{"slot_id": slot.ID, "server_id": slot.ServerID, "date": day.Format(dateLayout)},
		})

		slot.ReservedByUserID = &user.ID
		booked = *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booked, nil
}

// Cancel frees a slot held by userID. Only slots dated after the day of now
// may be cancelled.
func (s *Service) Cancel(ctx context.Context, userID, slotID uint64, now time.Time) (*models.TimeSlot, error) {
	var cancelled models.TimeSlot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		slot, err := loadSlot(tx, slotID)
		if err != nil {
			return err
		}
		if err := requireAssigned(ctx, tx, userID, slot.ServerID); err != nil {
			return err
		}
		if !slot.IsReserved() {
			return reject(ReasonNotReserved, "This day is not reserved.")
		}
		if !slot.HeldBy(userID) {
			return reject(ReasonAlreadyReserved, "This day is already reserved.")
		}

		today := startOfDay(now, s.loc)
		day := startOfDay(slot.StartTime, s.loc)
		switch {
		case day.Before(today):
			return reject(ReasonAlreadyPassed, "You cannot cancel a reservation that has already passed.")
		case day.Equal(today):
			return reject(ReasonCurrentDay, "You cannot cancel a reservation for the current day.")
		}

		res := tx.Model(&models.TimeSlot{}).
			Where("id = ? AND reserved_by_user_id = ?", slot.ID, userID).
			Update("reserved_by_user_id", nil)
		if res.Error != nil {
			return fmt.Errorf("booking: cancel slot %d: %w", slot.ID, res.Error)
		}
		if res.RowsAffected != 1 {
			return reject(ReasonNotReserved, "This day is not reserved.")
		}

		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   &user.ID,
			Username: user.Username,
			Action:   audit.ActionCancelSlot,
			Details:  fmt.Sprintf("Cancelled reservation for %s on %s", slot.Server.Name, day.Format(dateLayout)),
			Metadata: map[string]any{"slot_id": slot.ID, "server_id": slot.ServerID, "date": day.Format(dateLayout)},
		})

		slot.ReservedByUserID = nil
		cancelled = *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// OverrideResult reports what an administrative cancel did. Cleared is false
// when the slot was already free.
type OverrideResult struct {
	SlotID           uint64    `json:"slot_id"`
	ServerID         uint64    `json:"server_id"`
	ServerName       string    `json:"server_name"`
	Date             time.Time `json:"date"`
	Cleared          bool      `json:"cleared"`
	PreviousUserID   uint64    `json:"previous_user_id,omitempty"`
	PreviousUsername string    `json:"previous_username,omitempty"`
}

// OverrideCancel frees slotID regardless of its date. actorID is the
// administrator recorded in the audit trail; zero records a system action.
func (s *Service) OverrideCancel(ctx context.Context, actorID, slotID uint64) (OverrideResult, error) {
	var result OverrideResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.TimeSlot
		if err := tx.Preload("Server").Preload("ReservedBy").First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("slot %d: %w", slotID, ErrNotFound)
			}
			return fmt.Errorf("booking: load slot %d: %w", slotID, err)
		}

		day := startOfDay(slot.StartTime, s.loc)
		result = OverrideResult{SlotID: slot.ID, ServerID: slot.ServerID, Date: day}
		if slot.Server != nil {
			result.ServerName = slot.Server.Name
		}
		if !slot.IsReserved() {
			return nil
		}

		previous := *slot.ReservedByUserID
		res := tx.Model(&models.TimeSlot{}).
			Where("id = ? AND reserved_by_user_id = ?", slot.ID, previous).
			Update("reserved_by_user_id", nil)
		if res.Error != nil {
			return fmt.Errorf("booking: override cancel slot %d: %w", slot.ID, res.Error)
		}
		if res.RowsAffected != 1 {
			return nil
		}

		result.Cleared = true
		result.PreviousUserID = previous
		if slot.ReservedBy != nil {
			result.PreviousUsername = slot.ReservedBy.Username
		}

		entry := audit.Entry{
			Action: audit.ActionOverrideCancelSlot,
			Details: fmt.Sprintf("Cleared %s's reservation of %s on %s",
				result.PreviousUsername, result.ServerName, day.Format(dateLayout)),
			Metadata: map[string]any{
				"slot_id":           slot.ID,
				"server_id":         slot.ServerID,
				"date":              day.Format(dateLayout),
				"previous_user_id":  previous,
				"previous_username": result.PreviousUsername,
			},
		}
		if actorID != 0 {
			entry.UserID = &actorID
		}
		s.audit.Record(ctx, tx, entry)
		return nil
	})
	if err != nil {
		return OverrideResult{}, err
	}
	return result, nil
}

func loadUser(tx *gorm.DB, userID uint64) (*models.User, error) {
	var user models.User
	if err := tx.Select("id", "username").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("booking: load user %d: %w", userID, err)
	}
	return &user, nil
}

func loadSlot(tx *gorm.DB, slotID uint64) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := tx.Preload("Server").First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("slot %d: %w", slotID, ErrNotFound)
		}
		return nil, fmt.Errorf("booking: load slot %d: %w", slotID, err)
	}
	if slot.Server == nil {
		slot.Server = &models.Server{ID: slot.ServerID}
	}
	return &slot, nil
}

func requireAssigned(ctx context.Context, tx *gorm.DB, userID, serverID uint64) error {
	ok, err := access.Checker{DB: tx}.Assigned(ctx, userID, serverID)
	if err != nil {
		return fmt.Errorf("booking: check assignment: %w", err)
	}
	if !ok {
		return reject(ReasonNotAssigned, "Access denied: you are not assigned to this server.")
	}
	return nil
}

// countHeld counts slots on serverID held by userID starting in [from, to).
func countHeld(tx *gorm.DB, userID, serverID uint64, from, to time.Time) (int, error) {
	var n int64
	err := tx.Model(&models.TimeSlot{}).
		Where("server_id = ? AND reserved_by_user_id = ? AND start_time >= ? AND start_time < ?",
			serverID, userID, from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("booking: count reservations: %w", err)
	}
	return int(n), nil
}
