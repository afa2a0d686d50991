// Package admin holds the administrator operations around the booking core:
// user and server management, access assignment and the monthly counter
// reset. Every mutation is recorded in the audit log.
package admin

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"serverbook/internal/audit"
	"serverbook/internal/booking"
	"serverbook/internal/models"
)

type Service struct {
	db      *gorm.DB
	audit   *audit.Logger
	booking *booking.Service
}

// NewService wires the admin operations. bookingSvc supplies the clock and
// slot generation for new servers.
func NewService(db *gorm.DB, auditLog *audit.Logger, bookingSvc *booking.Service) *Service {
	return &Service{db: db, audit: auditLog, booking: bookingSvc}
}

// Stats are the counts shown on the admin dashboard.
type Stats struct {
	Users                int64 `json:"users"`
	Admins               int64 `json:"admins"`
	Servers              int64 `json:"servers"`
	UpcomingReservations int64 `json:"upcoming_reservations"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	conn := s.db.WithContext(ctx)
	var st Stats
	if err := conn.Model(&models.User{}).Count(&st.Users).Error; err != nil {
		return Stats{}, fmt.Errorf("admin: count users: %w", err)
	}
	if err := conn.Model(&models.User{}).Where("is_admin = ?", true).Count(&st.Admins).Error; err != nil {
		return Stats{}, fmt.Errorf("admin: count admins: %w", err)
	}
	if err := conn.Model(&models.Server{}).Count(&st.Servers).Error; err != nil {
		return Stats{}, fmt.Errorf("admin: count servers: %w", err)
	}
	if err := conn.Model(&models.TimeSlot{}).
		Where("reserved_by_user_id IS NOT NULL AND start_time >= ?", s.booking.Today()).
		Count(&st.UpcomingReservations).Error; err != nil {
		return Stats{}, fmt.Errorf("admin: count reservations: %w", err)
	}
	return st, nil
}

// ResetMonthlyCounters zeroes the legacy used_quota of every assignment.
// actorID zero records a system action.
func (s *Service) ResetMonthlyCounters(ctx context.Context, actorID uint64) (int64, error) {
	var reset int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Model(&models.UserServer{}).
			Update("used_quota", 0)
		if res.Error != nil {
			return fmt.Errorf("admin: reset counters: %w", res.Error)
		}
		reset = res.RowsAffected
		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionResetQuotas,
			Details:  fmt.Sprintf("Reset monthly counters of %d assignments", reset),
			Metadata: map[string]any{"assignments": reset},
		})
		return nil
	})
	return reset, err
}

func actorRef(actorID uint64) *uint64 {
	if actorID == 0 {
		return nil
	}
	return &actorID
}
