package booking

import (
	"context"
	"fmt"
	"math"

	"gorm.io/gorm"

	"serverbook/internal/models"
)

// Quota status values.
const (
	StatusSuccess = "success"
	StatusDanger  = "danger"
)

// QuotaStats describes a user's monthly usage of one server.
type QuotaStats struct {
	Max       int     `json:"max"`
	Used      int     `json:"used"`
	Remaining int     `json:"remaining"`
	Percent   float64 `json:"percent"`
	Status    string  `json:"status"`
}

// NewQuotaStats derives the remaining/percent/status fields from max and used.
func NewQuotaStats(max, used int) QuotaStats {
	stats := QuotaStats{
		Max:       max,
		Used:      used,
		Remaining: max - used,
		Status:    StatusSuccess,
	}
	if max > 0 {
		stats.Percent = math.Round(float64(used)/float64(max)*100*10) / 10
	}
	if used >= max {
		stats.Status = StatusDanger
	}
	return stats
}

// Quota reports how many of the monthly slots userID holds on serverID in
// the current calendar month.
func (s *Service) Quota(ctx context.Context, userID, serverID uint64) (QuotaStats, error) {
	conn := s.db.WithContext(ctx)
	if err := ensureExists(conn, &models.User{}, userID, "user"); err != nil {
		return QuotaStats{}, err
	}
	if err := ensureExists(conn, &models.Server{}, serverID, "server"); err != nil {
		return QuotaStats{}, err
	}

	monthStart, monthEnd := monthBounds(startOfDay(s.now(), s.loc))
	used, err := countHeld(conn, userID, serverID, monthStart, monthEnd)
	if err != nil {
		return QuotaStats{}, err
	}
	return NewQuotaStats(MonthlyLimit, used), nil
}

func ensureExists(conn *gorm.DB, model any, id uint64, kind string) error {
	var n int64
	if err := conn.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("booking: look up %s %d: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
