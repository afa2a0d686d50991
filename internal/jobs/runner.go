// Package jobs runs the periodic maintenance of the booking store: keeping
// the slot horizon filled and resetting the legacy monthly counters.
package jobs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"serverbook/internal/admin"
	"serverbook/internal/audit"
	"serverbook/internal/booking"
	"serverbook/internal/models"
)

const defaultInterval = 24 * time.Hour

// Runner periodically generates slots for every server and, once per
// calendar month, resets the assignment counters.
type Runner struct {
	db       *gorm.DB
	booking  *booking.Service
	admin    *admin.Service
	interval time.Duration
	horizon  int
}

func NewRunner(db *gorm.DB, bookingSvc *booking.Service, adminSvc *admin.Service, interval time.Duration, horizonDays int) *Runner {
	if db == nil || bookingSvc == nil || adminSvc == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if horizonDays <= 0 {
		horizonDays = booking.DefaultHorizonDays
	}
	return &Runner{
		db:       db,
		booking:  bookingSvc,
		admin:    adminSvc,
		interval: interval,
		horizon:  horizonDays,
	}
}

// Start launches the loop in a background goroutine. The first pass runs
// immediately.
func (r *Runner) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go r.run(ctx)
	log.Infof("maintenance jobs started (interval=%s horizon=%dd)", r.interval, r.horizon)
}

func (r *Runner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		r.RunOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// RunOnce performs a single maintenance pass.
func (r *Runner) RunOnce(ctx context.Context) {
	if r == nil {
		return
	}
	if created := r.booking.GenerateAll(ctx, r.horizon); created > 0 {
		log.Infof("maintenance: generated %d slots", created)
	}

	due, err := r.resetDue(ctx)
	if err != nil {
		log.WithError(err).Warn("maintenance: check counter reset")
		return
	}
	if !due {
		return
	}
	n, err := r.admin.ResetMonthlyCounters(ctx, 0)
	if err != nil {
		log.WithError(err).Warn("maintenance: reset monthly counters")
		return
	}
	log.Infof("maintenance: reset monthly counters of %d assignments", n)
}

// resetDue reports whether no counter reset has been recorded since the
// start of the current month. The audit trail doubles as the run marker so
// restarts do not reset twice. Audit rows are stamped in UTC, so the month
// start is compared in UTC as well.
func (r *Runner) resetDue(ctx context.Context) (bool, error) {
	today := r.booking.Today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).UTC()
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("action = ? AND created_at >= ?", audit.ActionResetQuotas, monthStart).
		Count(&n).Error
	return n == 0, err
}
