package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"serverbook/internal/models"
)

// DefaultHorizonDays is how far ahead slots are generated for a new server.
const DefaultHorizonDays = 30

const slotInsertBatch = 100

// GenerateSlots makes sure serverID has one slot for every day in
// [today, today+horizonDays). Days that already have a slot are left alone,
// so repeated calls are harmless. An unknown server is a no-op. The new
// slots are inserted in one transaction; on failure nothing is kept.
func (s *Service) GenerateSlots(ctx context.Context, serverID uint64, horizonDays int) (int, error) {
	if horizonDays <= 0 {
		return 0, nil
	}
	conn := s.db.WithContext(ctx)

	var server models.Server
	if err := conn.Select("id", "name").First(&server, serverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithField("server_id", serverID).Debug("generate slots: server not found, skipping")
			return 0, nil
		}
		return 0, fmt.Errorf("booking: load server %d: %w", serverID, err)
	}

	start := startOfDay(s.now(), s.loc)
	end := start.AddDate(0, 0, horizonDays)

	var existing []models.TimeSlot
	if err := conn.Select("start_time").
		Where("server_id = ? AND start_time >= ? AND start_time < ?", server.ID, start, end).
		Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("booking: list slots of server %d: %w", server.ID, err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, slot := range existing {
		have[startOfDay(slot.StartTime, s.loc).Format(dateLayout)] = struct{}{}
	}

	var fresh []models.TimeSlot
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if _, ok := have[day.Format(dateLayout)]; ok {
			continue
		}
		fresh = append(fresh, models.TimeSlot{
			ServerID:  server.ID,
			StartTime: day,
			EndTime:   endOfDay(day),
		})
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&fresh, slotInsertBatch).Error
	})
	if err != nil {
		log.WithError(err).WithField("server_id", server.ID).Error("generate slots failed")
		return 0, fmt.Errorf("booking: insert slots for server %d: %w", server.ID, err)
	}

	log.Infof("generated %d daily slots for %s", len(fresh), server.Name)
	return len(fresh), nil
}

// GenerateAll runs GenerateSlots for every server. A failing server is
// logged and skipped. It returns the number of slots created.
func (s *Service) GenerateAll(ctx context.Context, horizonDays int) int {
	var ids []uint64
	if err := s.db.WithContext(ctx).Model(&models.Server{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		log.WithError(err).Error("generate slots: list servers")
		return 0
	}
	total := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		n, err := s.GenerateSlots(ctx, id, horizonDays)
		if err != nil {
			continue
		}
		total += n
	}
	return total
}

// SlotsBetween lists serverID's slots starting in [from, to), ordered by day.
func (s *Service) SlotsBetween(ctx context.Context, serverID uint64, from, to time.Time) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := s.db.WithContext(ctx).
		Preload("ReservedBy").
		Where("server_id = ? AND start_time >= ? AND start_time < ?", serverID, from.In(s.loc), to.In(s.loc)).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("booking: list slots: %w", err)
	}
	return slots, nil
}
