package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"serverbook/internal/access"
	"serverbook/internal/audit"
	"serverbook/internal/booking"
	"serverbook/internal/models"
)

// NewServer is the input of CreateServer.
type NewServer struct {
	Name      string
	IPAddress string
	Location  string
	HDDSize   int
	SSDSize   int
	RAMSize   int
	VRAMSize  int
	CPUModel  string
	GPUModel  string
}

// ServerSummary is a server with the ids of the users assigned to it.
type ServerSummary struct {
	models.Server
	UserIDs []uint64 `json:"user_ids"`
}

func (s *Service) ListServers(ctx context.Context) ([]ServerSummary, error) {
	var servers []models.Server
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&servers).Error; err != nil {
		return nil, fmt.Errorf("admin: list servers: %w", err)
	}
	chk := access.Checker{DB: s.db}
	out := make([]ServerSummary, 0, len(servers))
	for _, srv := range servers {
		ids, err := chk.UsersAssignedTo(ctx, srv.ID)
		if err != nil {
			return nil, fmt.Errorf("admin: users of server %d: %w", srv.ID, err)
		}
		out = append(out, ServerSummary{Server: srv, UserIDs: ids})
	}
	return out, nil
}

// CreateServer stores a server and generates its first
// booking.DefaultHorizonDays of slots. The server is kept even if slot
// generation fails; the periodic job fills the gap later.
func (s *Service) CreateServer(ctx context.Context, actorID uint64, in NewServer) (*models.Server, int, error) {
	server := models.Server{
		Name:      strings.TrimSpace(in.Name),
		IPAddress: strings.TrimSpace(in.IPAddress),
		Location:  strings.TrimSpace(in.Location),
		HDDSize:   in.HDDSize,
		SSDSize:   in.SSDSize,
		RAMSize:   in.RAMSize,
		VRAMSize:  in.VRAMSize,
		CPUModel:  strings.TrimSpace(in.CPUModel),
		GPUModel:  strings.TrimSpace(in.GPUModel),
	}
	if server.Name == "" || server.IPAddress == "" {
		return nil, 0, invalid("name and ip_address are required")
	}
	if server.HDDSize < 0 || server.SSDSize < 0 || server.RAMSize < 0 || server.VRAMSize < 0 {
		return nil, 0, invalid("sizes must not be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&server).Error; err != nil {
			return fmt.Errorf("admin: create server: %w", err)
		}
		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionCreateServer,
			Details:  fmt.Sprintf("Created server %s (%s)", server.Name, server.IPAddress),
			Metadata: map[string]any{"server_id": server.ID},
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	created, err := s.booking.GenerateSlots(ctx, server.ID, booking.DefaultHorizonDays)
	if err != nil {
		log.WithError(err).WithField("server_id", server.ID).Warn("initial slot generation failed")
	}
	return &server, created, nil
}

// DeleteServer removes a server together with its slots and assignments.
func (s *Service) DeleteServer(ctx context.Context, actorID, serverID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var server models.Server
		if err := tx.First(&server, serverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("server %d: %w", serverID, ErrNotFound)
			}
			return fmt.Errorf("admin: load server %d: %w", serverID, err)
		}

		slots := tx.Where("server_id = ?", server.ID).Delete(&models.TimeSlot{})
		if slots.Error != nil {
			return fmt.Errorf("admin: delete slots of server %d: %w", server.ID, slots.Error)
		}
		if err := tx.Where("server_id = ?", server.ID).Delete(&models.UserServer{}).Error; err != nil {
			return fmt.Errorf("admin: delete assignments of server %d: %w", server.ID, err)
		}
		if err := tx.Delete(&server).Error; err != nil {
			return fmt.Errorf("admin: delete server %d: %w", server.ID, err)
		}

		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionDeleteServer,
			Details:  fmt.Sprintf("Deleted server %s", server.Name),
			Metadata: map[string]any{"server_id": server.ID, "deleted_slots": slots.RowsAffected},
		})
		return nil
	})
}

// GenerateSlots extends serverID's slots over horizonDays on an
// administrator's request.
func (s *Service) GenerateSlots(ctx context.Context, actorID, serverID uint64, horizonDays int) (int, error) {
	var server models.Server
	if err := s.db.WithContext(ctx).Select("id", "name").First(&server, serverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("server %d: %w", serverID, ErrNotFound)
		}
		return 0, fmt.Errorf("admin: load server %d: %w", serverID, err)
	}
	if horizonDays <= 0 {
		horizonDays = booking.DefaultHorizonDays
	}
	created, err := s.booking.GenerateSlots(ctx, server.ID, horizonDays)
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, nil, audit.Entry{
		UserID:   actorRef(actorID),
		Action:   audit.ActionGenerateSlots,
		Details:  fmt.Sprintf("Generated %d slots for %s", created, server.Name),
		Metadata: map[string]any{"server_id": server.ID, "horizon_days": horizonDays, "created": created},
	})
	return created, nil
}

// Assign grants userID access to serverID. Assigning twice is a no-op.
func (s *Service) Assign(ctx context.Context, actorID, userID, serverID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, server, err := loadPair(tx, userID, serverID)
		if err != nil {
			return err
		}
		link := models.UserServer{
			UserID:          user.ID,
			ServerID:        server.ID,
			MaxQuota:        models.DefaultMaxQuota,
			AccessStartDate: s.booking.Today(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
		if res.Error != nil {
			return fmt.Errorf("admin: assign user %d to server %d: %w", user.ID, server.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionAssignServer,
			Details:  fmt.Sprintf("Granted %s access to %s", user.Username, server.Name),
			Metadata: map[string]any{"user_id": user.ID, "server_id": server.ID},
		})
		return nil
	})
}

// Unassign revokes userID's access to serverID. Existing reservations are
// kept. Unassigning a missing link is a no-op.
func (s *Service) Unassign(ctx context.Context, actorID, userID, serverID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, server, err := loadPair(tx, userID, serverID)
		if err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND server_id = ?", user.ID, server.ID).Delete(&models.UserServer{})
		if res.Error != nil {
			return fmt.Errorf("admin: unassign user %d from server %d: %w", user.ID, server.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		s.audit.Record(ctx, tx, audit.Entry{
			UserID:   actorRef(actorID),
			Action:   audit.ActionUnassignServer,
			Details:  fmt.Sprintf("Revoked %s's access to %s", user.Username, server.Name),
			Metadata: map[string]any{"user_id": user.ID, "server_id": server.ID},
		})
		return nil
	})
}

func loadPair(tx *gorm.DB, userID, serverID uint64) (*models.User, *models.Server, error) {
	var user models.User
	if err := tx.Select("id", "username").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("admin: load user %d: %w", userID, err)
	}
	var server models.Server
	if err := tx.Select("id", "name").First(&server, serverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("server %d: %w", serverID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("admin: load server %d: %w", serverID, err)
	}
	return &user, &server, nil
}
