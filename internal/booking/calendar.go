package booking

import (
	"context"
	"fmt"
	"time"

	"serverbook/internal/access"
	"serverbook/internal/models"
)

// CalendarDay is one cell of a month grid. Day is zero for padding cells
// that belong to the neighbouring months.
type CalendarDay struct {
	Day        int     `json:"day"`
	Date       string  `json:"date,omitempty"`
	SlotID     *uint64 `json:"slot_id,omitempty"`
	Reserved   bool    `json:"reserved"`
	Mine       bool    `json:"mine"`
	ReservedBy string  `json:"reserved_by,omitempty"`
}

// YearMonth names a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthCalendar is a Sunday-first grid of one server's slots for a month.
type MonthCalendar struct {
	ServerID   uint64           `json:"server_id"`
	ServerName string           `json:"server_name"`
	Year       int              `json:"year"`
	Month      time.Month       `json:"month"`
	MonthName  string           `json:"month_name"`
	Weeks      [][7]CalendarDay `json:"weeks"`
	Prev       YearMonth        `json:"prev"`
	Next       YearMonth        `json:"next"`
}

// Calendar builds the month view of serverID for userID. A zero year or
// month selects the current one.
func (s *Service) Calendar(ctx context.Context, userID, serverID uint64, year int, month time.Month) (*MonthCalendar, error) {
	conn := s.db.WithContext(ctx)

	var server models.Server
	if err := conn.Select("id", "name").Where("id = ?", serverID).Limit(1).Find(&server).Error; err != nil {
		return nil, fmt.Errorf("booking: load server %d: %w", serverID, err)
	}
	if server.ID == 0 {
		return nil, fmt.Errorf("server %d: %w", serverID, ErrNotFound)
	}
	if err := requireAssigned(ctx, conn, userID, serverID); err != nil {
		return nil, err
	}

	now := s.Now()
	if year <= 0 {
		year = now.Year()
	}
	if month < time.January || month > time.December {
		month = now.Month()
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	_, next := monthBounds(first)
	slots, err := s.SlotsBetween(ctx, serverID, first, next)
	if err != nil {
		return nil, err
	}
	byDay := make(map[int]models.TimeSlot, len(slots))
	for _, slot := range slots {
		byDay[startOfDay(slot.StartTime, s.loc).Day()] = slot
	}

	cal := &MonthCalendar{
		ServerID:   server.ID,
		ServerName: server.Name,
		Year:       year,
		Month:      month,
		MonthName:  month.String(),
		Prev:       yearMonthOf(first.AddDate(0, 0, -1)),
		Next:       yearMonthOf(next),
	}

	var week [7]CalendarDay
	col := int(first.Weekday())
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		cell := CalendarDay{Day: day.Day(), Date: day.Format(dateLayout)}
		if slot, ok := byDay[day.Day()]; ok {
			id := slot.ID
			cell.SlotID = &id
			cell.Reserved = slot.IsReserved()
			cell.Mine = slot.HeldBy(userID)
			if slot.ReservedBy != nil {
				cell.ReservedBy = slot.ReservedBy.Username
			}
		}
		week[col] = cell
		col++
		if col == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = [7]CalendarDay{}
			col = 0
		}
	}
	if col > 0 {
		cal.Weeks = append(cal.Weeks, week)
	}
	return cal, nil
}

func yearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ServerQuota pairs an assigned server with the caller's quota on it.
type ServerQuota struct {
	Server models.Server `json:"server"`
	Quota  QuotaStats    `json:"quota"`
}

// Dashboard is the landing view of a user.
type Dashboard struct {
	Servers  []ServerQuota     `json:"servers"`
	Upcoming []models.TimeSlot `json:"upcoming"`
}

// AssignedServers returns the servers userID may book, ordered by id.
func (s *Service) AssignedServers(ctx context.Context, userID uint64) ([]models.Server, error) {
	ids, err := access.Checker{DB: s.db}.ServersAssignedTo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("booking: assigned servers: %w", err)
	}
	if len(ids) == 0 {
		return []models.Server{}, nil
	}
	var servers []models.Server
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&servers).Error; err != nil {
		return nil, fmt.Errorf("booking: load servers: %w", err)
	}
	return servers, nil
}

// Upcoming lists userID's reservations from today onwards, soonest first.
func (s *Service) Upcoming(ctx context.Context, userID uint64) ([]models.TimeSlot, error) {
	today := s.Today()
	var slots []models.TimeSlot
	err := s.db.WithContext(ctx).
		Preload("Server").
		Where("reserved_by_user_id = ? AND start_time >= ?", userID, today).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("booking: upcoming reservations: %w", err)
	}
	return slots, nil
}

// Dashboard collects quota stats for every assigned server and the
// upcoming reservations of userID.
func (s *Service) Dashboard(ctx context.Context, userID uint64) (*Dashboard, error) {
	servers, err := s.AssignedServers(ctx, userID)
	if err != nil {
		return nil, err
	}
	dash := &Dashboard{Servers: make([]ServerQuota, 0, len(servers))}
	for _, server := range servers {
		stats, err := s.Quota(ctx, userID, server.ID)
		if err != nil {
			return nil, err
		}
		dash.Servers = append(dash.Servers, ServerQuota{Server: server, Quota: stats})
	}
	dash.Upcoming, err = s.Upcoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dash, nil
}
