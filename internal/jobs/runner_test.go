package jobs

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"serverbook/internal/admin"
	"serverbook/internal/audit"
	"serverbook/internal/booking"
	"serverbook/internal/models"
	"serverbook/internal/testfixtures"
)

func newTestRunner(t *testing.T, horizon int) (*Runner, *gorm.DB, *testfixtures.Clock) {
	t.Helper()
	conn := testfixtures.OpenDB(t)
	clock := testfixtures.NewClock(time.Time{})
	logger := audit.NewLogger(conn, clock.NowFunc())
	bookingSvc := booking.NewService(conn, logger, booking.WithClock(clock.NowFunc()), booking.WithLocation(time.UTC))
	adminSvc := admin.NewService(conn, logger, bookingSvc)
	return NewRunner(conn, bookingSvc, adminSvc, time.Hour, horizon), conn, clock
}

func countResets(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&models.AuditLog{}).Where("action = ?", audit.ActionResetQuotas).Count(&n).Error; err != nil {
		t.Fatalf("count resets: %v", err)
	}
	return n
}

func TestRunOnceGeneratesAndResetsOncePerMonth(t *testing.T) {
	r, conn, clock := newTestRunner(t, 7)
	ctx := context.Background()
	server := testfixtures.CreateServer(t, conn)
	user := testfixtures.CreateUser(t, conn)
	testfixtures.Assign(t, conn, user.ID, server.ID)
	conn.Model(&models.UserServer{}).Where("user_id = ?", user.ID).Update("used_quota", 5)

	r.RunOnce(ctx)

	var slots int64
	conn.Model(&models.TimeSlot{}).Where("server_id = ?", server.ID).Count(&slots)
	if slots != 7 {
		t.Fatalf("expected 7 slots, got %d", slots)
	}
	if n := countResets(t, conn); n != 1 {
		t.Fatalf("expected first pass to reset counters, got %d resets", n)
	}
	var link models.UserServer
	conn.Where("user_id = ?", user.ID).First(&link)
	if link.UsedQuota != 0 {
		t.Fatalf("expected counters zeroed, got %d", link.UsedQuota)
	}

	clock.Advance(24 * time.Hour)
	r.RunOnce(ctx)
	conn.Model(&models.TimeSlot{}).Where("server_id = ?", server.ID).Count(&slots)
	if slots != 8 {
		t.Fatalf("expected horizon to roll forward to 8 slots, got %d", slots)
	}
	if n := countResets(t, conn); n != 1 {
		t.Fatalf("expected no second reset within October, got %d", n)
	}

	clock.Set(time.Date(2026, time.November, 1, 0, 5, 0, 0, time.UTC))
	r.RunOnce(ctx)
	if n := countResets(t, conn); n != 2 {
		t.Fatalf("expected a reset in November, got %d", n)
	}
}

func TestResetMonthFollowsServiceLocation(t *testing.T) {
	ny, errNY := time.LoadLocation("America/New_York")
	tokyo, errTokyo := time.LoadLocation("Asia/Tokyo")
	if errNY != nil || errTokyo != nil {
		t.Skipf("tzdata unavailable: %v %v", errNY, errTokyo)
	}
	conn := testfixtures.OpenDB(t)
	clock := testfixtures.NewClock(time.Date(2026, time.October, 31, 22, 0, 0, 0, ny))
	// The audit clock runs in another zone than the booking calendar.
	logger := audit.NewLogger(conn, func() time.Time { return clock.Now().In(tokyo) })
	bookingSvc := booking.NewService(conn, logger, booking.WithClock(clock.NowFunc()), booking.WithLocation(ny))
	adminSvc := admin.NewService(conn, logger, bookingSvc)
	r := NewRunner(conn, bookingSvc, adminSvc, time.Hour, 1)
	ctx := context.Background()

	r.RunOnce(ctx)
	if n := countResets(t, conn); n != 1 {
		t.Fatalf("expected an October reset, got %d", n)
	}

	clock.Set(time.Date(2026, time.November, 1, 0, 30, 0, 0, ny))
	r.RunOnce(ctx)
	if n := countResets(t, conn); n != 2 {
		t.Fatalf("expected a reset on the first of November in New York, got %d", n)
	}

	clock.Advance(time.Hour)
	r.RunOnce(ctx)
	if n := countResets(t, conn); n != 2 {
		t.Fatalf("expected no second November reset, got %d", n)
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	if NewRunner(nil, nil, nil, time.Minute, 1) != nil {
		t.Fatalf("expected nil runner without dependencies")
	}
	r, _, _ := newTestRunner(t, 0)
	if r.horizon != booking.DefaultHorizonDays {
		t.Fatalf("expected default horizon, got %d", r.horizon)
	}

	var nilRunner *Runner
	nilRunner.Start(context.Background())
	nilRunner.RunOnce(context.Background())
}

func TestStartStopsWithContext(t *testing.T) {
	r, conn, _ := newTestRunner(t, 3)
	testfixtures.CreateServer(t, conn)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		var n int64
		conn.Model(&models.TimeSlot{}).Count(&n)
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("first pass did not run, %d slots", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
}
