package audit_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"serverbook/internal/audit"
	"serverbook/internal/models"
	"serverbook/internal/testfixtures"
)

func TestRecordFillsUsernameAndMetadata(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	logger := audit.NewLogger(conn, clock.NowFunc())
	user := testfixtures.CreateUser(t, conn)

	logger.Record(context.Background(), nil, audit.Entry{
		UserID:    &user.ID,
		Action:    audit.ActionChangePassword,
		Details:   "Password changed",
		Metadata:  map[string]any{"self": true},
		IP:        "192.0.2.1",
		UserAgent: strings.Repeat("x", 300),
	})

	var row models.AuditLog
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load audit row: %v", err)
	}
	if row.Username != user.Username {
		t.Fatalf("expected username %q, got %q", user.Username, row.Username)
	}
	if !row.CreatedAt.Equal(testfixtures.ReferenceTime()) {
		t.Fatalf("expected clock time, got %s", row.CreatedAt)
	}
	if string(row.Metadata) != `{"self":true}` {
		t.Fatalf("unexpected metadata %s", row.Metadata)
	}
	if len(row.UserAgent) != 255 || row.IP != "192.0.2.1" {
		t.Fatalf("unexpected request fields: ip=%q ua len=%d", row.IP, len(row.UserAgent))
	}
}

func TestRecordTruncatesOnRuneBoundary(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	logger := audit.NewLogger(conn, testfixtures.NewClock(time.Time{}).NowFunc())

	// Byte 255 falls inside a character for both fields.
	logger.Record(context.Background(), nil, audit.Entry{
		Action:    audit.ActionUpdateUser,
		Details:   strings.Repeat("é", 200),
		UserAgent: "ab" + strings.Repeat("日", 100),
	})

	var row models.AuditLog
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load audit row: %v", err)
	}
	if !utf8.ValidString(row.Details) || len(row.Details) != 254 {
		t.Fatalf("details not cut on a rune boundary: len=%d valid=%v", len(row.Details), utf8.ValidString(row.Details))
	}
	if !utf8.ValidString(row.UserAgent) || len(row.UserAgent) != 254 {
		t.Fatalf("user agent not cut on a rune boundary: len=%d valid=%v", len(row.UserAgent), utf8.ValidString(row.UserAgent))
	}
	if row.Details != strings.Repeat("é", 127) {
		t.Fatalf("unexpected details %q", row.Details)
	}
}

func TestRecordCommitsWithCallerTransaction(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	logger := audit.NewLogger(conn, nil)
	ctx := context.Background()

	errAbort := errors.New("abort")
	err := conn.Transaction(func(tx *gorm.DB) error {
		logger.Record(ctx, tx, audit.Entry{Action: audit.ActionResetQuotas, Details: "rolled back"})
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("unexpected transaction error: %v", err)
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		logger.Record(ctx, tx, audit.Entry{Action: audit.ActionResetQuotas, Details: "committed"})
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	var rows []models.AuditLog
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Details != "committed" || rows[0].UserID != nil {
		t.Fatalf("expected only the committed system entry, got %+v", rows)
	}
}

func TestRecordFailureIsSwallowed(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	logger := audit.NewLogger(conn, nil)
	server := testfixtures.CreateServer(t, conn)

	if err := conn.Migrator().DropTable(&models.AuditLog{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Server{}).Where("id = ?", server.ID).Update("location", "rack B").Error; err != nil {
			return err
		}
		logger.Record(context.Background(), tx, audit.Entry{Action: audit.ActionCreateServer})
		return nil
	})
	if err != nil {
		t.Fatalf("caller transaction must survive audit failure: %v", err)
	}

	var reloaded models.Server
	if err := conn.First(&reloaded, server.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Location != "rack B" {
		t.Fatalf("expected caller mutation to commit, got %q", reloaded.Location)
	}

	var nilLogger *audit.Logger
	nilLogger.Record(context.Background(), nil, audit.Entry{Action: audit.ActionCreateServer})
}

func seedEntries(t *testing.T, logger *audit.Logger, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		action := audit.ActionBookSlot
		if i%2 == 0 {
			action = audit.ActionCancelSlot
		}
		logger.Record(context.Background(), nil, audit.Entry{
			Username: fmt.Sprintf("member%02d", i),
			Action:   action,
			Details:  fmt.Sprintf("entry %d", i),
		})
	}
}

func TestListPaginatesNewestFirst(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	seedEntries(t, audit.NewLogger(conn, nil), 5)
	ctx := context.Background()

	first, err := audit.List(ctx, conn, audit.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Logs) != 2 || first.Logs[0].Details != "entry 5" || first.Logs[1].Details != "entry 4" {
		t.Fatalf("unexpected first page: %+v", first.Logs)
	}
	if first.NextCursor == nil || *first.NextCursor != first.Logs[1].ID {
		t.Fatalf("expected cursor at the last returned id, got %v", first.NextCursor)
	}

	second, err := audit.List(ctx, conn, audit.Filter{Limit: 2, AfterID: *first.NextCursor})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(second.Logs) != 2 || second.Logs[0].Details != "entry 3" {
		t.Fatalf("unexpected second page: %+v", second.Logs)
	}

	third, err := audit.List(ctx, conn, audit.Filter{Limit: 2, AfterID: *second.NextCursor})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(third.Logs) != 1 || third.Logs[0].Details != "entry 1" || third.NextCursor != nil {
		t.Fatalf("unexpected last page: %+v cursor=%v", third.Logs, third.NextCursor)
	}
}

func TestListFilters(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	logger := audit.NewLogger(conn, nil)
	seedEntries(t, logger, 4)
	user := testfixtures.CreateUser(t, conn)
	logger.Record(context.Background(), nil, audit.Entry{UserID: &user.ID, Action: audit.ActionDeleteUser, Details: "Removed GPU-Node access"})
	ctx := context.Background()

	page, err := audit.List(ctx, conn, audit.Filter{Action: "cancel_slot"})
	if err != nil {
		t.Fatalf("list by action: %v", err)
	}
	if len(page.Logs) != 2 {
		t.Fatalf("expected 2 cancel entries, got %d", len(page.Logs))
	}

	page, err = audit.List(ctx, conn, audit.Filter{Query: "gpu-node"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Logs) != 1 || page.Logs[0].Action != audit.ActionDeleteUser {
		t.Fatalf("expected case-insensitive match on details, got %+v", page.Logs)
	}

	page, err = audit.List(ctx, conn, audit.Filter{UserID: &user.ID})
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(page.Logs) != 1 || page.Logs[0].Username != user.Username {
		t.Fatalf("expected the user's entry, got %+v", page.Logs)
	}

	page, err = audit.List(ctx, conn, audit.Filter{Query: "member0"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Logs) != 4 {
		t.Fatalf("expected 4 member entries, got %d", len(page.Logs))
	}
}

func TestRecordTakesRequestInfoFromContext(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	logger := audit.NewLogger(conn, nil)

	ctx := audit.WithRequestInfo(context.Background(), "198.51.100.7", "curl/8.0")
	logger.Record(ctx, nil, audit.Entry{Action: audit.ActionResetQuotas})

	var row models.AuditLog
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load audit row: %v", err)
	}
	if row.IP != "198.51.100.7" || row.UserAgent != "curl/8.0" {
		t.Fatalf("expected request info from context, got %q %q", row.IP, row.UserAgent)
	}
}
