// Package testfixtures holds shared helpers for tests that need a migrated
// database, a controllable clock and a few seeded records.
package testfixtures

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"serverbook/internal/db"
)

var dbCounter uint64

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d_%d?mode=memory&cache=shared", name, time.Now().UnixNano(), atomic.AddUint64(&dbCounter, 1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("sql handle: %v", err)
	}
	// One connection keeps shared-cache table locks out of the picture.
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(conn); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
