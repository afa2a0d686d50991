// Package audit keeps the append-only trail of booking and administrative
// actions. Writes are best effort: a failed write is logged and never
// reaches the caller.
package audit

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"serverbook/internal/models"
)

// Action tags.
const (
	ActionBookSlot           = "BOOK_SLOT"
	ActionCancelSlot         = "CANCEL_SLOT"
	ActionOverrideCancelSlot = "OVERRIDE_CANCEL_SLOT"
	ActionGenerateSlots      = "GENERATE_SLOTS"
	ActionResetQuotas        = "RESET_QUOTAS"
	ActionCreateUser         = "CREATE_USER"
	ActionUpdateUser         = "UPDATE_USER"
	ActionDeleteUser         = "DELETE_USER"
	ActionChangePassword     = "CHANGE_PASSWORD"
	ActionCreateServer       = "CREATE_SERVER"
	ActionDeleteServer       = "DELETE_SERVER"
	ActionAssignServer       = "ASSIGN_SERVER"
	ActionUnassignServer     = "UNASSIGN_SERVER"
)

// Entry describes one action to record. A nil UserID marks a system action.
type Entry struct {
	UserID    *uint64
	Username  string
	Action    string
	Details   string
	Metadata  map[string]any
	IP        string
	UserAgent string
}

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequestInfo attaches the client address and user agent to ctx so
// entries recorded under it carry them.
func WithRequestInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{ip: ip, userAgent: userAgent})
}

type Logger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLogger returns a Logger writing to db. now defaults to time.Now.
func NewLogger(db *gorm.DB, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{db: db, now: now}
}

// Record appends e. When tx is an open transaction the row is written under a
// savepoint so it commits together with the caller's mutation, while a failed
// write only rolls back the savepoint.
func (l *Logger) Record(ctx context.Context, tx *gorm.DB, e Entry) {
	if l == nil {
		return
	}
	conn := tx
	if conn == nil {
		conn = l.db
	}
	if conn == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok {
		if e.IP == "" {
			e.IP = info.ip
		}
		if e.UserAgent == "" {
			e.UserAgent = info.userAgent
		}
	}

	row := models.AuditLog{
		UserID:    e.UserID,
		Username:  e.Username,
		Action:    e.Action,
		Details:   truncate(e.Details, 255),
		IP:        e.IP,
		UserAgent: truncate(e.UserAgent, 255),
		CreatedAt: l.now().UTC(),
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			log.WithError(err).WithField("action", e.Action).Warn("audit: encode metadata")
		} else {
			row.Metadata = datatypes.JSON(raw)
		}
	}

	err := conn.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		if row.Username == "" && row.UserID != nil {
			var name string
			if errName := sp.Model(&models.User{}).Select("username").Where("id = ?", *row.UserID).Scan(&name).Error; errName == nil {
				row.Username = name
			}
		}
		return sp.Create(&row).Error
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"action":  e.Action,
			"details": e.Details,
		}).Warn("audit: write failed")
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
