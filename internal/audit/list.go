package audit

import (
	"context"
	"strings"

	"gorm.io/gorm"

	dbutil "serverbook/internal/db"
	"serverbook/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Filter narrows an audit listing. Entries are returned newest first and
// AfterID is the cursor returned by the previous page.
type Filter struct {
	Limit   int
	AfterID int64
	Query   string
	Action  string
	UserID  *uint64
}

// Page is one page of audit entries.
type Page struct {
	Logs       []models.AuditLog `json:"logs"`
	NextCursor *int64            `json:"next_cursor"`
}

// List returns audit entries matching f.
func List(ctx context.Context, db *gorm.DB, f Filter) (Page, error) {
	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	query := db.WithContext(ctx).Model(&models.AuditLog{}).Order("id DESC")
	if f.AfterID > 0 {
		query = query.Where("id < ?", f.AfterID)
	}
	if action := strings.TrimSpace(f.Action); action != "" {
		query = query.Where("action = ?", strings.ToUpper(action))
	}
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if search := strings.TrimSpace(f.Query); search != "" {
		like := dbutil.NormalizeLikePattern(db, "%"+search+"%")
		query = query.Where(
			"("+dbutil.CaseInsensitiveLikeExpr(db, "username")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(db, "action")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(db, "details")+")",
			like, like, like,
		)
	}

	var logs []models.AuditLog
	if err := query.Limit(limit + 1).Find(&logs).Error; err != nil {
		return Page{}, err
	}

	page := Page{Logs: logs}
	if len(logs) > limit {
		next := logs[limit-1].ID
		page.Logs = logs[:limit]
		page.NextCursor = &next
	}
	return page, nil
}
