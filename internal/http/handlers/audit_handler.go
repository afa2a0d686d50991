package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"serverbook/internal/audit"
)

// ListAudit pages through the audit trail, newest first. Query parameters:
// limit, after_id (cursor), q (search), action, user_id.
func ListAudit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := audit.Filter{
			Query:  c.Query("q"),
			Action: c.Query("action"),
		}
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil {
				f.Limit = parsed
			}
		}
		if cursorStr := c.Query("after_id"); cursorStr != "" {
			if parsed, err := strconv.ParseInt(cursorStr, 10, 64); err == nil && parsed > 0 {
				f.AfterID = parsed
			}
		}
		if userStr := c.Query("user_id"); userStr != "" {
			parsed, err := strconv.ParseUint(userStr, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
				return
			}
			f.UserID = &parsed
		}

		page, err := audit.List(c.Request.Context(), db, f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}
