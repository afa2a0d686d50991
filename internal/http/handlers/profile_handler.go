package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"serverbook/internal/models"
)

// MeHandler returns the profile of the currently authenticated user.
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, cl.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
