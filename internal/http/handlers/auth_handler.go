package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"serverbook/internal/audit"
	"serverbook/internal/auth"
)

// LoginHandler authenticates the user and returns JWT
func LoginHandler(db *gorm.DB, jwtSecret string, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), db, input.Username, input.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			respondError(c, err)
			return
		}

		tokenString, err := auth.IssueToken(jwtSecret, user, now())
		if err != nil {
			respondError(c, err)
			return
		}

		// Set JWT as cookie (browser will send it automatically)
		c.SetCookie(auth.CookieName, tokenString, int(auth.TokenTTL/time.Second), "/", "", false, true)

		// Also return token in JSON for API clients
		c.JSON(http.StatusOK, gin.H{
			"token": tokenString,
			"user": gin.H{
				"id":       user.ID,
				"username": user.Username,
				"is_admin": user.IsAdmin,
			},
		})
	}
}

// LogoutHandler clears the auth cookie.
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// ChangePasswordHandler updates the caller's own password.
func ChangePasswordHandler(db *gorm.DB, auditLog *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		var input struct {
			OldPassword     string `json:"old_password" binding:"required"`
			NewPassword     string `json:"new_password" binding:"required"`
			ConfirmPassword string `json:"confirm_password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := auth.ChangePassword(c.Request.Context(), db, auditLog, cl.UserID, auth.PasswordChange{
			Old:     input.OldPassword,
			New:     input.NewPassword,
			Confirm: input.ConfirmPassword,
		})
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}
