package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serverbook/internal/admin"
)

// ListUsers returns all users with their assigned server ids.
func ListUsers(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := svc.ListUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// CreateUser inserts a new user
func CreateUser(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		var in struct {
			Username       string `json:"username" binding:"required"`
			Email          string `json:"email" binding:"required,email"`
			Password       string `json:"password" binding:"required"`
			Position       string `json:"position"`
			ResourceNeeded string `json:"resource_needed"`
			IsAdmin        bool   `json:"is_admin"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := svc.CreateUser(c.Request.Context(), cl.UserID, admin.NewUser{
			Username:       in.Username,
			Email:          in.Email,
			Password:       in.Password,
			Position:       in.Position,
			ResourceNeeded: in.ResourceNeeded,
			IsAdmin:        in.IsAdmin,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// UpdateUser changes the fields present in the body. An empty password
// keeps the current one.
func UpdateUser(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		userID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			Username       *string `json:"username"`
			Email          *string `json:"email" binding:"omitempty,email"`
			Position       *string `json:"position"`
			ResourceNeeded *string `json:"resource_needed"`
			IsAdmin        *bool   `json:"is_admin"`
			Password       string  `json:"password"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := svc.UpdateUser(c.Request.Context(), cl.UserID, userID, admin.UserUpdate{
			Username:       in.Username,
			Email:          in.Email,
			Position:       in.Position,
			ResourceNeeded: in.ResourceNeeded,
			IsAdmin:        in.IsAdmin,
			Password:       in.Password,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// DeleteUser removes a non-admin user and releases its reservations.
func DeleteUser(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		userID, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := svc.DeleteUser(c.Request.Context(), cl.UserID, userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
	}
}
