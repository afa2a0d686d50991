package access

import (
	"context"

	"gorm.io/gorm"

	"serverbook/internal/models"
)

// Checker answers questions about the user <-> server assignment relation.
// DB may be a transaction.
type Checker struct{ DB *gorm.DB }

// Assigned reports whether userID has been granted access to serverID.
func (c Checker) Assigned(ctx context.Context, userID, serverID uint64) (bool, error) {
	var count int64
	err := c.DB.WithContext(ctx).
		Model(&models.UserServer{}).
		Where("user_id = ? AND server_id = ?", userID, serverID).
		Count(&count).Error
	return count > 0, err
}

// ServersAssignedTo returns the ids of the servers userID may book, ascending.
func (c Checker) ServersAssignedTo(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := c.DB.WithContext(ctx).
		Model(&models.UserServer{}).
		Where("user_id = ?", userID).
		Order("server_id ASC").
		Pluck("server_id", &ids).Error
	return ids, err
}

// UsersAssignedTo returns the ids of the users granted serverID, ascending.
func (c Checker) UsersAssignedTo(ctx context.Context, serverID uint64) ([]uint64, error) {
	var ids []uint64
	err := c.DB.WithContext(ctx).
		Model(&models.UserServer{}).
		Where("server_id = ?", serverID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
