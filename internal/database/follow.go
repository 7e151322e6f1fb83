package database

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm/clause"
)

// Follow records that User subscribed to Following.
type Follow struct {
	ID          uint `gorm:"primarykey"`
	UserID      uint `gorm:"not null;uniqueIndex:idx_follow_pair"`
	User        User `gorm:"constraint:OnDelete:CASCADE;"`
	FollowingID uint `gorm:"not null;index;uniqueIndex:idx_follow_pair"`
	Following   User `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt   time.Time
}

// CreateFollow stores a subscription. A duplicate pair fails with gorm.ErrDuplicatedKey.
func (c *Client) CreateFollow(ctx context.Context, userID, followingID uint) error {
	follow := Follow{UserID: userID, FollowingID: followingID}
	if err := c.db.WithContext(ctx).Omit(clause.Associations).Create(&follow).Error; err != nil {
		log.Debug("failed to create follow", "error", err)
		return err
	}
	return nil
}

// DeleteFollow removes a subscription. It reports whether one existed.
func (c *Client) DeleteFollow(ctx context.Context, userID, followingID uint) (bool, error) {
	result := c.db.WithContext(ctx).
		Where("user_id = ? AND following_id = ?", userID, followingID).
		Delete(&Follow{})
	if result.Error != nil {
		log.Error("failed to delete follow", "error", result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (c *Client) FollowExists(ctx context.Context, userID, followingID uint) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&Follow{}).
		Where("user_id = ? AND following_id = ?", userID, followingID).
		Count(&count).Error
	if err != nil {
		log.Error("failed to check follow", "error", err)
		return false, err
	}
	return count > 0, nil
}

// FollowedUserIDs returns which of the candidates the user follows.
func (c *Client) FollowedUserIDs(ctx context.Context, userID uint, candidates []uint) (map[uint]bool, error) {
	followed := make(map[uint]bool, len(candidates))
	if len(candidates) == 0 {
		return followed, nil
	}

	var ids []uint
	err := c.db.WithContext(ctx).
		Model(&Follow{}).
		Where("user_id = ? AND following_id IN ?", userID, candidates).
		Pluck("following_id", &ids).Error
	if err != nil {
		log.Error("failed to look up followed users", "error", err)
		return nil, err
	}
	for _, id := range ids {
		followed[id] = true
	}
	return followed, nil
}

// ListFollowing returns one page of the users the user follows, most recent subscription first,
// and the total number of subscriptions.
func (c *Client) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]User, int64, error) {
	var total int64
	if err := c.db.WithContext(ctx).Model(&Follow{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		log.Error("failed to count follows", "error", err)
		return nil, 0, err
	}

	var users []User
	err := c.db.WithContext(ctx).
		Model(&User{}).
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.user_id = ?", userID).
		Order("follows.created_at DESC, follows.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		log.Error("failed to list follows", "error", err)
		return nil, 0, err
	}
	return users, total, nil
}
