package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuthToken is the server side half of an auth token. Every user has at most one.
// Deleting the row invalidates every token issued for it.
type AuthToken struct {
	Key       string `gorm:"primaryKey;size:36"`
	UserID    uint   `gorm:"not null;uniqueIndex"`
	User      User   `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time
}

// GetOrCreateToken returns the token of the user, creating one if none exists.
func (c *Client) GetOrCreateToken(ctx context.Context, userID uint) (*AuthToken, error) {
	token := AuthToken{
		Key:    uuid.NewString(),
		UserID: userID,
	}
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(&token).Error
	if err != nil {
		log.Error("failed to create auth token", "error", err)
		return nil, err
	}

	var stored AuthToken
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).First(&stored).Error; err != nil {
		log.Error("failed to get auth token", "error", err)
		return nil, err
	}
	return &stored, nil
}

func (c *Client) GetToken(ctx context.Context, key string) (*AuthToken, error) {
	// struct conditions drop zero values, so an empty key would match any row
	if key == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var token AuthToken
	if err := c.db.WithContext(ctx).Preload("User").Where(&AuthToken{Key: key}).First(&token).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get auth token", "error", err)
		}
		return nil, err
	}
	return &token, nil
}

// DeleteUserToken removes the token of the user. It reports whether a token existed.
func (c *Client) DeleteUserToken(ctx context.Context, userID uint) (bool, error) {
	result := c.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&AuthToken{})
	if result.Error != nil {
		log.Error("failed to delete auth token", "error", result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
