package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// User represents an account.
// Avatar holds the storage key of the uploaded image and is empty when no avatar is set.
type User struct {
	Model
	Email        string `gorm:"uniqueIndex;size:254;not null;check:length(email) <= 254"`
	Username     string `gorm:"uniqueIndex;size:150;not null;check:length(username) <= 150"`
	FirstName    string `gorm:"size:150;check:length(first_name) <= 150"`
	LastName     string `gorm:"size:150;check:length(last_name) <= 150"`
	PasswordHash string `gorm:"not null"`
	Avatar       string
	IsAdmin      bool `gorm:"default:false"`
}

// UserUpdate holds the profile fields a user may change. Nil fields are left untouched.
type UserUpdate struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
}

func (c *Client) CreateUser(ctx context.Context, user *User) error {
	if err := c.db.WithContext(ctx).Create(user).Error; err != nil {
		log.Error("failed to create user", "error", err)
		return err
	}
	return nil
}

func (c *Client) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by ID", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by email", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by username", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns one page of users ordered by id and the total number of users.
func (c *Client) ListUsers(ctx context.Context, limit, offset int) ([]User, int64, error) {
	var total int64
	if err := c.db.WithContext(ctx).Model(&User{}).Count(&total).Error; err != nil {
		log.Error("failed to count users", "error", err)
		return nil, 0, err
	}

	var users []User
	if err := c.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		log.Error("failed to list users", "error", err)
		return nil, 0, err
	}
	return users, total, nil
}

func (c *Client) UpdateUser(ctx context.Context, id uint, upd UserUpdate) error {
	updates := map[string]any{}
	if upd.Email != nil {
		updates["email"] = *upd.Email
	}
	if upd.Username != nil {
		updates["username"] = *upd.Username
	}
	if upd.FirstName != nil {
		updates["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		updates["last_name"] = *upd.LastName
	}
	if len(updates) == 0 {
		return nil
	}

	result := c.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		log.Error("failed to update user", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetUserAvatar stores the avatar key of a user. An empty key clears the avatar.
func (c *Client) SetUserAvatar(ctx context.Context, id uint, key string) error {
	result := c.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("avatar", key)
	if result.Error != nil {
		log.Error("failed to set user avatar", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (c *Client) SetUserPassword(ctx context.Context, id uint, passwordHash string) error {
	result := c.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if result.Error != nil {
		log.Error("failed to set user password", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (c *Client) SetUserAdmin(ctx context.Context, id uint, isAdmin bool) error {
	result := c.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_admin", isAdmin)
	if result.Error != nil {
		log.Error("failed to set user admin flag", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUser removes a user together with their recipes, relations and token.
func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).Delete(&User{}, id)
	if result.Error != nil {
		log.Error("failed to delete user", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
