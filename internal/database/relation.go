package database

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm/clause"
)

// RecipeRelation names a per-user mark on a recipe.
type RecipeRelation string

const (
	RelationFavorite     RecipeRelation = "favorite"
	RelationShoppingCart RecipeRelation = "shopping_cart"
)

// Favorite marks a recipe as a favorite of a user.
type Favorite struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_favorite_pair"`
	User      User   `gorm:"constraint:OnDelete:CASCADE;"`
	RecipeID  uint   `gorm:"not null;index;uniqueIndex:idx_favorite_pair"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time
}

// ShoppingCart puts a recipe in the shopping cart of a user.
type ShoppingCart struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_cart_pair"`
	User      User   `gorm:"constraint:OnDelete:CASCADE;"`
	RecipeID  uint   `gorm:"not null;index;uniqueIndex:idx_cart_pair"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time
}

func relationModel(kind RecipeRelation, userID, recipeID uint) (any, error) {
	switch kind {
	case RelationFavorite:
		return &Favorite{UserID: userID, RecipeID: recipeID}, nil
	case RelationShoppingCart:
		return &ShoppingCart{UserID: userID, RecipeID: recipeID}, nil
	default:
		return nil, fmt.Errorf("unknown recipe relation %q", kind)
	}
}

// AddRecipeRelation stores the mark. A duplicate fails with gorm.ErrDuplicatedKey.
func (c *Client) AddRecipeRelation(ctx context.Context, kind RecipeRelation, userID, recipeID uint) error {
	row, err := relationModel(kind, userID, recipeID)
	if err != nil {
		return err
	}
	if err := c.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		log.Debug("failed to add recipe relation", "kind", kind, "error", err)
		return err
	}
	return nil
}

// RemoveRecipeRelation deletes the mark. It reports whether one existed.
func (c *Client) RemoveRecipeRelation(ctx context.Context, kind RecipeRelation, userID, recipeID uint) (bool, error) {
	row, err := relationModel(kind, 0, 0)
	if err != nil {
		return false, err
	}
	result := c.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(row)
	if result.Error != nil {
		log.Error("failed to remove recipe relation", "kind", kind, "error", result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RelatedRecipeIDs returns which of the recipes carry the mark for the user.
func (c *Client) RelatedRecipeIDs(ctx context.Context, kind RecipeRelation, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	related := make(map[uint]bool, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return related, nil
	}
	row, err := relationModel(kind, 0, 0)
	if err != nil {
		return nil, err
	}

	var ids []uint
	err = c.db.WithContext(ctx).
		Model(row).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		log.Error("failed to look up recipe relations", "kind", kind, "error", err)
		return nil, err
	}
	for _, id := range ids {
		related[id] = true
	}
	return related, nil
}
