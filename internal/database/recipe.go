package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Recipe is the aggregate root. It owns its ingredient and tag association rows.
type Recipe struct {
	Model
	AuthorID    uint               `gorm:"not null;index"`
	Author      User               `gorm:"constraint:OnDelete:CASCADE;"`
	Name        string             `gorm:"size:256;not null;check:length(name) <= 256"`
	Image       string             `gorm:"not null"` // storage key
	Text        string             `gorm:"not null"`
	CookingTime int                `gorm:"not null;check:cooking_time >= 1"` // minutes
	Ingredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE;"`
	Tags        []RecipeTag        `gorm:"constraint:OnDelete:CASCADE;"`
}

// RecipeIngredient links an ingredient to a recipe and carries the amount used.
type RecipeIngredient struct {
	ID           uint       `gorm:"primarykey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;index;uniqueIndex:idx_recipe_ingredient"`
	Ingredient   Ingredient `gorm:"constraint:OnDelete:CASCADE;"`
	Amount       float64    `gorm:"not null;check:amount > 0"`
}

// RecipeTag links a tag to a recipe.
type RecipeTag struct {
	ID       uint `gorm:"primarykey"`
	RecipeID uint `gorm:"not null;uniqueIndex:idx_recipe_tag"`
	TagID    uint `gorm:"not null;index;uniqueIndex:idx_recipe_tag"`
	Tag      Tag  `gorm:"constraint:OnDelete:CASCADE;"`
}

// RecipeUpdate holds the scalar recipe fields to change. Nil fields are left untouched.
type RecipeUpdate struct {
	Name        *string
	Text        *string
	CookingTime *int
	Image       *string
}

// RecipeFilter narrows a recipe listing. Zero values disable a filter.
type RecipeFilter struct {
	// TagSlugs keeps recipes carrying at least one of the tags.
	TagSlugs []string
	// AuthorID keeps recipes written by the user.
	AuthorID uint
	// FavoritedBy keeps recipes the user has favorited.
	FavoritedBy uint
	// InCartOf keeps recipes in the user's shopping cart.
	InCartOf uint
}

// CreateRecipe inserts the recipe and its association rows in a single transaction.
// On success recipe.ID is set.
func (c *Client) CreateRecipe(ctx context.Context, recipe *Recipe, ingredients []RecipeIngredient, tags []RecipeTag) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, ingredients, tags)
	})
	if err != nil {
		log.Error("failed to create recipe", "error", err)
		return err
	}
	return nil
}

// UpdateRecipe updates the scalar fields and replaces the full association set in a single transaction.
func (c *Client) UpdateRecipe(ctx context.Context, id uint, upd RecipeUpdate, ingredients []RecipeIngredient, tags []RecipeTag) error {
	updates := map[string]any{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Text != nil {
		updates["text"] = *upd.Text
	}
	if upd.CookingTime != nil {
		updates["cooking_time"] = *upd.CookingTime
	}
	if upd.Image != nil {
		updates["image"] = *upd.Image
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&Recipe{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		if len(updates) > 0 {
			if err := tx.Model(&Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("recipe_id = ?", id).Delete(&RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&RecipeTag{}).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, id, ingredients, tags)
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to update recipe", "error", err)
		}
		return err
	}
	return nil
}

func replaceAssociations(tx *gorm.DB, recipeID uint, ingredients []RecipeIngredient, tags []RecipeTag) error {
	for i := range ingredients {
		ingredients[i].ID = 0
		ingredients[i].RecipeID = recipeID
	}
	for i := range tags {
		tags[i].ID = 0
		tags[i].RecipeID = recipeID
	}

	if len(ingredients) > 0 {
		if err := tx.Omit(clause.Associations).Create(&ingredients).Error; err != nil {
			return err
		}
	}
	if len(tags) > 0 {
		if err := tx.Omit(clause.Associations).Create(&tags).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetRecipe loads a recipe with its author, ingredients and tags.
func (c *Client) GetRecipe(ctx context.Context, id uint) (*Recipe, error) {
	var recipe Recipe
	err := c.preloadRecipe(c.db.WithContext(ctx)).First(&recipe, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get recipe", "error", err)
		}
		return nil, err
	}
	return &recipe, nil
}

// GetRecipeAuthor returns the author id of a recipe without loading the aggregate.
func (c *Client) GetRecipeAuthor(ctx context.Context, id uint) (uint, error) {
	var recipe Recipe
	err := c.db.WithContext(ctx).Select("id", "author_id").First(&recipe, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get recipe author", "error", err)
		}
		return 0, err
	}
	return recipe.AuthorID, nil
}

// GetRecipeSummary loads the scalar fields of a recipe without associations.
func (c *Client) GetRecipeSummary(ctx context.Context, id uint) (*Recipe, error) {
	var recipe Recipe
	if err := c.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get recipe", "error", err)
		}
		return nil, err
	}
	return &recipe, nil
}

// ListRecipes returns one page of recipes, newest first, and the number of recipes matching the filter.
func (c *Client) ListRecipes(ctx context.Context, filter RecipeFilter, limit, offset int) ([]Recipe, int64, error) {
	var total int64
	if err := c.filteredRecipes(ctx, filter).Count(&total).Error; err != nil {
		log.Error("failed to count recipes", "error", err)
		return nil, 0, err
	}

	var recipes []Recipe
	err := c.preloadRecipe(c.filteredRecipes(ctx, filter)).
		Order("recipes.created_at DESC, recipes.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&recipes).Error
	if err != nil {
		log.Error("failed to list recipes", "error", err)
		return nil, 0, err
	}
	return recipes, total, nil
}

func (c *Client) filteredRecipes(ctx context.Context, filter RecipeFilter) *gorm.DB {
	db := c.db.WithContext(ctx)
	tx := db.Model(&Recipe{})
	if len(filter.TagSlugs) > 0 {
		tagged := db.Model(&RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		tx = tx.Where("recipes.id IN (?)", tagged)
	}
	if filter.AuthorID != 0 {
		tx = tx.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if filter.FavoritedBy != 0 {
		favorited := db.Model(&Favorite{}).Select("recipe_id").Where("user_id = ?", filter.FavoritedBy)
		tx = tx.Where("recipes.id IN (?)", favorited)
	}
	if filter.InCartOf != 0 {
		inCart := db.Model(&ShoppingCart{}).Select("recipe_id").Where("user_id = ?", filter.InCartOf)
		tx = tx.Where("recipes.id IN (?)", inCart)
	}
	return tx
}

func (c *Client) preloadRecipe(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_tags.id") }).
		Preload("Tags.Tag")
}

// ListRecipesByAuthor returns the newest recipes of an author. A negative limit returns all of them.
func (c *Client) ListRecipesByAuthor(ctx context.Context, authorID uint, limit int) ([]Recipe, error) {
	var recipes []Recipe
	err := c.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		log.Error("failed to list recipes by author", "error", err)
		return nil, err
	}
	return recipes, nil
}

// CountRecipesByAuthors returns the number of recipes per author. Authors without recipes are absent.
func (c *Client) CountRecipesByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AuthorID uint
		Count    int64
	}
	err := c.db.WithContext(ctx).
		Model(&Recipe{}).
		Select("author_id, COUNT(*) AS count").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		log.Error("failed to count recipes by author", "error", err)
		return nil, err
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Count
	}
	return counts, nil
}

// DeleteRecipe removes a recipe. Association rows, favorites and cart entries cascade.
func (c *Client) DeleteRecipe(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).Delete(&Recipe{}, id)
	if result.Error != nil {
		log.Error("failed to delete recipe", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
