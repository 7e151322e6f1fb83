package database

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tag is admin managed reference data attached to recipes.
type Tag struct {
	Model
	Name string `gorm:"uniqueIndex;size:16;not null;check:length(name) <= 16"`
	Slug string `gorm:"uniqueIndex;size:50;not null;check:length(slug) <= 50"`
}

// Ingredient is reference data. The amount used lives on RecipeIngredient.
type Ingredient struct {
	Model
	Name            string `gorm:"uniqueIndex;size:16;not null;check:length(name) <= 16"`
	MeasurementUnit string `gorm:"size:10;not null;check:length(measurement_unit) <= 10"`
}

func (c *Client) CreateTag(ctx context.Context, tag *Tag) error {
	if err := c.db.WithContext(ctx).Create(tag).Error; err != nil {
		log.Error("failed to create tag", "error", err)
		return err
	}
	return nil
}

func (c *Client) GetTag(ctx context.Context, id uint) (*Tag, error) {
	var tag Tag
	if err := c.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get tag", "error", err)
		}
		return nil, err
	}
	return &tag, nil
}

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		log.Error("failed to list tags", "error", err)
		return nil, err
	}
	return tags, nil
}

// ExistingTagIDs returns the subset of ids that belong to a tag.
func (c *Client) ExistingTagIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := c.db.WithContext(ctx).Model(&Tag{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		log.Error("failed to look up tag ids", "error", err)
		return nil, err
	}
	return found, nil
}

// CreateIngredients inserts ingredients and skips names that already exist.
// It returns the number of inserted rows.
func (c *Client) CreateIngredients(ctx context.Context, ingredients []Ingredient) (int64, error) {
	if len(ingredients) == 0 {
		return 0, errors.New("no ingredients to create")
	}
	result := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		CreateInBatches(&ingredients, 500)
	if result.Error != nil {
		log.Error("failed to create ingredients", "error", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (c *Client) GetIngredient(ctx context.Context, id uint) (*Ingredient, error) {
	var ingredient Ingredient
	if err := c.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get ingredient", "error", err)
		}
		return nil, err
	}
	return &ingredient, nil
}

// ListIngredients returns all ingredients whose name starts with prefix, ordered by name.
func (c *Client) ListIngredients(ctx context.Context, prefix string) ([]Ingredient, error) {
	tx := c.db.WithContext(ctx).Order("name")
	if prefix != "" {
		tx = tx.Where(`name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}

	var ingredients []Ingredient
	if err := tx.Find(&ingredients).Error; err != nil {
		log.Error("failed to list ingredients", "error", err)
		return nil, err
	}
	return ingredients, nil
}

// ExistingIngredientIDs returns the subset of ids that belong to an ingredient.
func (c *Client) ExistingIngredientIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := c.db.WithContext(ctx).Model(&Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		log.Error("failed to look up ingredient ids", "error", err)
		return nil, err
	}
	return found, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
