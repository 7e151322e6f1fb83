package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/database"
	"gorm.io/gorm"
)

type relationText struct {
	existsCode    string
	existsMessage string
	missing       string
}

var relationTexts = map[database.RecipeRelation]relationText{
	database.RelationFavorite: {
		existsCode:    ConflictAlreadyFavorited,
		existsMessage: "recipe is already in favorites",
		missing:       "favorite",
	},
	database.RelationShoppingCart: {
		existsCode:    ConflictAlreadyInCart,
		existsMessage: "recipe is already in the shopping cart",
		missing:       "shopping cart entry",
	},
}

// AddFavorite marks a recipe as a favorite of the viewer.
func (e *Engine) AddFavorite(ctx context.Context, viewer Viewer, recipeID uint) (*models.RecipeShort, error) {
	return e.addRelation(ctx, viewer, database.RelationFavorite, recipeID)
}

// RemoveFavorite removes a recipe from the viewer's favorites.
func (e *Engine) RemoveFavorite(ctx context.Context, viewer Viewer, recipeID uint) error {
	return e.removeRelation(ctx, viewer, database.RelationFavorite, recipeID)
}

// AddToShoppingCart puts a recipe in the viewer's shopping cart.
func (e *Engine) AddToShoppingCart(ctx context.Context, viewer Viewer, recipeID uint) (*models.RecipeShort, error) {
	return e.addRelation(ctx, viewer, database.RelationShoppingCart, recipeID)
}

// RemoveFromShoppingCart takes a recipe out of the viewer's shopping cart.
func (e *Engine) RemoveFromShoppingCart(ctx context.Context, viewer Viewer, recipeID uint) error {
	return e.removeRelation(ctx, viewer, database.RelationShoppingCart, recipeID)
}

func (e *Engine) addRelation(ctx context.Context, viewer Viewer, kind database.RecipeRelation, recipeID uint) (*models.RecipeShort, error) {
	if viewer.Anonymous() {
		return nil, ErrPermissionDenied
	}
	text := relationTexts[kind]

	recipe, err := e.db.GetRecipeSummary(ctx, recipeID)
	if err != nil {
		return nil, wrapDB(err, "recipe", "get recipe")
	}

	existing, err := e.db.RelatedRecipeIDs(ctx, kind, viewer.ID, []uint{recipeID})
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", kind, err)
	}
	if existing[recipeID] {
		return nil, conflict(text.existsCode, text.existsMessage)
	}

	if err := e.db.AddRecipeRelation(ctx, kind, viewer.ID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict(text.existsCode, text.existsMessage)
		}
		return nil, fmt.Errorf("failed to add %s: %w", kind, err)
	}

	short := e.projector.ProjectRecipeShort(*recipe)
	return &short, nil
}

func (e *Engine) removeRelation(ctx context.Context, viewer Viewer, kind database.RecipeRelation, recipeID uint) error {
	if viewer.Anonymous() {
		return ErrPermissionDenied
	}

	if _, err := e.db.GetRecipeAuthor(ctx, recipeID); err != nil {
		return wrapDB(err, "recipe", "get recipe")
	}

	removed, err := e.db.RemoveRecipeRelation(ctx, kind, viewer.ID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", kind, err)
	}
	if !removed {
		return notFound(relationTexts[kind].missing)
	}
	return nil
}
